package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Dosada05/matchmaking-system/models"
	"github.com/Dosada05/matchmaking-system/repositories"
)

// In-memory fakes shared by the service tests.

type memRatingRepo struct {
	mu     sync.Mutex
	global map[int]*models.PlayerRating
	queue  map[string]*models.QueueRating
}

func newMemRatingRepo() *memRatingRepo {
	return &memRatingRepo{
		global: make(map[int]*models.PlayerRating),
		queue:  make(map[string]*models.QueueRating),
	}
}

func queueRatingKey(tenantID int, queueName string, userID int) string {
	return queueKey(tenantID, queueName) + "/" + itoa(userID)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

func (r *memRatingRepo) EnsureGlobal(_ context.Context, _ repositories.SQLExecutor, userID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.global[userID]; !ok {
		r.global[userID] = &models.PlayerRating{
			UserID:     userID,
			MMR:        models.DefaultMMR,
			HighestMMR: models.DefaultMMR,
		}
	}
	return nil
}

func (r *memRatingRepo) EnsureQueue(_ context.Context, _ repositories.SQLExecutor, tenantID int, queueName string, userID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := queueRatingKey(tenantID, queueName, userID)
	if _, ok := r.queue[key]; !ok {
		r.queue[key] = &models.QueueRating{
			UserID:    userID,
			TenantID:  tenantID,
			QueueName: queueName,
			MMR:       models.DefaultMMR,
		}
	}
	return nil
}

func (r *memRatingRepo) GetGlobal(_ context.Context, _ repositories.SQLExecutor, userID int) (*models.PlayerRating, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rating, ok := r.global[userID]
	if !ok {
		return nil, repositories.ErrRatingNotFound
	}
	copied := *rating
	return &copied, nil
}

func (r *memRatingRepo) GetQueue(_ context.Context, _ repositories.SQLExecutor, tenantID int, queueName string, userID int) (*models.QueueRating, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rating, ok := r.queue[queueRatingKey(tenantID, queueName, userID)]
	if !ok {
		return nil, repositories.ErrRatingNotFound
	}
	copied := *rating
	return &copied, nil
}

func (r *memRatingRepo) GetQueueMany(_ context.Context, tenantID int, queueName string, userIDs []int) (map[int]*models.QueueRating, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[int]*models.QueueRating, len(userIDs))
	for _, userID := range userIDs {
		if rating, ok := r.queue[queueRatingKey(tenantID, queueName, userID)]; ok {
			copied := *rating
			out[userID] = &copied
		}
	}
	return out, nil
}

func (r *memRatingRepo) SaveGlobal(_ context.Context, _ repositories.SQLExecutor, rating *models.PlayerRating) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *rating
	r.global[rating.UserID] = &copied
	return nil
}

func (r *memRatingRepo) SaveQueue(_ context.Context, _ repositories.SQLExecutor, rating *models.QueueRating) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *rating
	r.queue[queueRatingKey(rating.TenantID, rating.QueueName, rating.UserID)] = &copied
	return nil
}

func (r *memRatingRepo) Leaderboard(_ context.Context, tenantID int, queueName string, limit int) ([]*models.QueueRating, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.QueueRating
	for _, rating := range r.queue {
		if rating.TenantID == tenantID && rating.QueueName == queueName {
			copied := *rating
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MMR > out[j].MMR })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memRatingRepo) GlobalLeaderboard(_ context.Context, limit int) ([]*models.PlayerRating, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.PlayerRating
	for _, rating := range r.global {
		copied := *rating
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MMR > out[j].MMR })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memRatingRepo) SetGracePeriod(_ context.Context, userID int, until time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rating, ok := r.global[userID]
	if !ok {
		return repositories.ErrRatingNotFound
	}
	rating.GracePeriodUntil = &until
	return nil
}

func (r *memRatingRepo) ListDecayCandidates(_ context.Context, tenantID int, queueName string, inactiveSince time.Time) ([]*models.QueueRating, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.QueueRating
	for _, rating := range r.queue {
		if rating.TenantID != tenantID || rating.QueueName != queueName {
			continue
		}
		if rating.MMR <= 0 || rating.LastPlayed == nil || !rating.LastPlayed.Before(inactiveSince) {
			continue
		}
		if global, ok := r.global[rating.UserID]; ok && global.GracePeriodUntil != nil && global.GracePeriodUntil.After(time.Now()) {
			continue
		}
		copied := *rating
		out = append(out, &copied)
	}
	return out, nil
}

func (r *memRatingRepo) ApplyDecay(_ context.Context, tenantID int, queueName string, userID int, step int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rating, ok := r.queue[queueRatingKey(tenantID, queueName, userID)]
	if !ok {
		return repositories.ErrRatingNotFound
	}
	rating.MMR -= step
	if rating.MMR < 0 {
		rating.MMR = 0
	}
	return nil
}

type memConfigRepo struct {
	mu      sync.Mutex
	configs map[string]*models.QueueConfig
	maps    map[string][]string
}

func newMemConfigRepo() *memConfigRepo {
	return &memConfigRepo{
		configs: make(map[string]*models.QueueConfig),
		maps:    make(map[string][]string),
	}
}

func (r *memConfigRepo) Get(_ context.Context, tenantID int, queueName string) (*models.QueueConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg, ok := r.configs[queueKey(tenantID, queueName)]
	if !ok {
		return nil, repositories.ErrQueueConfigNotFound
	}
	copied := *cfg
	return &copied, nil
}

func (r *memConfigRepo) Upsert(_ context.Context, cfg *models.QueueConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *cfg
	r.configs[queueKey(cfg.TenantID, cfg.QueueName)] = &copied
	return nil
}

func (r *memConfigRepo) SetLocked(_ context.Context, tenantID int, queueName string, locked bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg, ok := r.configs[queueKey(tenantID, queueName)]
	if !ok {
		return repositories.ErrQueueConfigNotFound
	}
	cfg.Locked = locked
	return nil
}

func (r *memConfigRepo) ListDecayEnabled(_ context.Context) ([]*models.QueueConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.QueueConfig
	for _, cfg := range r.configs {
		if cfg.MMRDecayEnabled {
			copied := *cfg
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *memConfigRepo) ListMaps(_ context.Context, tenantID int, queueName string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.maps[queueKey(tenantID, queueName)]...), nil
}

func (r *memConfigRepo) AddMap(_ context.Context, tenantID int, queueName, mapName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := queueKey(tenantID, queueName)
	r.maps[key] = append(r.maps[key], mapName)
	return nil
}

func (r *memConfigRepo) RemoveMap(_ context.Context, tenantID int, queueName, mapName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := queueKey(tenantID, queueName)
	kept := r.maps[key][:0]
	for _, m := range r.maps[key] {
		if m != mapName {
			kept = append(kept, m)
		}
	}
	r.maps[key] = kept
	return nil
}

type memEligibilityRepo struct {
	mu          sync.Mutex
	blacklisted map[string]bool
	required    map[string][]string
	held        map[string][]string
}

func newMemEligibilityRepo() *memEligibilityRepo {
	return &memEligibilityRepo{
		blacklisted: make(map[string]bool),
		required:    make(map[string][]string),
		held:        make(map[string][]string),
	}
}

func participantKey(tenantID, userID int) string {
	return itoa(tenantID) + "/" + itoa(userID)
}

func (r *memEligibilityRepo) IsBlacklisted(_ context.Context, tenantID int, queueName string, userID int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.blacklisted[queueRatingKey(tenantID, queueName, userID)], nil
}

func (r *memEligibilityRepo) AddToBlacklist(_ context.Context, tenantID int, queueName string, userID int, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blacklisted[queueRatingKey(tenantID, queueName, userID)] = true
	return nil
}

func (r *memEligibilityRepo) RemoveFromBlacklist(_ context.Context, tenantID int, queueName string, userID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.blacklisted, queueRatingKey(tenantID, queueName, userID))
	return nil
}

func (r *memEligibilityRepo) ListRequiredRoles(_ context.Context, tenantID int, queueName string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.required[queueKey(tenantID, queueName)]...), nil
}

func (r *memEligibilityRepo) AddRequiredRole(_ context.Context, tenantID int, queueName, roleID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := queueKey(tenantID, queueName)
	r.required[key] = append(r.required[key], roleID)
	return nil
}

func (r *memEligibilityRepo) RemoveRequiredRole(_ context.Context, tenantID int, queueName, roleID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := queueKey(tenantID, queueName)
	kept := r.required[key][:0]
	for _, role := range r.required[key] {
		if role != roleID {
			kept = append(kept, role)
		}
	}
	r.required[key] = kept
	return nil
}

func (r *memEligibilityRepo) ListParticipantRoles(_ context.Context, tenantID int, userID int) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.held[participantKey(tenantID, userID)]...), nil
}

func (r *memEligibilityRepo) HasAnyRole(ctx context.Context, tenantID int, userID int, roleIDs []string) (bool, error) {
	if len(roleIDs) == 0 {
		return true, nil
	}
	held, err := r.ListParticipantRoles(ctx, tenantID, userID)
	if err != nil {
		return false, err
	}
	for _, have := range held {
		for _, want := range roleIDs {
			if have == want {
				return true, nil
			}
		}
	}
	return false, nil
}

func (r *memEligibilityRepo) GrantParticipantRole(_ context.Context, tenantID int, userID int, roleID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := participantKey(tenantID, userID)
	for _, have := range r.held[key] {
		if have == roleID {
			return nil
		}
	}
	r.held[key] = append(r.held[key], roleID)
	return nil
}

func (r *memEligibilityRepo) RevokeParticipantRole(_ context.Context, tenantID int, userID int, roleID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := participantKey(tenantID, userID)
	kept := r.held[key][:0]
	for _, have := range r.held[key] {
		if have != roleID {
			kept = append(kept, have)
		}
	}
	r.held[key] = kept
	return nil
}

type memActivityRepo struct {
	mu      sync.Mutex
	entries []*models.QueueActivity
}

func (r *memActivityRepo) Record(_ context.Context, activity *models.QueueActivity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *activity
	copied.ID = len(r.entries) + 1
	copied.CreatedAt = time.Now()
	r.entries = append(r.entries, &copied)
	return nil
}

func (r *memActivityRepo) ListRecent(_ context.Context, tenantID int, queueName string, limit int) ([]*models.QueueActivity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.QueueActivity
	for i := len(r.entries) - 1; i >= 0 && len(out) < limit; i-- {
		entry := r.entries[i]
		if entry.TenantID == tenantID && entry.QueueName == queueName {
			copied := *entry
			out = append(out, &copied)
		}
	}
	return out, nil
}

type memMatchRepo struct {
	mu           sync.Mutex
	nextID       int
	matches      map[int]*models.Match
	byUID        map[string]int
	participants map[int][]models.MatchParticipant

	// gameRows mirrors the match_games table: one row per planned game,
	// keyed by the 1-based game index, nil winner until recorded.
	gameRows map[int]map[int]*int
}

func newMemMatchRepo() *memMatchRepo {
	return &memMatchRepo{
		matches:      make(map[int]*models.Match),
		byUID:        make(map[string]int),
		participants: make(map[int][]models.MatchParticipant),
		gameRows:     make(map[int]map[int]*int),
	}
}

func (r *memMatchRepo) Create(_ context.Context, _ repositories.SQLExecutor, match *models.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	match.ID = r.nextID
	match.CreatedAt = time.Now()
	seq := 0
	for _, m := range r.matches {
		if m.TenantID == match.TenantID && m.QueueName == match.QueueName && m.SeqNo > seq {
			seq = m.SeqNo
		}
	}
	match.SeqNo = seq + 1
	copied := *match
	r.matches[match.ID] = &copied
	r.byUID[match.UID] = match.ID
	rows := make(map[int]*int, len(match.Games))
	for i := range match.Games {
		rows[i+1] = nil
	}
	r.gameRows[match.ID] = rows
	return nil
}

func (r *memMatchRepo) CreateParticipants(_ context.Context, _ repositories.SQLExecutor, participants []models.MatchParticipant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range participants {
		r.participants[p.MatchID] = append(r.participants[p.MatchID], p)
	}
	return nil
}

func (r *memMatchRepo) ListParticipants(_ context.Context, matchID int) ([]models.MatchParticipant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.MatchParticipant(nil), r.participants[matchID]...), nil
}

func (r *memMatchRepo) GetByUID(_ context.Context, uid string) (*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byUID[uid]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	copied := *r.matches[id]
	return &copied, nil
}

func (r *memMatchRepo) GetByID(_ context.Context, id int) (*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	match, ok := r.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	copied := *match
	return &copied, nil
}

// RecordGameResult matches the SQL contract: an update that hits no
// row with a null winner reports the game as already recorded.
func (r *memMatchRepo) RecordGameResult(_ context.Context, _ repositories.SQLExecutor, matchID, gameIndex, winner int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	recorded, ok := r.gameRows[matchID][gameIndex]
	if !ok || recorded != nil {
		return repositories.ErrGameAlreadyRecorded
	}
	w := winner
	r.gameRows[matchID][gameIndex] = &w
	return nil
}

// gameWinner reads a recorded row, nil while undecided.
func (r *memMatchRepo) gameWinner(matchID, gameIndex int) *int {
	r.mu.Lock()
	defer r.mu.Unlock()
	recorded, ok := r.gameRows[matchID][gameIndex]
	if !ok || recorded == nil {
		return nil
	}
	w := *recorded
	return &w
}

func (r *memMatchRepo) Complete(_ context.Context, _ repositories.SQLExecutor, matchID, winner, team1Score, team2Score int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	match, ok := r.matches[matchID]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	if match.Winner != nil || match.Cancelled {
		return repositories.ErrMatchAlreadyResolved
	}
	w := winner
	match.Winner = &w
	match.Team1Score = team1Score
	match.Team2Score = team2Score
	return nil
}

func (r *memMatchRepo) Cancel(_ context.Context, _ repositories.SQLExecutor, matchID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	match, ok := r.matches[matchID]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	if match.Winner != nil || match.Cancelled {
		return repositories.ErrMatchAlreadyResolved
	}
	match.Cancelled = true
	return nil
}

func (r *memMatchRepo) SetResult(_ context.Context, _ repositories.SQLExecutor, matchID int, winner *int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	match, ok := r.matches[matchID]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	if winner == nil {
		match.Winner = nil
	} else {
		w := *winner
		match.Winner = &w
	}
	return nil
}

func (r *memMatchRepo) ListHistory(_ context.Context, tenantID int, queueName string, limit int) ([]*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Match
	for _, match := range r.matches {
		if match.TenantID == tenantID && match.QueueName == queueName && !match.Cancelled {
			copied := *match
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SeqNo > out[j].SeqNo })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// passthroughTxManager runs the function without a transaction.
type passthroughTxManager struct{}

func (passthroughTxManager) WithinTx(_ context.Context, fn func(exec repositories.SQLExecutor) error) error {
	return fn(nil)
}

type memRankRepo struct {
	mu    sync.Mutex
	bands map[string][]models.RankBand
}

func newMemRankRepo() *memRankRepo {
	return &memRankRepo{bands: make(map[string][]models.RankBand)}
}

func (r *memRankRepo) List(_ context.Context, tenantID int, queueName string) ([]models.RankBand, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.RankBand(nil), r.bands[queueKey(tenantID, queueName)]...), nil
}

func (r *memRankRepo) Upsert(_ context.Context, band *models.RankBand) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := queueKey(band.TenantID, band.QueueName)
	for i, existing := range r.bands[key] {
		if existing.Name == band.Name {
			r.bands[key][i] = *band
			return nil
		}
	}
	r.bands[key] = append(r.bands[key], *band)
	return nil
}

func (r *memRankRepo) Remove(_ context.Context, tenantID int, queueName, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := queueKey(tenantID, queueName)
	for i, existing := range r.bands[key] {
		if existing.Name == name {
			r.bands[key] = append(r.bands[key][:i], r.bands[key][i+1:]...)
			return nil
		}
	}
	return repositories.ErrRankBandNotFound
}

// recordingMatchCreator captures drained rosters instead of creating
// matches.
type recordingMatchCreator struct {
	mu      sync.Mutex
	rosters [][]int
}

func (c *recordingMatchCreator) CreateFromRoster(_ context.Context, cfg *models.QueueConfig, roster []int) (*models.Match, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rosters = append(c.rosters, append([]int(nil), roster...))
	return &models.Match{UID: "recorded", TenantID: cfg.TenantID, QueueName: cfg.QueueName}, nil
}
