package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Dosada05/matchmaking-system/live"
	"github.com/Dosada05/matchmaking-system/metrics"
	"github.com/Dosada05/matchmaking-system/models"
	"github.com/Dosada05/matchmaking-system/repositories"
	"github.com/Dosada05/matchmaking-system/teams"
)

const (
	// seriesLength is the best-of-3 cap; first team to winsNeeded takes
	// the series.
	seriesLength = 3
	winsNeeded   = 2

	// minRequiredVotes floors the vote threshold for small rosters.
	minRequiredVotes = 5

	persistRetryDelay = 5 * time.Second
	persistRetryMax   = 5
)

// mixRotation is the game mode order used when a queue is configured
// for mixed modes.
var mixRotation = []models.GameMode{models.GameModeHP, models.GameModeSND, models.GameModeOverload}

// SeriesArchiver uploads a completed series record to object storage
// and returns where it landed. Archival is best-effort; it runs after
// the result is durable.
type SeriesArchiver interface {
	ArchiveSeries(ctx context.Context, match *models.Match) (string, error)
}

// MatchState is the live view of an in-progress series. GameIndex is
// the 1-based number of the game currently being voted on.
type MatchState struct {
	Match         *models.Match `json:"match"`
	GameIndex     int           `json:"game_index"`
	Team1Votes    int           `json:"team1_votes"`
	Team2Votes    int           `json:"team2_votes"`
	RequiredVotes int           `json:"required_votes"`
}

type MatchService interface {
	CreateFromRoster(ctx context.Context, cfg *models.QueueConfig, roster []int) (*models.Match, error)

	// Vote records the caller's winner pick for the current game. A
	// repeat vote for the same team is a no-op; a vote for the other
	// team replaces the earlier one.
	Vote(ctx context.Context, uid string, userID, team int) (*MatchState, error)

	// ReportWin completes the series for the given team directly,
	// bypassing any remaining votes and games.
	ReportWin(ctx context.Context, uid string, team int) (*MatchState, error)

	Cancel(ctx context.Context, uid string) error
	ModifyResult(ctx context.Context, uid string, winner *int) error

	Get(ctx context.Context, uid string) (*MatchState, error)
	History(ctx context.Context, tenantID int, queueName string, limit int) ([]*models.Match, error)
}

// activeMatch holds vote state for one in-progress series. gameIndex
// is 1-based and matches the match_games rows; votes maps user to the
// team they currently back, last write wins.
type activeMatch struct {
	mu            sync.Mutex
	match         *models.Match
	gameIndex     int
	votes         map[int]int
	requiredVotes int
}

func (a *activeMatch) tally() (team1, team2 int) {
	for _, team := range a.votes {
		if team == 1 {
			team1++
		} else {
			team2++
		}
	}
	return team1, team2
}

type matchService struct {
	matchRepo  repositories.MatchRepository
	ratingRepo repositories.RatingRepository
	configRepo repositories.QueueConfigRepository
	txm        repositories.TxManager
	ratings    RatingService
	ranks      RankService
	archiver   SeriesArchiver
	notifier   *live.Notifier
	logger     *slog.Logger

	retryDelay time.Duration
	retryMax   int

	mu     sync.Mutex
	active map[string]*activeMatch

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewMatchService(
	matchRepo repositories.MatchRepository,
	ratingRepo repositories.RatingRepository,
	configRepo repositories.QueueConfigRepository,
	txm repositories.TxManager,
	ratings RatingService,
	ranks RankService,
	archiver SeriesArchiver,
	notifier *live.Notifier,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		matchRepo:  matchRepo,
		ratingRepo: ratingRepo,
		configRepo: configRepo,
		txm:        txm,
		ratings:    ratings,
		ranks:      ranks,
		archiver:   archiver,
		notifier:   notifier,
		logger:     logger,
		retryDelay: persistRetryDelay,
		retryMax:   persistRetryMax,
		active:     make(map[string]*activeMatch),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func requiredVotes(rosterSize int) int {
	n := rosterSize/2 + 1
	if n < minRequiredVotes {
		n = minRequiredVotes
	}
	return n
}

func (s *matchService) CreateFromRoster(ctx context.Context, cfg *models.QueueConfig, roster []int) (*models.Match, error) {
	ratings, err := s.ratingRepo.GetQueueMany(ctx, cfg.TenantID, cfg.QueueName, roster)
	if err != nil {
		return nil, fmt.Errorf("load roster ratings: %w", err)
	}

	players := make([]teams.Player, 0, len(roster))
	for _, userID := range roster {
		mmr := models.DefaultMMR
		if r, ok := ratings[userID]; ok {
			mmr = r.MMR
		}
		players = append(players, teams.Player{UserID: userID, MMR: mmr})
	}

	var team1, team2 []teams.Player
	switch cfg.TeamMode {
	case models.TeamModeBalanced:
		team1, team2 = teams.Balanced(players)
	case models.TeamModeRandom:
		s.rngMu.Lock()
		team1, team2 = teams.Random(players, s.rng)
		s.rngMu.Unlock()
	case models.TeamModeCaptains:
		return nil, teams.ErrCaptainsNotImplemented
	default:
		return nil, ErrInvalidTeamMode
	}

	games, err := s.planGames(ctx, cfg)
	if err != nil {
		return nil, err
	}

	match := &models.Match{
		UID:       uuid.NewString(),
		TenantID:  cfg.TenantID,
		QueueName: cfg.QueueName,
		Team1:     teams.IDs(team1),
		Team2:     teams.IDs(team2),
		Games:     games,
	}

	err = s.txm.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.matchRepo.Create(ctx, exec, match); err != nil {
			return err
		}
		participants, err := s.buildParticipants(ctx, exec, match, ratings)
		if err != nil {
			return err
		}
		return s.matchRepo.CreateParticipants(ctx, exec, participants)
	})
	if err != nil {
		return nil, fmt.Errorf("persist match: %w", err)
	}

	s.mu.Lock()
	s.active[match.UID] = &activeMatch{
		match:         match,
		gameIndex:     1,
		votes:         make(map[int]int),
		requiredVotes: requiredVotes(len(roster)),
	}
	s.mu.Unlock()
	metrics.ActiveMatches.Inc()
	metrics.MatchesCreated.WithLabelValues(strconv.Itoa(cfg.TenantID), cfg.QueueName).Inc()

	s.logger.Info("match created",
		slog.String("uid", match.UID),
		slog.Int("tenant_id", match.TenantID),
		slog.String("queue", match.QueueName),
		slog.Int("seq_no", match.SeqNo))

	s.notifier.AnnounceMatchCreated(match)
	return match, nil
}

// buildParticipants snapshots every player's current queue and global
// MMR so later corrections can recompute exactly, clamp included.
func (s *matchService) buildParticipants(ctx context.Context, exec repositories.SQLExecutor, match *models.Match, ratings map[int]*models.QueueRating) ([]models.MatchParticipant, error) {
	participants := make([]models.MatchParticipant, 0, len(match.Team1)+len(match.Team2))
	add := func(userID, team int) error {
		queueMMR := models.DefaultMMR
		if r, ok := ratings[userID]; ok {
			queueMMR = r.MMR
		}
		global, err := s.ratingRepo.GetGlobal(ctx, exec, userID)
		if err != nil {
			return fmt.Errorf("snapshot global rating for user %d: %w", userID, err)
		}
		participants = append(participants, models.MatchParticipant{
			MatchID:         match.ID,
			UserID:          userID,
			Team:            team,
			QueueMMRBefore:  queueMMR,
			GlobalMMRBefore: global.MMR,
		})
		return nil
	}
	for _, id := range match.Team1 {
		if err := add(id, 1); err != nil {
			return nil, err
		}
	}
	for _, id := range match.Team2 {
		if err := add(id, 2); err != nil {
			return nil, err
		}
	}
	return participants, nil
}

// planGames picks maps for the series and assigns a mode per game. The
// mixed mode walks a fixed rotation; fixed-mode queues repeat theirs.
func (s *matchService) planGames(ctx context.Context, cfg *models.QueueConfig) ([]models.GamePlan, error) {
	pool, err := s.configRepo.ListMaps(ctx, cfg.TenantID, cfg.QueueName)
	if err != nil {
		return nil, fmt.Errorf("load map pool for %d/%s: %w", cfg.TenantID, cfg.QueueName, err)
	}

	maps := s.pickMaps(pool, seriesLength)
	games := make([]models.GamePlan, seriesLength)
	for i := 0; i < seriesLength; i++ {
		mode := cfg.GameMode
		if cfg.GameMode == models.GameModeMix {
			mode = mixRotation[i%len(mixRotation)]
		}
		games[i] = models.GamePlan{Map: maps[i], Mode: mode}
	}
	return games, nil
}

// pickMaps draws n maps without replacement, allowing repeats only when
// the pool is smaller than the series.
func (s *matchService) pickMaps(pool []string, n int) []string {
	if len(pool) == 0 {
		picked := make([]string, n)
		for i := range picked {
			picked[i] = "TBD"
		}
		return picked
	}

	s.rngMu.Lock()
	defer s.rngMu.Unlock()

	shuffled := append([]string(nil), pool...)
	s.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	picked := make([]string, n)
	for i := 0; i < n; i++ {
		picked[i] = shuffled[i%len(shuffled)]
	}
	return picked
}

// lookup returns the live state for a match, rebuilding it from the
// database after a restart. Rebuilt matches resume with an empty vote
// set for the current game.
func (s *matchService) lookup(ctx context.Context, uid string) (*activeMatch, error) {
	s.mu.Lock()
	a, ok := s.active[uid]
	s.mu.Unlock()
	if ok {
		return a, nil
	}

	match, err := s.matchRepo.GetByUID(ctx, uid)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	if match.Terminal() {
		return nil, ErrMatchAlreadyTerminal
	}

	a = &activeMatch{
		match:         match,
		gameIndex:     match.Team1Score + match.Team2Score + 1,
		votes:         make(map[int]int),
		requiredVotes: requiredVotes(len(match.Roster())),
	}

	s.mu.Lock()
	if existing, ok := s.active[uid]; ok {
		a = existing
	} else {
		s.active[uid] = a
		metrics.ActiveMatches.Inc()
	}
	s.mu.Unlock()
	return a, nil
}

func (s *matchService) Vote(ctx context.Context, uid string, userID, team int) (*MatchState, error) {
	if team != 1 && team != 2 {
		return nil, ErrInvalidTeam
	}

	a, err := s.lookup(ctx, uid)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.match.Terminal() {
		return nil, ErrMatchAlreadyTerminal
	}
	if a.match.OnTeam(userID) == 0 {
		return nil, ErrNotInMatch
	}

	if prev, voted := a.votes[userID]; voted && prev == team {
		return s.stateLocked(a), nil
	}
	a.votes[userID] = team
	metrics.VotesRecorded.Inc()

	team1Votes, team2Votes := a.tally()
	winner := 0
	if team1Votes >= a.requiredVotes {
		winner = 1
	} else if team2Votes >= a.requiredVotes {
		winner = 2
	}

	if winner == 0 {
		s.notifier.AnnounceVoteProgress(a.match, a.gameIndex, team1Votes, team2Votes, a.requiredVotes)
		return s.stateLocked(a), nil
	}

	if err := s.resolveGameLocked(ctx, a, winner); err != nil {
		return nil, err
	}
	return s.stateLocked(a), nil
}

func (s *matchService) ReportWin(ctx context.Context, uid string, team int) (*MatchState, error) {
	if team != 1 && team != 2 {
		return nil, ErrInvalidTeam
	}

	a, err := s.lookup(ctx, uid)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.match.Terminal() {
		return nil, ErrMatchAlreadyTerminal
	}

	if team == 1 {
		a.match.Team1Score = winsNeeded
	} else {
		a.match.Team2Score = winsNeeded
	}
	if err := s.completeLocked(ctx, a, team); err != nil {
		return nil, err
	}
	return s.stateLocked(a), nil
}

// resolveGameLocked applies the game outcome in memory, hands the row
// write to the persistence path, and completes the series when a team
// reaches the required wins. Caller holds a.mu.
func (s *matchService) resolveGameLocked(ctx context.Context, a *activeMatch, winner int) error {
	game := a.gameIndex
	if winner == 1 {
		a.match.Team1Score++
	} else {
		a.match.Team2Score++
	}
	a.gameIndex++
	a.votes = make(map[int]int)

	s.persistGameResult(ctx, a.match, game, winner)
	s.notifier.AnnounceGameResolved(a.match, game, winner)

	if a.match.Team1Score < winsNeeded && a.match.Team2Score < winsNeeded {
		return nil
	}

	seriesWinner := 1
	if a.match.Team2Score >= winsNeeded {
		seriesWinner = 2
	}
	return s.completeLocked(ctx, a, seriesWinner)
}

// persistGameResult writes one game row. The winner-is-null guard on
// (match_id, game_index) makes the write idempotent, so finding the
// row already decided counts as done. A transient failure never undoes
// the in-memory transition; the write is retried in the background.
func (s *matchService) persistGameResult(ctx context.Context, match *models.Match, game, winner int) {
	err := s.matchRepo.RecordGameResult(ctx, nil, match.ID, game, winner)
	if err == nil || errors.Is(err, repositories.ErrGameAlreadyRecorded) {
		return
	}
	s.logger.Error("game result persistence failed, scheduling retry",
		slog.String("uid", match.UID),
		slog.Int("game", game),
		slog.Any("error", err))
	go s.retryGameResult(match, game, winner)
}

func (s *matchService) retryGameResult(match *models.Match, game, winner int) {
	for attempt := 1; attempt <= s.retryMax; attempt++ {
		time.Sleep(s.retryDelay * time.Duration(attempt))
		metrics.PersistenceRetries.Inc()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := s.matchRepo.RecordGameResult(ctx, nil, match.ID, game, winner)
		cancel()

		if err == nil || errors.Is(err, repositories.ErrGameAlreadyRecorded) {
			return
		}
		s.logger.Error("game result retry failed",
			slog.String("uid", match.UID),
			slog.Int("game", game),
			slog.Int("attempt", attempt),
			slog.Any("error", err))
	}
	s.logger.Error("game result persistence abandoned after retries",
		slog.String("uid", match.UID),
		slog.Int("game", game))
}

// completeLocked persists the series result and the rating updates in
// one transaction, then runs the non-critical follow-ups. Caller holds
// a.mu.
func (s *matchService) completeLocked(ctx context.Context, a *activeMatch, winner int) error {
	match := a.match

	if err := s.persistCompletion(ctx, match, winner); err != nil {
		if errors.Is(err, ErrMatchAlreadyResolvedElsewhere) {
			// Another writer finished the match; adopt its outcome.
			s.forget(match.UID)
			return nil
		}
		s.logger.Error("series completion persistence failed, scheduling retry",
			slog.String("uid", match.UID),
			slog.Any("error", err))
		go s.retryCompletion(match, winner)
		return nil
	}

	match.Winner = &winner
	s.forget(match.UID)
	s.finishSideEffects(match, winner)
	return nil
}

// ErrMatchAlreadyResolvedElsewhere marks a completion attempt that lost
// the race against another writer. Internal to the completion path.
var ErrMatchAlreadyResolvedElsewhere = errors.New("match resolved by another writer")

func (s *matchService) persistCompletion(ctx context.Context, match *models.Match, winner int) error {
	return s.txm.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		err := s.matchRepo.Complete(ctx, exec, match.ID, winner, match.Team1Score, match.Team2Score)
		if err != nil {
			if errors.Is(err, repositories.ErrMatchAlreadyResolved) {
				return ErrMatchAlreadyResolvedElsewhere
			}
			return err
		}

		winners, losers := match.Team1, match.Team2
		if winner == 2 {
			winners, losers = match.Team2, match.Team1
		}
		return s.ratings.ApplyResult(ctx, exec, match.TenantID, match.QueueName, winners, losers)
	})
}

// retryCompletion re-runs the completion transaction in the background.
// The repository guard makes a duplicate apply impossible.
func (s *matchService) retryCompletion(match *models.Match, winner int) {
	for attempt := 1; attempt <= s.retryMax; attempt++ {
		time.Sleep(s.retryDelay * time.Duration(attempt))
		metrics.PersistenceRetries.Inc()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := s.persistCompletion(ctx, match, winner)
		cancel()

		if err == nil || errors.Is(err, ErrMatchAlreadyResolvedElsewhere) {
			match.Winner = &winner
			s.forget(match.UID)
			if err == nil {
				s.finishSideEffects(match, winner)
			}
			return
		}
		s.logger.Error("series completion retry failed",
			slog.String("uid", match.UID),
			slog.Int("attempt", attempt),
			slog.Any("error", err))
	}
	s.logger.Error("series completion abandoned after retries",
		slog.String("uid", match.UID))
}

// finishSideEffects runs everything that must not block or roll back
// the durable result: announcements, rank reconciliation, archival.
func (s *matchService) finishSideEffects(match *models.Match, winner int) {
	metrics.SeriesCompleted.WithLabelValues(strconv.Itoa(match.TenantID), match.QueueName).Inc()
	s.notifier.AnnounceSeriesCompleted(match, winner)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := s.ranks.ReconcileAfterMatch(ctx, match.TenantID, match.QueueName, match.Roster()); err != nil {
			s.logger.Error("rank reconciliation failed",
				slog.String("uid", match.UID),
				slog.Any("error", err))
		}

		if s.archiver != nil {
			if location, err := s.archiver.ArchiveSeries(ctx, match); err != nil {
				s.logger.Error("series archive upload failed",
					slog.String("uid", match.UID),
					slog.Any("error", err))
			} else {
				s.logger.Info("series archived",
					slog.String("uid", match.UID),
					slog.String("location", location))
			}
		}
	}()
}

func (s *matchService) forget(uid string) {
	s.mu.Lock()
	if _, ok := s.active[uid]; ok {
		delete(s.active, uid)
		metrics.ActiveMatches.Dec()
	}
	s.mu.Unlock()
}

func (s *matchService) Cancel(ctx context.Context, uid string) error {
	match, err := s.matchRepo.GetByUID(ctx, uid)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return ErrMatchNotFound
		}
		return err
	}

	if err := s.matchRepo.Cancel(ctx, nil, match.ID); err != nil {
		if errors.Is(err, repositories.ErrMatchAlreadyResolved) {
			return ErrMatchAlreadyTerminal
		}
		return err
	}

	match.Cancelled = true
	s.forget(uid)
	metrics.MatchesCancelled.WithLabelValues(strconv.Itoa(match.TenantID), match.QueueName).Inc()

	s.logger.Info("match cancelled", slog.String("uid", uid))
	s.notifier.AnnounceMatchCancelled(match)
	return nil
}

// ModifyResult rewrites a finished match's outcome. winner nil voids
// the result. Ratings are recomputed from the pre-match snapshots, so
// the correction is exact even where the zero floor clipped a loss.
func (s *matchService) ModifyResult(ctx context.Context, uid string, winner *int) error {
	if winner != nil && *winner != 1 && *winner != 2 {
		return ErrInvalidTeam
	}

	match, err := s.matchRepo.GetByUID(ctx, uid)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return ErrMatchNotFound
		}
		return err
	}
	if !match.Terminal() {
		return ErrMatchInProgress
	}
	if match.Cancelled {
		return ErrMatchNotActive
	}

	participants, err := s.matchRepo.ListParticipants(ctx, match.ID)
	if err != nil {
		return fmt.Errorf("load participants for correction: %w", err)
	}

	err = s.txm.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.matchRepo.SetResult(ctx, exec, match.ID, winner); err != nil {
			return err
		}
		return s.ratings.ApplyCorrection(ctx, exec, match.TenantID, match.QueueName, participants, match.Winner, winner)
	})
	if err != nil {
		return fmt.Errorf("apply result correction: %w", err)
	}

	s.logger.Info("match result corrected",
		slog.String("uid", uid),
		slog.Any("old_winner", match.Winner),
		slog.Any("new_winner", winner))

	go func() {
		rctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.ranks.ReconcileAfterMatch(rctx, match.TenantID, match.QueueName, match.Roster()); err != nil {
			s.logger.Error("rank reconciliation after correction failed",
				slog.String("uid", uid),
				slog.Any("error", err))
		}
	}()
	return nil
}

func (s *matchService) Get(ctx context.Context, uid string) (*MatchState, error) {
	s.mu.Lock()
	a, ok := s.active[uid]
	s.mu.Unlock()
	if ok {
		a.mu.Lock()
		defer a.mu.Unlock()
		return s.stateLocked(a), nil
	}

	match, err := s.matchRepo.GetByUID(ctx, uid)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	state := &MatchState{
		Match:         match,
		RequiredVotes: requiredVotes(len(match.Roster())),
	}
	if !match.Terminal() {
		state.GameIndex = match.Team1Score + match.Team2Score + 1
	}
	return state, nil
}

func (s *matchService) History(ctx context.Context, tenantID int, queueName string, limit int) ([]*models.Match, error) {
	return s.matchRepo.ListHistory(ctx, tenantID, queueName, limit)
}

func (s *matchService) stateLocked(a *activeMatch) *MatchState {
	team1Votes, team2Votes := a.tally()
	matchCopy := *a.match
	return &MatchState{
		Match:         &matchCopy,
		GameIndex:     a.gameIndex,
		Team1Votes:    team1Votes,
		Team2Votes:    team2Votes,
		RequiredVotes: a.requiredVotes,
	}
}
