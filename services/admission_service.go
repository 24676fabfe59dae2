package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/Dosada05/matchmaking-system/live"
	"github.com/Dosada05/matchmaking-system/metrics"
	"github.com/Dosada05/matchmaking-system/models"
	"github.com/Dosada05/matchmaking-system/repositories"
)

// MatchCreator receives the roster drained from a full queue. Admission
// does not know how matches are formed; it only guarantees the roster
// was drained exactly once, in join order.
type MatchCreator interface {
	CreateFromRoster(ctx context.Context, cfg *models.QueueConfig, roster []int) (*models.Match, error)
}

type QueueState struct {
	TenantID  int    `json:"tenant_id"`
	QueueName string `json:"queue_name"`
	Members   []int  `json:"members"`
	Capacity  int    `json:"capacity"`
	Locked    bool   `json:"locked"`
}

type AdmissionService interface {
	Join(ctx context.Context, tenantID int, queueName string, userID int) (*QueueState, error)
	Leave(ctx context.Context, tenantID int, queueName string, userID int) (*QueueState, error)
	ForceAdd(ctx context.Context, tenantID int, queueName string, userID int) (*QueueState, error)
	ForceRemove(ctx context.Context, tenantID int, queueName string, userID int) (*QueueState, error)
	// Clear empties the queue and returns how many members it removed.
	Clear(ctx context.Context, tenantID int, queueName string) (int, error)
	SetLocked(ctx context.Context, tenantID int, queueName string, locked bool) error
	State(ctx context.Context, tenantID int, queueName string) (*QueueState, error)
	Activity(ctx context.Context, tenantID int, queueName string, limit int) ([]*models.QueueActivity, error)
}

// queueEntry holds the live membership of one (tenant, queue) pair.
// All membership reads and writes go through mu; the drain decision and
// the removal of drained members happen under the same lock hold.
type queueEntry struct {
	mu      sync.Mutex
	members []int
}

type admissionService struct {
	configRepo      repositories.QueueConfigRepository
	eligibilityRepo repositories.EligibilityRepository
	activityRepo    repositories.ActivityRepository
	ratings         RatingService
	matches         MatchCreator
	notifier        *live.Notifier
	logger          *slog.Logger

	mu     sync.Mutex
	queues map[string]*queueEntry
}

func NewAdmissionService(
	configRepo repositories.QueueConfigRepository,
	eligibilityRepo repositories.EligibilityRepository,
	activityRepo repositories.ActivityRepository,
	ratings RatingService,
	matches MatchCreator,
	notifier *live.Notifier,
	logger *slog.Logger,
) AdmissionService {
	return &admissionService{
		configRepo:      configRepo,
		eligibilityRepo: eligibilityRepo,
		activityRepo:    activityRepo,
		ratings:         ratings,
		matches:         matches,
		notifier:        notifier,
		logger:          logger,
	}
}

func queueKey(tenantID int, queueName string) string {
	return fmt.Sprintf("%d/%s", tenantID, queueName)
}

func (s *admissionService) entry(tenantID int, queueName string) *queueEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queues == nil {
		s.queues = make(map[string]*queueEntry)
	}
	key := queueKey(tenantID, queueName)
	e, ok := s.queues[key]
	if !ok {
		e = &queueEntry{}
		s.queues[key] = e
	}
	return e
}

// config loads the queue configuration, falling back to the default for
// queues that were never configured.
func (s *admissionService) config(ctx context.Context, tenantID int, queueName string) (*models.QueueConfig, error) {
	cfg, err := s.configRepo.Get(ctx, tenantID, queueName)
	if err != nil {
		if errors.Is(err, repositories.ErrQueueConfigNotFound) {
			return models.DefaultQueueConfig(tenantID, queueName), nil
		}
		return nil, fmt.Errorf("load queue config for %d/%s: %w", tenantID, queueName, err)
	}
	return cfg, nil
}

func (s *admissionService) Join(ctx context.Context, tenantID int, queueName string, userID int) (*QueueState, error) {
	cfg, err := s.config(ctx, tenantID, queueName)
	if err != nil {
		return nil, err
	}
	if cfg.Locked {
		metrics.QueueRejections.WithLabelValues("locked").Inc()
		return nil, ErrQueueLocked
	}

	blacklisted, err := s.eligibilityRepo.IsBlacklisted(ctx, tenantID, queueName, userID)
	if err != nil {
		return nil, fmt.Errorf("blacklist check for user %d: %w", userID, err)
	}
	if blacklisted {
		metrics.QueueRejections.WithLabelValues("blacklisted").Inc()
		return nil, ErrBlacklisted
	}

	required, err := s.eligibilityRepo.ListRequiredRoles(ctx, tenantID, queueName)
	if err != nil {
		return nil, fmt.Errorf("required roles for %d/%s: %w", tenantID, queueName, err)
	}
	eligible, err := s.eligibilityRepo.HasAnyRole(ctx, tenantID, userID, required)
	if err != nil {
		return nil, fmt.Errorf("role check for user %d: %w", userID, err)
	}
	if !eligible {
		metrics.QueueRejections.WithLabelValues("missing_role").Inc()
		return nil, ErrRoleIneligible
	}

	if err := s.ratings.EnsureRecords(ctx, tenantID, queueName, userID); err != nil {
		return nil, fmt.Errorf("ensure rating records for user %d: %w", userID, err)
	}

	return s.admit(ctx, cfg, userID, models.ActionJoined)
}

// ForceAdd bypasses lock, blacklist and role checks. It still refuses
// duplicates and still triggers a drain on fill.
func (s *admissionService) ForceAdd(ctx context.Context, tenantID int, queueName string, userID int) (*QueueState, error) {
	cfg, err := s.config(ctx, tenantID, queueName)
	if err != nil {
		return nil, err
	}
	if err := s.ratings.EnsureRecords(ctx, tenantID, queueName, userID); err != nil {
		return nil, fmt.Errorf("ensure rating records for user %d: %w", userID, err)
	}
	return s.admit(ctx, cfg, userID, models.ActionForceAdded)
}

// admit appends the user and drains the queue if it just reached
// capacity. Membership mutation and the drain decision are a single
// critical section so two concurrent fills cannot both drain.
func (s *admissionService) admit(ctx context.Context, cfg *models.QueueConfig, userID int, action models.QueueAction) (*QueueState, error) {
	e := s.entry(cfg.TenantID, cfg.QueueName)

	var roster []int
	e.mu.Lock()
	for _, id := range e.members {
		if id == userID {
			e.mu.Unlock()
			metrics.QueueRejections.WithLabelValues("duplicate").Inc()
			return nil, ErrAlreadyQueued
		}
	}
	e.members = append(e.members, userID)
	metrics.QueueJoins.WithLabelValues(strconv.Itoa(cfg.TenantID), cfg.QueueName).Inc()
	if len(e.members) >= cfg.Capacity() {
		roster = e.members[:cfg.Capacity()]
		e.members = append([]int(nil), e.members[cfg.Capacity():]...)
	}
	state := s.snapshot(cfg, e.members)
	e.mu.Unlock()

	s.recordActivity(ctx, cfg.TenantID, cfg.QueueName, userID, action)

	if roster != nil {
		if _, err := s.matches.CreateFromRoster(ctx, cfg, roster); err != nil {
			// The roster is already drained; re-queueing it would break
			// join order for everyone behind it. Surface the failure.
			s.logger.Error("match creation failed after drain",
				slog.Int("tenant_id", cfg.TenantID),
				slog.String("queue", cfg.QueueName),
				slog.Any("error", err))
			return nil, fmt.Errorf("create match from drained roster: %w", err)
		}
	}

	s.notifier.RenderQueueState(cfg.TenantID, cfg.QueueName, state.Members, state.Capacity)
	return state, nil
}

func (s *admissionService) Leave(ctx context.Context, tenantID int, queueName string, userID int) (*QueueState, error) {
	return s.remove(ctx, tenantID, queueName, userID, models.ActionLeft)
}

func (s *admissionService) ForceRemove(ctx context.Context, tenantID int, queueName string, userID int) (*QueueState, error) {
	return s.remove(ctx, tenantID, queueName, userID, models.ActionForceRemoved)
}

func (s *admissionService) remove(ctx context.Context, tenantID int, queueName string, userID int, action models.QueueAction) (*QueueState, error) {
	cfg, err := s.config(ctx, tenantID, queueName)
	if err != nil {
		return nil, err
	}

	e := s.entry(tenantID, queueName)
	e.mu.Lock()
	idx := -1
	for i, id := range e.members {
		if id == userID {
			idx = i
			break
		}
	}
	if idx == -1 {
		e.mu.Unlock()
		return nil, ErrNotQueued
	}
	e.members = append(e.members[:idx], e.members[idx+1:]...)
	state := s.snapshot(cfg, e.members)
	e.mu.Unlock()

	s.recordActivity(ctx, tenantID, queueName, userID, action)
	s.notifier.RenderQueueState(tenantID, queueName, state.Members, state.Capacity)
	return state, nil
}

func (s *admissionService) Clear(ctx context.Context, tenantID int, queueName string) (int, error) {
	cfg, err := s.config(ctx, tenantID, queueName)
	if err != nil {
		return 0, err
	}

	e := s.entry(tenantID, queueName)
	e.mu.Lock()
	cleared := len(e.members)
	e.members = nil
	state := s.snapshot(cfg, nil)
	e.mu.Unlock()

	s.recordActivity(ctx, tenantID, queueName, 0, models.ActionCleared)
	s.notifier.RenderQueueState(tenantID, queueName, state.Members, state.Capacity)
	return cleared, nil
}

func (s *admissionService) SetLocked(ctx context.Context, tenantID int, queueName string, locked bool) error {
	if err := s.configRepo.SetLocked(ctx, tenantID, queueName, locked); err != nil {
		if errors.Is(err, repositories.ErrQueueConfigNotFound) {
			cfg := models.DefaultQueueConfig(tenantID, queueName)
			cfg.Locked = locked
			return s.configRepo.Upsert(ctx, cfg)
		}
		return err
	}
	return nil
}

func (s *admissionService) State(ctx context.Context, tenantID int, queueName string) (*QueueState, error) {
	cfg, err := s.config(ctx, tenantID, queueName)
	if err != nil {
		return nil, err
	}

	e := s.entry(tenantID, queueName)
	e.mu.Lock()
	state := s.snapshot(cfg, e.members)
	e.mu.Unlock()
	return state, nil
}

func (s *admissionService) Activity(ctx context.Context, tenantID int, queueName string, limit int) ([]*models.QueueActivity, error) {
	return s.activityRepo.ListRecent(ctx, tenantID, queueName, limit)
}

func (s *admissionService) snapshot(cfg *models.QueueConfig, members []int) *QueueState {
	return &QueueState{
		TenantID:  cfg.TenantID,
		QueueName: cfg.QueueName,
		Members:   append([]int(nil), members...),
		Capacity:  cfg.Capacity(),
		Locked:    cfg.Locked,
	}
}

// recordActivity is audit-only; a failed write never fails the
// membership change it describes.
func (s *admissionService) recordActivity(ctx context.Context, tenantID int, queueName string, userID int, action models.QueueAction) {
	err := s.activityRepo.Record(ctx, &models.QueueActivity{
		TenantID:  tenantID,
		QueueName: queueName,
		UserID:    userID,
		Action:    action,
	})
	if err != nil {
		s.logger.Error("failed to record queue activity",
			slog.Int("tenant_id", tenantID),
			slog.String("queue", queueName),
			slog.Any("error", err))
	}
}
