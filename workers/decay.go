package workers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/Dosada05/matchmaking-system/metrics"
	"github.com/Dosada05/matchmaking-system/services"
)

// DecayWorker runs the periodic rating decay sweep over every queue
// that has decay enabled.
type DecayWorker struct {
	ratings   services.RatingService
	interval  time.Duration
	logger    *slog.Logger
	scheduler gocron.Scheduler
}

func NewDecayWorker(ratings services.RatingService, interval time.Duration, logger *slog.Logger) *DecayWorker {
	return &DecayWorker{
		ratings:  ratings,
		interval: interval,
		logger:   logger,
	}
}

func (w *DecayWorker) Start() error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create decay scheduler: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(w.interval),
		gocron.NewTask(w.run),
	)
	if err != nil {
		return fmt.Errorf("register decay job: %w", err)
	}

	scheduler.Start()
	w.scheduler = scheduler
	w.logger.Info("decay worker started", slog.Duration("interval", w.interval))
	return nil
}

func (w *DecayWorker) Stop() error {
	if w.scheduler == nil {
		return nil
	}
	return w.scheduler.Shutdown()
}

func (w *DecayWorker) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := w.ratings.RunDecay(ctx); err != nil {
		w.logger.Error("decay sweep failed", slog.Any("error", err))
		return
	}
	metrics.DecayRuns.Inc()
}
