package worker

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"sjsage522/euromillionsworker/internal/crawler"
	"sjsage522/euromillionsworker/internal/models"
	"sjsage522/euromillionsworker/logger"
	"sjsage522/euromillionsworker/pkg/errors"
	"sjsage522/euromillionsworker/services/publisher"
)

// DrawStore persists scraped draws
type DrawStore interface {
	UpsertDraw(ctx context.Context, draw models.Draw) (inserted bool, err error)
}

// Config contains the years to sync and the schedule
type Config struct {
	// Years overrides the range derived from YearsBack when not empty
	Years     []int
	YearsBack int

	// Schedule is a five-field cron expression evaluated in Location
	Schedule   string
	Location   *time.Location
	RunOnStart bool
}

// SyncReport summarizes one SyncHistory run
type SyncReport struct {
	Processed int                `json:"processed"`
	Inserted  int                `json:"inserted"`
	Failed    int                `json:"failed"`
	Stats     crawler.FetchStats `json:"stats"`
	Duration  time.Duration      `json:"-"`
}

// Worker fetches draw history and persists it, on demand or on a schedule
type Worker struct {
	crawler   crawler.Crawler
	store     DrawStore
	publisher publisher.Publisher
	cfg       Config
	log       *logger.Logger
	now       func() time.Time

	// serializes scheduled and on-demand syncs
	mu sync.Mutex
}

// NewWorker creates a new worker
func NewWorker(c crawler.Crawler, store DrawStore, pub publisher.Publisher, cfg Config) *Worker {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if pub == nil {
		pub = publisher.NoopPublisher{}
	}
	return &Worker{
		crawler:   c,
		store:     store,
		publisher: pub,
		cfg:       cfg,
		log:       logger.ForWorker(),
		now:       time.Now,
	}
}

// Years returns the years the next sync will fetch
func (w *Worker) Years() []int {
	if len(w.cfg.Years) > 0 {
		return append([]int(nil), w.cfg.Years...)
	}
	return crawler.YearRange(w.now().In(w.cfg.Location), w.cfg.YearsBack)
}

// SyncHistory fetches every configured year and upserts the draws. Processed
// counts successful upserts, including dates that were already stored.
// Storage failures are logged per draw and do not stop the run. When the fetch
// is canceled the draws collected so far are still stored before ctx's error
// is returned.
func (w *Worker) SyncHistory(ctx context.Context) (SyncReport, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	start := time.Now()
	years := w.Years()

	draws, stats, fetchErr := w.crawler.FetchHistory(ctx, years)
	report := SyncReport{Stats: stats}

	storeCtx := ctx
	if fetchErr != nil {
		// ctx is done; the store still bounds each command with its own timeout
		storeCtx = context.WithoutCancel(ctx)
	}

	for _, draw := range draws {
		inserted, err := w.store.UpsertDraw(storeCtx, draw)
		if err != nil {
			report.Failed++
			w.log.Error().Err(err).Str("date", draw.DateKey()).Msg("Failed to store draw")
			continue
		}
		report.Processed++
		if inserted {
			report.Inserted++
			w.publishDraw(draw)
		}
	}

	if report.Inserted > 0 {
		if err := w.publisher.TrimStreams(); err != nil {
			w.log.Warn().Err(err).Msg("Failed to trim streams")
		}
	}

	report.Duration = time.Since(start)
	if fetchErr != nil {
		w.log.Warn().Err(fetchErr).
			Int("processed", report.Processed).
			Msg("History sync interrupted")
		return report, fetchErr
	}

	w.log.Info().
		Ints("years", years).
		Int("processed", report.Processed).
		Int("inserted", report.Inserted).
		Int("failed", report.Failed).
		Dur("elapsed", report.Duration).
		Msg("History synced")

	return report, nil
}

func (w *Worker) publishDraw(draw models.Draw) {
	data, err := json.Marshal(draw)
	if err != nil {
		w.log.Error().Err(err).Str("date", draw.DateKey()).Msg("Failed to encode draw")
		return
	}
	if err := w.publisher.Publish(publisher.KeyDraw, data); err != nil {
		w.log.Warn().Err(err).Str("date", draw.DateKey()).Msg("Failed to publish draw")
	}
}

// Start runs SyncHistory on the cron schedule until ctx is done. It returns
// an error only when the schedule cannot be parsed.
func (w *Worker) Start(ctx context.Context) error {
	cl := cronLogger{log: w.log}
	c := cron.New(
		cron.WithLocation(w.cfg.Location),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	if _, err := c.AddFunc(w.cfg.Schedule, func() { w.runScheduled(ctx) }); err != nil {
		return errors.NewConfiguration("invalid sync schedule "+w.cfg.Schedule, err)
	}

	c.Start()
	w.log.Info().
		Str("schedule", w.cfg.Schedule).
		Str("timezone", w.cfg.Location.String()).
		Time("next", c.Entries()[0].Next).
		Msg("Scheduler started")

	if w.cfg.RunOnStart {
		go w.runScheduled(ctx)
	}

	<-ctx.Done()
	stopped := c.Stop()
	<-stopped.Done()
	w.log.Info().Msg("Scheduler stopped")
	return nil
}

// runScheduled logs failures; a scheduled run never brings the process down
func (w *Worker) runScheduled(ctx context.Context) {
	w.log.Info().Msg("Running scheduled fetch")
	if _, err := w.SyncHistory(ctx); err != nil {
		w.log.WithError(err).Error().Msg("Scheduled fetch failed")
	}
}

// cronLogger adapts the zerolog logger to cron.Logger
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
