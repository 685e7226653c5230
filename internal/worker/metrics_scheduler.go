package worker

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/stemsi/admissions-backend/internal/model"
)

const metricsRunTimeout = 2 * time.Minute

// MetricsRecorder records the metrics window ending at now.
type MetricsRecorder interface {
	RecordPendingMetrics(ctx context.Context, now time.Time) (*model.Metric, error)
}

// MetricsScheduler runs the metrics recorder on a cron schedule.
type MetricsScheduler struct {
	cron     *cron.Cron
	recorder MetricsRecorder
	log      zerolog.Logger
}

// NewMetricsScheduler parses spec (standard five-field cron, UTC) and
// registers the recorder. Overlapping runs are skipped.
func NewMetricsScheduler(spec string, recorder MetricsRecorder, log zerolog.Logger) (*MetricsScheduler, error) {
	l := log.With().Str("component", "metrics_scheduler").Logger()
	cl := cronLogger{log: l}
	s := &MetricsScheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		recorder: recorder,
		log:      l,
	}
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return nil, err
	}
	return s, nil
}

// Start runs the schedule until ctx is cancelled, then waits for a running
// job to finish.
func (s *MetricsScheduler) Start(ctx context.Context) {
	s.log.Info().Msg("metrics scheduler started")
	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.log.Info().Msg("metrics scheduler stopped")
}

func (s *MetricsScheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), metricsRunTimeout)
	defer cancel()

	m, err := s.recorder.RecordPendingMetrics(ctx, time.Now())
	if err != nil {
		s.log.Error().Err(err).Msg("metrics run failed")
		return
	}
	s.log.Info().Int64("metric_id", m.ID).Msg("metrics run complete")
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
