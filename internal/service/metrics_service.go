package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/admissions-backend/internal/metrics"
	"github.com/stemsi/admissions-backend/internal/model"
	"github.com/stemsi/admissions-backend/internal/notify"
)

// defaultWindow is used for the first run and as the stale-key threshold.
const defaultWindow = 24 * time.Hour

// SyncReporter delivers the periodic sync report.
type SyncReporter interface {
	SendSyncReport(ctx context.Context, report notify.SyncReport) error
}

// MetricsService computes periodic funnel metrics and mails the sync report.
type MetricsService struct {
	metrics  MetricStore
	keys     EnrolmentKeyStore
	reporter SyncReporter
	log      zerolog.Logger
}

// NewMetricsService creates a new MetricsService.
func NewMetricsService(metricStore MetricStore, keys EnrolmentKeyStore, reporter SyncReporter, log zerolog.Logger) *MetricsService {
	return &MetricsService{
		metrics:  metricStore,
		keys:     keys,
		reporter: reporter,
		log:      log.With().Str("component", "metrics_service").Logger(),
	}
}

// RecordPendingMetrics stores the metric for the window since the last run
// and emails the sync report. A failed email is logged and does not undo the
// stored metric.
func (s *MetricsService) RecordPendingMetrics(ctx context.Context, now time.Time) (*model.Metric, error) {
	now = now.UTC()

	from, ok, err := s.metrics.LastWindowEnd(ctx)
	if err != nil {
		return nil, storeErr("last metric window", err)
	}
	if !ok {
		from = now.Add(-defaultWindow)
	}
	if !from.Before(now) {
		return nil, invalidf("metric window starting %s is not before %s", from.Format(time.RFC3339), now.Format(time.RFC3339))
	}

	added, err := s.keys.CountCreatedBetween(ctx, from, now)
	if err != nil {
		return nil, storeErr("count keys", err)
	}
	completed, avg, err := s.keys.CompletedBetween(ctx, from, now)
	if err != nil {
		return nil, storeErr("count completed tests", err)
	}

	m := &model.Metric{
		WindowStart:    from,
		WindowEnd:      now,
		KeysGenerated:  added,
		TestsCompleted: completed,
		AverageMarks:   avg,
	}
	if err := s.metrics.Insert(ctx, m); err != nil {
		return nil, storeErr("insert metric", err)
	}

	s.log.Info().
		Time("from", from).
		Time("to", now).
		Int64("keys_added", added).
		Int64("tests_completed", completed).
		Msg("metrics recorded")

	report := notify.SyncReport{
		WindowStart:    from,
		WindowEnd:      now,
		KeysAdded:      added,
		TestsCompleted: completed,
		AverageMarks:   avg,
	}

	stale, err := s.keys.ListStale(ctx, now.Add(-defaultWindow))
	if err != nil {
		s.log.Warn().Err(err).Msg("list stale keys failed; report sent without key issues")
	}
	for _, k := range stale {
		report.SyncErrors.Platform.EnrolmentKeys = append(report.SyncErrors.Platform.EnrolmentKeys, notify.KeyError{
			Key:    k.Key,
			Errors: []string{fmt.Sprintf("started %s and never submitted", k.StartTime.UTC().Format(time.RFC3339))},
		})
	}

	if err := s.reporter.SendSyncReport(ctx, report); err != nil {
		metrics.NotificationFailures.WithLabelValues("email").Inc()
		s.log.Error().Err(err).Msg("send sync report failed")
	}

	return m, nil
}

// List returns the most recent metrics.
func (s *MetricsService) List(ctx context.Context, limit int) ([]model.Metric, error) {
	if limit < 1 || limit > 100 {
		limit = 30
	}
	ms, err := s.metrics.List(ctx, limit)
	if err != nil {
		return nil, storeErr("list metrics", err)
	}
	if ms == nil {
		ms = []model.Metric{}
	}
	return ms, nil
}
