package service

import (
	"context"
	"sync"
	"time"
)

// MonitorSnapshot summarizes key activity over the trailing day.
type MonitorSnapshot struct {
	From           time.Time `json:"from"`
	To             time.Time `json:"to"`
	KeysGenerated  int64     `json:"keys_generated"`
	TestsCompleted int64     `json:"tests_completed"`
	AverageMarks   float64   `json:"average_marks"`
	StaleKeys      int       `json:"stale_keys"`
}

// MonitorService builds the live monitor's snapshot.
type MonitorService struct {
	keys EnrolmentKeyStore
}

// NewMonitorService creates a new MonitorService.
func NewMonitorService(keys EnrolmentKeyStore) *MonitorService {
	return &MonitorService{keys: keys}
}

// Snapshot runs the three independent counts concurrently. The generated
// and completed counts are required; the stale count is best-effort.
func (s *MonitorService) Snapshot(ctx context.Context, now time.Time) (*MonitorSnapshot, error) {
	now = now.UTC()
	from := now.Add(-defaultWindow)
	snap := &MonitorSnapshot{From: from, To: now}

	var (
		createdErr, completedErr, staleErr error
		staleCount                         int
		wg                                 sync.WaitGroup
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		snap.KeysGenerated, createdErr = s.keys.CountCreatedBetween(ctx, from, now)
	}()
	go func() {
		defer wg.Done()
		snap.TestsCompleted, snap.AverageMarks, completedErr = s.keys.CompletedBetween(ctx, from, now)
	}()
	go func() {
		defer wg.Done()
		stale, err := s.keys.ListStale(ctx, from)
		staleCount, staleErr = len(stale), err
	}()
	wg.Wait()

	if createdErr != nil {
		return nil, storeErr("count keys", createdErr)
	}
	if completedErr != nil {
		return nil, storeErr("count completed tests", completedErr)
	}
	if staleErr == nil {
		snap.StaleKeys = staleCount
	}
	return snap, nil
}
