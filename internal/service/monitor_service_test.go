package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stemsi/admissions-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitorService_Snapshot(t *testing.T) {
	keys := newFakeKeys()
	keys.created, keys.completed, keys.avg = 4, 2, 1.5
	keys.stale = []model.EnrolmentKey{{Key: "AAA111"}, {Key: "BBB222"}}
	now := time.Date(2024, 6, 2, 12, 0, 0, 0, time.UTC)

	snap, err := NewMonitorService(keys).Snapshot(context.Background(), now)
	require.NoError(t, err)

	assert.Equal(t, now.Add(-24*time.Hour), snap.From)
	assert.Equal(t, now, snap.To)
	assert.Equal(t, int64(4), snap.KeysGenerated)
	assert.Equal(t, int64(2), snap.TestsCompleted)
	assert.Equal(t, 2, snap.StaleKeys)
}

func TestMonitorService_Snapshot_StaleCountIsBestEffort(t *testing.T) {
	keys := newFakeKeys()
	keys.staleErr = errors.New("slow query")
	keys.stale = []model.EnrolmentKey{{Key: "AAA111"}}

	snap, err := NewMonitorService(keys).Snapshot(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, snap.StaleKeys)
}

func TestMonitorService_Snapshot_CountFailure(t *testing.T) {
	keys := newFakeKeys()
	keys.countErr = errors.New("down")

	_, err := NewMonitorService(keys).Snapshot(context.Background(), time.Now())
	assert.ErrorIs(t, err, ErrTransientStore)
}
