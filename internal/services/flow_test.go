package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recruitflow/assessment-api/internal/models"
)

func TestMemoryFlowStore_DefaultSessionAndExpiry(t *testing.T) {
	store := NewMemoryFlowStore(time.Minute).(*memoryFlowStore)
	now := time.Now()
	store.now = func() time.Time { return now }
	ctx := context.Background()

	appID := uint(5)
	require.NoError(t, store.Save(ctx, "", FlowState{LatestApplicationID: &appID}))

	state, err := store.Get(ctx, DefaultSessionID)
	require.NoError(t, err)
	require.NotNil(t, state.LatestApplicationID)
	assert.Equal(t, uint(5), *state.LatestApplicationID)

	other, err := store.Get(ctx, "someone-else")
	require.NoError(t, err)
	assert.Nil(t, other.LatestApplicationID)

	now = now.Add(2 * time.Minute)
	expired, err := store.Get(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, FlowState{}, expired)
}

func TestRedisFlowStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := NewRedisFlowStore(client, time.Hour)
	ctx := context.Background()

	empty, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, empty.SelectedJob)

	title := "Cashier"
	appID := uint(42)
	require.NoError(t, store.Save(ctx, "s1", FlowState{
		SelectedJob:         &models.SelectedJob{JobID: "3", Title: &title},
		LatestApplicationID: &appID,
	}))

	assert.True(t, mr.Exists("flow:s1"))
	assert.Equal(t, time.Hour, mr.TTL("flow:s1"))

	state, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, state.SelectedJob)
	assert.Equal(t, "3", state.SelectedJob.JobID)
	assert.Equal(t, "Cashier", *state.SelectedJob.Title)
	assert.Equal(t, uint(42), *state.LatestApplicationID)

	mr.FastForward(2 * time.Hour)
	gone, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, FlowState{}, gone)
}

func TestRedisFlowStore_ReportsConnectionErrors(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { client.Close() })
	mr.Close()

	_, err := NewRedisFlowStore(client, time.Hour).Get(context.Background(), "s1")
	assert.Error(t, err)
}
