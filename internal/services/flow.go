package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"recruitflow/assessment-api/internal/models"
)

const DefaultSessionID = "default"

// FlowState is the ephemeral per-candidate-flow context: which job was picked and which
// application the last CV created.
type FlowState struct {
	SelectedJob         *models.SelectedJob `json:"selected_job,omitempty"`
	LatestApplicationID *uint               `json:"latest_application_id,omitempty"`
}

// FlowStore keeps FlowState per session. An unknown session reads as an empty state.
type FlowStore interface {
	Get(ctx context.Context, sessionID string) (FlowState, error)
	Save(ctx context.Context, sessionID string, state FlowState) error
}

func sessionKey(sessionID string) string {
	if strings.TrimSpace(sessionID) == "" {
		return DefaultSessionID
	}
	return strings.TrimSpace(sessionID)
}

type memoryFlowEntry struct {
	state     FlowState
	expiresAt time.Time
}

type memoryFlowStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryFlowEntry
}

func NewMemoryFlowStore(ttl time.Duration) FlowStore {
	return &memoryFlowStore{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoryFlowEntry),
	}
}

func (s *memoryFlowStore) Get(_ context.Context, sessionID string) (FlowState, error) {
	key := sessionKey(sessionID)

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return FlowState{}, nil
	}
	if s.ttl > 0 && s.now().After(entry.expiresAt) {
		delete(s.entries, key)
		return FlowState{}, nil
	}
	return entry.state, nil
}

func (s *memoryFlowStore) Save(_ context.Context, sessionID string, state FlowState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[sessionKey(sessionID)] = memoryFlowEntry{state: state, expiresAt: s.now().Add(s.ttl)}
	return nil
}

type redisFlowStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisFlowStore shares flow state between API replicas. Keys expire after ttl.
func NewRedisFlowStore(client *redis.Client, ttl time.Duration) FlowStore {
	return &redisFlowStore{client: client, ttl: ttl}
}

func (s *redisFlowStore) key(sessionID string) string {
	return "flow:" + sessionKey(sessionID)
}

func (s *redisFlowStore) Get(ctx context.Context, sessionID string) (FlowState, error) {
	raw, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return FlowState{}, nil
	}
	if err != nil {
		return FlowState{}, fmt.Errorf("failed to read flow state: %w", err)
	}

	var state FlowState
	if err := json.Unmarshal(raw, &state); err != nil {
		return FlowState{}, fmt.Errorf("failed to decode flow state: %w", err)
	}
	return state, nil
}

func (s *redisFlowStore) Save(ctx context.Context, sessionID string, state FlowState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(sessionID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write flow state: %w", err)
	}
	return nil
}
