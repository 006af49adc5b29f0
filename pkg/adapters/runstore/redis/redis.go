package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aescanero/dapo/pkg/domain"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RunStore implements RunStore using Redis with JSON serialization and a
// TTL per record.
type RunStore struct {
	client *redis.Client
	logger *zap.Logger
	ttl    time.Duration
}

// NewRunStore creates a new Redis run store
func NewRunStore(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RunStore {
	return &RunStore{
		client: client,
		logger: logger,
		ttl:    ttl,
	}
}

// SaveRecord persists a run record with the configured TTL.
func (s *RunStore) SaveRecord(ctx context.Context, rec *domain.RunRecord) error {
	if rec == nil {
		return fmt.Errorf("record is nil")
	}
	key := getRunKey(rec.PipelineID)

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}

	return nil
}

// GetRecord retrieves the record for a pipeline id.
func (s *RunStore) GetRecord(ctx context.Context, pipelineID string) (*domain.RunRecord, error) {
	key := getRunKey(pipelineID)

	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("run record not found: %s", pipelineID)
		}
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	var rec domain.RunRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}

	return &rec, nil
}

// ListRecords returns all recorded pipeline ids.
func (s *RunStore) ListRecords(ctx context.Context) ([]string, error) {
	var ids []string
	iter := s.client.Scan(ctx, 0, getRunKey("*"), 100).Iterator()
	prefix := getRunKey("")
	for iter.Next(ctx) {
		key := iter.Val()
		ids = append(ids, key[len(prefix):])
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan records: %w", err)
	}
	return ids, nil
}

// DeleteRecord removes the record for a pipeline id.
func (s *RunStore) DeleteRecord(ctx context.Context, pipelineID string) error {
	key := getRunKey(pipelineID)

	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}

	return nil
}

// getRunKey returns the Redis key for a pipeline id
func getRunKey(pipelineID string) string {
	return fmt.Sprintf("dapo:run:%s", pipelineID)
}
