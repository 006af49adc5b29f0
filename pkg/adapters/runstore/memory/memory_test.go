package memory

import (
	"context"
	"testing"

	"github.com/aescanero/dapo/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndGetRecord(t *testing.T) {
	s := NewInMemoryRunStore()
	ctx := context.Background()

	rec := &domain.RunRecord{
		PipelineID: "p1",
		Source:     "api",
		Stages:     []string{"fetch", "parse"},
		Status:     domain.ExecutionStatusPending,
	}
	require.NoError(t, s.SaveRecord(ctx, rec))

	got, err := s.GetRecord(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "api", got.Source)
	assert.Equal(t, domain.ExecutionStatusPending, got.Status)

	// A later save replaces the record.
	rec.Status = domain.ExecutionStatusSucceeded
	require.NoError(t, s.SaveRecord(ctx, rec))
	got, err = s.GetRecord(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, domain.ExecutionStatusSucceeded, got.Status)
}

func TestGetRecordCopiesState(t *testing.T) {
	s := NewInMemoryRunStore()
	ctx := context.Background()

	require.NoError(t, s.SaveRecord(ctx, &domain.RunRecord{
		PipelineID: "p1",
		Status:     domain.ExecutionStatusRunning,
	}))

	got, err := s.GetRecord(ctx, "p1")
	require.NoError(t, err)
	got.Status = domain.ExecutionStatusFailed

	again, err := s.GetRecord(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, domain.ExecutionStatusRunning, again.Status)
}

func TestGetRecordNotFound(t *testing.T) {
	s := NewInMemoryRunStore()
	_, err := s.GetRecord(context.Background(), "ghost")
	assert.Error(t, err)
}

func TestSaveRecordRejectsNil(t *testing.T) {
	s := NewInMemoryRunStore()
	assert.Error(t, s.SaveRecord(context.Background(), nil))
}

func TestListAndDelete(t *testing.T) {
	s := NewInMemoryRunStore()
	ctx := context.Background()

	require.NoError(t, s.SaveRecord(ctx, &domain.RunRecord{PipelineID: "p1"}))
	require.NoError(t, s.SaveRecord(ctx, &domain.RunRecord{PipelineID: "p2"}))

	ids, err := s.ListRecords(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"p1", "p2"}, ids)

	require.NoError(t, s.DeleteRecord(ctx, "p1"))
	require.NoError(t, s.DeleteRecord(ctx, "p1"))

	ids, err = s.ListRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"p2"}, ids)
}
