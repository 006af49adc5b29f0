package orchestrator

import (
	"context"
	"testing"

	"github.com/aescanero/dapo/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopStage(ctx context.Context, input interface{}) (interface{}, error) {
	return input, nil
}

func TestCatalogRegisterAndResolve(t *testing.T) {
	c := NewCatalog()
	require.NoError(t, c.Register("fetch", noopStage))
	require.NoError(t, c.Register("parse", noopStage))

	assert.True(t, c.Has("fetch"))
	assert.False(t, c.Has("store"))

	stages, err := c.Resolve([]string{"fetch", "parse"})
	require.NoError(t, err)
	require.Len(t, stages, 2)
	assert.Equal(t, "fetch", stages[0].Name)
	assert.Equal(t, "parse", stages[1].Name)

	_, err = c.Resolve([]string{"fetch", "store"})
	assert.Error(t, err)
}

func TestCatalogRejectsDuplicatesAndNil(t *testing.T) {
	c := NewCatalog()
	require.NoError(t, c.Register("fetch", noopStage))
	assert.Error(t, c.Register("fetch", noopStage))
	assert.Error(t, c.Register("", noopStage))
	assert.Error(t, c.Register("nil", nil))
}

func TestCatalogNamesSorted(t *testing.T) {
	c := NewCatalog()
	require.NoError(t, c.Register("parse", noopStage))
	require.NoError(t, c.Register("fetch", noopStage))
	require.NoError(t, c.Register("store", noopStage))

	assert.Equal(t, []string{"fetch", "parse", "store"}, c.Names())
}

func TestValidatorChecksSubmission(t *testing.T) {
	c := NewCatalog()
	require.NoError(t, c.Register("fetch", noopStage))
	v := NewValidator()

	valid := SubmitRequest{Stages: []string{"fetch"}, Source: "api", Priority: domain.PriorityNormal}
	assert.NoError(t, v.Validate(valid, c))

	tests := []struct {
		name string
		req  SubmitRequest
	}{
		{"empty stages", SubmitRequest{Source: "api", Priority: domain.PriorityNormal}},
		{"missing source", SubmitRequest{Stages: []string{"fetch"}, Priority: domain.PriorityNormal}},
		{"unknown priority", SubmitRequest{Stages: []string{"fetch"}, Source: "api", Priority: domain.Priority(42)}},
		{"unknown stage", SubmitRequest{Stages: []string{"ghost"}, Source: "api", Priority: domain.PriorityNormal}},
		{"blank stage name", SubmitRequest{Stages: []string{""}, Source: "api", Priority: domain.PriorityNormal}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, v.Validate(tt.req, c))
		})
	}
}
