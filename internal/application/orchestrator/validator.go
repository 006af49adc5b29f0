package orchestrator

import (
	"fmt"

	"github.com/aescanero/dapo/pkg/domain"
)

// Validator validates pipeline submissions before admission.
type Validator struct{}

// NewValidator creates a new submission validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks a submission: the stage chain must be non-empty, every
// stage name must resolve in the catalog, the priority must be known and
// the source must be set so fairness accounting has a key.
func (v *Validator) Validate(req SubmitRequest, catalog *Catalog) error {
	if len(req.Stages) == 0 {
		return fmt.Errorf("pipeline must have at least one stage")
	}

	if req.Source == "" {
		return fmt.Errorf("source is required")
	}

	switch req.Priority {
	case domain.PriorityLow, domain.PriorityNormal, domain.PriorityHigh:
	default:
		return fmt.Errorf("unknown priority: %d", req.Priority)
	}

	for i, name := range req.Stages {
		if name == "" {
			return fmt.Errorf("stage %d: name is required", i)
		}
		if !catalog.Has(name) {
			return fmt.Errorf("stage %d: unknown stage %q", i, name)
		}
	}

	return nil
}
