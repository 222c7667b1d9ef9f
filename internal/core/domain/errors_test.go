package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrUnsupportedType", ErrUnsupportedType},
		{"ErrParse", ErrParse},
		{"ErrNormalization", ErrNormalization},
		{"ErrDuplicateID", ErrDuplicateID},
		{"ErrStorage", ErrStorage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

// TestErrors_Distinct tests that the ingestion taxonomy does not overlap
func TestErrors_Distinct(t *testing.T) {
	all := []error{ErrParse, ErrNormalization, ErrDuplicateID, ErrNotFound, ErrStorage}
	for i, a := range all {
		for j, b := range all {
			if i == j {
				continue
			}
			assert.False(t, errors.Is(a, b), "%v should not match %v", a, b)
		}
	}
}

func TestOutcomeFor(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Outcome
	}{
		{"nil is success", nil, OutcomeSuccess},
		{"parse", fmt.Errorf("parse: %w", ErrParse), OutcomeParseError},
		{"invalid input", ErrInvalidInput, OutcomeParseError},
		{"normalization", fmt.Errorf("normalise: %w", ErrNormalization), OutcomeNormalizationError},
		{"duplicate", fmt.Errorf("save: %w", ErrDuplicateID), OutcomeStorageError},
		{"storage", fmt.Errorf("save: %w", ErrStorage), OutcomeStorageError},
		{"unknown", errors.New("boom"), OutcomeStorageError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, OutcomeFor(tt.err))
		})
	}
}

func TestOutcome_IsValid(t *testing.T) {
	assert.True(t, OutcomeSuccess.IsValid())
	assert.True(t, OutcomeParseError.IsValid())
	assert.True(t, OutcomeNormalizationError.IsValid())
	assert.True(t, OutcomeStorageError.IsValid())
	assert.False(t, Outcome("retry").IsValid())
	assert.Equal(t, "parse-error", OutcomeParseError.String())
}

func TestIngestState_IsTerminal(t *testing.T) {
	assert.False(t, StateReceived.IsTerminal())
	assert.False(t, StateParsing.IsTerminal())
	assert.False(t, StateNormalizing.IsTerminal())
	assert.False(t, StateStoring.IsTerminal())
	assert.True(t, StateSucceeded.IsTerminal())
	assert.True(t, StateFailed.IsTerminal())
}
