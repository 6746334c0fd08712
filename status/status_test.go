package status

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredicates(t *testing.T) {
	tests := []struct {
		name string
		err  error
		is   func(error) bool
	}{
		{"invalid args", fmt.Errorf("commit: %w", ErrInvalidArgs), IsInvalidArgs},
		{"exist", fmt.Errorf("publish: %w", ErrExist), IsExist},
		{"not found", fmt.Errorf("load: %w", ErrNotFound), IsNotFound},
		{"corruption", Corruptf("type %q != %q", "a", "b"), IsCorruption},
		{"config", NewParseError("version.1", errors.New("bad")), IsConfigError},
		{"invalid plan", fmt.Errorf("schedule: %w", ErrInvalidPlan), IsInvalidPlan},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.is(tt.err))
		})
	}

	assert.False(t, IsExist(ErrNotFound))
	assert.False(t, IsCorruption(nil))
}

func TestParseError(t *testing.T) {
	var syntaxErr *json.SyntaxError
	cause := json.Unmarshal([]byte("{"), &map[string]any{})
	require.Error(t, cause)

	err := NewParseError("version.3", cause)
	assert.True(t, IsConfigError(err))
	assert.ErrorAs(t, err, &syntaxErr)
	assert.Contains(t, err.Error(), "version.3")

	var pe *ParseError
	require.ErrorAs(t, fmt.Errorf("wrapped: %w", err), &pe)
	assert.Equal(t, "version.3", pe.Path)
}

func TestInvalidArgsf(t *testing.T) {
	err := InvalidArgsf("version id %d", -1)
	assert.True(t, IsInvalidArgs(err))
	assert.Equal(t, "invalid arguments: version id -1", err.Error())
}
