package telemetry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Valid(t *testing.T) {
	r := &SessionReport{MachineID: "m", SessionID: "s", TotalTokens: 10}
	assert.NoError(t, Validate(r))
}

func TestValidate_MissingMachineID(t *testing.T) {
	err := Validate(&SessionReport{SessionID: "s"})

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"machineId is required"}, verr.Problems)
	assert.Contains(t, err.Error(), "invalid session report")
}

func TestValidate_ListsEveryProblem(t *testing.T) {
	r := &SessionReport{
		MachineID:     "  ",
		Duration:      -1,
		ContextTokens: -5,
	}

	err := Validate(r)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{
		"machineId is required",
		"sessionId is required",
		"duration must not be negative",
		"contextTokens must not be negative",
	}, verr.Problems)
}

func TestValidate_Nil(t *testing.T) {
	var verr *ValidationError
	assert.True(t, errors.As(Validate(nil), &verr))
}
