package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/carpool/pkg/core/direction"
)

func TestIs_MatchesByKind(t *testing.T) {
	err := Conflict(CodeDuplicateOffer, "driver already has an offer")

	assert.True(t, errors.Is(err, ErrConflict))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrCapacityExceeded))
}

func TestIs_ThroughWrapping(t *testing.T) {
	err := fmt.Errorf("assign participant: %w", CapacityExceeded(direction.ToActivity, "act-1"))

	assert.True(t, errors.Is(err, ErrCapacityExceeded))
	assert.Equal(t, KindCapacityExceeded, KindOf(err))
	assert.Equal(t, CodeNoAvailableSeats, CodeOf(err))

	e, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, direction.ToActivity, e.Direction)
	assert.Equal(t, "act-1", e.ActivityID)
	assert.Contains(t, e.Error(), "going")
}

func TestIs_CodeSpecificSentinel(t *testing.T) {
	err := Conflict(CodeAlreadyAssigned, "already assigned")

	assert.True(t, errors.Is(err, &Error{Kind: KindConflict, Code: CodeAlreadyAssigned}))
	assert.False(t, errors.Is(err, &Error{Kind: KindConflict, Code: CodeDuplicateOffer}))
}

func TestUnavailable_WrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Unavailable(cause)

	assert.True(t, errors.Is(err, ErrUnavailable))
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestKindOf_ForeignError(t *testing.T) {
	assert.Equal(t, KindUnavailable, KindOf(errors.New("boom")))
	assert.Equal(t, Code(""), CodeOf(errors.New("boom")))
}

func TestWithHelpers(t *testing.T) {
	err := Conflict(CodeAlreadyAssigned, "already assigned").
		WithDirection(direction.FromActivity).
		WithActivity("act-9")

	assert.Equal(t, direction.FromActivity, err.Direction)
	assert.Equal(t, "act-9", err.ActivityID)
}
