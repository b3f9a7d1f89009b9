package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersistenceError(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewPersistenceError("insert", "Dewar", cause)

	assert.Equal(t, "persistence: insert Dewar: connection reset", err.Error())
	assert.ErrorIs(t, err, cause)

	wrapped := fmt.Errorf("create shipment: %w", err)
	var pe *PersistenceError
	require.ErrorAs(t, wrapped, &pe)
	assert.Equal(t, "Dewar", pe.Entity)
	assert.Equal(t, CodePersistence, ErrorCode(wrapped))
}

func TestInconsistentStateError(t *testing.T) {
	err := &InconsistentStateError{Entity: "Shipment", ID: 17}
	assert.Equal(t, "inconsistent state: Shipment 17 missing after insert", err.Error())
	assert.Equal(t, CodeInconsistentState, ErrorCode(err))
}

func TestLagError(t *testing.T) {
	err := &LagError{Skipped: 5}
	assert.Contains(t, err.Error(), "5 events skipped")
	assert.Equal(t, CodeSubscriberLagged, ErrorCode(err))
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, CodeNotFound, ErrorCode(ErrNotFound))
	assert.Equal(t, CodeInvalidInput, ErrorCode(fmt.Errorf("wrap: %w", ErrInvalidInput)))
	assert.Empty(t, ErrorCode(errors.New("plain")))
	assert.Empty(t, ErrorCode(nil))
}
