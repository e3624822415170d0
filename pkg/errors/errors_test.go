package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_CapturesCodeAndStack(t *testing.T) {
	err := New(ErrCodeInsufficientHistory, "need at least 2 snapshots")
	require.NotNil(t, err)
	assert.Equal(t, ErrCodeInsufficientHistory, err.Code)
	assert.NotEmpty(t, err.Stack)
	assert.Contains(t, err.Error(), "FORECAST_001")
	assert.Contains(t, err.Error(), "need at least 2 snapshots")
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrCodeDatabaseError, "query failed"))
}

func TestWrap_PreservesDomainCodeOnInternal(t *testing.T) {
	inner := New(ErrCodeProjectNotFound, "project missing")
	outer := Wrap(inner, ErrCodeInternal, "scoring failed")
	assert.Equal(t, ErrCodeProjectNotFound, outer.Code)
	assert.True(t, stderrors.Is(outer, outer))
	assert.ErrorIs(t, outer, inner)
}

func TestWrap_ExplicitCodeWins(t *testing.T) {
	inner := New(ErrCodeProjectNotFound, "project missing")
	outer := Wrap(inner, ErrCodeDatabaseError, "load failed")
	assert.Equal(t, ErrCodeDatabaseError, outer.Code)
}

func TestWithDetail_DoesNotMutateReceiver(t *testing.T) {
	base := NotFound("project not found")
	detailed := base.WithDetail("id=42")
	assert.Empty(t, base.Detail)
	assert.Equal(t, "id=42", detailed.Detail)
	assert.Contains(t, detailed.Error(), "id=42")
}

func TestWithDetail_NilReceiver(t *testing.T) {
	var e *AppError
	assert.Nil(t, e.WithDetail("x"))
}

func TestIsCode_TraversesChain(t *testing.T) {
	inner := New(ErrCodeEmptyCashFlow, "empty series")
	wrapped := fmt.Errorf("analysis: %w", inner)
	assert.True(t, IsCode(wrapped, ErrCodeEmptyCashFlow))
	assert.False(t, IsCode(wrapped, ErrCodeDatabaseError))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(New(ErrCodeProjectNotFound, "x")))
	assert.True(t, IsNotFound(New(ErrCodeNoActiveCriteria, "x")))
	assert.False(t, IsNotFound(New(ErrCodeDatabaseError, "x")))
	assert.False(t, IsNotFound(stderrors.New("plain")))
}

func TestIsValidation(t *testing.T) {
	assert.True(t, IsValidation(InvalidParam("bad input")))
	assert.True(t, IsValidation(New(ErrCodeInvalidWeight, "negative weight")))
	assert.False(t, IsValidation(Internal("boom")))
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, ErrorCode("OK"), GetCode(nil))
	assert.Equal(t, ErrCodeConflict, GetCode(Conflict("epoch clash")))
	assert.Equal(t, ErrCodeInternal, GetCode(stderrors.New("plain")))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, 404, ErrCodeProjectNotFound.HTTPStatus())
	assert.Equal(t, 400, ErrCodeEmptyCashFlow.HTTPStatus())
	assert.Equal(t, 422, ErrCodeInsufficientHistory.HTTPStatus())
	assert.Equal(t, 500, ErrorCode("BOGUS").HTTPStatus())
}
