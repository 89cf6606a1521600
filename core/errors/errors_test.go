package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrCode_HTTPStatusCode(t *testing.T) {
	tests := []struct {
		name     string
		code     ErrCode
		expected int
	}{
		{name: "validation", code: ErrInvalidParameter, expected: 400},
		{name: "conflict", code: ErrAlreadyExists, expected: 400},
		{name: "generic not found", code: ErrNotFound, expected: 404},
		{name: "conversation not found", code: ErrConversationNotFound, expected: 404},
		{name: "internal", code: ErrInternalError, expected: 500},
		{name: "database query", code: ErrDatabaseQuery, expected: 500},
		{name: "database insert", code: ErrDatabaseInsert, expected: 500},
		{name: "export", code: ErrExportFailed, expected: 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.code.HTTPStatusCode())
		})
	}
}

func TestErrCode_IsClientError(t *testing.T) {
	assert.True(t, ErrInvalidParameter.IsClientError())
	assert.True(t, ErrAlreadyExists.IsClientError())
	assert.True(t, ErrConversationNotFound.IsClientError())
	assert.False(t, ErrDatabaseInsert.IsClientError())
	assert.False(t, ErrInternalError.IsClientError())
}

func TestWrap(t *testing.T) {
	cause := stderrors.New("connection refused")

	err := Wrap(ErrDatabaseQuery, cause, "failed to load conversation")
	assert.True(t, HasCode(err, ErrDatabaseQuery))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to load conversation", GetAppError(err).Message)

	// already classified errors pass through
	notFound := New(ErrConversationNotFound, "conversation c1 not found")
	assert.Same(t, notFound, Wrap(ErrInternalError, notFound, "boom"))

	wrapped := fmt.Errorf("outer: %w", notFound)
	assert.Equal(t, wrapped, Wrap(ErrInternalError, wrapped, "boom"))
	assert.True(t, HasCode(wrapped, ErrConversationNotFound))

	assert.Nil(t, Wrap(ErrInternalError, nil, "nothing"))
}

func TestAppError_Error(t *testing.T) {
	assert.Equal(t, "[1001] bad role", New(ErrInvalidParameter, "bad role").Error())
	err := &AppError{Code: ErrDatabaseInsert, Message: "insert", Err: stderrors.New("disk full")}
	assert.Equal(t, "[6002] insert: disk full", err.Error())
}
