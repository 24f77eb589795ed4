package common

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusOK, HTTPStatus(nil))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(NewAppError("X", "bad", ErrInvalidInput)))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(NewAppError("X", "type", ErrUnsupportedType)))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(NewAppError("X", "gone", ErrNotFound)))
	assert.Equal(t, http.StatusConflict, HTTPStatus(NewAppError("X", "dup", ErrDuplicateFilename)))
	assert.Equal(t, http.StatusConflict, HTTPStatus(NewAppError("X", "dup", ErrDuplicateContent)))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("boom")))
}

func TestAppErrorUnwraps(t *testing.T) {
	err := NewAppError("DUPLICATE_CONTENT", "seen before", ErrDuplicateContent)
	assert.True(t, errors.Is(err, ErrDuplicateContent))
	assert.Contains(t, err.Error(), "DUPLICATE_CONTENT")
	assert.Contains(t, err.Error(), "seen before")
}

func TestWrapErrorNil(t *testing.T) {
	assert.NoError(t, WrapError(nil, "ignored"))
	assert.ErrorContains(t, WrapError(errors.New("inner"), "outer"), "outer: inner")
}
