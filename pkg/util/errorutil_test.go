package util

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainError(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.Nil(t, ToDomainError(nil))
	})

	t.Run("wrapped domain error is found", func(t *testing.T) {
		err := fmt.Errorf("forward: %w", NewUnauthorized("missing credential"))
		de := ToDomainError(err)
		require.NotNil(t, de)
		assert.Equal(t, CodeUnauthorized, de.Code)
		assert.Equal(t, http.StatusUnauthorized, de.HTTPStatus)
	})

	t.Run("no rows maps to not found", func(t *testing.T) {
		de := ToDomainError(sql.ErrNoRows)
		assert.Equal(t, CodeNotFound, de.Code)
		assert.Equal(t, http.StatusNotFound, de.HTTPStatus)
	})

	t.Run("anything else is internal", func(t *testing.T) {
		cause := errors.New("boom")
		de := ToDomainError(cause)
		assert.Equal(t, CodeInternal, de.Code)
		assert.ErrorIs(t, de, cause)
	})
}

func TestNewUpstreamUnavailable(t *testing.T) {
	de := ToDomainError(NewUpstreamUnavailable(0, errors.New("dial tcp: connection refused")))
	assert.Equal(t, http.StatusInternalServerError, de.HTTPStatus)
	assert.Equal(t, CodeUpstreamUnavailable, de.Code)

	de = ToDomainError(NewUpstreamUnavailable(http.StatusBadGateway, errors.New("invalid character '<'")))
	assert.Equal(t, http.StatusBadGateway, de.HTTPStatus)
}

func TestCredentialRejectedKeepsUnauthorizedStatus(t *testing.T) {
	de := ToDomainError(NewCredentialRejected(CodeCredentialExpired, "credential expired"))
	assert.Equal(t, http.StatusUnauthorized, de.HTTPStatus)
	assert.Equal(t, CodeCredentialExpired, de.Code)
	assert.Equal(t, "credential expired", de.Error())
}

func TestCodeForStatus(t *testing.T) {
	assert.Equal(t, CodeUnauthorized, CodeForStatus(http.StatusUnauthorized))
	assert.Equal(t, CodeConflict, CodeForStatus(http.StatusConflict))
	assert.Equal(t, CodeValidation, CodeForStatus(http.StatusBadRequest))
	assert.Equal(t, CodeUpstreamUnavailable, CodeForStatus(http.StatusBadGateway))
	assert.Equal(t, CodeInternal, CodeForStatus(http.StatusTeapot))
}
