package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/dukerupert/sif/internal/domain"
	"github.com/stretchr/testify/assert"
)

func Test_Error_Message(t *testing.T) {
	tests := []struct {
		name     string
		err      *domain.Error
		expected string
	}{
		{
			name:     "message only",
			err:      &domain.Error{Message: "session not found"},
			expected: "session not found",
		},
		{
			name:     "op and message",
			err:      &domain.Error{Op: "reconcile.view", Message: "session not found"},
			expected: "reconcile.view: session not found",
		},
		{
			name:     "wrapped error",
			err:      &domain.Error{Op: "catalog.lookup", Message: "lookup failed", Err: errors.New("timeout")},
			expected: "catalog.lookup: lookup failed: timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func Test_ErrorCode(t *testing.T) {
	assert.Equal(t, "", domain.ErrorCode(nil))
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(domain.Errorf(domain.EINVALID, "op", "bad input")))
	assert.Equal(t, domain.EINTERNAL, domain.ErrorCode(errors.New("plain")), "non-domain errors read as internal")

	wrapped := fmt.Errorf("handler: %w", domain.Errorf(domain.ENOTFOUND, "op", "missing"))
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(wrapped), "code survives wrapping")
}

func Test_ErrorMessage_HidesInternalDetails(t *testing.T) {
	internal := domain.WrapError(errors.New("pq: connection refused"), domain.EINTERNAL, "op", "boom")
	assert.NotContains(t, domain.ErrorMessage(internal), "connection refused")

	visible := domain.Errorf(domain.ECONFLICT, "op", "A commit is already running")
	assert.Equal(t, "A commit is already running", domain.ErrorMessage(visible))
}

func Test_WrapError_NilPassthrough(t *testing.T) {
	assert.NoError(t, domain.WrapError(nil, domain.EINVALID, "op", "ignored"))
}

func Test_IsCode(t *testing.T) {
	err := domain.Errorf(domain.EUNAVAILABLE, "catalog.lookup", "gateway down")
	assert.True(t, domain.IsCode(err, domain.EUNAVAILABLE))
	assert.False(t, domain.IsCode(err, domain.EINVALID))
}
