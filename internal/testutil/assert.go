package testutil

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/opsbook/opsbook/internal/api"
	apperrors "github.com/opsbook/opsbook/internal/errors"
)

// AssertErrorType checks if the error is of a specific type using errors.Is.
func AssertErrorType(t *testing.T, err, target error) bool {
	t.Helper()
	if !stderrors.Is(err, target) {
		return assert.Fail(t, "Error type mismatch", "Expected error matching %v, got %v", target, err)
	}
	return true
}

// AssertAppErrorCode checks if the error has a specific error code.
func AssertAppErrorCode(t *testing.T, err error, expectedCode string) bool {
	t.Helper()
	code := apperrors.GetErrorCode(err)
	if code != expectedCode {
		return assert.Fail(t, "Error code mismatch", "Expected error code %q, got %q", expectedCode, code)
	}
	return true
}

// AssertAppErrorStatus checks if the error has a specific HTTP status code.
func AssertAppErrorStatus(t *testing.T, err error, expectedStatus int) bool {
	t.Helper()
	status := apperrors.GetStatusCode(err)
	if status != expectedStatus {
		return assert.Fail(t, "Status code mismatch", "Expected status %d, got %d", expectedStatus, status)
	}
	return true
}

// AssertBlockIDs checks the ids of a block list, in order.
func AssertBlockIDs(t *testing.T, blocks []api.Block, expected ...string) bool {
	t.Helper()
	ids := make([]string, len(blocks))
	for i := range blocks {
		ids[i] = blocks[i].ID
	}
	return assert.Equal(t, expected, ids)
}

// AssertContiguousOrder checks that orders are 1..n in list order.
func AssertContiguousOrder(t *testing.T, blocks []api.Block) bool {
	t.Helper()
	for i := range blocks {
		if blocks[i].Order != i+1 {
			return assert.Fail(t, "Order mismatch", "block %s at index %d has order %d", blocks[i].ID, i, blocks[i].Order)
		}
	}
	return true
}
