// Package testutil provides common test utilities and assertions for scaroot tests.
package testutil

import (
	"encoding/json"
	stdErrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vkhristenko/scaroot/domain/errors"
)

// RequireLoadError asserts that err is a *errors.LoadError for module whose
// cause matches cause (when cause is non-nil), and returns it.
func RequireLoadError(t *testing.T, err error, module string, cause error) *errors.LoadError {
	t.Helper()

	var loadErr *errors.LoadError
	require.True(t, stdErrors.As(err, &loadErr), "expected *errors.LoadError, got %T: %v", err, err)
	assert.Equal(t, module, loadErr.Module)
	if cause != nil {
		assert.ErrorIs(t, loadErr, cause)
	}
	return loadErr
}

// RequireConfigError asserts that err is a *errors.ConfigError and, when
// field is non-empty, that it names field.
func RequireConfigError(t *testing.T, err error, field string) *errors.ConfigError {
	t.Helper()

	var cfgErr *errors.ConfigError
	require.True(t, stdErrors.As(err, &cfgErr), "expected *errors.ConfigError, got %T: %v", err, err)
	if field != "" {
		assert.Equal(t, field, cfgErr.Field)
	}
	return cfgErr
}

// AssertJSONEqual compares two JSON strings for equality, ignoring formatting
func AssertJSONEqual(t *testing.T, expected, actual string, msgAndArgs ...interface{}) {
	t.Helper()

	var expectedJSON, actualJSON interface{}
	require.NoError(t, json.Unmarshal([]byte(expected), &expectedJSON), "expected JSON is invalid")
	require.NoError(t, json.Unmarshal([]byte(actual), &actualJSON), "actual JSON is invalid")

	assert.Equal(t, expectedJSON, actualJSON, msgAndArgs...)
}
