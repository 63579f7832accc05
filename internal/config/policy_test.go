package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMatchPolicyWithoutPathReturnsDefaults(t *testing.T) {
	policy, err := LoadMatchPolicy("")
	require.NoError(t, err)
	assert.Equal(t, DefaultMatchPolicy(), policy)
}

func TestLoadMatchPolicyOverridesSelectedFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	content := "confidence_threshold: 95\ndate_window_days: 14\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	policy, err := LoadMatchPolicy(path)
	require.NoError(t, err)
	assert.Equal(t, 95, policy.ConfidenceThreshold)
	assert.Equal(t, 14, policy.DateWindowDays)
	// Untouched fields keep their defaults.
	assert.Equal(t, 5, policy.AmbiguityMargin)
	assert.Equal(t, 10, policy.TopN)
}

func TestLoadMatchPolicyMissingFileErrors(t *testing.T) {
	_, err := LoadMatchPolicy(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
