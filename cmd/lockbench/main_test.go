package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlagsDefaults(t *testing.T) {
	cfg, err := parseFlags(nil)
	require.NoError(t, err)
	assert.Equal(t, "mcs", cfg.primitive)
	assert.Equal(t, 4, cfg.goroutines)
	assert.Equal(t, 1_000_000, cfg.iterations)
	assert.False(t, cfg.cooperative)
}

func TestParseFlagsOverrides(t *testing.T) {
	cfg, err := parseFlags([]string{
		"--primitive=rwlock",
		"--goroutines=8",
		"--iterations=100",
		"--cooperative",
	})
	require.NoError(t, err)
	assert.Equal(t, "rwlock", cfg.primitive)
	assert.Equal(t, 8, cfg.goroutines)
	assert.Equal(t, 100, cfg.iterations)
	assert.True(t, cfg.cooperative)
}

func TestParseFlagsRejectsUnknownPrimitive(t *testing.T) {
	_, err := parseFlags([]string{"--primitive=bogus"})
	assert.ErrorContains(t, err, "unknown primitive")
}

func TestParseFlagsRejectsNonPositiveCounts(t *testing.T) {
	_, err := parseFlags([]string{"--goroutines=0"})
	assert.ErrorContains(t, err, "goroutines must be positive")

	_, err = parseFlags([]string{"--iterations=-1"})
	assert.ErrorContains(t, err, "iterations must be positive")
}

func TestDriveSmallRuns(t *testing.T) {
	for _, primitive := range []string{"mcs", "rwlock", "lfstack"} {
		cfg := config{primitive: primitive, goroutines: 2, iterations: 100}
		total, err := drive(cfg)
		require.NoError(t, err)
		assert.EqualValues(t, 200, total)
	}
}
