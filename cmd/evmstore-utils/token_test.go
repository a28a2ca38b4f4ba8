package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDurationWithDays(t *testing.T) {
	duration, err := parseDurationWithDays("7d")
	require.NoError(t, err)
	assert.Equal(t, 7*24*time.Hour, duration)

	duration, err = parseDurationWithDays("90m")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Minute, duration)

	_, err = parseDurationWithDays("xd")
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	level, err := parseLevel("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), level)

	_, err = parseLevel("-")
	assert.Error(t, err)
}
