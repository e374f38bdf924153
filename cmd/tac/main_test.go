package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vinayprograms/tac/internal/config"
)

func TestParseMakeArgs_JoinsInstructions(t *testing.T) {
	opts, err := parseMakeArgs([]string{"add", "a", "retry", "helper"})
	require.NoError(t, err)
	assert.Equal(t, "add a retry helper", opts.instructions)
	assert.False(t, opts.noGit)
	assert.Empty(t, opts.jsonFile)
}

func TestParseMakeArgs_ParsesJSONFlag(t *testing.T) {
	opts, err := parseMakeArgs([]string{"--json", "block.json"})
	require.NoError(t, err)
	assert.Equal(t, "block.json", opts.jsonFile)
	assert.Empty(t, opts.instructions)
}

func TestParseMakeArgs_ParsesNoGitFlag(t *testing.T) {
	opts, err := parseMakeArgs([]string{"--no-git", "fix", "the", "bug"})
	require.NoError(t, err)
	assert.True(t, opts.noGit)
	assert.Equal(t, "fix the bug", opts.instructions)
}

func TestParseMakeArgs_JSONWithoutPathErrors(t *testing.T) {
	_, err := parseMakeArgs([]string{"--json"})
	assert.Error(t, err)
}

func TestParseMakeArgs_EmptyArgsErrors(t *testing.T) {
	_, err := parseMakeArgs([]string{})
	assert.Error(t, err)
}

func TestCheckNoGitCompatibility_RejectsPlausibilityWithNoGit(t *testing.T) {
	cfg := config.New()
	cfg.Git.NoGit = true
	cfg.TrustyAgents.Default = []string{"pytest", "plausibility"}

	err := checkNoGitCompatibility(cfg)
	assert.Error(t, err)
}

func TestCheckNoGitCompatibility_AllowsPlausibilityWithGit(t *testing.T) {
	cfg := config.New()
	cfg.Git.NoGit = false
	cfg.TrustyAgents.Default = []string{"pytest", "plausibility"}

	assert.NoError(t, checkNoGitCompatibility(cfg))
}

func TestCheckNoGitCompatibility_AllowsNoGitWithoutPlausibility(t *testing.T) {
	cfg := config.New()
	cfg.Git.NoGit = true
	cfg.TrustyAgents.Default = []string{"pytest"}

	assert.NoError(t, checkNoGitCompatibility(cfg))
}
