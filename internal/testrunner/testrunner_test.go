package testrunner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenericRunner_Success(t *testing.T) {
	r := &GenericRunner{Command: []string{"true"}, Timeout: 2 * time.Second}
	res, err := r.Run(context.Background(), ".")
	require.NoError(t, err)
	assert.True(t, res.Passed)
}

func TestGenericRunner_Failure(t *testing.T) {
	r := &GenericRunner{Command: []string{"false"}, Timeout: 2 * time.Second}
	res, err := r.Run(context.Background(), ".")
	require.NoError(t, err)
	assert.False(t, res.Passed)
}

func TestNewPytestRunner_DefaultsArgs(t *testing.T) {
	r := NewPytestRunner(nil, 0)
	assert.Equal(t, []string{"test_main.py"}, r.Args)
	assert.Equal(t, 5*time.Minute, r.Timeout)
}
