package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	l, err := New("production", "warn")
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zap.InfoLevel))
	assert.True(t, l.Core().Enabled(zap.WarnLevel))

	l, err = New("dev", "")
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zap.InfoLevel))

	_, err = New("dev", "loud")
	assert.Error(t, err)
}

func TestLoggerf(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logf := Loggerf(zap.New(core))

	logf("level=info msg=checkout created temp_id=%s", "tmp-1")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "level=info msg=checkout created temp_id=tmp-1", logs.All()[0].Message)
}
