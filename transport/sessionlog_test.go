package transport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionLog_Finalize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "r1.log")
	l, err := OpenSessionLog(path)
	require.NoError(t, err)
	l.Redact("enable-secret")
	l.Redact("")

	_, err = l.Write([]byte("R1>enable\rPassword: enable-secret\r"))
	require.NoError(t, err)
	assert.False(t, l.Finalized())

	l.Finalize()
	assert.True(t, l.Finalized())

	// finalize flushes so the transcript is on disk before the disconnect write
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "R1>enable\rPassword: ********\r", string(data))

	_, err = l.Write([]byte("exit\r"))
	require.NoError(t, err)
	require.NoError(t, l.Close())

	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "R1>enable\rPassword: ********\rexit\r", string(data))
}
