package interaction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countWrites(f *fakeDevice, cmd string) int {
	n := 0
	for _, w := range f.writes {
		if w == cmd {
			n++
		}
	}
	return n
}

func TestCleanup(t *testing.T) {
	f := newFakeDevice()
	f.mode = configuration
	f.transcript = &fakeTranscript{}
	s := ciscoSession(f)

	result, err := s.Cleanup("")
	require.NoError(t, err)
	assert.True(t, result.OK())
	assert.Equal(t, []string{"end", "exit"}, f.commands)
	assert.True(t, f.transcript.Finalized())
}

func TestCleanup_NotInConfigMode(t *testing.T) {
	f := newFakeDevice()
	f.mode = privileged
	s := ciscoSession(f)

	result, err := s.Cleanup("logout")
	require.NoError(t, err)
	assert.True(t, result.OK())
	assert.Equal(t, []string{"logout"}, f.commands)
}

func TestCleanup_ExitWrittenAfterFailure(t *testing.T) {
	f := newFakeDevice()
	f.mode = configuration
	f.failProbes = true
	f.transcript = &fakeTranscript{}
	s := ciscoSession(f)

	result, err := s.Cleanup("")
	require.NoError(t, err)
	assert.False(t, result.OK())
	assert.Error(t, result.Err)
	assert.Equal(t, "exit", f.writes[len(f.writes)-1])
	assert.Equal(t, 1, countWrites(f, "exit"))
	assert.True(t, f.transcript.Finalized())
}
