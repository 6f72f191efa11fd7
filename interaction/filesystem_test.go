package interaction

import (
	"errors"
	"testing"

	"github.com/morganhein/modeshell/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutodetectFilesystem(t *testing.T) {
	f := newFakeDevice()
	f.mode = privileged
	s := ciscoSession(f)

	fs, err := s.AutodetectFilesystem("", "")
	require.NoError(t, err)
	assert.Equal(t, "flash:", fs)
	assert.Equal(t, []string{"dir", "dir flash:"}, f.commands)
}

func TestAutodetectFilesystem_Rejected(t *testing.T) {
	f := newFakeDevice()
	f.mode = privileged
	f.filesystems = map[string]bool{}
	s := ciscoSession(f)

	_, err := s.AutodetectFilesystem("", "")
	var discovery *schema.DiscoveryError
	require.True(t, errors.As(err, &discovery))
	assert.Equal(t, "dir flash:", discovery.Command)
	assert.Contains(t, discovery.Output, "% Invalid")
}

func TestAutodetectFilesystem_NoHeader(t *testing.T) {
	f := newFakeDevice()
	f.mode = privileged
	f.dirOutput = "No files in directory\r\n"
	s := ciscoSession(f)

	_, err := s.AutodetectFilesystem("", "")
	var discovery *schema.DiscoveryError
	require.True(t, errors.As(err, &discovery))
	assert.Equal(t, "dir", discovery.Command)
	assert.Equal(t, []string{"dir"}, f.commands)
}

func TestAutodetectFilesystem_RequiresPrivilege(t *testing.T) {
	f := newFakeDevice()
	s := ciscoSession(f)

	_, err := s.AutodetectFilesystem("", "")
	var precheck *schema.PrecheckError
	require.True(t, errors.As(err, &precheck))
	assert.Equal(t, "privileged", precheck.Required)
	assert.Empty(t, f.commands)
}

func TestAutodetectFilesystem_BadPattern(t *testing.T) {
	f := newFakeDevice()
	f.mode = privileged
	s := ciscoSession(f)

	_, err := s.AutodetectFilesystem("", "(")
	assert.Error(t, err)
	assert.Empty(t, f.writes)
}
