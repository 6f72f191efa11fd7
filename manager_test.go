package modeshell

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/morganhein/modeshell/interaction"
	"github.com/morganhein/modeshell/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoDevice answers every line with its echo and a privileged prompt.
type echoDevice struct {
	options      schema.ConnectOptions
	pending      string
	writes       []string
	connectErr   error
	writeErr     error
	disconnected bool
	// when set, Connect signals entered and waits for gate
	entered chan struct{}
	gate    chan struct{}
}

func (d *echoDevice) SupportedMethods() []schema.ConnectionMethod {
	return []schema.ConnectionMethod{schema.SSH}
}

func (d *echoDevice) Connect(method schema.ConnectionMethod, options schema.ConnectOptions) error {
	d.options = options
	if d.gate != nil {
		close(d.entered)
		<-d.gate
	}
	return d.connectErr
}

func (d *echoDevice) Disconnect() bool {
	d.disconnected = true
	return true
}

func (d *echoDevice) Options() schema.ConnectOptions { return d.options }

func (d *echoDevice) Write(command string, newline bool) (int, error) {
	if d.writeErr != nil {
		return 0, d.writeErr
	}
	d.writes = append(d.writes, command)
	d.pending += command + "\r\nR1#"
	return len(command), nil
}

func (d *echoDevice) Expect(expectation *regexp.Regexp, timeout time.Duration) (string, error) {
	loc := expectation.FindStringIndex(d.pending)
	if loc == nil {
		return d.pending, &schema.TimeoutError{Pattern: expectation.String(), Timeout: timeout, Output: d.pending}
	}
	out := d.pending[:loc[1]]
	d.pending = d.pending[loc[1]:]
	return out, nil
}

func (d *echoDevice) ReadFor(time.Duration) (string, error) {
	out := d.pending
	d.pending = ""
	return out, nil
}

func (d *echoDevice) Return() string                { return "\r" }
func (d *echoDevice) Timeout() time.Duration        { return time.Second }
func (d *echoDevice) Transcript() schema.Transcript { return nil }

func managerWith(d *echoDevice) *Manager {
	m := NewManager()
	m.newDevice = func() schema.Device { return d }
	return m
}

func TestManager_Connect(t *testing.T) {
	d := &echoDevice{}
	m := managerWith(d)

	s, err := m.Connect(interaction.CiscoXR, "core1", schema.SSH, schema.ConnectOptions{Host: "192.0.2.1"})
	require.NoError(t, err)
	assert.Equal(t, "R1", s.BasePrompt())
	assert.Contains(t, d.writes, "terminal length 0")
	assert.NotEmpty(t, d.options.Ciphers, "dialect defaults are applied")

	got, err := m.GetDevice("core1")
	require.NoError(t, err)
	assert.Same(t, s, got)

	_, err = m.Connect(interaction.CiscoXR, "core1", schema.SSH, schema.ConnectOptions{})
	assert.Error(t, err)
}

func TestManager_UnsupportedMethod(t *testing.T) {
	m := managerWith(&echoDevice{})
	_, err := m.Connect(interaction.Cisco, "core1", schema.Telnet, schema.ConnectOptions{})
	assert.ErrorIs(t, err, schema.ErrUnsupportedMethod)

	_, err = m.GetDevice("core1")
	assert.Error(t, err)
}

func TestManager_ConnectFailure(t *testing.T) {
	d := &echoDevice{connectErr: errors.New("connection refused")}
	m := managerWith(d)

	_, err := m.Connect(interaction.Cisco, "core1", schema.SSH, schema.ConnectOptions{})
	assert.Error(t, err)
	assert.True(t, d.disconnected)
	_, err = m.GetDevice("core1")
	assert.Error(t, err)
}

func TestManager_Shutdown(t *testing.T) {
	d := &echoDevice{}
	m := managerWith(d)
	_, err := m.Connect(interaction.Cisco, "core1", schema.SSH, schema.ConnectOptions{})
	require.NoError(t, err)

	require.NoError(t, m.Shutdown())
	assert.Equal(t, "exit", d.writes[len(d.writes)-1])
	assert.True(t, d.disconnected)
	_, err = m.GetDevice("core1")
	assert.Error(t, err)
	assert.Error(t, m.Disconnect("core1"))
}

func TestManager_ShutdownReportsFailedExit(t *testing.T) {
	d := &echoDevice{}
	m := managerWith(d)
	_, err := m.Connect(interaction.Cisco, "core1", schema.SSH, schema.ConnectOptions{})
	require.NoError(t, err)

	d.writeErr = errors.New("broken pipe")
	err = m.Shutdown()
	assert.ErrorContains(t, err, "broken pipe")
	assert.True(t, d.disconnected)
}

func TestManager_ConcurrentConnectSameID(t *testing.T) {
	slow := &echoDevice{entered: make(chan struct{}), gate: make(chan struct{})}
	fast := &echoDevice{}
	queue := make(chan *echoDevice, 2)
	queue <- slow
	queue <- fast
	m := NewManager()
	m.newDevice = func() schema.Device { return <-queue }

	result := make(chan error, 1)
	go func() {
		_, err := m.Connect(interaction.Cisco, "core1", schema.SSH, schema.ConnectOptions{})
		result <- err
	}()
	<-slow.entered

	s, err := m.Connect(interaction.Cisco, "core1", schema.SSH, schema.ConnectOptions{})
	require.NoError(t, err)
	close(slow.gate)

	assert.Error(t, <-result)
	assert.True(t, slow.disconnected)
	assert.False(t, fast.disconnected)
	got, err := m.GetDevice("core1")
	require.NoError(t, err)
	assert.Same(t, s, got)
}
