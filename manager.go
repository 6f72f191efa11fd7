package modeshell

import (
	"errors"
	"fmt"
	"sync"

	"github.com/morganhein/modeshell/interaction"
	"github.com/morganhein/modeshell/logger"
	"github.com/morganhein/modeshell/schema"
	"github.com/morganhein/modeshell/transport"
)

// Manager keeps one independent session per device id.
type Manager struct {
	mu        sync.Mutex
	sessions  map[string]*interaction.Session
	devices   map[string]schema.Device
	newDevice func() schema.Device
	log       schema.Logger
}

func NewManager() *Manager {
	return &Manager{
		sessions:  make(map[string]*interaction.Session),
		devices:   make(map[string]schema.Device),
		newDevice: transport.New,
		log:       logger.Log,
	}
}

// Connect tries to connect to the given device using the proposed method and prepares a
// session on it. It does not handle trying to connect using other methods if the primary
// one fails, that should be handled upstream if there is an error.
func (m *Manager) Connect(deviceType interaction.DeviceType, id string, method schema.ConnectionMethod,
	options schema.ConnectOptions) (*interaction.Session, error) {
	m.mu.Lock()
	_, exists := m.sessions[id]
	m.mu.Unlock()
	if exists {
		return nil, fmt.Errorf("device %s is already connected", id)
	}

	device := m.newDevice()
	if !supports(device, method) {
		return nil, schema.ErrUnsupportedMethod
	}
	dialect := interaction.DialectFor(deviceType)
	options = interaction.ApplyDefaults(dialect, options)

	m.log.Infof("Connecting to %s (%s).", id, dialect.Name())
	if err := device.Connect(method, options); err != nil {
		device.Disconnect()
		return nil, err
	}
	session := interaction.NewSession(device, dialect, options.EnablePassword)
	if err := session.Prepare(); err != nil {
		m.log.Warningf("Unable to prepare the session on %s: %s", id, err)
		device.Disconnect()
		return nil, err
	}

	m.mu.Lock()
	if _, exists := m.sessions[id]; exists {
		m.mu.Unlock()
		m.log.Warningf("Device %s was connected concurrently, dropping this connection.", id)
		device.Disconnect()
		return nil, fmt.Errorf("device %s is already connected", id)
	}
	m.sessions[id] = session
	m.devices[id] = device
	m.mu.Unlock()
	return session, nil
}

func supports(device schema.Device, method schema.ConnectionMethod) bool {
	for _, supported := range device.SupportedMethods() {
		if supported == method {
			return true
		}
	}
	return false
}

func (m *Manager) GetDevice(id string) (*interaction.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("device %s is not connected", id)
	}
	return s, nil
}

// Disconnect tears down the session of id and closes its transport.
func (m *Manager) Disconnect(id string) error {
	m.mu.Lock()
	session, ok := m.sessions[id]
	device := m.devices[id]
	delete(m.sessions, id)
	delete(m.devices, id)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("device %s is not connected", id)
	}

	result, err := session.Cleanup("")
	if !result.OK() {
		m.log.Debugf("Teardown of %s skipped %s.", id, result.Step)
	}
	device.Disconnect()
	return err
}

// Shutdown disconnects every device, the returned error joins the failed exits.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	var errs []error
	for _, id := range ids {
		if err := m.Disconnect(id); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}
