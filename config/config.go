package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/morganhein/modeshell/interaction"
	"github.com/morganhein/modeshell/schema"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override, e.g. MODESHELL_LOG_LEVEL.
const EnvPrefix = "MODESHELL"

// Settings apply to every device in the inventory. Each can be overridden from the
// environment.
type Settings struct {
	LogLevel      string        `yaml:"log_level" envconfig:"LOG_LEVEL"`
	ReadTimeout   time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	SaveTimeout   time.Duration `yaml:"save_timeout" envconfig:"SAVE_TIMEOUT"`
	SettleDelay   time.Duration `yaml:"settle_delay" envconfig:"SETTLE_DELAY"`
	TranscriptDir string        `yaml:"transcript_dir" envconfig:"TRANSCRIPT_DIR"`
}

type Device struct {
	ID             string `yaml:"id"`
	Type           string `yaml:"type"`
	Method         string `yaml:"method"`
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	Username       string `yaml:"username"`
	Password       string `yaml:"password"`
	EnablePassword string `yaml:"enable_password"`
	Cert           string `yaml:"cert"`
	KnownHosts     string `yaml:"known_hosts"`
}

type Inventory struct {
	Settings Settings `yaml:"settings"`
	Devices  []Device `yaml:"devices"`
}

// Default returns an empty inventory with the default settings.
func Default() *Inventory {
	return &Inventory{
		Settings: Settings{
			LogLevel:    "INFO",
			ReadTimeout: time.Duration(10) * time.Second,
			SaveTimeout: interaction.DefaultSaveTimeout,
			SettleDelay: interaction.DefaultSettleDelay,
		},
	}
}

// Load reads the inventory at path, see Parse.
func Load(path string) (*Inventory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read inventory: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML inventory on top of the defaults, applies the environment
// overrides and validates the result. Unknown keys are rejected.
func Parse(data []byte) (*Inventory, error) {
	inv := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(inv); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse inventory: %w", err)
	}
	if err := envconfig.Process(EnvPrefix, &inv.Settings); err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}
	if err := inv.Validate(); err != nil {
		return nil, err
	}
	return inv, nil
}

func (i *Inventory) Validate() error {
	s := i.Settings
	for name, d := range map[string]time.Duration{
		"read_timeout": s.ReadTimeout,
		"save_timeout": s.SaveTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("settings: %s must be positive, got %s", name, d)
		}
	}
	if s.SettleDelay < 0 {
		return fmt.Errorf("settings: settle_delay must not be negative, got %s", s.SettleDelay)
	}
	seen := make(map[string]bool, len(i.Devices))
	for n, d := range i.Devices {
		if d.ID == "" {
			return fmt.Errorf("device %d: missing id", n)
		}
		if seen[d.ID] {
			return fmt.Errorf("device %s: duplicate id", d.ID)
		}
		seen[d.ID] = true
		if d.Host == "" {
			return fmt.Errorf("device %s: missing host", d.ID)
		}
		if d.Port < 0 || d.Port > 65535 {
			return fmt.Errorf("device %s: port %d out of range", d.ID, d.Port)
		}
		if _, err := d.DeviceType(); err != nil {
			return fmt.Errorf("device %s: %w", d.ID, err)
		}
		if _, err := d.ConnectionMethod(); err != nil {
			return fmt.Errorf("device %s: %w", d.ID, err)
		}
	}
	return nil
}

// Device looks up a device by id.
func (i *Inventory) Device(id string) (Device, error) {
	for _, d := range i.Devices {
		if d.ID == id {
			return d, nil
		}
	}
	return Device{}, fmt.Errorf("device %q not in inventory", id)
}

func (d Device) DeviceType() (interaction.DeviceType, error) {
	return interaction.ParseDeviceType(d.Type)
}

// ConnectionMethod parses the method, SSH when unset.
func (d Device) ConnectionMethod() (schema.ConnectionMethod, error) {
	switch strings.ToLower(d.Method) {
	case "", "ssh":
		return schema.SSH, nil
	case "telnet":
		return schema.Telnet, nil
	}
	return 0, fmt.Errorf("unknown connection method %q", d.Method)
}

// ConnectOptions builds the transport options for d. With a transcript directory set,
// the session is logged to <dir>/<id>.log.
func (d Device) ConnectOptions(s Settings) (schema.ConnectOptions, error) {
	method, err := d.ConnectionMethod()
	if err != nil {
		return schema.ConnectOptions{}, err
	}
	o := schema.ConnectOptions{
		Host:           d.Host,
		Port:           d.Port,
		Username:       d.Username,
		Password:       d.Password,
		EnablePassword: d.EnablePassword,
		Cert:           d.Cert,
		KnownHosts:     d.KnownHosts,
		Method:         method,
		Timeout:        s.ReadTimeout,
	}
	if s.TranscriptDir != "" {
		o.SessionLog = filepath.Join(s.TranscriptDir, d.ID+".log")
	}
	return o, nil
}
