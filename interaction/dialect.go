package interaction

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/morganhein/modeshell/schema"
)

type DeviceType int

const (
	Cisco DeviceType = iota
	CiscoXE
	CiscoXR
	Casa
	Juniper
	IronFoundry
	NecIX
)

var deviceTypeNames = map[string]DeviceType{
	"cisco_ios":        Cisco,
	"cisco_xe":         CiscoXE,
	"cisco_xr":         CiscoXR,
	"casa":             Casa,
	"juniper":          Juniper,
	"brocade_fastiron": IronFoundry,
	"foundry":          IronFoundry,
	"nec_ix":           NecIX,
}

// ParseDeviceType maps an inventory name such as "cisco_ios" to its DeviceType.
func ParseDeviceType(name string) (DeviceType, error) {
	t, ok := deviceTypeNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("unknown device type %q", name)
	}
	return t, nil
}

// promptLimit is how much of the prompt survives on platforms that abbreviate the
// hostname once a configuration sub-mode is active.
const promptLimit = 16

// Defaults are the commands, markers and patterns a vendor family uses for each step.
// An empty command means the platform has no such step.
type Defaults struct {
	PrimaryTerminator string
	AltTerminator     string

	EnableCommand     string
	PasswordPattern   string
	EnablePattern     string
	ExitEnableCommand string
	PrivilegedMarker  string

	ConfigCommand      string
	ConfigCheckPattern string
	ExitConfigCommand  string
	ExitConfigPattern  string
	ConfigMarker       string

	SaveCommand string

	FilesystemCommand string
	FilesystemPattern string
	ErrorMarkers      []string

	PagerCommand string
	Continuation []string
	LoginPattern string
	Ciphers      []string
	ExitCommand  string
}

// DeviceDialect supplies the vendor specific parts of a session.
type DeviceDialect interface {
	Name() string
	Defaults() Defaults
	// NormalizePrompt turns the prompt read from the device, without its terminator,
	// into the base prompt later output is matched against.
	NormalizePrompt(prompt string) string
}

func ciscoLike() Defaults {
	return Defaults{
		PrimaryTerminator: "#",
		AltTerminator:     ">",
		EnableCommand:     "enable",
		PasswordPattern:   "ssword",
		ExitEnableCommand: "disable",
		PrivilegedMarker:  "#",
		ConfigCommand:     "configure terminal",
		ExitConfigCommand: "end",
		ConfigMarker:      ")#",
		SaveCommand:       "copy running-config startup-config",
		FilesystemCommand: "dir",
		FilesystemPattern: `Directory of (.*)/`,
		ErrorMarkers:      []string{"% Invalid", "%Error:"},
		PagerCommand:      "terminal length 0",
		Continuation:      []string{`--More-- ?$`},
		ExitCommand:       "exit",
	}
}

// DialectFor returns the dialect of a device type, unknown types get Cisco IOS.
func DialectFor(deviceType DeviceType) DeviceDialect {
	switch deviceType {
	case CiscoXE:
		return ciscoDialect{name: "cisco_xe", truncate: true}
	case CiscoXR:
		return ciscoDialect{name: "cisco_xr", save: "commit", ciphers: []string{
			"aes128-cbc",
			"aes256-cbc",
			"aes128-ctr",
			"aes192-ctr",
			"aes256-ctr",
			"aes128-gcm@openssh.com",
			"arcfour256",
			"arcfour128",
		}}
	case Casa:
		return casaDialect{}
	case Juniper:
		return juniperDialect{}
	case IronFoundry:
		return foundryDialect{}
	case NecIX:
		return necDialect{}
	default:
		return ciscoDialect{name: "cisco_ios", truncate: true}
	}
}

// ApplyDefaults fills the transport options a dialect cares about and the caller left empty.
func ApplyDefaults(d DeviceDialect, options schema.ConnectOptions) schema.ConnectOptions {
	def := d.Defaults()
	if len(options.Continuation) == 0 {
		options.Continuation = def.Continuation
	}
	if len(options.Ciphers) == 0 {
		options.Ciphers = def.Ciphers
	}
	if options.LoginPattern == "" {
		options.LoginPattern = def.LoginPattern
	}
	return options
}

// truncatePrompt keeps the first promptLimit characters, counted in runes so a
// multibyte hostname is never split.
func truncatePrompt(prompt string) string {
	if utf8.RuneCountInString(prompt) <= promptLimit {
		return prompt
	}
	return string([]rune(prompt)[:promptLimit])
}

// ciscoDialect covers IOS, IOS-XE and IOS-XR.
type ciscoDialect struct {
	name     string
	truncate bool
	save     string
	ciphers  []string
}

func (c ciscoDialect) Name() string { return c.name }

func (c ciscoDialect) Defaults() Defaults {
	d := ciscoLike()
	if c.save != "" {
		d.SaveCommand = c.save
	}
	d.Ciphers = c.ciphers
	return d
}

// NormalizePrompt abbreviates the prompt, IOS shortens the hostname to 20 characters
// in configuration mode.
func (c ciscoDialect) NormalizePrompt(prompt string) string {
	if c.truncate {
		return truncatePrompt(prompt)
	}
	return prompt
}

// necDialect is NEC UNIVERGE IX. The login prompt already ends in '#', so privilege is
// told apart by the "(config" context svintr-config enters.
type necDialect struct{}

func (necDialect) Name() string { return "nec_ix" }

func (necDialect) Defaults() Defaults {
	d := ciscoLike()
	d.AltTerminator = "(config)#"
	d.EnableCommand = "svintr-config"
	d.ExitEnableCommand = "exit"
	d.PrivilegedMarker = "(config"
	d.ConfigCheckPattern = `[>#]`
	d.ExitConfigCommand = "exit"
	d.ExitConfigPattern = `#.*`
	d.SaveCommand = "write mem"
	d.PagerCommand = ""
	return d
}

func (necDialect) NormalizePrompt(prompt string) string {
	return truncatePrompt(prompt)
}

type casaDialect struct{}

func (casaDialect) Name() string { return "casa" }

func (casaDialect) Defaults() Defaults {
	d := ciscoLike()
	d.PagerCommand = "page-off"
	d.Continuation = []string{`--more--`}
	d.SaveCommand = "copy running-config startup-config"
	return d
}

func (casaDialect) NormalizePrompt(prompt string) string { return prompt }

// juniperDialect is JunOS. Operational mode is already privileged, so there is no
// enable step; configuration changes are persisted with commit.
type juniperDialect struct{}

func (juniperDialect) Name() string { return "juniper" }

func (juniperDialect) Defaults() Defaults {
	d := ciscoLike()
	d.PrimaryTerminator = ">"
	d.AltTerminator = "#"
	d.EnableCommand = ""
	d.ExitEnableCommand = ""
	d.PrivilegedMarker = ">"
	d.ConfigCommand = "configure"
	d.ExitConfigCommand = "exit configuration-mode"
	d.ConfigMarker = "#"
	d.SaveCommand = "commit"
	d.FilesystemCommand = "file list"
	d.FilesystemPattern = `(/\S+)/`
	d.ErrorMarkers = []string{"error:", "unknown command"}
	d.PagerCommand = "set cli screen-length 0"
	d.Continuation = []string{`---\(more.*\)---`}
	return d
}

// NormalizePrompt drops the "user@" part, the configuration prompt is "user@host#".
func (juniperDialect) NormalizePrompt(prompt string) string {
	if i := strings.LastIndex(prompt, "@"); i >= 0 {
		return prompt[i+1:]
	}
	return prompt
}

type foundryDialect struct{}

func (foundryDialect) Name() string { return "brocade_fastiron" }

func (foundryDialect) Defaults() Defaults {
	d := ciscoLike()
	d.PagerCommand = "skip-page-display"
	d.Continuation = []string{`^--More--,`}
	d.SaveCommand = "write memory"
	d.LoginPattern = `(?i)login name:? *$`
	return d
}

func (foundryDialect) NormalizePrompt(prompt string) string { return prompt }
