package interaction

import (
	"regexp"
	"strings"
	"time"

	"github.com/morganhein/modeshell/logger"
	"github.com/morganhein/modeshell/schema"
)

const (
	// DefaultSaveTimeout bounds a non-interactive save, some platforms take well over a
	// minute to write startup configuration.
	DefaultSaveTimeout = time.Duration(100) * time.Second
	// DefaultSettleDelay is the window of a timing-based read.
	DefaultSettleDelay = time.Duration(2) * time.Second
)

var log schema.Logger

func init() {
	log = logger.Log
}

// Session drives the CLI of one device over a single channel. The mode of the device is
// never cached, every check probes the live prompt. A Session must not be used from more
// than one goroutine at a time.
type Session struct {
	schema.Channel
	dialect    DeviceDialect
	secret     string
	basePrompt string

	SaveTimeout time.Duration
	SettleDelay time.Duration
}

// New creates a session for deviceType on an already connected channel.
func New(deviceType DeviceType, channel schema.Channel, secret string) *Session {
	d := DialectFor(deviceType)
	log.Debugf("Creating a new %s session.", d.Name())
	return NewSession(channel, d, secret)
}

func NewSession(channel schema.Channel, dialect DeviceDialect, secret string) *Session {
	return &Session{
		Channel:     channel,
		dialect:     dialect,
		secret:      secret,
		SaveTimeout: DefaultSaveTimeout,
		SettleDelay: DefaultSettleDelay,
	}
}

func (s *Session) Dialect() DeviceDialect {
	return s.dialect
}

// BasePrompt is the normalized prompt set by ResolveBasePrompt, empty before that.
func (s *Session) BasePrompt() string {
	return s.basePrompt
}

// Prepare readies a freshly connected session: it resolves the base prompt and turns
// off paging where the platform has a command for it. The prompt is resolved again
// afterwards since the banner can leave a stale line behind.
func (s *Session) Prepare() error {
	if _, err := s.ResolveBasePrompt("", "", 1, ""); err != nil {
		return err
	}
	cmd := s.dialect.Defaults().PagerCommand
	if cmd == "" {
		return nil
	}
	log.Debug("Setting terminal length.")
	if _, err := s.SendCommand(cmd); err != nil {
		return err
	}
	_, err := s.ResolveBasePrompt("", "", 1, "")
	return err
}

// SendCommand writes cmd and returns everything up to the next prompt, echo included.
func (s *Session) SendCommand(cmd string) (string, error) {
	return s.sendCommandTimeout(cmd, s.Timeout())
}

// SendConfigSet enters configuration mode, sends every command and leaves again.
func (s *Session) SendConfigSet(cmds []string) (string, error) {
	output, err := s.EnterConfigMode("", "", "")
	if err != nil {
		return output, err
	}
	for _, cmd := range cmds {
		out, err := s.SendCommand(cmd)
		output += out
		if err != nil {
			return output, err
		}
	}
	out, err := s.ExitConfigMode("", "")
	return output + out, err
}

func (s *Session) sendCommandTimeout(cmd string, timeout time.Duration) (string, error) {
	log.Debug("Writing command: ", cmd)
	if _, err := s.Write(cmd, true); err != nil {
		return "", err
	}
	return s.Expect(s.promptPattern(), timeout)
}

// sendTiming writes cmd and collects output for the settle delay without matching.
func (s *Session) sendTiming(cmd string) (string, error) {
	log.Debug("Writing command: ", cmd)
	if _, err := s.Write(cmd, true); err != nil {
		return "", err
	}
	return s.ReadFor(s.SettleDelay)
}

// probe sends a bare return and reads back the prompt.
func (s *Session) probe(expectation *regexp.Regexp) (string, error) {
	if _, err := s.Write("", true); err != nil {
		return "", err
	}
	return s.Expect(expectation, s.Timeout())
}

func (s *Session) promptPattern() *regexp.Regexp {
	return regexp.MustCompile(s.promptExpr())
}

// promptExpr matches a prompt line at the end of the output: the base prompt followed by
// any mode context and a terminator.
func (s *Session) promptExpr() string {
	if s.basePrompt == "" {
		return `[>#$%]\s*$`
	}
	return regexp.QuoteMeta(s.basePrompt) + `[^\r\n]*[>#$%]\s*$`
}

// lastLine returns the last non-blank line of output, trimmed.
func lastLine(output string) string {
	lines := strings.FieldsFunc(output, func(r rune) bool {
		return r == '\n' || r == '\r'
	})
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}
