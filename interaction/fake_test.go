package interaction

import (
	"regexp"
	"strings"
	"time"

	"github.com/morganhein/modeshell/schema"
)

const (
	unprivileged = iota
	privileged
	configuration
)

// fakeDevice is a scripted Cisco-style shell. Every write is answered immediately by
// appending the echo and the response to the pending output.
type fakeDevice struct {
	hostname string
	secret   string
	mode     int
	suffix   [3]string
	// displayLimit abbreviates the hostname shown in configuration mode, 0 disables
	displayLimit int
	enableCmd    string

	dirOutput   string
	filesystems map[string]bool

	pending  string
	awaiting string

	writes   []string // every write, blanks included
	commands []string // writes that were not prompt probes
	timeouts []time.Duration
	readFors int

	failProbes bool
	transcript *fakeTranscript
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		hostname:    "R1",
		secret:      "s3cret",
		suffix:      [3]string{">", "#", "(config)#"},
		enableCmd:   "enable",
		dirOutput:   "Directory of flash:/\r\n\r\n    1  -rw-   4096  c2960.bin\r\n",
		filesystems: map[string]bool{"flash:": true},
	}
}

func (f *fakeDevice) prompt() string {
	host := f.hostname
	if f.mode == configuration && f.displayLimit > 0 && len(host) > f.displayLimit {
		host = host[:f.displayLimit]
	}
	return host + f.suffix[f.mode]
}

func (f *fakeDevice) Write(command string, newline bool) (int, error) {
	f.writes = append(f.writes, command)
	if !newline {
		return len(command), nil
	}
	f.pending += f.respond(command)
	return len(command) + 1, nil
}

func (f *fakeDevice) respond(cmd string) string {
	switch f.awaiting {
	case "password":
		f.awaiting = ""
		f.commands = append(f.commands, "<secret>")
		if cmd == f.secret {
			f.mode = privileged
			return "\r\n" + f.prompt()
		}
		return "\r\n% Access denied\r\n\r\n" + f.prompt()
	case "confirm":
		f.awaiting = ""
		if cmd == "" {
			f.commands = append(f.commands, "<confirm>")
		} else {
			f.commands = append(f.commands, cmd)
		}
		return cmd + "\r\nBuilding configuration...\r\n[OK]\r\n" + f.prompt()
	}

	if cmd == "" {
		return "\r\n" + f.prompt()
	}
	f.commands = append(f.commands, cmd)
	switch {
	case cmd == f.enableCmd:
		if f.mode == unprivileged {
			f.awaiting = "password"
			return cmd + "\r\nPassword: "
		}
	case cmd == "configure terminal":
		if f.mode == unprivileged {
			return cmd + "\r\n% Invalid input detected at '^' marker.\r\n\r\n" + f.prompt()
		}
		f.mode = configuration
		return cmd + "\r\nEnter configuration commands, one per line.  End with CNTL/Z.\r\n" + f.prompt()
	case cmd == "end":
		if f.mode == configuration {
			f.mode = privileged
		}
	case cmd == "disable":
		if f.mode == privileged {
			f.mode = unprivileged
		}
	case cmd == "exit":
		if f.mode > unprivileged {
			f.mode--
		}
	case cmd == "copy running-config startup-config":
		f.awaiting = "confirm"
		return cmd + "\r\nDestination filename [startup-config]? "
	case cmd == "write mem":
		return cmd + "\r\nBuilding configuration...\r\n[OK]\r\n" + f.prompt()
	case cmd == "dir":
		return cmd + "\r\n" + f.dirOutput + "\r\n" + f.prompt()
	case strings.HasPrefix(cmd, "dir "):
		fs := strings.TrimPrefix(cmd, "dir ")
		if !f.filesystems[fs] {
			return cmd + "\r\n              ^\r\n% Invalid input detected at '^' marker.\r\n\r\n" + f.prompt()
		}
		return cmd + "\r\nDirectory of " + fs + "/\r\n\r\n    1  -rw-   4096  c2960.bin\r\n" + f.prompt()
	}
	return cmd + "\r\n" + f.prompt()
}

func (f *fakeDevice) Expect(expectation *regexp.Regexp, timeout time.Duration) (string, error) {
	f.timeouts = append(f.timeouts, timeout)
	if f.failProbes {
		return "", &schema.TimeoutError{Pattern: expectation.String(), Timeout: timeout}
	}
	buf := f.pending
	loc := expectation.FindStringIndex(buf)
	if loc == nil {
		f.pending = ""
		return buf, &schema.TimeoutError{Pattern: expectation.String(), Timeout: timeout, Output: buf}
	}
	f.pending = buf[loc[1]:]
	return buf[:loc[1]], nil
}

func (f *fakeDevice) ReadFor(d time.Duration) (string, error) {
	f.readFors++
	out := f.pending
	f.pending = ""
	return out, nil
}

func (f *fakeDevice) Return() string { return "\r" }

func (f *fakeDevice) Timeout() time.Duration { return time.Duration(5) * time.Second }

func (f *fakeDevice) Transcript() schema.Transcript {
	if f.transcript == nil {
		return nil
	}
	return f.transcript
}

type fakeTranscript struct {
	strings.Builder
	fin bool
}

func (t *fakeTranscript) Finalize()       { t.fin = true }
func (t *fakeTranscript) Finalized() bool { return t.fin }

// ciscoSession returns a session on a fake device whose base prompt is already resolved.
func ciscoSession(f *fakeDevice) *Session {
	s := NewSession(f, DialectFor(Cisco), f.secret)
	s.basePrompt = s.dialect.NormalizePrompt(f.hostname)
	return s
}
