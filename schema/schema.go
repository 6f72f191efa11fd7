package schema

import (
	"io"
	"regexp"
	"time"
)

type EventType int
type ConnectionMethod int

const (
	Stdin  EventType = iota
	Stderr EventType = iota
	Stdout EventType = iota
)

const (
	SSH ConnectionMethod = iota
	Telnet
)

type MessageEvent struct {
	Source  string
	Message string
	Dir     EventType
	Time    time.Time
}

type ConnectOptions struct {
	Host           string
	Port           int
	Username       string
	Password       string
	EnablePassword string
	Cert           string
	KnownHosts     string
	Method         ConnectionMethod
	// Return terminates every command written with a newline, defaults to "\r"
	Return string
	// Timeout is the default read timeout for captures
	Timeout time.Duration
	// Ciphers overrides the SSH cipher list for devices that only speak legacy ciphers
	Ciphers []string
	// LoginPattern and PasswordPattern drive the telnet login dialog
	LoginPattern    string
	PasswordPattern string
	// Continuation patterns are answered with a space when seen in the output (pagers)
	Continuation []string
	// SessionLog is a file path the transcript is written to, empty disables it
	SessionLog string
}

// Transcript is the optional sink a channel copies its traffic to.
type Transcript interface {
	io.Writer
	// Finalize marks the transcript as complete, only the disconnect write may follow.
	Finalize()
	Finalized() bool
}

// Channel is the byte stream to a remote device shell. Implementations are not safe for
// concurrent use, one capture runs at a time.
type Channel interface {
	//Write sends the command on the wire, optionally followed by the return sequence
	Write(command string, newline bool) (sent int, err error)
	//Expect reads until expectation matches the captured output or timeout elapses.
	//The returned text includes everything read up to and including the match.
	Expect(expectation *regexp.Regexp, timeout time.Duration) (result string, err error)
	//ReadFor collects whatever the device sends during d without matching anything
	ReadFor(d time.Duration) (result string, err error)
	//Return is the line terminator appended to commands
	Return() string
	//Timeout is the default read timeout
	Timeout() time.Duration
	//Transcript returns the attached transcript, or nil
	Transcript() Transcript
}

type Device interface {
	Channel
	//SupportedMethods is a list of supported connection methods, ie SSH, Telnet, CarrierPigeon
	SupportedMethods() []ConnectionMethod
	//Connect tries to connect using the devices connection options
	Connect(method ConnectionMethod, options ConnectOptions) error
	//Disconnect closes the sessions and releases the transcript
	Disconnect() bool
	//Options returns the connection options used for this device
	Options() ConnectOptions
}

type Logger interface {
	Debug(args ...interface{})
	Debugf(format string, args ...interface{})
	Info(args ...interface{})
	Infof(format string, args ...interface{})
	Warning(args ...interface{})
	Warningf(format string, args ...interface{})
	Error(args ...interface{})
	Errorf(format string, args ...interface{})
	Critical(args ...interface{})
	Criticalf(format string, args ...interface{})
}
