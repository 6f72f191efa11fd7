package transport

import (
	"fmt"
	"io"
	"net"
	"regexp"
	"runtime"
	"time"

	"github.com/morganhein/modeshell/logger"
	"github.com/morganhein/modeshell/pubsub"
	"github.com/morganhein/modeshell/schema"
	"golang.org/x/crypto/ssh"
)

const (
	defaultReturn  = "\r"
	defaultTimeout = time.Duration(10) * time.Second
	loginTimeout   = time.Duration(20) * time.Second
	eventBuffer    = 4096
)

var log schema.Logger

func init() {
	log = logger.Log
}

// New creates an unconnected device. Connect must be called before any capture.
func New() schema.Device {
	d := &base{}
	d.Initialize()
	return d
}

type base struct {
	ssh struct {
		Config     *ssh.ClientConfig
		connection *ssh.Client
		session    *ssh.Session
	}
	telnet struct {
		conn net.Conn
	}
	connOptions  schema.ConnectOptions
	ready        bool //set to false when running a command
	stdin        io.WriteCloser
	continuation []*regexp.Regexp
	prompt       *regexp.Regexp
	events       chan schema.MessageEvent
	publisher    *pubsub.Publisher
	pending      string        // output read past the last match, served to the next capture
	timeout      time.Duration // The default timeout for this device
	ret          string
	sessionLog   *SessionLog
}

func (b *base) Initialize() {
	b.prompt = regexp.MustCompile(`> *$|# *$|\$ *$`)
	b.ready = false
	b.timeout = defaultTimeout
	b.ret = defaultReturn
}

func (b *base) SupportedMethods() []schema.ConnectionMethod {
	return []schema.ConnectionMethod{schema.SSH, schema.Telnet}
}

func (b *base) Connect(method schema.ConnectionMethod, options schema.ConnectOptions) error {
	if err := b.configure(options); err != nil {
		return err
	}
	switch method {
	case schema.SSH:
		options.Method = schema.SSH
		log.Debug("Connecting via SSH.")
		return b.connectSsh(options)
	case schema.Telnet:
		options.Method = schema.Telnet
		log.Debug("Connecting via Telnet.")
		return b.connectTelnet(options)
	}
	return schema.ErrUnsupportedMethod
}

func (b *base) configure(options schema.ConnectOptions) error {
	if options.Return != "" {
		b.ret = options.Return
	}
	if options.Timeout > 0 {
		b.timeout = options.Timeout
	}
	b.continuation = nil
	for _, next := range options.Continuation {
		re, err := regexp.Compile(next)
		if err != nil {
			return fmt.Errorf("continuation pattern %q: %w", next, err)
		}
		b.continuation = append(b.continuation, re)
	}
	if options.SessionLog != "" {
		l, err := OpenSessionLog(options.SessionLog)
		if err != nil {
			return err
		}
		for _, secret := range []string{options.Password, options.EnablePassword} {
			l.Redact(secret)
		}
		b.sessionLog = l
	}
	return nil
}

// attach wires the raw streams of a freshly opened shell to the publisher.
func (b *base) attach(stdout, stderr io.Reader, stdin io.WriteCloser) {
	b.publisher = pubsub.New(b.connOptions.Host)
	// the transcript subscribes first so it holds every chunk a capture has consumed
	if b.sessionLog != nil {
		b.sessionLog.follow(b.publisher)
	}
	b.events = make(chan schema.MessageEvent, eventBuffer)
	b.publisher.Subscribe(b.events, schema.Stdout, schema.Stderr)
	b.stdin = stdin
	b.publisher.Attach(stdout, schema.Stdout)
	b.publisher.Attach(stderr, schema.Stderr)
}

func (b *base) Disconnect() bool {
	// the transcript is closed before the publisher so output already delivered to it
	// is flushed; an unread backlog cannot block either step
	if b.sessionLog != nil {
		if err := b.sessionLog.Close(); err != nil {
			log.Warningf("Unable to close the session log: %s", err)
		}
		b.sessionLog = nil
	}
	if b.publisher != nil {
		b.publisher.Close()
	}
	if b.stdin != nil {
		b.stdin.Close()
	}
	if b.ssh.session != nil {
		b.ssh.session.Close()
	}
	if b.ssh.connection != nil {
		b.ssh.connection.Close()
	}
	if b.telnet.conn != nil {
		b.telnet.conn.Close()
	}
	b.ready = false
	b.stdin = nil
	return true
}

func (b *base) Write(command string, newline bool) (sent int, err error) {
	if b.stdin == nil {
		return 0, schema.ErrNotConnected
	}
	if newline {
		command += b.ret
	}
	b.publisher.Publish(command, schema.Stdin)
	return b.stdin.Write([]byte(command))
}

func (b *base) Expect(expectation *regexp.Regexp, timeout time.Duration) (result string, err error) {
	if !b.ready {
		return result, schema.ErrNotReady
	}
	b.ready = false
	defer func() {
		b.ready = true
	}()
	return b.expect(expectation, timeout)
}

func (b *base) ReadFor(d time.Duration) (result string, err error) {
	if !b.ready {
		return result, schema.ErrNotReady
	}
	b.ready = false
	defer func() {
		b.ready = true
	}()
	result, b.pending = b.pending, ""
	timer := time.NewTimer(d)
	defer timer.Stop()
	for {
		select {
		case event := <-b.events:
			result += event.Message
			b.handleContinuation(event.Message)
		case <-timer.C:
			return result, nil
		}
	}
}

func (b *base) Return() string {
	return b.ret
}

func (b *base) Timeout() time.Duration {
	return b.timeout
}

func (b *base) Transcript() schema.Transcript {
	if b.sessionLog == nil {
		return nil
	}
	return b.sessionLog
}

// Options should return the connection options used for the current connection, if any
func (b *base) Options() schema.ConnectOptions {
	runtime.Gosched()
	return b.connOptions
}

// expect accumulates output until expectation matches. The deadline is absolute so a
// chatty device cannot hold a capture open forever.
func (b *base) expect(expectation *regexp.Regexp, timeout time.Duration) (result string, err error) {
	buf := b.pending
	b.pending = ""
	if out, ok := b.split(buf, expectation); ok {
		return out, nil
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case event := <-b.events:
			buf += event.Message
			b.handleContinuation(event.Message)
			if out, ok := b.split(buf, expectation); ok {
				log.Debug("Expectation matched.")
				return out, nil
			}
		case <-timer.C:
			return buf, &schema.TimeoutError{
				Pattern: expectation.String(),
				Timeout: timeout,
				Output:  buf,
			}
		}
	}
}

func (b *base) split(buf string, expectation *regexp.Regexp) (string, bool) {
	loc := expectation.FindStringIndex(buf)
	if loc == nil {
		return "", false
	}
	b.pending = buf[loc[1]:]
	return buf[:loc[1]], true
}

func (b *base) handleContinuation(line string) {
	for _, con := range b.continuation {
		if matched := con.FindString(line); matched != "" {
			log.Debug("Found continuation request.", matched)
			b.Write(" ", false)
		}
	}
}
