package transport

import (
	"bufio"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/morganhein/modeshell/pubsub"
	"github.com/morganhein/modeshell/schema"
)

const redacted = "********"

// SessionLog is a transcript of everything written to and read from a device.
// Secrets registered with Redact never reach the underlying writer.
type SessionLog struct {
	mu      sync.Mutex
	w       *bufio.Writer
	c       io.Closer
	secrets []string
	fin     bool

	publisher *pubsub.Publisher
	subID     int
	events    chan schema.MessageEvent
	done      chan struct{}
	wg        sync.WaitGroup
}

func NewSessionLog(w io.WriteCloser) *SessionLog {
	return &SessionLog{
		w: bufio.NewWriter(w),
		c: w,
	}
}

// OpenSessionLog appends the transcript to the file at path, creating it if needed.
func OpenSessionLog(path string) (*SessionLog, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, err
	}
	return NewSessionLog(f), nil
}

func (l *SessionLog) Redact(secret string) {
	if secret == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.secrets = append(l.secrets, secret)
}

func (l *SessionLog) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := string(p)
	for _, secret := range l.secrets {
		s = strings.ReplaceAll(s, secret, redacted)
	}
	if _, err := l.w.WriteString(s); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Finalize marks the transcript complete and flushes it, so the log survives even if
// the disconnect that follows never returns.
func (l *SessionLog) Finalize() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fin = true
	l.w.Flush()
}

func (l *SessionLog) Finalized() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fin
}

// follow copies every event of p into the log until Close.
func (l *SessionLog) follow(p *pubsub.Publisher) {
	l.publisher = p
	l.events = make(chan schema.MessageEvent, eventBuffer)
	l.done = make(chan struct{})
	l.subID = p.Subscribe(l.events)
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		for {
			select {
			case e := <-l.events:
				l.Write([]byte(e.Message))
			case <-l.done:
				// drain what was already delivered
				for {
					select {
					case e := <-l.events:
						l.Write([]byte(e.Message))
					default:
						return
					}
				}
			}
		}
	}()
}

func (l *SessionLog) Close() error {
	if l.done != nil {
		l.publisher.Unsubscribe(l.subID)
		close(l.done)
		l.wg.Wait()
		l.done = nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.w.Flush(); err != nil {
		l.c.Close()
		return err
	}
	return l.c.Close()
}
