package pubsub

import (
	"bufio"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/morganhein/modeshell/logger"
	"github.com/morganhein/modeshell/schema"
)

var log schema.Logger

func init() {
	log = logger.Log
}

type subscription struct {
	c    chan schema.MessageEvent
	dirs map[schema.EventType]bool
}

func (s subscription) wants(t schema.EventType) bool {
	return len(s.dirs) == 0 || s.dirs[t]
}

// Publisher distributes the chunks read from a device to every subscriber.
// Delivery blocks until the subscriber accepts the event or the publisher is closed,
// so no output is dropped while a subscriber is slow.
type Publisher struct {
	source string
	s      map[int]subscription
	next   int
	mut    sync.RWMutex
	done   chan struct{}
	once   sync.Once
}

// New creates a new pubsub. This should be called from a device.
// Then Attach() can be called to begin publishing.
func New(source string) *Publisher {
	return &Publisher{
		source: source,
		s:      make(map[int]subscription, 2),
		done:   make(chan struct{}),
	}
}

// Subscribe adds another listener to this pubsub, messages to be passed via the channel.
// When dirs is empty every direction is delivered.
// The id of this subscription is returned, which may be used to unsubscribe
func (p *Publisher) Subscribe(s chan schema.MessageEvent, dirs ...schema.EventType) (id int) {
	p.mut.Lock()
	defer p.mut.Unlock()
	sub := subscription{c: s, dirs: make(map[schema.EventType]bool, len(dirs))}
	for _, d := range dirs {
		sub.dirs[d] = true
	}
	id = p.next
	p.next++
	p.s[id] = sub
	log.Debug("Subscribing from id ", id)
	return id
}

func (p *Publisher) Unsubscribe(id int) {
	log.Debug("Unsubscribing from id ", id)
	p.mut.Lock()
	defer p.mut.Unlock()
	delete(p.s, id)
}

// Attach starts a reader for r, publishing every chunk as direction t.
// The reader stops when r returns an error, usually because the session was closed.
func (p *Publisher) Attach(r io.Reader, t schema.EventType) {
	if r == nil {
		return
	}
	go p.read(r, t)
}

// Publish hands e to every subscriber that wants its direction, in the order they
// subscribed. The lock is not held while a send blocks, so Unsubscribe never waits on a
// slow subscriber.
func (p *Publisher) Publish(message string, t schema.EventType) {
	e := schema.MessageEvent{
		Source:  p.source,
		Message: message,
		Dir:     t,
		Time:    time.Now(),
	}
	for _, s := range p.subscribers(t) {
		select {
		case s.c <- e:
		case <-p.done:
			return
		}
	}
}

func (p *Publisher) subscribers(t schema.EventType) []subscription {
	p.mut.RLock()
	defer p.mut.RUnlock()
	ids := make([]int, 0, len(p.s))
	for id, s := range p.s {
		if s.wants(t) {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	subs := make([]subscription, len(ids))
	for i, id := range ids {
		subs[i] = p.s[id]
	}
	return subs
}

// Close stops delivery. Blocked publishers return immediately.
func (p *Publisher) Close() {
	p.once.Do(func() {
		close(p.done)
	})
}

func (p *Publisher) closed() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

func (p *Publisher) read(r io.Reader, t schema.EventType) {
	scanner := bufio.NewScanner(r)
	scanner.Split(onNewline)
	for scanner.Scan() {
		if p.closed() {
			break
		}
		p.Publish(scanner.Text(), t)
	}
	if err := scanner.Err(); err != nil && !p.closed() {
		log.Debugf("Reader loop closing: %s", err)
		return
	}
	log.Debug("Reader loop closing.")
}

// onNewline emits a token per line including its terminator, or whatever is buffered
// when no terminator has arrived yet. Prompts never end in a newline so they must be
// delivered as partial lines.
func onNewline(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	for i := 0; i < len(data); i++ {
		if data[i] == '\n' || data[i] == '\r' {
			return i + 1, data[:i+1], nil
		}
	}
	return len(data), data, nil
}
