// Package sse pushes study session and vault changes to browsers as
// Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Event is one message sent to every client.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Vault change kinds accepted by PublishNoteEvent.
const (
	NoteCreated = "created"
	NoteUpdated = "updated"
	NoteDeleted = "deleted"
)

const (
	clientBuffer      = 64
	defaultThrottle   = 2 * time.Second
	heartbeatInterval = 25 * time.Second
)

var droppedMessages = promauto.NewCounter(prometheus.CounterOpts{
	Name: "lagu_sse_dropped_messages_total",
	Help: "Events not delivered because a client buffer was full.",
})

type noteEventReq struct {
	kind string
	path string
}

// Broker fans events out to connected clients.
//
// A single loop goroutine owns the client set, the event sequence and the
// graph throttle timestamp. Public methods talk to it over channels.
type Broker struct {
	graphMin  time.Duration
	heartbeat time.Duration
	logger    *slog.Logger

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	noteEventCh   chan noteEventReq
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker starts a broker. Vault changes trigger at most one graph.updated
// event per graphThrottle.
func NewBroker(graphThrottle time.Duration, logger *slog.Logger) *Broker {
	if graphThrottle <= 0 {
		graphThrottle = defaultThrottle
	}
	if logger == nil {
		logger = slog.Default()
	}

	b := &Broker{
		graphMin:      graphThrottle,
		heartbeat:     heartbeatInterval,
		logger:        logger,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		noteEventCh:   make(chan noteEventReq, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var (
		seq       uint64
		lastGraph time.Time
	)

	broadcast := func(event Event) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			b.logger.Warn("sse: marshal event failed",
				slog.String("type", event.Type),
				slog.String("error", err.Error()))
			return
		}
		seq++
		raw := fmt.Appendf(nil, "id: %d\nevent: %s\ndata: %s\n\n", seq, event.Type, payload)

		for ch := range clients {
			select {
			case ch <- raw:
			default:
				droppedMessages.Inc()
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case req := <-b.noteEventCh:
			switch req.kind {
			case NoteCreated, NoteUpdated, NoteDeleted:
				broadcast(Event{Type: "note." + req.kind, Data: map[string]string{"path": req.path}})
			default:
				continue
			}

			if now := time.Now(); now.Sub(lastGraph) >= b.graphMin {
				lastGraph = now
				broadcast(Event{Type: "graph.updated", Data: map[string]string{}})
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close stops the loop and closes every client channel.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a client and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, clientBuffer)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends event to every client.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishStudyEvent forwards a study session transition.
func (b *Broker) PublishStudyEvent(kind string, data any) {
	b.Publish(Event{Type: kind, Data: data})
}

// PublishNoteEvent publishes a vault change followed by a throttled
// graph.updated event. Unknown kinds are ignored.
func (b *Broker) PublishNoteEvent(kind, path string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.noteEventCh <- noteEventReq{kind: kind, path: path}:
	case <-b.stopped:
	}
}

// ServeHTTP streams events to one client until it disconnects
// (GET /api/events). A comment line is sent periodically to keep idle
// connections open through proxies.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ticker := time.NewTicker(b.heartbeat)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
