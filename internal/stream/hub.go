// Package stream pushes session frames to WebSocket viewers and accepts
// host commands from them.
package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	ws "github.com/gorilla/websocket"

	"github.com/truckmatch/routecompare/internal/dispatcher"
	"github.com/truckmatch/routecompare/internal/session"
	"github.com/truckmatch/routecompare/pkg/core"
	"github.com/truckmatch/routecompare/pkg/streaming"
)

const (
	sendChSize     = 64
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 4096
)

// Source is implemented by session.Engine.
type Source interface {
	Subscribe(fn func(session.Frame)) (unsubscribe func())
	Latest() session.Frame
}

// Dispatcher runs viewer commands.
type Dispatcher interface {
	Dispatch(ctx context.Context, e dispatcher.Event) (any, error)
}

// frameKey changes whenever viewers need the full frame rather than a
// progress update.
type frameKey struct {
	scenario    string
	placeholder string
	loading     bool
	revision    uint64
}

func keyOf(f session.Frame) frameKey {
	return frameKey{f.ScenarioID, f.Placeholder, f.Loading, f.Revision}
}

// Hub fans frames out to every connected viewer.
type Hub struct {
	src      Source
	commands Dispatcher
	logger   *slog.Logger
	upgrader ws.Upgrader

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	clients     map[*client]struct{}
	unsubscribe func()
	lastKey     frameKey
	haveLast    bool
}

// NewHub creates a hub. Call Start to begin forwarding frames.
func NewHub(src Source, commands Dispatcher, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		src:      src,
		commands: commands,
		logger:   logger,
		upgrader: ws.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		ctx:      ctx,
		cancel:   cancel,
		clients:  make(map[*client]struct{}),
	}
}

// Start subscribes to the source.
func (h *Hub) Start() {
	unsub := h.src.Subscribe(h.broadcast)
	h.mu.Lock()
	h.unsubscribe = unsub
	h.mu.Unlock()
}

// Close disconnects every viewer and stops forwarding.
func (h *Hub) Close() {
	h.cancel()
	h.mu.Lock()
	unsub := h.unsubscribe
	h.unsubscribe = nil
	clients := h.clients
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	for c := range clients {
		c.close()
	}
}

// Clients returns the number of connected viewers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and serves one viewer until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", "error", err)
		return
	}

	c := newClient(h, conn)
	first := h.src.Latest()
	full, err := fullFrame(first)
	if err != nil {
		h.logger.Error("Encoding frame failed", "error", err)
		_ = conn.Close()
		return
	}
	c.sendCh <- full

	h.mu.Lock()
	if h.ctx.Err() != nil {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	missed := h.haveLast && h.lastKey != keyOf(first)
	h.mu.Unlock()

	// a new path may have been published between Latest and registration
	if missed {
		if full, err := fullFrame(h.src.Latest()); err == nil {
			c.enqueue(full, true)
		}
	}

	h.logger.Info("Viewer connected", "remote", r.RemoteAddr)
	go c.writeLoop()
	c.readLoop()
	h.remove(c)
	h.logger.Info("Viewer disconnected", "remote", r.RemoteAddr)
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
}

// broadcast runs on the session's control goroutine and must not block.
func (h *Hub) broadcast(f session.Frame) {
	key := keyOf(f)

	h.mu.Lock()
	sendFull := !h.haveLast || key != h.lastKey
	h.lastKey, h.haveLast = key, true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	if len(clients) == 0 {
		return
	}

	var (
		msg []byte
		err error
	)
	if sendFull {
		msg, err = fullFrame(f)
	} else {
		msg, err = streaming.Encode(streaming.TypeProgress, ProgressOf(f))
	}
	if err != nil {
		h.logger.Error("Encoding frame failed", "error", err)
		return
	}

	for _, c := range clients {
		c.enqueue(msg, sendFull)
	}
}

func fullFrame(f session.Frame) ([]byte, error) {
	return streaming.Encode(streaming.TypeFrame, f)
}

// ProgressOf extracts the per-tick part of a frame.
func ProgressOf(f session.Frame) streaming.ProgressPayload {
	p := streaming.ProgressPayload{
		ScenarioID: f.ScenarioID,
		Revision:   f.Revision,
		Playing:    f.Playing,
		Progress:   f.Progress,
		Speed:      f.Speed,
		Markers:    make(map[string]*core.Coordinate, len(f.Routes)),
		Traveled:   make(map[string]int, len(f.Routes)),
	}
	for _, r := range f.Routes {
		if !r.Loaded {
			continue
		}
		p.Markers[r.Strategy] = r.Marker
		p.Traveled[r.Strategy] = len(r.Traveled)
	}
	return p
}

type client struct {
	hub    *Hub
	conn   *ws.Conn
	sendCh chan []byte
	done   chan struct{}
	once   sync.Once
	// resync is set when a full frame was dropped; the writer then replaces
	// the next progress update with the latest full frame.
	resync atomic.Bool
}

func newClient(h *Hub, conn *ws.Conn) *client {
	return &client{
		hub:    h,
		conn:   conn,
		sendCh: make(chan []byte, sendChSize),
		done:   make(chan struct{}),
	}
}

func (c *client) enqueue(msg []byte, full bool) {
	select {
	case c.sendCh <- msg:
	default:
		if full {
			c.resync.Store(true)
		}
		c.hub.logger.Debug("Viewer send buffer full, dropping update")
	}
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// writeLoop is the only writer on conn.
func (c *client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case data := <-c.sendCh:
			if c.resync.CompareAndSwap(true, false) {
				full, err := fullFrame(c.hub.src.Latest())
				if err == nil {
					data = full
				}
			}
			if err := c.write(ws.TextMessage, data); err != nil {
				c.hub.logger.Warn("WebSocket write error", "error", err)
				c.close()
				return
			}
		case <-ticker.C:
			if err := c.write(ws.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}

func (c *client) write(messageType int, data []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}

// readLoop runs viewer commands until the connection drops.
func (c *client) readLoop() {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				if ws.IsUnexpectedCloseError(err, ws.CloseGoingAway, ws.CloseNormalClosure) {
					c.hub.logger.Warn("WebSocket read error", "error", err)
				}
			}
			return
		}

		cmd, err := streaming.DecodeCommand(message)
		if err != nil {
			c.ack(streaming.AckMessage{Type: streaming.TypeAck, Error: err.Error()})
			continue
		}

		ack := streaming.AckMessage{Type: streaming.TypeAck, For: cmd.Command}
		_, err = c.hub.commands.Dispatch(c.hub.ctx, dispatcher.Event{
			Command:   cmd.Command,
			Args:      cmd.Args,
			Timestamp: time.Now(),
		})
		if err != nil {
			ack.Error = err.Error()
		}
		c.ack(ack)
	}
}

func (c *client) ack(a streaming.AckMessage) {
	data, err := json.Marshal(a)
	if err != nil {
		return
	}
	select {
	case c.sendCh <- data:
	case <-c.done:
	}
}
