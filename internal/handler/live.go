package handler

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/net/websocket"

	"academy/internal/events"
)

// frame is the envelope of every message pushed over a feed.
type frame struct {
	Type    string    `json:"type"`
	At      time.Time `json:"at"`
	Payload any       `json:"payload"`
}

type feedConn struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func (f *feedConn) send(typ string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enc.Encode(frame{Type: typ, At: time.Now(), Payload: payload})
}

// serveFeed upgrades the request and runs fn until the client disconnects.
func serveFeed(c *gin.Context, fn func(ctx context.Context, conn *feedConn)) {
	websocket.Handler(func(ws *websocket.Conn) {
		defer ws.Close()
		ctx, cancel := context.WithCancel(c.Request.Context())
		defer cancel()

		// Feeds are push-only; reading only detects the client going away.
		go func() {
			defer cancel()
			var discard json.RawMessage
			dec := json.NewDecoder(ws)
			for dec.Decode(&discard) == nil {
			}
		}()
		fn(ctx, &feedConn{enc: json.NewEncoder(ws)})
	}).ServeHTTP(c.Writer, c.Request)
}

// LiveFeed pushes the live board on connect, on every attendance or group
// change and on each LiveTick.
func (h *Handler) LiveFeed(c *gin.Context) {
	serveFeed(c, func(ctx context.Context, conn *feedConn) {
		var changes <-chan events.Event
		if h.Bus != nil {
			ch, err := h.Bus.Subscribe(ctx, events.AttendanceChanged, events.GroupChanged)
			if err != nil {
				log.Printf("live feed subscribe failed: %v", err)
			}
			changes = ch
		}
		ticker := time.NewTicker(h.LiveTick)
		defer ticker.Stop()

		push := func() bool {
			board, err := h.Attendance.LiveBoard(ctx)
			if err != nil {
				if ctx.Err() == nil {
					log.Printf("live board failed: %v", err)
				}
				return ctx.Err() == nil
			}
			return conn.send("board", board) == nil
		}
		if !push() {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-changes:
				if !ok {
					changes = nil
					continue
				}
				if !push() {
					return
				}
			case <-ticker.C:
				if !push() {
					return
				}
			}
		}
	})
}

// WalkieFeed forwards broadcast.ready events.
func (h *Handler) WalkieFeed(c *gin.Context) {
	serveFeed(c, func(ctx context.Context, conn *feedConn) {
		if h.Bus == nil {
			<-ctx.Done()
			return
		}
		ch, err := h.Bus.Subscribe(ctx, events.BroadcastReady)
		if err != nil {
			log.Printf("walkie feed subscribe failed: %v", err)
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-ch:
				if !ok {
					return
				}
				if err := conn.send("broadcast", evt.Payload); err != nil {
					return
				}
			}
		}
	})
}
