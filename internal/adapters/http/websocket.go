package http

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	natsadapter "github.com/samirrijal/geoportal/internal/adapters/nats"
	"github.com/samirrijal/geoportal/internal/pkg/metrics"
)

// wsMessage is sent from client to toggle the AOI event feed.
type wsMessage struct {
	Action  string `json:"action"`  // "subscribe" | "unsubscribe"
	Channel string `json:"channel"` // "events"
}

// WebSocketHandler relays one workspace's map surface operations
// (geoportal.map.<workspace>) to the browser map. Clients may also send
// {"action":"subscribe","channel":"events"} to receive AOI lifecycle events.
func WebSocketHandler(nc *nats.Conn) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		workspaceID := c.Params("workspace")
		log := slog.Default().With("workspace_id", workspaceID, "remote", c.RemoteAddr().String())
		log.Info("ws client connected")
		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		var mu sync.Mutex
		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}
		relay := func(msg *nats.Msg) {
			_ = writeJSON(json.RawMessage(msg.Data))
		}

		if nc == nil {
			_ = writeJSON(map[string]string{"error": "map relay is not configured"})
			return
		}

		mapSub, err := nc.Subscribe(natsadapter.MapSubject(workspaceID), relay)
		if err != nil {
			log.Error("ws map subscribe failed", "error", err)
			return
		}
		var eventSub *nats.Subscription

		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				_ = writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}
			if m.Channel != "events" {
				_ = writeJSON(map[string]string{"error": "unknown channel: " + m.Channel})
				continue
			}
			subject := natsadapter.AOISubject(workspaceID, "*")

			switch m.Action {
			case "subscribe":
				if eventSub != nil {
					_ = writeJSON(map[string]string{"status": "already subscribed", "subject": subject})
					continue
				}
				s, err := nc.Subscribe(subject, relay)
				if err != nil {
					_ = writeJSON(map[string]string{"error": "subscribe failed: " + err.Error()})
					continue
				}
				eventSub = s
				_ = writeJSON(map[string]string{"status": "subscribed", "subject": subject})

			case "unsubscribe":
				if eventSub == nil {
					_ = writeJSON(map[string]string{"error": "not subscribed to " + subject})
					continue
				}
				_ = eventSub.Unsubscribe()
				eventSub = nil
				_ = writeJSON(map[string]string{"status": "unsubscribed", "subject": subject})

			default:
				_ = writeJSON(map[string]string{"error": "unknown action: " + m.Action})
			}
		}

		close(done)
		_ = mapSub.Unsubscribe()
		if eventSub != nil {
			_ = eventSub.Unsubscribe()
		}
		log.Info("ws client disconnected")
	}
}
