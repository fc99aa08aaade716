// Command klaxon-server is a demo alert server for exercising the client.
// It accepts registrations on /ws and broadcasts a scripted set of alerts
// to every connected client.
package main

import (
	"flag"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/user/klaxon/internal/protocol"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type hub struct {
	mu      sync.Mutex
	clients map[protocol.ClientID]chan []byte
}

func newHub() *hub {
	return &hub{clients: make(map[protocol.ClientID]chan []byte)}
}

func (h *hub) add(id protocol.ClientID, send chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[id] = send
}

func (h *hub) remove(id protocol.ClientID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, id)
}

// broadcast fans a frame out to every client. Slow clients are skipped
// rather than blocking the rest.
func (h *hub) broadcast(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.clients {
		select {
		case ch <- data:
		default:
			slog.Warn("client send buffer full, dropping frame", "client_id", id)
		}
	}
}

func serveWS(h *hub, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	slog.Info("new connection", "remote", conn.RemoteAddr())

	send := make(chan []byte, 100)
	go func() {
		for data := range send {
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				slog.Warn("write failed", "error", err)
				return
			}
		}
	}()

	var clientID protocol.ClientID
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		env, err := protocol.Decode(data)
		if err != nil {
			slog.Warn("dropping malformed frame", "error", err)
			continue
		}
		switch env.Type {
		case protocol.TypeRegister:
			clientID = env.ClientID
			h.add(clientID, send)
			slog.Info("client registered", "client_id", clientID, "hostname", env.Hostname)
		case protocol.TypeConfirmation:
			c := env.Confirmation
			slog.Info("confirmation received",
				"alert_id", c.AlertID,
				"client_id", c.ClientID,
				"hostname", c.Hostname,
				"username", c.Username,
			)
		case protocol.TypeHeartbeat:
			slog.Debug("heartbeat", "client_id", clientID)
		default:
			slog.Warn("unexpected frame", "type", env.Type)
		}
	}

	if clientID != "" {
		h.remove(clientID)
		slog.Info("client disconnected", "client_id", clientID)
	}
	close(send)
}

func scriptedAlerts() []protocol.Alert {
	seeds := []struct {
		title   string
		message string
		level   protocol.Level
		confirm bool
	}{
		{"Info Alert", "This is an informational message", protocol.LevelInfo, false},
		{"Warning Alert", "This requires your attention", protocol.LevelWarning, true},
		{"Critical Alert", "Critical system event detected!", protocol.LevelCritical, true},
		{"Emergency Alert", "IMMEDIATE ACTION REQUIRED", protocol.LevelEmergency, true},
	}
	alerts := make([]protocol.Alert, 0, len(seeds))
	for _, s := range seeds {
		alerts = append(alerts, protocol.Alert{
			ID:                   protocol.NewAlertID(),
			Title:                s.title,
			Message:              s.message,
			Level:                s.level,
			RequiresConfirmation: s.confirm,
			Timestamp:            time.Now().UTC(),
		})
	}
	return alerts
}

func sendTestAlerts(h *hub, interval time.Duration) {
	time.Sleep(interval / 2)

	for i, alert := range scriptedAlerts() {
		time.Sleep(interval)

		data, err := protocol.Encode(protocol.AlertEnvelope(alert))
		if err != nil {
			slog.Error("encode alert failed", "error", err)
			continue
		}
		slog.Info("sending test alert", "n", i+1, "title", alert.Title, "level", alert.Level)
		h.broadcast(data)
	}

	slog.Info("all test alerts sent, server keeps running")
}

func main() {
	listen := flag.String("listen", "127.0.0.1:8080", "listen address")
	interval := flag.Duration("interval", 10*time.Second, "delay between test alerts")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))

	h := newHub()
	go sendTestAlerts(h, *interval)

	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		serveWS(h, w, r)
	})

	slog.Info("alert server listening", "addr", *listen)
	if err := http.ListenAndServe(*listen, nil); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
