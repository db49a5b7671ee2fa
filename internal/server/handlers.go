// Package server exposes HTTP handlers, including WebSocket upgrades, the
// health check, and the built-in chat page.
package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relaychat/relaychat/internal/config"
	"github.com/relaychat/relaychat/internal/store"
)

// Handlers bundles the dependencies shared by the HTTP endpoints. The hub and
// store are injected at construction; there is no package-level state.
type Handlers struct {
	hub      *Hub
	store    store.MessageStore
	upgrader websocket.Upgrader

	historyLimit   int
	maxMessageSize int64
	rateBurst      int
	rateInterval   time.Duration
}

// NewHandlers wires the endpoint handlers with their dependencies and the
// origin policy derived from configuration.
func NewHandlers(cfg *config.Config, hub *Hub, st store.MessageStore) *Handlers {
	policy := newOriginPolicy(cfg.Origins())

	return &Handlers{
		hub:   hub,
		store: st,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     policy.check,
		},
		historyLimit:   cfg.HistoryLimit,
		maxMessageSize: cfg.MaxMessageSize,
		rateBurst:      cfg.RateLimitBurst,
		rateInterval:   cfg.RateLimitRefillInterval,
	}
}

// WebSocket upgrades the HTTP connection and hands it to a new session,
// which owns the connection's lifecycle from here on.
func (h *Handlers) WebSocket(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("WebSocket upgrade failed", "addr", r.RemoteAddr, "error", err)
		return
	}

	limiter := newRateLimiter(h.rateBurst, h.rateInterval)
	client := NewClient(conn, h.hub, r.RemoteAddr, h.maxMessageSize, limiter)
	session := NewSession(h.hub, h.store, client, h.historyLimit)

	go session.Run()
}

// Health responds with a plain text message indicating the server is running.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprint(w, "RelayChat server is running!")
}

// ChatPage serves the built-in chat client. It connects to the WebSocket
// endpoint, renders replayed history and live broadcasts, and sends
// {sender, message} frames.
func (h *Handlers) ChatPage(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	if _, err := fmt.Fprint(w, chatPageHTML); err != nil {
		slog.Warn("Error writing HTML response", "error", err)
	}
}

const chatPageHTML = `<!DOCTYPE html>
<html>
<head>
    <title>RelayChat</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        #messages {
            border: 1px solid #ccc;
            height: 300px;
            padding: 10px;
            overflow-y: scroll;
            margin: 10px 0;
            background-color: #f9f9f9;
        }
        input[type="text"] { padding: 5px; margin-right: 10px; }
        #senderInput { width: 120px; }
        #messageInput { width: 300px; }
        button {
            padding: 5px 15px;
            background-color: #007cba;
            color: white;
            border: none;
            cursor: pointer;
        }
        button:hover { background-color: #005a87; }
        .history { color: gray; }
        .sender { font-weight: bold; }
    </style>
</head>
<body>
    <h1>RelayChat</h1>

    <div id="messages"></div>

    <div>
        <input type="text" id="senderInput" placeholder="Your name">
        <input type="text" id="messageInput" placeholder="Type a message...">
        <button onclick="sendMessage()">Send</button>
    </div>

    <script>
        const messagesDiv = document.getElementById('messages');
        const senderInput = document.getElementById('senderInput');
        const messageInput = document.getElementById('messageInput');

        const proto = location.protocol === 'https:' ? 'wss://' : 'ws://';
        const ws = new WebSocket(proto + location.host + '/ws');

        function addMessage(frame) {
            const el = document.createElement('div');
            if (frame.timestamp) {
                el.className = 'history';
            }
            const sender = document.createElement('span');
            sender.className = 'sender';
            sender.textContent = frame.sender + ': ';
            el.appendChild(sender);
            el.appendChild(document.createTextNode(frame.message));
            messagesDiv.appendChild(el);
            messagesDiv.scrollTop = messagesDiv.scrollHeight;
        }

        ws.onmessage = function(event) {
            for (const line of event.data.split('\n')) {
                if (line) {
                    addMessage(JSON.parse(line));
                }
            }
        };

        function sendMessage() {
            const message = messageInput.value.trim();
            if (message && ws.readyState === WebSocket.OPEN) {
                ws.send(JSON.stringify({
                    sender: senderInput.value.trim(),
                    message: message
                }));
                messageInput.value = '';
            }
        }

        messageInput.addEventListener('keypress', function(e) {
            if (e.key === 'Enter') {
                sendMessage();
            }
        });
    </script>
</body>
</html>`
