// Package server wires HTTP handlers into a ServeMux for the RelayChat
// application via routing helpers.
package server

import (
	"net/http"

	"github.com/relaychat/relaychat/internal/config"
	"github.com/relaychat/relaychat/internal/store"
)

// NewRouter configures and returns an HTTP ServeMux with all application
// routes: the chat page, the WebSocket endpoint, and the health check.
func NewRouter(cfg *config.Config, hub *Hub, st store.MessageStore) *http.ServeMux {
	handlers := NewHandlers(cfg, hub, st)

	mux := http.NewServeMux()
	mux.HandleFunc("/", handlers.ChatPage)
	mux.HandleFunc("/ws", handlers.WebSocket)
	mux.HandleFunc("/health", handlers.Health)
	return mux
}
