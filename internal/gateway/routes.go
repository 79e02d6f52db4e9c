package gateway

import "net/http"

// registerHTTPRoutes sets up all HTTP routes on the server mux.
func (s *Server) registerHTTPRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("DELETE /api/chat", s.handleDeleteChat)
	mux.HandleFunc("GET /api/chat/ws", s.handleChatWebSocket)
	mux.HandleFunc("GET /api/chats", s.handleListChats)
	mux.HandleFunc("GET /api/chat/{id}/messages", s.handleHistory)
	mux.HandleFunc("PATCH /api/chat/{id}", s.handlePatchChat)
	mux.HandleFunc("DELETE /api/messages/{id}/trailing", s.handleDeleteTrailing)

	mux.HandleFunc("GET /api/mcp/servers", s.handleListServers)
	mux.HandleFunc("POST /api/mcp/servers", s.handleCreateServer)
	mux.HandleFunc("PATCH /api/mcp/servers/{id}", s.handlePatchServer)
	mux.HandleFunc("DELETE /api/mcp/servers/{id}", s.handleDeleteServer)
	mux.HandleFunc("GET /api/mcp/servers/{id}/ping", s.handlePingServer)
	mux.HandleFunc("GET /api/mcp/tools", s.handleListTools)
	mux.HandleFunc("POST /api/mcp/tools/{name}/call", s.handleCallTool)

	// Catch-all for unknown routes
	mux.HandleFunc("/", handleNotFound)
}
