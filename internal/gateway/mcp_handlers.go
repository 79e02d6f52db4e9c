package gateway

import (
	"errors"
	"net/http"

	"github.com/soyeahso/mcpchat/internal/domain"
	"github.com/soyeahso/mcpchat/internal/providers"
	"github.com/soyeahso/mcpchat/internal/tools"
)

// redact drops stored credentials from provider responses.
func redact(p domain.ToolProvider) domain.ToolProvider {
	p.Credentials = nil
	return p
}

func (s *Server) handleListServers(w http.ResponseWriter, r *http.Request) {
	list, err := s.providers.List(r.Context(), principalFrom(r.Context()))
	if err != nil {
		s.jsonError(w, r, err)
		return
	}
	for i := range list {
		list[i] = redact(list[i])
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateServer(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	if !p.Authenticated() {
		s.jsonError(w, r, domain.ErrUnauthenticated)
		return
	}
	var req providers.CreateProvider
	if err := decodeJSON(w, r, &req); err != nil {
		s.jsonError(w, r, err)
		return
	}
	created, err := s.providers.Create(r.Context(), p, req)
	if err != nil {
		s.jsonError(w, r, err)
		return
	}
	created.Provider = redact(created.Provider)
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handlePatchServer(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	if !p.Authenticated() {
		s.jsonError(w, r, domain.ErrUnauthenticated)
		return
	}
	var patch providers.PatchProvider
	if err := decodeJSON(w, r, &patch); err != nil {
		s.jsonError(w, r, err)
		return
	}
	updated, err := s.providers.Patch(r.Context(), p, r.PathValue("id"), patch)
	if err != nil {
		s.jsonError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, redact(*updated))
}

func (s *Server) handleDeleteServer(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.providers.Delete(r.Context(), principalFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		s.jsonError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, redact(*deleted))
}

func (s *Server) handlePingServer(w http.ResponseWriter, r *http.Request) {
	ok, err := s.providers.Ping(r.Context(), principalFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		s.jsonError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": ok})
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	reg, err := s.providers.Tools(r.Context(), principalFrom(r.Context()))
	if err != nil {
		s.jsonError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tools": reg.Definitions()})
}

type callToolRequest struct {
	Arguments map[string]any `json:"arguments"`
}

type callToolResponse struct {
	Success bool   `json:"success"`
	Result  any    `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) handleCallTool(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	if !p.Authenticated() {
		s.jsonError(w, r, domain.ErrUnauthenticated)
		return
	}
	var req callToolRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.jsonError(w, r, err)
		return
	}
	result, err := s.providers.CallTool(r.Context(), p, r.PathValue("name"), req.Arguments)
	var ee *tools.ExecutionError
	switch {
	case errors.As(err, &ee):
		writeJSON(w, http.StatusOK, callToolResponse{Success: false, Error: ee.Message})
	case err != nil:
		s.jsonError(w, r, err)
	default:
		writeJSON(w, http.StatusOK, callToolResponse{Success: true, Result: result})
	}
}
