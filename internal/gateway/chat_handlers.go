package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/soyeahso/mcpchat/internal/chat"
	"github.com/soyeahso/mcpchat/internal/domain"
	"github.com/soyeahso/mcpchat/internal/stream"
)

// handleChat runs a submission and streams the reply. Errors are plain text.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	if !p.Authenticated() {
		s.textError(w, r, domain.ErrUnauthenticated)
		return
	}
	var req chat.SubmitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.textError(w, r, err)
		return
	}

	reply, err := s.chat.Submit(r.Context(), p, req)
	if err != nil {
		s.textError(w, r, err)
		return
	}

	stream.SetHeaders(w.Header())
	w.WriteHeader(http.StatusOK)
	if err := stream.Encode(w, reply.MessageID, reply.Content); err != nil {
		s.log.Debug().Err(err).Str("chat", req.ID).Msg("client went away during stream")
	}
}

// handleChatWebSocket serves the same submission over a WebSocket: the
// first client message is the request, each frame is one text message.
func (s *Server) handleChatWebSocket(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	if !p.Authenticated() {
		s.textError(w, r, domain.ErrUnauthenticated)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	conn.SetReadLimit(maxPayload)

	client := NewClient(conn, p, s.log.Sub("ws"))
	s.clients.Add(client)
	defer func() {
		s.clients.Remove(client.ConnID)
		client.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	var req chat.SubmitRequest
	if err := conn.ReadJSON(&req); err != nil {
		s.sendWSError(client, r, domain.Invalid("", "Invalid request body"))
		return
	}
	conn.SetReadDeadline(time.Time{})

	// A client close cancels the submission.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	reply, err := s.chat.Submit(ctx, p, req)
	if err != nil {
		s.sendWSError(client, r, err)
		return
	}
	for _, ev := range stream.Frames(reply.MessageID, reply.Content) {
		if err := client.SendText(stream.EncodeFrame(ev)); err != nil {
			s.log.Debug().Err(err).Str("connId", client.ConnID).Msg("client went away during stream")
			return
		}
	}
}

func (s *Server) sendWSError(c *Client, r *http.Request, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	status, msg := s.failure(r, err)
	c.SendJSON(stream.WSError{Type: "error", Content: msg, Status: status})
}

func (s *Server) handleDeleteChat(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.chat.DeleteChat(r.Context(), principalFrom(r.Context()), r.URL.Query().Get("id"))
	if err != nil {
		s.textError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deleted)
}

func (s *Server) handleListChats(w http.ResponseWriter, r *http.Request) {
	chats, err := s.chat.ListChats(r.Context(), principalFrom(r.Context()))
	if err != nil {
		s.jsonError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chats)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.chat.History(r.Context(), principalFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		s.jsonError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

type visibilityRequest struct {
	Visibility domain.Visibility `json:"visibility"`
}

func (s *Server) handlePatchChat(w http.ResponseWriter, r *http.Request) {
	var req visibilityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.jsonError(w, r, err)
		return
	}
	id := r.PathValue("id")
	if err := s.chat.SetVisibility(r.Context(), principalFrom(r.Context()), id, req.Visibility); err != nil {
		s.jsonError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "visibility": req.Visibility})
}

func (s *Server) handleDeleteTrailing(w http.ResponseWriter, r *http.Request) {
	n, err := s.chat.DeleteTrailingMessages(r.Context(), principalFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		s.jsonError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}
