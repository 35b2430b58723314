package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/cloudwego/eino/schema"
	"github.com/go-chi/chi/v5"

	"github.com/copilot-ai/copilot/internal/logging"
	"github.com/copilot-ai/copilot/internal/provider"
	"github.com/copilot-ai/copilot/internal/session"
	"github.com/copilot-ai/copilot/pkg/types"
)

type createSessionRequest struct {
	UserID          string `json:"userId"`
	WorkspaceID     string `json:"workspaceId,omitempty"`
	DocID           string `json:"docId,omitempty"`
	PromptName      string `json:"promptName"`
	Pinned          bool   `json:"pinned,omitempty"`
	ReuseLatestChat bool   `json:"reuseLatestChat,omitempty"`
	Title           string `json:"title,omitempty"`
}

// createSession handles POST /session.
func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")
		return
	}
	if req.UserID == "" || req.PromptName == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "userId and promptName are required")
		return
	}

	state, err := s.sessions.Create(r.Context(), session.CreateOptions{
		UserID:          req.UserID,
		WorkspaceID:     req.WorkspaceID,
		DocID:           req.DocID,
		PromptName:      req.PromptName,
		Pinned:          req.Pinned,
		ReuseLatestChat: req.ReuseLatestChat,
		Title:           req.Title,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, state)
}

// listSessions handles GET /session. Filters come from query params.
func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := session.ListFilter{
		UserID:      q.Get("userId"),
		WorkspaceID: q.Get("workspaceId"),
		DocID:       q.Get("docId"),
		PromptName:  q.Get("prompt"),
	}
	if v := q.Get("pinned"); v != "" {
		pinned, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "pinned must be a boolean")
			return
		}
		filter.Pinned = &pinned
	}

	states, err := s.sessions.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"sessions": states})
}

// getSession handles GET /session/{sessionID}.
func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	state, err := s.sessions.GetState(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

type updateSessionRequest struct {
	PromptName *string `json:"promptName,omitempty"`
	DocID      *string `json:"docId,omitempty"`
	Pinned     *bool   `json:"pinned,omitempty"`
	Title      *string `json:"title,omitempty"`
}

// updateSession handles PATCH /session/{sessionID}.
func (s *Server) updateSession(w http.ResponseWriter, r *http.Request) {
	var req updateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")
		return
	}

	state, err := s.sessions.Update(r.Context(), session.UpdateOptions{
		SessionID:  chi.URLParam(r, "sessionID"),
		PromptName: req.PromptName,
		DocID:      req.DocID,
		Pinned:     req.Pinned,
		Title:      req.Title,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, state)
}

// deleteSession handles DELETE /session/{sessionID}.
func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeSuccess(w)
}

type forkSessionRequest struct {
	MessageID string `json:"messageId"`
}

// forkSession handles POST /session/{sessionID}/fork.
func (s *Server) forkSession(w http.ResponseWriter, r *http.Request) {
	var req forkSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")
		return
	}
	if req.MessageID == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "messageId is required")
		return
	}

	state, err := s.sessions.Fork(r.Context(), session.ForkOptions{
		SessionID: chi.URLParam(r, "sessionID"),
		MessageID: req.MessageID,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, state)
}

type revertSessionRequest struct {
	RemoveUserMessage bool `json:"removeUserMessage,omitempty"`
}

// revertSession handles POST /session/{sessionID}/revert.
func (s *Server) revertSession(w http.ResponseWriter, r *http.Request) {
	var req revertSessionRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")
			return
		}
	}

	err := s.sessions.RevertLatestMessage(r.Context(), chi.URLParam(r, "sessionID"), req.RemoveUserMessage)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSuccess(w)
}

// getMessages handles GET /session/{sessionID}/message.
func (s *Server) getMessages(w http.ResponseWriter, r *http.Request) {
	state, err := s.sessions.GetState(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": state.Messages})
}

type sendMessageRequest struct {
	Content     string             `json:"content"`
	Attachments []types.Attachment `json:"attachments,omitempty"`
	Params      map[string]any     `json:"params,omitempty"`
	Stream      bool               `json:"stream,omitempty"`
}

// sendMessage handles POST /session/{sessionID}/message: it pushes the user
// turn, runs a completion over the session's context window and persists the
// assistant reply on release. With stream=true the reply is sent as SSE
// chunks; if the client disconnects mid-stream, whatever content already
// arrived is still staged for persistence.
func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")
		return
	}
	if req.Content == "" && len(req.Attachments) == 0 {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "message content is required")
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	chat, err := s.sessions.Get(r.Context(), sessionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	// Persistence must survive a dropped client connection.
	defer func() {
		if err := chat.Release(context.WithoutCancel(r.Context())); err != nil {
			logging.Error().Err(err).Str("session", sessionID).Msg("failed to persist session")
		}
	}()

	err = chat.Push(types.ChatMessage{
		Role:        types.RoleUser,
		Content:     req.Content,
		Attachments: req.Attachments,
		Params:      req.Params,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	p := chat.Prompt()
	prov, cond, err := s.resolveProvider(p.Model(), p.OptionalModels())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	messages := provider.ToSchemaMessages(chat.Finish(req.Params))

	if req.Stream {
		s.streamCompletion(w, r, chat, prov, cond, messages)
		return
	}

	text, err := prov.Text(r.Context(), cond, messages, p.Config())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if err := chat.Push(types.ChatMessage{Role: types.RoleAssistant, Content: text}); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"content": text})
}

// streamCompletion relays provider chunks as SSE and stages the accumulated
// reply, partial or complete, as the assistant turn.
func (s *Server) streamCompletion(w http.ResponseWriter, r *http.Request, chat *session.ChatSession, prov provider.Provider, cond types.ModelCondition, messages []*schema.Message) {
	stream, err := prov.StreamText(r.Context(), cond, messages, chat.Prompt().Config())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	defer stream.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	w.WriteHeader(http.StatusOK)

	var text string
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// The accumulated partial still gets staged below.
			logging.Warn().Err(err).Str("session", chat.State().ID).Msg("completion stream aborted")
			sse.writeEvent("error", map[string]string{"message": err.Error()})
			break
		}

		text += chunk.Content
		if err := sse.writeEvent("chunk", map[string]string{"content": chunk.Content}); err != nil {
			break
		}
	}

	if text != "" {
		if err := chat.Push(types.ChatMessage{Role: types.RoleAssistant, Content: text}); err != nil {
			logging.Error().Err(err).Str("session", chat.State().ID).Msg("failed to stage assistant reply")
		}
	}
	sse.writeEvent("done", map[string]string{"content": text})
}

// resolveProvider walks the prompt's model chain until a registered provider
// can serve it.
func (s *Server) resolveProvider(model string, fallbacks []string) (provider.Provider, types.ModelCondition, error) {
	chain := append([]string{model}, fallbacks...)
	for _, m := range chain {
		cond := types.ModelCondition{OutputType: types.OutputText, ModelID: m}
		if prov := s.factory.GetProvider(cond); prov != nil {
			return prov, cond, nil
		}
	}
	return nil, types.ModelCondition{}, provider.ErrNoProviderAvailable
}
