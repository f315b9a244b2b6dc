// handlers_diagram.go - Diagram generation session handlers
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/plc-diagram/backend/internal/diagram"
	"github.com/plc-diagram/backend/internal/extract"
	"github.com/plc-diagram/backend/internal/models"
	"github.com/plc-diagram/backend/internal/session"
	"github.com/plc-diagram/backend/internal/storage"
	"github.com/vmihailenco/msgpack/v5"
)

// DiagramHandlerImpl implements the DiagramHandler interface
type DiagramHandlerImpl struct {
	store          storage.Store
	sessionMgr     *session.Manager
	history        *storage.HistoryStore
	profile        extract.Profile
	defaultGrammar string
}

// NewDiagramHandler creates a new diagram handler instance
func NewDiagramHandler(store storage.Store, sessionMgr *session.Manager, history *storage.HistoryStore, profile extract.Profile, defaultGrammar string) DiagramHandler {
	return &DiagramHandlerImpl{
		store:          store,
		sessionMgr:     sessionMgr,
		history:        history,
		profile:        profile,
		defaultGrammar: defaultGrammar,
	}
}

// HandleStartGenerate starts a new diagram generation session for a file
func (h *DiagramHandlerImpl) HandleStartGenerate(c echo.Context) error {
	var req startGenerateRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if req.FileID == "" {
		return NewValidationError("fileId")
	}

	if req.Grammar == "" {
		req.Grammar = h.defaultGrammar
	}
	grammar, err := diagram.ParseGrammar(req.Grammar)
	if err != nil {
		return NewBadRequestError("invalid grammar", err)
	}

	info, err := h.store.Get(req.FileID)
	if err != nil {
		return NewNotFoundError("file", req.FileID)
	}
	path, err := h.store.GetFilePath(req.FileID)
	if err != nil {
		return NewNotFoundError("file", req.FileID)
	}

	sess, err := h.sessionMgr.Start(session.GenerateRequest{
		FileID:            req.FileID,
		FilePath:          path,
		FileName:          info.Name,
		TagName:           req.Tag,
		Grammar:           grammar,
		Profile:           h.profile,
		AllowDefaultNames: req.AllowDefaultNames,
	})
	if err != nil {
		return NewInternalError("failed to start session", err)
	}

	return c.JSON(http.StatusAccepted, sess)
}

// HandleSessionStatus returns the current status of a generation session
func (h *DiagramHandlerImpl) HandleSessionStatus(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}

	sess, ok := h.sessionMgr.GetSession(id)
	if !ok {
		return NewNotFoundError("session", id)
	}

	// Touch session to prevent cleanup while being viewed
	h.sessionMgr.TouchSession(id)

	return c.JSON(http.StatusOK, sess)
}

// HandleSessionKeepAlive extends session lifetime for active viewing
func (h *DiagramHandlerImpl) HandleSessionKeepAlive(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}

	if ok := h.sessionMgr.TouchSession(id); !ok {
		return NewNotFoundError("session", id)
	}

	return c.NoContent(http.StatusNoContent)
}

// HandleProgressStream streams generation progress via SSE
func (h *DiagramHandlerImpl) HandleProgressStream(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}

	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)

	sess, ok := h.sessionMgr.GetSession(id)
	if !ok {
		h.sendSSEError(c, "session not found")
		return nil
	}
	h.sendSSEData(c, sess)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	timeout := time.NewTimer(5 * time.Minute)
	defer timeout.Stop()

	for {
		select {
		case <-ticker.C:
			sess, ok := h.sessionMgr.GetSession(id)
			if !ok {
				h.sendSSEError(c, "session not found")
				return nil
			}

			h.sendSSEData(c, sess)

			if sess.Status == models.SessionStatusComplete ||
				sess.Status == models.SessionStatusError {
				return nil
			}

		case <-timeout.C:
			h.sendSSEError(c, "stream timeout")
			return nil
		}
	}
}

// HandleGetDiagram returns the rendered markdown document for a completed session
func (h *DiagramHandlerImpl) HandleGetDiagram(c echo.Context) error {
	result, apiErr := h.completedResult(c)
	if apiErr != nil {
		return apiErr
	}

	return c.Blob(http.StatusOK, "text/markdown; charset=utf-8",
		[]byte(diagram.MarkdownDocument(result.Diagram)))
}

// HandleGetResult returns the full generation result as JSON
func (h *DiagramHandlerImpl) HandleGetResult(c echo.Context) error {
	result, apiErr := h.completedResult(c)
	if apiErr != nil {
		return apiErr
	}

	return c.JSON(http.StatusOK, result)
}

// HandleGetResultMsgpack returns the full generation result as a msgpack blob
func (h *DiagramHandlerImpl) HandleGetResultMsgpack(c echo.Context) error {
	result, apiErr := h.completedResult(c)
	if apiErr != nil {
		return apiErr
	}

	data, err := msgpack.Marshal(result)
	if err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}

	return c.Blob(http.StatusOK, "application/msgpack", data)
}

// HandleRecentGenerations returns the most recent generation history rows
func (h *DiagramHandlerImpl) HandleRecentGenerations(c echo.Context) error {
	if h.history == nil {
		return c.JSON(http.StatusOK, []*models.GenerationRecord{})
	}

	recs, err := h.history.Recent(20)
	if err != nil {
		return NewInternalError("failed to query generation history", err)
	}
	if recs == nil {
		recs = []*models.GenerationRecord{}
	}

	return c.JSON(http.StatusOK, recs)
}

// completedResult resolves a session id to its completed result, mapping
// the failure states to API errors.
func (h *DiagramHandlerImpl) completedResult(c echo.Context) (*models.DiagramResult, *APIError) {
	id := c.Param("sessionId")
	if id == "" {
		return nil, NewValidationError("sessionId")
	}

	sess, ok := h.sessionMgr.GetSession(id)
	if !ok {
		return nil, NewNotFoundError("session", id)
	}

	switch sess.Status {
	case models.SessionStatusError:
		return nil, NewGenerationError(sess.ErrorCode, sess.Error)
	case models.SessionStatusComplete:
		result, ok := h.sessionMgr.GetResult(id)
		if !ok {
			return nil, NewInternalError("session complete but result missing", nil)
		}
		h.sessionMgr.TouchSession(id)
		return result, nil
	default:
		return nil, &APIError{
			Status:  http.StatusConflict,
			Code:    "NOT_READY",
			Message: fmt.Sprintf("session %s is still %s", id, sess.Status),
		}
	}
}

func (h *DiagramHandlerImpl) sendSSEData(c echo.Context, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	fmt.Fprintf(c.Response(), "data: %s\n\n", data)
	c.Response().Flush()
}

func (h *DiagramHandlerImpl) sendSSEError(c echo.Context, msg string) {
	fmt.Fprintf(c.Response(), "event: error\ndata: %q\n\n", msg)
	c.Response().Flush()
}

// Request types

type startGenerateRequest struct {
	FileID            string `json:"fileId"`
	Tag               string `json:"tag,omitempty"`
	Grammar           string `json:"grammar,omitempty"` // "flowchart" (default) or "state"
	AllowDefaultNames bool   `json:"allowDefaultNames,omitempty"`
}
