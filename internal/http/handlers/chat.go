package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	types "github.com/yungbote/coursework-backend/internal/domain"
	"github.com/yungbote/coursework-backend/internal/http/middleware"
	"github.com/yungbote/coursework-backend/internal/http/response"
	"github.com/yungbote/coursework-backend/internal/modules/coursework/chat"
	"github.com/yungbote/coursework-backend/internal/platform/llmerr"
	"github.com/yungbote/coursework-backend/internal/platform/logger"
	"github.com/yungbote/coursework-backend/internal/realtime"
)

type ChatService interface {
	History(ctx context.Context, k chat.Key) ([]*types.ChatTurn, error)
	Clear(ctx context.Context, k chat.Key) ([]*types.ChatTurn, error)
	Ask(ctx context.Context, k chat.Key, credential, question string) (*types.ChatTurn, error)
	Stream(ctx context.Context, k chat.Key, credential, question string, emit func(realtime.Frame) error) (*types.ChatTurn, error)
	Cancel(ctx context.Context, k chat.Key) (bool, error)
}

type ChatHandler struct {
	log  *logger.Logger
	chat ChatService
}

func NewChatHandler(log *logger.Logger, svc ChatService) *ChatHandler {
	return &ChatHandler{log: log.With("handler", "ChatHandler"), chat: svc}
}

func chatKey(c *gin.Context) (chat.Key, bool) {
	aid, uid, ok := owner(c)
	return chat.Key{AssignmentID: aid, UserID: uid}, ok
}

// GET /api/assignments/:id/chat
func (h *ChatHandler) History(c *gin.Context) {
	k, ok := chatKey(c)
	if !ok {
		return
	}
	turns, err := h.chat.History(c.Request.Context(), k)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"turns": turns})
}

// DELETE /api/assignments/:id/chat
func (h *ChatHandler) Clear(c *gin.Context) {
	k, ok := chatKey(c)
	if !ok {
		return
	}
	turns, err := h.chat.Clear(c.Request.Context(), k)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"turns": turns})
}

type askReq struct {
	Question string `json:"question" binding:"required"`
}

// POST /api/assignments/:id/chat
// Model failures still answer 200: the stored error turn is the reply and the
// notice labels it.
func (h *ChatHandler) Ask(c *gin.Context) {
	k, ok := chatKey(c)
	if !ok {
		return
	}
	var req askReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	turn, err := h.chat.Ask(c.Request.Context(), k, middleware.LLMKey(c), req.Question)
	var classified *llmerr.Classified
	switch {
	case err == nil:
		response.RespondOK(c, gin.H{"turn": turn})
	case turn != nil && errors.As(err, &classified):
		response.RespondOK(c, gin.H{"turn": turn, "notice": classified.Notice(), "error_kind": classified.Kind})
	default:
		respondErr(c, err)
	}
}

// POST /api/assignments/:id/chat/stream
func (h *ChatHandler) Stream(c *gin.Context) {
	k, ok := chatKey(c)
	if !ok {
		return
	}
	var req askReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		respondErr(c, chat.ErrEmptyQuestion)
		return
	}

	realtime.SetStreamHeaders(c.Writer.Header())
	c.Status(http.StatusOK)
	w := realtime.NewWriter(c.Writer)
	_ = w.Comment("stream open")

	_, err := h.chat.Stream(c.Request.Context(), k, middleware.LLMKey(c), req.Question, w.Send)
	if err != nil && !errors.As(err, new(*llmerr.Classified)) {
		// Failures before a turn could be stored; the client still gets a terminal frame.
		h.log.Warn("Chat stream failed", "assignment_id", k.AssignmentID, "error", err)
		ae := toAPIError(err)
		_ = w.Send(realtime.ErrorFrame(ae.Error(), ae.Notice))
	}
}

// POST /api/assignments/:id/chat/cancel
func (h *ChatHandler) Cancel(c *gin.Context) {
	k, ok := chatKey(c)
	if !ok {
		return
	}
	found, err := h.chat.Cancel(c.Request.Context(), k)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"canceled": found})
}
