package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"career-counselor/internal/app"
	"career-counselor/internal/model"
	"career-counselor/internal/pkg/pdfextract"
	"career-counselor/internal/transport/http/middleware"
	"career-counselor/internal/transport/http/response"
)

const defaultPingInterval = 15 * time.Second

type EventSubscriber interface {
	Subscribe(ctx context.Context, userID uint) (<-chan model.SessionEvent, error)
}

type ChatHandler struct {
	chatService    *app.ChatService
	events         EventSubscriber
	resumeMaxBytes int64
	pingInterval   time.Duration
}

type CreateSessionRequest struct {
	Title string `json:"title" binding:"max=128"`
}

type RenameSessionRequest struct {
	Title string `json:"title" binding:"required,max=128"`
}

type SendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

type GenerateTitleRequest struct {
	Message string `json:"message" binding:"required"`
}

func NewChatHandler(chatService *app.ChatService, events EventSubscriber, resumeMaxBytes int64) *ChatHandler {
	return &ChatHandler{
		chatService:    chatService,
		events:         events,
		resumeMaxBytes: resumeMaxBytes,
		pingInterval:   defaultPingInterval,
	}
}

func (h *ChatHandler) CreateSession(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	// the body is optional, including chunked requests with no content
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	session, err := h.chatService.CreateSession(c.Request.Context(), app.CreateSessionInput{
		UserID: userID,
		Title:  req.Title,
	})
	if err != nil {
		writeChatError(c, err, "create session failed")
		return
	}

	response.OK(c, session)
}

func (h *ChatHandler) ListSessions(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	sessions, err := h.chatService.ListSessions(c.Request.Context(), userID)
	if err != nil {
		writeChatError(c, err, "list sessions failed")
		return
	}

	response.OK(c, sessions)
}

func (h *ChatHandler) RenameSession(c *gin.Context) {
	session, ok := h.ownedSession(c)
	if !ok {
		return
	}

	var req RenameSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	renamed, err := h.chatService.RenameSession(c.Request.Context(), app.RenameSessionInput{
		SessionID: session.ID,
		Title:     req.Title,
	})
	if err != nil {
		writeChatError(c, err, "rename session failed")
		return
	}
	if renamed == nil {
		response.Error(c, http.StatusNotFound, response.CodeSessionNotFound, app.ErrSessionNotFound.Error())
		return
	}

	response.OK(c, renamed)
}

func (h *ChatHandler) DeleteSession(c *gin.Context) {
	session, ok := h.ownedSession(c)
	if !ok {
		return
	}

	deleted, err := h.chatService.DeleteSession(c.Request.Context(), session.ID)
	if err != nil {
		writeChatError(c, err, "delete session failed")
		return
	}
	if !deleted {
		response.Error(c, http.StatusNotFound, response.CodeSessionNotFound, app.ErrSessionNotFound.Error())
		return
	}

	response.OK(c, gin.H{"deleted_session_id": session.ID})
}

func (h *ChatHandler) ListMessages(c *gin.Context) {
	session, ok := h.ownedSession(c)
	if !ok {
		return
	}

	messages, err := h.chatService.ListMessages(c.Request.Context(), session.ID)
	if err != nil {
		writeChatError(c, err, "list messages failed")
		return
	}

	response.OK(c, messages)
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	session, ok := h.ownedSession(c)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	h.runTurn(c, session.ID, req.Content)
}

// UploadResume runs a turn whose user text is the resume found in the
// multipart "file" field.
func (h *ChatHandler) UploadResume(c *gin.Context) {
	session, ok := h.ownedSession(c)
	if !ok {
		return
	}

	if h.resumeMaxBytes > 0 {
		// leave room for the multipart envelope
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.resumeMaxBytes+64<<10)
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			response.Error(c, http.StatusRequestEntityTooLarge, response.CodePayloadTooLarge, pdfextract.ErrTooLarge.Error())
			return
		}
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing resume file")
		return
	}
	if h.resumeMaxBytes > 0 && fileHeader.Size > h.resumeMaxBytes {
		response.Error(c, http.StatusRequestEntityTooLarge, response.CodePayloadTooLarge, pdfextract.ErrTooLarge.Error())
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "read resume file failed")
		return
	}
	defer file.Close()

	text, err := pdfextract.ExtractText(file, h.resumeMaxBytes)
	if err != nil {
		switch {
		case errors.Is(err, pdfextract.ErrTooLarge):
			response.Error(c, http.StatusRequestEntityTooLarge, response.CodePayloadTooLarge, err.Error())
		case errors.Is(err, pdfextract.ErrNoText):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		default:
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "resume must be a readable pdf")
		}
		return
	}

	content, err := app.ResumeMessage(text)
	if err != nil {
		writeChatError(c, err, "read resume failed")
		return
	}
	h.runTurn(c, session.ID, content)
}

func (h *ChatHandler) GenerateTitle(c *gin.Context) {
	var req GenerateTitleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	title, err := h.chatService.GenerateTitle(c.Request.Context(), req.Message)
	if err != nil {
		writeChatError(c, err, "generate title failed")
		return
	}

	response.OK(c, gin.H{"title": title})
}

// Events streams the caller's session events as server-sent events.
func (h *ChatHandler) Events(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	ctx := c.Request.Context()
	events, err := h.events.Subscribe(ctx, userID)
	if err != nil {
		_ = c.Error(err)
		response.Error(c, http.StatusServiceUnavailable, response.CodeServiceUnavailable, "subscribe events failed")
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("ready", gin.H{"user_id": userID})
	c.Writer.Flush()

	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	c.Stream(func(io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case event, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(event.Type, event)
			return true
		case now := <-ticker.C:
			c.SSEvent("ping", now.Unix())
			return true
		}
	})
}

// runTurn detaches the turn from the request so a client that goes away
// does not cancel it.
func (h *ChatHandler) runTurn(c *gin.Context, sessionID uint, content string) {
	ctx := context.WithoutCancel(c.Request.Context())

	message, err := h.chatService.GenerateResponse(ctx, app.GenerateResponseInput{
		SessionID: sessionID,
		Content:   content,
	})
	if err != nil {
		writeChatError(c, err, "generate response failed")
		return
	}

	response.OK(c, message)
}

// ownedSession loads the :id session and answers 404 when it is missing or
// belongs to someone else.
func (h *ChatHandler) ownedSession(c *gin.Context) (*model.Session, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return nil, false
	}

	sessionID64, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || sessionID64 == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid session id")
		return nil, false
	}

	session, err := h.chatService.GetSession(c.Request.Context(), uint(sessionID64))
	if err != nil {
		writeChatError(c, err, "fetch session failed")
		return nil, false
	}
	if session.UserID != userID {
		response.Error(c, http.StatusNotFound, response.CodeSessionNotFound, app.ErrSessionNotFound.Error())
		return nil, false
	}
	return session, true
}

func writeChatError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrMessageEmpty):
		response.Error(c, http.StatusBadRequest, response.CodeMessageEmpty, err.Error())
	case errors.Is(err, app.ErrMessageTooLong):
		response.Error(c, http.StatusRequestEntityTooLarge, response.CodePayloadTooLarge, err.Error())
	case errors.Is(err, app.ErrSessionNotFound):
		response.Error(c, http.StatusNotFound, response.CodeSessionNotFound, app.ErrSessionNotFound.Error())
	case errors.Is(err, app.ErrUserNotFound):
		response.Error(c, http.StatusNotFound, response.CodeUserNotFound, err.Error())
	case errors.Is(err, app.ErrTurnInProgress):
		response.Error(c, http.StatusConflict, response.CodeTurnInProgress, err.Error())
	case errors.Is(err, app.ErrGenerationFailed):
		_ = c.Error(err)
		response.Error(c, http.StatusBadGateway, response.CodeGenerationFailed, app.ErrGenerationFailed.Error())
	default:
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
	}
}
