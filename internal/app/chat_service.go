package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"career-counselor/internal/ai"
	"career-counselor/internal/cache"
	"career-counselor/internal/model"
	"career-counselor/internal/repository"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrMessageEmpty     = errors.New("message content is empty")
	ErrMessageTooLong   = errors.New("message content is too long")
	ErrTurnInProgress   = errors.New("another response is already being generated for this session")
	ErrGenerationFailed = ai.ErrGenerationFailed
)

const (
	maxTitleRunes      = 128
	maxMessageBytes    = 1 << 20
	maxResumeTextRunes = 20000
	resumeIntroduction = "Here is my resume. Please review it and help me understand my strengths, gaps, and possible next career steps."
)

// Responder produces assistant replies and session titles.
type Responder interface {
	Reply(ctx context.Context, transcript []ai.ChatMessage) (string, error)
	Title(ctx context.Context, seed string) (string, error)
}

type HistoryCache interface {
	GetHistory(ctx context.Context, sessionID uint) ([]model.Message, bool, error)
	SetHistory(ctx context.Context, sessionID uint, messages []model.Message) error
	DeleteHistory(ctx context.Context, sessionID uint) error
	MarkDirty(ctx context.Context, sessionID uint) error
	IsDirty(ctx context.Context, sessionID uint) (bool, error)
}

// TurnGuard serialises turns of one session. ok is false when another turn
// holds the session.
type TurnGuard interface {
	Acquire(ctx context.Context, sessionID uint) (*cache.TurnLease, bool, error)
}

type SessionEventPublisher interface {
	Publish(ctx context.Context, event model.SessionEvent) error
}

type ChatServiceConfig struct {
	UserRepo     *repository.UserRepository
	SessionRepo  *repository.SessionRepository
	MessageRepo  *repository.MessageRepository
	Responder    Responder
	HistoryCache HistoryCache
	TurnGuard    TurnGuard
	Events       SessionEventPublisher
	DefaultTitle string
	Logger       *zap.Logger
	Now          func() time.Time
}

type ChatService struct {
	userRepo     *repository.UserRepository
	sessionRepo  *repository.SessionRepository
	messageRepo  *repository.MessageRepository
	responder    Responder
	historyCache HistoryCache
	turnGuard    TurnGuard
	events       SessionEventPublisher
	defaultTitle string
	logger       *zap.Logger
	now          func() time.Time
}

type CreateSessionInput struct {
	UserID uint
	Title  string
}

type RenameSessionInput struct {
	SessionID uint
	Title     string
}

type GenerateResponseInput struct {
	SessionID uint
	Content   string
}

func NewChatService(cfg ChatServiceConfig) *ChatService {
	s := &ChatService{
		userRepo:     cfg.UserRepo,
		sessionRepo:  cfg.SessionRepo,
		messageRepo:  cfg.MessageRepo,
		responder:    cfg.Responder,
		historyCache: cfg.HistoryCache,
		turnGuard:    cfg.TurnGuard,
		events:       cfg.Events,
		defaultTitle: strings.TrimSpace(cfg.DefaultTitle),
		logger:       cfg.Logger,
		now:          cfg.Now,
	}
	if s.defaultTitle == "" {
		s.defaultTitle = "New Career Discussion"
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	// stored timestamps keep millisecond precision
	clock := s.now
	s.now = func() time.Time { return clock().Truncate(time.Millisecond) }
	return s
}

// CreateSession opens a new conversation for an existing user. Both
// timestamps carry the same instant.
func (s *ChatService) CreateSession(ctx context.Context, input CreateSessionInput) (*model.Session, error) {
	if input.UserID == 0 {
		return nil, ErrInvalidInput
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		title = s.defaultTitle
	}
	if utf8.RuneCountInString(title) > maxTitleRunes {
		return nil, ErrInvalidInput
	}

	user, err := s.userRepo.GetByID(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	now := s.now()
	session := &model.Session{
		UserID:    input.UserID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, err
	}

	s.publish(ctx, model.SessionEventCreated, session)
	return session, nil
}

func (s *ChatService) GetSession(ctx context.Context, sessionID uint) (*model.Session, error) {
	if sessionID == 0 {
		return nil, ErrInvalidInput
	}
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// ListSessions returns the user's sessions, most recently active first.
func (s *ChatService) ListSessions(ctx context.Context, userID uint) ([]model.Session, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	return s.sessionRepo.ListByUserID(ctx, userID)
}

// RenameSession sets the title and bumps updated_at. A session that does not
// exist yields (nil, nil).
func (s *ChatService) RenameSession(ctx context.Context, input RenameSessionInput) (*model.Session, error) {
	if input.SessionID == 0 {
		return nil, ErrInvalidInput
	}
	title := strings.TrimSpace(input.Title)
	if title == "" || utf8.RuneCountInString(title) > maxTitleRunes {
		return nil, ErrInvalidInput
	}

	session, err := s.sessionRepo.Rename(ctx, input.SessionID, title, s.now())
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}

	s.publish(ctx, model.SessionEventRenamed, session)
	return session, nil
}

// DeleteSession removes the session and its messages. It reports whether a
// session was removed.
func (s *ChatService) DeleteSession(ctx context.Context, sessionID uint) (bool, error) {
	if sessionID == 0 {
		return false, ErrInvalidInput
	}

	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return false, err
	}
	if session == nil {
		return false, nil
	}

	s.invalidateHistory(ctx, sessionID)
	deleted, err := s.sessionRepo.DeleteCascade(ctx, sessionID)
	if err != nil {
		return false, err
	}
	if s.historyCache != nil {
		_ = s.historyCache.DeleteHistory(ctx, sessionID)
	}
	if deleted {
		s.publish(ctx, model.SessionEventDeleted, session)
	}
	return deleted, nil
}

// ListMessages returns the transcript in creation order. A missing session
// has an empty transcript.
func (s *ChatService) ListMessages(ctx context.Context, sessionID uint) ([]model.Message, error) {
	if sessionID == 0 {
		return nil, ErrInvalidInput
	}
	return s.loadTranscript(ctx, sessionID)
}

// GenerateResponse runs one turn: the reply is generated from the stored
// transcript plus the new user text, and only then are the user and
// assistant messages stored. A failed generation stores nothing.
func (s *ChatService) GenerateResponse(ctx context.Context, input GenerateResponseInput) (*model.Message, error) {
	if input.SessionID == 0 {
		return nil, ErrInvalidInput
	}
	if strings.TrimSpace(input.Content) == "" {
		return nil, ErrMessageEmpty
	}
	if len(input.Content) > maxMessageBytes {
		return nil, ErrMessageTooLong
	}

	session, err := s.sessionRepo.GetByID(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	logger := s.logger.With(zap.Uint("session_id", session.ID))

	var lease *cache.TurnLease
	if s.turnGuard != nil {
		var ok bool
		lease, ok, err = s.turnGuard.Acquire(ctx, session.ID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrTurnInProgress
		}
		defer lease.Release()
	}

	history, err := s.loadTranscript(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	transcript := make([]ai.ChatMessage, 0, len(history)+1)
	for _, item := range history {
		transcript = append(transcript, ai.ChatMessage{Role: item.Role, Content: item.Content})
	}
	transcript = append(transcript, ai.ChatMessage{Role: ai.RoleUser, Content: input.Content})

	reply, err := s.responder.Reply(ctx, transcript)
	if err != nil {
		logger.Error("generate reply failed", zap.Error(err))
		if !errors.Is(err, ErrGenerationFailed) {
			err = fmt.Errorf("%w: %w", ErrGenerationFailed, err)
		}
		return nil, err
	}
	if strings.TrimSpace(reply) == "" {
		reply = ai.FallbackReply
	}

	// the reply may have taken most of the lock TTL
	if err := lease.Refresh(ctx); err != nil {
		if errors.Is(err, cache.ErrLockLost) {
			logger.Warn("turn lock expired during generation")
			return nil, ErrTurnInProgress
		}
		logger.Warn("refresh turn lock failed", zap.Error(err))
	}

	s.invalidateHistory(ctx, session.ID)

	var lastAt time.Time
	if len(history) > 0 {
		lastAt = history[len(history)-1].CreatedAt
	}
	userMessage := &model.Message{
		SessionID: session.ID,
		Role:      model.RoleUser,
		Content:   input.Content,
		CreatedAt: notBefore(s.now(), lastAt),
	}
	if err := s.messageRepo.Create(ctx, userMessage); err != nil {
		logger.Error("save user message failed", zap.Error(err))
		return nil, err
	}

	assistantMessage := &model.Message{
		SessionID: session.ID,
		Role:      model.RoleAssistant,
		Content:   reply,
		CreatedAt: notBefore(s.now(), userMessage.CreatedAt),
	}
	if err := s.messageRepo.Create(ctx, assistantMessage); err != nil {
		logger.Error("save assistant message failed", zap.Error(err))
		return nil, err
	}

	updatedAt := notBefore(s.now(), assistantMessage.CreatedAt)
	if err := s.sessionRepo.Touch(ctx, session.ID, updatedAt); err != nil {
		logger.Error("touch session failed", zap.Error(err))
		return nil, err
	}
	session.UpdatedAt = updatedAt

	if len(history) == 0 {
		if err := lease.Refresh(ctx); err != nil {
			logger.Warn("refresh turn lock failed", zap.Error(err))
		}
		session.Title = s.deriveTitle(ctx, logger, input.Content)
		if err := s.sessionRepo.SetTitle(ctx, session.ID, session.Title); err != nil {
			logger.Warn("save session title failed", zap.Error(err))
		}
	}

	if s.historyCache != nil {
		_ = s.historyCache.DeleteHistory(ctx, session.ID)
	}
	s.publish(ctx, model.SessionEventUpdated, session)
	return assistantMessage, nil
}

// GenerateTitle derives a title from a seed message without touching any
// session. Failures fall back to the generic title.
func (s *ChatService) GenerateTitle(ctx context.Context, seed string) (string, error) {
	if strings.TrimSpace(seed) == "" {
		return "", ErrMessageEmpty
	}
	return s.deriveTitle(ctx, s.logger, seed), nil
}

// ResumeMessage builds the user text for a turn that shares a resume.
func ResumeMessage(resumeText string) (string, error) {
	text := strings.TrimSpace(resumeText)
	if text == "" {
		return "", ErrMessageEmpty
	}
	if utf8.RuneCountInString(text) > maxResumeTextRunes {
		text = string([]rune(text)[:maxResumeTextRunes])
	}
	return resumeIntroduction + "\n\n" + text, nil
}

func (s *ChatService) deriveTitle(ctx context.Context, logger *zap.Logger, seed string) string {
	title, err := s.responder.Title(ctx, seed)
	if err != nil {
		logger.Warn("generate session title failed", zap.Error(err))
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return ai.FallbackTitle
	}
	if utf8.RuneCountInString(title) > maxTitleRunes {
		title = string([]rune(title)[:maxTitleRunes])
	}
	return title
}

func (s *ChatService) loadTranscript(ctx context.Context, sessionID uint) ([]model.Message, error) {
	if s.historyCache != nil {
		dirty, err := s.historyCache.IsDirty(ctx, sessionID)
		if err == nil && !dirty {
			if cached, hit, cacheErr := s.historyCache.GetHistory(ctx, sessionID); cacheErr == nil && hit {
				return cached, nil
			}
		}
	}

	messages, err := s.messageRepo.ListBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.historyCache != nil && len(messages) > 0 {
		if dirty, dirtyErr := s.historyCache.IsDirty(ctx, sessionID); dirtyErr == nil && !dirty {
			_ = s.historyCache.SetHistory(ctx, sessionID, messages)
		}
	}
	return messages, nil
}

func (s *ChatService) invalidateHistory(ctx context.Context, sessionID uint) {
	if s.historyCache == nil {
		return
	}
	_ = s.historyCache.MarkDirty(ctx, sessionID)
	_ = s.historyCache.DeleteHistory(ctx, sessionID)
}

func (s *ChatService) publish(ctx context.Context, eventType string, session *model.Session) {
	if s.events == nil {
		return
	}
	event := model.SessionEvent{
		Type:      eventType,
		UserID:    session.UserID,
		SessionID: session.ID,
		Title:     session.Title,
		At:        s.now(),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("publish session event failed",
			zap.String("type", eventType),
			zap.Uint("session_id", session.ID),
			zap.Error(err),
		)
	}
}

func notBefore(t, floor time.Time) time.Time {
	if t.Before(floor) {
		return floor
	}
	return t
}
