package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"career-counselor/internal/model"
)

type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, session *model.Session) error {
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return fmt.Errorf("create session failed: %w", err)
	}
	return nil
}

func (r *SessionRepository) GetByID(ctx context.Context, sessionID uint) (*model.Session, error) {
	var session model.Session
	if err := r.db.WithContext(ctx).First(&session, sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session failed: %w", err)
	}
	return &session, nil
}

func (r *SessionRepository) ListByUserID(ctx context.Context, userID uint) ([]model.Session, error) {
	sessions := make([]model.Session, 0)
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Order("id DESC").
		Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("list sessions failed: %w", err)
	}
	return sessions, nil
}

// Rename sets title and updated_at. A missing id is not an error: the
// returned session is nil.
func (r *SessionRepository) Rename(ctx context.Context, sessionID uint, title string, now time.Time) (*model.Session, error) {
	err := r.db.WithContext(ctx).
		Model(&model.Session{}).
		Where("id = ?", sessionID).
		UpdateColumns(map[string]interface{}{
			"title":      title,
			"updated_at": now,
		}).Error
	if err != nil {
		return nil, fmt.Errorf("rename session failed: %w", err)
	}
	return r.GetByID(ctx, sessionID)
}

// Touch bumps updated_at without changing anything else.
func (r *SessionRepository) Touch(ctx context.Context, sessionID uint, now time.Time) error {
	if err := r.db.WithContext(ctx).
		Model(&model.Session{}).
		Where("id = ?", sessionID).
		UpdateColumn("updated_at", now).Error; err != nil {
		return fmt.Errorf("touch session failed: %w", err)
	}
	return nil
}

// SetTitle writes the title only; updated_at is left alone.
func (r *SessionRepository) SetTitle(ctx context.Context, sessionID uint, title string) error {
	if err := r.db.WithContext(ctx).
		Model(&model.Session{}).
		Where("id = ?", sessionID).
		UpdateColumn("title", title).Error; err != nil {
		return fmt.Errorf("set session title failed: %w", err)
	}
	return nil
}

// DeleteCascade removes the session and every message in it in one
// transaction. It reports whether a session row was removed.
func (r *SessionRepository) DeleteCascade(ctx context.Context, sessionID uint) (bool, error) {
	var deleted bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", sessionID).Delete(&model.Message{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Session{}, sessionID)
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("delete session failed: %w", err)
	}
	return deleted, nil
}
