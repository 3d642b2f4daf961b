package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"career-counselor/internal/app"
	"career-counselor/internal/pkg/jwtutil"
	"career-counselor/internal/repository"
	"career-counselor/internal/testutil"
)

func newAuthService(t *testing.T) (*app.AuthService, *repository.SessionRepository, *app.ChatService) {
	t.Helper()
	db := testutil.NewDB(t)
	users := repository.NewUserRepository(db)
	sessions := repository.NewSessionRepository(db)
	chat := app.NewChatService(app.ChatServiceConfig{
		UserRepo:    users,
		SessionRepo: sessions,
		MessageRepo: repository.NewMessageRepository(db),
		Responder:   &stubResponder{reply: "ok", title: "t"},
	})
	return app.NewAuthService(users, "secret", time.Hour), sessions, chat
}

func TestAuthServiceCreateUser(t *testing.T) {
	svc, _, _ := newAuthService(t)
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, app.IdentityInput{Email: " Ada@Example.com ", Name: "Ada"})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, "Ada", user.Name)
	assert.Nil(t, user.Image)

	_, err = svc.CreateUser(ctx, app.IdentityInput{Email: "ada@example.com", Name: "Other"})
	assert.ErrorIs(t, err, app.ErrEmailExists)

	tests := []struct {
		name  string
		input app.IdentityInput
	}{
		{name: "empty email", input: app.IdentityInput{Name: "x"}},
		{name: "malformed email", input: app.IdentityInput{Email: "not-an-email"}},
		{name: "display form", input: app.IdentityInput{Email: "Bob <bob@example.com>"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateUser(ctx, tt.input)
			assert.ErrorIs(t, err, app.ErrInvalidInput)
		})
	}
}

func TestAuthServiceCreateUserDefaultsName(t *testing.T) {
	svc, _, _ := newAuthService(t)

	user, err := svc.CreateUser(context.Background(), app.IdentityInput{Email: "grace@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "grace", user.Name)
}

func TestAuthServiceExchangeIsCreateOrGet(t *testing.T) {
	svc, _, _ := newAuthService(t)
	ctx := context.Background()
	image := "https://example.com/ada.png"

	first, err := svc.Exchange(ctx, app.IdentityInput{Email: "ada@example.com", Name: "Ada", Image: &image})
	require.NoError(t, err)
	require.NotNil(t, first.User.Image)
	assert.Equal(t, image, *first.User.Image)

	second, err := svc.Exchange(ctx, app.IdentityInput{Email: "ADA@example.com", Name: "Someone else"})
	require.NoError(t, err)
	assert.Equal(t, first.User.ID, second.User.ID)
	assert.Equal(t, "Ada", second.User.Name)

	claims, err := jwtutil.ParseToken("secret", second.Token)
	require.NoError(t, err)
	assert.Equal(t, first.User.ID, claims.UserID)
	assert.Equal(t, "ada@example.com", claims.Email)
}

func TestAuthServiceUpdateProfile(t *testing.T) {
	svc, _, _ := newAuthService(t)
	ctx := context.Background()
	image := "https://example.com/ada.png"

	user, err := svc.CreateUser(ctx, app.IdentityInput{Email: "ada@example.com", Name: "Ada", Image: &image})
	require.NoError(t, err)

	name := "Ada Lovelace"
	updated, err := svc.UpdateProfile(ctx, app.UpdateProfileInput{UserID: user.ID, Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", updated.Name)
	require.NotNil(t, updated.Image)
	assert.Equal(t, image, *updated.Image)

	none := ""
	updated, err = svc.UpdateProfile(ctx, app.UpdateProfileInput{UserID: user.ID, Image: &none})
	require.NoError(t, err)
	assert.Nil(t, updated.Image)
	assert.Equal(t, "Ada Lovelace", updated.Name)

	blank := " "
	_, err = svc.UpdateProfile(ctx, app.UpdateProfileInput{UserID: user.ID, Name: &blank})
	assert.ErrorIs(t, err, app.ErrInvalidInput)

	_, err = svc.UpdateProfile(ctx, app.UpdateProfileInput{UserID: user.ID + 100, Name: &name})
	assert.ErrorIs(t, err, app.ErrUserNotFound)
}

func TestAuthServiceDeleteUserCascades(t *testing.T) {
	svc, sessions, chat := newAuthService(t)
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, app.IdentityInput{Email: "ada@example.com"})
	require.NoError(t, err)
	session, err := chat.CreateSession(ctx, app.CreateSessionInput{UserID: user.ID})
	require.NoError(t, err)
	_, err = chat.GenerateResponse(ctx, app.GenerateResponseInput{SessionID: session.ID, Content: "Hi"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteUser(ctx, user.ID))

	_, err = svc.GetUserByID(ctx, user.ID)
	assert.ErrorIs(t, err, app.ErrUserNotFound)
	stored, err := sessions.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Nil(t, stored)
	messages, err := chat.ListMessages(ctx, session.ID)
	require.NoError(t, err)
	assert.Empty(t, messages)

	assert.ErrorIs(t, svc.DeleteUser(ctx, user.ID), app.ErrUserNotFound)
}
