package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"career-counselor/internal/app"
	"career-counselor/internal/model"
	"career-counselor/internal/transport/http/middleware"
	"career-counselor/internal/transport/http/response"
)

type AuthHandler struct {
	authService *app.AuthService
}

type IdentityRequest struct {
	Email string  `json:"email" binding:"required,email,max=128"`
	Name  string  `json:"name" binding:"max=128"`
	Image *string `json:"image" binding:"omitempty,max=512"`
}

type UpdateProfileRequest struct {
	Name  *string `json:"name" binding:"omitempty,max=128"`
	Image *string `json:"image" binding:"omitempty,max=512"`
}

func NewAuthHandler(authService *app.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Exchange is called by the identity provider after it has authenticated
// the user.
func (h *AuthHandler) Exchange(c *gin.Context) {
	var req IdentityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.authService.Exchange(c.Request.Context(), app.IdentityInput{
		Email: req.Email,
		Name:  req.Name,
		Image: req.Image,
	})
	if err != nil {
		writeUserError(c, err, "exchange identity failed")
		return
	}

	response.OK(c, gin.H{
		"token": result.Token,
		"user":  userView(result.User),
	})
}

func (h *AuthHandler) CreateUser(c *gin.Context) {
	var req IdentityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	user, err := h.authService.CreateUser(c.Request.Context(), app.IdentityInput{
		Email: req.Email,
		Name:  req.Name,
		Image: req.Image,
	})
	if err != nil {
		writeUserError(c, err, "create user failed")
		return
	}

	response.OK(c, userView(user))
}

func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	user, err := h.authService.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		writeUserError(c, err, "fetch current user failed")
		return
	}

	response.OK(c, userView(user))
}

func (h *AuthHandler) UpdateMe(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	user, err := h.authService.UpdateProfile(c.Request.Context(), app.UpdateProfileInput{
		UserID: userID,
		Name:   req.Name,
		Image:  req.Image,
	})
	if err != nil {
		writeUserError(c, err, "update profile failed")
		return
	}

	response.OK(c, userView(user))
}

func (h *AuthHandler) DeleteMe(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	if err := h.authService.DeleteUser(c.Request.Context(), userID); err != nil {
		writeUserError(c, err, "delete user failed")
		return
	}

	response.OK(c, gin.H{"deleted_user_id": userID})
}

func writeUserError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrEmailExists):
		response.Error(c, http.StatusConflict, response.CodeEmailExists, err.Error())
	case errors.Is(err, app.ErrUserNotFound):
		response.Error(c, http.StatusNotFound, response.CodeUserNotFound, err.Error())
	default:
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
	}
}

func userView(user *model.User) gin.H {
	return gin.H{
		"id":         user.ID,
		"email":      user.Email,
		"name":       user.Name,
		"image":      user.Image,
		"created_at": user.CreatedAt,
		"updated_at": user.UpdatedAt,
	}
}
