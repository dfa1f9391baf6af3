package controllers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/blogthread/config"
	"github.com/cppla/blogthread/middleware"
	"github.com/cppla/blogthread/models"
	"github.com/cppla/blogthread/services"
	"github.com/cppla/blogthread/store"
	"github.com/cppla/blogthread/utils"
)

// AuthController issues and revokes author tokens.
type AuthController struct {
	users store.UserStore
}

// NewAuthController creates an AuthController.
func NewAuthController(users store.UserStore) *AuthController {
	return &AuthController{users: users}
}

// Login verifies user credentials and issues a JWT.
func (a *AuthController) Login(ctx *gin.Context) {
	type request struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "invalid request payload")
		return
	}

	user, err := a.users.FindUserByUsername(ctx.Request.Context(), strings.TrimSpace(req.Username))
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			respondError(ctx, &services.Error{Kind: services.ErrStoreUnavailable, Message: "Unable to load user", Err: err})
			return
		}
		utils.BurnPasswordCheck(req.Password)
		utils.Error(ctx, http.StatusUnauthorized, "invalid username or password")
		return
	}
	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, "invalid username or password")
		return
	}

	ttl := time.Duration(config.Get().TokenTTLMinutes) * time.Minute
	token, expiresAt, err := utils.GenerateToken(user.ID, user.Username, ttl)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to generate token")
		return
	}

	utils.Success(ctx, "Logged in", gin.H{
		"token":      token,
		"expires_at": expiresAt,
		"user": gin.H{
			"id":       user.ID,
			"username": user.Username,
			"author":   user.Author || config.Get().IsAuthorUsername(user.Username),
		},
	})
}

// Logout invalidates the token by blacklisting it until expiration.
func (a *AuthController) Logout(ctx *gin.Context) {
	token, ok := middleware.Token(ctx)
	if !ok {
		parts := strings.SplitN(ctx.GetHeader("Authorization"), " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			utils.Error(ctx, http.StatusUnauthorized, "invalid authorization header")
			return
		}
		token = strings.TrimSpace(parts[1])
	}

	claims, err := utils.ParseToken(token)
	if err != nil {
		utils.Error(ctx, http.StatusUnauthorized, "invalid token")
		return
	}

	expiresAt := time.Now().Add(time.Duration(config.Get().TokenTTLMinutes) * time.Minute)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	utils.BlacklistToken(token, expiresAt)
	utils.Success(ctx, "Logged out", nil)
}

// SeedAuthor creates the author account on first start. An existing username is left alone.
func SeedAuthor(ctx context.Context, users store.UserStore, username, password string) (bool, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return false, nil
	}
	if _, err := users.FindUserByUsername(ctx, username); err == nil {
		return false, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return false, err
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return false, err
	}
	id, err := services.NewID()
	if err != nil {
		return false, err
	}
	err = users.InsertUser(ctx, &models.User{ID: id, Username: username, PasswordHash: hash, Author: true})
	if errors.Is(err, store.ErrDuplicate) {
		return false, nil
	}
	return err == nil, err
}
