package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cppla/blogthread/config"
	"github.com/cppla/blogthread/services"
	"github.com/cppla/blogthread/store"
	"github.com/cppla/blogthread/utils"
)

const (
	// ContextLevelKey stores the services.Level resolved for the request.
	ContextLevelKey = "access_level"
	// ContextUserIDKey is the key used to store authenticated user ID in Gin context.
	ContextUserIDKey = "user_id"
	// ContextUsernameKey stores the username inside Gin context.
	ContextUsernameKey = "username"
	// ContextTokenKey stores the raw bearer token of an authenticated request.
	ContextTokenKey = "bearer_token"
)

// Identify resolves the caller's access level and never rejects a request by itself.
// No Authorization header means anonymous. A header that fails any check (format, revocation,
// signature, unknown user, non-author) means invalid.
func Identify(users store.UserStore) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authHeader := ctx.GetHeader("Authorization")
		if authHeader == "" {
			ctx.Set(ContextLevelKey, services.LevelAnonymous)
			ctx.Next()
			return
		}

		ctx.Set(ContextLevelKey, services.LevelInvalid)

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			ctx.Next()
			return
		}
		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" || utils.IsTokenBlacklisted(tokenString) {
			ctx.Next()
			return
		}
		claims, err := utils.ParseToken(tokenString)
		if err != nil {
			ctx.Next()
			return
		}

		user, err := users.FindUserByUsername(ctx.Request.Context(), claims.Username)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) && utils.Sugar != nil {
				utils.Sugar.Warnf("identity lookup failed for %s: %v", claims.Username, err)
			}
			ctx.Next()
			return
		}
		if user.ID != claims.UserID {
			ctx.Next()
			return
		}

		ctx.Set(ContextUserIDKey, user.ID)
		ctx.Set(ContextUsernameKey, user.Username)
		ctx.Set(ContextTokenKey, tokenString)
		if user.Author || config.Get().IsAuthorUsername(user.Username) {
			ctx.Set(ContextLevelKey, services.LevelAuthor)
		}
		ctx.Next()
	}
}

// AuthorRequired rejects callers that Identify did not resolve to an author.
func AuthorRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !Level(ctx).IsAuthor() {
			utils.Error(ctx, http.StatusUnauthorized, "Unauthorised user.")
			return
		}
		ctx.Next()
	}
}

// Level returns the access level resolved by Identify; anonymous when Identify did not run.
func Level(ctx *gin.Context) services.Level {
	if v, ok := ctx.Get(ContextLevelKey); ok {
		if l, ok := v.(services.Level); ok {
			return l
		}
	}
	return services.LevelAnonymous
}

// Token returns the bearer token of an identified request.
func Token(ctx *gin.Context) (string, bool) {
	v, ok := ctx.Get(ContextTokenKey)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}

// AccessLogFields tags an access log line with the caller identity Identify resolved.
func AccessLogFields(ctx *gin.Context) []zapcore.Field {
	fields := []zapcore.Field{zap.Stringer("level", Level(ctx))}
	if id := ctx.GetString(ContextUserIDKey); id != "" {
		fields = append(fields, zap.String("user_id", id))
	}
	if name := ctx.GetString(ContextUsernameKey); name != "" {
		fields = append(fields, zap.String("username", name))
	}
	return fields
}
