package middlewares

import (
	"errors"
	"net/http"
	"strings"

	"bitbucket.org/mmdatafocus/anggaran_backend/config"
	"bitbucket.org/mmdatafocus/anggaran_backend/models"
	"bitbucket.org/mmdatafocus/anggaran_backend/utils"
	"github.com/gin-gonic/gin"
)

const (
	AuthTokenModeRedis = "redis"
	AuthTokenModeJwt   = "jwt"
)

var errUnauthorized = errors.New("unauthorized")

// SessionMiddleware resolves the request token into an actor.
// Requests without a token pass through anonymously; RequireActor guards writes.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := requestToken(c)
		if token == "" {
			c.Next()
			return
		}

		actor, err := resolveActor(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		ctx := utils.SetTokenInContext(c.Request.Context(), token)
		ctx = models.ContextWithActor(ctx, actor)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireActor rejects mutating requests that carry no resolved actor.
func RequireActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}
		if _, err := models.ActorFromContext(c.Request.Context()); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

func requestToken(c *gin.Context) string {
	if token := strings.TrimSpace(c.GetHeader("token")); token != "" {
		return token
	}
	token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

func resolveActor(token string) (models.ActorRef, error) {
	settings := config.MustSettings()
	if strings.EqualFold(settings.AuthTokenMode, AuthTokenModeJwt) {
		claim, err := utils.JwtValidate(settings.ApiSecret, token)
		if err != nil {
			return models.ActorRef{}, err
		}
		actor := models.ActorRef{Kind: models.ActorKind(claim.Kind), Ref: claim.Ref}
		if actor.Kind == "" {
			actor = models.ResolveActorRef(claim.Ref)
		}
		if actor.IsZero() {
			return models.ActorRef{}, errUnauthorized
		}
		return actor, nil
	}

	raw, exists, err := config.GetRedisValue("Token:" + token)
	if err != nil {
		return models.ActorRef{}, err
	}
	if !exists || strings.TrimSpace(raw) == "" {
		return models.ActorRef{}, errUnauthorized
	}
	return models.ResolveActorRef(raw), nil
}
