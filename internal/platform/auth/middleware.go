package auth

import (
	"strings"

	"github.com/gin-gonic/gin"

	"ResumeSection-backend/internal/platform/apierr"
)

const (
	CtxUserIDKey   = "user_id"
	CtxRoleKey     = "role"
	CtxIdentityKey = "identity"
)

// RequireAuth: Authorization: Bearer <token> を検証して context に Identity を詰める
func RequireAuth(secret []byte) gin.HandlerFunc {
	return authenticate(secret, false, true)
}

// RequireAuthOrQuery はダウンロード用。ヘッダが無ければ ?token= も受け付ける。
func RequireAuthOrQuery(secret []byte) gin.HandlerFunc {
	return authenticate(secret, true, true)
}

// OptionalAuth はトークンがあれば検証するが、無くても通す。
func OptionalAuth(secret []byte) gin.HandlerFunc {
	return authenticate(secret, false, false)
}

func authenticate(secret []byte, allowQuery, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, err := bearerToken(c, allowQuery)
		if err != nil {
			apierr.Respond(c, err)
			return
		}
		if tokenStr == "" {
			if required {
				apierr.Respond(c, apierr.ErrUnauthenticated("missing Authorization header"))
				return
			}
			c.Next()
			return
		}

		id, err := ParseToken(secret, tokenStr)
		if err != nil {
			apierr.Respond(c, err)
			return
		}

		c.Set(CtxIdentityKey, id)
		c.Set(CtxUserIDKey, id.UserID)
		c.Set(CtxRoleKey, string(id.Role))
		c.Next()
	}
}

func bearerToken(c *gin.Context, allowQuery bool) (string, error) {
	h := c.GetHeader("Authorization")
	if h == "" {
		if allowQuery {
			return strings.TrimSpace(c.Query("token")), nil
		}
		return "", nil
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", apierr.ErrUnauthenticated("invalid Authorization header")
	}
	tokenStr := strings.TrimSpace(parts[1])
	if tokenStr == "" {
		return "", apierr.ErrUnauthenticated("empty token")
	}
	return tokenStr, nil
}

// IdentityFrom は RequireAuth が詰めた Identity を取り出す。
func IdentityFrom(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(CtxIdentityKey)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}

// RequireRole: 例) admin のみ許可したい時に追加
func RequireRole(roles ...Role) gin.HandlerFunc {
	roleSet := make(map[Role]struct{}, len(roles))
	for _, r := range roles {
		if r == "" {
			continue
		}
		roleSet[r] = struct{}{}
	}

	return func(c *gin.Context) {
		id, ok := IdentityFrom(c)
		if !ok {
			apierr.Respond(c, apierr.ErrUnauthenticated("authentication required"))
			return
		}
		if _, allowed := roleSet[id.Role]; !allowed {
			apierr.Respond(c, apierr.ErrForbidden("forbidden"))
			return
		}
		c.Next()
	}
}
