package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/melkbazar/MelkBazar/internal/pkg/session"
	"github.com/melkbazar/MelkBazar/internal/pkg/usercontext"
)

// UserContextMiddleware sets up the complete user context for every request.
// It only reads the session written by the account service at login; this
// service never authenticates credentials itself.
func UserContextMiddleware(c *fiber.Ctx) error {
	store := session.GetSessionStore()
	if store == nil {
		usercontext.SetUserContext(c, usercontext.UserContext{})
		return c.Next()
	}

	sess, err := store.Get(c)
	if err != nil {
		// On error: treat as anonymous
		usercontext.SetUserContext(c, usercontext.UserContext{})
		return c.Next()
	}

	userID, ok := sess.Get(usercontext.KeyUserID).(uint)
	if !ok || userID == 0 {
		usercontext.SetUserContext(c, usercontext.UserContext{})
		return c.Next()
	}

	isAdmin, _ := sess.Get(usercontext.KeyIsAdmin).(bool)
	usercontext.SetUserContext(c, usercontext.UserContext{
		UserID:     userID,
		Username:   session.GetSessionValue(c, usercontext.KeyUsername),
		Category:   session.GetSessionValue(c, usercontext.KeyCategory),
		IsLoggedIn: true,
		IsAdmin:    isAdmin,
	})

	return c.Next()
}
