package middlewares

import (
	"media_share_service/pkg/token"

	"github.com/gofiber/fiber/v2"
)

const (
	//QueryToken token in query name
	QueryToken = "auth"

	//CookieToken token in cookie name
	CookieToken = "auth_token"

	//TokenUserID get user from token, set c.locals name
	TokenUserID = "UserID"
	//TokenRole get role form token, set c.locals name
	TokenRole = "role"
)

// JWTMiddleware token 來源依序為 Authorization header, query, cookie
func JWTMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var claims *token.Claims
		var err error

		if header := c.Get(fiber.HeaderAuthorization); header != "" {
			claims, err = token.ParseBearer(header)
		} else {
			tokenStr := c.Query(QueryToken)
			if tokenStr == "" {
				tokenStr = c.Cookies(CookieToken)
			}
			if tokenStr == "" {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "Missing token",
				})
			}
			claims, err = token.ParseJWT(tokenStr)
		}

		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid token",
			})
		}

		c.Locals(TokenUserID, claims.UserID)
		c.Locals(TokenRole, claims.Role)
		return c.Next()
	}
}

// RequireRole 要放在 JWTMiddleware 之後
func RequireRole(role token.RoleType) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if r, _ := c.Locals(TokenRole).(string); r != string(role) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Forbidden",
			})
		}
		return c.Next()
	}
}

// UserID 取出 JWTMiddleware 設定的 user id
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(TokenUserID).(string)
	return id
}
