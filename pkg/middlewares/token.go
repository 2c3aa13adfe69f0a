package middlewares

import (
	"chat_sync_service/pkg/token"

	"github.com/gofiber/fiber/v2"
)

const (
	//QueryToken token in query name
	QueryToken = "auth"

	//CookieToken token in cookie name
	CookieToken = "auth_token"

	//TokenClaims parsed claims, set c.locals name
	TokenClaims = "claims"
	//TokenMemberID get member form token, set c.locals name
	TokenMemberID = "MemberID"
)

// JWTMiddleware validates JWT from the auth query or the auth_token cookie
func JWTMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr := c.Query(QueryToken)

		// 如果查詢參數中沒有 token，則嘗試從 Cookie 中獲取
		if tokenStr == "" {
			tokenStr = c.Cookies(CookieToken)
		}

		if tokenStr == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing token",
			})
		}

		claims, err := token.ParseJWT(tokenStr)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid token",
			})
		}

		c.Locals(TokenMemberID, claims.MemberID)
		c.Locals(TokenClaims, claims)

		return c.Next()
	}
}

// ClaimsFrom returns the claims set by JWTMiddleware
func ClaimsFrom(c *fiber.Ctx) (*token.Claims, bool) {
	claims, ok := c.Locals(TokenClaims).(*token.Claims)
	return claims, ok
}
