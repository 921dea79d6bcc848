package middleware

import (
	"strings"

	"github.com/wb-go/wbf/ginext"

	"checkinBoard/internal/dto"
)

// AdminAuth requires "Authorization: Bearer <token>" accepted by validate.
func AdminAuth(validate func(token string) error) func(*ginext.Context) {
	return func(c *ginext.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			dto.UnauthorizedError(c, "Missing bearer token")
			return
		}
		if err := validate(strings.TrimSpace(token)); err != nil {
			dto.UnauthorizedError(c, "Invalid or expired token")
			return
		}
		c.Next()
	}
}
