package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"stockroom-system/internal/database/models"
	"stockroom-system/internal/utils"
)

const UserContextKey = "currentUser"

// JWTAuth validates the bearer token and loads the account into the request
// context. The admin flags always come from the database, not the token, so
// a toggled account takes effect on the next request.
func JWTAuth(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "missing or malformed Authorization header",
			})
			return
		}

		claims, err := utils.ParseToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "invalid or expired token",
			})
			return
		}

		var user models.User
		if err := db.First(&user, claims.UserId).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "account no longer exists",
			})
			return
		}

		c.Set(UserContextKey, user)
		c.Next()
	}
}

// CurrentUser fetches the authenticated account placed by JWTAuth.
func CurrentUser(c *gin.Context) (models.User, bool) {
	value, ok := c.Get(UserContextKey)
	if !ok {
		return models.User{}, false
	}
	user, ok := value.(models.User)
	return user, ok
}
