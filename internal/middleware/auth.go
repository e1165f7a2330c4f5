package middleware

import (
	"net/http"

	"comentum/internal/db"
	"comentum/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const CheckUserKey = "user"

// LoadUser retrieves the user from the session and sets it on the context.
func LoadUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID := session.Get("user_id")
		if userID != nil {
			var user models.User
			if err := db.DB.First(&user, userID).Error; err == nil {
				c.Set(CheckUserKey, &user)
			}
		}
		c.Next()
	}
}

// CurrentUser returns the principal set by LoadUser, or nil for anonymous
// requests.
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(CheckUserKey); ok {
		return v.(*models.User)
	}
	return nil
}

// AuthRequired ensures a user is logged in. Browser requests are redirected
// to the login page, AJAX and API requests get a 403 envelope.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) != nil {
			c.Next()
			return
		}
		if IsAjax(c) || c.ContentType() == "application/json" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"data":      nil,
				"error":     "authentication is required",
				"anonymous": true,
				"msg":       "",
			})
			return
		}
		c.Redirect(http.StatusFound, "/login")
		c.Abort()
	}
}

// IsAjax reports the X-Requested-With marker the HTML-oriented routes
// require.
func IsAjax(c *gin.Context) bool {
	return c.GetHeader("X-Requested-With") == "XMLHttpRequest"
}

// AjaxRequired rejects requests without the AJAX marker.
func AjaxRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsAjax(c) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"data":      nil,
				"error":     "only AJAX requests are allowed",
				"anonymous": false,
				"msg":       "",
			})
			return
		}
		c.Next()
	}
}
