package router

import (
	"net/http"

	"comentum/internal/config"
	"comentum/internal/handlers"
	"comentum/internal/middleware"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

// Setup builds the engine with the session store and all routes mounted.
func Setup(cfg *config.Config, deps *handlers.Deps) *gin.Engine {
	r := gin.Default()
	r.HandleMethodNotAllowed = true
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{
			"data":      nil,
			"error":     "method not allowed",
			"anonymous": false,
			"msg":       "",
		})
	})

	store := cookie.NewStore([]byte(cfg.SecretKey))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 30,
		HttpOnly: true,
	})
	r.Use(sessions.Sessions("comentum_session", store))
	r.Use(middleware.LoadUser())

	auth := handlers.NewAuthHandler(deps)
	comment := handlers.NewCommentHandler(deps)
	reaction := handlers.NewReactionHandler(deps)
	flag := handlers.NewFlagHandler(deps)
	subscription := handlers.NewSubscriptionHandler(deps)
	blocking := handlers.NewBlockingHandler(deps)
	api := handlers.NewAPIHandler(deps)

	r.POST("/register/", auth.Register)
	r.POST("/login/", auth.Login)
	r.POST("/logout/", auth.Logout)

	// The form endpoints require the AJAX marker; confirmation links are
	// opened from email clients and must not.
	c := r.Group("/comment", middleware.AjaxRequired())
	{
		c.POST("/create/", comment.Create)
		c.POST("/toggle-subscription/", subscription.Toggle)

		authed := c.Group("", middleware.AuthRequired())
		{
			authed.GET("/edit/:id/", comment.Edit)
			authed.POST("/edit/:id/", comment.Edit)
			authed.GET("/delete/:id/", comment.Delete)
			authed.POST("/delete/:id/", comment.Delete)
			authed.POST("/:id/react/:reaction/", reaction.React)
			authed.POST("/:id/flag/", flag.Set)
			authed.POST("/:id/flag/state/change/", flag.ChangeState)
			authed.POST("/toggle-blocking/", blocking.Toggle)
		}
	}
	r.GET("/comment/confirm/:token/", comment.Confirm)

	g := r.Group("/api/comments")
	{
		g.GET("/", api.List)
		g.POST("/create/", api.Create)
		g.GET("/confirm/:token/", api.Confirm)
		g.GET("/subscribers/", api.Subscribers)
	}

	return r
}
