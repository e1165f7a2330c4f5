package handlers

import (
	"net/http"

	"comentum/internal/middleware"
	"comentum/internal/services"
	"comentum/internal/utils"

	"github.com/gin-gonic/gin"
)

type SubscriptionHandler struct {
	*Deps
}

func NewSubscriptionHandler(deps *Deps) *SubscriptionHandler {
	return &SubscriptionHandler{Deps: deps}
}

// Toggle handles POST /comment/toggle-subscription/. Authenticated users
// follow with their account email, anonymous callers must supply one.
func (h *SubscriptionHandler) Toggle(c *gin.Context) {
	if err := h.Authz.CanSubscribe(); err != nil {
		respondError(c, err)
		return
	}

	target, err := h.Targets.Resolve(requestField(c, "app_name"), requestField(c, "model_name"), requestField(c, "model_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	user := middleware.CurrentUser(c)
	email := utils.NormalizeEmail(c.PostForm("email"))
	username := c.PostForm("username")
	if user != nil {
		email = utils.NormalizeEmail(user.Email)
		username = user.Username
	}
	if email == "" {
		respondError(c, services.ErrEmailRequired)
		return
	}
	if !utils.ValidEmail(email) {
		respondError(c, services.ErrEmailInvalid)
		return
	}
	if username == "" {
		username = h.Cfg.AnonymousUsername
	}

	following, err := h.Followers.ToggleFollow(email, username, target)
	if err != nil {
		respondError(c, err)
		return
	}
	msg := "subscription removed"
	if following {
		msg = "subscription added"
	}
	respond(c, http.StatusOK, gin.H{"following": following, "email": email}, msg)
}
