package handlers

import (
	"net/http"

	"comentum/internal/middleware"
	"comentum/internal/utils"

	"github.com/gin-gonic/gin"
)

type FlagHandler struct {
	*Deps
}

func NewFlagHandler(deps *Deps) *FlagHandler {
	return &FlagHandler{Deps: deps}
}

// Set handles POST /comment/{id}/flag/. A reason field flags the comment,
// its absence withdraws the caller's flag.
func (h *FlagHandler) Set(c *gin.Context) {
	user := middleware.CurrentUser(c)
	comment, ok := h.loadComment(c)
	if !ok {
		return
	}
	if err := h.Authz.CanFlag(user, comment); err != nil {
		respondError(c, err)
		return
	}

	var reason *int
	if raw := c.PostForm("reason"); raw != "" {
		code := utils.StringToInt(raw)
		reason = &code
	}

	created, _, err := h.Flags.SetFlag(user, comment, reason, c.PostForm("info"))
	if err != nil {
		respondError(c, err)
		return
	}
	if created {
		respond(c, http.StatusOK, gin.H{"flag": 1}, "comment flagged")
		return
	}
	respond(c, http.StatusOK, gin.H{"flag": 0}, "flag withdrawn")
}

// ChangeState handles POST /comment/{id}/flag/state/change/. Only the
// rejected and resolved states can be requested; repeating the current one
// re-opens the flag.
func (h *FlagHandler) ChangeState(c *gin.Context) {
	user := middleware.CurrentUser(c)
	comment, ok := h.loadComment(c)
	if !ok {
		return
	}
	if err := h.Authz.CanChangeFlagState(user, comment); err != nil {
		respondError(c, err)
		return
	}

	state := utils.StringToInt(c.PostForm("state"))
	flag, err := h.Flags.ToggleState(user, comment, state)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"state": int(flag.State)}, "")
}
