package handlers

import (
	"net/http"

	"comentum/internal/middleware"

	"github.com/gin-gonic/gin"
)

type BlockingHandler struct {
	*Deps
}

func NewBlockingHandler(deps *Deps) *BlockingHandler {
	return &BlockingHandler{Deps: deps}
}

// Toggle handles POST /comment/toggle-blocking/. The comment_id form field
// names the comment whose author gets blocked or unblocked.
func (h *BlockingHandler) Toggle(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if err := h.Authz.CanToggleBlock(user); err != nil {
		respondError(c, err)
		return
	}

	comment, err := h.Comments.Get(uintField(c, "comment_id"))
	if err != nil {
		c.JSON(http.StatusNotFound, envelope(nil, "comment not found", false, ""))
		return
	}

	blocked, nowBlocked, err := h.Blocking.ToggleBlock(comment, user, c.PostForm("reason"))
	if err != nil {
		respondError(c, err)
		return
	}
	msg := "user unblocked"
	if nowBlocked {
		msg = "user blocked"
	}
	respond(c, http.StatusOK, gin.H{
		"blocked_user": blocked.ID,
		"blocked":      nowBlocked,
		"urlhash":      comment.URLHash,
	}, msg)
}
