package handlers

import (
	"net/http"

	"comentum/internal/middleware"

	"github.com/gin-gonic/gin"
)

type ReactionHandler struct {
	*Deps
}

func NewReactionHandler(deps *Deps) *ReactionHandler {
	return &ReactionHandler{Deps: deps}
}

// React handles POST /comment/{id}/react/{reaction}/. Repeating the same
// reaction removes it; the opposite one switches it.
func (h *ReactionHandler) React(c *gin.Context) {
	user := middleware.CurrentUser(c)
	comment, ok := h.loadComment(c)
	if !ok {
		return
	}
	if err := h.Authz.CanReact(user); err != nil {
		respondError(c, err)
		return
	}
	reaction, err := h.Reactions.SetReaction(user, comment, c.Param("reaction"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{
		"likes":    reaction.Likes,
		"dislikes": reaction.Dislikes,
	}, "")
}
