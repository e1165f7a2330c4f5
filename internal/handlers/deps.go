package handlers

import (
	"net/http"

	"comentum/internal/config"
	"comentum/internal/models"
	"comentum/internal/services"
	"comentum/internal/utils"

	"github.com/gin-gonic/gin"
)

// Deps bundles the service layer for the handlers.
type Deps struct {
	Cfg       *config.Config
	Targets   *services.TargetResolver
	Authz     *services.Authorizer
	Comments  *services.CommentService
	Reactions *services.ReactionService
	Flags     *services.FlagService
	Blocking  *services.BlockingRegistry
	Followers *services.FollowerService
	Mailer    *services.Mailer
	Confirm   *services.ConfirmationService
}

// uintField parses a numeric form field, returning 0 when absent or bad.
func uintField(c *gin.Context, name string) uint {
	v := utils.StringToInt(c.PostForm(name))
	if v <= 0 {
		return 0
	}
	return uint(v)
}

// loadComment fetches the comment addressed by the :id route param.
func (d *Deps) loadComment(c *gin.Context) (*models.Comment, bool) {
	id := utils.StringToInt(c.Param("id"))
	if id <= 0 {
		c.JSON(http.StatusNotFound, envelope(nil, "comment not found", false, ""))
		return nil, false
	}
	comment, err := d.Comments.Get(uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, envelope(nil, "comment not found", false, ""))
		return nil, false
	}
	return comment, true
}

// serializeComment renders a comment with its aggregate counters for the
// JSON envelope.
func (d *Deps) serializeComment(comment *models.Comment) gin.H {
	likes, dislikes, _ := d.Reactions.CountsFor(comment.ID)
	flagged, _ := d.Flags.IsFlagged(comment)
	return gin.H{
		"id":         comment.ID,
		"urlhash":    comment.URLHash,
		"parent_id":  comment.ParentID,
		"content":    comment.Content,
		"username":   d.Comments.Username(comment),
		"posted":     comment.Posted,
		"edited":     comment.Edited,
		"is_edited":  comment.IsEdited(),
		"likes":      likes,
		"dislikes":   dislikes,
		"is_flagged": flagged,
	}
}
