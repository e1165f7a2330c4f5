package handlers

import (
	"net/http"

	"comentum/internal/middleware"
	"comentum/internal/models"
	"comentum/internal/utils"

	"github.com/gin-gonic/gin"
)

type APIHandler struct {
	*Deps
	comments *CommentHandler
}

func NewAPIHandler(deps *Deps) *APIHandler {
	return &APIHandler{Deps: deps, comments: NewCommentHandler(deps)}
}

// List handles GET /api/comments/. Parents come back paginated with their
// reply trees nested; flagged threads are hidden from non-moderators.
func (h *APIHandler) List(c *gin.Context) {
	target, err := h.Targets.Resolve(c.Query("app_name"), c.Query("model_name"), c.Query("model_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	user := middleware.CurrentUser(c)
	includeFlagged := h.Authz.IsModerator(user)
	page := pageParam(c)

	result, err := h.Comments.ListParents(target, includeFlagged, page)
	if err != nil {
		respondError(c, err)
		return
	}

	items := make([]gin.H, 0, len(result.Comments))
	for i := range result.Comments {
		item, err := h.serializeTree(&result.Comments[i], includeFlagged)
		if err != nil {
			respondError(c, err)
			return
		}
		items = append(items, item)
	}

	respond(c, http.StatusOK, gin.H{
		"comments":    items,
		"page":        result.Page,
		"per_page":    result.PerPage,
		"total":       result.Total,
		"total_pages": result.TotalPages,
	}, "")
}

// Create handles POST /api/comments/create/. Same semantics as the form
// endpoint but without the AJAX marker requirement and with a 201 on
// success.
func (h *APIHandler) Create(c *gin.Context) {
	h.comments.create(c, true)
}

// Confirm handles GET /api/comments/confirm/{token}/.
func (h *APIHandler) Confirm(c *gin.Context) {
	h.comments.Confirm(c)
}

// Subscribers handles GET /api/comments/subscribers/. Moderators only.
func (h *APIHandler) Subscribers(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if err := h.Authz.CanViewSubscribers(user); err != nil {
		respondError(c, err)
		return
	}

	target, err := h.Targets.Resolve(c.Query("app_name"), c.Query("model_name"), c.Query("model_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	followers, err := h.Followers.FollowersOf(target)
	if err != nil {
		respondError(c, err)
		return
	}
	emails := make([]string, 0, len(followers))
	for _, f := range followers {
		emails = append(emails, f.Email)
	}

	respond(c, http.StatusOK, gin.H{
		"app_name":   c.Query("app_name"),
		"model_name": c.Query("model_name"),
		"model_id":   target.ObjectID,
		"followers":  emails,
	}, "")
}

func (h *APIHandler) serializeTree(comment *models.Comment, includeFlagged bool) (gin.H, error) {
	item := h.serializeComment(comment)
	replies, err := h.Comments.ListReplies(comment, includeFlagged)
	if err != nil {
		return nil, err
	}
	nested := make([]gin.H, 0, len(replies))
	for i := range replies {
		nested = append(nested, h.serializeComment(&replies[i]))
	}
	item["replies"] = nested
	item["reply_count"] = len(nested)
	return item, nil
}

func pageParam(c *gin.Context) int {
	if n := utils.StringToInt(c.Query("page")); n > 0 {
		return n
	}
	return 1
}
