package handlers

import (
	"net/http"
	"time"

	"comentum/internal/middleware"
	"comentum/internal/models"
	"comentum/internal/services"
	"comentum/internal/utils"

	"github.com/gin-gonic/gin"
)

const msgConfirmationSent = "We have sent a verification link to your email. The comment will be displayed after it is verified."

type CommentHandler struct {
	*Deps
}

func NewCommentHandler(deps *Deps) *CommentHandler {
	return &CommentHandler{Deps: deps}
}

// Create handles POST /comment/create/. Authenticated comments commit
// immediately; anonymous ones only trigger a confirmation email.
func (h *CommentHandler) Create(c *gin.Context) {
	h.create(c, false)
}

func (h *CommentHandler) create(c *gin.Context, api bool) {
	user := middleware.CurrentUser(c)

	target, err := h.Targets.Resolve(requestField(c, "app_name"), requestField(c, "model_name"), requestField(c, "model_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	parent, err := h.Targets.ResolveParent(requestField(c, "parent_id"), target)
	if err != nil {
		respondError(c, err)
		return
	}

	content := c.PostForm("content")
	email := utils.NormalizeEmail(c.PostForm("email"))

	if err := h.Authz.CanCreate(user, email); err != nil {
		respondError(c, err)
		return
	}

	if user == nil {
		h.createAnonymous(c, target, parent, content, email, api)
		return
	}

	comment, err := h.Comments.Create(services.CreateInput{
		Target:  target,
		Parent:  parent,
		Content: content,
		User:    user,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	status := http.StatusOK
	if api {
		status = http.StatusCreated
	}
	respond(c, status, h.serializeComment(comment), "")
}

// createAnonymous issues the signed token and mails the confirmation
// request instead of committing a row.
func (h *CommentHandler) createAnonymous(c *gin.Context, target models.Target, parent *models.Comment, content, email string, api bool) {
	if content == "" {
		respondError(c, services.ErrContentMissing)
		return
	}
	if email == "" {
		respondError(c, services.ErrEmailMissing)
		return
	}
	if !utils.ValidEmail(email) {
		respondError(c, services.ErrEmailInvalid)
		return
	}

	draft := services.CommentDraft{
		Content:   content,
		Email:     email,
		Posted:    time.Now().UTC(),
		AppName:   requestField(c, "app_name"),
		ModelName: requestField(c, "model_name"),
		ModelID:   target.ObjectID,
	}
	if parent != nil {
		draft.ParentID = &parent.ID
	}

	token, err := h.Deps.Confirm.IssueToken(draft)
	if err != nil {
		respondError(c, err)
		return
	}

	// transient comment, only used as template context
	pending := &models.Comment{
		ContentType: target.ContentType,
		ObjectID:    target.ObjectID,
		Email:       email,
		Content:     content,
		Posted:      draft.Posted,
	}
	h.Mailer.SendConfirmationRequest(pending, h.Comments.Username(pending), token, api)
	respondAnonymous(c, msgConfirmationSent)
}

// Edit handles GET and POST /comment/edit/{id}/.
func (h *CommentHandler) Edit(c *gin.Context) {
	user := middleware.CurrentUser(c)
	comment, ok := h.loadComment(c)
	if !ok {
		return
	}
	if err := h.Authz.CanEdit(user, comment); err != nil {
		respondError(c, err)
		return
	}

	if c.Request.Method == http.MethodGet {
		respond(c, http.StatusOK, gin.H{"id": comment.ID, "content": comment.Content}, "")
		return
	}

	if err := h.Comments.Edit(comment, c.PostForm("content")); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, h.serializeComment(comment), "")
}

// Delete handles GET (confirmation payload) and POST /comment/delete/{id}/.
func (h *CommentHandler) Delete(c *gin.Context) {
	user := middleware.CurrentUser(c)
	comment, ok := h.loadComment(c)
	if !ok {
		return
	}
	if err := h.Authz.CanDelete(user, comment); err != nil {
		respondError(c, err)
		return
	}

	if c.Request.Method == http.MethodGet {
		respond(c, http.StatusOK, h.serializeComment(comment), "")
		return
	}

	if err := h.Comments.Delete(comment); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, nil, "comment deleted")
}

// Confirm handles GET /comment/confirm/{token}/. A valid token commits the
// draft and redirects to the canonical comment URL; broken and replayed
// links render a message with a 200 so the page can display it.
func (h *CommentHandler) Confirm(c *gin.Context) {
	outcome, comment, err := h.Deps.Confirm.Redeem(c.Param("token"))
	if err != nil {
		respondError(c, err)
		return
	}
	switch outcome {
	case services.OutcomeValid:
		url, err := h.Comments.PageURL(comment, false)
		if err != nil {
			respondError(c, err)
			return
		}
		c.Redirect(http.StatusFound, url)
	case services.OutcomeExists:
		respond(c, http.StatusOK, nil, services.ErrUsedVerification.Error())
	default:
		respond(c, http.StatusOK, nil, services.ErrBrokenVerification.Error())
	}
}

// requestField reads a field from the form body or, failing that, the
// query string.
func requestField(c *gin.Context, name string) string {
	if v := c.PostForm(name); v != "" {
		return v
	}
	return c.Query(name)
}
