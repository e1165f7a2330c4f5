package services

import (
	"fmt"
	"strings"
	"time"

	"comentum/internal/config"
	"comentum/internal/models"
	"comentum/internal/utils"

	"gorm.io/gorm"
)

// CommentService owns the comment graph: creation, editing, cascading
// deletion and the ordered, flag-filtered parent/reply views.
type CommentService struct {
	db      *gorm.DB
	cfg     *config.Config
	targets *TargetResolver
	bus     *Bus
}

func NewCommentService(conn *gorm.DB, cfg *config.Config, targets *TargetResolver, bus *Bus) *CommentService {
	return &CommentService{db: conn, cfg: cfg, targets: targets, bus: bus}
}

// CreateInput carries everything needed to persist a comment. Posted is
// optional and defaults to now; the anonymous confirmation flow supplies
// the original submission time instead.
type CreateInput struct {
	Target  models.Target
	Parent  *models.Comment
	Content string
	User    *models.User
	Email   string
	Posted  time.Time
}

// Create persists a comment, generating a unique urlhash and deriving the
// email from the author when one is present. It publishes CommentCreated
// after the row is committed.
func (s *CommentService) Create(in CreateInput) (*models.Comment, error) {
	if strings.TrimSpace(in.Content) == "" {
		return nil, ErrContentMissing
	}

	email := utils.NormalizeEmail(in.Email)
	var userID *uint
	if in.User != nil {
		userID = &in.User.ID
		email = in.User.Email
	} else {
		if email == "" {
			return nil, ErrEmailMissing
		}
		if !utils.ValidEmail(email) {
			return nil, ErrEmailInvalid
		}
	}

	if in.Parent != nil && in.Parent.Target() != in.Target {
		return nil, ErrInvalidParent
	}

	posted := in.Posted
	if posted.IsZero() {
		posted = time.Now().UTC()
	}

	comment := &models.Comment{
		ContentType: in.Target.ContentType,
		ObjectID:    in.Target.ObjectID,
		UserID:      userID,
		Email:       email,
		Content:     in.Content,
		Posted:      posted,
		Edited:      posted,
	}
	if in.Parent != nil {
		comment.ParentID = &in.Parent.ID
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		hash, err := s.uniqueURLHash(tx)
		if err != nil {
			return err
		}
		comment.URLHash = hash
		return tx.Create(comment).Error
	})
	if err != nil {
		return nil, err
	}

	if s.bus != nil {
		s.bus.Publish(Event{Type: EventCommentCreated, Comment: comment})
	}
	return comment, nil
}

// uniqueURLHash generates prefix + random id + suffix, retrying with a
// fresh random id on collision.
func (s *CommentService) uniqueURLHash(tx *gorm.DB) (string, error) {
	for {
		hash := s.cfg.URLPrefix + utils.RandString(s.cfg.URLIDLength) + s.cfg.URLSuffix
		var n int64
		if err := tx.Model(&models.Comment{}).Where("url_hash = ?", hash).Count(&n).Error; err != nil {
			return "", err
		}
		if n == 0 {
			return hash, nil
		}
	}
}

// Edit replaces the content and advances the edited stamp.
func (s *CommentService) Edit(comment *models.Comment, content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrContentMissing
	}
	comment.Content = content
	comment.Edited = time.Now().UTC()
	return s.db.Model(comment).Updates(map[string]interface{}{
		"content": comment.Content,
		"edited":  comment.Edited,
	}).Error
}

// Delete removes the comment and cascades to its reply subtree, both
// aggregates with their instances, and subscription entries rooted at the
// deleted comments.
func (s *CommentService) Delete(comment *models.Comment) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		ids, err := s.subtreeIDs(tx, comment.ID)
		if err != nil {
			return err
		}

		var reactionIDs []uint
		if err := tx.Model(&models.Reaction{}).Where("comment_id IN ?", ids).Pluck("id", &reactionIDs).Error; err != nil {
			return err
		}
		if len(reactionIDs) > 0 {
			if err := tx.Where("reaction_id IN ?", reactionIDs).Delete(&models.ReactionInstance{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", reactionIDs).Delete(&models.Reaction{}).Error; err != nil {
				return err
			}
		}

		var flagIDs []uint
		if err := tx.Model(&models.Flag{}).Where("comment_id IN ?", ids).Pluck("id", &flagIDs).Error; err != nil {
			return err
		}
		if len(flagIDs) > 0 {
			if err := tx.Where("flag_id IN ?", flagIDs).Delete(&models.FlagInstance{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", flagIDs).Delete(&models.Flag{}).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("content_type = ? AND object_id IN ?", models.CommentContentType, ids).
			Delete(&models.Follower{}).Error; err != nil {
			return err
		}

		return tx.Where("id IN ?", ids).Delete(&models.Comment{}).Error
	})
}

// subtreeIDs walks the reply tree breadth-first and returns the root id
// plus every descendant id.
func (s *CommentService) subtreeIDs(tx *gorm.DB, rootID uint) ([]uint, error) {
	ids := []uint{rootID}
	frontier := []uint{rootID}
	for len(frontier) > 0 {
		var children []uint
		if err := tx.Model(&models.Comment{}).Where("parent_id IN ?", frontier).Pluck("id", &children).Error; err != nil {
			return nil, err
		}
		ids = append(ids, children...)
		frontier = children
	}
	return ids, nil
}

// Paginated is one page of parent comments.
type Paginated struct {
	Comments   []models.Comment
	Page       int
	PerPage    int
	Total      int64
	TotalPages int
}

// ListParents returns the thread roots for a target under the configured
// ordering. Flagged comments are hidden unless the viewer may see them.
func (s *CommentService) ListParents(target models.Target, includeFlagged bool, page int) (*Paginated, error) {
	base := func() *gorm.DB {
		q := s.db.Model(&models.Comment{}).
			Where("comments.content_type = ? AND comments.object_id = ? AND comments.parent_id IS NULL",
				target.ContentType, target.ObjectID)
		return s.FilterFlagged(q, includeFlagged)
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, err
	}

	// joined columns must not leak into the scanned rows; Count above runs
	// without the narrowed select
	q := s.applyOrder(base().Select("comments.*"))

	result := &Paginated{Page: 1, PerPage: s.cfg.PerPage, Total: total, TotalPages: 1}
	if s.cfg.PerPage > 0 {
		result.TotalPages = int((total + int64(s.cfg.PerPage) - 1) / int64(s.cfg.PerPage))
		if result.TotalPages == 0 {
			result.TotalPages = 1
		}
		if page < 1 {
			page = 1
		}
		if page > result.TotalPages {
			page = result.TotalPages
		}
		result.Page = page
		q = q.Offset((page - 1) * s.cfg.PerPage).Limit(s.cfg.PerPage)
	}

	if err := q.Find(&result.Comments).Error; err != nil {
		return nil, err
	}
	return result, nil
}

// ListReplies returns the direct children of a comment under the same
// ordering and visibility rules as ListParents.
func (s *CommentService) ListReplies(comment *models.Comment, includeFlagged bool) ([]models.Comment, error) {
	q := s.db.Model(&models.Comment{}).Select("comments.*").Where("comments.parent_id = ?", comment.ID)
	q = s.FilterFlagged(q, includeFlagged)
	q = s.applyOrder(q)

	var replies []models.Comment
	if err := q.Find(&replies).Error; err != nil {
		return nil, err
	}
	return replies, nil
}

// FilterFlagged excludes comments whose flag state is FLAGGED, unless
// flagging is disabled, show_flagged is set, or the viewer is a moderator.
func (s *CommentService) FilterFlagged(q *gorm.DB, includeFlagged bool) *gorm.DB {
	if !s.cfg.ModerationEnabled() || s.cfg.ShowFlagged || includeFlagged {
		return q
	}
	return q.Joins("LEFT JOIN flags ON flags.comment_id = comments.id").
		Where("flags.state IS NULL OR flags.state <> ?", models.FlagStateFlagged)
}

// applyOrder translates the configured sort keys into SQL. Reaction keys
// join the aggregate; missing aggregates sort as zero.
func (s *CommentService) applyOrder(q *gorm.DB) *gorm.DB {
	joined := false
	for _, key := range s.cfg.OrderBy {
		if key == "?" {
			q = q.Order("RANDOM()")
			continue
		}
		desc := strings.HasPrefix(key, "-")
		base := strings.TrimPrefix(key, "-")
		var col string
		switch base {
		case "posted":
			col = "comments.posted"
		case "reaction__likes":
			col = "COALESCE(reactions.likes, 0)"
		case "reaction__dislikes":
			col = "COALESCE(reactions.dislikes, 0)"
		default:
			continue // rejected by config validation at startup
		}
		if strings.HasPrefix(col, "COALESCE") && !joined {
			q = q.Joins("LEFT JOIN reactions ON reactions.comment_id = comments.id")
			joined = true
		}
		if desc {
			q = q.Order(col + " DESC")
		} else {
			q = q.Order(col + " ASC")
		}
	}
	// deterministic tiebreak so pagination and parentPosition agree
	return q.Order("comments.id DESC")
}

// PageURL computes the absolute URL of the comment: the target page, a
// page query when pagination is on and the comment is not on page one, and
// the urlhash fragment.
func (s *CommentService) PageURL(comment *models.Comment, viewerIsModerator bool) (string, error) {
	path := s.targets.PagePath(comment.Target())
	base := s.cfg.SiteURL + path

	if s.cfg.PerPage > 0 {
		position, err := s.parentPosition(comment, viewerIsModerator)
		if err != nil {
			return "", err
		}
		pageNum := (position + s.cfg.PerPage - 1) / s.cfg.PerPage
		if pageNum > 1 {
			base = fmt.Sprintf("%s?page=%d", base, pageNum)
		}
	}
	return base + "#" + comment.URLHash, nil
}

// parentPosition returns the 1-based rank of the comment's thread root
// among the parents of its target, ordered by posted descending under the
// viewer's flag visibility.
func (s *CommentService) parentPosition(comment *models.Comment, includeFlagged bool) (int, error) {
	root := comment
	if !comment.IsParent() {
		var parent models.Comment
		if err := s.db.First(&parent, *comment.ParentID).Error; err != nil {
			return 0, err
		}
		root = &parent
	}

	// id breaks ties between equal posted stamps, matching the listing order
	q := s.db.Model(&models.Comment{}).
		Where("comments.content_type = ? AND comments.object_id = ? AND comments.parent_id IS NULL",
			root.ContentType, root.ObjectID).
		Where("comments.posted > ? OR (comments.posted = ? AND comments.id > ?)",
			root.Posted, root.Posted, root.ID)
	q = s.FilterFlagged(q, includeFlagged)

	var before int64
	if err := q.Count(&before).Error; err != nil {
		return 0, err
	}
	return int(before) + 1, nil
}

// Exists reports whether a comment with the given email and posted stamp is
// already stored. It detects replays of anonymous confirmation tokens.
func (s *CommentService) Exists(email string, posted time.Time) (bool, error) {
	var n int64
	err := s.db.Model(&models.Comment{}).Where("email = ? AND posted = ?", email, posted).Count(&n).Error
	return n > 0, err
}

// Get loads a comment by id.
func (s *CommentService) Get(id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := s.db.First(&comment, id).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

// Username resolves the display name shown for the comment's author.
func (s *CommentService) Username(comment *models.Comment) string {
	if comment.UserID != nil {
		if comment.User != nil {
			return comment.User.Username
		}
		var user models.User
		if err := s.db.First(&user, *comment.UserID).Error; err == nil {
			return user.Username
		}
	}
	if s.cfg.UseEmailFirstPartAsUsername {
		if at := strings.Index(comment.Email, "@"); at > 0 {
			return comment.Email[:at]
		}
	}
	return s.cfg.AnonymousUsername
}

// ThreadOf returns the object followers of this comment's conversation are
// attached to: the target for a parent comment, the parent comment itself
// for a reply.
func (s *CommentService) ThreadOf(comment *models.Comment) models.Target {
	if comment.IsParent() {
		return comment.Target()
	}
	return models.CommentTarget(*comment.ParentID)
}
