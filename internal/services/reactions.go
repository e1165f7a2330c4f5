package services

import (
	"errors"
	"strings"
	"time"

	"comentum/internal/models"

	"gorm.io/gorm"
)

// ReactionService maintains the per-comment like/dislike aggregate under
// the single-reaction-per-user rule with toggle semantics.
type ReactionService struct {
	db  *gorm.DB
	bus *Bus
}

func NewReactionService(conn *gorm.DB, bus *Bus) *ReactionService {
	return &ReactionService{db: conn, bus: bus}
}

// ParseReactionType accepts "like"/"dislike" case-insensitively.
func ParseReactionType(kind string) (models.ReactionType, error) {
	switch strings.ToLower(kind) {
	case "like":
		return models.ReactionLike, nil
	case "dislike":
		return models.ReactionDislike, nil
	}
	return 0, ErrInvalidReaction
}

// SetReaction applies the toggle semantics:
// no instance -> create and increment; same kind -> delete and decrement;
// other kind -> switch instance and move one count across. The returned
// aggregate is re-read after commit so it reflects committed totals.
func (s *ReactionService) SetReaction(user *models.User, comment *models.Comment, kind string) (*models.Reaction, error) {
	reactionType, err := ParseReactionType(kind)
	if err != nil {
		return nil, err
	}

	var reactionID uint
	err = s.db.Transaction(func(tx *gorm.DB) error {
		reaction, err := s.aggregate(tx, comment.ID)
		if err != nil {
			return err
		}
		reactionID = reaction.ID

		var instance models.ReactionInstance
		err = tx.Where("reaction_id = ? AND user_id = ?", reaction.ID, user.ID).First(&instance).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Create(&models.ReactionInstance{
				ReactionID:  reaction.ID,
				UserID:      user.ID,
				Type:        reactionType,
				DateReacted: time.Now().UTC(),
			}).Error; err != nil {
				return err
			}
			return s.adjust(tx, reaction.ID, reactionType, +1)
		case err != nil:
			return err
		}

		if err := tx.Delete(&instance).Error; err != nil {
			return err
		}
		if err := s.adjust(tx, reaction.ID, instance.Type, -1); err != nil {
			return err
		}
		if instance.Type == reactionType {
			// toggle-off
			return nil
		}
		if err := tx.Create(&models.ReactionInstance{
			ReactionID:  reaction.ID,
			UserID:      user.ID,
			Type:        reactionType,
			DateReacted: time.Now().UTC(),
		}).Error; err != nil {
			return err
		}
		return s.adjust(tx, reaction.ID, reactionType, +1)
	})
	if err != nil {
		return nil, err
	}

	var committed models.Reaction
	if err := s.db.First(&committed, reactionID).Error; err != nil {
		return nil, err
	}
	if s.bus != nil {
		s.bus.Publish(Event{Type: EventReactionChanged, Comment: comment, UserID: user.ID})
	}
	return &committed, nil
}

// aggregate returns the comment's reaction row, materializing it on first
// write for comments created before the aggregate existed.
func (s *ReactionService) aggregate(tx *gorm.DB, commentID uint) (*models.Reaction, error) {
	var reaction models.Reaction
	err := tx.Where("comment_id = ?", commentID).First(&reaction).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		reaction = models.Reaction{CommentID: commentID}
		if err := tx.Create(&reaction).Error; err != nil {
			return nil, err
		}
		return &reaction, nil
	}
	if err != nil {
		return nil, err
	}
	return &reaction, nil
}

// adjust applies a storage-level increment or decrement to a single
// counter column. Decrements are a no-op at zero.
func (s *ReactionService) adjust(tx *gorm.DB, reactionID uint, t models.ReactionType, delta int) error {
	col := "likes"
	if t == models.ReactionDislike {
		col = "dislikes"
	}
	q := tx.Model(&models.Reaction{}).Where("id = ?", reactionID)
	if delta < 0 {
		q = q.Where(col + " > 0")
	}
	return q.UpdateColumn(col, gorm.Expr(col+" + ?", delta)).Error
}

// CountsFor returns the committed (likes, dislikes) pair for a comment.
// Comments without an aggregate report zeros.
func (s *ReactionService) CountsFor(commentID uint) (likes, dislikes int, err error) {
	var reaction models.Reaction
	err = s.db.Where("comment_id = ?", commentID).First(&reaction).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, err
	}
	return reaction.Likes, reaction.Dislikes, nil
}
