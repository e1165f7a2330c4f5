package services

import (
	"errors"
	"time"

	"comentum/internal/config"
	"comentum/internal/models"

	"gorm.io/gorm"
)

// FlagService maintains per-comment flag aggregates and the moderation
// state machine.
type FlagService struct {
	db  *gorm.DB
	cfg *config.Config
	bus *Bus
}

func NewFlagService(conn *gorm.DB, cfg *config.Config, bus *Bus) *FlagService {
	return &FlagService{db: conn, cfg: cfg, bus: bus}
}

// SetFlag adds or removes a flag instance for (user, comment). A nil
// reason means "un-flag". Every change adjusts the aggregate count and
// re-evaluates the automatic state transition. Returns true when an
// instance was created, false when one was removed.
func (s *FlagService) SetFlag(user *models.User, comment *models.Comment, reason *int, info string) (bool, *models.Flag, error) {
	var created bool
	var flagID uint

	err := s.db.Transaction(func(tx *gorm.DB) error {
		flag, err := s.aggregate(tx, comment.ID)
		if err != nil {
			return err
		}
		flagID = flag.ID

		var instance models.FlagInstance
		err = tx.Where("flag_id = ? AND user_id = ?", flag.ID, user.ID).First(&instance).Error
		found := err == nil
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if reason == nil {
			if !found {
				return ErrNotFlagged
			}
			if err := tx.Delete(&instance).Error; err != nil {
				return err
			}
			if err := s.adjustCount(tx, flag.ID, -1); err != nil {
				return err
			}
			created = false
			return s.autoTransition(tx, flag.ID)
		}

		if found {
			return ErrAlreadyFlagged
		}
		if !s.cfg.IsValidReason(*reason) {
			return ErrInvalidReason
		}
		if *reason == config.ReasonSomethingElse && info == "" {
			return ErrInfoMissing
		}
		if err := tx.Create(&models.FlagInstance{
			FlagID:      flag.ID,
			UserID:      user.ID,
			Reason:      *reason,
			Info:        info,
			DateFlagged: time.Now().UTC(),
		}).Error; err != nil {
			return err
		}
		if err := s.adjustCount(tx, flag.ID, +1); err != nil {
			return err
		}
		created = true
		return s.autoTransition(tx, flag.ID)
	})
	if err != nil {
		return false, nil, err
	}

	var committed models.Flag
	if err := s.db.First(&committed, flagID).Error; err != nil {
		return created, nil, err
	}
	if s.bus != nil {
		eventType := EventFlagInstanceRemoved
		if created {
			eventType = EventFlagInstanceAdded
		}
		s.bus.Publish(Event{Type: eventType, Comment: comment, UserID: user.ID})
	}
	return created, &committed, nil
}

// ToggleState applies a moderator-driven transition. Only REJECTED and
// RESOLVED are accepted; RESOLVED requires the comment to have been edited.
// Applying the aggregate's current state a second time routes back to
// FLAGGED, returning the comment to the moderation queue.
func (s *FlagService) ToggleState(moderator *models.User, comment *models.Comment, state int) (*models.Flag, error) {
	target := models.FlagState(state)
	if target != models.FlagStateRejected && target != models.FlagStateResolved {
		return nil, ErrStateChange
	}

	flag, err := s.FlagFor(comment.ID)
	if err != nil {
		return nil, err
	}
	if flag == nil || flag.State == models.FlagStateUnflagged {
		return nil, ErrNotFlaggedObject
	}
	if target == models.FlagStateResolved && !comment.IsEdited() {
		return nil, ErrResolveUnedited
	}

	next := target
	if flag.State == target {
		next = models.FlagStateFlagged
	}

	err = s.db.Model(&models.Flag{}).Where("id = ?", flag.ID).Updates(map[string]interface{}{
		"state":        next,
		"moderator_id": moderator.ID,
	}).Error
	if err != nil {
		return nil, err
	}
	flag.State = next
	flag.ModeratorID = &moderator.ID
	return flag, nil
}

// IsFlagged reports whether the comment sits in any flagged state. Always
// false while flagging is disabled.
func (s *FlagService) IsFlagged(comment *models.Comment) (bool, error) {
	if !s.cfg.ModerationEnabled() {
		return false, nil
	}
	flag, err := s.FlagFor(comment.ID)
	if err != nil {
		return false, err
	}
	return flag != nil && flag.State != models.FlagStateUnflagged, nil
}

// FlagFor returns the comment's flag aggregate, or nil when none has been
// materialized yet.
func (s *FlagService) FlagFor(commentID uint) (*models.Flag, error) {
	var flag models.Flag
	err := s.db.Where("comment_id = ?", commentID).First(&flag).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &flag, nil
}

func (s *FlagService) aggregate(tx *gorm.DB, commentID uint) (*models.Flag, error) {
	var flag models.Flag
	err := tx.Where("comment_id = ?", commentID).First(&flag).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		flag = models.Flag{CommentID: commentID}
		if err := tx.Create(&flag).Error; err != nil {
			return nil, err
		}
		return &flag, nil
	}
	if err != nil {
		return nil, err
	}
	return &flag, nil
}

// adjustCount applies a storage-level increment or decrement; decrement is
// a no-op at zero.
func (s *FlagService) adjustCount(tx *gorm.DB, flagID uint, delta int) error {
	q := tx.Model(&models.Flag{}).Where("id = ?", flagID)
	if delta < 0 {
		q = q.Where("count > 0")
	}
	return q.UpdateColumn("count", gorm.Expr("count + ?", delta)).Error
}

// autoTransition re-reads the committed count and moves the state between
// UNFLAGGED and FLAGGED around the configured threshold. A disabled
// flagging system never transitions.
func (s *FlagService) autoTransition(tx *gorm.DB, flagID uint) error {
	if !s.cfg.ModerationEnabled() {
		return nil
	}
	var flag models.Flag
	if err := tx.First(&flag, flagID).Error; err != nil {
		return err
	}
	switch {
	case flag.Count >= s.cfg.FlagsAllowed && flag.State == models.FlagStateUnflagged:
		return tx.Model(&flag).UpdateColumn("state", models.FlagStateFlagged).Error
	case flag.Count < s.cfg.FlagsAllowed && flag.State == models.FlagStateFlagged:
		return tx.Model(&flag).UpdateColumn("state", models.FlagStateUnflagged).Error
	}
	return nil
}
