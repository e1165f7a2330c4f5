package services

import (
	"errors"

	"comentum/internal/config"
	"comentum/internal/models"
	"comentum/internal/utils"

	"gorm.io/gorm"
)

// BlockingRegistry records blocked principals by user id or email and the
// append-only history of block/unblock toggles.
type BlockingRegistry struct {
	db  *gorm.DB
	cfg *config.Config
}

func NewBlockingRegistry(conn *gorm.DB, cfg *config.Config) *BlockingRegistry {
	return &BlockingRegistry{db: conn, cfg: cfg}
}

// IsBlocked looks up the principal, preferring the user id when present.
// Always false while blocking is disabled.
func (r *BlockingRegistry) IsBlocked(userID *uint, email string) (bool, error) {
	if !r.cfg.AllowBlockingUsers {
		return false, nil
	}
	var n int64
	if userID != nil {
		err := r.db.Model(&models.BlockedUser{}).Where("user_id = ? AND blocked = ?", *userID, true).Count(&n).Error
		return n > 0, err
	}
	email = utils.NormalizeEmail(email)
	if email == "" {
		return false, nil
	}
	err := r.db.Model(&models.BlockedUser{}).Where("email = ? AND blocked = ?", email, true).Count(&n).Error
	return n > 0, err
}

// ToggleBlock flips the blocked state of the principal behind a comment:
// its owner when one exists, otherwise its email. A history row records
// the actor and reason; blocking without a reason records the comment's
// content. Returns the registry row and the resulting blocked state.
func (r *BlockingRegistry) ToggleBlock(comment *models.Comment, actor *models.User, reason string) (*models.BlockedUser, bool, error) {
	var blocked *models.BlockedUser

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var err error
		if comment.UserID != nil {
			blocked, err = r.upsertByUserID(tx, *comment.UserID, comment.Email)
		} else {
			blocked, err = r.upsertByEmail(tx, comment.Email)
		}
		if err != nil {
			return err
		}

		blocked.Blocked = !blocked.Blocked
		if err := tx.Model(blocked).UpdateColumn("blocked", blocked.Blocked).Error; err != nil {
			return err
		}

		state := models.BlockStateUnblocked
		if blocked.Blocked {
			state = models.BlockStateBlocked
			if reason == "" {
				reason = comment.Content
			}
		}
		return tx.Create(&models.BlockedUserHistory{
			BlockedUserID: blocked.ID,
			BlockerID:     &actor.ID,
			Reason:        reason,
			State:         state,
		}).Error
	})
	if err != nil {
		return nil, false, err
	}
	return blocked, blocked.Blocked, nil
}

func (r *BlockingRegistry) upsertByUserID(tx *gorm.DB, userID uint, email string) (*models.BlockedUser, error) {
	var row models.BlockedUser
	err := tx.Where("user_id = ?", userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		row = models.BlockedUser{UserID: &userID, Blocked: false}
		if email != "" {
			row.Email = &email
		}
		if err := tx.Create(&row).Error; err != nil {
			return nil, err
		}
		return &row, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// upsertByEmail tolerates multiple historical rows for the same email by
// preferring the one with no linked user.
func (r *BlockingRegistry) upsertByEmail(tx *gorm.DB, email string) (*models.BlockedUser, error) {
	var rows []models.BlockedUser
	if err := tx.Where("email = ?", email).Find(&rows).Error; err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		row := models.BlockedUser{Email: &email, Blocked: false}
		if err := tx.Create(&row).Error; err != nil {
			return nil, err
		}
		return &row, nil
	case 1:
		return &rows[0], nil
	default:
		for i := range rows {
			if rows[i].UserID == nil {
				return &rows[i], nil
			}
		}
		return &rows[0], nil
	}
}
