package services

import (
	"comentum/internal/config"
	"comentum/internal/models"
	"comentum/internal/utils"

	"gorm.io/gorm"
)

// FollowerService maintains the (email, object) follower set behind
// thread notifications.
type FollowerService struct {
	db  *gorm.DB
	cfg *config.Config
}

func NewFollowerService(conn *gorm.DB, cfg *config.Config) *FollowerService {
	return &FollowerService{db: conn, cfg: cfg}
}

func (s *FollowerService) IsFollowing(email string, obj models.Target) (bool, error) {
	var n int64
	err := s.db.Model(&models.Follower{}).
		Where("email = ? AND content_type = ? AND object_id = ?", email, obj.ContentType, obj.ObjectID).
		Count(&n).Error
	return n > 0, err
}

// Follow subscribes email to the object. Returns nil without error when
// the email is empty or already following.
func (s *FollowerService) Follow(email, username string, obj models.Target) (*models.Follower, error) {
	email = utils.NormalizeEmail(email)
	if email == "" {
		return nil, nil
	}
	following, err := s.IsFollowing(email, obj)
	if err != nil || following {
		return nil, err
	}
	follower := &models.Follower{
		Email:       email,
		Username:    username,
		ContentType: obj.ContentType,
		ObjectID:    obj.ObjectID,
	}
	if err := s.db.Create(follower).Error; err != nil {
		return nil, err
	}
	return follower, nil
}

func (s *FollowerService) Unfollow(email string, obj models.Target) error {
	return s.db.Where("email = ? AND content_type = ? AND object_id = ?", email, obj.ContentType, obj.ObjectID).
		Delete(&models.Follower{}).Error
}

// ToggleFollow flips the following state and returns the resulting one.
func (s *FollowerService) ToggleFollow(email, username string, obj models.Target) (bool, error) {
	email = utils.NormalizeEmail(email)
	if email == "" {
		return false, ErrEmailRequired
	}
	following, err := s.IsFollowing(email, obj)
	if err != nil {
		return false, err
	}
	if following {
		return false, s.Unfollow(email, obj)
	}
	_, err = s.Follow(email, username, obj)
	return true, err
}

// FollowParentThread subscribes a new comment's author: a parent comment
// follows its target and itself, a reply follows only the parent comment
// so reply authors are not silently subscribed to the whole thread.
func (s *FollowerService) FollowParentThread(comment *models.Comment, username string) error {
	if comment.Email == "" {
		return nil
	}
	if comment.IsParent() {
		if _, err := s.Follow(comment.Email, username, comment.Target()); err != nil {
			return err
		}
		_, err := s.Follow(comment.Email, username, models.CommentTarget(comment.ID))
		return err
	}
	_, err := s.Follow(comment.Email, username, models.CommentTarget(*comment.ParentID))
	return err
}

// FollowersOf lists the followers of an object.
func (s *FollowerService) FollowersOf(obj models.Target) ([]models.Follower, error) {
	var followers []models.Follower
	err := s.db.Where("content_type = ? AND object_id = ?", obj.ContentType, obj.ObjectID).
		Find(&followers).Error
	return followers, err
}

// FollowersOfExcluding lists followers of an object minus one email,
// used to keep a comment's author out of their own notification fan-out.
func (s *FollowerService) FollowersOfExcluding(obj models.Target, email string) ([]models.Follower, error) {
	var followers []models.Follower
	err := s.db.Where("content_type = ? AND object_id = ? AND email <> ?", obj.ContentType, obj.ObjectID, email).
		Find(&followers).Error
	return followers, err
}
