package services

import (
	"comentum/internal/config"
	"comentum/internal/models"
)

// Authorizer computes the capability set of a principal against a comment.
// It is the single owner of the blocked-principal check; handlers never
// query the blocking registry directly.
type Authorizer struct {
	cfg      *config.Config
	blocking *BlockingRegistry
	flags    *FlagService
}

func NewAuthorizer(cfg *config.Config, blocking *BlockingRegistry, flags *FlagService) *Authorizer {
	return &Authorizer{cfg: cfg, blocking: blocking, flags: flags}
}

// IsAdmin and IsModerator require the moderation features to be enabled;
// with flagging off the roles carry no capabilities.
func (a *Authorizer) IsAdmin(user *models.User) bool {
	return user != nil && a.cfg.ModerationEnabled() && user.HasAdminRole()
}

func (a *Authorizer) IsModerator(user *models.User) bool {
	return user != nil && a.cfg.ModerationEnabled() && user.HasModeratorRole()
}

func (a *Authorizer) IsOwner(user *models.User, comment *models.Comment) bool {
	return user != nil && comment.UserID != nil && *comment.UserID == user.ID
}

func (a *Authorizer) isBlocked(user *models.User, email string) (bool, error) {
	var userID *uint
	if user != nil {
		userID = &user.ID
		email = user.Email
	}
	return a.blocking.IsBlocked(userID, email)
}

// CanCreate permits a write when the principal is not blocked and is
// either authenticated or covered by allow_anonymous.
func (a *Authorizer) CanCreate(user *models.User, email string) error {
	if user == nil && !a.cfg.AllowAnonymous {
		return ErrUnauthenticated
	}
	blocked, err := a.isBlocked(user, email)
	if err != nil {
		return err
	}
	if blocked {
		return ErrBlocked
	}
	return nil
}

func (a *Authorizer) CanEdit(user *models.User, comment *models.Comment) error {
	if user == nil {
		return ErrUnauthenticated
	}
	if !a.IsOwner(user, comment) {
		return ErrForbidden
	}
	return nil
}

func (a *Authorizer) CanDelete(user *models.User, comment *models.Comment) error {
	if user == nil {
		return ErrUnauthenticated
	}
	if a.IsOwner(user, comment) || a.IsAdmin(user) {
		return nil
	}
	flagged, err := a.flags.IsFlagged(comment)
	if err != nil {
		return err
	}
	if flagged && a.IsModerator(user) {
		return nil
	}
	return ErrForbidden
}

func (a *Authorizer) CanReact(user *models.User) error {
	if user == nil {
		return ErrUnauthenticated
	}
	blocked, err := a.isBlocked(user, "")
	if err != nil {
		return err
	}
	if blocked {
		return ErrBlocked
	}
	return nil
}

func (a *Authorizer) CanFlag(user *models.User, comment *models.Comment) error {
	if !a.cfg.ModerationEnabled() {
		return ErrSystemNotEnabled
	}
	if user == nil {
		return ErrUnauthenticated
	}
	if a.IsOwner(user, comment) {
		return ErrForbidden
	}
	blocked, err := a.isBlocked(user, "")
	if err != nil {
		return err
	}
	if blocked {
		return ErrBlocked
	}
	return nil
}

// CanChangeFlagState requires a moderator and a currently flagged comment.
func (a *Authorizer) CanChangeFlagState(user *models.User, comment *models.Comment) error {
	if !a.cfg.ModerationEnabled() {
		return ErrSystemNotEnabled
	}
	if user == nil {
		return ErrUnauthenticated
	}
	if !a.IsModerator(user) {
		return ErrForbidden
	}
	flagged, err := a.flags.IsFlagged(comment)
	if err != nil {
		return err
	}
	if !flagged {
		return ErrNotFlaggedObject
	}
	return nil
}

func (a *Authorizer) CanSubscribe() error {
	if !a.cfg.AllowSubscription {
		return ErrSystemNotEnabled
	}
	return nil
}

func (a *Authorizer) CanViewSubscribers(user *models.User) error {
	if !a.cfg.AllowSubscription {
		return ErrSystemNotEnabled
	}
	if user == nil {
		return ErrUnauthenticated
	}
	if !a.IsModerator(user) {
		return ErrForbidden
	}
	return nil
}

func (a *Authorizer) CanToggleBlock(user *models.User) error {
	if !a.cfg.AllowBlockingUsers {
		return ErrSystemNotEnabled
	}
	if user == nil {
		return ErrUnauthenticated
	}
	if !a.IsModerator(user) && !a.IsAdmin(user) {
		return ErrForbidden
	}
	return nil
}
