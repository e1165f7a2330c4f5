package services

import (
	"errors"
	"testing"

	"comentum/internal/models"
)

func TestCanCreate(t *testing.T) {
	cfg := newTestConfig()
	f := newFixture(t, cfg)
	user := f.createUser(t, "alice", models.RoleUser)
	moderator := f.createUser(t, "mary", models.RoleModerator)

	if err := f.authz.CanCreate(user, ""); err != nil {
		t.Errorf("authenticated: %v", err)
	}
	if err := f.authz.CanCreate(nil, "anon@example.com"); err != nil {
		t.Errorf("anonymous allowed: %v", err)
	}

	cfg.AllowAnonymous = false
	if err := f.authz.CanCreate(nil, "anon@example.com"); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("anonymous forbidden: err = %v, want ErrUnauthenticated", err)
	}
	cfg.AllowAnonymous = true

	comment := f.createComment(t, CreateInput{Content: "rude", User: user})
	if _, _, err := f.blocking.ToggleBlock(comment, moderator, ""); err != nil {
		t.Fatalf("block: %v", err)
	}
	if err := f.authz.CanCreate(user, ""); !errors.Is(err, ErrBlocked) {
		t.Errorf("blocked author: err = %v, want ErrBlocked", err)
	}
}

func TestCanEditAndDelete(t *testing.T) {
	cfg := newTestConfig()
	cfg.FlagsAllowed = 1
	f := newFixture(t, cfg)
	owner := f.createUser(t, "alice", models.RoleUser)
	other := f.createUser(t, "bob", models.RoleUser)
	moderator := f.createUser(t, "mary", models.RoleModerator)
	admin := f.createUser(t, "root", models.RoleAdmin)
	comment := f.createComment(t, CreateInput{Content: "mine", User: owner})

	if err := f.authz.CanEdit(owner, comment); err != nil {
		t.Errorf("owner edit: %v", err)
	}
	if err := f.authz.CanEdit(other, comment); !errors.Is(err, ErrForbidden) {
		t.Errorf("non-owner edit: err = %v, want ErrForbidden", err)
	}
	if err := f.authz.CanEdit(moderator, comment); !errors.Is(err, ErrForbidden) {
		t.Errorf("moderator edit: err = %v, want ErrForbidden", err)
	}
	if err := f.authz.CanEdit(nil, comment); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("anonymous edit: err = %v, want ErrUnauthenticated", err)
	}

	if err := f.authz.CanDelete(owner, comment); err != nil {
		t.Errorf("owner delete: %v", err)
	}
	if err := f.authz.CanDelete(admin, comment); err != nil {
		t.Errorf("admin delete: %v", err)
	}
	if err := f.authz.CanDelete(other, comment); !errors.Is(err, ErrForbidden) {
		t.Errorf("stranger delete: err = %v, want ErrForbidden", err)
	}
	// a moderator may delete only flagged comments
	if err := f.authz.CanDelete(moderator, comment); !errors.Is(err, ErrForbidden) {
		t.Errorf("moderator delete unflagged: err = %v, want ErrForbidden", err)
	}
	reason := 1
	if _, _, err := f.flags.SetFlag(other, comment, &reason, ""); err != nil {
		t.Fatalf("flag: %v", err)
	}
	if err := f.authz.CanDelete(moderator, comment); err != nil {
		t.Errorf("moderator delete flagged: %v", err)
	}
}

func TestCanFlag(t *testing.T) {
	cfg := newTestConfig()
	f := newFixture(t, cfg)
	owner := f.createUser(t, "alice", models.RoleUser)
	other := f.createUser(t, "bob", models.RoleUser)
	comment := f.createComment(t, CreateInput{Content: "mine", User: owner})

	// flagging disabled while the threshold is zero
	if err := f.authz.CanFlag(other, comment); !errors.Is(err, ErrSystemNotEnabled) {
		t.Errorf("disabled system: err = %v, want ErrSystemNotEnabled", err)
	}

	cfg.FlagsAllowed = 2
	if err := f.authz.CanFlag(other, comment); err != nil {
		t.Errorf("flag: %v", err)
	}
	if err := f.authz.CanFlag(owner, comment); !errors.Is(err, ErrForbidden) {
		t.Errorf("owner self-flag: err = %v, want ErrForbidden", err)
	}
	if err := f.authz.CanFlag(nil, comment); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("anonymous flag: err = %v, want ErrUnauthenticated", err)
	}
}

func TestCanChangeFlagState(t *testing.T) {
	cfg := newTestConfig()
	cfg.FlagsAllowed = 1
	f := newFixture(t, cfg)
	owner := f.createUser(t, "alice", models.RoleUser)
	flagger := f.createUser(t, "bob", models.RoleUser)
	moderator := f.createUser(t, "mary", models.RoleModerator)
	comment := f.createComment(t, CreateInput{Content: "mine", User: owner})

	if err := f.authz.CanChangeFlagState(moderator, comment); !errors.Is(err, ErrNotFlaggedObject) {
		t.Errorf("unflagged: err = %v, want ErrNotFlaggedObject", err)
	}
	reason := 1
	if _, _, err := f.flags.SetFlag(flagger, comment, &reason, ""); err != nil {
		t.Fatalf("flag: %v", err)
	}
	if err := f.authz.CanChangeFlagState(moderator, comment); err != nil {
		t.Errorf("moderator: %v", err)
	}
	if err := f.authz.CanChangeFlagState(flagger, comment); !errors.Is(err, ErrForbidden) {
		t.Errorf("plain user: err = %v, want ErrForbidden", err)
	}
}

func TestRolesRequireModeration(t *testing.T) {
	cfg := newTestConfig() // FlagsAllowed = 0
	f := newFixture(t, cfg)
	admin := f.createUser(t, "root", models.RoleAdmin)

	if f.authz.IsAdmin(admin) || f.authz.IsModerator(admin) {
		t.Error("roles active while moderation is disabled")
	}
	cfg.FlagsAllowed = 1
	if !f.authz.IsAdmin(admin) || !f.authz.IsModerator(admin) {
		t.Error("admin not recognized with moderation enabled")
	}
}

func TestCanViewSubscribersAndToggleBlock(t *testing.T) {
	cfg := newTestConfig()
	cfg.FlagsAllowed = 1
	f := newFixture(t, cfg)
	user := f.createUser(t, "alice", models.RoleUser)
	moderator := f.createUser(t, "mary", models.RoleModerator)

	if err := f.authz.CanViewSubscribers(moderator); err != nil {
		t.Errorf("moderator subscribers: %v", err)
	}
	if err := f.authz.CanViewSubscribers(user); !errors.Is(err, ErrForbidden) {
		t.Errorf("plain user subscribers: err = %v, want ErrForbidden", err)
	}
	cfg.AllowSubscription = false
	if err := f.authz.CanViewSubscribers(moderator); !errors.Is(err, ErrSystemNotEnabled) {
		t.Errorf("disabled subscriptions: err = %v, want ErrSystemNotEnabled", err)
	}

	if err := f.authz.CanToggleBlock(moderator); err != nil {
		t.Errorf("moderator block: %v", err)
	}
	if err := f.authz.CanToggleBlock(user); !errors.Is(err, ErrForbidden) {
		t.Errorf("plain user block: err = %v, want ErrForbidden", err)
	}
	cfg.AllowBlockingUsers = false
	if err := f.authz.CanToggleBlock(moderator); !errors.Is(err, ErrSystemNotEnabled) {
		t.Errorf("disabled blocking: err = %v, want ErrSystemNotEnabled", err)
	}
}
