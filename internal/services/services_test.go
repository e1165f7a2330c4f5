package services

import (
	"fmt"
	"testing"

	"comentum/internal/config"
	"comentum/internal/db"
	"comentum/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens an isolated in-memory database and migrates the schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.Migrate(conn); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return conn
}

func newTestConfig() *config.Config {
	return &config.Config{
		SiteName:  "Testsite",
		SiteURL:   "http://example.com",
		SecretKey: "test-secret",

		AllowAnonymous:     true,
		AllowSubscription:  true,
		AllowBlockingUsers: true,

		OrderBy: []string{"-posted"},

		URLPrefix:   "comment-",
		URLIDLength: 8,

		AnonymousUsername: "Anonymous User",
		ContactEmail:      "contact@example.com",

		FlagReasons: []config.FlagReason{
			{Code: 1, Label: "Spam"},
			{Code: 2, Label: "Abusive"},
			{Code: config.ReasonSomethingElse, Label: "Something else"},
		},
	}
}

// fixture is the fully wired service layer over one test database.
type fixture struct {
	conn      *gorm.DB
	cfg       *config.Config
	bus       *Bus
	targets   *TargetResolver
	comments  *CommentService
	reactions *ReactionService
	flags     *FlagService
	blocking  *BlockingRegistry
	followers *FollowerService
	authz     *Authorizer

	target models.Target
}

func newFixture(t *testing.T, cfg *config.Config) *fixture {
	t.Helper()
	conn := newTestDB(t)
	bus := NewBus()
	targets := NewTargetResolver(conn)
	// stand-in host model, always resolvable
	targets.Register("post", "post", TargetModel{
		Exists:   func(id uint) (bool, error) { return id > 0 && id < 100, nil },
		Describe: func(id uint) string { return fmt.Sprintf("Post %d", id) },
		PagePath: func(id uint) string { return fmt.Sprintf("/post/%d", id) },
	})

	comments := NewCommentService(conn, cfg, targets, bus)
	flags := NewFlagService(conn, cfg, bus)
	blocking := NewBlockingRegistry(conn, cfg)
	return &fixture{
		conn:      conn,
		cfg:       cfg,
		bus:       bus,
		targets:   targets,
		comments:  comments,
		reactions: NewReactionService(conn, bus),
		flags:     flags,
		blocking:  blocking,
		followers: NewFollowerService(conn, cfg),
		authz:     NewAuthorizer(cfg, blocking, flags),
		target:    models.Target{ContentType: "post.post", ObjectID: 1},
	}
}

func (f *fixture) createUser(t *testing.T, username, role string) *models.User {
	t.Helper()
	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "x",
		Role:     role,
	}
	if err := f.conn.Create(user).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return user
}

func (f *fixture) createComment(t *testing.T, in CreateInput) *models.Comment {
	t.Helper()
	if in.Target == (models.Target{}) {
		in.Target = f.target
	}
	comment, err := f.comments.Create(in)
	if err != nil {
		t.Fatalf("create comment: %v", err)
	}
	return comment
}
