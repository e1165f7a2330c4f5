package handlers_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"comentum/internal/config"
	"comentum/internal/db"
	"comentum/internal/handlers"
	"comentum/internal/models"
	"comentum/internal/router"
	"comentum/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type mailRecorder struct {
	mu       sync.Mutex
	messages []*services.Message
}

func (r *mailRecorder) send(msg *services.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
	return nil
}

func (r *mailRecorder) all() []*services.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*services.Message(nil), r.messages...)
}

type testApp struct {
	engine *gin.Engine
	deps   *handlers.Deps
	cfg    *config.Config
	conn   *gorm.DB
	mail   *mailRecorder
	mailer *services.Mailer
}

func newTestApp(t *testing.T, cfg *config.Config) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	db.DB = conn

	targets := services.NewTargetResolver(conn)
	targets.Register("post", "post", services.TargetModel{
		Exists:   func(id uint) (bool, error) { return id > 0 && id < 100, nil },
		Describe: func(id uint) string { return fmt.Sprintf("Post %d", id) },
		PagePath: func(id uint) string { return fmt.Sprintf("/post/%d", id) },
	})

	bus := services.NewBus()
	comments := services.NewCommentService(conn, cfg, targets, bus)
	flags := services.NewFlagService(conn, cfg, bus)
	blocking := services.NewBlockingRegistry(conn, cfg)
	followers := services.NewFollowerService(conn, cfg)

	mail := &mailRecorder{}
	mailer := services.NewMailer(cfg, mail.send)
	mailer.Start(1)
	t.Cleanup(mailer.Close)

	services.NewNotifier(cfg, comments, followers, targets, mailer).Attach(bus)

	deps := &handlers.Deps{
		Cfg:       cfg,
		Targets:   targets,
		Authz:     services.NewAuthorizer(cfg, blocking, flags),
		Comments:  comments,
		Reactions: services.NewReactionService(conn, bus),
		Flags:     flags,
		Blocking:  blocking,
		Followers: followers,
		Mailer:    mailer,
		Confirm:   services.NewConfirmationService(cfg, comments, targets),
	}
	return &testApp{
		engine: router.Setup(cfg, deps),
		deps:   deps,
		cfg:    cfg,
		conn:   conn,
		mail:   mail,
		mailer: mailer,
	}
}

func testConfig() *config.Config {
	return &config.Config{
		SiteName:  "Testsite",
		SiteURL:   "http://example.com",
		SecretKey: "test-secret",

		AllowAnonymous:    true,
		AllowSubscription: true,

		OrderBy:     []string{"-posted"},
		URLPrefix:   "comment-",
		URLIDLength: 8,

		AnonymousUsername: "Anonymous User",

		FlagReasons: []config.FlagReason{
			{Code: 1, Label: "Spam"},
			{Code: config.ReasonSomethingElse, Label: "Something else"},
		},
	}
}

type reply struct {
	Data      json.RawMessage `json:"data"`
	Error     string          `json:"error"`
	Anonymous bool            `json:"anonymous"`
	Msg       string          `json:"msg"`
}

func (a *testApp) do(t *testing.T, method, path string, form url.Values, ajax bool, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if ajax {
		req.Header.Set("X-Requested-With", "XMLHttpRequest")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) reply {
	t.Helper()
	var r reply
	if err := json.Unmarshal(w.Body.Bytes(), &r); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return r
}

// register creates an account through the endpoint and returns the session
// cookies.
func (a *testApp) register(t *testing.T, username string) []*http.Cookie {
	t.Helper()
	w := a.do(t, http.MethodPost, "/register/", url.Values{
		"username": {username},
		"email":    {username + "@example.com"},
		"password": {"hunter2"},
	}, false, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("register %s: status %d: %s", username, w.Code, w.Body.String())
	}
	return w.Result().Cookies()
}

func (a *testApp) promote(t *testing.T, username, role string) {
	t.Helper()
	if err := a.conn.Model(&models.User{}).Where("username = ?", username).Update("role", role).Error; err != nil {
		t.Fatalf("promote %s: %v", username, err)
	}
}

func TestCreateRequiresAjaxMarker(t *testing.T) {
	app := newTestApp(t, testConfig())
	w := app.do(t, http.MethodPost, "/comment/create/", url.Values{"content": {"hi"}}, false, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

func TestAnonymousCreateSendsConfirmation(t *testing.T) {
	app := newTestApp(t, testConfig())

	w := app.do(t, http.MethodPost, "/comment/create/", url.Values{
		"app_name":   {"post"},
		"model_name": {"post"},
		"model_id":   {"1"},
		"content":    {"hello there"},
		"email":      {"anon@example.com"},
	}, true, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	r := decode(t, w)
	if !r.Anonymous {
		t.Error("anonymous marker not set")
	}

	var n int64
	app.conn.Model(&models.Comment{}).Count(&n)
	if n != 0 {
		t.Errorf("comments stored = %d, want none before confirmation", n)
	}

	app.mailer.Close()
	messages := app.mail.all()
	if len(messages) != 1 || messages[0].To[0] != "anon@example.com" {
		t.Fatalf("confirmation mail = %v", messages)
	}
}

func TestConfirmCommitsAndRedirects(t *testing.T) {
	app := newTestApp(t, testConfig())

	w := app.do(t, http.MethodPost, "/comment/create/", url.Values{
		"app_name":   {"post"},
		"model_name": {"post"},
		"model_id":   {"1"},
		"content":    {"confirm me"},
		"email":      {"anon@example.com"},
	}, true, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("create: status %d", w.Code)
	}
	app.mailer.Close()
	messages := app.mail.all()
	if len(messages) != 1 {
		t.Fatalf("messages = %d", len(messages))
	}
	token := extractToken(t, messages[0].Body)

	w = app.do(t, http.MethodGet, "/comment/confirm/"+token+"/", nil, false, nil)
	if w.Code != http.StatusFound {
		t.Fatalf("confirm: status = %d, want 302: %s", w.Code, w.Body.String())
	}
	location := w.Header().Get("Location")
	if !strings.HasPrefix(location, "http://example.com/post/1#comment-") {
		t.Errorf("redirect = %q", location)
	}
	var n int64
	app.conn.Model(&models.Comment{}).Count(&n)
	if n != 1 {
		t.Errorf("comments stored = %d, want 1", n)
	}

	// replaying the link reports it as used, with a 200 page
	w = app.do(t, http.MethodGet, "/comment/confirm/"+token+"/", nil, false, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("replay: status = %d", w.Code)
	}
	if r := decode(t, w); !strings.Contains(r.Msg, "already") && !strings.Contains(r.Msg, "verified") {
		t.Errorf("replay msg = %q", r.Msg)
	}
}

// extractToken pulls the token path segment out of the confirmation link.
func extractToken(t *testing.T, body string) string {
	t.Helper()
	marker := "/comment/confirm/"
	start := strings.Index(body, marker)
	if start < 0 {
		t.Fatalf("no confirmation link in body:\n%s", body)
	}
	rest := body[start+len(marker):]
	end := strings.IndexAny(rest, "/ \n")
	if end < 0 {
		t.Fatalf("unterminated confirmation link:\n%s", body)
	}
	return rest[:end]
}

func TestAuthenticatedCreateAndList(t *testing.T) {
	app := newTestApp(t, testConfig())
	cookies := app.register(t, "alice")

	w := app.do(t, http.MethodPost, "/comment/create/", url.Values{
		"app_name":   {"post"},
		"model_name": {"post"},
		"model_id":   {"1"},
		"content":    {"first!"},
	}, true, cookies)
	if w.Code != http.StatusOK {
		t.Fatalf("create: status %d: %s", w.Code, w.Body.String())
	}
	r := decode(t, w)
	var created struct {
		ID       uint   `json:"id"`
		Username string `json:"username"`
		URLHash  string `json:"urlhash"`
	}
	if err := json.Unmarshal(r.Data, &created); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if created.Username != "alice" || created.ID == 0 {
		t.Errorf("created = %+v", created)
	}

	w = app.do(t, http.MethodGet, "/api/comments/?app_name=post&model_name=post&model_id=1", nil, false, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: status %d", w.Code)
	}
	var listing struct {
		Comments []struct {
			ID      uint `json:"id"`
			Replies []struct {
				ID uint `json:"id"`
			} `json:"replies"`
		} `json:"comments"`
		Total int64 `json:"total"`
	}
	if err := json.Unmarshal(decode(t, w).Data, &listing); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	if listing.Total != 1 || len(listing.Comments) != 1 || listing.Comments[0].ID != created.ID {
		t.Errorf("listing = %+v", listing)
	}
}

func TestAPICreateReturns201WithoutAjax(t *testing.T) {
	app := newTestApp(t, testConfig())
	cookies := app.register(t, "alice")

	w := app.do(t, http.MethodPost, "/api/comments/create/", url.Values{
		"app_name":   {"post"},
		"model_name": {"post"},
		"model_id":   {"1"},
		"content":    {"via api"},
	}, false, cookies)
	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201: %s", w.Code, w.Body.String())
	}
}

func TestEditRequiresAuth(t *testing.T) {
	app := newTestApp(t, testConfig())
	w := app.do(t, http.MethodPost, "/comment/edit/1/", url.Values{"content": {"x"}}, true, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

func TestReactionEndpoint(t *testing.T) {
	app := newTestApp(t, testConfig())
	author := app.register(t, "alice")
	voter := app.register(t, "bob")

	w := app.do(t, http.MethodPost, "/comment/create/", url.Values{
		"app_name":   {"post"},
		"model_name": {"post"},
		"model_id":   {"1"},
		"content":    {"react to me"},
	}, true, author)
	if w.Code != http.StatusOK {
		t.Fatalf("create: status %d", w.Code)
	}
	var created struct {
		ID uint `json:"id"`
	}
	if err := json.Unmarshal(decode(t, w).Data, &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	path := fmt.Sprintf("/comment/%d/react/like/", created.ID)
	w = app.do(t, http.MethodPost, path, url.Values{}, true, voter)
	if w.Code != http.StatusOK {
		t.Fatalf("react: status %d: %s", w.Code, w.Body.String())
	}
	var counts struct {
		Likes    int `json:"likes"`
		Dislikes int `json:"dislikes"`
	}
	if err := json.Unmarshal(decode(t, w).Data, &counts); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if counts.Likes != 1 || counts.Dislikes != 0 {
		t.Errorf("counts = %+v, want 1/0", counts)
	}

	w = app.do(t, http.MethodPost, fmt.Sprintf("/comment/%d/react/love/", created.ID), url.Values{}, true, voter)
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid reaction: status = %d, want 400", w.Code)
	}
}

func TestSubscribersRequiresModerator(t *testing.T) {
	cfg := testConfig()
	cfg.FlagsAllowed = 1
	app := newTestApp(t, cfg)
	user := app.register(t, "alice")
	moderator := app.register(t, "mary")
	app.promote(t, "mary", models.RoleModerator)

	path := "/api/comments/subscribers/?app_name=post&model_name=post&model_id=1"
	w := app.do(t, http.MethodGet, path, nil, false, user)
	if w.Code != http.StatusForbidden {
		t.Errorf("plain user: status = %d, want 403", w.Code)
	}

	w = app.do(t, http.MethodGet, path, nil, false, moderator)
	if w.Code != http.StatusOK {
		t.Fatalf("moderator: status = %d: %s", w.Code, w.Body.String())
	}
	var data struct {
		AppName   string   `json:"app_name"`
		Followers []string `json:"followers"`
	}
	if err := json.Unmarshal(decode(t, w).Data, &data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if data.AppName != "post" {
		t.Errorf("app_name = %q", data.AppName)
	}
}

func TestToggleSubscriptionEndpoint(t *testing.T) {
	app := newTestApp(t, testConfig())

	form := url.Values{
		"app_name":   {"post"},
		"model_name": {"post"},
		"model_id":   {"1"},
		"email":      {"fan@example.com"},
	}
	w := app.do(t, http.MethodPost, "/comment/toggle-subscription/", form, true, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("subscribe: status %d: %s", w.Code, w.Body.String())
	}
	var n int64
	app.conn.Model(&models.Follower{}).Count(&n)
	if n != 1 {
		t.Fatalf("followers = %d, want 1", n)
	}

	w = app.do(t, http.MethodPost, "/comment/toggle-subscription/", form, true, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("unsubscribe: status %d", w.Code)
	}
	app.conn.Model(&models.Follower{}).Count(&n)
	if n != 0 {
		t.Errorf("followers = %d, want 0 after toggle", n)
	}
}
