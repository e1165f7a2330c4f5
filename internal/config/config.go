package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// FlagReason is one selectable (code, label) pair for flagging a comment.
type FlagReason struct {
	Code  int
	Label string
}

// ReasonSomethingElse is appended to every reason list. Choosing it
// requires free-text info from the flagging user.
const ReasonSomethingElse = 100

// AllowedOrderKeys are the sort keys accepted in COMMENT_ORDER_BY.
// Each may be prefixed with '-' for descending; '?' means random.
var AllowedOrderKeys = []string{"posted", "reaction__likes", "reaction__dislikes"}

// Config holds every recognized option. It is loaded once at startup and
// read without synchronization afterwards.
type Config struct {
	SiteName  string
	SiteURL   string
	SecretKey string
	Port      string

	DatabaseURL string

	AllowAnonymous     bool
	FlagsAllowed       int
	ShowFlagged        bool
	AllowBlockingUsers bool
	AllowSubscription  bool
	AllowTranslation   bool

	OrderBy []string
	PerPage int

	URLPrefix   string
	URLSuffix   string
	URLIDLength int

	AnonymousUsername           string
	UseEmailFirstPartAsUsername bool

	FromEmail     string
	ContactEmail  string
	SendHTMLEmail bool

	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string

	FlagReasons []FlagReason
}

// Load reads the configuration from environment variables. Call godotenv
// before Load to pick up a .env file.
func Load() *Config {
	cfg := &Config{
		SiteName:  envString("SITE_NAME", "Comentum"),
		SiteURL:   strings.TrimRight(envString("SITE_URL", "http://localhost:8080"), "/"),
		SecretKey: envString("SECRET_KEY", ""),
		Port:      envString("PORT", "8080"),

		DatabaseURL: envString("DATABASE_URL", ""),

		AllowAnonymous:     envBool("COMMENT_ALLOW_ANONYMOUS", false),
		FlagsAllowed:       envInt("COMMENT_FLAGS_ALLOWED", 0),
		ShowFlagged:        envBool("COMMENT_SHOW_FLAGGED", false),
		AllowBlockingUsers: envBool("COMMENT_ALLOW_BLOCKING_USERS", false),
		AllowSubscription:  envBool("COMMENT_ALLOW_SUBSCRIPTION", false),
		AllowTranslation:   envBool("COMMENT_ALLOW_TRANSLATION", false),

		OrderBy: envList("COMMENT_ORDER_BY", []string{"-posted"}),
		PerPage: envInt("COMMENT_PER_PAGE", 0),

		URLPrefix:   envString("COMMENT_URL_PREFIX", "comment-"),
		URLSuffix:   envString("COMMENT_URL_SUFFIX", ""),
		URLIDLength: envInt("COMMENT_URL_ID_LENGTH", 8),

		AnonymousUsername:           envString("COMMENT_ANONYMOUS_USERNAME", "Anonymous User"),
		UseEmailFirstPartAsUsername: envBool("COMMENT_USE_EMAIL_FIRST_PART_AS_USERNAME", false),

		FromEmail:     envString("COMMENT_FROM_EMAIL", ""),
		ContactEmail:  envString("COMMENT_CONTACT_EMAIL", ""),
		SendHTMLEmail: envBool("COMMENT_SEND_HTML_EMAIL", true),

		SMTPHost: envString("SMTP_HOST", ""),
		SMTPPort: envString("SMTP_PORT", "587"),
		SMTPUser: envString("SMTP_USER", ""),
		SMTPPass: envString("SMTP_PASS", ""),
	}

	cfg.FlagReasons = parseReasons(os.Getenv("COMMENT_FLAG_REASONS"))
	return cfg
}

// Validate checks the recognized options. It is called once at startup;
// a non-nil error is fatal.
func (c *Config) Validate() error {
	if c.SecretKey == "" {
		return fmt.Errorf("config: SECRET_KEY must be set")
	}
	if c.PerPage < 0 {
		return fmt.Errorf("config: COMMENT_PER_PAGE must be >= 0")
	}
	if c.URLIDLength < 4 {
		return fmt.Errorf("config: COMMENT_URL_ID_LENGTH must be at least 4")
	}
	if err := c.validateOrderBy(); err != nil {
		return err
	}
	return c.validateReasons()
}

func (c *Config) validateOrderBy() error {
	seen := map[string]string{}
	for _, key := range c.OrderBy {
		if key == "?" {
			if _, dup := seen["?"]; dup {
				return fmt.Errorf("config: COMMENT_ORDER_BY has duplicated value %q", key)
			}
			seen["?"] = key
			continue
		}
		base := strings.TrimPrefix(key, "-")
		valid := false
		for _, allowed := range AllowedOrderKeys {
			if base == allowed {
				valid = true
				break
			}
		}
		if !valid {
			return fmt.Errorf("config: %q is not a valid value for COMMENT_ORDER_BY, choose one among %v", key, AllowedOrderKeys)
		}
		if prev, dup := seen[base]; dup {
			return fmt.Errorf("config: COMMENT_ORDER_BY should not have duplicated values: %q and %q, use one value only", prev, key)
		}
		seen[base] = key
	}
	return nil
}

func (c *Config) validateReasons() error {
	seen := map[int]bool{}
	for _, r := range c.FlagReasons {
		if r.Code == ReasonSomethingElse && r.Label != somethingElseLabel {
			return fmt.Errorf("config: flag reason code %d is reserved", ReasonSomethingElse)
		}
		if seen[r.Code] {
			return fmt.Errorf("config: duplicated flag reason code %d", r.Code)
		}
		seen[r.Code] = true
	}
	return nil
}

// ModerationEnabled reports whether the flagging system, and with it the
// moderator and admin roles, is switched on.
func (c *Config) ModerationEnabled() bool {
	return c.FlagsAllowed > 0
}

// ReasonCodes returns the accepted flag reason codes, sentinel included.
func (c *Config) ReasonCodes() []int {
	codes := make([]int, 0, len(c.FlagReasons))
	for _, r := range c.FlagReasons {
		codes = append(codes, r.Code)
	}
	return codes
}

// IsValidReason reports whether code is an accepted flag reason.
func (c *Config) IsValidReason(code int) bool {
	for _, r := range c.FlagReasons {
		if r.Code == code {
			return true
		}
	}
	return false
}

const somethingElseLabel = "Something else"

var defaultReasons = []FlagReason{
	{Code: 1, Label: "Spam | Exists only to promote a service"},
	{Code: 2, Label: "Abusive | Intended at promoting hatred"},
}

// parseReasons reads "code:label;code:label" pairs and always appends the
// "Something else" sentinel.
func parseReasons(raw string) []FlagReason {
	reasons := defaultReasons
	if raw != "" {
		reasons = nil
		for _, pair := range strings.Split(raw, ";") {
			pair = strings.TrimSpace(pair)
			if pair == "" {
				continue
			}
			parts := strings.SplitN(pair, ":", 2)
			if len(parts) != 2 {
				continue
			}
			code, err := strconv.Atoi(strings.TrimSpace(parts[0]))
			if err != nil {
				continue
			}
			reasons = append(reasons, FlagReason{Code: code, Label: strings.TrimSpace(parts[1])})
		}
	}
	out := make([]FlagReason, 0, len(reasons)+1)
	out = append(out, reasons...)
	out = append(out, FlagReason{Code: ReasonSomethingElse, Label: somethingElseLabel})
	return out
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
