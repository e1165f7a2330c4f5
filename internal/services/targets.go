package services

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"comentum/internal/models"

	"gorm.io/gorm"
)

// TargetModel describes one registered host model: how to probe a row for
// existence, how to render its display name, and the path of its page.
type TargetModel struct {
	Exists   func(id uint) (bool, error)
	Describe func(id uint) string
	PagePath func(id uint) string
}

// TargetResolver maps (app_name, model_name, id) triples to opaque Target
// handles. Host applications register their models at startup; comments
// register themselves so that replies can follow their parent thread.
type TargetResolver struct {
	db *gorm.DB

	mu       sync.RWMutex
	registry map[string]TargetModel
}

func NewTargetResolver(conn *gorm.DB) *TargetResolver {
	r := &TargetResolver{db: conn, registry: make(map[string]TargetModel)}
	r.Register("comment", "comment", TargetModel{
		Exists: func(id uint) (bool, error) {
			var n int64
			err := conn.Model(&models.Comment{}).Where("id = ?", id).Count(&n).Error
			return n > 0, err
		},
		Describe: func(id uint) string {
			var c models.Comment
			if err := conn.First(&c, id).Error; err != nil {
				return fmt.Sprintf("comment %d", id)
			}
			// truncate on rune boundaries, the content may be multi-byte
			content := []rune(c.Content)
			if len(content) > 20 {
				content = content[:20]
			}
			return fmt.Sprintf("comment: %s", string(content))
		},
		PagePath: func(id uint) string { return "" },
	})
	return r
}

func (r *TargetResolver) Register(app, model string, tm TargetModel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registry[contentType(app, model)] = tm
}

func contentType(app, model string) string {
	return strings.ToLower(app) + "." + strings.ToLower(model)
}

func (r *TargetResolver) lookup(ct string) (TargetModel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tm, ok := r.registry[ct]
	return tm, ok
}

// Resolve validates the (app, model, id) triple and returns the Target
// handle. Every failure maps to ErrInvalidTarget with a detail message.
func (r *TargetResolver) Resolve(app, model, idStr string) (models.Target, error) {
	var zero models.Target
	if app == "" {
		return zero, fmt.Errorf("%w: app name must be provided", ErrInvalidTarget)
	}
	if model == "" {
		return zero, fmt.Errorf("%w: model name must be provided", ErrInvalidTarget)
	}
	if idStr == "" {
		return zero, fmt.Errorf("%w: model id must be provided", ErrInvalidTarget)
	}
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		return zero, fmt.Errorf("%w: model id must be an integer, %q is not", ErrInvalidTarget, idStr)
	}

	ct := contentType(app, model)
	tm, ok := r.lookup(ct)
	if !ok {
		return zero, fmt.Errorf("%w: %q is not a valid model name", ErrInvalidTarget, ct)
	}
	exists, err := tm.Exists(uint(id))
	if err != nil {
		return zero, err
	}
	if !exists {
		return zero, fmt.Errorf("%w: %d is not a valid model id for the model %q", ErrInvalidTarget, id, model)
	}
	return models.Target{ContentType: ct, ObjectID: uint(id)}, nil
}

// ResolveParent returns the parent comment for a reply, or nil when
// parentID is empty or the literal "0". The parent must exist and share
// the reply's target.
func (r *TargetResolver) ResolveParent(parentID string, target models.Target) (*models.Comment, error) {
	if parentID == "" || parentID == "0" {
		return nil, nil
	}
	id, err := strconv.ParseUint(parentID, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: parent id must be an integer, %q is not", ErrInvalidParent, parentID)
	}
	var parent models.Comment
	err = r.db.Where("id = ? AND content_type = ? AND object_id = ?", uint(id), target.ContentType, target.ObjectID).
		First(&parent).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidParent
	}
	if err != nil {
		return nil, err
	}
	return &parent, nil
}

// Describe renders the display name of a target, used as the thread name in
// notification subjects.
func (r *TargetResolver) Describe(t models.Target) string {
	tm, ok := r.lookup(t.ContentType)
	if !ok || tm.Describe == nil {
		return t.String()
	}
	return tm.Describe(t.ObjectID)
}

// PagePath returns the site-relative path of a target's page, or "" when
// the target has none.
func (r *TargetResolver) PagePath(t models.Target) string {
	tm, ok := r.lookup(t.ContentType)
	if !ok || tm.PagePath == nil {
		return ""
	}
	return tm.PagePath(t.ObjectID)
}
