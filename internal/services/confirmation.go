package services

import (
	"fmt"
	"strings"
	"time"

	"comentum/internal/config"
	"comentum/internal/models"
	"comentum/internal/utils"

	"github.com/golang-jwt/jwt/v5"
)

// CommentDraft carries the identifying fields of an anonymous comment
// between submission and confirmation. Nothing is persisted until the
// signed token comes back.
type CommentDraft struct {
	Content   string
	Email     string
	Posted    time.Time
	AppName   string
	ModelName string
	ModelID   uint
	ParentID  *uint
}

// Outcome of redeeming a confirmation token.
type Outcome int

const (
	OutcomeValid Outcome = iota
	OutcomeBad
	OutcomeExists
)

type draftClaims struct {
	Content   string `json:"content"`
	Email     string `json:"email"`
	Posted    string `json:"posted"`
	AppName   string `json:"app_name"`
	ModelName string `json:"model_name"`
	ModelID   uint   `json:"model_id"`
	ParentID  *uint  `json:"parent_id,omitempty"`
	jwt.RegisteredClaims
}

// ConfirmationService issues and redeems the signed tokens of the
// anonymous-comment flow. Tokens are HS256 JWTs: URL-safe, and tampering
// fails signature verification on redemption.
type ConfirmationService struct {
	cfg      *config.Config
	comments *CommentService
	targets  *TargetResolver
}

func NewConfirmationService(cfg *config.Config, comments *CommentService, targets *TargetResolver) *ConfirmationService {
	return &ConfirmationService{cfg: cfg, comments: comments, targets: targets}
}

// IssueToken signs the draft's identifying fields with the application
// secret.
func (s *ConfirmationService) IssueToken(draft CommentDraft) (string, error) {
	claims := draftClaims{
		Content:   draft.Content,
		Email:     utils.NormalizeEmail(draft.Email),
		Posted:    draft.Posted.UTC().Format(time.RFC3339Nano),
		AppName:   draft.AppName,
		ModelName: draft.ModelName,
		ModelID:   draft.ModelID,
		ParentID:  draft.ParentID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(time.Now()),
			Issuer:   s.cfg.SiteName,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.SecretKey))
}

// Redeem verifies the token and commits the draft through the normal
// create path. Outcomes: Valid with the stored comment; Bad on signature
// or shape failure; Exists when a comment with the same email and posted
// stamp is already stored (replay). Redemption is idempotent: the second
// call with the same token lands in Exists.
func (s *ConfirmationService) Redeem(tokenString string) (Outcome, *models.Comment, error) {
	var claims draftClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.cfg.SecretKey), nil
	})
	if err != nil || !token.Valid {
		return OutcomeBad, nil, nil
	}

	posted, err := time.Parse(time.RFC3339Nano, claims.Posted)
	if err != nil {
		return OutcomeBad, nil, nil
	}
	if strings.TrimSpace(claims.Content) == "" || claims.Email == "" {
		return OutcomeBad, nil, nil
	}

	exists, err := s.comments.Exists(claims.Email, posted)
	if err != nil {
		return OutcomeBad, nil, err
	}
	if exists {
		return OutcomeExists, nil, nil
	}

	target, err := s.targets.Resolve(claims.AppName, claims.ModelName, fmt.Sprint(claims.ModelID))
	if err != nil {
		return OutcomeBad, nil, nil
	}
	var parent *models.Comment
	if claims.ParentID != nil {
		parent, err = s.targets.ResolveParent(fmt.Sprint(*claims.ParentID), target)
		if err != nil {
			return OutcomeBad, nil, nil
		}
	}

	comment, err := s.comments.Create(CreateInput{
		Target:  target,
		Parent:  parent,
		Content: claims.Content,
		Email:   claims.Email,
		Posted:  posted,
	})
	if err != nil {
		return OutcomeBad, nil, err
	}
	return OutcomeValid, comment, nil
}
