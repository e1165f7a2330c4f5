package models

import "fmt"

// CommentContentType is the content-type tag under which comments register
// themselves as followable objects (a reply's author follows the parent
// comment, not the whole target thread).
const CommentContentType = "comment.comment"

// Target identifies the host entity a comment attaches to: a content-type
// tag of the form "app.model" plus the row id. Equality is by the pair.
type Target struct {
	ContentType string
	ObjectID    uint
}

func (t Target) String() string {
	return fmt.Sprintf("%s:%d", t.ContentType, t.ObjectID)
}

// CommentTarget returns the Target handle addressing a comment itself.
func CommentTarget(commentID uint) Target {
	return Target{ContentType: CommentContentType, ObjectID: commentID}
}
