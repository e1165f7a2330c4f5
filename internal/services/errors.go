package services

import "errors"

// Error kinds surfaced by the core. Handlers translate them into envelope
// responses; anything else propagates as a 500.
var (
	ErrInvalidTarget = errors.New("the app name, model name or model id is not valid")
	ErrInvalidParent = errors.New("this is not a valid id for a parent comment or the parent comment does not belong to the provided model object")

	ErrUnauthenticated = errors.New("authentication is required")
	ErrForbidden       = errors.New("you do not have permission to perform this action")
	ErrBlocked         = errors.New("you cannot perform this action at the moment, contact the admin for more information")

	ErrContentMissing = errors.New("comment content is required")

	ErrInvalidReaction = errors.New("reaction must be a valid reaction type")

	ErrInvalidReason      = errors.New("this is an invalid reason")
	ErrInfoMissing        = errors.New("please supply some information as the reason for flagging")
	ErrAlreadyFlagged     = errors.New("this comment is already flagged by this user")
	ErrNotFlagged         = errors.New("this comment was not flagged by this user")
	ErrStateChange        = errors.New("unable to change flag state at the moment")
	ErrResolveUnedited    = errors.New("the comment must be edited before resolving the flag")
	ErrNotFlaggedObject   = errors.New("object must be flagged")
	ErrSystemNotEnabled   = errors.New("this system must be enabled")
	ErrBrokenVerification = errors.New("the link seems to be broken")
	ErrUsedVerification   = errors.New("the comment has already been verified")

	ErrEmailInvalid  = errors.New("enter a valid email address")
	ErrEmailMissing  = errors.New("email is required for posting anonymous comments")
	ErrEmailRequired = errors.New("email is required to subscribe")

	ErrNonAjax = errors.New("only AJAX requests are allowed")
)
