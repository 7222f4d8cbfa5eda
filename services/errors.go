package services

import "errors"

// Kind classifies a service failure so transports can map it to a status.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindPermission
	KindAuth
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindPermission:
		return "permission"
	case KindAuth:
		return "auth"
	default:
		return "internal"
	}
}

// Error is a typed, caller-recoverable failure.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// KindOf returns the kind of err, or KindInternal for untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

var (
	ErrMissingFields            = newError(KindValidation, "username, email and password are required")
	ErrPasswordRequired         = newError(KindValidation, "password is required")
	ErrPasswordTooLong          = newError(KindValidation, "password must be at most 72 bytes")
	ErrInvalidUpgradeCost       = newError(KindValidation, "points to spend must be positive")
	ErrEmptyContent             = newError(KindValidation, "content cannot be empty")
	ErrMissingReceiverOrContent = newError(KindValidation, "receiver and content are required")
	ErrGroupNameRequired        = newError(KindValidation, "group name is required")
	ErrEmptyQuery               = newError(KindValidation, "search query cannot be empty")
	ErrEmptyFile                = newError(KindValidation, "file is empty")
	ErrFileTooLarge             = newError(KindValidation, "file exceeds the upload size limit")

	ErrUserNotFound         = newError(KindNotFound, "user not found")
	ErrPostNotFound         = newError(KindNotFound, "post not found")
	ErrCommentNotFound      = newError(KindNotFound, "comment not found")
	ErrMessageNotFound      = newError(KindNotFound, "message not found")
	ErrNotificationNotFound = newError(KindNotFound, "notification not found")
	ErrGroupNotFound        = newError(KindNotFound, "group not found")
	ErrFileNotFound         = newError(KindNotFound, "file not found")

	ErrDuplicateUsername  = newError(KindConflict, "username already exists")
	ErrDuplicateEmail     = newError(KindConflict, "email already registered")
	ErrAlreadyCheckedIn   = newError(KindConflict, "already checked in today")
	ErrInsufficientPoints = newError(KindConflict, "insufficient points")
	ErrAlreadyMember      = newError(KindConflict, "already a member of this group")
	ErrNotMember          = newError(KindConflict, "not a member of this group")

	ErrPermissionDenied = newError(KindPermission, "permission denied")

	ErrInvalidCredentials    = newError(KindAuth, "invalid username or password")
	ErrInvalidOrExpiredToken = newError(KindAuth, "invalid or expired token")
)
