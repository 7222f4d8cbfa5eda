package services

import (
	"strings"
	"time"

	"github.com/cppla/socialbbs/models"
	"github.com/cppla/socialbbs/utils"
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID   uint
	Username string
	Role     string
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

// Clock returns the current time. Services take one so tests can pin "today".
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}

// cleanText filters the raw text, sanitizes markup, then filters again so
// words joined by stripped tags are caught too.
func cleanText(filter *utils.ContentFilter, raw string) string {
	return strings.TrimSpace(filter.Apply(utils.Sanitize(filter.Apply(raw))))
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
