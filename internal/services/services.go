// Package services implements the catalog and production timeline use cases
// on top of the repository and the timeline engine.
package services

import (
	"errors"
	"strings"
	"time"

	"agro-dashboard/backend/internal/repository"
	"agro-dashboard/backend/internal/timeline"
)

// Logger is the logging surface the services need.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// dateOnly truncates t to midnight UTC of its calendar day.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// notFoundAs converts a repository ErrNotFound into a timeline error with
// the given code. Other errors pass through unchanged.
func notFoundAs(err error, code timeline.ErrorCode, format string, args ...any) error {
	if errors.Is(err, repository.ErrNotFound) {
		return timeline.Errorf(code, format, args...)
	}
	return err
}

// asInvalidInput re-labels engine validation errors raised while checking
// operator input.
func asInvalidInput(err error) error {
	var te *timeline.Error
	if errors.As(err, &te) && te.Code == timeline.CodeCatalogIntegrity {
		return timeline.Errorf(timeline.CodeInvalidInput, "%s", te.Message)
	}
	return err
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }
