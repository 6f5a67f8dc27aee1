package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidLogFormats returns the list of valid log formats
func ValidLogFormats() []string {
	return []string{"text", "json"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError

	if c.Server.URL == "" {
		errs = append(errs, ValidationError{Field: "server.url", Value: c.Server.URL, Message: "must not be empty"})
	} else if u, err := url.Parse(c.Server.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, ValidationError{Field: "server.url", Value: c.Server.URL, Message: "must be an absolute http(s) URL"})
	}

	if c.Session.LoadTimeout <= 0 {
		errs = append(errs, ValidationError{Field: "session.load_timeout", Value: c.Session.LoadTimeout, Message: "must be positive"})
	}
	if c.Session.MinLoadDisplay < 0 {
		errs = append(errs, ValidationError{Field: "session.min_load_display", Value: c.Session.MinLoadDisplay, Message: "must not be negative"})
	}
	if c.Session.LoadTimeout > 0 && c.Session.MinLoadDisplay >= c.Session.LoadTimeout {
		errs = append(errs, ValidationError{Field: "session.min_load_display", Value: c.Session.MinLoadDisplay, Message: "must be shorter than session.load_timeout"})
	}
	if c.Chat.RevealDelay < 0 {
		errs = append(errs, ValidationError{Field: "chat.reveal_delay", Value: c.Chat.RevealDelay, Message: "must not be negative"})
	}

	if !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: "must be one of " + strings.Join(ValidLogLevels(), ", "),
		})
	}
	if !slices.Contains(ValidLogFormats(), strings.ToLower(c.Logging.Format)) {
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Value:   c.Logging.Format,
			Message: "must be one of " + strings.Join(ValidLogFormats(), ", "),
		})
	}

	return errs
}
