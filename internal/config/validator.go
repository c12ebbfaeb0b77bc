package config

import (
	"fmt"
	"net"
	"net/url"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

func ValidLogLevels() []string { return []string{"debug", "info", "warn", "warning", "error"} }

func ValidReloadModes() []string { return []string{"refetch", "page"} }

func ValidSortTypes() []string { return []string{"asc", "desc"} }

// Validate checks the Config for invalid values and returns every error found.
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError

	if u, err := url.Parse(c.Backend.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, ValidationError{Field: "backend.url", Value: c.Backend.URL, Message: "must be an http or https URL"})
	}
	if c.Backend.Timeout < 0 {
		errs = append(errs, ValidationError{Field: "backend.timeout", Value: c.Backend.Timeout, Message: "must not be negative"})
	}

	errs = append(errs, validateAddr("web.addr", c.Web.Addr)...)
	if !slices.Contains(ValidReloadModes(), c.Web.Reload) {
		errs = append(errs, ValidationError{Field: "web.reload", Value: c.Web.Reload, Message: "must be one of " + strings.Join(ValidReloadModes(), ", ")})
	}
	if strings.TrimSpace(c.Web.DatastarURL) == "" {
		errs = append(errs, ValidationError{Field: "web.datastar_url", Value: c.Web.DatastarURL, Message: "must not be empty"})
	}

	errs = append(errs, validateAddr("webtui.addr", c.WebTUI.Addr)...)

	if !slices.Contains(ValidSortTypes(), c.UI.DefaultSort) {
		errs = append(errs, ValidationError{Field: "ui.default_sort", Value: c.UI.DefaultSort, Message: "must be asc or desc"})
	}
	if c.UI.MessageVisible <= 0 {
		errs = append(errs, ValidationError{Field: "ui.message_visible", Value: c.UI.MessageVisible, Message: "must be positive"})
	}
	if c.UI.MessageFade < 0 {
		errs = append(errs, ValidationError{Field: "ui.message_fade", Value: c.UI.MessageFade, Message: "must not be negative"})
	}

	if c.State.Path == "" {
		errs = append(errs, ValidationError{Field: "state.path", Value: c.State.Path, Message: "must not be empty"})
	}
	if !slices.Contains(ValidLogLevels(), c.Log.Level) {
		errs = append(errs, ValidationError{Field: "log.level", Value: c.Log.Level, Message: "must be one of " + strings.Join(ValidLogLevels(), ", ")})
	}
	return errs
}

func validateAddr(field, addr string) []ValidationError {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return []ValidationError{{Field: field, Value: addr, Message: "must be host:port"}}
	}
	return nil
}
