package controller

import (
	"strings"

	"todo-cli/internal/model"
	"todo-cli/internal/page"
)

// ValidationError names the first required field that is blank.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Validate checks a form before submission: title then due date must be
// non-blank. Dates are not compared or parsed.
func Validate(f model.Fields) error {
	if strings.TrimSpace(f.Title) == "" {
		return &ValidationError{Field: page.FieldTitle, Message: MsgTitleRequired}
	}
	if strings.TrimSpace(f.DueDate) == "" {
		return &ValidationError{Field: page.FieldDueDate, Message: MsgDueRequired}
	}
	return nil
}

// ValidateForm validates f and shows the first failure as an error banner.
func (c *Controller) ValidateForm(f model.Fields) bool {
	if err := Validate(f); err != nil {
		c.ShowMessage(err.Error(), page.KindError)
		return false
	}
	return true
}
