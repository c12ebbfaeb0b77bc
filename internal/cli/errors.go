package cli

import (
	"errors"
	"fmt"

	"todo-cli/internal/backend"
	"todo-cli/internal/controller"
	"todo-cli/internal/model"
)

type notFoundError struct {
	kind string
	id   string
}

func (e notFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.kind, e.id)
}

func errNotFound(kind, id string) error {
	return notFoundError{kind: kind, id: id}
}

// resultErr turns a backend reply into the error a user sees. Transport and
// decoding problems collapse into the generic server error message; the
// details go to the log.
func (app *App) resultErr(action string, res model.Result, err error) error {
	if err != nil {
		if !backend.IsTransport(err) {
			// The request never left this process.
			return fmt.Errorf("%s: %w", action, err)
		}
		app.logger.Error("request failed", "action", action, "err", err)
		var status *backend.StatusError
		if errors.As(err, &status) {
			return fmt.Errorf("%s (HTTP %d)", controller.MsgServerError, status.Code)
		}
		return errors.New(controller.MsgServerError)
	}
	if !res.Success {
		msg := res.Message
		if msg == "" {
			msg = controller.MsgServerError
		}
		return rejectedError{message: msg}
	}
	return nil
}

// rejectedError prints the server's own failure message.
type rejectedError struct {
	message string
}

func (e rejectedError) Error() string { return e.message }

func (e rejectedError) Unwrap() error { return controller.ErrRejected }

// reportedError is an error already written to stderr.
type reportedError struct {
	error
}

func (e reportedError) Unwrap() error { return e.error }

// IsReported reports whether err was already shown to the user. Errors cobra
// raises itself, such as a missing argument, are not.
func IsReported(err error) bool {
	var r reportedError
	return errors.As(err, &r)
}
