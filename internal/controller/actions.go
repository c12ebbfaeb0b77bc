package controller

import (
	"context"
	"errors"
	"strings"

	"todo-cli/internal/model"
	"todo-cli/internal/page"
)

// ErrRejected is wrapped by Load when the server answers success=false.
var ErrRejected = errors.New("request rejected")

// RejectedError carries the server's failure message.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return ErrRejected.Error()
	}
	return ErrRejected.Error() + ": " + e.Message
}

func (e *RejectedError) Unwrap() error { return ErrRejected }

// Load fetches the task list in the preferred order and rebuilds the table.
// It shows nothing; callers decide how to report the error.
func (c *Controller) Load(ctx context.Context) error {
	res, err := c.backend.SortTasks(ctx, c.SortPreference(ctx))
	if err != nil {
		return err
	}
	if !res.Success {
		return &RejectedError{Message: res.Message}
	}
	c.replaceTasks(ctx, res.Tasks)
	return nil
}

// Refresh is Load behind the loading overlay, reporting failure as a banner.
func (c *Controller) Refresh(ctx context.Context) bool {
	c.ShowLoading()
	defer c.HideLoading()
	if err := c.Load(ctx); err != nil {
		c.logger.Error("fetch tasks", "err", err)
		c.ShowMessage(MsgFetchFailed, page.KindError)
		return false
	}
	return true
}

// SubmitCreate validates the create form and posts it. On success the form is
// reset and the page reloaded.
func (c *Controller) SubmitCreate(ctx context.Context) bool {
	f := c.doc.FormValues(page.IDAddForm)
	if !c.ValidateForm(f) {
		return false
	}
	f.TaskID = ""
	return c.mutate(ctx, "add_task", func(ctx context.Context) (model.Result, error) {
		return c.backend.AddTask(ctx, f)
	}, func() {
		c.doc.ResetForm(page.IDAddForm)
	})
}

// OpenEdit fills the edit form from the task with the given id and shows the
// modal. It reports false, changing nothing, when no row has that id.
func (c *Controller) OpenEdit(ctx context.Context, id string) bool {
	row, ok := c.doc.Row(id)
	if !ok {
		return false
	}
	var f model.Fields
	task, found, err := c.index.Get(ctx, model.TaskID(id))
	switch {
	case err != nil:
		c.logger.Warn("task index lookup", "id", id, "err", err)
		f = fieldsFromRow(row)
	case found:
		f = model.FieldsOf(task)
	default:
		f = fieldsFromRow(row)
	}
	f.TaskID = id
	c.doc.SetFormValues(page.IDEditForm, f)
	c.doc.ShowModal()
	c.doc.Focus(page.IDEditTitle)
	return true
}

func fieldsFromRow(r page.Row) model.Fields {
	return model.Fields{
		Title:   strings.TrimSpace(r.Cells[0]),
		Content: strings.TrimSpace(r.Cells[1]),
		DueDate: strings.TrimSpace(r.Cells[2]),
		Memo:    strings.TrimSpace(r.Cells[3]),
	}
}

// SubmitEdit validates the edit form and posts it. On success the modal is
// closed and the page reloaded.
func (c *Controller) SubmitEdit(ctx context.Context) bool {
	f := c.doc.FormValues(page.IDEditForm)
	if !c.ValidateForm(f) {
		return false
	}
	id := model.TaskID(f.TaskID)
	return c.mutate(ctx, "update_task", func(ctx context.Context) (model.Result, error) {
		return c.backend.UpdateTask(ctx, id, f)
	}, c.CloseModal)
}

// Delete asks for confirmation and deletes the task. Declining sends nothing.
func (c *Controller) Delete(ctx context.Context, id string, confirm Confirmer) bool {
	if confirm == nil || !confirm.Confirm(ctx, MsgConfirmDelete) {
		return false
	}
	return c.mutate(ctx, "delete_task", func(ctx context.Context) (model.Result, error) {
		return c.backend.DeleteTask(ctx, model.TaskID(id))
	}, nil)
}

// Sort asks the server for the tasks in the given order and rebuilds the table
// from the reply, in reply order. On any failure the table is left as it was.
func (c *Controller) Sort(ctx context.Context, sortType model.SortType) bool {
	c.ShowLoading()
	defer c.HideLoading()

	res, err := c.backend.SortTasks(ctx, sortType)
	if err != nil {
		c.logger.Error("request failed", "action", "sort_tasks", "err", err)
		c.ShowMessage(MsgSortFailed, page.KindError)
		return false
	}
	if !res.Success {
		c.ShowMessage(failureText(res.Message), page.KindError)
		return false
	}
	c.replaceTasks(ctx, res.Tasks)
	if err := c.prefs.SetSortType(ctx, sortType); err != nil {
		c.logger.Warn("store sort preference", "err", err)
	}
	return true
}

func (c *Controller) mutate(ctx context.Context, action string, call func(context.Context) (model.Result, error), onSuccess func()) bool {
	c.ShowLoading()
	defer c.HideLoading()

	res, err := call(ctx)
	if err != nil {
		c.logger.Error("request failed", "action", action, "err", err)
		c.ShowMessage(MsgServerError, page.KindError)
		return false
	}
	if !res.Success {
		c.ShowMessage(failureText(res.Message), page.KindError)
		return false
	}
	if onSuccess != nil {
		onSuccess()
	}
	c.reloadPage(ctx, res.Message)
	return true
}

func (c *Controller) reloadPage(ctx context.Context, message string) {
	if c.reload == ReloadPage {
		c.doc.RequestReload()
		return
	}
	if err := c.Load(ctx); err != nil {
		c.logger.Error("fetch tasks", "err", err)
		c.ShowMessage(MsgFetchFailed, page.KindError)
		return
	}
	if message != "" {
		c.ShowMessage(message, page.KindSuccess)
	}
}

func (c *Controller) replaceTasks(ctx context.Context, tasks []model.Task) {
	c.doc.ReplaceRows(tasks)
	if err := c.index.Replace(ctx, tasks); err != nil {
		c.logger.Warn("update task index", "err", err)
	}
}
