package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"todo-cli/internal/backend"
	"todo-cli/internal/controller"
	"todo-cli/internal/format"
	"todo-cli/internal/model"
)

// envelope is the shape of every command's output.
type envelope struct {
	Data  any            `json:"data"`
	Meta  map[string]any `json:"meta,omitempty"`
	Hints []string       `json:"_hints,omitempty"`
}

func (e envelope) Table() ([]string, [][]string) {
	if t, ok := e.Data.(format.Tabular); ok {
		return t.Table()
	}
	s, err := sonic.ConfigStd.MarshalToString(e.Data)
	if err != nil {
		s = fmt.Sprint(e.Data)
	}
	return []string{"data"}, [][]string{{s}}
}

type taskList []model.Task

func (l taskList) Table() ([]string, [][]string) {
	rows := make([][]string, 0, len(l))
	for _, t := range l {
		rows = append(rows, []string{string(t.ID), t.Title, t.Content, t.DueDate, t.Memo})
	}
	return []string{"id", "title", "content", "due_date", "memo"}, rows
}

type messageOut struct {
	Message string `json:"message"`
}

func (m messageOut) Table() ([]string, [][]string) {
	return []string{"message"}, [][]string{{m.Message}}
}

func newTasksCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Task commands",
	}

	cmd.AddCommand(newTasksListCmd(app))
	cmd.AddCommand(newTasksShowCmd(app))
	cmd.AddCommand(newTasksAddCmd(app))
	cmd.AddCommand(newTasksUpdateCmd(app))
	cmd.AddCommand(newTasksDeleteCmd(app))
	cmd.AddCommand(newTasksSortCmd(app))

	return cmd
}

// fetchTasks lists every task in the given order.
func (app *App) fetchTasks(ctx context.Context, c *backend.Client, st model.SortType) ([]model.Task, error) {
	res, err := c.SortTasks(ctx, st)
	if err := app.resultErr("sort_tasks", res, err); err != nil {
		return nil, err
	}
	return res.Tasks, nil
}

func (app *App) findTask(ctx context.Context, c *backend.Client, id string) (model.Task, error) {
	tasks, err := app.fetchTasks(ctx, c, app.defaultSort())
	if err != nil {
		return model.Task{}, err
	}
	for _, t := range tasks {
		if string(t.ID) == id {
			return t, nil
		}
	}
	return model.Task{}, errNotFound("task", id)
}

func newTasksListCmd(app *App) *cobra.Command {
	var sortFlag string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks by due date",
		RunE: func(cmd *cobra.Command, args []string) error {
			st := app.defaultSort()
			if strings.TrimSpace(sortFlag) != "" {
				var err error
				if st, err = model.ParseSortType(sortFlag); err != nil {
					return writeErr(cmd, err)
				}
			}
			c, err := app.client()
			if err != nil {
				return writeErr(cmd, err)
			}
			tasks, err := app.fetchTasks(cmd.Context(), c, st)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, envelope{
				Data: taskList(tasks),
				Meta: map[string]any{"sort": string(st), "count": len(tasks)},
			})
		},
	}

	cmd.Flags().StringVar(&sortFlag, "sort", "", "Sort order (asc|desc; default ui.default_sort)")
	return cmd
}

func newTasksShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.client()
			if err != nil {
				return writeErr(cmd, err)
			}
			t, err := app.findTask(cmd.Context(), c, strings.TrimSpace(args[0]))
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, envelope{Data: taskList{t}})
		},
	}
}

func newTasksAddCmd(app *App) *cobra.Command {
	var f model.Fields

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a task",
		Example: strings.TrimSpace(`
todo tasks add --title "Buy milk" --due 2025-06-01 --memo "2L"
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := controller.Validate(f); err != nil {
				return writeErr(cmd, err)
			}
			c, err := app.client()
			if err != nil {
				return writeErr(cmd, err)
			}
			res, err := c.AddTask(cmd.Context(), f)
			if err := app.resultErr("add_task", res, err); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, envelope{
				Data:  messageOut{Message: res.Message},
				Hints: []string{"todo tasks list"},
			})
		},
	}

	addFieldFlags(cmd, &f)
	return cmd
}

func addFieldFlags(cmd *cobra.Command, f *model.Fields) {
	cmd.Flags().StringVar(&f.Title, "title", "", "Title (required)")
	cmd.Flags().StringVar(&f.Content, "content", "", "Content")
	cmd.Flags().StringVar(&f.DueDate, "due", "", "Due date, YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&f.Memo, "memo", "", "Memo")
}

func newTasksUpdateCmd(app *App) *cobra.Command {
	var f model.Fields

	cmd := &cobra.Command{
		Use:   "update <task-id>",
		Short: "Edit a task; fields without a flag keep their current value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			c, err := app.client()
			if err != nil {
				return writeErr(cmd, err)
			}
			cur, err := app.findTask(cmd.Context(), c, id)
			if err != nil {
				return writeErr(cmd, err)
			}

			next := model.FieldsOf(cur)
			flags := cmd.Flags()
			if flags.Changed("title") {
				next.Title = f.Title
			}
			if flags.Changed("content") {
				next.Content = f.Content
			}
			if flags.Changed("due") {
				next.DueDate = f.DueDate
			}
			if flags.Changed("memo") {
				next.Memo = f.Memo
			}
			if err := controller.Validate(next); err != nil {
				return writeErr(cmd, err)
			}

			res, err := c.UpdateTask(cmd.Context(), model.TaskID(id), next)
			if err := app.resultErr("update_task", res, err); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, envelope{
				Data:  messageOut{Message: res.Message},
				Hints: []string{"todo tasks show " + id},
			})
		},
	}

	addFieldFlags(cmd, &f)
	return cmd
}

// promptConfirmer asks a yes/no question on the terminal. Anything but y or
// yes is a no.
type promptConfirmer struct {
	in  io.Reader
	out io.Writer
}

func (p promptConfirmer) Confirm(_ context.Context, message string) bool {
	fmt.Fprintf(p.out, "%s [y/N] ", message)
	line, err := bufio.NewReader(p.in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func newTasksDeleteCmd(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <task-id>",
		Short: "Delete a task (asks first unless --yes)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])

			var confirm controller.Confirmer = promptConfirmer{in: cmd.InOrStdin(), out: cmd.ErrOrStderr()}
			if yes {
				confirm = controller.Confirmed(true)
			}
			if !confirm.Confirm(cmd.Context(), controller.MsgConfirmDelete) {
				return writeOut(cmd, app, envelope{Data: map[string]any{"deleted": false, "id": id}})
			}

			c, err := app.client()
			if err != nil {
				return writeErr(cmd, err)
			}
			res, err := c.DeleteTask(cmd.Context(), model.TaskID(id))
			if err := app.resultErr("delete_task", res, err); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, envelope{Data: messageOut{Message: res.Message}})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Delete without asking")
	return cmd
}

func newTasksSortCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:       "sort <asc|desc>",
		Short:     "List tasks sorted by due date",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(model.SortAsc), string(model.SortDesc)},
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := model.ParseSortType(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			c, err := app.client()
			if err != nil {
				return writeErr(cmd, err)
			}
			res, err := c.SortTasks(cmd.Context(), st)
			if backend.IsTransport(err) {
				app.logger.Error("request failed", "action", "sort_tasks", "err", err)
				return writeErr(cmd, errors.New(controller.MsgSortFailed))
			}
			if err := app.resultErr("sort_tasks", res, err); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, envelope{
				Data: taskList(res.Tasks),
				Meta: map[string]any{"sort": string(st), "count": len(res.Tasks)},
			})
		},
	}
}
