// Package page holds the state of the task-list page: the two forms, the edit
// modal, the task table body, the loading overlay and the flash banners.
//
// Element and field identifiers follow the page's DOM contract so that the HTML
// renderer, the terminal renderer and the controller agree on names.
package page

// Element ids.
const (
	IDMain = "main"

	IDAddForm = "add-task-form"
	IDTitle   = "title"
	IDContent = "content"
	IDDueDate = "due_date"
	IDMemo    = "memo"

	IDEditForm    = "edit-task-form"
	IDEditModal   = "edit-modal"
	IDEditTaskID  = "edit-task-id"
	IDEditTitle   = "edit-title"
	IDEditContent = "edit-content"
	IDEditDueDate = "edit-due_date"
	IDEditMemo    = "edit-memo"

	IDTaskBody = "task-tbody"
	IDLoading  = "loading"
)

// Form field names as submitted to the backend.
const (
	FieldTaskID  = "task_id"
	FieldTitle   = "title"
	FieldContent = "content"
	FieldDueDate = "due_date"
	FieldMemo    = "memo"
)

// Display values used by the modal and the loading overlay.
const (
	DisplayNone  = "none"
	DisplayBlock = "block"
	DisplayFlex  = "flex"
)
