package web

import (
	"net/http"

	"github.com/starfederation/datastar-go/datastar"

	"todo-cli/internal/model"
	"todo-cli/internal/page"
)

// formSignals are the Datastar signals bound to the page's form inputs.
type formSignals struct {
	AddTitle    string `json:"addTitle"`
	AddContent  string `json:"addContent"`
	AddDueDate  string `json:"addDueDate"`
	AddMemo     string `json:"addMemo"`
	EditTaskID  string `json:"editTaskId"`
	EditTitle   string `json:"editTitle"`
	EditContent string `json:"editContent"`
	EditDueDate string `json:"editDueDate"`
	EditMemo    string `json:"editMemo"`
	ModalOpen   bool   `json:"modalOpen"`
}

func signalsOf(st page.State) formSignals {
	c, e := st.Create.Values, st.Edit.Values
	return formSignals{
		AddTitle:    c.Title,
		AddContent:  c.Content,
		AddDueDate:  c.DueDate,
		AddMemo:     c.Memo,
		EditTaskID:  e.TaskID,
		EditTitle:   e.Title,
		EditContent: e.Content,
		EditDueDate: e.DueDate,
		EditMemo:    e.Memo,
		ModalOpen:   st.Modal.Visible(),
	}
}

// readSignals decodes the signals posted with an action. A request without a
// body carries none.
func readSignals(r *http.Request) (formSignals, bool, error) {
	var sig formSignals
	if r.Method != http.MethodGet && r.ContentLength == 0 {
		return sig, false, nil
	}
	if err := datastar.ReadSignals(r, &sig); err != nil {
		return sig, false, err
	}
	return sig, true, nil
}

// applyTo copies the form values the user typed into the page. Edit values
// only count while the modal is open.
func (sig formSignals) applyTo(doc *page.Document) {
	doc.SetFormValues(page.IDAddForm, model.Fields{
		Title:   sig.AddTitle,
		Content: sig.AddContent,
		DueDate: sig.AddDueDate,
		Memo:    sig.AddMemo,
	})
	if doc.ModalVisible() {
		doc.SetFormValues(page.IDEditForm, model.Fields{
			TaskID:  sig.EditTaskID,
			Title:   sig.EditTitle,
			Content: sig.EditContent,
			DueDate: sig.EditDueDate,
			Memo:    sig.EditMemo,
		})
	}
}
