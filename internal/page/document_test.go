package page

import (
	"html"
	"strings"
	"testing"
	"time"

	"todo-cli/internal/model"
)

func TestEscapeHTML_NoLiveMarkup(t *testing.T) {
	cases := []string{
		`<script>alert("x")</script>`,
		`a & b`,
		`'single' "double"`,
		`<img src=x onerror=alert(1)>`,
		`plain text`,
		``,
	}
	for _, in := range cases {
		out := EscapeHTML(in)
		if strings.ContainsAny(out, `<>"'`) {
			t.Fatalf("EscapeHTML(%q) = %q still contains markup characters", in, out)
		}
		if got := html.UnescapeString(out); got != in {
			t.Fatalf("round trip of %q = %q", in, got)
		}
	}
}

func TestDocument_NewIsHidden(t *testing.T) {
	st := NewDocument().Snapshot()
	if st.Modal.Visible() || !st.Modal.AriaHidden {
		t.Fatalf("modal should start hidden, got %+v", st.Modal)
	}
	if st.LoadingVisible() {
		t.Fatalf("loading should start hidden")
	}
	if len(st.Rows) != 0 || len(st.Banners) != 0 {
		t.Fatalf("expected empty page, got %+v", st)
	}
}

func TestDocument_HideModalResetsEditForm(t *testing.T) {
	d := NewDocument()
	d.SetFormValues(IDEditForm, model.Fields{TaskID: "3", Title: "x", DueDate: "2025-06-01"})
	d.ShowModal()
	d.HideModal()
	st := d.Snapshot()
	if st.Modal.Visible() || !st.Modal.AriaHidden {
		t.Fatalf("modal not hidden: %+v", st.Modal)
	}
	if st.Edit.Values != (model.Fields{}) {
		t.Fatalf("edit form not reset: %+v", st.Edit.Values)
	}
}

func TestDocument_BannersPrependFadeRemove(t *testing.T) {
	d := NewDocument()
	first := d.PrependBanner("one", KindInfo)
	second := d.PrependBanner("two", KindError)
	bs := d.Banners()
	if len(bs) != 2 || bs[0].ID != second || bs[1].ID != first {
		t.Fatalf("unexpected order: %+v", bs)
	}
	if !d.FadeBanner(first) {
		t.Fatalf("fade should find banner")
	}
	if !d.RemoveBanner(first) {
		t.Fatalf("remove should find banner")
	}
	if d.FadeBanner(first) || d.RemoveBanner(first) {
		t.Fatalf("removed banner still found")
	}
	d.RemoveBanner(second)
	if n := len(d.Banners()); n != 0 {
		t.Fatalf("expected no banners, got %d", n)
	}
}

func TestDocument_ReplaceRowsKeepsOrder(t *testing.T) {
	d := NewDocument()
	d.ReplaceRows([]model.Task{{ID: "2", Title: "B"}, {ID: "1", Title: "A"}})
	st := d.Snapshot()
	if len(st.Rows) != 2 || st.Rows[0].Cells[0] != "B" || st.Rows[1].Cells[0] != "A" {
		t.Fatalf("unexpected rows: %+v", st.Rows)
	}
	if r, ok := d.Row("1"); !ok || r.Cells[0] != "A" {
		t.Fatalf("row lookup failed: %+v %v", r, ok)
	}
	if _, ok := d.Row("9"); ok {
		t.Fatalf("missing row found")
	}
}

func TestDocument_SubscribeNotifiesOnChange(t *testing.T) {
	d := NewDocument()
	ch, cancel := d.Subscribe()
	defer cancel()

	d.SetLoading(true)
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatalf("no notification")
	}

	// no-op updates do not notify
	d.SetLoading(true)
	select {
	case <-ch:
		t.Fatalf("unexpected notification")
	default:
	}
}

func TestDocument_HideModalOnlyChangesWhenShown(t *testing.T) {
	d := NewDocument()
	v := d.Snapshot().Version
	d.HideModal()
	if got := d.Snapshot().Version; got != v {
		t.Fatalf("hiding a hidden modal changed the page: %d -> %d", v, got)
	}

	d.ShowModal()
	d.HideModal()
	st := d.Snapshot()
	if st.Modal.Visible() || !st.Modal.AriaHidden {
		t.Fatalf("modal still shown: %+v", st.Modal)
	}
	v = st.Version
	d.HideModal()
	if got := d.Snapshot().Version; got != v {
		t.Fatalf("second hide changed the page: %d -> %d", v, got)
	}
}
