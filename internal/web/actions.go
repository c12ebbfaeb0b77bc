package web

import (
	"context"
	"net/http"

	"todo-cli/internal/controller"
	"todo-cli/internal/model"
)

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	s.action(w, r, func(ctx context.Context, ctl *controller.Controller) {
		ctl.SubmitCreate(ctx)
	})
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.action(w, r, func(ctx context.Context, ctl *controller.Controller) {
		ctl.OpenEdit(ctx, id)
	})
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	s.action(w, r, func(ctx context.Context, ctl *controller.Controller) {
		ctl.SubmitEdit(ctx)
	})
}

// handleDelete deletes only when the browser reports the user confirmed.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	confirmed := r.URL.Query().Get("confirmed") == "1"
	s.action(w, r, func(ctx context.Context, ctl *controller.Controller) {
		ctl.Delete(ctx, id, controller.Confirmed(confirmed))
	})
}

func (s *Server) handleSort(w http.ResponseWriter, r *http.Request) {
	sortType, err := model.ParseSortType(r.PathValue("sortType"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.action(w, r, func(ctx context.Context, ctl *controller.Controller) {
		ctl.Sort(ctx, sortType)
	})
}

func (s *Server) handleModalClose(w http.ResponseWriter, r *http.Request) {
	s.action(w, r, func(_ context.Context, ctl *controller.Controller) {
		ctl.CloseModal()
	})
}

func (s *Server) handleModalBackdrop(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("target")
	s.action(w, r, func(_ context.Context, ctl *controller.Controller) {
		ctl.BackdropClick(target)
	})
}

func (s *Server) handleKey(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	s.action(w, r, func(_ context.Context, ctl *controller.Controller) {
		ctl.KeyDown(key)
	})
}
