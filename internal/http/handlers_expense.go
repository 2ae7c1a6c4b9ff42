package http

import (
	"net/http"
	"strings"

	"spendlog/internal/core"
	"spendlog/internal/device"
	applog "spendlog/internal/log"
)

// scope parses the body and resolves the calling device. It writes the
// error response itself and reports false when the request cannot proceed.
func (s *Server) scope(w http.ResponseWriter, r *http.Request, op string) (*http.Request, *RequestBodyParser, string, bool) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeError(w, r, op, err)
		return r, nil, "", false
	}

	deviceID, err := device.Resolve(r.Header, p)
	if err != nil {
		writeError(w, r, op, err)
		return r, nil, "", false
	}

	ctx := applog.WithLogger(r.Context(), applog.FromContext(r.Context()).With(applog.FieldDeviceID, deviceID))
	return r.WithContext(ctx), p, deviceID, true
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	r, p, deviceID, ok := s.scope(w, r, applog.OpCreate)
	if !ok {
		return
	}

	in, err := bindCreate(p)
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}

	e, err := s.svc.Create(r.Context(), deviceID, in)
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}

	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", expenseLocation(r.URL.Path, e.ID)).
		Payload(e).
		Write(w)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	r, _, deviceID, ok := s.scope(w, r, applog.OpList)
	if !ok {
		return
	}

	items, err := s.svc.List(r.Context(), deviceID)
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	if items == nil {
		items = []core.Expense{}
	}
	NewJSONResponse().Payload(items).Write(w)
}

// handleSummary runs the aggregation engine over the device's records.
// The budget comes from the query string and is never stored.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	r, _, deviceID, ok := s.scope(w, r, applog.OpSummary)
	if !ok {
		return
	}

	filter, budget, err := parseSummaryQuery(r.URL.Query())
	if err != nil {
		writeError(w, r, applog.OpSummary, err)
		return
	}

	sum, err := s.svc.Summary(r.Context(), deviceID, filter, budget)
	if err != nil {
		writeError(w, r, applog.OpSummary, err)
		return
	}
	NewJSONResponse().Payload(sum).Write(w)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	r, p, deviceID, ok := s.scope(w, r, applog.OpUpdate)
	if !ok {
		return
	}

	id, ok := pathID(r)
	if !ok {
		NotFoundError().Write(w)
		return
	}

	patch, err := bindUpdate(p)
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}

	e, err := s.svc.Update(r.Context(), deviceID, id, patch)
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	NewJSONResponse().Payload(e).Write(w)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	r, _, deviceID, ok := s.scope(w, r, applog.OpDelete)
	if !ok {
		return
	}

	id, ok := pathID(r)
	if !ok {
		NotFoundError().Write(w)
		return
	}

	if err := s.svc.Delete(r.Context(), deviceID, id); err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	DeletedResponse().Write(w)
}

func pathID(r *http.Request) (string, bool) {
	id := strings.TrimSpace(r.PathValue("id"))
	return id, id != ""
}

func expenseLocation(collectionPath, id string) string {
	return strings.TrimRight(collectionPath, "/") + "/" + id
}
