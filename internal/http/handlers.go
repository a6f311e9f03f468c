package http

import (
	"net/http"
	"time"

	"saldo/internal/core"
	"saldo/internal/services"
)

type createRecordResponse struct {
	Records []core.Record `json:"records"`
	Count   int           `json:"count"`
}

func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	var rec core.Record
	if err := readJSON(r, &rec); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rec.Description = sanitizeInput(rec.Description)
	rec.Category = sanitizeInput(rec.Category)

	written, err := s.service.SubmitRecord(r.Context(), rec)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createRecordResponse{Records: written, Count: len(written)})
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	records, err := s.service.ListRecords(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if records == nil {
		records = []core.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := s.service.GetRecord(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleUpdateRecord(w http.ResponseWriter, r *http.Request) {
	var rec core.Record
	if err := readJSON(r, &rec); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rec.ID = r.PathValue("id")
	rec.Description = sanitizeInput(rec.Description)
	rec.Category = sanitizeInput(rec.Category)

	updated, err := s.service.UpdateRecord(r.Context(), rec)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

type deleteRecordResponse struct {
	Deleted int64 `json:"deleted"`
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	mode := services.DeleteMode(r.URL.Query().Get("mode"))
	if mode == "" {
		mode = services.DeleteSingle
	}

	n, err := s.service.DeleteRecord(r.Context(), r.PathValue("id"), mode)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteRecordResponse{Deleted: n})
}

type generateDueResponse struct {
	Records []core.Record `json:"records"`
	Count   int           `json:"count"`
}

// handleGenerateDue is the catch-up endpoint: it materializes every
// still-unexpanded recurring template due as of today (or the as_of
// query parameter).
func (s *Server) handleGenerateDue(w http.ResponseWriter, r *http.Request) {
	asOf, err := parseDateParam(r, "as_of")
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if asOf.IsZero() {
		asOf = core.DateOf(time.Now())
	}

	written, err := s.service.GenerateDue(r.Context(), asOf)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if written == nil {
		written = []core.Record{}
	}
	writeJSON(w, http.StatusOK, generateDueResponse{Records: written, Count: len(written)})
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	from, err := parseDateParam(r, "from")
	if err != nil {
		writeDomainError(w, err)
		return
	}
	to, err := parseDateParam(r, "to")
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if from.IsZero() != to.IsZero() {
		writeError(w, http.StatusUnprocessableEntity, "from and to must be provided together")
		return
	}

	timeline, err := s.service.Timeline(r.Context(), from, to)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if timeline == nil {
		timeline = []core.DailyBalance{}
	}
	writeJSON(w, http.StatusOK, timeline)
}

// Balance travels as integer cents: unlike record amounts it may
// legitimately be zero or negative.
type balanceResponse struct {
	InitialBalanceCents int64 `json:"initial_balance_cents"`
}

func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	cents, err := s.settings.InitialBalance(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{InitialBalanceCents: cents})
}

func (s *Server) handleSetBalance(w http.ResponseWriter, r *http.Request) {
	var req balanceResponse
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.settings.SetInitialBalance(r.Context(), req.InitialBalanceCents); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.categories.ListCategories(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if categories == nil {
		categories = []core.Category{}
	}
	writeJSON(w, http.StatusOK, categories)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var cat core.Category
	if err := readJSON(r, &cat); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	cat.Name = sanitizeInput(cat.Name)
	if err := cat.Validate(); err != nil {
		writeDomainError(w, err)
		return
	}
	if err := s.categories.CreateCategory(r.Context(), cat); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, cat)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	kind := core.Kind(r.URL.Query().Get("type"))
	if !kind.Valid() {
		writeError(w, http.StatusUnprocessableEntity, "type query parameter must be income or expense")
		return
	}
	if err := s.categories.DeleteCategory(r.Context(), r.PathValue("name"), kind); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
