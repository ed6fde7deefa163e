package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"tracker/internal/controller"
	"tracker/internal/identity"
	applog "tracker/internal/log"
	"tracker/internal/session"
)

// draftRequest is the mutation body for creates and updates. Amount stays
// a string; validation happens at commit.
type draftRequest struct {
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Timestamp   string `json:"timestamp,omitempty"`
}

type errorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind"`
	Retryable bool   `json:"retryable,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps classified controller errors to HTTP statuses:
// validation 422, not found 404, transport 502, setup 409.
func writeError(w http.ResponseWriter, err error) {
	kind := controller.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case controller.KindValidation:
		status = http.StatusUnprocessableEntity
	case controller.KindNotFound:
		status = http.StatusNotFound
	case controller.KindTransport:
		status = http.StatusBadGateway
	case controller.KindSetup:
		status = http.StatusConflict
	}
	writeJSON(w, status, errorResponse{
		Error:     err.Error(),
		Kind:      string(kind),
		Retryable: kind == controller.KindTransport,
	})
}

func (s *Server) decodeDraft(w http.ResponseWriter, r *http.Request) (session.Draft, bool) {
	var req draftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body", Kind: string(controller.KindValidation)})
		return session.Draft{}, false
	}
	d := session.Draft{
		Description: req.Description,
		Amount:      req.Amount,
	}
	if ts := strings.TrimSpace(req.Timestamp); ts != "" {
		parsed, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed timestamp, want RFC3339", Kind: string(controller.KindValidation)})
			return session.Draft{}, false
		}
		d.Timestamp = parsed
	}
	return d, true
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, viewPayloadFrom(s.ctrl.CurrentView()))
}

func (s *Server) handleExpenses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	draft, ok := s.decodeDraft(w, r)
	if !ok {
		return
	}
	s.ctrl.Stage(draft)
	if err := s.ctrl.CommitCreate(r.Context()); err != nil {
		s.logger.ErrorContext(r.Context(), "create failed",
			applog.FieldOperation, applog.OpCreate,
			applog.FieldErrorKind, string(controller.KindOf(err)),
			applog.FieldError, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewPayloadFrom(s.ctrl.CurrentView()))
}

// handleExpenseByID dispatches PUT and DELETE on /api/expenses/{id}.
func (s *Server) handleExpenseByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/expenses/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodPut:
		s.handleUpdate(w, r, id)
	case http.MethodDelete:
		s.handleDelete(w, r, id)
	default:
		w.Header().Set("Allow", "PUT, DELETE")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request, id string) {
	state := s.ctrl.CurrentView().Session
	if state.Mode != session.ModeEditing || state.TargetID != id {
		writeJSON(w, http.StatusConflict, errorResponse{
			Error: "record is not being edited; begin an edit first",
			Kind:  string(controller.KindSetup),
		})
		return
	}

	draft, ok := s.decodeDraft(w, r)
	if !ok {
		return
	}
	s.ctrl.Stage(draft)
	if err := s.ctrl.CommitUpdate(r.Context()); err != nil {
		s.logger.ErrorContext(r.Context(), "update failed",
			applog.FieldOperation, applog.OpUpdate,
			applog.FieldRecordID, id,
			applog.FieldErrorKind, string(controller.KindOf(err)),
			applog.FieldError, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewPayloadFrom(s.ctrl.CurrentView()))
}

// handleDelete requires confirm=true, the explicit confirmation step
// before a destructive removal.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request, id string) {
	if r.URL.Query().Get("confirm") != "true" {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: "deletion requires confirm=true",
			Kind:  string(controller.KindValidation),
		})
		return
	}
	if err := s.ctrl.CommitDelete(r.Context(), id); err != nil {
		s.logger.ErrorContext(r.Context(), "delete failed",
			applog.FieldOperation, applog.OpDelete,
			applog.FieldRecordID, id,
			applog.FieldErrorKind, string(controller.KindOf(err)),
			applog.FieldError, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewPayloadFrom(s.ctrl.CurrentView()))
}

// handleEdit dispatches POST /api/edit/{id} and POST /api/edit/cancel.
func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	target := strings.TrimPrefix(r.URL.Path, "/api/edit/")
	if target == "" || strings.Contains(target, "/") {
		http.NotFound(w, r)
		return
	}

	if target == "cancel" {
		s.ctrl.CancelEdit()
		writeJSON(w, http.StatusOK, viewPayloadFrom(s.ctrl.CurrentView()))
		return
	}

	if err := s.ctrl.BeginEdit(target); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewPayloadFrom(s.ctrl.CurrentView()))
}

type identityResponse struct {
	DisplayName string `json:"display_name"`
}

func (s *Server) handleIdentity(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		name, err := s.identity.DisplayName()
		if errors.Is(err, identity.ErrNotSet) {
			writeJSON(w, http.StatusNotFound, errorResponse{
				Error: "display name not set",
				Kind:  string(controller.KindSetup),
			})
			return
		}
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error(), Kind: "internal"})
			return
		}
		writeJSON(w, http.StatusOK, identityResponse{DisplayName: name})
	case http.MethodPost:
		var req identityResponse
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body", Kind: string(controller.KindValidation)})
			return
		}
		if err := s.identity.SetDisplayName(req.DisplayName); err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error(), Kind: string(controller.KindValidation)})
			return
		}
		s.ctrl.SetAuthor(strings.TrimSpace(req.DisplayName))
		s.logger.InfoContext(r.Context(), "display name set",
			applog.FieldComponent, applog.ComponentIdentity)
		writeJSON(w, http.StatusOK, identityResponse{DisplayName: strings.TrimSpace(req.DisplayName)})
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
