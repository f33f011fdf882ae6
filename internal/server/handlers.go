package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MartinDM/data-app/internal/detail"
	"github.com/MartinDM/data-app/internal/generator"
	"github.com/MartinDM/data-app/internal/view"
)

// Refresher regenerates the dataset behind the engine.
type Refresher interface {
	Refresh(ctx context.Context) (view.Snapshot, error)
}

// DetailViews tracks open person detail views.
type DetailViews interface {
	Open(personID string) (detail.View, error)
	Get(viewID string) (detail.View, error)
	CloseView(viewID string) error
}

// APIHandlers exposes the view engine and the person drill-downs over HTTP.
type APIHandlers struct {
	logger    *slog.Logger
	engine    *view.Engine
	refresher Refresher
	details   DetailViews
}

// NewAPIHandlers constructs an APIHandlers instance. A nil refresher disables
// the refresh route and a nil details disables detail views.
func NewAPIHandlers(logger *slog.Logger, engine *view.Engine, refresher Refresher, details DetailViews) *APIHandlers {
	return &APIHandlers{
		logger:    logger.With("component", "api"),
		engine:    engine,
		refresher: refresher,
		details:   details,
	}
}

// --- View ---

func (h *APIHandlers) getView(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, toViewResponse(h.engine.Derive()))
}

func (h *APIHandlers) refresh(w http.ResponseWriter, r *http.Request) {
	if h.refresher == nil {
		writeError(w, http.StatusNotImplemented, "refresh is not available")
		return
	}
	snap, err := h.refresher.Refresh(r.Context())
	if err != nil {
		h.logger.Error("failed to refresh dataset", "error", err)
		writeError(w, statusFor(err), "failed to refresh dataset")
		return
	}
	respondJSON(w, http.StatusOK, refreshResponse{
		SnapshotID:  snap.ID,
		GeneratedAt: formatTime(snap.GeneratedAt),
		Size:        snap.Len(),
	})
}

func (h *APIHandlers) setFilter(w http.ResponseWriter, r *http.Request) {
	var payload filterRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.respondControl(w, h.engine.SetFilter(chi.URLParam(r, "column"), payload.Value))
}

func (h *APIHandlers) clearFilter(w http.ResponseWriter, r *http.Request) {
	h.respondControl(w, h.engine.ClearFilter(chi.URLParam(r, "column")))
}

func (h *APIHandlers) resetFilters(w http.ResponseWriter, r *http.Request) {
	h.engine.ResetFilters()
	h.respondControl(w, nil)
}

func (h *APIHandlers) setSort(w http.ResponseWriter, r *http.Request) {
	var payload sortRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.respondControl(w, h.engine.SetSort(payload.Column, payload.Direction))
}

func (h *APIHandlers) toggleSelection(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	found, selected := h.engine.ToggleSelection(id)
	if !found {
		respondJSON(w, http.StatusNotFound, notFoundResponse{Error: "person not found", ID: id})
		return
	}
	respondJSON(w, http.StatusOK, selectionResponse{ID: id, Selected: selected})
}

func (h *APIHandlers) selectAll(w http.ResponseWriter, r *http.Request) {
	var payload selectAllRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.engine.SelectAll(payload.Selected)
	h.respondControl(w, nil)
}

func (h *APIHandlers) clearSelection(w http.ResponseWriter, r *http.Request) {
	h.engine.ClearSelection()
	h.respondControl(w, nil)
}

func (h *APIHandlers) setColumnVisible(w http.ResponseWriter, r *http.Request) {
	var payload columnRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.respondControl(w, h.engine.SetColumnVisible(chi.URLParam(r, "column"), payload.Visible))
}

func (h *APIHandlers) setPage(w http.ResponseWriter, r *http.Request) {
	var payload pageRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.respondControl(w, h.engine.SetPage(payload.Index, payload.Size))
}

func (h *APIHandlers) setValuesHidden(w http.ResponseWriter, r *http.Request) {
	var payload valuesHiddenRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.engine.SetValuesHidden(payload.Hidden)
	h.respondControl(w, nil)
}

// respondControl answers a control mutation with the derived view, or maps
// the rejection to 400.
func (h *APIHandlers) respondControl(w http.ResponseWriter, err error) {
	if err != nil {
		switch {
		case errors.Is(err, view.ErrUnknownColumn),
			errors.Is(err, view.ErrInvalidFilter),
			errors.Is(err, view.ErrInvalidSort),
			errors.Is(err, view.ErrInvalidPage):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("view control failed", "error", err)
			writeError(w, http.StatusInternalServerError, "view control failed")
		}
		return
	}
	respondJSON(w, http.StatusOK, toViewResponse(h.engine.Derive()))
}

// --- People ---

func (h *APIHandlers) getPerson(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, ok := h.engine.Lookup(id)
	if !ok {
		respondJSON(w, http.StatusNotFound, notFoundResponse{Error: "person not found", ID: id})
		return
	}
	respondJSON(w, http.StatusOK, profileResponse{
		personRow: toPersonRow(p, h.engine.ValuesHidden()),
		Bio:       p.Bio,
	})
}

func (h *APIHandlers) getTransactions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, ok := h.engine.Lookup(id)
	if !ok || p.TransactionInsights == nil {
		respondJSON(w, http.StatusNotFound, notFoundResponse{Error: "transaction insights not found", ID: id})
		return
	}
	respondJSON(w, http.StatusOK, p.TransactionInsights)
}

func (h *APIHandlers) getLocations(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, ok := h.engine.Lookup(id)
	if !ok || p.LocationInsights == nil {
		respondJSON(w, http.StatusNotFound, notFoundResponse{Error: "location insights not found", ID: id})
		return
	}
	respondJSON(w, http.StatusOK, p.LocationInsights)
}

// --- Detail views ---

func (h *APIHandlers) openDetail(w http.ResponseWriter, r *http.Request) {
	if h.details == nil {
		writeError(w, http.StatusNotImplemented, "detail views are not available")
		return
	}
	id := chi.URLParam(r, "id")
	v, err := h.details.Open(id)
	if err != nil {
		h.respondDetailError(w, id, err)
		return
	}
	respondJSON(w, http.StatusCreated, toDetailResponse(v, h.engine.ValuesHidden()))
}

func (h *APIHandlers) getDetail(w http.ResponseWriter, r *http.Request) {
	if h.details == nil {
		writeError(w, http.StatusNotImplemented, "detail views are not available")
		return
	}
	id := chi.URLParam(r, "viewID")
	v, err := h.details.Get(id)
	if err != nil {
		h.respondDetailError(w, id, err)
		return
	}
	resp := toDetailResponse(v, h.engine.ValuesHidden())
	// a refresh since the view opened replaces every person, even one that
	// kept its id
	if v.SnapshotID != h.engine.Snapshot().ID {
		resp.Found = false
		resp.Person = nil
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *APIHandlers) closeDetail(w http.ResponseWriter, r *http.Request) {
	if h.details == nil {
		writeError(w, http.StatusNotImplemented, "detail views are not available")
		return
	}
	id := chi.URLParam(r, "viewID")
	if err := h.details.CloseView(id); err != nil {
		h.respondDetailError(w, id, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandlers) respondDetailError(w http.ResponseWriter, id string, err error) {
	switch {
	case errors.Is(err, detail.ErrPersonNotFound):
		respondJSON(w, http.StatusNotFound, notFoundResponse{Error: "person not found", ID: id})
	case errors.Is(err, detail.ErrViewNotFound):
		respondJSON(w, http.StatusNotFound, notFoundResponse{Error: "detail view not found", ID: id})
	case errors.Is(err, detail.ErrManagerClosed):
		writeError(w, http.StatusServiceUnavailable, "detail views are shutting down")
	default:
		h.logger.Error("detail view failed", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, "detail view failed")
	}
}

// --- Helpers ---

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{
		"error": msg,
	})
}

// statusFor maps a generator error to an HTTP status.
func statusFor(err error) int {
	if errors.Is(err, generator.ErrInvalidArgument) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
