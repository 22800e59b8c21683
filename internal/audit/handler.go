package audit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/clinsim/clinsim/internal/shared"
)

// Handler exposes the audit timeline for inspection.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers audit routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.timeline)
}

type timelineResponse struct {
	Success bool        `json:"success"`
	Rows    []eventJSON `json:"rows"`
	Paging  pagingJSON  `json:"paging"`
}

type eventJSON struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	SubjectID string    `json:"subjectId,omitempty"`
	Resource  string    `json:"resource,omitempty"`
	Action    string    `json:"action,omitempty"`
	Outcome   string    `json:"outcome"`
	Reason    string    `json:"reason,omitempty"`
	IP        string    `json:"ip,omitempty"`
	UserAgent string    `json:"userAgent,omitempty"`
	Path      string    `json:"path,omitempty"`
	At        time.Time `json:"at"`
}

type pagingJSON struct {
	Page     int  `json:"page"`
	PageSize int  `json:"pageSize"`
	HasNext  bool `json:"hasNext"`
}

func (h *Handler) timeline(w http.ResponseWriter, r *http.Request) {
	filters := TimelineFilters{
		SubjectID: r.URL.Query().Get("subject"),
		Kind:      r.URL.Query().Get("kind"),
	}
	if raw := r.URL.Query().Get("from"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			filters.From = t
		}
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			filters.To = t
		}
	}
	filters.Page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	filters.PageSize, _ = strconv.Atoi(r.URL.Query().Get("pageSize"))

	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.logger.Error("audit timeline", slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, "failed to load audit timeline")
		return
	}

	resp := timelineResponse{
		Success: true,
		Rows:    make([]eventJSON, 0, len(result.Rows)),
		Paging: pagingJSON{
			Page:     result.Paging.Page,
			PageSize: result.Paging.PageSize,
			HasNext:  result.Paging.HasNext,
		},
	}
	for _, ev := range result.Rows {
		resp.Rows = append(resp.Rows, eventJSON{
			ID:        ev.ID,
			Kind:      string(ev.Kind),
			SubjectID: ev.SubjectID,
			Resource:  ev.Resource,
			Action:    ev.Action,
			Outcome:   string(ev.Outcome),
			Reason:    string(ev.Reason),
			IP:        ev.Origin.IP,
			UserAgent: ev.Origin.UserAgent,
			Path:      ev.Origin.Path,
			At:        ev.At,
		})
	}
	shared.WriteJSON(w, http.StatusOK, resp)
}
