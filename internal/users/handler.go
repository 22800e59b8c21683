package users

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/clinsim/clinsim/internal/principal"
	"github.com/clinsim/clinsim/internal/shared"
)

// Handler serves subject profiles. Routes are guarded at mount time: reading
// a profile requires the users/read capability, which resolves to ownership
// for students and educators and is unconditional for admin.
type Handler struct {
	logger *slog.Logger
	store  principal.SubjectStore
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, store principal.SubjectStore) *Handler {
	return &Handler{logger: logger, store: store}
}

type profileResponse struct {
	Success    bool      `json:"success"`
	ID         string    `json:"id"`
	Roles      []string  `json:"roles"`
	Discipline string    `json:"discipline"`
	Active     bool      `json:"active"`
	LastActive time.Time `json:"lastActiveAt"`
}

// GetProfile returns the subject record identified by the userID path
// parameter.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	subject, err := h.store.FindByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, principal.ErrSubjectNotFound) {
			shared.WriteError(w, http.StatusNotFound, "user not found")
			return
		}
		h.logger.Error("load profile", slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}

	roles := make([]string, 0, len(subject.Roles))
	for _, role := range subject.Roles {
		roles = append(roles, string(role))
	}
	shared.WriteJSON(w, http.StatusOK, profileResponse{
		Success:    true,
		ID:         subject.ID,
		Roles:      roles,
		Discipline: subject.Discipline,
		Active:     subject.Active,
		LastActive: subject.LastActiveAt,
	})
}
