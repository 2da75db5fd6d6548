package consol

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-re/meridian/internal/shared"
)

// Handler exposes the consolidated balance sheet endpoint.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the consolidation HTTP handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes attaches consolidation routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/{rootID}/balance-sheet", h.balanceSheet)
}

func (h *Handler) balanceSheet(w http.ResponseWriter, r *http.Request) {
	rootID, err := strconv.ParseInt(chi.URLParam(r, "rootID"), 10, 64)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	asOf := time.Now().UTC()
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		asOf, err = time.Parse("2006-01-02", raw)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
	}
	stmt, err := h.service.BalanceSheet(r.Context(), rootID, asOf)
	if err != nil {
		h.logger.Error("consolidated balance sheet", slog.Int64("root", rootID), slog.Any("error", err))
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, stmt)
}
