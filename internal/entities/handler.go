package entities

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/meridian-re/meridian/internal/shared"
)

// Handler exposes entity registry endpoints to the setup screens.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the entities HTTP handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes attaches entity routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Post("/{entityID}/ownership", h.setOwnership)
}

type createEntityRequest struct {
	Name          string `json:"name" validate:"required"`
	FiscalYearEnd int    `json:"fiscal_year_end" validate:"min=1,max=12"`
}

type setOwnershipRequest struct {
	OwnerID int64  `json:"owner_id" validate:"required"`
	Percent string `json:"percent" validate:"required"`
	ActorID int64  `json:"actor_id"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list entities", slog.Any("error", err))
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createEntityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		shared.WriteJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	}
	entity, err := h.service.Create(r.Context(), CreateInput{Name: req.Name, FiscalYearEnd: time.Month(req.FiscalYearEnd)})
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, entity)
}

func (h *Handler) setOwnership(w http.ResponseWriter, r *http.Request) {
	ownedID, err := strconv.ParseInt(chi.URLParam(r, "entityID"), 10, 64)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	var req setOwnershipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		shared.WriteJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	}
	percent, err := decimal.NewFromString(req.Percent)
	if err != nil {
		shared.WriteError(w, ErrInvalidPercent)
		return
	}
	if err := h.service.SetOwnership(r.Context(), req.OwnerID, ownedID, percent, req.ActorID); err != nil {
		h.logger.Warn("set ownership", slog.Int64("owned", ownedID), slog.Any("error", err))
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
