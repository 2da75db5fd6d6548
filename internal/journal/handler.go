package journal

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/meridian-re/meridian/internal/shared"
)

// Handler exposes journal posting endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the journal HTTP handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes attaches journal routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{entryID}", h.get)
	r.Post("/", h.post)
	r.Post("/drafts", h.saveDraft)
	r.Post("/drafts/{entryID}/post", h.postDraft)
	r.Post("/{entryID}/void", h.void)
}

type lineRequest struct {
	AccountID int64  `json:"account_id" validate:"required"`
	Debit     string `json:"debit"`
	Credit    string `json:"credit"`
}

type postEntryRequest struct {
	EntityID  int64         `json:"entity_id" validate:"required"`
	Date      string        `json:"date" validate:"required"`
	Memo      string        `json:"memo"`
	Reference string        `json:"reference"`
	ClientRef string        `json:"client_ref"`
	Lines     []lineRequest `json:"lines" validate:"required,dive"`
}

type voidRequest struct {
	ActorID int64 `json:"actor_id"`
}

func (h *Handler) decodePosting(r *http.Request) (PostingInput, error) {
	var req postEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return PostingInput{}, shared.Validation("journal: malformed request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return PostingInput{}, shared.Validation(err.Error())
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return PostingInput{}, shared.Validation("journal: date must be YYYY-MM-DD")
	}
	clientRef := uuid.New()
	if req.ClientRef != "" {
		clientRef, err = uuid.Parse(req.ClientRef)
		if err != nil {
			return PostingInput{}, shared.Validation("journal: client_ref must be a UUID")
		}
	}
	input := PostingInput{
		EntityID:  req.EntityID,
		Date:      date,
		Memo:      req.Memo,
		Reference: req.Reference,
		ClientRef: clientRef,
	}
	for _, line := range req.Lines {
		debit, err := parseAmount(line.Debit)
		if err != nil {
			return PostingInput{}, err
		}
		credit, err := parseAmount(line.Credit)
		if err != nil {
			return PostingInput{}, err
		}
		input.Lines = append(input.Lines, LineInput{AccountID: line.AccountID, Debit: debit, Credit: credit})
	}
	return input, nil
}

func parseAmount(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, shared.Validation("journal: amounts must be decimal strings")
	}
	return amount, nil
}

func (h *Handler) post(w http.ResponseWriter, r *http.Request) {
	input, err := h.decodePosting(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	entry, err := h.service.Post(r.Context(), input)
	if err != nil {
		h.logger.Warn("post journal", slog.Int64("entity", input.EntityID), slog.Any("error", err))
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, entry)
}

func (h *Handler) saveDraft(w http.ResponseWriter, r *http.Request) {
	input, err := h.decodePosting(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	entry, err := h.service.SaveDraft(r.Context(), input)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, entry)
}

func (h *Handler) postDraft(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "entryID"), 10, 64)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	entry, err := h.service.PostDraft(r.Context(), id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, entry)
}

func (h *Handler) void(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "entryID"), 10, 64)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	var req voidRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	reversal, err := h.service.Void(r.Context(), id, req.ActorID)
	if err != nil {
		h.logger.Warn("void journal", slog.Int64("entry", id), slog.Any("error", err))
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, reversal)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "entryID"), 10, 64)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	entry, err := h.service.Get(r.Context(), id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, entry)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	entityID, err := strconv.ParseInt(r.URL.Query().Get("entity_id"), 10, 64)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	entries, err := h.service.List(r.Context(), entityID)
	if err != nil {
		h.logger.Error("list journal", slog.Any("error", err))
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, entries)
}
