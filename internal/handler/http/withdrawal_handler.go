package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"payout/internal/domain"
	"payout/internal/port"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type WithdrawalHandler struct {
	service  port.WithdrawalService
	validate *validator.Validate
	logger   *zap.Logger
}

func NewWithdrawalHandler(service port.WithdrawalService, logger *zap.Logger) *WithdrawalHandler {
	return &WithdrawalHandler{
		service:  service,
		validate: validator.New(),
		logger:   logger,
	}
}

type createWithdrawalRequest struct {
	AccountID      string     `json:"account_id" validate:"required,uuid"`
	Amount         string     `json:"amount" validate:"required"`
	DestinationKey string     `json:"destination_key" validate:"required"`
	ScheduledFor   *time.Time `json:"scheduled_for,omitempty"`
}

type withdrawalResponse struct {
	ID             string     `json:"id"`
	AccountID      string     `json:"account_id"`
	Amount         string     `json:"amount"`
	DestinationKey string     `json:"destination_key"`
	Scheduled      bool       `json:"scheduled"`
	ScheduledFor   *time.Time `json:"scheduled_for,omitempty"`
	Status         string     `json:"status"`
	ErrorReason    string     `json:"error_reason,omitempty"`
	ProcessedAt    *time.Time `json:"processed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

func toResponse(w *domain.Withdrawal) withdrawalResponse {
	return withdrawalResponse{
		ID:             w.ID.String(),
		AccountID:      w.AccountID.String(),
		Amount:         w.Amount.StringFixed(2),
		DestinationKey: w.DestinationKey,
		Scheduled:      w.Scheduled,
		ScheduledFor:   w.ScheduledFor,
		Status:         string(w.Status),
		ErrorReason:    w.ErrorReason,
		ProcessedAt:    w.ProcessedAt,
		CreatedAt:      w.CreatedAt,
	}
}

func (h *WithdrawalHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body createWithdrawalRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := h.validate.Struct(body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	accountID, err := uuid.Parse(body.AccountID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid account_id")
		return
	}
	amount, err := decimal.NewFromString(body.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}

	req := &domain.WithdrawalReq{
		AccountID:      accountID,
		Amount:         amount,
		DestinationKey: body.DestinationKey,
		ScheduledFor:   body.ScheduledFor,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	}

	withdrawal, err := h.service.CreateWithdrawal(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toResponse(withdrawal))
}

func (h *WithdrawalHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid withdrawal id")
		return
	}

	withdrawal, err := h.service.GetWithdrawal(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(withdrawal))
}

// ProcessDue is the external scheduler's trigger. A 0 count is a normal
// response when another worker holds the batch lock.
func (h *WithdrawalHandler) ProcessDue(w http.ResponseWriter, r *http.Request) {
	processed, err := h.service.ProcessDueScheduled(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"processed": processed})
}

func (h *WithdrawalHandler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrAccountNotFound), errors.Is(err, domain.ErrWithdrawalNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInsufficientBalance):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrPastSchedule), errors.Is(err, domain.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrIdempotencyKeyMismatch), errors.Is(err, domain.ErrDuplicateRequest):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
