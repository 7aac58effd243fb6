package handlers

import (
	"net/http"
	"strconv"

	"receipts-api/internal/middleware"
	"receipts-api/internal/models"
	"receipts-api/internal/services"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

type ReceiptHandler struct {
	receiptService *services.ReceiptService
	renderer       *services.ReceiptRenderer
	logger         zerolog.Logger
}

func NewReceiptHandler(receiptService *services.ReceiptService, renderer *services.ReceiptRenderer, logger zerolog.Logger) *ReceiptHandler {
	return &ReceiptHandler{
		receiptService: receiptService,
		renderer:       renderer,
		logger:         logger,
	}
}

func (h *ReceiptHandler) CreateReceipt(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		writeServiceError(w, r, h.logger, services.ErrUnauthorized)
		return
	}

	var req models.CreateReceiptRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	receipt, err := h.receiptService.CreateReceipt(r.Context(), userID, &req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusOK, receipt)
}

func (h *ReceiptHandler) ListReceipts(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r)
	if !ok {
		writeServiceError(w, r, h.logger, services.ErrUnauthorized)
		return
	}

	filter, err := parseReceiptFilter(r.URL.Query())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	list, err := h.receiptService.ListReceipts(r.Context(), user.ID, filter)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusOK, list)
}

func (h *ReceiptHandler) GetReceipt(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r)
	if !ok {
		writeServiceError(w, r, h.logger, services.ErrUnauthorized)
		return
	}

	receiptID, err := receiptIDFromPath(r)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	receipt, err := h.receiptService.GetReceipt(r.Context(), receiptID, user.ID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusOK, receipt)
}

// CustomerReceipt is public: anybody holding the receipt id may read its text.
func (h *ReceiptHandler) CustomerReceipt(w http.ResponseWriter, r *http.Request) {
	receiptID, err := receiptIDFromPath(r)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	text, err := h.renderer.RenderReceiptText(r.Context(), receiptID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusOK, models.ReceiptText{ReceiptText: text})
}

func receiptIDFromPath(r *http.Request) (int, error) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		return 0, &services.ValidationError{Field: "id", Message: "must be an integer"}
	}
	return id, nil
}
