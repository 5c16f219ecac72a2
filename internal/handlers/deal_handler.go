// -----------------------------------------------------------------------
// Deal Handler - CRM deal CRUD and draft listing
// -----------------------------------------------------------------------

package handlers

import (
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/prospect/internal/common"
	"github.com/ternarybob/prospect/internal/interfaces"
	"github.com/ternarybob/prospect/internal/models"
)

// DealHandler exposes deal CRUD endpoints plus the global drafts list
type DealHandler struct {
	deals  interfaces.DealStorage
	drafts interfaces.DraftStorage
	logger arbor.ILogger
}

// NewDealHandler creates a new deal handler
func NewDealHandler(storage interfaces.StorageManager, logger arbor.ILogger) *DealHandler {
	return &DealHandler{
		deals:  storage.DealStorage(),
		drafts: storage.DraftStorage(),
		logger: logger,
	}
}

// DealsHandler handles /api/deals - GET (list, optional ?open=true), POST (create)
func (h *DealHandler) DealsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		var deals []*models.Deal
		var err error
		if r.URL.Query().Get("open") == "true" {
			deals, err = h.deals.ListOpenDeals(r.Context())
		} else {
			deals, err = h.deals.ListDeals(r.Context())
		}
		if err != nil {
			h.logger.Error().Err(err).Msg("Failed to list deals")
			WriteError(w, http.StatusInternalServerError, "Failed to list deals")
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"deals": deals,
			"count": len(deals),
		})

	case http.MethodPost:
		var deal models.Deal
		if !DecodeBody(w, r, &deal) {
			return
		}
		if deal.ID == "" {
			deal.ID = common.NewDealID()
		}
		if deal.Stage == "" {
			deal.Stage = models.DealStageLead
		}
		if err := h.deals.SaveDeal(r.Context(), &deal); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		WriteJSON(w, http.StatusCreated, deal)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// DealRoutesHandler handles /api/deals/{id}
func (h *DealHandler) DealRoutesHandler(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/deals/"), "/")
	if id == "" || strings.Contains(id, "/") {
		WriteError(w, http.StatusNotFound, "Not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		deal, err := h.deals.GetDeal(r.Context(), id)
		if err != nil {
			WriteStorageError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, deal)

	case http.MethodPut:
		var updated models.Deal
		if !DecodeBody(w, r, &updated) {
			return
		}
		err := h.deals.UpdateDeal(r.Context(), id, func(deal *models.Deal) error {
			deal.Name = updated.Name
			deal.ContactID = updated.ContactID
			deal.Stage = updated.Stage
			deal.Amount = updated.Amount
			return deal.Validate()
		})
		if err != nil {
			WriteStorageError(w, err)
			return
		}
		deal, err := h.deals.GetDeal(r.Context(), id)
		if err != nil {
			WriteStorageError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, deal)

	case http.MethodDelete:
		if err := h.deals.DeleteDeal(r.Context(), id); err != nil {
			WriteStorageError(w, err)
			return
		}
		WriteSuccess(w, "Deal deleted")

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// DraftsHandler handles GET /api/drafts - all generated email drafts
func (h *DealHandler) DraftsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	drafts, err := h.drafts.ListDrafts(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list drafts")
		WriteError(w, http.StatusInternalServerError, "Failed to list drafts")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"drafts": drafts,
		"count":  len(drafts),
	})
}
