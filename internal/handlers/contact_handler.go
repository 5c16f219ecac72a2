// -----------------------------------------------------------------------
// Contact Handler - CRM contact CRUD
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

// ContactHandler exposes contact CRUD endpoints
type ContactHandler struct {
	contacts interfaces.ContactStorage
	drafts   interfaces.DraftStorage
	logger   arbor.ILogger
}

// NewContactHandler creates a new contact handler
func NewContactHandler(storage interfaces.StorageManager, logger arbor.ILogger) *ContactHandler {
	return &ContactHandler{
		contacts: storage.ContactStorage(),
		drafts:   storage.DraftStorage(),
		logger:   logger,
	}
}

// ContactsHandler handles /api/contacts - GET (list), POST (create)
func (h *ContactHandler) ContactsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		contacts, err := h.contacts.ListContacts(r.Context())
		if err != nil {
			h.logger.Error().Err(err).Msg("Failed to list contacts")
			WriteError(w, http.StatusInternalServerError, "Failed to list contacts")
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"contacts": contacts,
			"count":    len(contacts),
		})

	case http.MethodPost:
		var contact models.Contact
		if !DecodeBody(w, r, &contact) {
			return
		}
		if contact.ID == "" {
			contact.ID = common.NewContactID()
		}
		if err := h.contacts.SaveContact(r.Context(), &contact); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		WriteJSON(w, http.StatusCreated, contact)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// ContactRoutesHandler handles /api/contacts/{id} and /api/contacts/{id}/drafts
func (h *ContactHandler) ContactRoutesHandler(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/contacts/")
	parts := strings.Split(strings.Trim(path, "/"), "/")

	switch {
	case len(parts) == 1 && parts[0] != "":
		h.contactByID(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "drafts":
		h.contactDrafts(w, r, parts[0])
	default:
		WriteError(w, http.StatusNotFound, "Not found")
	}
}

func (h *ContactHandler) contactByID(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		contact, err := h.contacts.GetContact(r.Context(), id)
		if err != nil {
			WriteStorageError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, contact)

	case http.MethodPut:
		var updated models.Contact
		if !DecodeBody(w, r, &updated) {
			return
		}
		err := h.contacts.UpdateContact(r.Context(), id, func(contact *models.Contact) error {
			contact.Name = updated.Name
			contact.Email = updated.Email
			contact.Company = updated.Company
			contact.Title = updated.Title
			contact.Phone = updated.Phone
			contact.Notes = updated.Notes
			return contact.Validate()
		})
		if err != nil {
			WriteStorageError(w, err)
			return
		}
		contact, err := h.contacts.GetContact(r.Context(), id)
		if err != nil {
			WriteStorageError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, contact)

	case http.MethodDelete:
		if err := h.contacts.DeleteContact(r.Context(), id); err != nil {
			WriteStorageError(w, err)
			return
		}
		WriteSuccess(w, "Contact deleted")

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *ContactHandler) contactDrafts(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	drafts, err := h.drafts.ListDraftsByContact(r.Context(), id)
	if err != nil {
		h.logger.Error().Err(err).Str("contact_id", id).Msg("Failed to list contact drafts")
		WriteError(w, http.StatusInternalServerError, "Failed to list drafts")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"drafts": drafts,
		"count":  len(drafts),
	})
}
