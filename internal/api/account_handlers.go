package api

import (
	"errors"
	"net/http"

	"github.com/goreulmanhae/compare-api/internal/account"
	"github.com/goreulmanhae/compare-api/internal/validate"
)

// UsernameCheckResponse is the body of GET /auth/check-username.
type UsernameCheckResponse struct {
	IsDuplicate bool `json:"isDuplicate"`
}

// AccountHandlers serves account lookups.
type AccountHandlers struct {
	repo account.Repository
}

// NewAccountHandlers creates a new AccountHandlers instance.
func NewAccountHandlers(repo account.Repository) *AccountHandlers {
	return &AccountHandlers{repo: repo}
}

// CheckUsername handles GET /auth/check-username?username=.
func (h *AccountHandlers) CheckUsername(w http.ResponseWriter, r *http.Request) {
	username, err := validate.Username(r.URL.Query().Get("username"))
	if err != nil {
		msg := "username: " + err.Error()
		if errors.Is(err, validate.ErrEmpty) {
			msg = "username is required"
		}
		writeErrorCode(w, r, http.StatusBadRequest, ErrCodeValidation, msg)
		return
	}

	exists, err := h.repo.UsernameExists(r.Context(), username)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, UsernameCheckResponse{IsDuplicate: exists})
}
