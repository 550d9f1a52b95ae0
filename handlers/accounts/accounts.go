package accounts

import (
	"net/http"
	"strconv"

	"milestoneamm/handlers"
	"milestoneamm/middleware"
	"milestoneamm/models"
	"milestoneamm/service"

	"github.com/gorilla/mux"
)

// CreateAccountHandler handles POST /v0/accounts
// The new account is owned by the caller.
func CreateAccountHandler(svc *service.MarketService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		caller, ok := handlers.Caller(w, r)
		if !ok {
			return
		}
		acc, err := svc.CreateAccount(r.Context(), caller)
		if err != nil {
			handlers.WriteError(w, err)
			return
		}
		handlers.WriteJSON(w, http.StatusCreated, map[string]interface{}{
			"success": true,
			"account": acc,
		})
	}
}

// loadOwned fetches an account the caller owns, or any account for admins.
func loadOwned(w http.ResponseWriter, r *http.Request, svc *service.MarketService, auth *middleware.Authenticator) (models.Account, bool) {
	caller, ok := handlers.Caller(w, r)
	if !ok {
		return models.Account{}, false
	}
	acc, err := svc.GetAccount(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		handlers.WriteError(w, err)
		return models.Account{}, false
	}
	if acc.Owner != caller && !auth.IsAdmin(caller) {
		handlers.WriteError(w, models.ErrUnauthorized)
		return models.Account{}, false
	}
	return acc, true
}

// GetAccountHandler handles GET /v0/accounts/{id}
func GetAccountHandler(svc *service.MarketService, auth *middleware.Authenticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		acc, ok := loadOwned(w, r, svc, auth)
		if !ok {
			return
		}
		handlers.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"account": acc,
		})
	}
}

// AccountEntriesHandler handles GET /v0/accounts/{id}/entries
func AccountEntriesHandler(svc *service.MarketService, auth *middleware.Authenticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		acc, ok := loadOwned(w, r, svc, auth)
		if !ok {
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		entries, err := svc.AccountEntries(r.Context(), acc.ID, limit)
		if err != nil {
			handlers.WriteError(w, err)
			return
		}
		handlers.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"entries": entries,
			"count":   len(entries),
		})
	}
}
