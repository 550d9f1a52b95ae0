package adminhandlers

import (
	"net/http"

	"milestoneamm/handlers"
	"milestoneamm/service"

	"github.com/gorilla/mux"
)

// PauseRequest sets the trading pause flag.
type PauseRequest struct {
	Paused *bool `json:"paused" validate:"required"`
}

// PauseMarketHandler handles POST /v0/admin/markets/{key}/pause
// Only the market authority may pause; the core enforces it.
func PauseMarketHandler(svc *service.MarketService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		caller, ok := handlers.Caller(w, r)
		if !ok {
			return
		}
		var req PauseRequest
		if !handlers.DecodeJSON(w, r, &req) {
			return
		}

		market, err := svc.SetPaused(r.Context(), caller, mux.Vars(r)["key"], *req.Paused)
		if err != nil {
			handlers.WriteError(w, err)
			return
		}
		handlers.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"market":  market,
		})
	}
}

// UpdateParamsRequest is a partial update; omitted fields are unchanged.
type UpdateParamsRequest struct {
	B                 *string `json:"b,omitempty"`
	FeeBps            *uint16 `json:"feeBps,omitempty" validate:"omitempty,lte=10000"`
	DeadlineTS        *int64  `json:"deadlineTs,omitempty"`
	GracePeriodSecs   *int64  `json:"gracePeriodSecs,omitempty"`
	MaxTradeUsdc      *string `json:"maxTradeUsdc,omitempty"`
	MaxPositionShares *string `json:"maxPositionShares,omitempty"`
	TreasuryID        *string `json:"treasuryId,omitempty" validate:"omitempty,min=1"`
	OracleSigner      *string `json:"oracleSigner,omitempty" validate:"omitempty,min=1"`
}

// UpdateParamsHandler handles PATCH /v0/admin/markets/{key}/params
func UpdateParamsHandler(svc *service.MarketService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		caller, ok := handlers.Caller(w, r)
		if !ok {
			return
		}
		var req UpdateParamsRequest
		if !handlers.DecodeJSON(w, r, &req) {
			return
		}
		b, ok := handlers.OptionalAmount(w, "b", req.B)
		if !ok {
			return
		}
		maxTrade, ok := handlers.OptionalAmount(w, "maxTradeUsdc", req.MaxTradeUsdc)
		if !ok {
			return
		}
		maxPos, ok := handlers.OptionalAmount(w, "maxPositionShares", req.MaxPositionShares)
		if !ok {
			return
		}

		market, err := svc.UpdateParams(r.Context(), caller, mux.Vars(r)["key"], service.ParamsUpdate{
			BFP:                 b,
			FeeBps:              req.FeeBps,
			DeadlineTS:          req.DeadlineTS,
			GracePeriodSecs:     req.GracePeriodSecs,
			MaxTradeUsdcFP:      maxTrade,
			MaxPositionSharesFP: maxPos,
			TreasuryID:          req.TreasuryID,
			OracleSigner:        req.OracleSigner,
		})
		if err != nil {
			handlers.WriteError(w, err)
			return
		}
		handlers.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"market":  market,
		})
	}
}

// MintRequest credits demo collateral.
type MintRequest struct {
	Amount string `json:"amount" validate:"required"`
}

// MintHandler handles POST /v0/accounts/{id}/mint
// Routed behind the admin check.
func MintHandler(svc *service.MarketService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		caller, ok := handlers.Caller(w, r)
		if !ok {
			return
		}
		var req MintRequest
		if !handlers.DecodeJSON(w, r, &req) {
			return
		}
		amount, ok := handlers.Amount(w, "amount", req.Amount, true)
		if !ok {
			return
		}

		acc, err := svc.Mint(r.Context(), caller, mux.Vars(r)["id"], amount)
		if err != nil {
			handlers.WriteError(w, err)
			return
		}
		handlers.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"account": acc,
		})
	}
}
