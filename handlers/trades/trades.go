package trades

import (
	"net/http"

	"milestoneamm/handlers"
	"milestoneamm/models"
	"milestoneamm/service"

	"github.com/gorilla/mux"
)

// BuyRequest is the request body for buying shares.
type BuyRequest struct {
	Side         models.Side `json:"side" validate:"required,oneof=hit miss"`
	UsdcIn       string      `json:"usdcIn" validate:"required"`
	MinSharesOut string      `json:"minSharesOut,omitempty"`
	AccountID    string      `json:"accountId" validate:"required"`
}

// SellRequest is the request body for selling shares back.
type SellRequest struct {
	Side       models.Side `json:"side" validate:"required,oneof=hit miss"`
	SharesIn   string      `json:"sharesIn" validate:"required"`
	MinUsdcOut string      `json:"minUsdcOut,omitempty"`
	AccountID  string      `json:"accountId" validate:"required"`
}

// TradeResponse is returned after a buy or sell.
type TradeResponse struct {
	Success bool `json:"success"`
	service.TradeResult
}

// BuyHandler handles POST /v0/markets/{key}/buy
func BuyHandler(svc *service.MarketService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		caller, ok := handlers.Caller(w, r)
		if !ok {
			return
		}
		var req BuyRequest
		if !handlers.DecodeJSON(w, r, &req) {
			return
		}
		usdcIn, ok := handlers.Amount(w, "usdcIn", req.UsdcIn, true)
		if !ok {
			return
		}
		minOut, ok := handlers.Amount(w, "minSharesOut", req.MinSharesOut, false)
		if !ok {
			return
		}

		res, err := svc.Buy(r.Context(), caller, mux.Vars(r)["key"], service.BuyInput{
			Side:           req.Side,
			UsdcInFP:       usdcIn,
			MinSharesOutFP: minOut,
			AccountID:      req.AccountID,
		})
		if err != nil {
			handlers.WriteError(w, err)
			return
		}
		handlers.WriteJSON(w, http.StatusOK, TradeResponse{Success: true, TradeResult: res})
	}
}

// SellHandler handles POST /v0/markets/{key}/sell
func SellHandler(svc *service.MarketService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		caller, ok := handlers.Caller(w, r)
		if !ok {
			return
		}
		var req SellRequest
		if !handlers.DecodeJSON(w, r, &req) {
			return
		}
		sharesIn, ok := handlers.Amount(w, "sharesIn", req.SharesIn, true)
		if !ok {
			return
		}
		minOut, ok := handlers.Amount(w, "minUsdcOut", req.MinUsdcOut, false)
		if !ok {
			return
		}

		res, err := svc.Sell(r.Context(), caller, mux.Vars(r)["key"], service.SellInput{
			Side:         req.Side,
			SharesInFP:   sharesIn,
			MinUsdcOutFP: minOut,
			AccountID:    req.AccountID,
		})
		if err != nil {
			handlers.WriteError(w, err)
			return
		}
		handlers.WriteJSON(w, http.StatusOK, TradeResponse{Success: true, TradeResult: res})
	}
}

// RedeemRequest names the account receiving the payout.
type RedeemRequest struct {
	AccountID string `json:"accountId" validate:"required"`
}

// RedeemHandler handles POST /v0/markets/{key}/redeem
func RedeemHandler(svc *service.MarketService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		caller, ok := handlers.Caller(w, r)
		if !ok {
			return
		}
		var req RedeemRequest
		if !handlers.DecodeJSON(w, r, &req) {
			return
		}

		res, err := svc.Redeem(r.Context(), caller, mux.Vars(r)["key"], req.AccountID)
		if err != nil {
			handlers.WriteError(w, err)
			return
		}
		handlers.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"success":  true,
			"position": res.Position,
			"payoutFp": res.PayoutFP,
		})
	}
}
