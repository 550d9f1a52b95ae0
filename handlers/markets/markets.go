package markets

import (
	"net/http"

	"milestoneamm/handlers"
	"milestoneamm/models"
	"milestoneamm/service"

	"github.com/gorilla/mux"
)

// CreateMarketRequest is the request body for creating a market. Amounts
// are decimal strings in collateral units.
type CreateMarketRequest struct {
	MilestoneID       string  `json:"milestoneId" validate:"required,max=64"`
	B                 string  `json:"b" validate:"required"`
	FeeBps            uint16  `json:"feeBps" validate:"lte=10000"`
	DeadlineTS        int64   `json:"deadlineTs" validate:"required,gt=0"`
	GracePeriodSecs   int64   `json:"gracePeriodSecs" validate:"gte=0"`
	MaxTradeUsdc      string  `json:"maxTradeUsdc" validate:"required"`
	MaxPositionShares string  `json:"maxPositionShares" validate:"required"`
	TreasuryID        *string `json:"treasuryId,omitempty"`
	OracleSigner      *string `json:"oracleSigner,omitempty" validate:"omitempty,min=1"`
	Title             string  `json:"title" validate:"required,max=160"`
	Description       string  `json:"description" validate:"max=2000"`
}

// MarketResponse is returned by every market mutation.
type MarketResponse struct {
	Success bool           `json:"success"`
	Market  *models.Market `json:"market"`
}

// CreateMarketHandler handles POST /v0/markets
func CreateMarketHandler(svc *service.MarketService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		caller, ok := handlers.Caller(w, r)
		if !ok {
			return
		}

		var req CreateMarketRequest
		if !handlers.DecodeJSON(w, r, &req) {
			return
		}
		b, ok := handlers.Amount(w, "b", req.B, true)
		if !ok {
			return
		}
		maxTrade, ok := handlers.Amount(w, "maxTradeUsdc", req.MaxTradeUsdc, true)
		if !ok {
			return
		}
		maxPos, ok := handlers.Amount(w, "maxPositionShares", req.MaxPositionShares, true)
		if !ok {
			return
		}

		market, err := svc.CreateMarket(r.Context(), caller, service.CreateMarketInput{
			MilestoneID:         req.MilestoneID,
			BFP:                 b,
			FeeBps:              req.FeeBps,
			DeadlineTS:          req.DeadlineTS,
			GracePeriodSecs:     req.GracePeriodSecs,
			MaxTradeUsdcFP:      maxTrade,
			MaxPositionSharesFP: maxPos,
			TreasuryID:          req.TreasuryID,
			OracleSigner:        req.OracleSigner,
			Title:               req.Title,
			Description:         req.Description,
		})
		if err != nil {
			handlers.WriteError(w, err)
			return
		}
		handlers.WriteJSON(w, http.StatusCreated, MarketResponse{Success: true, Market: market})
	}
}

// ListMarketsHandler handles GET /v0/markets
func ListMarketsHandler(svc *service.MarketService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		page, size := handlers.Page(r)
		list, total, err := svc.ListMarkets(r.Context(), page, size)
		if err != nil {
			handlers.WriteError(w, err)
			return
		}
		handlers.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"markets": list,
			"total":   total,
		})
	}
}

// GetMarketHandler handles GET /v0/markets/{key}
func GetMarketHandler(svc *service.MarketService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		view, err := svc.GetMarketView(r.Context(), mux.Vars(r)["key"])
		if err != nil {
			handlers.WriteError(w, err)
			return
		}
		handlers.WriteJSON(w, http.StatusOK, view)
	}
}

// SeedLiquidityRequest moves authority funds into the vault.
type SeedLiquidityRequest struct {
	AccountID string `json:"accountId" validate:"required"`
	Amount    string `json:"amount" validate:"required"`
}

// SeedLiquidityHandler handles POST /v0/markets/{key}/seed
func SeedLiquidityHandler(svc *service.MarketService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		caller, ok := handlers.Caller(w, r)
		if !ok {
			return
		}
		var req SeedLiquidityRequest
		if !handlers.DecodeJSON(w, r, &req) {
			return
		}
		amount, ok := handlers.Amount(w, "amount", req.Amount, true)
		if !ok {
			return
		}

		market, err := svc.SeedLiquidity(r.Context(), caller, mux.Vars(r)["key"], req.AccountID, amount)
		if err != nil {
			handlers.WriteError(w, err)
			return
		}
		handlers.WriteJSON(w, http.StatusOK, MarketResponse{Success: true, Market: market})
	}
}

// SettleRequest names the resolved outcome.
type SettleRequest struct {
	Outcome string `json:"outcome" validate:"required"`
}

// SettleHandler handles POST /v0/markets/{key}/settle
func SettleHandler(svc *service.MarketService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		caller, ok := handlers.Caller(w, r)
		if !ok {
			return
		}
		var req SettleRequest
		if !handlers.DecodeJSON(w, r, &req) {
			return
		}

		outcome, err := models.ParseOutcome(req.Outcome)
		if err != nil {
			handlers.WriteError(w, err)
			return
		}

		market, err := svc.Settle(r.Context(), caller, mux.Vars(r)["key"], outcome)
		if err != nil {
			handlers.WriteError(w, err)
			return
		}
		handlers.WriteJSON(w, http.StatusOK, MarketResponse{Success: true, Market: market})
	}
}
