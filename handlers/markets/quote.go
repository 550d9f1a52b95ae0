package markets

import (
	"net/http"

	"milestoneamm/handlers"
	"milestoneamm/models"
	"milestoneamm/service"
	"milestoneamm/telemetry"

	"github.com/gorilla/mux"
)

// QuoteHandler handles GET /v0/markets/{key}/quote
//
// Buys are quoted with ?side=hit&usdcIn=10[&owner=id], sells with
// ?side=hit&shares=5.
func QuoteHandler(svc *service.MarketService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		q := r.URL.Query()
		key := mux.Vars(r)["key"]
		side, err := models.ParseSide(q.Get("side"))
		if err != nil {
			handlers.WriteError(w, err)
			return
		}

		if shares := q.Get("shares"); shares != "" {
			amount, ok := handlers.Amount(w, "shares", shares, true)
			if !ok {
				return
			}
			sim, err := svc.QuoteSell(r.Context(), key, side, amount)
			if err != nil {
				handlers.WriteError(w, err)
				return
			}
			handlers.WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true, "quote": sim})
			return
		}

		amount, ok := handlers.Amount(w, "usdcIn", q.Get("usdcIn"), true)
		if !ok {
			return
		}
		sim, err := svc.QuoteBuy(r.Context(), key, q.Get("owner"), side, amount)
		if err != nil {
			handlers.WriteError(w, err)
			return
		}
		handlers.WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true, "quote": sim})
	}
}

// GetPositionHandler handles GET /v0/markets/{key}/positions/{owner}
func GetPositionHandler(svc *service.MarketService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		vars := mux.Vars(r)
		pos, err := svc.GetPosition(r.Context(), vars["key"], vars["owner"])
		if err != nil {
			handlers.WriteError(w, err)
			return
		}
		handlers.WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true, "position": pos})
	}
}

// ListTradesHandler handles GET /v0/markets/{key}/trades
func ListTradesHandler(svc *service.MarketService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		page, size := handlers.Page(r)
		list, total, err := svc.ListTrades(r.Context(), mux.Vars(r)["key"], page, size)
		if err != nil {
			handlers.WriteError(w, err)
			return
		}
		handlers.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"trades":  list,
			"total":   total,
		})
	}
}

// StreamHandler handles GET /v0/markets/{key}/stream (websocket)
func StreamHandler(svc *service.MarketService, hub *telemetry.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := mux.Vars(r)["key"]
		if _, err := svc.GetMarket(r.Context(), key); err != nil {
			handlers.WriteError(w, err)
			return
		}
		hub.Serve(w, r, key)
	}
}
