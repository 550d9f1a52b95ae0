package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"milestoneamm/middleware"
	"milestoneamm/models"
	"milestoneamm/service"
	"milestoneamm/store/storetest"
	"milestoneamm/telemetry"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testNow = int64(1_700_000_000)
	secret  = "server-test-secret-0123456789"
)

// atomicClock is read by handler goroutines while the test moves it.
type atomicClock struct{ ts atomic.Int64 }

func (c *atomicClock) Now() int64 { return c.ts.Load() }

type api struct {
	t     *testing.T
	srv   *httptest.Server
	auth  *middleware.Authenticator
	clock *atomicClock
}

func newAPI(t *testing.T) *api {
	t.Helper()
	clock := &atomicClock{}
	clock.ts.Store(testNow)
	log := zap.NewNop()
	svc := service.NewMarketService(storetest.NewDB(t), log, service.Options{
		ProgramID:       "server-test",
		CollateralAsset: "USDC",
		MaxMintFP:       10_000_000_000,
		Clock:           clock,
	})
	hub := telemetry.NewHub(log)
	t.Cleanup(hub.Close)

	auth := middleware.NewAuthenticator(secret, []string{"operator"})
	router := NewRouter(Deps{
		Service: svc,
		Auth:    auth,
		Limiter: middleware.NewRateLimiter(1000, 1000),
		Hub:     hub,
		Log:     log,
	}, []string{"*"})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &api{t: t, srv: srv, auth: auth, clock: clock}
}

// do sends a JSON request as identity (anonymous when empty) and decodes
// the response body into out when non-nil.
func (a *api) do(method, path, identity string, body, out interface{}) int {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, a.srv.URL+path, &buf)
	require.NoError(a.t, err)
	req.Header.Set("Content-Type", "application/json")
	if identity != "" {
		token, err := a.auth.IssueToken(identity, time.Hour)
		require.NoError(a.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(a.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

type accountBody struct {
	Account models.Account `json:"account"`
}

type marketBody struct {
	Market models.Market `json:"market"`
}

type errorBody struct {
	Error string           `json:"error"`
	Code  string           `json:"code"`
	Kind  models.ErrorKind `json:"kind"`
}

func (a *api) fundedAccount(owner, amount string) string {
	a.t.Helper()
	var acc accountBody
	require.Equal(a.t, http.StatusCreated, a.do(http.MethodPost, "/v0/accounts", owner, nil, &acc))
	require.Equal(a.t, http.StatusOK, a.do(http.MethodPost, "/v0/accounts/"+acc.Account.ID+"/mint", "operator",
		map[string]string{"amount": amount}, nil))
	return acc.Account.ID
}

func (a *api) createMarket(authority string) string {
	a.t.Helper()
	var m marketBody
	status := a.do(http.MethodPost, "/v0/markets", authority, map[string]interface{}{
		"milestoneId":       "release-1",
		"b":                 "100",
		"feeBps":            50,
		"deadlineTs":        testNow + 86_400,
		"gracePeriodSecs":   3_600,
		"maxTradeUsdc":      "500",
		"maxPositionShares": "10000",
		"title":             "Release 1 ships",
		"description":       "Resolves **Hit** when tagged.",
	}, &m)
	require.Equal(a.t, http.StatusCreated, status)
	require.NotEmpty(a.t, m.Market.Key)
	return m.Market.Key
}

func TestHealth(t *testing.T) {
	a := newAPI(t)
	var body map[string]string
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/health", "", nil, &body))
	require.Equal(t, "ok", body["status"])
}

func TestMarketFlowOverHTTP(t *testing.T) {
	a := newAPI(t)
	aliceAcc := a.fundedAccount("alice", "1000")
	bobAcc := a.fundedAccount("bob", "100")
	key := a.createMarket("alice")

	require.Equal(t, http.StatusOK, a.do(http.MethodPost, "/v0/markets/"+key+"/seed", "alice",
		map[string]string{"accountId": aliceAcc, "amount": "70"}, nil))

	var quote struct {
		Quote struct {
			SharesFP int64 `json:"sharesFp"`
		} `json:"quote"`
	}
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/v0/markets/"+key+"/quote?side=hit&usdcIn=10&owner=bob", "", nil, &quote))

	var trade struct {
		Success  bool            `json:"success"`
		Position models.Position `json:"position"`
	}
	require.Equal(t, http.StatusOK, a.do(http.MethodPost, "/v0/markets/"+key+"/buy", "bob",
		map[string]string{"side": "hit", "usdcIn": "10", "accountId": bobAcc}, &trade))
	require.True(t, trade.Success)
	require.Positive(t, trade.Position.HitSharesFP)
	require.Equal(t, quote.Quote.SharesFP, trade.Position.HitSharesFP)

	var view struct {
		Market models.Market `json:"market"`
		State  struct {
			PriceHit float64 `json:"priceHit"`
		} `json:"state"`
	}
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/v0/markets/"+key, "", nil, &view))
	require.Equal(t, trade.Position.HitSharesFP, view.Market.QHitFP)
	require.Greater(t, view.State.PriceHit, 0.5)

	var trades struct {
		Total int64 `json:"total"`
	}
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/v0/markets/"+key+"/trades", "", nil, &trades))
	require.EqualValues(t, 1, trades.Total)

	// Settlement opens after deadline plus grace.
	var e errorBody
	require.Equal(t, http.StatusConflict, a.do(http.MethodPost, "/v0/markets/"+key+"/settle", "alice",
		map[string]string{"outcome": "hit"}, &e))
	require.Equal(t, models.KindTemporal, e.Kind)

	a.clock.ts.Store(testNow + 86_400 + 3_600)
	require.Equal(t, http.StatusOK, a.do(http.MethodPost, "/v0/markets/"+key+"/settle", "alice",
		map[string]string{"outcome": "hit"}, nil))

	var redeemed struct {
		PayoutFP int64 `json:"payoutFp"`
	}
	require.Equal(t, http.StatusOK, a.do(http.MethodPost, "/v0/markets/"+key+"/redeem", "bob",
		map[string]string{"accountId": bobAcc}, &redeemed))
	require.Equal(t, trade.Position.HitSharesFP, redeemed.PayoutFP)

	var acc accountBody
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/v0/accounts/"+bobAcc, "bob", nil, &acc))
	require.Equal(t, 90_000_000+redeemed.PayoutFP, acc.Account.BalanceFP)
}

func TestErrorStatuses(t *testing.T) {
	a := newAPI(t)
	aliceAcc := a.fundedAccount("alice", "100")
	key := a.createMarket("alice")

	tests := []struct {
		name     string
		method   string
		path     string
		identity string
		body     interface{}
		status   int
	}{
		{"anonymous buy", http.MethodPost, "/v0/markets/" + key + "/buy", "",
			map[string]string{"side": "hit", "usdcIn": "1", "accountId": aliceAcc}, http.StatusUnauthorized},
		{"unknown market", http.MethodGet, "/v0/markets/nope", "", nil, http.StatusNotFound},
		{"bad side", http.MethodPost, "/v0/markets/" + key + "/buy", "alice",
			map[string]string{"side": "maybe", "usdcIn": "1", "accountId": aliceAcc}, http.StatusBadRequest},
		{"bad amount", http.MethodPost, "/v0/markets/" + key + "/buy", "alice",
			map[string]string{"side": "hit", "usdcIn": "lots", "accountId": aliceAcc}, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/v0/markets/" + key + "/buy", "alice",
			map[string]string{"side": "hit", "usdcIn": "1", "accountId": aliceAcc, "extra": "x"}, http.StatusBadRequest},
		{"trade too large", http.MethodPost, "/v0/markets/" + key + "/buy", "alice",
			map[string]string{"side": "hit", "usdcIn": "501", "accountId": aliceAcc}, http.StatusUnprocessableEntity},
		{"someone else's account", http.MethodPost, "/v0/markets/" + key + "/buy", "mallory",
			map[string]string{"side": "hit", "usdcIn": "1", "accountId": aliceAcc}, http.StatusBadRequest},
		{"non authority pause", http.MethodPost, "/v0/admin/markets/" + key + "/pause", "mallory",
			map[string]bool{"paused": true}, http.StatusForbidden},
		{"non admin mint", http.MethodPost, "/v0/accounts/" + aliceAcc + "/mint", "alice",
			map[string]string{"amount": "1"}, http.StatusForbidden},
		{"foreign account read", http.MethodGet, "/v0/accounts/" + aliceAcc, "mallory", nil, http.StatusForbidden},
		{"redeem unsettled", http.MethodPost, "/v0/markets/" + key + "/redeem", "alice",
			map[string]string{"accountId": aliceAcc}, http.StatusConflict},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.status, a.do(tc.method, tc.path, tc.identity, tc.body, nil))
		})
	}
}

func TestPauseBlocksTrading(t *testing.T) {
	a := newAPI(t)
	aliceAcc := a.fundedAccount("alice", "100")
	key := a.createMarket("alice")

	require.Equal(t, http.StatusOK, a.do(http.MethodPost, "/v0/admin/markets/"+key+"/pause", "alice",
		map[string]bool{"paused": true}, nil))

	var e errorBody
	require.Equal(t, http.StatusConflict, a.do(http.MethodPost, "/v0/markets/"+key+"/buy", "alice",
		map[string]string{"side": "miss", "usdcIn": "1", "accountId": aliceAcc}, &e))
	require.Equal(t, models.ErrPaused.Code, e.Code)
}

func TestCORSPreflight(t *testing.T) {
	a := newAPI(t)
	req, err := http.NewRequest(http.MethodOptions, a.srv.URL+"/v0/markets", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://example.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
