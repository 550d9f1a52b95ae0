package telemetry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"milestoneamm/models"
	"milestoneamm/store"
	"milestoneamm/store/storetest"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type memorySink struct {
	mu   sync.Mutex
	recs []models.Record
	fail bool
}

func (s *memorySink) Name() string { return "memory" }

func (s *memorySink) Publish(_ context.Context, rec models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("sink down")
	}
	s.recs = append(s.recs, rec)
	return nil
}

func (s *memorySink) all() []models.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Record(nil), s.recs...)
}

func TestEmitterDeliversToEverySink(t *testing.T) {
	a, b := &memorySink{}, &memorySink{}
	e := NewEmitter(16, zap.NewNop(), a, b)
	e.Start(context.Background())

	e.Emit(
		models.Record{ID: "1", Kind: models.RecordTrade, Market: "m"},
		models.Record{ID: "2", Kind: models.RecordSettled, Market: "m"},
	)
	e.Close()

	require.Len(t, a.all(), 2)
	require.Len(t, b.all(), 2)
	require.Equal(t, "2", b.all()[1].ID)

	// Emitting after close is ignored.
	e.Emit(models.Record{ID: "3"})
	require.Len(t, a.all(), 2)
}

func TestEmitterDropsWhenFull(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	e := NewEmitter(1, zap.New(core))

	e.Emit(models.Record{ID: "1"}, models.Record{ID: "2"}, models.Record{ID: "3"})
	require.Equal(t, int64(2), e.Dropped())
	require.Equal(t, 2, logs.FilterMessage("telemetry buffer full, dropping record").Len())

	e.Start(context.Background())
	e.Close()
}

func TestEmitterSurvivesSinkFailure(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	bad, good := &memorySink{fail: true}, &memorySink{}
	e := NewEmitter(4, zap.New(core), bad, good)
	e.Start(context.Background())
	e.Emit(models.Record{ID: "1", Kind: models.RecordPaused, Market: "m"})
	e.Close()

	require.Len(t, good.all(), 1)
	require.Equal(t, 1, logs.FilterMessage("telemetry sink failed").Len())
}

func TestStoreSink(t *testing.T) {
	s := store.New(storetest.NewDB(t))
	sink := NewStoreSink(s.Events)
	ctx := context.Background()

	rec := models.Record{ID: "ev-1", Kind: models.RecordTrade, Market: "m", User: "bob", Timestamp: 1_700_000_000, UsdcFP: 5}
	require.NoError(t, sink.Publish(ctx, rec))

	events, err := s.Events.ListByMarket(ctx, "m", 10)
	require.NoError(t, err)
	require.Len(t, events, 1)

	var decoded models.Record
	require.NoError(t, json.Unmarshal([]byte(events[0].Payload), &decoded))
	require.Equal(t, rec, decoded)
}

func TestLogSink(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	sink := NewLogSink(zap.New(core))
	require.NoError(t, sink.Publish(context.Background(), models.Record{ID: "1", Kind: models.RecordTrade, Market: "m", SharesFP: 9}))

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, int64(9), entries[0].ContextMap()["shares_fp"])
}

func TestHubStreamsMarketRecords(t *testing.T) {
	hub := NewHub(zap.NewNop())
	defer hub.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(w, r, r.URL.Query().Get("market"))
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?market=m1"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	ctx := context.Background()
	require.NoError(t, hub.Publish(ctx, models.Record{ID: "skip", Market: "m2"}))
	require.NoError(t, hub.Publish(ctx, models.Record{ID: "want", Kind: models.RecordTrade, Market: "m1"}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var rec models.Record
	require.NoError(t, json.Unmarshal(data, &rec))
	require.Equal(t, "want", rec.ID)
}

func TestHubFollow(t *testing.T) {
	hub := NewHub(zap.NewNop())
	recs := make(chan models.Record, 1)
	recs <- models.Record{ID: "1", Market: "m"}
	close(recs)

	done := make(chan struct{})
	go func() {
		hub.Follow(context.Background(), recs)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Follow did not return after the channel closed")
	}
}
