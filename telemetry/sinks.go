package telemetry

import (
	"context"
	"encoding/json"
	"time"

	"milestoneamm/models"
	"milestoneamm/store"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// LogSink writes one structured line per record.
type LogSink struct {
	log *zap.Logger
}

// NewLogSink creates a sink logging at info level.
func NewLogSink(log *zap.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Publish(_ context.Context, rec models.Record) error {
	fields := []zap.Field{
		zap.String("id", rec.ID),
		zap.String("kind", string(rec.Kind)),
		zap.String("market", rec.Market),
		zap.Int64("ts", rec.Timestamp),
	}
	if rec.User != "" {
		fields = append(fields, zap.String("user", rec.User))
	}
	switch rec.Kind {
	case models.RecordTrade:
		fields = append(fields,
			zap.String("side", string(rec.Side)),
			zap.String("direction", string(rec.Direction)),
			zap.Int64("usdc_fp", rec.UsdcFP),
			zap.Int64("shares_fp", rec.SharesFP),
			zap.Int64("fee_fp", rec.FeeFP),
			zap.Int64("price_hit_milli", rec.PriceHitMilli))
	case models.RecordSettled:
		fields = append(fields, zap.String("outcome", string(rec.Outcome)))
	case models.RecordRedeemed, models.RecordLiquiditySeeded:
		fields = append(fields, zap.Int64("amount_fp", rec.AmountFP))
	}
	s.log.Info("market record", fields...)
	return nil
}

// StoreSink persists records as events rows.
type StoreSink struct {
	events store.EventRepository
}

// NewStoreSink creates a sink writing to events.
func NewStoreSink(events store.EventRepository) *StoreSink {
	return &StoreSink{events: events}
}

func (s *StoreSink) Name() string { return "store" }

func (s *StoreSink) Publish(ctx context.Context, rec models.Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "encode record")
	}
	return s.events.Create(ctx, &models.Event{
		ID:        rec.ID,
		Kind:      rec.Kind,
		Market:    rec.Market,
		Payload:   string(payload),
		CreatedAt: time.Unix(rec.Timestamp, 0).UTC(),
	})
}

// RedisSink publishes records as JSON on a pub/sub channel.
type RedisSink struct {
	rdb     *redis.Client
	channel string
}

// NewRedisSink creates a sink over an existing client.
func NewRedisSink(rdb *redis.Client, channel string) *RedisSink {
	return &RedisSink{rdb: rdb, channel: channel}
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Publish(ctx context.Context, rec models.Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "encode record")
	}
	if err := s.rdb.Publish(ctx, s.channel, payload).Err(); err != nil {
		return errors.Wrapf(err, "redis: publish %s", s.channel)
	}
	return nil
}

// Subscribe streams records published on the sink's channel until ctx is
// cancelled. Payloads that do not decode are skipped.
func (s *RedisSink) Subscribe(ctx context.Context) (<-chan models.Record, error) {
	pubsub := s.rdb.Subscribe(ctx, s.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, errors.Wrapf(err, "redis: subscribe %s", s.channel)
	}

	out := make(chan models.Record, 128)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var rec models.Record
				if err := json.Unmarshal([]byte(msg.Payload), &rec); err != nil {
					continue
				}
				select {
				case out <- rec:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// NewRedisClient connects to addr and checks the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrapf(err, "redis: ping %s", addr)
	}
	return rdb, nil
}
