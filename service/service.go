// Package service hosts the market core. Each operation loads the market
// and position, runs the pure handler, then applies its account openings,
// transfers and record writes in one database transaction. Telemetry is
// emitted only after the transaction commits.
package service

import (
	"context"
	"time"

	"milestoneamm/amm"
	"milestoneamm/escrow"
	"milestoneamm/models"
	"milestoneamm/security"
	"milestoneamm/store"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Emitter receives records of committed operations.
type Emitter interface {
	Emit(recs ...models.Record)
}

type nopEmitter struct{}

func (nopEmitter) Emit(...models.Record) {}

// Options configures a MarketService.
type Options struct {
	ProgramID       string
	CollateralAsset string
	MaxMintFP       int64
	Clock           amm.Clock
	Locker          Locker
	Emitter         Emitter
}

// MarketService runs market operations against the database and ledger.
type MarketService struct {
	db       *gorm.DB
	store    *store.Store
	ledger   *escrow.Ledger
	security *security.SecurityService
	opts     Options
	log      *zap.Logger
}

// NewMarketService wires a service over db. Zero options fall back to the
// system clock, an in-process locker and no telemetry.
func NewMarketService(db *gorm.DB, log *zap.Logger, opts Options) *MarketService {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = amm.SystemClock{}
	}
	if opts.Locker == nil {
		opts.Locker = NewLocalLocker()
	}
	if opts.Emitter == nil {
		opts.Emitter = nopEmitter{}
	}
	return &MarketService{
		db:       db,
		store:    store.New(db),
		ledger:   escrow.NewLedger(db, log),
		security: security.NewSecurityService(),
		opts:     opts,
		log:      log,
	}
}

// Ledger exposes the escrow ledger the service writes through.
func (s *MarketService) Ledger() *escrow.Ledger {
	return s.ledger
}

// scope is what a request builder may read inside the transaction.
type scope struct {
	ctx    context.Context
	ledger *escrow.Ledger
	market *models.Market
}

// ref loads an account reference by id.
func (sc scope) ref(id string) (models.AccountRef, error) {
	return sc.ledger.Ref(sc.ctx, id)
}

// vault loads the market's vault reference.
func (sc scope) vault() (models.AccountRef, error) {
	return sc.ref(sc.market.Vault)
}

// treasury loads the market's treasury reference when it has one.
func (sc scope) treasury() (*models.AccountRef, error) {
	if sc.market.Treasury == nil {
		return nil, nil
	}
	ref, err := sc.ref(*sc.market.Treasury)
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

// result is the outcome of a committed operation.
type result struct {
	state   amm.State
	effects amm.Effects
}

// operation names the market and position an operation touches and builds
// the core request once both are loaded.
type operation struct {
	market string
	// owner is the position holder to load, empty when no position is used.
	owner string
	// creates is set only for the operation that makes the market.
	creates bool
	build func(sc scope) (amm.Request, error)
}

// execute runs op under the market lock and inside one transaction.
func (s *MarketService) execute(ctx context.Context, caller string, op operation) (result, error) {
	unlock, err := s.opts.Locker.Lock(ctx, op.market)
	if err != nil {
		return result{}, err
	}
	defer unlock()

	var (
		res result
		req amm.Request
	)
	start := time.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		st := s.store.WithTx(tx)
		sc := scope{ctx: ctx, ledger: s.ledger.WithTx(tx)}

		market, err := st.Markets.Get(ctx, op.market)
		switch {
		case errors.Is(err, models.ErrMarketNotFound) && op.creates:
		case err != nil:
			return err
		}
		sc.market = market

		var position *models.Position
		if op.owner != "" && market != nil {
			position, err = st.Positions.Get(ctx, amm.PositionKey(market.Key, op.owner))
			if err != nil && !errors.Is(err, models.ErrPositionNotFound) {
				return err
			}
		}

		req, err = op.build(sc)
		if err != nil {
			return err
		}

		env := amm.Env{Now: s.opts.Clock.Now(), ProgramID: s.opts.ProgramID, Caller: caller}
		next, fx, err := amm.Handle(env, amm.State{Market: market, Position: position}, req)
		if err != nil {
			return err
		}

		for _, acc := range fx.Accounts {
			if _, err := sc.ledger.Open(ctx, acc); err != nil {
				return err
			}
		}
		if err := sc.ledger.Apply(ctx, fx.Transfers); err != nil {
			return err
		}
		if next.Market != nil {
			if err := st.Markets.Save(ctx, next.Market); err != nil {
				return err
			}
		}
		if next.Position != nil {
			if err := st.Positions.Save(ctx, next.Position); err != nil {
				return err
			}
		}
		for i := range fx.Records {
			fx.Records[i].ID = uuid.NewString()
			if fx.Records[i].Kind != models.RecordTrade {
				continue
			}
			trade := models.TradeFromRecord(fx.Records[i])
			if err := st.Trades.Create(ctx, &trade); err != nil {
				return err
			}
		}

		res = result{state: next, effects: fx}
		return nil
	})

	opName := "unknown"
	if req != nil {
		opName = req.Op()
	}
	if err != nil {
		s.log.Info("market operation rejected",
			zap.String("op", opName),
			zap.String("market", op.market),
			zap.String("caller", caller),
			zap.String("code", models.CodeOf(err)),
			zap.Error(err))
		return result{}, err
	}

	s.log.Debug("market operation committed",
		zap.String("op", opName),
		zap.String("market", op.market),
		zap.String("caller", caller),
		zap.Int("transfers", len(res.effects.Transfers)),
		zap.Duration("took", time.Since(start)))
	s.opts.Emitter.Emit(res.effects.Records...)
	return res, nil
}

func findRecord(recs []models.Record, kind models.RecordKind) (models.Record, bool) {
	for _, r := range recs {
		if r.Kind == kind {
			return r, true
		}
	}
	return models.Record{}, false
}
