// Command seed fills a development database with funded accounts, a few
// markets and a burst of random trades.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"time"

	"milestoneamm/config"
	"milestoneamm/handlers/math/fixedpoint"
	"milestoneamm/migration"
	_ "milestoneamm/migration/migrations"
	"milestoneamm/models"
	"milestoneamm/service"
	"milestoneamm/store"

	"github.com/brianvoe/gofakeit"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const unit = int64(1_000_000)

func main() {
	configPath := flag.String("config", "", "path to YAML configuration file")
	traders := flag.Int("traders", 8, "number of trader identities")
	markets := flag.Int("markets", 3, "number of markets")
	trades := flag.Int("trades", 60, "number of trades to attempt")
	flag.Parse()

	// Load .env from the repository root if present.
	_ = godotenv.Load("../.env")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := store.Open(cfg.Database)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	if err := migration.Run(db, zap.NewNop()); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	svc := service.NewMarketService(db, zap.NewNop(), service.Options{
		ProgramID:       cfg.ProgramID,
		CollateralAsset: cfg.Collateral.Asset,
		MaxMintFP:       1_000_000 * unit,
	})

	gofakeit.Seed(time.Now().UnixNano())
	ctx := context.Background()

	type trader struct {
		name    string
		account string
	}
	crowd := make([]trader, 0, *traders)
	for i := 0; i < *traders; i++ {
		name := gofakeit.Username()
		acc, err := svc.CreateAccount(ctx, name)
		if err != nil {
			log.Fatalf("create account: %v", err)
		}
		if _, err := svc.Mint(ctx, "seed", acc.ID, int64(gofakeit.Number(200, 2000))*unit); err != nil {
			log.Fatalf("mint: %v", err)
		}
		crowd = append(crowd, trader{name: name, account: acc.ID})
	}
	fmt.Printf("created %d funded traders\n", len(crowd))

	keys := make([]string, 0, *markets)
	for i := 0; i < *markets; i++ {
		owner := crowd[i%len(crowd)]
		m, err := svc.CreateMarket(ctx, owner.name, service.CreateMarketInput{
			MilestoneID:         fmt.Sprintf("seed-%d-%s", i, gofakeit.Word()),
			BFP:                 int64(gofakeit.Number(50, 500)) * unit,
			FeeBps:              uint16(gofakeit.Number(0, 200)),
			DeadlineTS:          time.Now().Add(time.Duration(gofakeit.Number(1, 30)) * 24 * time.Hour).Unix(),
			GracePeriodSecs:     3600,
			MaxTradeUsdcFP:      250 * unit,
			MaxPositionSharesFP: 5_000 * unit,
			Title:               gofakeit.Sentence(6),
			Description:         gofakeit.Paragraph(1, 3, 12, " "),
		})
		if err != nil {
			log.Fatalf("create market: %v", err)
		}
		if _, err := svc.SeedLiquidity(ctx, owner.name, m.Key, owner.account, m.BFP); err != nil {
			log.Fatalf("seed liquidity: %v", err)
		}
		keys = append(keys, m.Key)
		fmt.Printf("market %s: %s\n", m.Key[:12], m.Title)
	}

	var ok, rejected int
	for i := 0; i < *trades; i++ {
		t := crowd[rand.Intn(len(crowd))]
		key := keys[rand.Intn(len(keys))]
		side := models.SideHit
		if gofakeit.Bool() {
			side = models.SideMiss
		}

		if pos, err := svc.GetPosition(ctx, key, t.name); err == nil && pos.Shares(side) > 0 && rand.Intn(4) == 0 {
			_, err = svc.Sell(ctx, t.name, key, service.SellInput{
				Side:       side,
				SharesInFP: pos.Shares(side) / 2,
				AccountID:  t.account,
			})
			if err != nil {
				rejected++
				continue
			}
			ok++
			continue
		}

		amount := int64(gofakeit.Number(1, 100)) * unit
		if _, err := svc.Buy(ctx, t.name, key, service.BuyInput{
			Side:      side,
			UsdcInFP:  amount,
			AccountID: t.account,
		}); err != nil {
			rejected++
			continue
		}
		ok++
	}

	for _, key := range keys {
		view, err := svc.GetMarketView(ctx, key)
		if err != nil {
			log.Fatalf("market view: %v", err)
		}
		fmt.Printf("market %s: p(hit)=%.3f q_hit=%s q_miss=%s\n", key[:12], view.State.PriceHit,
			fixedpoint.Format(view.Market.QHitFP), fixedpoint.Format(view.Market.QMissFP))
	}
	fmt.Printf("trades: %d executed, %d rejected\n", ok, rejected)
}
