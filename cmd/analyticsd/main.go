// Command analyticsd runs the block-chainstate analytics pipeline end to
// end: it opens (or creates) the companion databases, state snapshot, and
// dataset collection under the configured roots, then drives the parser
// forward from the last checkpoint to the node's safety-gated tip, per
// spec.md §1's "continuously-running service" framing.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/containerman17/btc-chainstate-analytics/internal/blockreader"
	"github.com/containerman17/btc-chainstate-analytics/internal/companiondb"
	"github.com/containerman17/btc-chainstate-analytics/internal/dataset"
	"github.com/containerman17/btc-chainstate-analytics/internal/dataset/blockmetadata"
	"github.com/containerman17/btc-chainstate-analytics/internal/dataset/coinblocks"
	"github.com/containerman17/btc-chainstate-analytics/internal/dataset/coindays"
	cohortds "github.com/containerman17/btc-chainstate-analytics/internal/dataset/cohort"
	"github.com/containerman17/btc-chainstate-analytics/internal/dataset/cointime"
	"github.com/containerman17/btc-chainstate-analytics/internal/dataset/datemetadata"
	"github.com/containerman17/btc-chainstate-analytics/internal/dataset/mining"
	"github.com/containerman17/btc-chainstate-analytics/internal/dataset/price"
	"github.com/containerman17/btc-chainstate-analytics/internal/dataset/transaction"
	"github.com/containerman17/btc-chainstate-analytics/internal/driver"
	"github.com/containerman17/btc-chainstate-analytics/internal/pricefeed"
	"github.com/containerman17/btc-chainstate-analytics/internal/state"
)

func main() {
	_ = godotenv.Load() // Load .env if present

	nodePath := os.Getenv("NODE_BLOCKS_DIR")
	if nodePath == "" {
		log.Fatal("NODE_BLOCKS_DIR environment variable is required")
	}
	priceFeedURL := os.Getenv("PRICE_FEED_URL")
	if priceFeedURL == "" {
		log.Fatal("PRICE_FEED_URL environment variable is required")
	}

	cfg := driver.DefaultConfig()
	cfg.DatasetsRoot = getEnvOrDefault("DATASETS_ROOT", cfg.DatasetsRoot)
	cfg.DatabasesRoot = getEnvOrDefault("DATABASES_ROOT", cfg.DatabasesRoot)
	cfg.StatesRoot = getEnvOrDefault("STATES_ROOT", cfg.StatesRoot)
	cfg.SafetyDepth = uint32(getEnvIntOrDefault("SAFETY_DEPTH", int(cfg.SafetyDepth)))
	cfg.CheckpointTailBlocks = uint32(getEnvIntOrDefault("CHECKPOINT_TAIL_BLOCKS", int(cfg.CheckpointTailBlocks)))
	cfg.PriceSymbol = getEnvOrDefault("PRICE_SYMBOL", cfg.PriceSymbol)

	metricsAddr := getEnvOrDefault("METRICS_ADDR", ":9300")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Printf("shutting down")
		cancel()
	}()

	reader, err := blockreader.OpenNodeStore(nodePath)
	if err != nil {
		log.Fatalf("open node block store: %v", err)
	}

	dbs, err := companiondb.Open(cfg.DatabasesRoot)
	if err != nil {
		log.Fatalf("open companion databases: %v", err)
	}
	defer dbs.Close()

	st, _, err := state.Import(cfg.StatesRoot)
	if err != nil {
		log.Fatalf("import state snapshot: %v", err)
	}

	blockMeta := blockmetadata.New(cfg.DatasetsRoot, cfg.SafetyDepth)
	dateMeta := datemetadata.New(cfg.DatasetsRoot)
	miningDS := mining.New(cfg.DatasetsRoot, cfg.SafetyDepth)
	coinblocksDS := coinblocks.New(cfg.DatasetsRoot, cfg.SafetyDepth)
	coindaysDS := coindays.New(cfg.DatasetsRoot, cfg.SafetyDepth)
	cointimeDS := cointime.New(cfg.DatasetsRoot, cfg.SafetyDepth)
	transactionDS := transaction.New(cfg.DatasetsRoot, cfg.SafetyDepth)
	priceDS := price.New(cfg.DatasetsRoot, cfg.PriceSymbol, pricefeed.NewHTTPFeed(priceFeedURL), cfg.SafetyDepth)
	utxoCohorts := cohortds.NewUTXO(cfg.DatasetsRoot, cfg.SafetyDepth)
	addressCohorts := cohortds.NewAddress(cfg.DatasetsRoot, cfg.SafetyDepth)

	sets := dataset.Collection{
		blockMeta, dateMeta, miningDS, coinblocksDS, coindaysDS, cointimeDS,
		transactionDS, priceDS, utxoCohorts, addressCohorts,
	}

	driver.StartMetricsServer(metricsAddr)

	drv := driver.New(cfg, reader, dbs, st, sets, dateMeta, priceDS)
	if err := drv.Run(ctx); err != nil {
		log.Fatalf("run: %v", err)
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}
