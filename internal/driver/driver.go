package driver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/containerman17/btc-chainstate-analytics/internal/blockreader"
	"github.com/containerman17/btc-chainstate-analytics/internal/companiondb"
	"github.com/containerman17/btc-chainstate-analytics/internal/dataset"
	"github.com/containerman17/btc-chainstate-analytics/internal/dataset/datemetadata"
	"github.com/containerman17/btc-chainstate-analytics/internal/dataset/price"
	"github.com/containerman17/btc-chainstate-analytics/internal/mapstore"
	"github.com/containerman17/btc-chainstate-analytics/internal/parser"
	"github.com/containerman17/btc-chainstate-analytics/internal/perr"
	"github.com/containerman17/btc-chainstate-analytics/internal/state"
)

// Driver owns the block walk: reading from the node via blockreader.Reader,
// advancing parser.ParseBlock one block at a time, fanning the result out to
// every dataset, and flushing checkpoints on the cadence spec.md §4.5 names.
type Driver struct {
	cfg    Config
	reader blockreader.Reader
	dbs    *companiondb.Databases
	state  *state.State
	sets   dataset.Collection

	dateMeta *datemetadata.Dataset
	price    *price.Dataset
}

// New wires a Driver from its already-open collaborators. The caller builds
// sets in the fixed topological order Compute depends on (spec.md §9):
// block_metadata, date_metadata, mining, coinblocks, coindays, cointime,
// transaction, price, then the two cohort families.
func New(cfg Config, reader blockreader.Reader, dbs *companiondb.Databases, st *state.State, sets dataset.Collection, dateMeta *datemetadata.Dataset, priceDS *price.Dataset) *Driver {
	return &Driver{cfg: cfg, reader: reader, dbs: dbs, state: st, sets: sets, dateMeta: dateMeta, price: priceDS}
}

// Run iterates from the resume height through the node's safety-gated tip,
// checkpointing on the cadence spec.md §4.5 describes, until the context is
// cancelled or the reader's stream is exhausted.
func (d *Driver) Run(ctx context.Context) error {
	for {
		height, err := d.resumeHeight(ctx)
		if err != nil {
			if errIsStale(err) {
				if err := d.resetAll(ctx); err != nil {
					return fmt.Errorf("reset after stale resume: %w", err)
				}
				continue
			}
			return err
		}
		return d.runFrom(ctx, height)
	}
}

func errIsStale(err error) bool {
	return errors.Is(err, perr.ErrStateStale)
}

// resumeHeight computes the height to resume from: the minimum
// FirstUnsafeHeight across every dataset (0 if none persisted yet), then
// checks it against the in-memory state snapshot's date history per spec.md
// §4.6 — if the snapshot implies blocks the datasets never saw, the state is
// stale and must be rebuilt from height 0.
//
// FirstUnsafeHeight is already rewound by the safety gate
// (heightmap.go: firstUnsafe = lastPersisted - (safetyDepth-1)), so it is
// *not* the right-hand side of the staleness check — on every healthy
// resume the snapshot's last block sits at lastPersisted, safetyDepth-1
// heights ahead of FirstUnsafeHeight, which would always look stale. The
// original's get_min_last_height undoes that rewind before comparing.
func (d *Driver) resumeHeight(ctx context.Context) (uint32, error) {
	mis := d.sets.MinInitialState()
	var height uint32
	if mis.FirstUnsafeHeight != nil {
		height = *mis.FirstUnsafeHeight
	}

	if lastDate, ok := d.state.DateData.LastDate(); ok {
		last := d.state.DateData[len(d.state.DateData)-1]
		nextDayFirstHeight := last.LastHeight() + 1

		if mis.FirstUnsafeHeight == nil {
			return 0, fmt.Errorf("state snapshot has date history through %s but no dataset has persisted anything: %w",
				lastDate, perr.ErrStateStale)
		}
		minLastPersisted := *mis.FirstUnsafeHeight + safetyGap(d.cfg.SafetyDepth)
		if nextDayFirstHeight > minLastPersisted+1 {
			return 0, fmt.Errorf("%s resumed at %d (datasets last persisted %d) but state snapshot's last closed date %s implies height %d: %w",
				d.dateMeta.Name(), height, minLastPersisted, lastDate, nextDayFirstHeight, perr.ErrStateStale)
		}
	}

	return height, nil
}

// safetyGap reverses a HeightMap's firstUnsafe rewind (safetyDepth-1) to
// recover the last-persisted height the rewound FirstUnsafeHeight came from.
func safetyGap(safetyDepth uint32) uint32 {
	if safetyDepth == 0 {
		return 0
	}
	return safetyDepth - 1
}

// resetAll wipes the in-memory state, companion databases, and every
// dataset's on-disk maps, then restarts the run from height 0 — the
// response spec.md §4.6 prescribes for a stale resume.
func (d *Driver) resetAll(ctx context.Context) error {
	d.state.Reset()
	if err := d.dbs.Reset(ctx, true); err != nil {
		return err
	}
	return d.sets.Clean()
}

// runFrom drives the block walk of original_source/src/iter_blocks.rs as a
// single loop over the block stream that tracks the date currently open,
// rather than separate date and block loops. A one-block lookahead buffer
// is used to detect the date boundary before the boundary block itself is
// processed.
func (d *Driver) runFrom(ctx context.Context, startHeight uint32) error {
	tip, err := d.reader.BlockCount(ctx)
	if err != nil {
		return fmt.Errorf("read node block count: %w", err)
	}
	if tip <= blockreader.NumberOfUnsafeBlocks {
		return nil
	}
	safeTip := tip - d.cfg.SafetyDepth
	if startHeight >= safeTip {
		return nil
	}

	blocks, errc := d.reader.IterBlocks(ctx, startHeight, safeTip-startHeight)

	var (
		pending   *blockreader.Block
		pendingOK bool
		openDate  mapstore.Date
		dateFirst uint32
		haveOpen  bool
	)

	openDateFor := func(b blockreader.Block) {
		openDate = mapstore.DateFromTime(b.Time)
		dateFirst = b.Height
		haveOpen = true
	}

	process := func(cur blockreader.Block, isDateLastBlock bool) error {
		if !haveOpen || !mapstore.DateFromTime(cur.Time).Equal(openDate) {
			openDateFor(cur)
		}

		datePrice, err := d.price.Close(ctx, openDate)
		if err != nil {
			return fmt.Errorf("resolve price for %s: %w", openDate, err)
		}

		addrMis := d.sets.MinInitialState()
		computeAddresses := addrMis.FirstUnsafeHeight == nil || cur.Height >= *addrMis.FirstUnsafeHeight

		in := parser.Input{
			Ctx:              ctx,
			Reader:           d.reader,
			Block:            cur,
			State:            d.state,
			DBs:              d.dbs,
			Date:             openDate,
			DateFirstHeight:  dateFirst,
			IsDateLastBlock:  isDateLastBlock,
			BlockPrice:       datePrice,
			DatePrice:        datePrice,
			ComputeAddresses: computeAddresses,
		}

		pbd, err := parser.ParseBlock(in)
		if err != nil {
			return fmt.Errorf("parse block %d: %w", cur.Height, err)
		}

		d.sets.InsertBlockData(pbd)
		d.state.DateData.Push(openDate, state.BlockSummary{Height: cur.Height, Timestamp: cur.Time})
		currentHeight.Set(float64(cur.Height))
		blocksProcessedTotal.Inc()

		if isDateLastBlock {
			last := d.state.DateData[len(d.state.DateData)-1]
			d.sets.InsertDateData(&parser.ProcessedDateData{
				Date:        openDate,
				FirstHeight: last.FirstHeight(),
				LastHeight:  last.LastHeight(),
				BlockCount:  len(last.Blocks),
			})
			haveOpen = false

			if d.shouldCheckpoint(openDate, cur.Height, safeTip) {
				if err := d.checkpoint(ctx); err != nil {
					return err
				}
			}
		}
		return nil
	}

	for b := range blocks {
		b := b
		if !pendingOK {
			pending, pendingOK = &b, true
			continue
		}

		curDate := mapstore.DateFromTime(pending.Time)
		nextDate := mapstore.DateFromTime(b.Time)
		if err := process(*pending, !curDate.Equal(nextDate)); err != nil {
			return err
		}
		pending = &b
	}
	if pendingOK {
		if err := process(*pending, true); err != nil {
			return err
		}
	}

	if err := <-errc; err != nil {
		return fmt.Errorf("iterate blocks: %w", err)
	}

	return d.checkpoint(ctx)
}

// shouldCheckpoint implements spec.md §4.5's cadence: flush on a month
// boundary (the date just closed rolls into a new month) or once fewer than
// CheckpointTailBlocks remain before the safety-gated tip.
func (d *Driver) shouldCheckpoint(closedDate mapstore.Date, closedHeight, safeTip uint32) bool {
	if closedDate.AddDays(1).IsFirstOfMonth() {
		return true
	}
	return safeTip-closedHeight <= d.cfg.CheckpointTailBlocks
}

// checkpoint runs every dataset's Compute phase (sequential, fixed order),
// then flushes companion databases, dataset maps, and the state snapshot
// concurrently, and writes the paths.json manifest, per spec.md §5/§6.
func (d *Driver) checkpoint(ctx context.Context) error {
	start := time.Now()
	defer func() { checkpointDurationSeconds.Observe(time.Since(start).Seconds()) }()

	view := &dataset.ExportData{
		DateRanges:  d.dateMeta.Ranges(),
		PriceHeight: d.price.HeightClose,
	}
	d.sets.Compute(view)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return d.dbs.Export(gctx) })
	g.Go(func() error { return d.sets.Export(gctx) })
	g.Go(func() error { return d.state.Export(d.cfg.StatesRoot) })
	if err := g.Wait(); err != nil {
		return fmt.Errorf("checkpoint export: %w", err)
	}

	if err := writeManifest(d.cfg.DatasetsRoot, d.sets.Manifest()); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	checkpointsTotal.Inc()
	return nil
}
