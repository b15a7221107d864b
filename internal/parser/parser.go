package parser

import (
	"context"
	"fmt"

	"github.com/containerman17/btc-chainstate-analytics/internal/address"
	"github.com/containerman17/btc-chainstate-analytics/internal/blockreader"
	"github.com/containerman17/btc-chainstate-analytics/internal/cohort"
	"github.com/containerman17/btc-chainstate-analytics/internal/companiondb"
	"github.com/containerman17/btc-chainstate-analytics/internal/mapstore"
	"github.com/containerman17/btc-chainstate-analytics/internal/perr"
	"github.com/containerman17/btc-chainstate-analytics/internal/state"
)

// Input bundles everything ParseBlock needs for one block: the block
// itself, read-only access to the reader (to resolve prior outputs),
// mutable access to state and the companion databases, and the flags the
// driver computed for this position in the iteration.
type Input struct {
	Ctx context.Context

	Reader blockreader.Reader
	Block  blockreader.Block

	State *state.State
	DBs   *companiondb.Databases

	Date            mapstore.Date
	DateFirstHeight uint32
	IsDateLastBlock bool

	BlockPrice float64
	DatePrice  float64

	// ComputeAddresses, when false, skips address and address-cohort
	// bookkeeping (spec.md §4.3's compute_addresses flag). The driver sets
	// it false only when every dataset in its collection has already
	// advanced past this height, saving those updates on a pure-resume
	// replay.
	ComputeAddresses bool
}

// ParseBlock is the single-threaded per-block state-transition function.
// It mutates in.State and in.DBs in place and returns the accumulations
// every dataset needs for this height. No goroutines run inside it — the
// parser advances one height at a time and every mutation is serialized by
// the driver's calling loop (spec.md §4.3/§5).
func ParseBlock(in Input) (*ProcessedBlockData, error) {
	st := in.State
	height := in.Block.Height

	pbd := &ProcessedBlockData{
		Height:                            height,
		Timestamp:                         in.Block.Time,
		Date:                              in.Date,
		DateFirstHeight:                   in.DateFirstHeight,
		IsDateLastBlock:                   in.IsDateLastBlock,
		BlockPrice:                        in.BlockPrice,
		DatePrice:                         in.DatePrice,
		TransactionCount:                  len(in.Block.Transactions),
		SpentByPath:                       make(map[state.BlockPath]SpentData),
		ReceivedByPath:                    make(map[state.BlockPath]ReceivedData),
		AddressIndexToRealizedData:        make(map[uint32]AddressRealizedData),
		AddressIndexToRemovedAddressData:  make(map[uint32]state.AddressData),
		UTXOCohortBlockStats:              make(map[cohort.ID]state.CohortBlockStats, len(st.Cohorts.UTXORunning)),
		AddressCohortBlockStats:           make(map[cohort.ID]state.CohortBlockStats, len(st.Cohorts.AddressRunning)),
	}

	for txPos, tx := range in.Block.Transactions {
		path := state.BlockPath{Height: height, TxPosition: uint32(txPos)}

		txIndex, err := in.DBs.Transactions.GetOrCreate(tx.Txid)
		if err != nil {
			return nil, fmt.Errorf("register tx index at %v: %w", path, err)
		}

		var inputSats uint64
		if !tx.Coinbase {
			for _, txin := range tx.Inputs {
				spentSats, err := spendInput(in, pbd, path, txin)
				if err != nil {
					return nil, err
				}
				inputSats += spentSats
			}
		}

		var outputSats uint64
		firstTxoutIndex := st.NextTxoutIndex
		unspentCount := uint32(0)

		for vout, out := range tx.Outputs {
			outputSats += out.Sats
			if err := receiveOutput(in, pbd, path, firstTxoutIndex, uint32(vout), out); err != nil {
				return nil, err
			}
			unspentCount++
		}

		if unspentCount > 0 {
			st.Txs[txIndex] = &state.TxData{
				Path:            path,
				FirstTxoutIndex: firstTxoutIndex,
				OutputCount:     uint32(len(tx.Outputs)),
				UnspentCount:    unspentCount,
			}
		}

		if tx.Coinbase {
			pbd.Coinbase = outputSats
		} else {
			if outputSats > inputSats {
				return nil, fmt.Errorf("%w: tx %x outputs exceed inputs", perr.ErrInvariantViolation, tx.Txid)
			}
			pbd.Fees = append(pbd.Fees, inputSats-outputSats)
		}

		pbd.SatsSent += inputSats
	}

	for _, spent := range pbd.SpentByPath {
		pbd.SatBlocksDestroyed += spent.CoinblocksDestroyed
		pbd.SatDaysDestroyed += spent.CoindaysDestroyed
	}

	pbd.UTXOCohortSnapshot = make(map[cohort.ID]state.CohortRunningState, len(st.Cohorts.UTXORunning))
	for id, running := range st.Cohorts.UTXORunning {
		pbd.UTXOCohortSnapshot[id] = *running
	}
	pbd.AddressCohortSnapshot = make(map[cohort.ID]state.CohortRunningState, len(st.Cohorts.AddressRunning))
	for id, running := range st.Cohorts.AddressRunning {
		pbd.AddressCohortSnapshot[id] = *running
	}

	return pbd, nil
}

// spendInput resolves a single input to the output it spends, removes
// that output from state, and (when address bookkeeping is enabled)
// updates the owning address's realized P/L and cohort memberships.
func spendInput(in Input, pbd *ProcessedBlockData, path state.BlockPath, txin blockreader.Input) (uint64, error) {
	st := in.State

	prevTxIndex, ok, err := in.DBs.Transactions.Lookup(txin.PrevTxid)
	if err != nil {
		return 0, fmt.Errorf("lookup prev tx index: %w", err)
	}
	if !ok {
		return 0, fmt.Errorf("%w: spend of unindexed tx %x", perr.ErrInvariantViolation, txin.PrevTxid)
	}

	prevTx, ok := st.Txs[prevTxIndex]
	if !ok {
		return 0, fmt.Errorf("%w: spend of tx %x with no live TxData", perr.ErrInvariantViolation, txin.PrevTxid)
	}

	txoutIndex := prevTx.FirstTxoutIndex + uint64(txin.Vout)
	txout, ok := st.Txouts[txoutIndex]
	if !ok {
		return 0, fmt.Errorf("%w: spend of already-spent output %x:%d", perr.ErrInvariantViolation, txin.PrevTxid, txin.Vout)
	}

	delete(st.Txouts, txoutIndex)
	if empty := prevTx.Spend(); empty {
		delete(st.Txs, prevTxIndex)
	}

	ageDays := state.AgeDays(txout.ProducingTime, in.Block.Time)
	coinblocks := txout.Sats * uint64(in.Block.Height-txout.ProducingHeight)
	coindays := txout.Sats * uint64(ageDays)

	spent := pbd.SpentByPath[path]
	spent.Sats += txout.Sats
	spent.CoinblocksDestroyed += coinblocks
	spent.CoindaysDestroyed += coindays
	pbd.SpentByPath[path] = spent

	if in.ComputeAddresses && txout.HasAddress {
		if err := applySpendToAddress(in, pbd, txout); err != nil {
			return 0, err
		}
	}
	ageID := cohort.ID{Dimension: cohort.DimensionAge, Age: cohort.ClassifyAge(ageDays)}
	removeCohort(st.Cohorts.UTXORunning, ageID, txout.Sats)
	removeCohort(st.Cohorts.UTXORunning, state.AllID, txout.Sats)
	recordSpendStat(pbd.UTXOCohortBlockStats, ageID, txout.Sats)
	recordSpendStat(pbd.UTXOCohortBlockStats, state.AllID, txout.Sats)

	utxoProfit, utxoLoss := realizedPL(txout.Sats, txout.AcquisitionPrice, in.BlockPrice)
	recordRealizedStat(pbd.UTXOCohortBlockStats, ageID, utxoProfit, utxoLoss)
	recordRealizedStat(pbd.UTXOCohortBlockStats, state.AllID, utxoProfit, utxoLoss)

	return txout.Sats, nil
}

// realizedPL returns the profit/loss realized by spending sats acquired at
// acquisitionPrice when the current block's price is blockPrice.
func realizedPL(sats uint64, acquisitionPrice, blockPrice float64) (profit, loss float64) {
	delta := state.Btc(sats) * (blockPrice - acquisitionPrice)
	if delta >= 0 {
		return delta, 0
	}
	return 0, -delta
}

func applySpendToAddress(in Input, pbd *ProcessedBlockData, txout *state.TxoutValue) error {
	st := in.State

	addr, ok := st.Addresses[txout.AddressIndex]
	if !ok {
		return fmt.Errorf("%w: spend from address %d with no live AddressData", perr.ErrInvariantViolation, txout.AddressIndex)
	}

	profit, loss := addr.ApplySpend(txout.Sats, in.BlockPrice)
	realized := pbd.AddressIndexToRealizedData[txout.AddressIndex]
	realized.RealizedProfitUSD += profit
	realized.RealizedLossUSD += loss
	pbd.AddressIndexToRealizedData[txout.AddressIndex] = realized

	sizeID := cohort.ID{Dimension: cohort.DimensionSize, Size: addr.SizeCohort}
	removeCohort(st.Cohorts.AddressRunning, sizeID, txout.Sats)
	removeCohort(st.Cohorts.AddressRunning, state.AllID, txout.Sats)
	recordRealizedStat(pbd.AddressCohortBlockStats, sizeID, profit, loss)
	recordRealizedStat(pbd.AddressCohortBlockStats, state.AllID, profit, loss)

	if addr.IsEmpty() {
		pbd.AddressIndexToRemovedAddressData[txout.AddressIndex] = *addr
		delete(st.Addresses, txout.AddressIndex)
		if err := in.DBs.EmptyAddrs.Put(txout.AddressIndex, companiondb.EmptyAddressSummary{
			FirstReceivedHeight: addr.FirstReceivedHeight,
			EmptiedHeight:       in.Block.Height,
		}); err != nil {
			return fmt.Errorf("migrate address %d to empty table: %w", txout.AddressIndex, err)
		}
	}
	return nil
}

func receiveOutput(in Input, pbd *ProcessedBlockData, path state.BlockPath, firstTxoutIndex uint64, vout uint32, out blockreader.Output) error {
	st := in.State
	txoutIndex := firstTxoutIndex + uint64(vout)
	st.NextTxoutIndex = txoutIndex + 1

	addrStr, hasAddr := address.Format(out.Raw)

	txout := &state.TxoutValue{
		Sats:             out.Sats,
		ProducingHeight:  in.Block.Height,
		ProducingTime:    in.Block.Time,
		AcquisitionPrice: in.BlockPrice,
	}

	if hasAddr {
		addrIndex, err := in.DBs.Addresses.GetOrCreate(addrStr)
		if err != nil {
			return fmt.Errorf("assign address index for output %d: %w", vout, err)
		}
		txout.AddressIndex = addrIndex
		txout.HasAddress = true
	}

	st.Txouts[txoutIndex] = txout

	recv := pbd.ReceivedByPath[path]
	recv.Sats += out.Sats
	pbd.ReceivedByPath[path] = recv

	if in.ComputeAddresses && hasAddr {
		if err := applyReceiveToAddress(in, pbd, txout, out.Raw.Type); err != nil {
			return err
		}
	}
	ageID := cohort.ID{Dimension: cohort.DimensionAge, Age: cohort.AgeUpTo1Day}
	addCohort(st.Cohorts.UTXORunning, ageID, txout.Sats, txout.AcquisitionPrice)
	addCohort(st.Cohorts.UTXORunning, state.AllID, txout.Sats, txout.AcquisitionPrice)
	recordReceiveStat(pbd.UTXOCohortBlockStats, ageID, txout.Sats)
	recordReceiveStat(pbd.UTXOCohortBlockStats, state.AllID, txout.Sats)

	return nil
}

func applyReceiveToAddress(in Input, pbd *ProcessedBlockData, txout *state.TxoutValue, rawType address.RawType) error {
	st := in.State

	addr, ok := st.Addresses[txout.AddressIndex]
	if !ok {
		if summary, found, err := in.DBs.EmptyAddrs.Get(txout.AddressIndex); err != nil {
			return fmt.Errorf("check empty-address table for %d: %w", txout.AddressIndex, err)
		} else if found {
			if err := in.DBs.EmptyAddrs.Delete(txout.AddressIndex); err != nil {
				return fmt.Errorf("remove address %d from empty table: %w", txout.AddressIndex, err)
			}
			addr = &state.AddressData{Index: txout.AddressIndex, RawType: rawType, FirstReceivedHeight: summary.FirstReceivedHeight}
		} else {
			addr = &state.AddressData{Index: txout.AddressIndex, RawType: rawType}
		}
		st.Addresses[txout.AddressIndex] = addr
	}

	addr.ApplyReceive(txout.Sats, in.BlockPrice, in.Block.Height)

	sizeID := cohort.ID{Dimension: cohort.DimensionSize, Size: addr.SizeCohort}
	addCohort(st.Cohorts.AddressRunning, sizeID, txout.Sats, txout.AcquisitionPrice)
	addCohort(st.Cohorts.AddressRunning, state.AllID, txout.Sats, txout.AcquisitionPrice)
	recordReceiveStat(pbd.AddressCohortBlockStats, sizeID, txout.Sats)
	recordReceiveStat(pbd.AddressCohortBlockStats, state.AllID, txout.Sats)
	return nil
}

func addCohort(running map[cohort.ID]*state.CohortRunningState, id cohort.ID, sats uint64, price float64) {
	r, ok := running[id]
	if !ok {
		r = &state.CohortRunningState{}
		running[id] = r
	}
	r.Add(sats, price)
}

// removeCohort removes sats from a running cohort state, pulling out a
// proportional share of the accumulated cost basis rather than requiring
// per-UTXO cost-basis attribution — an acceptable approximation since
// every unit entering a cohort carries its own acquisition price and
// cohorts are large aggregates.
func removeCohort(running map[cohort.ID]*state.CohortRunningState, id cohort.ID, sats uint64) {
	r, ok := running[id]
	if !ok || r.Supply == 0 {
		return
	}
	share := r.CostBasis * (float64(sats) / float64(r.Supply))
	r.Remove(sats, share)
}

// recordSpendStat folds one spent output into this block's transient
// cohort accumulator as an input.
func recordSpendStat(stats map[cohort.ID]state.CohortBlockStats, id cohort.ID, sats uint64) {
	s := stats[id]
	s.InputCount++
	s.InputVolume += sats
	stats[id] = s
}

// recordReceiveStat folds one newly created output into this block's
// transient cohort accumulator as an output.
func recordReceiveStat(stats map[cohort.ID]state.CohortBlockStats, id cohort.ID, sats uint64) {
	s := stats[id]
	s.OutputCount++
	s.OutputVolume += sats
	stats[id] = s
}

// recordRealizedStat folds the profit/loss realized on one spend into this
// block's transient cohort accumulator.
func recordRealizedStat(stats map[cohort.ID]state.CohortBlockStats, id cohort.ID, profit, loss float64) {
	s := stats[id]
	s.RealizedProfitUSD += profit
	s.RealizedLossUSD += loss
	stats[id] = s
}
