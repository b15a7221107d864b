package state

import (
	"github.com/containerman17/btc-chainstate-analytics/internal/address"
	"github.com/containerman17/btc-chainstate-analytics/internal/cohort"
)

// AddressData is the in-memory aggregate kept for every address with a
// nonzero balance. An address belongs to exactly one size cohort at a
// time (spec.md §3 "address bucket exclusivity"); age cohorts are tracked
// per-UTXO, not per-address, since a single address can hold coins of
// many different ages.
type AddressData struct {
	Index   uint32
	RawType address.RawType

	Sats    uint64
	TxCount uint32

	// AvgAcquisitionPrice is a sats-weighted moving average of the USD/BTC
	// price paid for every satoshi currently held by this address, updated
	// on every receive and used as the basis for realized P/L on spend.
	AvgAcquisitionPrice float64

	FirstReceivedHeight uint32
	SizeCohort          cohort.SizeCohort
}

const satsPerBTC = 100_000_000

// ApplyReceive folds a newly received output into the address's running
// average acquisition price and bumps its size cohort if the new balance
// crosses a threshold.
func (a *AddressData) ApplyReceive(sats uint64, priceUSDPerBTC float64, height uint32) {
	if a.Sats == 0 {
		if a.FirstReceivedHeight == 0 {
			a.FirstReceivedHeight = height
		}
		a.AvgAcquisitionPrice = priceUSDPerBTC
	} else {
		totalCost := a.AvgAcquisitionPrice*Btc(a.Sats) + priceUSDPerBTC*Btc(sats)
		a.AvgAcquisitionPrice = totalCost / Btc(a.Sats+sats)
	}
	a.Sats += sats
	a.TxCount++
	a.SizeCohort = cohort.ClassifySize(a.Sats)
}

// ApplySpend removes sats from the address's balance, reporting the
// realized profit/loss against its moving-average acquisition price. It
// does not change the average itself — FIFO/average-cost accounting here
// keeps one running average for the whole address rather than tracking
// each contributing output separately, matching the "avg-send/receive
// price" field spec.md §3 names for AddressData.
func (a *AddressData) ApplySpend(sats uint64, priceUSDPerBTC float64) (realizedProfit, realizedLoss float64) {
	if sats > a.Sats {
		panic("state: spend exceeds address balance")
	}
	delta := Btc(sats) * (priceUSDPerBTC - a.AvgAcquisitionPrice)
	a.Sats -= sats
	a.TxCount++
	if a.Sats > 0 {
		a.SizeCohort = cohort.ClassifySize(a.Sats)
	}
	if delta >= 0 {
		return delta, 0
	}
	return 0, -delta
}

// IsEmpty reports whether the address currently holds no balance and
// should migrate to the EmptyAddressData companion table.
func (a *AddressData) IsEmpty() bool { return a.Sats == 0 }

func Btc(sats uint64) float64 { return float64(sats) / satsPerBTC }
