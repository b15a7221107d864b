// Package address classifies a Bitcoin output script into its textual
// address form and raw type, the input the parser needs before it can hand
// an output to the address companion database. The block reader is an
// external collaborator and already splits scripts into a type tag plus
// payload (see internal/blockreader); this package only owns the textual
// formatting (base58check for legacy types, bech32/bech32m for segwit), the
// bech32 side in the same call shape pchain/client.go's formatBech32 uses
// for its own short-ID addresses.
package address

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcutil/base58"
	"github.com/btcsuite/btcutil/bech32"
)

// RawType names the script pattern an output was classified into by the
// block reader, mirroring the "RawAddress" enum the source parser keys
// cohort membership and dataset segmentation on.
type RawType int

const (
	RawTypeUnknown RawType = iota
	RawTypeP2PKH
	RawTypeP2SH
	RawTypeP2WPKH
	RawTypeP2WSH
	RawTypeP2TR
	RawTypeMultisig
	RawTypeOpReturn
	RawTypeEmpty
)

func (t RawType) String() string {
	switch t {
	case RawTypeP2PKH:
		return "p2pkh"
	case RawTypeP2SH:
		return "p2sh"
	case RawTypeP2WPKH:
		return "p2wpkh"
	case RawTypeP2WSH:
		return "p2wsh"
	case RawTypeP2TR:
		return "p2tr"
	case RawTypeMultisig:
		return "multisig"
	case RawTypeOpReturn:
		return "op_return"
	case RawTypeEmpty:
		return "empty"
	default:
		return "unknown"
	}
}

// mainnetP2PKHVersion / mainnetP2SHVersion are the base58check version bytes
// for legacy address encodings.
const (
	mainnetP2PKHVersion = 0x00
	mainnetP2SHVersion  = 0x05
	mainnetBech32HRP    = "bc"
)

// Raw carries the classification the block reader performs plus the raw
// payload (pubkey hash, script hash, or witness program) needed to derive a
// textual address. It is intentionally the Go mirror of the source
// PartialTxoutData/RawAddress pairing.
type Raw struct {
	Type    RawType
	Payload []byte // pubkey hash / script hash / witness program
	Version byte   // segwit witness version, only meaningful for P2WPKH/P2WSH/P2TR
}

// Format renders a Raw classification into its canonical textual address.
// RawTypeOpReturn/RawTypeEmpty/RawTypeUnknown carry no spendable address and
// return ok=false — the parser treats those outputs as addressless (the
// sats are still tracked as sats_sent but never enter an AddressData
// bucket).
func Format(r Raw) (string, bool) {
	switch r.Type {
	case RawTypeP2PKH:
		return base58CheckEncode(mainnetP2PKHVersion, r.Payload), true
	case RawTypeP2SH:
		return base58CheckEncode(mainnetP2SHVersion, r.Payload), true
	case RawTypeP2WPKH, RawTypeP2WSH, RawTypeP2TR:
		return formatBech32(r.Payload, r.Version, mainnetBech32HRP), true
	case RawTypeMultisig:
		// Bare multisig has no single canonical address; the parser keys it
		// by its script hash instead so it still gets one stable AddressData
		// bucket per distinct script.
		return "multisig:" + hex.EncodeToString(r.Payload), true
	default:
		return "", false
	}
}

// formatBech32 encodes a witness program to bech32 (v0) or bech32m (v1+),
// the same ConvertBits-then-Encode shape pchain/client.go's formatBech32
// uses for its own address family.
func formatBech32(program []byte, version byte, hrp string) string {
	conv, err := bech32.ConvertBits(program, 8, 5, true)
	if err != nil {
		return fmt.Sprintf("%s1invalid", hrp)
	}
	data := append([]byte{version}, conv...)
	if version == 0 {
		encoded, err := bech32.Encode(hrp, data)
		if err != nil {
			return fmt.Sprintf("%s1invalid", hrp)
		}
		return encoded
	}
	encoded, err := bech32.EncodeM(hrp, data)
	if err != nil {
		return fmt.Sprintf("%s1invalid", hrp)
	}
	return encoded
}

func base58CheckEncode(version byte, payload []byte) string {
	return base58.CheckEncode(payload, version)
}
