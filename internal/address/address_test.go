package address

import "testing"

func TestFormatAddresslessTypesReturnNotOK(t *testing.T) {
	for _, typ := range []RawType{RawTypeOpReturn, RawTypeEmpty, RawTypeUnknown} {
		if _, ok := Format(Raw{Type: typ}); ok {
			t.Fatalf("%v: expected ok=false for an addressless output type", typ)
		}
	}
}

func TestFormatP2WPKHRoundTripsThroughBech32(t *testing.T) {
	program := make([]byte, 20)
	for i := range program {
		program[i] = byte(i)
	}
	addr, ok := Format(Raw{Type: RawTypeP2WPKH, Payload: program, Version: 0})
	if !ok {
		t.Fatal("expected ok=true for a P2WPKH output")
	}
	if len(addr) == 0 || addr[:3] != "bc1" {
		t.Fatalf("expected a bc1-prefixed mainnet bech32 address, got %q", addr)
	}
}

func TestFormatP2TRUsesBech32m(t *testing.T) {
	program := make([]byte, 32)
	addr, ok := Format(Raw{Type: RawTypeP2TR, Payload: program, Version: 1})
	if !ok {
		t.Fatal("expected ok=true for a P2TR output")
	}
	if len(addr) == 0 || addr[:3] != "bc1" {
		t.Fatalf("expected a bc1-prefixed mainnet bech32m address, got %q", addr)
	}
}

func TestFormatMultisigKeysByScriptHash(t *testing.T) {
	payload := []byte{0xde, 0xad, 0xbe, 0xef}
	addr, ok := Format(Raw{Type: RawTypeMultisig, Payload: payload})
	if !ok {
		t.Fatal("expected ok=true for a multisig output")
	}
	if addr != "multisig:deadbeef" {
		t.Fatalf("expected multisig:deadbeef, got %q", addr)
	}
}
