package blockreader

import "encoding/json"

// encodeBlock/decodeBlock and encodeOutput/decodeOutput store Block and
// Output as plain encoding/json, the way
// indexers/pcx/indexers/utxos/store.go serializes StoredUTXO.
func encodeBlock(b Block) ([]byte, error) { return json.Marshal(b) }

func decodeBlock(data []byte, out *Block) error { return json.Unmarshal(data, out) }

func encodeOutput(o Output) ([]byte, error) { return json.Marshal(o) }

func decodeOutput(data []byte, out *Output) error { return json.Unmarshal(data, out) }
