// Package companiondb implements the three append-mostly pebble-backed
// indices the parser needs but cannot afford to keep fully in memory:
// address -> address-index, address-index -> empty-address-summary, and
// txid -> tx-index.
package companiondb

import (
	"encoding/binary"
	"fmt"
	"log"
	"os"

	"github.com/cockroachdb/pebble/v2"
)

// quietLogger silences pebble's info-level chatter but keeps errors
// visible, the same split db/pebble.go makes in the teacher repo.
type quietLogger struct{}

func (quietLogger) Infof(format string, args ...interface{}) {}
func (quietLogger) Errorf(format string, args ...interface{}) {
	log.Printf("[pebble] "+format, args...)
}
func (quietLogger) Fatalf(format string, args ...interface{}) {
	log.Fatalf("[pebble] "+format, args...)
}

// QuietLogger returns a pebble logger that only surfaces errors.
func QuietLogger() pebble.Logger { return quietLogger{} }

func openDB(dir string) (*pebble.DB, error) {
	db, err := pebble.Open(dir, &pebble.Options{Logger: QuietLogger()})
	if err != nil {
		return nil, fmt.Errorf("open pebble db at %s: %w", dir, err)
	}
	return db, nil
}

func putUint32(batch *pebble.Batch, key []byte, v uint32) error {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return batch.Set(key, b, nil)
}

func getUint32(db *pebble.DB, key []byte) (uint32, bool, error) {
	val, closer, err := db.Get(key)
	if err == pebble.ErrNotFound {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get %q: %w", key, err)
	}
	defer closer.Close()
	if len(val) != 4 {
		return 0, false, fmt.Errorf("corrupt uint32 record at %q", key)
	}
	return binary.BigEndian.Uint32(val), true, nil
}

// resetDir closes nothing (caller owns db lifecycle) but removes every file
// under dir so a fresh pebble.Open starts empty.
func resetDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("reset %s: %w", dir, err)
	}
	return nil
}
