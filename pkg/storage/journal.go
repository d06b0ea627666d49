package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"

	"github.com/openoutcry/pit/pkg/exchange/book"
)

// TradeRecord is one journaled fill. Addresses are stored as strings so
// the records stay readable with plain pebble tooling.
type TradeRecord struct {
	Seq       int64   `json:"seq"`
	Taker     string  `json:"taker"`
	Maker     string  `json:"maker"`
	OrderID   int64   `json:"order_id"`
	Qty       int64   `json:"qty"`
	Price     float64 `json:"price"`
	Kind      string  `json:"kind"`
	Timestamp int64   `json:"ts"` // Unix milliseconds
}

var fillPrefix = []byte("fill/")

// Journal is a Pebble-backed append-only tape of executions. It is an
// audit trail for the status API, not a recovery mechanism: engine state
// is never restored from it.
type Journal struct {
	mu  sync.Mutex
	db  *pebble.DB
	seq int64
}

// OpenJournal opens (or creates) the tape and resumes the sequence number
// from the last record.
func OpenJournal(path string) (*Journal, error) {
	db, err := pebble.Open(path, &pebble.Options{
		Cache:        pebble.NewCache(16 << 20),
		MemTableSize: 8 << 20,
	})
	if err != nil {
		return nil, fmt.Errorf("open journal at %s: %w", path, err)
	}

	j := &Journal{db: db}

	iter, err := db.NewIter(&pebble.IterOptions{
		LowerBound: fillPrefix,
		UpperBound: keyUpperBound(fillPrefix),
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("journal iter: %w", err)
	}
	if iter.Last() && iter.Valid() {
		var rec TradeRecord
		if err := json.Unmarshal(iter.Value(), &rec); err == nil {
			j.seq = rec.Seq + 1
		}
	}
	if err := iter.Close(); err != nil {
		db.Close()
		return nil, err
	}

	return j, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

// Append journals one fill. NoSync: losing the tail of the tape on a
// crash is acceptable, slowing the matching path is not.
func (j *Journal) Append(f book.Fill) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	rec := TradeRecord{
		Seq:       j.seq,
		Taker:     f.Taker.String(),
		Maker:     f.Maker.String(),
		OrderID:   f.OrderID,
		Qty:       f.Qty,
		Price:     f.Price,
		Kind:      f.Kind,
		Timestamp: time.Now().UnixMilli(),
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal trade record: %w", err)
	}

	if err := j.db.Set(fillKey(rec.Seq), data, pebble.NoSync); err != nil {
		return fmt.Errorf("append trade record: %w", err)
	}
	j.seq++
	return nil
}

// Recent returns up to limit records, newest first.
func (j *Journal) Recent(limit int) ([]TradeRecord, error) {
	iter, err := j.db.NewIter(&pebble.IterOptions{
		LowerBound: fillPrefix,
		UpperBound: keyUpperBound(fillPrefix),
	})
	if err != nil {
		return nil, fmt.Errorf("journal iter: %w", err)
	}
	defer iter.Close()

	var out []TradeRecord
	for iter.Last(); iter.Valid() && len(out) < limit; iter.Prev() {
		var rec TradeRecord
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			continue // skip invalid entries
		}
		out = append(out, rec)
	}
	return out, nil
}

// fillKey orders records by sequence number: big-endian so byte order
// matches numeric order.
func fillKey(seq int64) []byte {
	key := make([]byte, len(fillPrefix)+8)
	copy(key, fillPrefix)
	binary.BigEndian.PutUint64(key[len(fillPrefix):], uint64(seq))
	return key
}

func keyUpperBound(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
