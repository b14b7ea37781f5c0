// Package dedup suppresses QoS1 redeliveries by remembering recently
// processed payload keys for a bounded time.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

type Deduper struct {
	mu   sync.Mutex
	ttl  time.Duration
	max  int
	seen map[string]time.Time
}

func New(ttl time.Duration, max int) *Deduper {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if max <= 0 {
		max = 10000
	}
	return &Deduper{ttl: ttl, max: max, seen: make(map[string]time.Time, max)}
}

// PayloadKey derives a dedup key from a raw payload. A QoS1 redelivery
// carries the same bytes, hence the same key.
func PayloadKey(payload []byte) string {
	h := sha256.Sum256(payload)
	return hex.EncodeToString(h[:])
}

// ShouldProcess reports whether the key is new (or expired) and marks it seen.
func (d *Deduper) ShouldProcess(key string) bool {
	if key == "" {
		return true
	}
	now := time.Now()
	d.mu.Lock()
	defer d.mu.Unlock()
	if exp, ok := d.seen[key]; ok && now.Before(exp) {
		return false
	}
	d.seen[key] = now.Add(d.ttl)
	if len(d.seen) > d.max {
		for k, v := range d.seen {
			if now.After(v) {
				delete(d.seen, k)
			}
			if len(d.seen) <= d.max {
				break
			}
		}
	}
	return true
}
