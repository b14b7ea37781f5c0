package telemetry

import (
	"log"
	"sync"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api"
)

// Writer wraps the async WriteAPI and tracks the last write error for
// /healthz and /readyz.
type Writer struct {
	api     api.WriteAPI
	mu      sync.RWMutex
	lastErr time.Time
	counts  map[string]int64
}

// NewWriter starts the listener for Influx's async write errors.
func NewWriter(w api.WriteAPI) *Writer {
	ww := &Writer{
		api:     w,
		lastErr: time.Now().Add(-24 * time.Hour), // "long ago" until proven otherwise
		counts:  make(map[string]int64),
	}
	go func() {
		for err := range w.Errors() {
			if err != nil {
				ww.mu.Lock()
				ww.lastErr = time.Now()
				ww.mu.Unlock()
				log.Printf("influx write error: %v", err)
			}
		}
	}()
	return ww
}

// LastErrorAge returns how long the writer has been error-free.
func (w *Writer) LastErrorAge() time.Duration {
	if w == nil {
		return 99999 * time.Hour
	}
	w.mu.RLock()
	t := w.lastErr
	w.mu.RUnlock()
	return time.Since(t)
}

// MarkIngest bumps a per-measurement ingest counter (debug aid).
func (w *Writer) MarkIngest(measurement string) {
	if w == nil {
		return
	}
	w.mu.Lock()
	w.counts[measurement]++
	w.mu.Unlock()
}

// Count reads the ingest counter for one measurement.
func (w *Writer) Count(measurement string) int64 {
	if w == nil {
		return 0
	}
	w.mu.RLock()
	c := w.counts[measurement]
	w.mu.RUnlock()
	return c
}
