package pathcompressionmetrics

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/paulschiretz/pgl-press/pkg/plog"
)

// Metrics defines the interface for collecting and reporting compression statistics.
type Metrics interface {
	AddEntriesProcessed(n int64)
	AddEntriesSkipped(n int64)
	AddFilesStaged(n int64)
	AddOriginalBytes(n int64)
	AddCompressedBytes(n int64)
	AddCommitted(n int64)
	AddAborted(n int64)
	LogSummary(msg string)
	StartProgress(msg string, interval time.Duration)
	StopProgress()
}

// CompressionMetrics holds the atomic counters for tracking the compression operation's progress.
// It is the concrete implementation of the Metrics interface.
type CompressionMetrics struct {
	EntriesProcessed atomic.Int64
	EntriesSkipped   atomic.Int64
	FilesStaged      atomic.Int64
	OriginalBytes    atomic.Int64
	CompressedBytes  atomic.Int64
	Committed        atomic.Int64
	Aborted          atomic.Int64

	mu       sync.Mutex
	stopChan chan struct{}
}

func (m *CompressionMetrics) AddEntriesProcessed(n int64) { m.EntriesProcessed.Add(n) }
func (m *CompressionMetrics) AddEntriesSkipped(n int64)   { m.EntriesSkipped.Add(n) }
func (m *CompressionMetrics) AddFilesStaged(n int64)      { m.FilesStaged.Add(n) }
func (m *CompressionMetrics) AddOriginalBytes(n int64)    { m.OriginalBytes.Add(n) }
func (m *CompressionMetrics) AddCompressedBytes(n int64)  { m.CompressedBytes.Add(n) }
func (m *CompressionMetrics) AddCommitted(n int64)        { m.Committed.Add(n) }
func (m *CompressionMetrics) AddAborted(n int64)          { m.Aborted.Add(n) }

// StartProgress logs a summary every interval until StopProgress is called.
// Calling it while progress is already running is a no-op.
func (m *CompressionMetrics) StartProgress(msg string, interval time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopChan != nil {
		return
	}
	stop := make(chan struct{})
	m.stopChan = stop
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.LogSummary(msg)
			case <-stop:
				return
			}
		}
	}()
}

func (m *CompressionMetrics) StopProgress() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopChan != nil {
		close(m.stopChan)
		m.stopChan = nil
	}
}

// LogSummary logs the current state of the metrics.
// This can be called by a background ticker or at the end of the run.
func (m *CompressionMetrics) LogSummary(msg string) {
	orig := m.OriginalBytes.Load()
	comp := m.CompressedBytes.Load()

	// Calculate compression ratio (avoid division by zero)
	var ratio float64
	if orig > 0 {
		ratio = float64(comp) / float64(orig) * 100.0
	}

	plog.Info(msg,
		"entries_processed", m.EntriesProcessed.Load(),
		"entries_skipped", m.EntriesSkipped.Load(),
		"files_staged", m.FilesStaged.Load(),
		"committed", m.Committed.Load(),
		"aborted", m.Aborted.Load(),
		"original_bytes", fmt.Sprintf("%d", orig),
		"compressed_bytes", fmt.Sprintf("%d", comp),
		"ratio_pct", fmt.Sprintf("%.2f%%", ratio),
	)
}

// NoopMetrics is an implementation of the Metrics interface that performs no operations.
// It can be used to disable metrics collection without changing the calling code.
type NoopMetrics struct{}

func (m *NoopMetrics) AddEntriesProcessed(n int64)                      {}
func (m *NoopMetrics) AddEntriesSkipped(n int64)                        {}
func (m *NoopMetrics) AddFilesStaged(n int64)                           {}
func (m *NoopMetrics) AddOriginalBytes(n int64)                         {}
func (m *NoopMetrics) AddCompressedBytes(n int64)                       {}
func (m *NoopMetrics) AddCommitted(n int64)                             {}
func (m *NoopMetrics) AddAborted(n int64)                               {}
func (m *NoopMetrics) LogSummary(msg string)                            {}
func (m *NoopMetrics) StartProgress(msg string, interval time.Duration) {}
func (m *NoopMetrics) StopProgress()                                    {}

// Statically assert that our types implement the interface.
var _ Metrics = (*CompressionMetrics)(nil)
var _ Metrics = (*NoopMetrics)(nil)
