package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	Uploads                  map[string]uint64
	UploadRecordsTotal       uint64
	UsersInserted            uint64
	UsersUpdated             uint64
	RecordsSkipped           uint64
	ReconcileDurationCount   uint64
	ReconcileDurationTotalNs int64
	Queries                  map[string]uint64
	QueryDurationCount       uint64
	QueryDurationTotalNs     int64
	Archives                 map[string]uint64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	uploadRecordsTotal       uint64
	usersInserted            uint64
	usersUpdated             uint64
	recordsSkipped           uint64
	reconcileDurationCount   uint64
	reconcileDurationTotalNs int64
	queryDurationCount       uint64
	queryDurationTotalNs     int64

	mu       sync.Mutex
	uploads  map[string]uint64
	queries  map[string]uint64
	archives map[string]uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		uploads:  make(map[string]uint64),
		queries:  make(map[string]uint64),
		archives: make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	uploads := copyCounts(m.uploads)
	queries := copyCounts(m.queries)
	archives := copyCounts(m.archives)
	m.mu.Unlock()

	return Snapshot{
		Uploads:                  uploads,
		UploadRecordsTotal:       atomic.LoadUint64(&m.uploadRecordsTotal),
		UsersInserted:            atomic.LoadUint64(&m.usersInserted),
		UsersUpdated:             atomic.LoadUint64(&m.usersUpdated),
		RecordsSkipped:           atomic.LoadUint64(&m.recordsSkipped),
		ReconcileDurationCount:   atomic.LoadUint64(&m.reconcileDurationCount),
		ReconcileDurationTotalNs: atomic.LoadInt64(&m.reconcileDurationTotalNs),
		Queries:                  queries,
		QueryDurationCount:       atomic.LoadUint64(&m.queryDurationCount),
		QueryDurationTotalNs:     atomic.LoadInt64(&m.queryDurationTotalNs),
		Archives:                 archives,
	}
}

// IncUpload increments the upload counter for status.
func (m *InMemoryRecorder) IncUpload(status string) {
	m.mu.Lock()
	m.uploads[status]++
	m.mu.Unlock()
}

// ObserveUploadRecords adds the number of parsed records.
func (m *InMemoryRecorder) ObserveUploadRecords(count int) {
	atomic.AddUint64(&m.uploadRecordsTotal, uint64(count))
}

// AddUsersInserted increments the inserted users counter.
func (m *InMemoryRecorder) AddUsersInserted(count int) {
	atomic.AddUint64(&m.usersInserted, uint64(count))
}

// AddUsersUpdated increments the updated users counter.
func (m *InMemoryRecorder) AddUsersUpdated(count int) {
	atomic.AddUint64(&m.usersUpdated, uint64(count))
}

// AddRecordsSkipped increments the skipped records counter.
func (m *InMemoryRecorder) AddRecordsSkipped(count int) {
	atomic.AddUint64(&m.recordsSkipped, uint64(count))
}

// ObserveReconcileDuration records reconciliation duration.
func (m *InMemoryRecorder) ObserveReconcileDuration(duration time.Duration) {
	atomic.AddUint64(&m.reconcileDurationCount, 1)
	atomic.AddInt64(&m.reconcileDurationTotalNs, duration.Nanoseconds())
}

// IncQuery increments the query counter for status.
func (m *InMemoryRecorder) IncQuery(status string) {
	m.mu.Lock()
	m.queries[status]++
	m.mu.Unlock()
}

// ObserveQueryDuration records query duration.
func (m *InMemoryRecorder) ObserveQueryDuration(duration time.Duration) {
	atomic.AddUint64(&m.queryDurationCount, 1)
	atomic.AddInt64(&m.queryDurationTotalNs, duration.Nanoseconds())
}

// IncArchive increments the archive counter for status.
func (m *InMemoryRecorder) IncArchive(status string) {
	m.mu.Lock()
	m.archives[status]++
	m.mu.Unlock()
}

func copyCounts(src map[string]uint64) map[string]uint64 {
	dst := make(map[string]uint64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
