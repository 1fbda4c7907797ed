package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncUpload is a no-op.
func (n *NoopRecorder) IncUpload(status string) {}

// ObserveUploadRecords is a no-op.
func (n *NoopRecorder) ObserveUploadRecords(count int) {}

// AddUsersInserted is a no-op.
func (n *NoopRecorder) AddUsersInserted(count int) {}

// AddUsersUpdated is a no-op.
func (n *NoopRecorder) AddUsersUpdated(count int) {}

// AddRecordsSkipped is a no-op.
func (n *NoopRecorder) AddRecordsSkipped(count int) {}

// ObserveReconcileDuration is a no-op.
func (n *NoopRecorder) ObserveReconcileDuration(duration time.Duration) {}

// IncQuery is a no-op.
func (n *NoopRecorder) IncQuery(status string) {}

// ObserveQueryDuration is a no-op.
func (n *NoopRecorder) ObserveQueryDuration(duration time.Duration) {}

// IncArchive is a no-op.
func (n *NoopRecorder) IncArchive(status string) {}
