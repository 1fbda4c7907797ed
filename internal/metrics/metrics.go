// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Upload outcomes.
const (
	UploadSuccess  = "success"
	UploadEmpty    = "empty"
	UploadRejected = "rejected"
	UploadFailed   = "failed"
)

// Query outcomes.
const (
	QuerySuccess = "success"
	QueryInvalid = "invalid"
	QueryFailed  = "failed"
)

// Archive outcomes.
const (
	ArchiveSuccess = "success"
	ArchiveFailed  = "failed"
)

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus or keep them in memory.
type Recorder interface {
	// Upload metrics
	IncUpload(status string)
	ObserveUploadRecords(count int)

	// Reconciliation metrics
	AddUsersInserted(count int)
	AddUsersUpdated(count int)
	AddRecordsSkipped(count int)
	ObserveReconcileDuration(duration time.Duration)

	// Query metrics
	IncQuery(status string)
	ObserveQueryDuration(duration time.Duration)

	// Archive metrics
	IncArchive(status string)
}
