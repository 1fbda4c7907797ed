package service

// ParameterError reports an invalid or missing query parameter.
// Message is returned to the caller verbatim.
type ParameterError struct {
	Message string
}

func (e *ParameterError) Error() string {
	return e.Message
}

// StorageError wraps a failure of the storage layer. Callers should treat
// it as opaque; Err is kept for logging.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return "storage: " + e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
