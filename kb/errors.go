package kb

import "fmt"

// ErrStoreCorrupt is returned by Load when the store file exists but does
// not parse as the published schema. A missing or empty file is not an
// error; a corrupt one must be surfaced so operators can tell "no data
// yet" apart from data loss.
type ErrStoreCorrupt struct {
	Path  string
	Cause error
}

func (e *ErrStoreCorrupt) Error() string {
	return fmt.Sprintf("kb: store corrupt: %s: %v", e.Path, e.Cause)
}

func (e *ErrStoreCorrupt) Unwrap() error { return e.Cause }
