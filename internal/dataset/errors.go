package dataset

import "fmt"

// SchemaError reports a missing or malformed required column. It always
// names the offending track and column so bad input can be located.
type SchemaError struct {
	TrackID string
	Column  string
	Reason  string
}

func (e *SchemaError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("schema error: track %q missing required column %q", e.TrackID, e.Column)
	}
	return fmt.Sprintf("schema error: track %q column %q: %s", e.TrackID, e.Column, e.Reason)
}

// DuplicateKeyError reports a track_id that repeats within one source table.
type DuplicateKeyError struct {
	TrackID string
	Source  string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate key: track %q appears more than once in %s", e.TrackID, e.Source)
}
