package domain

// TrackingRecord captures the processed state of one source file.
// The collection is persisted as a single serialized map keyed by
// path. A path present in the map was fully processed as of the
// stored checksum.
type TrackingRecord struct {
	// Path is the source file path, also the map key.
	Path string `json:"path"`

	// Checksum is the hex-encoded SHA-256 the file had when it
	// was last successfully indexed.
	Checksum string `json:"checksum"`
}

// ChangeSet classifies the current knowledge directory contents
// against the tracking state. Every currently-present file appears
// in exactly one of ToProcess or Unchanged.
type ChangeSet struct {
	// ToProcess holds files that are new, modified, or forced.
	ToProcess []SourceFile

	// Unchanged holds files whose checksum matches the tracked one.
	Unchanged []SourceFile

	// Deleted holds tracked paths no longer present on disk.
	Deleted []string
}
