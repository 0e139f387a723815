package events

import "time"

// RunCompleteEvent is sent when a pipeline run finishes.
type RunCompleteEvent struct {
	RunID             string        // archive run ID, empty when archiving is off
	Fetched           int           // records fetched across all portals
	Upserted          int           // newly inserted records
	SkippedKeyword    int           // dropped by the keyword stage
	SkippedSimilarity int           // dropped by the similarity stage
	Duration          time.Duration // how long the run took
	Timestamp         time.Time     // when the run completed
	Errors            []string      // non-fatal errors encountered
}

// ArchiveCompleteEvent is sent when a run snapshot lands in object storage.
type ArchiveCompleteEvent struct {
	Bucket      string    // bucket name (e.g., "opportender")
	RunID       string    // e.g., "20250825T170000-ab12cd"
	RecordCount int       // records archived
	Timestamp   time.Time // when the archive completed
}
