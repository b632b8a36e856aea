package rawdata

import "time"

const (
	SourceFPL       = "fpl"
	SourceUnderstat = "understat"
)

// Payload is one raw upstream response kept for audit and replay.
type Payload struct {
	Source      string
	EntityType  string
	EntityKey   string
	PlayerID    string
	PayloadJSON string
	PayloadHash string
	FetchedAt   *time.Time
}
