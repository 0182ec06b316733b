package scheduling

import "context"

// Beat is a named recurring trigger registered with the external scheduling
// collaborator
type Beat struct {
	OwnerApp      string `json:"owner_app"`
	Identifier    string `json:"identifier"`
	AlignmentHour int    `json:"alignment_hour"`
}

// BeatClient registers recurring triggers with the external scheduler.
// Registration is idempotent; callers log failures instead of aborting
// startup.
type BeatClient interface {
	// EnsureBeat registers the beat if it is not already known
	EnsureBeat(ctx context.Context, beat Beat) error
}
