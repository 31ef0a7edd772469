package entities

import "time"

// Action identifies a reusable GitHub Action by its repository coordinates.
// LatestVersion is derived from the action's tags and recomputed on rescan.
type Action struct {
	Owner         string
	Name          string
	LatestVersion string
	Stars         int
	CheckedAt     time.Time
}

// FullName returns the canonical "owner/name" form.
func (a Action) FullName() string {
	return a.Owner + "/" + a.Name
}

// Pin is a permanent mapping from an action tag to the commit SHA it pointed
// at when first resolved. Pins never expire and are never overwritten.
type Pin struct {
	Owner      string
	Name       string
	Tag        string
	SHA        string
	ResolvedAt time.Time

	// MovedSHA records the conflicting value observed when a later resolution
	// disagreed with the cached SHA. The cached SHA stays authoritative.
	MovedSHA string
}

// Moved reports whether the tag was observed pointing at a different commit
// after the pin was recorded.
func (p Pin) Moved() bool {
	return p.MovedSHA != "" && p.MovedSHA != p.SHA
}
