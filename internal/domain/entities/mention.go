package entities

import "time"

// RefKind classifies how an action reference is pinned.
type RefKind string

const (
	RefKindTag    RefKind = "tag"
	RefKindSHA    RefKind = "sha"
	RefKindBranch RefKind = "branch"
)

// Mention is one textual `uses:` reference to an action found in a scanned
// file. Mentions are immutable once recorded for a scan; a later scan of the
// same file supersedes its snapshot instead of mutating rows.
type Mention struct {
	RepoFullName string
	FilePath     string
	Line         int
	Raw          string // reference exactly as written, e.g. "actions/checkout@v4"
	Owner        string
	Name         string
	Subpath      string // non-empty for owner/repo/path actions
	Ref          string
	Kind         RefKind
	Annotation   string // trailing version comment, e.g. "v4.0.1"

	// Known is true when the action is linked to a catalog entry. Unknown
	// actions are recorded anyway and surfaced in reporting.
	Known bool

	ScannedAt time.Time
}

// ActionFullName returns the "owner/name" of the referenced action.
func (m Mention) ActionFullName() string {
	return m.Owner + "/" + m.Name
}

// UsesPath returns the full action path as it appears before the "@",
// including any subdirectory.
func (m Mention) UsesPath() string {
	if m.Subpath != "" {
		return m.Owner + "/" + m.Name + "/" + m.Subpath
	}
	return m.Owner + "/" + m.Name
}
