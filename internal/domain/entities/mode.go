package entities

import "fmt"

// RemediationMode selects how discovered references are rewritten.
type RemediationMode string

const (
	// ModeLatestVersion bumps tag references to the latest stable tag.
	ModeLatestVersion RemediationMode = "latest_version"
	// ModePinToSHA replaces references with an immutable commit SHA plus a
	// human-readable version annotation.
	ModePinToSHA RemediationMode = "pin_to_sha"
)

// Slug returns the mode's branch-name fragment.
func (m RemediationMode) Slug() string {
	if m == ModePinToSHA {
		return "pin-actions-to-sha"
	}
	return "update-actions"
}

// ParseRemediationMode accepts both the stored form ("pin_to_sha") and the
// CLI flag form ("pin-to-sha").
func ParseRemediationMode(raw string) (RemediationMode, error) {
	switch raw {
	case "latest_version", "latest-version":
		return ModeLatestVersion, nil
	case "pin_to_sha", "pin-to-sha":
		return ModePinToSHA, nil
	}
	return "", fmt.Errorf("unknown remediation mode %q", raw)
}

// PinTarget decides which tag a pin_to_sha rewrite resolves: the tag the
// mention currently references, or the latest stable tag.
type PinTarget string

const (
	PinTargetCurrent PinTarget = "current"
	PinTargetLatest  PinTarget = "latest"
)
