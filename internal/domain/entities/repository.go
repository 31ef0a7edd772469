package entities

import (
	"fmt"
	"strings"
	"time"
)

// Repository represents a scannable GitHub repository.
type Repository struct {
	FullName      string
	DefaultBranch string
	CloneURL      string
	Stars         int
	Archived      bool
	Fork          bool
	PushedAt      time.Time
	CheckedAt     time.Time
}

// Owner returns the owner half of the full name.
func (r Repository) Owner() string {
	owner, _, _ := SplitFullName(r.FullName)
	return owner
}

// Name returns the repository half of the full name.
func (r Repository) Name() string {
	_, name, _ := SplitFullName(r.FullName)
	return name
}

// SplitFullName splits "owner/name" into its parts.
func SplitFullName(fullName string) (owner, name string, err error) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository name %q, expected owner/name", fullName)
	}
	return parts[0], parts[1], nil
}
