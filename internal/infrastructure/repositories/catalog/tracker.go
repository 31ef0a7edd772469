package catalog

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/pgoslatara/actup/internal/domain/entities"
)

const trackerHeader = `# Pull Request Tracker

| Date | Repository | Mode | PR | Status |
| ---- | ---------- | ---- | -- | ------ |
`

// Tracker appends one markdown table row per created pull request to a
// human-readable log file. Rows are never rewritten; the file is the
// at-a-glance history next to the catalog database.
type Tracker struct {
	path string
	mu   sync.Mutex
}

func NewTracker(path string) *Tracker {
	return &Tracker{path: path}
}

// Append writes the record as a table row, creating the file with its header
// on first use.
func (t *Tracker) Append(record entities.PullRequestRecord) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := os.Stat(t.path); os.IsNotExist(err) {
		if err = os.WriteFile(t.path, []byte(trackerHeader), 0o644); err != nil {
			return fmt.Errorf("failed to create tracker %q: %w", t.path, err)
		}
	}

	file, err := os.OpenFile(t.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open tracker %q: %w", t.path, err)
	}
	defer file.Close()

	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	link := record.URL
	if link == "" {
		link = record.BranchName
	}

	row := fmt.Sprintf("| %s | %s | %s | [#%d](%s) | %s |\n",
		createdAt.Format("2006-01-02"),
		record.RepoFullName,
		record.Mode,
		record.Number,
		link,
		record.Status,
	)
	if _, err = file.WriteString(row); err != nil {
		return fmt.Errorf("failed to append to tracker %q: %w", t.path, err)
	}
	return nil
}
