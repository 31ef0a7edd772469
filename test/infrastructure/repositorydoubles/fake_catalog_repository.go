package repositorydoubles

import (
	"context"
	"sync"

	"github.com/pgoslatara/actup/internal/domain/entities"
	"github.com/pgoslatara/actup/internal/domain/repositories"
)

// FakeCatalogRepository is an in-memory CatalogRepository honoring the same
// invariants as the SQLite implementation: write-once pins, per-file mention
// snapshots, and upserts keyed by natural identity.
type FakeCatalogRepository struct {
	mu sync.Mutex

	Actions      map[string]entities.Action          // "owner/name"
	Pins         map[string]entities.Pin             // "owner/name@tag"
	Mentions     map[string][]entities.Mention       // "repo|file"
	Repositories map[string]entities.Repository      // full name
	PRs          map[string]entities.PullRequestRecord // "repo|mode|branch"

	SavePinErr error
}

var _ repositories.CatalogRepository = (*FakeCatalogRepository)(nil)

// NewFakeCatalogRepository creates an empty in-memory catalog.
func NewFakeCatalogRepository() *FakeCatalogRepository {
	return &FakeCatalogRepository{
		Actions:      make(map[string]entities.Action),
		Pins:         make(map[string]entities.Pin),
		Mentions:     make(map[string][]entities.Mention),
		Repositories: make(map[string]entities.Repository),
		PRs:          make(map[string]entities.PullRequestRecord),
	}
}

func (f *FakeCatalogRepository) Init(_ context.Context) error { return nil }
func (f *FakeCatalogRepository) Close() error                 { return nil }

func (f *FakeCatalogRepository) SaveAction(_ context.Context, action entities.Action) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Actions[action.FullName()] = action
	return nil
}

func (f *FakeCatalogRepository) GetAction(_ context.Context, owner, name string) (entities.Action, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	action, ok := f.Actions[owner+"/"+name]
	return action, ok, nil
}

func (f *FakeCatalogRepository) ListActions(_ context.Context) ([]entities.Action, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	actions := make([]entities.Action, 0, len(f.Actions))
	for _, a := range f.Actions {
		actions = append(actions, a)
	}
	return actions, nil
}

func (f *FakeCatalogRepository) SavePin(_ context.Context, pin entities.Pin) error {
	if f.SavePinErr != nil {
		return f.SavePinErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	key := pin.Owner + "/" + pin.Name + "@" + pin.Tag
	if existing, ok := f.Pins[key]; ok {
		if existing.SHA != pin.SHA {
			existing.MovedSHA = pin.SHA
			f.Pins[key] = existing
			return entities.ErrTagMoved
		}
		return nil
	}
	f.Pins[key] = pin
	return nil
}

func (f *FakeCatalogRepository) GetPin(_ context.Context, owner, name, tag string) (entities.Pin, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pin, ok := f.Pins[owner+"/"+name+"@"+tag]
	return pin, ok, nil
}

func (f *FakeCatalogRepository) ListMovedPins(_ context.Context) ([]entities.Pin, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var moved []entities.Pin
	for _, pin := range f.Pins {
		if pin.Moved() {
			moved = append(moved, pin)
		}
	}
	return moved, nil
}

func (f *FakeCatalogRepository) ReplaceMentions(_ context.Context, repoFullName, filePath string, mentions []entities.Mention) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Mentions[repoFullName+"|"+filePath] = append([]entities.Mention(nil), mentions...)
	return nil
}

func (f *FakeCatalogRepository) ListMentions(_ context.Context, repoFullName string) ([]entities.Mention, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []entities.Mention
	for _, mentions := range f.Mentions {
		for _, m := range mentions {
			if m.RepoFullName == repoFullName {
				all = append(all, m)
			}
		}
	}
	return all, nil
}

func (f *FakeCatalogRepository) ListMentionedRepositories(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := make(map[string]bool)
	var repos []string
	for _, mentions := range f.Mentions {
		for _, m := range mentions {
			if !seen[m.RepoFullName] {
				seen[m.RepoFullName] = true
				repos = append(repos, m.RepoFullName)
			}
		}
	}
	return repos, nil
}

func (f *FakeCatalogRepository) SaveRepository(_ context.Context, repo entities.Repository) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Repositories[repo.FullName] = repo
	return nil
}

func (f *FakeCatalogRepository) ListRepositories(_ context.Context) ([]entities.Repository, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	repos := make([]entities.Repository, 0, len(f.Repositories))
	for _, r := range f.Repositories {
		repos = append(repos, r)
	}
	return repos, nil
}

func (f *FakeCatalogRepository) SavePullRequest(_ context.Context, record entities.PullRequestRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.PRs[record.RepoFullName+"|"+string(record.Mode)+"|"+record.BranchName] = record
	return nil
}

func (f *FakeCatalogRepository) OpenPullRequest(_ context.Context, repoFullName string, mode entities.RemediationMode) (entities.PullRequestRecord, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, record := range f.PRs {
		if record.RepoFullName == repoFullName && record.Mode == mode && record.Status == entities.PRStatusOpen {
			return record, true, nil
		}
	}
	return entities.PullRequestRecord{}, false, nil
}

func (f *FakeCatalogRepository) ListPullRequests(_ context.Context) ([]entities.PullRequestRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	records := make([]entities.PullRequestRecord, 0, len(f.PRs))
	for _, r := range f.PRs {
		records = append(records, r)
	}
	return records, nil
}

func (f *FakeCatalogRepository) UpdatePullRequestStatus(_ context.Context, repoFullName string, number int, status entities.PRStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for key, record := range f.PRs {
		if record.RepoFullName == repoFullName && record.Number == number {
			record.Status = status
			f.PRs[key] = record
		}
	}
	return nil
}
