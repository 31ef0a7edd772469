// Package repositorydoubles provides test doubles (spies, stubs, fakes) for
// repository interfaces. These are hand-crafted implementations, no mock
// frameworks.
package repositorydoubles

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/pgoslatara/actup/internal/domain/entities"
	"github.com/pgoslatara/actup/internal/domain/repositories"
)

// SpyRemoteRepository implements repositories.RemoteRepository as a
// configurable spy. Configure the response fields for the methods your test
// exercises, then inspect the call-tracking fields to verify behavior.
// It is safe for concurrent use so worker-pool tests can share one instance.
type SpyRemoteRepository struct {
	mu sync.Mutex

	// --- identity ---
	User string

	// --- GetRepository ---
	Repositories map[string]entities.Repository // full name -> repo
	GetRepoErr   error

	// --- ListTags ---
	Tags        map[string][]string // full name -> tag names
	TagsErrs    map[string]error    // full name -> scripted failure
	ListTagsErr error

	// --- ResolveTagSHA ---
	TagSHAs           map[string]string // "fullName@tag" -> sha
	TagSHAErrs        map[string]error  // "fullName@tag" -> scripted failure
	ResolveTagSHAErr  error
	ResolveTagSHACall int // spy: number of resolutions performed

	// --- ListWorkflowFiles / GetFileContent ---
	WorkflowFiles   map[string][]string // full name -> paths
	FileContents    map[string]string   // "fullName:path" -> content
	FileContentErrs map[string]error    // "fullName:path" -> scripted failure
	FileContentErr  error

	// --- GetBranchHead ---
	BranchHeads   map[string]string // "fullName:branch" -> sha
	BranchHeadErr error

	// --- EnsureFork ---
	EnsureForkErr error
	ForkedRepos   []string // spy

	// --- CreateBranch ---
	CreateBranchErr     error
	CreateBranchErrOnce error    // consumed by the first call
	CreatedBranches     []string // spy: "fullName:branch@sha"

	// --- CommitFiles ---
	CommitFilesErr error
	CommitInputs   []entities.BranchInput // spy

	// --- OpenPullRequest ---
	OpenPRErr error
	PRInputs  []entities.PullRequestInput // spy

	// --- ListOpenPullRequests ---
	OpenPRs        map[string][]entities.PullRequest // full name -> open PRs
	ListOpenPRsErr error

	// --- GetPullRequestState ---
	PRStates map[int]string // number -> state

	// --- SearchPopularRepositories ---
	PopularRepos []entities.Repository
	SearchErr    error
}

var _ repositories.RemoteRepository = (*SpyRemoteRepository)(nil)

func (s *SpyRemoteRepository) CurrentUser(_ context.Context) (string, error) {
	if s.User == "" {
		return "actup-bot", nil
	}
	return s.User, nil
}

func (s *SpyRemoteRepository) GetRepository(_ context.Context, fullName string) (entities.Repository, error) {
	if s.GetRepoErr != nil {
		return entities.Repository{}, s.GetRepoErr
	}
	if repo, ok := s.Repositories[fullName]; ok {
		return repo, nil
	}
	return entities.Repository{}, fmt.Errorf("repository %s: %w", fullName, entities.ErrNotFound)
}

func (s *SpyRemoteRepository) ListTags(_ context.Context, fullName string) ([]string, error) {
	if s.ListTagsErr != nil {
		return nil, s.ListTagsErr
	}
	if err, ok := s.TagsErrs[fullName]; ok {
		return nil, err
	}
	return s.Tags[fullName], nil
}

func (s *SpyRemoteRepository) ResolveTagSHA(_ context.Context, fullName, tag string) (string, error) {
	s.mu.Lock()
	s.ResolveTagSHACall++
	s.mu.Unlock()

	if s.ResolveTagSHAErr != nil {
		return "", s.ResolveTagSHAErr
	}
	if err, ok := s.TagSHAErrs[fullName+"@"+tag]; ok {
		return "", err
	}
	if sha, ok := s.TagSHAs[fullName+"@"+tag]; ok {
		return sha, nil
	}
	return "", fmt.Errorf("tag %s@%s: %w", fullName, tag, entities.ErrNotFound)
}

// ResolveCalls returns the number of ResolveTagSHA invocations observed.
func (s *SpyRemoteRepository) ResolveCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ResolveTagSHACall
}

func (s *SpyRemoteRepository) ListWorkflowFiles(_ context.Context, repo entities.Repository) ([]string, error) {
	return s.WorkflowFiles[repo.FullName], nil
}

func (s *SpyRemoteRepository) GetFileContent(_ context.Context, repo entities.Repository, path string) (string, error) {
	if s.FileContentErr != nil {
		return "", s.FileContentErr
	}
	if err, ok := s.FileContentErrs[repo.FullName+":"+path]; ok {
		return "", err
	}
	if content, ok := s.FileContents[repo.FullName+":"+path]; ok {
		return content, nil
	}
	return "", fmt.Errorf("file %s: %w", path, entities.ErrNotFound)
}

func (s *SpyRemoteRepository) GetBranchHead(_ context.Context, fullName, branch string) (string, error) {
	if s.BranchHeadErr != nil {
		return "", s.BranchHeadErr
	}
	if sha, ok := s.BranchHeads[fullName+":"+branch]; ok {
		return sha, nil
	}
	return "", fmt.Errorf("branch %s: %w", branch, entities.ErrNotFound)
}

func (s *SpyRemoteRepository) EnsureFork(ctx context.Context, fullName string) (string, error) {
	if s.EnsureForkErr != nil {
		return "", s.EnsureForkErr
	}

	s.mu.Lock()
	s.ForkedRepos = append(s.ForkedRepos, fullName)
	s.mu.Unlock()

	user, _ := s.CurrentUser(ctx)
	_, name, err := entities.SplitFullName(fullName)
	if err != nil {
		return "", err
	}
	return user + "/" + name, nil
}

func (s *SpyRemoteRepository) CreateBranch(_ context.Context, fullName, branchName, fromSHA string) error {
	if s.CreateBranchErr != nil {
		return s.CreateBranchErr
	}
	s.mu.Lock()
	if s.CreateBranchErrOnce != nil {
		err := s.CreateBranchErrOnce
		s.CreateBranchErrOnce = nil
		s.mu.Unlock()
		return err
	}
	s.CreatedBranches = append(s.CreatedBranches, fullName+":"+branchName+"@"+fromSHA)
	s.mu.Unlock()
	return nil
}

func (s *SpyRemoteRepository) CommitFiles(_ context.Context, fullName, branchName string, input entities.BranchInput) (string, error) {
	if s.CommitFilesErr != nil {
		return "", s.CommitFilesErr
	}
	s.mu.Lock()
	s.CommitInputs = append(s.CommitInputs, input)
	s.mu.Unlock()
	_ = fullName
	_ = branchName
	return "commit-" + input.BranchName, nil
}

func (s *SpyRemoteRepository) OpenPullRequest(_ context.Context, fullName string, input entities.PullRequestInput) (*entities.PullRequest, error) {
	if s.OpenPRErr != nil {
		return nil, s.OpenPRErr
	}

	s.mu.Lock()
	s.PRInputs = append(s.PRInputs, input)
	number := len(s.PRInputs)
	s.mu.Unlock()

	branch := input.Head
	if idx := strings.Index(branch, ":"); idx >= 0 {
		branch = branch[idx+1:]
	}
	return &entities.PullRequest{
		Number:     number,
		Title:      input.Title,
		URL:        fmt.Sprintf("https://github.com/%s/pull/%d", fullName, number),
		State:      "open",
		BranchName: branch,
	}, nil
}

func (s *SpyRemoteRepository) ListOpenPullRequests(_ context.Context, fullName, branchPrefix string) ([]entities.PullRequest, error) {
	if s.ListOpenPRsErr != nil {
		return nil, s.ListOpenPRsErr
	}

	var matched []entities.PullRequest
	for _, pr := range s.OpenPRs[fullName] {
		if strings.HasPrefix(pr.BranchName, branchPrefix) {
			matched = append(matched, pr)
		}
	}
	return matched, nil
}

func (s *SpyRemoteRepository) GetPullRequestState(_ context.Context, _ string, number int) (string, error) {
	if state, ok := s.PRStates[number]; ok {
		return state, nil
	}
	return "open", nil
}

func (s *SpyRemoteRepository) SearchPopularRepositories(_ context.Context, limit int) ([]entities.Repository, error) {
	if s.SearchErr != nil {
		return nil, s.SearchErr
	}
	if limit > len(s.PopularRepos) {
		limit = len(s.PopularRepos)
	}
	return s.PopularRepos[:limit], nil
}
