package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	gh "github.com/google/go-github/v66/github"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/mod/semver"

	"github.com/pgoslatara/actup/internal/domain/entities"
	"github.com/pgoslatara/actup/internal/domain/repositories"
	"github.com/pgoslatara/actup/internal/ratelimit"
)

const (
	perPage  = 100
	blobMode = "100644"
	blobType = "blob"

	retryMax         = 4
	forkPollInterval = 2 * time.Second
	forkPollTimeout  = 90 * time.Second
)

// GitHubRemoteRepository implements repositories.RemoteRepository on top of
// the GitHub REST API. Every call waits on the shared rate gate first and
// feeds the response's remaining-quota headers back into it.
type GitHubRemoteRepository struct {
	client *gh.Client
	gate   *ratelimit.Gate
}

// NewGitHubRemoteRepository creates an authenticated client with transient
// failures retried at the transport layer by retryablehttp.
func NewGitHubRemoteRepository(token string, gate *ratelimit.Gate) repositories.RemoteRepository {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = retryMax
	retryClient.Logger = nil

	client := gh.NewClient(retryClient.StandardClient()).WithAuthToken(token)
	return &GitHubRemoteRepository{client: client, gate: gate}
}

func (p *GitHubRemoteRepository) CurrentUser(ctx context.Context) (string, error) {
	if err := p.gate.Wait(ctx); err != nil {
		return "", err
	}

	user, resp, err := p.client.Users.Get(ctx, "")
	p.track(resp)
	if err != nil {
		return "", p.classify("get current user", resp, err)
	}
	return user.GetLogin(), nil
}

func (p *GitHubRemoteRepository) GetRepository(ctx context.Context, fullName string) (entities.Repository, error) {
	owner, name, err := entities.SplitFullName(fullName)
	if err != nil {
		return entities.Repository{}, err
	}
	if err = p.gate.Wait(ctx); err != nil {
		return entities.Repository{}, err
	}

	repo, resp, err := p.client.Repositories.Get(ctx, owner, name)
	p.track(resp)
	if err != nil {
		return entities.Repository{}, p.classify(fmt.Sprintf("get repository %s", fullName), resp, err)
	}
	return toRepository(repo), nil
}

func (p *GitHubRemoteRepository) ListTags(ctx context.Context, fullName string) ([]string, error) {
	owner, name, err := entities.SplitFullName(fullName)
	if err != nil {
		return nil, err
	}

	var allTags []string
	opts := &gh.ListOptions{PerPage: perPage}
	for {
		if err = p.gate.Wait(ctx); err != nil {
			return nil, err
		}

		tags, resp, listErr := p.client.Repositories.ListTags(ctx, owner, name, opts)
		p.track(resp)
		if listErr != nil {
			return nil, p.classify(fmt.Sprintf("list tags of %s", fullName), resp, listErr)
		}

		for _, tag := range tags {
			allTags = append(allTags, tag.GetName())
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	sortVersionsDescending(allTags)
	return allTags, nil
}

// ResolveTagSHA follows annotated tag objects down to the commit they point at.
func (p *GitHubRemoteRepository) ResolveTagSHA(ctx context.Context, fullName, tag string) (string, error) {
	owner, name, err := entities.SplitFullName(fullName)
	if err != nil {
		return "", err
	}
	if err = p.gate.Wait(ctx); err != nil {
		return "", err
	}

	ref, resp, err := p.client.Git.GetRef(ctx, owner, name, "refs/tags/"+tag)
	p.track(resp)
	if err != nil {
		return "", p.classify(fmt.Sprintf("resolve tag %s@%s", fullName, tag), resp, err)
	}

	if ref.Object.GetType() != "tag" {
		return ref.Object.GetSHA(), nil
	}

	if err = p.gate.Wait(ctx); err != nil {
		return "", err
	}
	tagObject, resp, err := p.client.Git.GetTag(ctx, owner, name, ref.Object.GetSHA())
	p.track(resp)
	if err != nil {
		return "", p.classify(fmt.Sprintf("read tag object %s@%s", fullName, tag), resp, err)
	}
	return tagObject.Object.GetSHA(), nil
}

func (p *GitHubRemoteRepository) ListWorkflowFiles(ctx context.Context, repo entities.Repository) ([]string, error) {
	owner, name, err := entities.SplitFullName(repo.FullName)
	if err != nil {
		return nil, err
	}
	if err = p.gate.Wait(ctx); err != nil {
		return nil, err
	}

	tree, resp, err := p.client.Git.GetTree(ctx, owner, name, repo.DefaultBranch, true)
	p.track(resp)
	if err != nil {
		return nil, p.classify(fmt.Sprintf("get tree of %s", repo.FullName), resp, err)
	}

	var files []string
	for _, entry := range tree.Entries {
		if entry.GetType() != blobType {
			continue
		}
		if isActionDefinitionPath(entry.GetPath()) {
			files = append(files, entry.GetPath())
		}
	}
	return files, nil
}

// isActionDefinitionPath accepts workflow files and composite action
// manifests, wherever the latter live in the tree.
func isActionDefinitionPath(path string) bool {
	if strings.HasPrefix(path, ".github/workflows/") &&
		(strings.HasSuffix(path, ".yml") || strings.HasSuffix(path, ".yaml")) {
		return true
	}
	base := path
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		base = path[idx+1:]
	}
	return base == "action.yml" || base == "action.yaml"
}

func (p *GitHubRemoteRepository) GetFileContent(ctx context.Context, repo entities.Repository, path string) (string, error) {
	owner, name, err := entities.SplitFullName(repo.FullName)
	if err != nil {
		return "", err
	}
	if err = p.gate.Wait(ctx); err != nil {
		return "", err
	}

	fileContent, _, resp, err := p.client.Repositories.GetContents(
		ctx, owner, name, path,
		&gh.RepositoryContentGetOptions{Ref: repo.DefaultBranch},
	)
	p.track(resp)
	if err != nil {
		return "", p.classify(fmt.Sprintf("get file %s:%s", repo.FullName, path), resp, err)
	}
	if fileContent == nil {
		return "", fmt.Errorf("path %q is a directory, not a file", path)
	}

	content, err := fileContent.GetContent()
	if err != nil {
		return "", fmt.Errorf("failed to decode file content: %w", err)
	}
	return content, nil
}

func (p *GitHubRemoteRepository) GetBranchHead(ctx context.Context, fullName, branch string) (string, error) {
	owner, name, err := entities.SplitFullName(fullName)
	if err != nil {
		return "", err
	}
	if err = p.gate.Wait(ctx); err != nil {
		return "", err
	}

	ref, resp, err := p.client.Git.GetRef(ctx, owner, name, "refs/heads/"+branch)
	p.track(resp)
	if err != nil {
		return "", p.classify(fmt.Sprintf("get head of %s:%s", fullName, branch), resp, err)
	}
	return ref.Object.GetSHA(), nil
}

// EnsureFork creates (or finds) a fork in the authenticated user's account.
// Fork creation is asynchronous on the API side, so the result is polled
// until the fork becomes visible.
func (p *GitHubRemoteRepository) EnsureFork(ctx context.Context, fullName string) (string, error) {
	owner, name, err := entities.SplitFullName(fullName)
	if err != nil {
		return "", err
	}
	if err = p.gate.Wait(ctx); err != nil {
		return "", err
	}

	fork, resp, err := p.client.Repositories.CreateFork(ctx, owner, name, nil)
	p.track(resp)

	var accepted *gh.AcceptedError
	switch {
	case err == nil, errors.As(err, &accepted):
		// 202 means the fork is being created in the background.
	default:
		return "", p.classify(fmt.Sprintf("fork %s", fullName), resp, err)
	}

	forkFullName := fork.GetFullName()
	if forkFullName == "" {
		user, userErr := p.CurrentUser(ctx)
		if userErr != nil {
			return "", userErr
		}
		forkFullName = user + "/" + name
	}

	deadline := time.Now().Add(forkPollTimeout)
	for {
		if _, getErr := p.GetRepository(ctx, forkFullName); getErr == nil {
			return forkFullName, nil
		} else if !errors.Is(getErr, entities.ErrNotFound) {
			return "", getErr
		}

		if time.Now().After(deadline) {
			return "", &entities.RemoteError{
				Operation:  fmt.Sprintf("fork %s", fullName),
				StatusCode: http.StatusAccepted,
				Err:        fmt.Errorf("fork %s not visible after %s", forkFullName, forkPollTimeout),
			}
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(forkPollInterval):
		}
	}
}

func (p *GitHubRemoteRepository) CreateBranch(ctx context.Context, fullName, branchName, fromSHA string) error {
	owner, name, err := entities.SplitFullName(fullName)
	if err != nil {
		return err
	}
	if err = p.gate.Wait(ctx); err != nil {
		return err
	}

	branchRef := "refs/heads/" + branchName
	_, resp, err := p.client.Git.CreateRef(ctx, owner, name, &gh.Reference{
		Ref:    &branchRef,
		Object: &gh.GitObject{SHA: &fromSHA},
	})
	p.track(resp)
	if err == nil {
		return nil
	}
	if !isAlreadyExists(err) {
		return p.classify(fmt.Sprintf("create branch %s:%s", fullName, branchName), resp, err)
	}

	// A leftover ref at the same commit is a previous run of ours.
	head, headErr := p.GetBranchHead(ctx, fullName, branchName)
	if headErr != nil {
		return headErr
	}
	if head == fromSHA {
		return nil
	}
	return fmt.Errorf("branch %s:%s already exists at %s: %w",
		fullName, branchName, head, entities.ErrWriteConflict)
}

// CommitFiles builds a tree from the changes, commits it on top of the
// branch's base commit and fast-forwards the branch ref to it.
func (p *GitHubRemoteRepository) CommitFiles(
	ctx context.Context,
	fullName, branchName string,
	input entities.BranchInput,
) (string, error) {
	owner, name, err := entities.SplitFullName(fullName)
	if err != nil {
		return "", err
	}

	if err = p.gate.Wait(ctx); err != nil {
		return "", err
	}
	baseCommit, resp, err := p.client.Git.GetCommit(ctx, owner, name, input.BaseSHA)
	p.track(resp)
	if err != nil {
		return "", p.classify(fmt.Sprintf("get base commit of %s", fullName), resp, err)
	}

	var entries []*gh.TreeEntry
	for _, change := range input.Changes {
		content := change.Content
		path := strings.TrimPrefix(change.Path, "/")
		mode := blobMode
		entryType := blobType
		entries = append(entries, &gh.TreeEntry{
			Path:    &path,
			Mode:    &mode,
			Type:    &entryType,
			Content: &content,
		})
	}

	if err = p.gate.Wait(ctx); err != nil {
		return "", err
	}
	newTree, resp, err := p.client.Git.CreateTree(ctx, owner, name, baseCommit.Tree.GetSHA(), entries)
	p.track(resp)
	if err != nil {
		return "", p.classify(fmt.Sprintf("create tree on %s", fullName), resp, err)
	}

	if err = p.gate.Wait(ctx); err != nil {
		return "", err
	}
	baseSHA := input.BaseSHA
	newCommit, resp, err := p.client.Git.CreateCommit(ctx, owner, name, &gh.Commit{
		Message: &input.CommitMessage,
		Tree:    newTree,
		Parents: []*gh.Commit{{SHA: &baseSHA}},
	}, nil)
	p.track(resp)
	if err != nil {
		return "", p.classify(fmt.Sprintf("create commit on %s", fullName), resp, err)
	}

	if err = p.gate.Wait(ctx); err != nil {
		return "", err
	}
	branchRef := "refs/heads/" + branchName
	_, resp, err = p.client.Git.UpdateRef(ctx, owner, name, &gh.Reference{
		Ref:    &branchRef,
		Object: &gh.GitObject{SHA: newCommit.SHA},
	}, false)
	p.track(resp)
	if err != nil {
		if isFastForwardFailure(err) {
			return "", fmt.Errorf("branch %s:%s moved under us: %w",
				fullName, branchName, entities.ErrWriteConflict)
		}
		return "", p.classify(fmt.Sprintf("update branch %s:%s", fullName, branchName), resp, err)
	}

	return newCommit.GetSHA(), nil
}

func (p *GitHubRemoteRepository) OpenPullRequest(
	ctx context.Context,
	fullName string,
	input entities.PullRequestInput,
) (*entities.PullRequest, error) {
	owner, name, err := entities.SplitFullName(fullName)
	if err != nil {
		return nil, err
	}
	if err = p.gate.Wait(ctx); err != nil {
		return nil, err
	}

	maintainerCanModify := true
	pr, resp, err := p.client.PullRequests.Create(ctx, owner, name, &gh.NewPullRequest{
		Title:               &input.Title,
		Head:                &input.Head,
		Base:                &input.Base,
		Body:                &input.Body,
		Draft:               &input.Draft,
		MaintainerCanModify: &maintainerCanModify,
	})
	p.track(resp)
	if err != nil {
		if isAlreadyExists(err) {
			return nil, fmt.Errorf("pull request %s -> %s:%s: %w",
				input.Head, fullName, input.Base, entities.ErrDuplicatePullRequest)
		}
		return nil, p.classify(fmt.Sprintf("open pull request on %s", fullName), resp, err)
	}

	return &entities.PullRequest{
		Number:     pr.GetNumber(),
		Title:      pr.GetTitle(),
		URL:        pr.GetHTMLURL(),
		State:      pr.GetState(),
		BranchName: pr.Head.GetRef(),
	}, nil
}

func (p *GitHubRemoteRepository) ListOpenPullRequests(
	ctx context.Context,
	fullName, branchPrefix string,
) ([]entities.PullRequest, error) {
	owner, name, err := entities.SplitFullName(fullName)
	if err != nil {
		return nil, err
	}

	var matches []entities.PullRequest
	opts := &gh.PullRequestListOptions{
		State:       "open",
		ListOptions: gh.ListOptions{PerPage: perPage},
	}
	for {
		if err = p.gate.Wait(ctx); err != nil {
			return nil, err
		}

		prs, resp, listErr := p.client.PullRequests.List(ctx, owner, name, opts)
		p.track(resp)
		if listErr != nil {
			return nil, p.classify(fmt.Sprintf("list pull requests of %s", fullName), resp, listErr)
		}

		for _, pr := range prs {
			if !strings.HasPrefix(pr.Head.GetRef(), branchPrefix) {
				continue
			}
			matches = append(matches, entities.PullRequest{
				Number:     pr.GetNumber(),
				Title:      pr.GetTitle(),
				URL:        pr.GetHTMLURL(),
				State:      pr.GetState(),
				BranchName: pr.Head.GetRef(),
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return matches, nil
}

func (p *GitHubRemoteRepository) GetPullRequestState(ctx context.Context, fullName string, number int) (string, error) {
	owner, name, err := entities.SplitFullName(fullName)
	if err != nil {
		return "", err
	}
	if err = p.gate.Wait(ctx); err != nil {
		return "", err
	}

	pr, resp, err := p.client.PullRequests.Get(ctx, owner, name, number)
	p.track(resp)
	if err != nil {
		return "", p.classify(fmt.Sprintf("get pull request %s#%d", fullName, number), resp, err)
	}
	if pr.GetMerged() {
		return string(entities.PRStatusMerged), nil
	}
	return pr.GetState(), nil
}

func (p *GitHubRemoteRepository) SearchPopularRepositories(ctx context.Context, limit int) ([]entities.Repository, error) {
	var repos []entities.Repository
	opts := &gh.SearchOptions{
		Sort:        "stars",
		Order:       "desc",
		ListOptions: gh.ListOptions{PerPage: perPage},
	}

	for len(repos) < limit {
		if err := p.gate.Wait(ctx); err != nil {
			return nil, err
		}

		result, resp, err := p.client.Search.Repositories(ctx, "stars:>1000 archived:false", opts)
		p.track(resp)
		if err != nil {
			return nil, p.classify("search popular repositories", resp, err)
		}

		for _, repo := range result.Repositories {
			repos = append(repos, toRepository(repo))
			if len(repos) == limit {
				return repos, nil
			}
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return repos, nil
}

// --- response plumbing ---

func (p *GitHubRemoteRepository) track(resp *gh.Response) {
	if resp == nil {
		return
	}
	p.gate.Update(resp.Rate.Remaining, resp.Rate.Reset.Time)
}

// classify maps API failures onto the domain error taxonomy.
func (p *GitHubRemoteRepository) classify(operation string, resp *gh.Response, err error) error {
	var rateErr *gh.RateLimitError
	if errors.As(err, &rateErr) {
		p.gate.PauseUntil(rateErr.Rate.Reset.Time)
		return fmt.Errorf("%s: %w", operation, entities.ErrRateLimitExceeded)
	}

	var abuseErr *gh.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		if abuseErr.RetryAfter != nil {
			p.gate.PauseUntil(time.Now().Add(*abuseErr.RetryAfter))
		}
		return fmt.Errorf("%s: %w", operation, entities.ErrRateLimitExceeded)
	}

	statusCode := 0
	if resp != nil {
		statusCode = resp.StatusCode
	}
	if statusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", operation, entities.ErrNotFound)
	}

	return &entities.RemoteError{Operation: operation, StatusCode: statusCode, Err: err}
}

func isAlreadyExists(err error) bool {
	var ghErr *gh.ErrorResponse
	if !errors.As(err, &ghErr) {
		return false
	}
	if strings.Contains(strings.ToLower(ghErr.Message), "already exists") {
		return true
	}
	for _, apiErr := range ghErr.Errors {
		if strings.Contains(strings.ToLower(apiErr.Message), "already exists") {
			return true
		}
	}
	return false
}

func isFastForwardFailure(err error) bool {
	var ghErr *gh.ErrorResponse
	if !errors.As(err, &ghErr) {
		return false
	}
	return strings.Contains(strings.ToLower(ghErr.Message), "not a fast forward") ||
		ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusConflict
}

func toRepository(repo *gh.Repository) entities.Repository {
	return entities.Repository{
		FullName:      repo.GetFullName(),
		DefaultBranch: repo.GetDefaultBranch(),
		CloneURL:      repo.GetCloneURL(),
		Stars:         repo.GetStargazersCount(),
		Archived:      repo.GetArchived(),
		Fork:          repo.GetFork(),
		PushedAt:      repo.GetPushedAt().Time,
		CheckedAt:     time.Now().UTC(),
	}
}

// --- version sorting ---

func sortVersionsDescending(versions []string) {
	sort.Slice(versions, func(i, j int) bool {
		v1 := normalizeVersion(versions[i])
		v2 := normalizeVersion(versions[j])
		if semver.IsValid(v1) && semver.IsValid(v2) {
			return semver.Compare(v1, v2) > 0
		}
		return versions[i] > versions[j]
	})
}

func normalizeVersion(version string) string {
	if strings.HasPrefix(version, "v") {
		return version
	}
	return "v" + version
}
