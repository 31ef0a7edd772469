// Package orchestrator drives the per-repository remediation state machine:
// scan, plan, fork, branch, commit, pull request. One repository's failure
// never aborts the others.
package orchestrator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	logger "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/pgoslatara/actup/internal/domain/entities"
	"github.com/pgoslatara/actup/internal/domain/repositories"
	"github.com/pgoslatara/actup/internal/planner"
	"github.com/pgoslatara/actup/internal/scanner"
)

const branchPrefix = "actup/"

// TrackerLog receives one record per created pull request.
type TrackerLog interface {
	Append(record entities.PullRequestRecord) error
}

type Orchestrator struct {
	remote  repositories.RemoteRepository
	catalog repositories.CatalogRepository
	planner *planner.Planner
	tracker TrackerLog
}

func New(
	remote repositories.RemoteRepository,
	catalog repositories.CatalogRepository,
	plan *planner.Planner,
	tracker TrackerLog,
) *Orchestrator {
	return &Orchestrator{
		remote:  remote,
		catalog: catalog,
		planner: plan,
		tracker: tracker,
	}
}

// RemediateAll runs the state machine over all repositories with a bounded
// worker pool. Each worker takes one repository end-to-end.
func (o *Orchestrator) RemediateAll(
	ctx context.Context,
	repos []entities.Repository,
	mode entities.RemediationMode,
	pinTarget entities.PinTarget,
	workers int,
) entities.RunSummary {
	if workers < 1 {
		workers = 1
	}

	var mu sync.Mutex
	summary := entities.RunSummary{}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(workers)
	for _, repo := range repos {
		group.Go(func() error {
			outcome := o.RemediateRepo(groupCtx, repo, mode, pinTarget)
			mu.Lock()
			summary.Outcomes = append(summary.Outcomes, outcome)
			mu.Unlock()
			return nil
		})
	}
	_ = group.Wait()

	return summary
}

// RemediateRepo advances one repository through the state machine and returns
// its terminal outcome.
func (o *Orchestrator) RemediateRepo(
	ctx context.Context,
	repo entities.Repository,
	mode entities.RemediationMode,
	pinTarget entities.PinTarget,
) entities.RepoOutcome {
	outcome := entities.RepoOutcome{
		RepoFullName: repo.FullName,
		Mode:         mode,
		Step:         entities.StepNew,
	}

	if repo.Archived {
		logger.Debugf("Skipping %s: repository is archived", repo.FullName)
		outcome.Step = entities.StepNoChange
		return outcome
	}

	duplicate, err := o.hasOpenPullRequest(ctx, repo, mode)
	if err != nil {
		return fail(outcome, entities.StepNew, err)
	}
	if duplicate {
		outcome.Step = entities.StepSkippedDuplicate
		return outcome
	}

	changes, err := o.planRepo(ctx, repo, mode, pinTarget)
	if err != nil {
		return fail(outcome, entities.StepNew, err)
	}
	if len(changes) == 0 {
		outcome.Step = entities.StepNoChange
		return outcome
	}

	branchName := branchPrefix + mode.Slug() + "-" + changesDigest(changes)
	outcome.BranchName = branchName

	if err = ctx.Err(); err != nil {
		return fail(outcome, entities.StepForkEnsured, err)
	}
	forkFullName, err := o.remote.EnsureFork(ctx, repo.FullName)
	if err != nil {
		return fail(outcome, entities.StepForkEnsured, err)
	}
	outcome.Step = entities.StepForkEnsured

	if err = ctx.Err(); err != nil {
		return fail(outcome, entities.StepBranchCreated, err)
	}
	baseSHA, err := o.createBranch(ctx, repo, forkFullName, branchName)
	if err != nil {
		return fail(outcome, entities.StepBranchCreated, err)
	}
	outcome.Step = entities.StepBranchCreated

	if err = ctx.Err(); err != nil {
		return fail(outcome, entities.StepFilesCommitted, err)
	}
	_, err = o.remote.CommitFiles(ctx, forkFullName, branchName, entities.BranchInput{
		BranchName:    branchName,
		BaseSHA:       baseSHA,
		Changes:       changes,
		CommitMessage: commitMessage(mode),
	})
	if err != nil {
		return fail(outcome, entities.StepFilesCommitted, err)
	}
	outcome.Step = entities.StepFilesCommitted

	if err = ctx.Err(); err != nil {
		return fail(outcome, entities.StepPROpened, err)
	}
	forkOwner, _, err := entities.SplitFullName(forkFullName)
	if err != nil {
		return fail(outcome, entities.StepPROpened, err)
	}
	pr, err := o.remote.OpenPullRequest(ctx, repo.FullName, entities.PullRequestInput{
		Head:  forkOwner + ":" + branchName,
		Base:  repo.DefaultBranch,
		Title: pullRequestTitle(mode),
		Body:  pullRequestBody(mode, changes),
		Draft: true,
	})
	if errors.Is(err, entities.ErrDuplicatePullRequest) {
		outcome.Step = entities.StepSkippedDuplicate
		return outcome
	}
	if err != nil {
		return fail(outcome, entities.StepPROpened, err)
	}
	outcome.Step = entities.StepPROpened
	outcome.PRNumber = pr.Number
	outcome.PRURL = pr.URL

	record := entities.PullRequestRecord{
		RepoFullName: repo.FullName,
		Mode:         mode,
		BranchName:   branchName,
		Number:       pr.Number,
		URL:          pr.URL,
		Status:       entities.PRStatusOpen,
		CreatedAt:    time.Now().UTC(),
	}
	if err = o.catalog.SavePullRequest(ctx, record); err != nil {
		logger.Warnf("Failed to record pull request %s#%d: %v", repo.FullName, pr.Number, err)
	}
	if err = o.tracker.Append(record); err != nil {
		logger.Warnf("Failed to append pull request %s#%d to tracker: %v", repo.FullName, pr.Number, err)
	}

	return outcome
}

// hasOpenPullRequest consults the catalog first, then the live API, so a
// record lost from the catalog still cannot produce a duplicate.
func (o *Orchestrator) hasOpenPullRequest(
	ctx context.Context,
	repo entities.Repository,
	mode entities.RemediationMode,
) (bool, error) {
	if _, found, err := o.catalog.OpenPullRequest(ctx, repo.FullName, mode); err != nil {
		return false, err
	} else if found {
		return true, nil
	}

	open, err := o.remote.ListOpenPullRequests(ctx, repo.FullName, branchPrefix+mode.Slug()+"-")
	if errors.Is(err, entities.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return len(open) > 0, nil
}

// planRepo scans every workflow file, supersedes the mention snapshot in the
// catalog and collects the rewrites for the requested mode.
func (o *Orchestrator) planRepo(
	ctx context.Context,
	repo entities.Repository,
	mode entities.RemediationMode,
	pinTarget entities.PinTarget,
) ([]entities.FileChange, error) {
	files, err := o.remote.ListWorkflowFiles(ctx, repo)
	if err != nil {
		return nil, err
	}

	var changes []entities.FileChange
	for _, path := range files {
		content, readErr := o.remote.GetFileContent(ctx, repo, path)
		if errors.Is(readErr, entities.ErrNotFound) {
			logger.Debugf("Skipping %s:%s: file vanished between listing and read", repo.FullName, path)
			continue
		}
		if readErr != nil {
			return nil, readErr
		}

		mentions := scanner.ScanFile(repo.FullName, path, content)
		if replaceErr := o.catalog.ReplaceMentions(ctx, repo.FullName, path, mentions); replaceErr != nil {
			return nil, replaceErr
		}
		if len(mentions) == 0 {
			continue
		}

		change, changed, planErr := o.planner.Plan(ctx, path, content, mentions, mode, pinTarget)
		if planErr != nil {
			return nil, planErr
		}
		if changed {
			changes = append(changes, change)
		}
	}
	return changes, nil
}

// createBranch creates the branch on the fork at the upstream head. A write
// conflict means another run moved the branch: the base is refreshed and the
// creation retried once.
func (o *Orchestrator) createBranch(
	ctx context.Context,
	repo entities.Repository,
	forkFullName, branchName string,
) (string, error) {
	baseSHA, err := o.remote.GetBranchHead(ctx, repo.FullName, repo.DefaultBranch)
	if err != nil {
		return "", err
	}

	err = o.remote.CreateBranch(ctx, forkFullName, branchName, baseSHA)
	if err == nil {
		return baseSHA, nil
	}
	if !errors.Is(err, entities.ErrWriteConflict) {
		return "", err
	}

	baseSHA, err = o.remote.GetBranchHead(ctx, repo.FullName, repo.DefaultBranch)
	if err != nil {
		return "", err
	}
	if err = o.remote.CreateBranch(ctx, forkFullName, branchName, baseSHA); err != nil {
		return "", err
	}
	return baseSHA, nil
}

func fail(outcome entities.RepoOutcome, step entities.Step, err error) entities.RepoOutcome {
	logger.Warnf("Remediation of %s stopped at %s: %v", outcome.RepoFullName, step, err)
	outcome.FailedStep = step
	outcome.Reason = err.Error()
	return outcome
}

// changesDigest derives the deterministic branch suffix from the planned
// content, so a re-run after a partial failure lands on the same branch.
func changesDigest(changes []entities.FileChange) string {
	hash := sha256.New()
	for _, change := range changes {
		hash.Write([]byte(change.Path))
		hash.Write([]byte{0})
		hash.Write([]byte(change.Content))
		hash.Write([]byte{0})
	}
	return hex.EncodeToString(hash.Sum(nil))[:10]
}

func commitMessage(mode entities.RemediationMode) string {
	if mode == entities.ModePinToSHA {
		return "chore(deps): pin GitHub Actions to commit SHAs"
	}
	return "chore(deps): update GitHub Actions to latest versions"
}

func pullRequestTitle(mode entities.RemediationMode) string {
	if mode == entities.ModePinToSHA {
		return "chore(deps): pin GitHub Actions to commit SHAs"
	}
	return "chore(deps): update GitHub Actions to latest versions"
}

func pullRequestBody(mode entities.RemediationMode, changes []entities.FileChange) string {
	var sb strings.Builder
	if mode == entities.ModePinToSHA {
		sb.WriteString("Pins the GitHub Actions used by this repository to immutable commit SHAs.\n")
	} else {
		sb.WriteString("Updates the GitHub Actions used by this repository to their latest stable versions.\n")
	}
	sb.WriteString("\nFiles changed:\n")
	for _, change := range changes {
		fmt.Fprintf(&sb, "- `%s`\n", change.Path)
	}
	sb.WriteString("\nOpened automatically by [actup](https://github.com/pgoslatara/actup).\n")
	return sb.String()
}
