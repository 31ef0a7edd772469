package commands

import (
	"context"
	"errors"

	logger "github.com/sirupsen/logrus"

	"github.com/pgoslatara/actup/internal/domain/entities"
	"github.com/pgoslatara/actup/internal/domain/repositories"
	"github.com/pgoslatara/actup/internal/orchestrator"
	"github.com/pgoslatara/actup/internal/planner"
	"github.com/pgoslatara/actup/internal/resolver"
)

// Remediate is the interface for the remediate command.
type Remediate interface {
	Execute(ctx context.Context, settings *entities.Settings, opts RemediateOptions) error
}

// RemediateOptions selects the rewrite mode and optionally narrows the
// target repositories.
type RemediateOptions struct {
	Mode  entities.RemediationMode
	Repos []string
}

// RemediateCommand runs the full pipeline over the target repositories with
// a bounded worker pool: scan, plan, fork, branch, commit, pull request.
type RemediateCommand struct {
	remotes  RemoteProvider
	catalogs CatalogProvider
}

func NewRemediateCommand(remotes RemoteProvider, catalogs CatalogProvider) *RemediateCommand {
	return &RemediateCommand{remotes: remotes, catalogs: catalogs}
}

func (it *RemediateCommand) Execute(ctx context.Context, settings *entities.Settings, opts RemediateOptions) error {
	remote := it.remotes.Get(settings.Token)
	store, err := it.catalogs.Open(ctx, settings.DatabaseFile)
	if err != nil {
		return err
	}
	defer store.Close()

	repos, err := it.targets(ctx, remote, store, settings, opts.Repos)
	if err != nil {
		return err
	}
	if len(repos) == 0 {
		logger.Warn("Nothing to remediate: no repositories configured or discovered")
		return nil
	}

	res := resolver.New(remote, store)
	subject := orchestrator.New(remote, store, planner.New(res), it.catalogs.Tracker(settings.TrackerFile))

	logger.Infof("Remediating %d repositories in %s mode with %d workers",
		len(repos), opts.Mode, settings.Workers)
	summary := subject.RemediateAll(ctx, repos, opts.Mode, settings.PinTarget, settings.Workers)

	for _, outcome := range summary.Outcomes {
		switch {
		case outcome.Failed():
			logger.Warnf("%s: failed at %s: %s", outcome.RepoFullName, outcome.FailedStep, outcome.Reason)
		case outcome.Step == entities.StepPROpened:
			logger.Infof("%s: opened %s", outcome.RepoFullName, outcome.PRURL)
		default:
			logger.Debugf("%s: %s", outcome.RepoFullName, outcome.Step)
		}
	}

	opened, skipped, unchanged, failed := summary.Counts()
	logger.Infof("Done: %d opened, %d skipped, %d unchanged, %d failed",
		opened, skipped, unchanged, failed)
	return nil
}

func (it *RemediateCommand) targets(
	ctx context.Context,
	remote repositories.RemoteRepository,
	store repositories.CatalogRepository,
	settings *entities.Settings,
	explicit []string,
) ([]entities.Repository, error) {
	names := explicit
	if len(names) == 0 {
		names = settings.Repositories
	}

	if len(names) == 0 {
		discovered, err := store.ListRepositories(ctx)
		if err != nil {
			return nil, err
		}
		var repos []entities.Repository
		for _, repo := range discovered {
			if !settings.Excluded(repo.FullName) {
				repos = append(repos, repo)
			}
		}
		return repos, nil
	}

	var repos []entities.Repository
	for _, fullName := range names {
		if settings.Excluded(fullName) {
			continue
		}
		repo, err := remote.GetRepository(ctx, fullName)
		if errors.Is(err, entities.ErrNotFound) {
			logger.Warnf("Skipping %s: repository not found", fullName)
			continue
		}
		if err != nil {
			return nil, err
		}
		repos = append(repos, repo)
	}
	return repos, nil
}
