package commands

import (
	"context"
	"errors"
	"time"

	logger "github.com/sirupsen/logrus"

	"github.com/pgoslatara/actup/internal/domain/entities"
	"github.com/pgoslatara/actup/internal/domain/repositories"
	"github.com/pgoslatara/actup/internal/scanner"
)

// Scan is the interface for the scan command.
type Scan interface {
	Execute(ctx context.Context, settings *entities.Settings, repos []string) error
}

// ScanCommand reads the workflow files of the target repositories, extracts
// every action mention and supersedes the per-file snapshots in the catalog.
// Actions seen for the first time are seeded into the action table.
type ScanCommand struct {
	remotes  RemoteProvider
	catalogs CatalogProvider
}

func NewScanCommand(remotes RemoteProvider, catalogs CatalogProvider) *ScanCommand {
	return &ScanCommand{remotes: remotes, catalogs: catalogs}
}

func (it *ScanCommand) Execute(ctx context.Context, settings *entities.Settings, repos []string) error {
	remote := it.remotes.Get(settings.Token)
	store, err := it.catalogs.Open(ctx, settings.DatabaseFile)
	if err != nil {
		return err
	}
	defer store.Close()

	targets, err := it.targets(ctx, settings, store, repos)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		logger.Warn("Nothing to scan: no repositories configured or discovered")
		return nil
	}

	totalMentions := 0
	scanned := 0
	failed := 0
	for _, fullName := range targets {
		if settings.Excluded(fullName) {
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		count, scanErr := it.scanRepository(ctx, remote, store, fullName)
		if errors.Is(scanErr, entities.ErrNotFound) {
			logger.Warnf("Skipping %s: repository not found", fullName)
			continue
		}
		// One broken repository must not starve the rest of the scan.
		if scanErr != nil {
			logger.Warnf("Failed to scan %s: %v", fullName, scanErr)
			failed++
			continue
		}
		scanned++
		totalMentions += count
	}

	logger.Infof("Scanned %d repositories (%d failed), %d action mentions",
		scanned, failed, totalMentions)
	return nil
}

func (it *ScanCommand) targets(
	ctx context.Context,
	settings *entities.Settings,
	store repositories.CatalogRepository,
	repos []string,
) ([]string, error) {
	if len(repos) > 0 {
		return repos, nil
	}
	if len(settings.Repositories) > 0 {
		return settings.Repositories, nil
	}

	discovered, err := store.ListRepositories(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(discovered))
	for _, repo := range discovered {
		names = append(names, repo.FullName)
	}
	return names, nil
}

func (it *ScanCommand) scanRepository(
	ctx context.Context,
	remote repositories.RemoteRepository,
	store repositories.CatalogRepository,
	fullName string,
) (int, error) {
	repo, err := remote.GetRepository(ctx, fullName)
	if err != nil {
		return 0, err
	}
	if err = store.SaveRepository(ctx, repo); err != nil {
		return 0, err
	}

	files, err := remote.ListWorkflowFiles(ctx, repo)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, path := range files {
		content, readErr := remote.GetFileContent(ctx, repo, path)
		if errors.Is(readErr, entities.ErrNotFound) {
			logger.Debugf("Skipping %s:%s: file vanished between listing and read", fullName, path)
			continue
		}
		if readErr != nil {
			return 0, readErr
		}

		mentions := scanner.ScanFile(fullName, path, content)
		for i := range mentions {
			mentions[i].ScannedAt = time.Now().UTC()
			if markErr := it.markKnown(ctx, store, &mentions[i]); markErr != nil {
				return 0, markErr
			}
		}
		if replaceErr := store.ReplaceMentions(ctx, fullName, path, mentions); replaceErr != nil {
			return 0, replaceErr
		}
		total += len(mentions)
	}

	logger.Debugf("Scanned %s: %d files, %d mentions", fullName, len(files), total)
	return total, nil
}

// markKnown flags mentions of actions already in the catalog and seeds
// first-seen actions so the resolver can enrich them later.
func (it *ScanCommand) markKnown(
	ctx context.Context,
	store repositories.CatalogRepository,
	mention *entities.Mention,
) error {
	_, found, err := store.GetAction(ctx, mention.Owner, mention.Name)
	if err != nil {
		return err
	}
	mention.Known = found
	if found {
		return nil
	}
	return store.SaveAction(ctx, entities.Action{
		Owner:     mention.Owner,
		Name:      mention.Name,
		CheckedAt: time.Now().UTC(),
	})
}
