package commands

import (
	"context"
	"errors"
	"time"

	logger "github.com/sirupsen/logrus"

	"github.com/pgoslatara/actup/internal/domain/entities"
	"github.com/pgoslatara/actup/internal/domain/repositories"
	"github.com/pgoslatara/actup/internal/resolver"
)

// Resolve is the interface for the resolve command.
type Resolve interface {
	Execute(ctx context.Context, settings *entities.Settings, opts ResolveOptions) error
}

// ResolveOptions narrows resolution to a single action and tag. When empty,
// every known action is refreshed and every tag mention pinned.
type ResolveOptions struct {
	Action string // "owner/name"
	Tag    string
}

// ResolveCommand enriches the catalog: latest stable version per action and
// a permanent SHA pin per (action, tag) pair seen in scans.
type ResolveCommand struct {
	remotes  RemoteProvider
	catalogs CatalogProvider
}

func NewResolveCommand(remotes RemoteProvider, catalogs CatalogProvider) *ResolveCommand {
	return &ResolveCommand{remotes: remotes, catalogs: catalogs}
}

func (it *ResolveCommand) Execute(ctx context.Context, settings *entities.Settings, opts ResolveOptions) error {
	remote := it.remotes.Get(settings.Token)
	store, err := it.catalogs.Open(ctx, settings.DatabaseFile)
	if err != nil {
		return err
	}
	defer store.Close()

	res := resolver.New(remote, store)

	if opts.Action != "" {
		return it.resolveOne(ctx, res, opts)
	}
	if err = it.resolveActions(ctx, res, store); err != nil {
		return err
	}
	if err = it.resolvePins(ctx, res, store); err != nil {
		return err
	}
	return it.reportMovedPins(ctx, store)
}

func (it *ResolveCommand) resolveOne(ctx context.Context, res *resolver.Resolver, opts ResolveOptions) error {
	owner, name, err := entities.SplitFullName(opts.Action)
	if err != nil {
		return err
	}

	if opts.Tag == "" {
		latest, latestErr := res.LatestStable(ctx, owner, name)
		if latestErr != nil {
			return latestErr
		}
		logger.Infof("%s latest stable version: %s", opts.Action, latest)
		return nil
	}

	sha, err := res.ResolveSHA(ctx, owner, name, opts.Tag)
	if err != nil {
		return err
	}
	logger.Infof("%s@%s -> %s", opts.Action, opts.Tag, sha)
	return nil
}

func (it *ResolveCommand) resolveActions(
	ctx context.Context,
	res *resolver.Resolver,
	store repositories.CatalogRepository,
) error {
	actions, err := store.ListActions(ctx)
	if err != nil {
		return err
	}

	refreshed := 0
	failed := 0
	for _, action := range actions {
		latest, latestErr := res.LatestStable(ctx, action.Owner, action.Name)
		switch {
		case errors.Is(latestErr, entities.ErrAmbiguousVersion):
			logger.Debugf("Skipping %s: no stable version", action.FullName())
			continue
		case errors.Is(latestErr, entities.ErrNotFound):
			logger.Warnf("Skipping %s: repository not found", action.FullName())
			continue
		// One broken action must not starve the rest of the refresh.
		case latestErr != nil:
			logger.Warnf("Failed to resolve latest version for %s: %v",
				action.FullName(), latestErr)
			failed++
			continue
		}

		action.LatestVersion = latest
		action.CheckedAt = time.Now().UTC()
		if saveErr := store.SaveAction(ctx, action); saveErr != nil {
			return saveErr
		}
		refreshed++
	}

	logger.Infof("Refreshed latest versions for %d of %d actions (%d failed)",
		refreshed, len(actions), failed)
	return nil
}

func (it *ResolveCommand) resolvePins(
	ctx context.Context,
	res *resolver.Resolver,
	store repositories.CatalogRepository,
) error {
	repos, err := store.ListMentionedRepositories(ctx)
	if err != nil {
		return err
	}

	pinned := 0
	failed := 0
	for _, fullName := range repos {
		mentions, listErr := store.ListMentions(ctx, fullName)
		if listErr != nil {
			return listErr
		}
		for _, mention := range mentions {
			if mention.Kind != entities.RefKindTag {
				continue
			}
			_, resolveErr := res.ResolveSHA(ctx, mention.Owner, mention.Name, mention.Ref)
			if errors.Is(resolveErr, entities.ErrNotFound) {
				logger.Warnf("Skipping %s@%s: tag has no resolvable commit",
					mention.ActionFullName(), mention.Ref)
				continue
			}
			// One unresolvable mention must not starve the rest.
			if resolveErr != nil {
				logger.Warnf("Failed to pin %s@%s: %v",
					mention.ActionFullName(), mention.Ref, resolveErr)
				failed++
				continue
			}
			pinned++
		}
	}

	logger.Infof("Resolved SHA pins for %d tag mentions (%d failed)", pinned, failed)
	return nil
}

func (it *ResolveCommand) reportMovedPins(ctx context.Context, store repositories.CatalogRepository) error {
	moved, err := store.ListMovedPins(ctx)
	if err != nil {
		return err
	}
	for _, pin := range moved {
		logger.Warnf("Tag %s/%s@%s moved: pinned %s, remote now %s",
			pin.Owner, pin.Name, pin.Tag, pin.SHA, pin.MovedSHA)
	}
	return nil
}
