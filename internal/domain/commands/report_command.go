package commands

import (
	"context"

	logger "github.com/sirupsen/logrus"

	"github.com/pgoslatara/actup/internal/domain/entities"
)

// Report is the interface for the report command.
type Report interface {
	Execute(ctx context.Context, settings *entities.Settings) error
}

// ReportCommand summarizes the catalog: pull request history (with open
// records refreshed against the live API) and tag-moved anomalies.
type ReportCommand struct {
	remotes  RemoteProvider
	catalogs CatalogProvider
}

func NewReportCommand(remotes RemoteProvider, catalogs CatalogProvider) *ReportCommand {
	return &ReportCommand{remotes: remotes, catalogs: catalogs}
}

func (it *ReportCommand) Execute(ctx context.Context, settings *entities.Settings) error {
	remote := it.remotes.Get(settings.Token)
	store, err := it.catalogs.Open(ctx, settings.DatabaseFile)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.ListPullRequests(ctx)
	if err != nil {
		return err
	}

	counts := map[entities.PRStatus]int{}
	for _, record := range records {
		if record.Status == entities.PRStatusOpen {
			state, stateErr := remote.GetPullRequestState(ctx, record.RepoFullName, record.Number)
			if stateErr != nil {
				logger.Warnf("Failed to refresh %s#%d: %v", record.RepoFullName, record.Number, stateErr)
			} else if state != string(entities.PRStatusOpen) {
				record.Status = entities.PRStatus(state)
				if updateErr := store.UpdatePullRequestStatus(ctx, record.RepoFullName, record.Number, record.Status); updateErr != nil {
					return updateErr
				}
			}
		}

		counts[record.Status]++
		logger.Infof("%s %s #%d [%s] %s",
			record.RepoFullName, record.Mode, record.Number, record.Status, record.URL)
	}

	logger.Infof("Pull requests: %d total, %d open, %d merged, %d closed, %d skipped",
		len(records),
		counts[entities.PRStatusOpen],
		counts[entities.PRStatusMerged],
		counts[entities.PRStatusClosed],
		counts[entities.PRStatusSkippedDuplicate],
	)

	moved, err := store.ListMovedPins(ctx)
	if err != nil {
		return err
	}
	for _, pin := range moved {
		logger.Warnf("Tag %s/%s@%s moved: pinned %s, remote now %s",
			pin.Owner, pin.Name, pin.Tag, pin.SHA, pin.MovedSHA)
	}
	if len(moved) == 0 {
		logger.Info("No tag-moved anomalies recorded")
	}

	return nil
}
