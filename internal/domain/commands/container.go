package commands

import (
	"go.uber.org/dig"

	infraRepos "github.com/pgoslatara/actup/internal/infrastructure/repositories"
)

// RegisterProviders registers all command providers with the DIG container.
func RegisterProviders(container *dig.Container) error {
	// Bind the infrastructure factories to the provider interfaces
	if err := container.Provide(func(impl *infraRepos.RemoteFactory) RemoteProvider {
		return impl
	}); err != nil {
		return err
	}
	if err := container.Provide(func(impl *infraRepos.CatalogFactory) CatalogProvider {
		return impl
	}); err != nil {
		return err
	}

	// Register command constructors
	constructors := []any{
		NewInitCommand,
		NewDiscoverCommand,
		NewScanCommand,
		NewResolveCommand,
		NewRemediateCommand,
		NewReportCommand,
	}
	for _, constructor := range constructors {
		if err := container.Provide(constructor); err != nil {
			return err
		}
	}

	// Bind interfaces to implementations
	if err := container.Provide(func(impl *InitCommand) Init { return impl }); err != nil {
		return err
	}
	if err := container.Provide(func(impl *DiscoverCommand) Discover { return impl }); err != nil {
		return err
	}
	if err := container.Provide(func(impl *ScanCommand) Scan { return impl }); err != nil {
		return err
	}
	if err := container.Provide(func(impl *ResolveCommand) Resolve { return impl }); err != nil {
		return err
	}
	if err := container.Provide(func(impl *RemediateCommand) Remediate { return impl }); err != nil {
		return err
	}
	if err := container.Provide(func(impl *ReportCommand) Report { return impl }); err != nil {
		return err
	}

	return nil
}
