package main

import (
	"go.uber.org/dig"

	"github.com/pgoslatara/actup/internal"
)

func injectAppContext() *internal.AppContext {
	container := dig.New()

	// Register all providers
	if err := internal.RegisterProviders(container); err != nil {
		panic(err)
	}

	// Invoke to get the AppContext
	var appContext *internal.AppContext
	if err := container.Invoke(func(ac *internal.AppContext) {
		appContext = ac
	}); err != nil {
		panic(err)
	}

	return appContext
}
