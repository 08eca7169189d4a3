package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"ember/internal/driver"
	"ember/internal/project"
	"ember/internal/ui"
)

type checkOutcome struct {
	result *driver.ProjectResult
	err    error
}

func checkProjectWithUI(ctx context.Context, manifest *project.Manifest, opts driver.Options) (*driver.ProjectResult, error) {
	modules, err := driver.ListModules(manifest)
	if err != nil {
		return nil, err
	}

	events := make(chan driver.PhaseEvent, 256)
	outcomeCh := make(chan checkOutcome, 1)

	go func() {
		optsCopy := opts
		optsCopy.Observer = func(ev driver.PhaseEvent) {
			events <- ev
		}
		res, err := driver.CheckProject(ctx, manifest, optsCopy)
		outcomeCh <- checkOutcome{result: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel("checking "+manifest.Config.Package.Name, modules, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.result, uiErr
	}
	return outcome.result, outcome.err
}
