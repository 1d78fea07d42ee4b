package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	devenv "citaprevia/dev/env"
)

func create(recreate bool) error {
	root, err := devenv.GetWorkspaceRoot()
	if os.IsNotExist(err) {
		return fmt.Errorf("the dev environment must be created inside the repository (below the directory holding 'go.mod')")
	}
	if err != nil {
		return err
	}

	state, err := devenv.GetStateDir()
	if err != nil {
		return err
	}
	if recreate {
		err = os.RemoveAll(state)
		if err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	err = os.MkdirAll(state, 0777)
	if err != nil {
		return err
	}

	err = WriteTemplates(root, state)
	if err != nil {
		return err
	}
	PrintConfigLocations(root, state)

	return nil
}

func main() {
	recreate := flag.Bool("recreate", false, "recreate the dev environment from scratch")
	flag.Parse()

	err := create(*recreate)
	if err != nil {
		slog.Error("failed to create dev environment", "err", err.Error())
		os.Exit(1)
	}

	slog.Info("dev environment created sucessfully!")
}
