//go:build mage

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Runs the soak workload. GEOSTORE_CONFIG selects a configuration file.
func (Run) Soak() error {
	mg.Deps(Build.Binary)

	args := []string{}
	if path := os.Getenv("GEOSTORE_CONFIG"); path != "" {
		args = append(args, "-config", path)
	}
	fmt.Println("Run soak...")
	_, err := executeCmd("bin/geostore", withArgs(args...), withStream())
	return err
}

// Prints the default configuration.
func (Run) Config() error {
	_, err := executeCmd("go", withArgs("run", ".", "-write-config"), withStream(), withDir("."))
	return err
}
