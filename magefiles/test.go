//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Test mg.Namespace

// Runs every package's tests.
func (Test) Unit() error {
	return goTest("-count=1", "./...")
}

// Runs the tests with the race detector; the soak tests exercise the
// producer and the software consumer concurrently.
func (Test) Race() error {
	return goTest("-race", "-count=1", "./engine/...", "./testbed/...")
}
