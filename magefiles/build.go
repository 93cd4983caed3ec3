//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Builds the soak runner into bin/geostore.
func (Build) Binary() error {
	_, err := executeCmd("go", withArgs("build", "-o", "bin/geostore", "."), withStream())
	return err
}

// Tidies the module requirements.
func (Build) Tidy() error {
	_, err := executeCmd("go", withArgs("mod", "tidy"), withStream())
	return err
}
