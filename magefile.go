//go:build mage
// +build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

var Default = Build

// Build compiles the fpgaseq command into bin/.
func Build() error {
	mg.Deps(Generate)
	fmt.Println("Building fpgaseq...")

	return sh.RunV("go", "build", "-o", "./bin/fpgaseq", "./cmd/fpgaseq")
}

// Generate refreshes the mocks used by the tests.
func Generate() error {
	return sh.RunV("go", "generate", "./...")
}

// Test runs every suite.
func Test() error {
	mg.Deps(Generate)

	return sh.RunV("ginkgo", "-r", "--race")
}

// Lint runs golangci-lint.
func Lint() error {
	return sh.RunV("golangci-lint", "run", "./...")
}

func Clean() error {
	return sh.Rm("bin")
}
