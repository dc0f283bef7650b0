//go:build mage
// +build mage

package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/magefile/mage/mg"
)

// Default target to run when none is specified
// If not set, running mage will list available targets
var Default = Build

// Build compiles both correction tools into ./bin
func Build() error {
	mg.Deps(BuildFixAmpSf)
	mg.Deps(BuildRingCorrect)
	fmt.Println("Compilation finished")
	return nil
}

func BuildFixAmpSf() error {
	fmt.Println("Building fixampsf executable...")
	return goCommand("build", "-o", "./bin/fixampsf", "./fixampsf")
}

func BuildRingCorrect() error {
	fmt.Println("Building ringcorrect executable...")
	return goCommand("build", "-o", "./bin/ringcorrect", "./ringcorrect")
}

// Test runs the package tests
func Test() error {
	fmt.Println("Running tests...")
	return goCommand("test", "./...")
}

// libhdf5 is linked through cgo, the flags come from the environment
func goCommand(args ...string) error {
	ldflags := os.Getenv("CGO_LDFLAGS")
	cflags := os.Getenv("CGO_CFLAGS")
	cmd := exec.Command("go", args...)
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("CGO_ENABLED=1"),
		fmt.Sprintf("CGO_LDFLAGS=%s", ldflags),
		fmt.Sprintf("CGO_CFLAGS=%s", cflags))
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
