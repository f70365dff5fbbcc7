// Copyright (c) 2025 vpo authors
// SPDX-License-Identifier: MIT

// vpo-validate is a CLI tool to validate a VPO policy document offline,
// without evaluating it against any media file (spec §6.5, §6.6).
//
// Usage:
//
//	vpo-validate -f policy.yaml
//	vpo-validate --file policy.yaml
//
// Exit codes:
//   - 0: policy is valid (unknown-field warnings, if any, are non-fatal)
//   - 1: policy error (parse failure or semantic validation error)
//   - 2: usage error (missing required flag)
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/vpoeng/vpo/internal/policy"
)

var Version = "dev"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("vpo-validate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var file string
	var showVersion bool
	fs.StringVar(&file, "file", "", "path to the policy YAML document")
	fs.StringVar(&file, "f", "", "path to the policy YAML document (shorthand)")
	fs.BoolVar(&showVersion, "version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if showVersion {
		fmt.Println(Version)
		return 0
	}

	if file == "" {
		fmt.Fprintln(os.Stderr, "Error: --file is required")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, "  vpo-validate -f policy.yaml")
		fmt.Fprintln(os.Stderr, "  vpo-validate --file policy.yaml")
		return 2
	}

	data, err := os.ReadFile(file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error in %s:\n", file)
		fmt.Fprintf(os.Stderr, "  %v\n", err)
		return 1
	}

	pol, warnings, err := policy.LoadYAML(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error in %s:\n", file)
		fmt.Fprintf(os.Stderr, "  %v\n", err)
		return 1
	}

	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "warning: unrecognized field %s\n", w.Path)
	}

	fmt.Printf("%s is valid (%d phase(s), schema_version=%d)\n", file, len(pol.Phases), pol.SchemaVersion)
	return 0
}
