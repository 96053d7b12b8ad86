package main

import (
	"testing"

	"github.com/spf13/cobra"
)

func findCommand(root *cobra.Command, name string) *cobra.Command {
	for _, c := range root.Commands() {
		if c.Name() == name {
			return c
		}
	}
	return nil
}

func TestRootHasExpectedVerbs(t *testing.T) {
	root := buildRoot()
	for _, name := range []string{"start", "stop", "status", "setup"} {
		if findCommand(root, name) == nil {
			t.Fatalf("missing command: %s", name)
		}
	}
	if root.PersistentFlags().Lookup("config") == nil {
		t.Fatalf("missing persistent --config flag")
	}
}

func TestStartStopFlags(t *testing.T) {
	root := buildRoot()
	start := findCommand(root, "start")
	if start.Flags().Lookup("no-ui") == nil {
		t.Fatalf("start must expose --no-ui")
	}
	stop := findCommand(root, "stop")
	f := stop.Flags().Lookup("force")
	if f == nil || f.Shorthand != "f" {
		t.Fatalf("stop must expose --force/-f")
	}
}

func TestSetupHasDownloadModel(t *testing.T) {
	root := buildRoot()
	setup := findCommand(root, "setup")
	if setup.Flags().Lookup("skip-model") == nil {
		t.Fatalf("setup must expose --skip-model")
	}
	if findCommand(setup, "download-model") == nil {
		t.Fatalf("setup must have download-model subcommand")
	}
}
