package main

import (
	"strings"
	"testing"
)

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := newRootCommand()
	for _, name := range []string{"serve", "prune-tokens", "smoke"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Fatalf("expected subcommand %q, got %v err=%v", name, cmd, err)
		}
	}
	if root.PersistentFlags().Lookup("ci") == nil || root.PersistentFlags().Lookup("env-file") == nil {
		t.Fatal("expected persistent ci and env-file flags")
	}
}

func TestSmokeRequiresCredentials(t *testing.T) {
	t.Setenv("SMOKE_EMAIL", "")
	t.Setenv("SMOKE_PASSWORD", "")
	root := newRootCommand()
	root.SetArgs([]string{"smoke", "--ci", "--env-file", t.TempDir() + "/none.env"})
	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "required") {
		t.Fatalf("expected missing credential error, got %v", err)
	}
}
