package main

import "testing"

func TestNewSyncCmdAcceptsOptionalTaskID(t *testing.T) {
	cmd := newSyncCmd()

	if cmd.Use != "sync [taskId]" {
		t.Errorf("unexpected Use: %s", cmd.Use)
	}
	if err := cmd.Args(cmd, []string{}); err != nil {
		t.Errorf("expected zero args to be valid, got %v", err)
	}
	if err := cmd.Args(cmd, []string{"42"}); err != nil {
		t.Errorf("expected one arg to be valid, got %v", err)
	}
	if err := cmd.Args(cmd, []string{"42", "99"}); err == nil {
		t.Error("expected two args to be rejected")
	}
}

func TestNewSyncCmdRegistersConflictSubcommands(t *testing.T) {
	cmd := newSyncCmd()

	names := map[string]bool{}
	for _, c := range cmd.Commands() {
		names[c.Name()] = true
	}
	if !names["conflicts"] {
		t.Error("expected a conflicts subcommand")
	}
	if !names["resolve"] {
		t.Error("expected a resolve subcommand")
	}
}

func TestNewResolveCmdRequiresExactlyOneArg(t *testing.T) {
	cmd := newResolveCmd()

	if err := cmd.Args(cmd, []string{}); err == nil {
		t.Error("expected zero args to be rejected")
	}
	if err := cmd.Args(cmd, []string{"42"}); err != nil {
		t.Errorf("expected one arg to be valid, got %v", err)
	}
}
