package main

import "testing"

func TestNewQueueCmdRegistersSubcommands(t *testing.T) {
	cmd := newQueueCmd()

	want := []string{"len", "dead-letter", "requeue", "drop"}
	names := map[string]bool{}
	for _, c := range cmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range want {
		if !names[name] {
			t.Errorf("expected queue subcommand %q, got %v", name, names)
		}
	}
}

func TestNewQueueRequeueCmdRequiresOneArg(t *testing.T) {
	cmd := newQueueRequeueCmd()

	if err := cmd.Args(cmd, []string{}); err == nil {
		t.Error("expected zero args to be rejected")
	}
	if err := cmd.Args(cmd, []string{"id"}); err != nil {
		t.Errorf("expected one arg to be valid, got %v", err)
	}
}

func TestNewQueueDropCmdRequiresOneArg(t *testing.T) {
	cmd := newQueueDropCmd()

	if err := cmd.Args(cmd, []string{"id1", "id2"}); err == nil {
		t.Error("expected two args to be rejected")
	}
}
