package main

import "testing"

func TestNewRunCmdUse(t *testing.T) {
	cmd := newRunCmd()

	if cmd.Use != "run" {
		t.Errorf("unexpected Use: %s", cmd.Use)
	}
	if cmd.RunE == nil {
		t.Error("expected RunE to be set")
	}
}
