package main

import "testing"

func TestNewInitCmdHasForceFlag(t *testing.T) {
	cmd := newInitCmd()

	if cmd.Flags().Lookup("force") == nil {
		t.Error("expected --force flag")
	}
}
