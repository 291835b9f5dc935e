package cmd

import (
	"testing"
)

// TestEvaluateCommand_Structure tests command is properly configured
func TestEvaluateCommand_Structure(t *testing.T) {
	if evaluateCmd == nil {
		t.Fatal("evaluateCmd is nil")
	}

	if evaluateCmd.Use != "evaluate" {
		t.Errorf("expected Use='evaluate', got '%s'", evaluateCmd.Use)
	}

	if evaluateCmd.RunE == nil {
		t.Error("RunE function is nil")
	}
}

// TestEvaluateCommand_Flags tests command flags are defined
func TestEvaluateCommand_Flags(t *testing.T) {
	betTypeFlag := evaluateCmd.Flags().Lookup("bet-type")
	if betTypeFlag == nil {
		t.Fatal("bet-type flag not defined")
	}

	if betTypeFlag.Shorthand != "b" {
		t.Errorf("expected bet-type shorthand 'b', got '%s'", betTypeFlag.Shorthand)
	}

	depthFlag := evaluateCmd.Flags().Lookup("depth")
	if depthFlag == nil {
		t.Fatal("depth flag not defined")
	}

	if depthFlag.DefValue != "standard" {
		t.Errorf("expected depth default 'standard', got '%s'", depthFlag.DefValue)
	}

	persistFlag := evaluateCmd.Flags().Lookup("persist")
	if persistFlag == nil {
		t.Fatal("persist flag not defined")
	}

	if persistFlag.DefValue != "false" {
		t.Errorf("expected persist default 'false', got '%s'", persistFlag.DefValue)
	}

	for _, name := range []string{"home", "away", "player", "stat", "line"} {
		if evaluateCmd.Flags().Lookup(name) == nil {
			t.Errorf("%s flag not defined", name)
		}
	}
}

// TestServeCommand_Flags tests serve flags are defined
func TestServeCommand_Flags(t *testing.T) {
	if serveCmd.Flags().Lookup("dry-run") == nil {
		t.Error("dry-run flag not defined")
	}

	if serveCmd.Flags().Lookup("no-schedulers") == nil {
		t.Error("no-schedulers flag not defined")
	}
}

// TestRootCommand_Subcommands tests every subcommand is registered
func TestRootCommand_Subcommands(t *testing.T) {
	want := []string{"serve", "evaluate", "settle", "learn", "calibration"}

	registered := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		registered[c.Use] = true
	}

	for _, name := range want {
		if !registered[name] {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}
