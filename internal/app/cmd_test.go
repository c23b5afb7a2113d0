package app

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want Command
	}{
		{"引数なしはserve", []string{}, CommandServe},
		{"serve", []string{"serve"}, CommandServe},
		{"worker", []string{"worker"}, CommandWorker},
		{"migrate", []string{"migrate"}, CommandMigrate},
		{"healthcheck", []string{"healthcheck"}, CommandHealthcheck},
		{"help", []string{"help"}, CommandHelp},
		{"--help", []string{"--help"}, CommandHelp},
		{"-h", []string{"-h"}, CommandHelp},
		{"余分な引数は無視", []string{"worker", "--flag", "value"}, CommandWorker},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCommand(tt.args)
			if err != nil {
				t.Fatalf("ParseCommand(%v) returned error: %v", tt.args, err)
			}
			if got != tt.want {
				t.Errorf("ParseCommand(%v) = %q, want %q", tt.args, got, tt.want)
			}
		})
	}
}

func TestParseCommand_UnknownReturnsError(t *testing.T) {
	cmd, err := ParseCommand([]string{"fetch"})
	if err == nil {
		t.Fatalf("expected error for unknown command, got %q", cmd)
	}
	if !strings.Contains(err.Error(), "fetch") {
		t.Errorf("error should name the command: %v", err)
	}
}

func TestPrintUsage_ListsAllCommands(t *testing.T) {
	var buf bytes.Buffer
	PrintUsage(&buf)

	for _, u := range commandUsage {
		if !strings.Contains(buf.String(), string(u.cmd)) {
			t.Errorf("usage should list %q:\n%s", u.cmd, buf.String())
		}
	}
}

func TestRun_Help_PrintsUsageWithoutConfig(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	var buf bytes.Buffer
	if err := Run(&buf, []string{"help"}); err != nil {
		t.Fatalf("help should not require config: %v", err)
	}
	if !strings.Contains(buf.String(), "usage: fitlog") {
		t.Errorf("expected usage output, got %s", buf.String())
	}
}

func TestRun_UnknownCommand_ReturnsError(t *testing.T) {
	var buf bytes.Buffer
	if err := Run(&buf, []string{"fetch"}); err == nil {
		t.Fatal("unknown command should return error")
	}
	if !strings.Contains(buf.String(), "usage: fitlog") {
		t.Errorf("usage should be printed for unknown command, got %s", buf.String())
	}
}
