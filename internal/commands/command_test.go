package commands

import (
	"errors"
	"testing"
)

func TestParseSupportedCommands(t *testing.T) {
	cases := []struct {
		in       string
		typeWant Type
	}{
		{"/snooze task-1 10min", TypeSnooze},
		{"check", TypeCheck},
		{"check patterns", TypeCheck},
		{"pause pat-1", TypePause},
		{"/resume pat-1", TypeResume},
		{"done task-9", TypeDone},
		{"cancel rem-2", TypeCancel},
		{"show reminders tag:finance", TypeShow},
	}

	for _, tc := range cases {
		cmd, err := Parse(tc.in)
		if err != nil {
			t.Fatalf("parse %q failed: %v", tc.in, err)
		}
		if cmd.Type != tc.typeWant {
			t.Fatalf("parse %q type = %s, want %s", tc.in, cmd.Type, tc.typeWant)
		}
	}
}

func TestParseArguments(t *testing.T) {
	cmd, err := Parse("snooze Task-1 + 45min")
	if err != nil {
		t.Fatalf("parse snooze: %v", err)
	}
	if cmd.Snooze.Subject != "Task-1" || cmd.Snooze.Preset != "+45min" {
		t.Fatalf("unexpected snooze args: %+v", cmd.Snooze)
	}

	cmd, err = Parse("check")
	if err != nil || cmd.Check.Scope != "all" {
		t.Fatalf("check should default to all: %+v err=%v", cmd.Check, err)
	}

	cmd, err = Parse("show patterns tag:Home")
	if err != nil {
		t.Fatalf("parse show: %v", err)
	}
	if cmd.Show.Subject != "patterns" || cmd.Show.Tag != "Home" {
		t.Fatalf("unexpected show args: %+v", cmd.Show)
	}
}

func TestParseRejectsBadArguments(t *testing.T) {
	for _, in := range []string{"snooze task-1", "pause", "done a b", "check everything", "show calendar", "  /  "} {
		_, err := Parse(in)
		if err == nil {
			t.Fatalf("parse %q: expected error", in)
		}
		var ce *CommandError
		if !errors.As(err, &ce) {
			t.Fatalf("parse %q: expected CommandError, got %T", in, err)
		}
		if ce.Code != ErrCodeInvalidArgument && ce.Code != ErrCodeEmptyInput {
			t.Fatalf("parse %q: unexpected code %s", in, ce.Code)
		}
	}
}

func TestParseUnknownCommand(t *testing.T) {
	_, err := Parse("/unknown do x")
	if err == nil {
		t.Fatal("expected error")
	}
	var ce *CommandError
	if !errors.As(err, &ce) || ce.Code != ErrCodeUnknownCommand {
		t.Fatalf("expected unknown command error, got %v", err)
	}
}

func TestExecuteDispatch(t *testing.T) {
	cmd, err := Parse("/done task-7")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	called := false
	res, err := Execute(cmd, Handlers{
		Done: func(a TargetArgs) (Result, error) {
			called = true
			if a.ID != "task-7" {
				t.Fatalf("unexpected id: %q", a.ID)
			}
			return Result{Message: "ok"}, nil
		},
	})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if !called || res.Message != "ok" {
		t.Fatalf("dispatch failed, called=%v res=%+v", called, res)
	}
}

func TestExecuteMissingHandler(t *testing.T) {
	cmd, err := Parse("resume pat-1")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	_, err = Execute(cmd, Handlers{Pause: func(TargetArgs) (Result, error) { return Result{}, nil }})
	if err == nil {
		t.Fatal("expected error")
	}
	var ce *CommandError
	if !errors.As(err, &ce) || ce.Code != ErrCodeHandlerMissing {
		t.Fatalf("expected missing handler error, got %v", err)
	}
}

func TestResolveID(t *testing.T) {
	ids := []string{"abc-1", "abd-2", "xyz"}
	if got, err := ResolveID("xyz", ids); err != nil || got != "xyz" {
		t.Fatalf("exact match: %q %v", got, err)
	}
	if got, err := ResolveID("abc", ids); err != nil || got != "abc-1" {
		t.Fatalf("prefix match: %q %v", got, err)
	}
	if _, err := ResolveID("ab", ids); err == nil {
		t.Fatal("expected ambiguity error")
	}
	if got, err := ResolveID("external", ids); err != nil || got != "external" {
		t.Fatalf("unknown id should pass through: %q %v", got, err)
	}
}
