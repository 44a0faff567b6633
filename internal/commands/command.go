package commands

import (
	"fmt"
	"strings"
)

type Type string

const (
	TypeSnooze Type = "snooze"
	TypeCheck  Type = "check"
	TypePause  Type = "pause"
	TypeResume Type = "resume"
	TypeDone   Type = "done"
	TypeCancel Type = "cancel"
	TypeShow   Type = "show"
)

type ErrorCode string

const (
	ErrCodeEmptyInput      ErrorCode = "empty_input"
	ErrCodeUnknownCommand  ErrorCode = "unknown_command"
	ErrCodeInvalidArgument ErrorCode = "invalid_argument"
	ErrCodeHandlerMissing  ErrorCode = "handler_missing"
)

type CommandError struct {
	Code    ErrorCode
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

type SnoozeArgs struct {
	Subject string
	Preset  string
}

// CheckArgs.Scope is "all", "reminders" or "patterns".
type CheckArgs struct {
	Scope string
}

// TargetArgs names one pattern, task or reminder by id.
type TargetArgs struct {
	ID string
}

// ShowArgs.Subject is "reminders", "patterns" or "tasks".
type ShowArgs struct {
	Subject string
	Tag     string
}

type Command struct {
	Type   Type
	Raw    string
	Snooze *SnoozeArgs
	Check  *CheckArgs
	Target *TargetArgs
	Show   *ShowArgs
}

func Parse(input string) (Command, error) {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}
	if strings.HasPrefix(raw, "/") {
		raw = strings.TrimSpace(strings.TrimPrefix(raw, "/"))
	}
	if raw == "" {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}

	parts := strings.Fields(raw)
	head := strings.ToLower(parts[0])
	args := parts[1:]

	switch Type(head) {
	case TypeSnooze:
		return parseSnooze(input, args)
	case TypeCheck:
		return parseCheck(input, args)
	case TypePause, TypeResume, TypeDone, TypeCancel:
		return parseTarget(input, Type(head), args)
	case TypeShow:
		return parseShow(input, args)
	default:
		return Command{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unsupported command: %s", head)}
	}
}

func parseSnooze(raw string, args []string) (Command, error) {
	if len(args) < 2 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "snooze requires subject and preset"}
	}
	return Command{Type: TypeSnooze, Raw: raw, Snooze: &SnoozeArgs{Subject: args[0], Preset: strings.Join(args[1:], "")}}, nil
}

func parseCheck(raw string, args []string) (Command, error) {
	scope := "all"
	if len(args) > 0 {
		scope = strings.ToLower(args[0])
	}
	switch scope {
	case "all", "reminders", "patterns":
	default:
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("check scope must be reminders, patterns or all, got %q", scope)}
	}
	return Command{Type: TypeCheck, Raw: raw, Check: &CheckArgs{Scope: scope}}, nil
}

func parseTarget(raw string, typ Type, args []string) (Command, error) {
	if len(args) != 1 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("%s requires exactly one id", typ)}
	}
	return Command{Type: typ, Raw: raw, Target: &TargetArgs{ID: args[0]}}, nil
}

func parseShow(raw string, args []string) (Command, error) {
	if len(args) == 0 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "show requires a subject"}
	}
	subject := strings.ToLower(args[0])
	switch subject {
	case "reminders", "patterns", "tasks":
	default:
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("cannot show %q", subject)}
	}
	tag := ""
	for _, arg := range args[1:] {
		if strings.HasPrefix(strings.ToLower(arg), "tag:") {
			tag = strings.TrimSpace(arg[len("tag:"):])
		}
	}
	return Command{Type: TypeShow, Raw: raw, Show: &ShowArgs{Subject: subject, Tag: tag}}, nil
}
