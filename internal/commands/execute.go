package commands

import "fmt"

type Result struct {
	Message string
}

type Handlers struct {
	Snooze func(SnoozeArgs) (Result, error)
	Check  func(CheckArgs) (Result, error)
	Pause  func(TargetArgs) (Result, error)
	Resume func(TargetArgs) (Result, error)
	Done   func(TargetArgs) (Result, error)
	Cancel func(TargetArgs) (Result, error)
	Show   func(ShowArgs) (Result, error)
}

func Execute(cmd Command, handlers Handlers) (Result, error) {
	switch cmd.Type {
	case TypeSnooze:
		if handlers.Snooze == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Snooze(*cmd.Snooze)
	case TypeCheck:
		if handlers.Check == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Check(*cmd.Check)
	case TypePause, TypeResume, TypeDone, TypeCancel:
		h := map[Type]func(TargetArgs) (Result, error){
			TypePause:  handlers.Pause,
			TypeResume: handlers.Resume,
			TypeDone:   handlers.Done,
			TypeCancel: handlers.Cancel,
		}[cmd.Type]
		if h == nil {
			return Result{}, missing(cmd.Type)
		}
		return h(*cmd.Target)
	case TypeShow:
		if handlers.Show == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Show(*cmd.Show)
	default:
		return Result{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unknown command type: %s", cmd.Type)}
	}
}

func missing(t Type) error {
	return &CommandError{Code: ErrCodeHandlerMissing, Message: fmt.Sprintf("%s handler not configured", t)}
}
