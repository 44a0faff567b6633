package notify

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"sync/atomic"
)

type Permission string

const (
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
	PermissionDefault Permission = "default"
)

// Notification is what the native facility shows.
type Notification struct {
	Title string
	Body  string
}

// Handle identifies a shown notification.
type Handle struct {
	ID string
}

// Native is the host notification facility. onClick may be nil and is
// invoked at most once, on an arbitrary goroutine.
type Native interface {
	RequestPermission(ctx context.Context) (Permission, error)
	Show(ctx context.Context, n Notification, onClick func()) (Handle, error)
}

var ErrUnsupported = errors.New("notify: native notifications unsupported on this platform")

// ExecNative shows notifications through notify-send on Linux and
// osascript on macOS. Neither tool reports clicks, so onClick never fires.
type ExecNative struct {
	Disabled bool

	goos     string
	lookPath func(file string) (string, error)
	run      func(ctx context.Context, name string, args ...string) error
	seq      atomic.Uint64
}

func NewExecNative(enabled bool) *ExecNative {
	return &ExecNative{
		Disabled: !enabled,
		goos:     runtime.GOOS,
		lookPath: exec.LookPath,
		run: func(ctx context.Context, name string, args ...string) error {
			return exec.CommandContext(ctx, name, args...).Run()
		},
	}
}

func (e *ExecNative) tool() string {
	switch e.goos {
	case "linux", "freebsd", "openbsd":
		return "notify-send"
	case "darwin":
		return "osascript"
	default:
		return ""
	}
}

func (e *ExecNative) RequestPermission(context.Context) (Permission, error) {
	if e.Disabled {
		return PermissionDenied, nil
	}
	tool := e.tool()
	if tool == "" {
		return PermissionDefault, nil
	}
	if _, err := e.lookPath(tool); err != nil {
		return PermissionDenied, nil
	}
	return PermissionGranted, nil
}

func (e *ExecNative) Show(ctx context.Context, n Notification, _ func()) (Handle, error) {
	var err error
	switch e.tool() {
	case "notify-send":
		err = e.run(ctx, "notify-send", "--app-name=cadence", "--", n.Title, n.Body)
	case "osascript":
		script := fmt.Sprintf(`display notification "%s" with title "%s"`, escapeAppleScript(n.Body), escapeAppleScript(n.Title))
		err = e.run(ctx, "osascript", "-e", script)
	default:
		return Handle{}, ErrUnsupported
	}
	if err != nil {
		return Handle{}, fmt.Errorf("notify: %s: %w", e.tool(), err)
	}
	return Handle{ID: fmt.Sprintf("exec-%d", e.seq.Add(1))}, nil
}

func escapeAppleScript(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}
