package commands

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// ResolveID expands a displayed id prefix to a full id. Input that matches
// nothing is returned unchanged so the caller's lookup reports it.
func ResolveID(input string, ids []string) (string, error) {
	if lo.Contains(ids, input) {
		return input, nil
	}
	matches := lo.Filter(ids, func(id string, _ int) bool { return strings.HasPrefix(id, input) })
	switch len(matches) {
	case 0:
		return input, nil
	case 1:
		return matches[0], nil
	default:
		return "", &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("id prefix %q is ambiguous (%d matches)", input, len(matches))}
	}
}
