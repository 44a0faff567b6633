package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/sandeepkv93/cadence/internal/eventbus"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)

func printTable(w io.Writer, headers []string, rows [][]string) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers(headers...).
		Rows(rows...)
	fmt.Fprintln(w, t.Render())
}

// printNotices drains buffered fallback notices, which is how a one-shot
// command shows reminders the desktop could not.
func printNotices(w io.Writer, events <-chan eventbus.Event) {
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Topic != eventbus.NotificationFallback {
				continue
			}
			if n, ok := ev.Data.(eventbus.Notice); ok {
				fmt.Fprintf(w, "reminder: %s - %s\n", n.Title, n.Body)
			}
		default:
			return
		}
	}
}
