package views

import (
	"fmt"
	"strings"
)

type TablePanelData struct {
	Title     string
	Filter    string
	Actions   string
	TableView string
	Empty     bool
}

type DetailField struct {
	Label string
	Value string
}

type DetailData struct {
	Kind   string
	ID     string
	Text   string
	Fields []DetailField
}

type NoticeData struct {
	At     string
	Title  string
	Body   string
	Reason string
}

type HelpPanelData struct {
	CurrentView string
	HelpView    string
}

func RenderTablePanel(data TablePanelData) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(data.Title) + ":")
	if data.Filter != "" {
		b.WriteString(" (tag: " + data.Filter + ")")
	}
	b.WriteString("\n")
	if data.Actions != "" {
		b.WriteString("actions: " + data.Actions + "\n")
	}
	if data.Empty {
		b.WriteString(fmt.Sprintf("(no %s)", strings.ToLower(data.Title)))
		return b.String()
	}
	b.WriteString(data.TableView)
	return strings.TrimSpace(b.String())
}

// RenderDetail renders the selected entity as a markdown card.
func RenderDetail(data DetailData, width int) string {
	if data.ID == "" {
		return "details:\n(no selection)"
	}
	var md strings.Builder
	md.WriteString(fmt.Sprintf("### %s\n\n", data.Text))
	for _, f := range data.Fields {
		if f.Value == "" {
			continue
		}
		md.WriteString(fmt.Sprintf("- **%s**: %s\n", f.Label, f.Value))
	}
	md.WriteString(fmt.Sprintf("\n`%s %s`\n", data.Kind, data.ID))
	return "details:\n" + RenderMarkdown(md.String(), width)
}

func RenderCommandPalette(active bool, input string) string {
	if !active {
		return "command: press / to open"
	}
	return "command: " + input
}

// RenderNotices lists reminders shown in-app because the desktop channel
// could not show them, newest first.
func RenderNotices(items []NoticeData) string {
	if len(items) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("reminders:\n")
	for i := len(items) - 1; i >= 0; i-- {
		n := items[i]
		line := fmt.Sprintf("%s %s", n.At, n.Title)
		if n.Body != "" {
			line += " - " + n.Body
		}
		if n.Reason != "" {
			line += fmt.Sprintf(" [%s]", n.Reason)
		}
		b.WriteString(line + "\n")
	}
	return strings.TrimSpace(b.String())
}

func RenderHelpPanel(data HelpPanelData) string {
	return fmt.Sprintf("help (%s):\n%s", strings.ToLower(data.CurrentView), data.HelpView)
}
