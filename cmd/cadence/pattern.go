package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/cadence/internal/model"
	"github.com/sandeepkv93/cadence/internal/patterns"
)

// ruleFlags are the recurrence flags shared by pattern add and update.
type ruleFlags struct {
	rule       string
	every      int
	days       string
	dayOfMonth int
	hook       string
	at         string
	tags       []string
	priority   string
	source     string
}

func (f *ruleFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.rule, "rule", "daily", "recurrence: daily, weekly, monthly or custom")
	cmd.Flags().IntVar(&f.every, "every", 1, "interval in days, weeks or months")
	cmd.Flags().StringVar(&f.days, "days", "", "weekly days, e.g. mon,wed,fri or weekdays")
	cmd.Flags().IntVar(&f.dayOfMonth, "day-of-month", 0, "monthly day (clamped to month length)")
	cmd.Flags().StringVar(&f.hook, "hook", "", "custom hook: "+patterns.HookBusinessDays+" or "+patterns.HookMonthEnd)
	cmd.Flags().StringVar(&f.at, "at", "", "time of day HH:MM")
	cmd.Flags().StringSliceVar(&f.tags, "tags", nil, "comma separated tags")
	cmd.Flags().StringVar(&f.priority, "priority", "", "Low, Medium, High or Critical")
	cmd.Flags().StringVar(&f.source, "source", "", "source tag copied onto generated tasks")
}

// buildRule overlays the given flags on base. A nil base starts empty.
func (f *ruleFlags) buildRule(cmd *cobra.Command, base model.Rule) (model.Rule, error) {
	typ, every, weekdays, dom, hook := model.RuleFields(base)
	if base == nil || cmd.Flags().Changed("rule") {
		typ = model.RuleType(strings.ToLower(f.rule))
	}
	if base == nil || cmd.Flags().Changed("every") {
		every = f.every
	}
	if cmd.Flags().Changed("days") {
		days, err := model.ParseWeekdays(f.days)
		if err != nil {
			return nil, err
		}
		weekdays = days
	}
	if cmd.Flags().Changed("day-of-month") {
		dom = f.dayOfMonth
	}
	if cmd.Flags().Changed("hook") {
		hook = f.hook
	}
	return model.NewRule(typ, every, weekdays, dom, hook)
}

func (f *ruleFlags) ruleChanged(cmd *cobra.Command) bool {
	for _, name := range []string{"rule", "every", "days", "day-of-month", "hook"} {
		if cmd.Flags().Changed(name) {
			return true
		}
	}
	return false
}

func (f *ruleFlags) clock() (*model.ClockTime, error) {
	if f.at == "" {
		return nil, nil
	}
	c, err := model.ParseClock(f.at)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func patternCmd(opts *appOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pattern",
		Short: "Manage recurring task patterns",
	}
	cmd.AddCommand(patternAddCmd(opts))
	cmd.AddCommand(patternListCmd(opts))
	cmd.AddCommand(patternUpdateCmd(opts))
	cmd.AddCommand(patternStateCmd(opts, "pause"))
	cmd.AddCommand(patternStateCmd(opts, "resume"))
	cmd.AddCommand(patternDeleteCmd(opts))
	cmd.AddCommand(patternPreviewCmd(opts))
	return cmd
}

func patternAddCmd(opts *appOptions) *cobra.Command {
	flags := &ruleFlags{}
	cmd := &cobra.Command{
		Use:   "add [text]",
		Short: "Create a recurring pattern",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rule, err := flags.buildRule(cmd, nil)
			if err != nil {
				return err
			}
			clock, err := flags.clock()
			if err != nil {
				return err
			}
			priority, err := model.ParsePriority(flags.priority)
			if err != nil {
				return err
			}

			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			p, err := a.svc.CreatePattern(cmd.Context(), patterns.Spec{
				Text:      strings.Join(args, " "),
				Rule:      rule,
				TimeOfDay: clock,
				Tags:      flags.tags,
				Priority:  priority,
				SourceTag: flags.source,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added pattern %s: %s\n", shortID(p.ID), p.Text)
			fmt.Fprintf(cmd.OutOrStdout(), "Next due: %s\n", formatTimePtr(p.NextDue, a.loc))
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func patternListCmd(opts *appOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List patterns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			items := a.svc.ListPatterns()
			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No patterns yet. Use 'cadence pattern add' to create one.")
				return nil
			}
			rows := make([][]string, 0, len(items))
			for _, p := range items {
				state := "active"
				if !p.Active {
					state = "paused"
				}
				rows = append(rows, []string{
					shortID(p.ID),
					describeRule(p),
					formatTimePtr(p.NextDue, a.loc),
					state,
					fmt.Sprint(p.MaterializationCount),
					truncate(p.Text, 40),
				})
			}
			printTable(cmd.OutOrStdout(), []string{"ID", "Rule", "Next", "State", "Count", "Text"}, rows)
			return nil
		},
	}
}

func patternUpdateCmd(opts *appOptions) *cobra.Command {
	flags := &ruleFlags{}
	var text string
	var clearAt bool

	cmd := &cobra.Command{
		Use:   "update [id]",
		Short: "Change a pattern; only the given flags are applied",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			id, err := a.resolvePattern(args[0])
			if err != nil {
				return err
			}
			current, err := a.svc.Patterns().Get(id)
			if err != nil {
				return err
			}

			var patch patterns.Patch
			if cmd.Flags().Changed("text") {
				patch.Text = &text
			}
			if flags.ruleChanged(cmd) {
				rule, err := flags.buildRule(cmd, current.Rule)
				if err != nil {
					return err
				}
				patch.Rule = rule
			}
			if cmd.Flags().Changed("at") {
				clock, err := flags.clock()
				if err != nil {
					return err
				}
				patch.TimeOfDay = clock
			}
			patch.ClearTimeOfDay = clearAt
			if cmd.Flags().Changed("tags") {
				patch.Tags = &flags.tags
			}
			if cmd.Flags().Changed("priority") {
				priority, err := model.ParsePriority(flags.priority)
				if err != nil {
					return err
				}
				patch.Priority = &priority
			}
			if cmd.Flags().Changed("source") {
				patch.SourceTag = &flags.source
			}

			p, err := a.svc.UpdatePattern(cmd.Context(), id, patch)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated pattern %s: %s (%s)\n", shortID(p.ID), p.Text, describeRule(p))
			fmt.Fprintf(cmd.OutOrStdout(), "Next due: %s\n", formatTimePtr(p.NextDue, a.loc))
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&text, "text", "", "new pattern text")
	cmd.Flags().BoolVar(&clearAt, "clear-at", false, "remove the time of day")
	return cmd
}

func patternStateCmd(opts *appOptions, action string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " [id]",
		Short: strings.ToUpper(action[:1]) + action[1:] + " a pattern",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			id, err := a.resolvePattern(args[0])
			if err != nil {
				return err
			}
			var p model.Pattern
			if action == "pause" {
				p, err = a.svc.PausePattern(cmd.Context(), id)
			} else {
				p, err = a.svc.ResumePattern(cmd.Context(), id)
			}
			if err != nil {
				return err
			}
			if p.Active {
				fmt.Fprintf(cmd.OutOrStdout(), "Resumed %s, next due %s\n", shortID(p.ID), formatTimePtr(p.NextDue, a.loc))
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Paused %s\n", shortID(p.ID))
			}
			return nil
		},
	}
}

func patternDeleteCmd(opts *appOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a pattern; tasks it generated are kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			id, err := a.resolvePattern(args[0])
			if err != nil {
				return err
			}
			if err := a.svc.DeletePattern(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", shortID(id))
			return nil
		},
	}
}

func patternPreviewCmd(opts *appOptions) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "preview [id]",
		Short: "Show upcoming occurrences of a pattern",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			id, err := a.resolvePattern(args[0])
			if err != nil {
				return err
			}
			times, err := a.svc.Patterns().Preview(id, count)
			if err != nil {
				return err
			}
			for i, t := range times {
				fmt.Fprintf(cmd.OutOrStdout(), "%2d. %s (%s)\n", i+1, formatTime(t, a.loc), t.In(a.loc).Weekday())
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 5, "number of occurrences")
	return cmd
}

func describeRule(p model.Pattern) string {
	typ, every, weekdays, dom, hook := model.RuleFields(p.Rule)
	var b strings.Builder
	b.WriteString(string(typ))
	if every > 1 {
		fmt.Fprintf(&b, " every %d", every)
	}
	if len(weekdays) > 0 {
		names := make([]string, 0, len(weekdays))
		for _, d := range weekdays {
			names = append(names, d.String()[:3])
		}
		b.WriteString(" " + strings.Join(names, ","))
	}
	if dom > 0 {
		fmt.Fprintf(&b, " day %d", dom)
	}
	if hook != "" {
		b.WriteString(" " + hook)
	}
	if p.TimeOfDay != nil {
		b.WriteString(" @" + p.TimeOfDay.String())
	}
	return b.String()
}
