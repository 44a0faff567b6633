package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/cadence/internal/commands"
	"github.com/sandeepkv93/cadence/internal/model"
	"github.com/sandeepkv93/cadence/internal/reminders"
)

func remindCmd(opts *appOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remind",
		Short: "Manage reminders",
	}
	cmd.AddCommand(remindAddCmd(opts))
	cmd.AddCommand(remindDeadlineCmd(opts))
	cmd.AddCommand(remindSnoozeCmd(opts))
	cmd.AddCommand(remindCancelCmd(opts))
	cmd.AddCommand(remindListCmd(opts))
	return cmd
}

func remindAddCmd(opts *appOptions) *cobra.Command {
	var at, in, priority string
	var tags []string

	cmd := &cobra.Command{
		Use:   "add [subject] [text]",
		Short: "Remind about a subject at a time",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			when, err := triggerTime(at, in, time.Now(), a.loc)
			if err != nil {
				return err
			}
			subjectID, err := commands.ResolveID(args[0], a.subjectIDs(ctx))
			if err != nil {
				return err
			}
			subject := a.svc.Subject(ctx, subjectID)

			spec := reminders.Spec{
				SubjectID: subjectID,
				Text:      strings.Join(args[1:], " "),
				TriggerAt: when,
				Kind:      model.ReminderManual,
				Priority:  subject.Priority,
				Tags:      subject.Tags,
			}
			if spec.Text == "" {
				spec.Text = subject.Text
			}
			if spec.Text == "" {
				spec.Text = subjectID
			}
			if cmd.Flags().Changed("priority") {
				if spec.Priority, err = model.ParsePriority(priority); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("tags") {
				spec.Tags = tags
			}

			r, err := a.svc.CreateReminder(ctx, spec)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reminder %s set for %s: %s\n", shortID(r.ID), formatTime(r.TriggerAt, a.loc), r.Text)
			return nil
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "absolute time (RFC3339, YYYY-MM-DD HH:MM or HH:MM)")
	cmd.Flags().StringVar(&in, "in", "", "offset or preset from now (30min, 2h, tomorrow9am)")
	cmd.Flags().StringVar(&priority, "priority", "", "Low, Medium, High or Critical")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "comma separated tags")
	return cmd
}

func remindDeadlineCmd(opts *appOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "deadline [task] [offset]",
		Short: "Remind an offset before a task's due time",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			id, err := a.resolveTask(ctx, args[0])
			if err != nil {
				return err
			}
			r, err := a.svc.CreateDeadlineReminder(ctx, a.svc.Subject(ctx, id), args[1])
			if err != nil {
				return err
			}
			if r == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "That time has already passed; no reminder created.")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deadline reminder %s set for %s\n", shortID(r.ID), formatTime(r.TriggerAt, a.loc))
			return nil
		},
	}
}

func remindSnoozeCmd(opts *appOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "snooze [subject] [preset]",
		Short: "Replace a subject's reminders with one later",
		Long:  "Presets: " + strings.Join(reminders.Presets(), ", ") + ", or an offset such as +45min.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			subjectID, err := commands.ResolveID(args[0], a.subjectIDs(ctx))
			if err != nil {
				return err
			}
			r, err := a.svc.Snooze(ctx, subjectID, args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Snoozed until %s (snooze #%d)\n", formatTime(r.TriggerAt, a.loc), r.SnoozeCount)
			return nil
		},
	}
}

func remindCancelCmd(opts *appOptions) *cobra.Command {
	var subject bool

	cmd := &cobra.Command{
		Use:   "cancel [id]",
		Short: "Cancel a reminder, or all reminders of a subject with --subject",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if subject {
				subjectID, err := commands.ResolveID(args[0], a.subjectIDs(ctx))
				if err != nil {
					return err
				}
				n := a.svc.CancelForSubject(ctx, subjectID)
				fmt.Fprintf(cmd.OutOrStdout(), "Cancelled %d reminder(s)\n", n)
				return nil
			}
			id, err := a.resolveReminder(args[0])
			if err != nil {
				return err
			}
			if err := a.svc.CancelReminder(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cancelled %s\n", shortID(id))
			return nil
		},
	}
	cmd.Flags().BoolVar(&subject, "subject", false, "treat the argument as a subject id")
	return cmd
}

func remindListCmd(opts *appOptions) *cobra.Command {
	var all bool
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List upcoming reminders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			var items []model.Reminder
			if all {
				items = a.svc.Reminders().List()
			} else {
				items = a.svc.UpcomingReminders(limit)
			}
			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No reminders.")
				return nil
			}
			rows := make([][]string, 0, len(items))
			for _, r := range items {
				state := "pending"
				if r.Triggered {
					state = "fired " + formatTimePtr(r.TriggeredAt, a.loc)
				}
				rows = append(rows, []string{
					shortID(r.ID),
					formatTime(r.TriggerAt, a.loc),
					string(r.Kind),
					shortID(r.SubjectID),
					state,
					truncate(r.Text, 36),
				})
			}
			printTable(cmd.OutOrStdout(), []string{"ID", "At", "Kind", "Subject", "State", "Text"}, rows)
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include reminders that already fired")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "number of reminders to show")
	return cmd
}
