package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/cadence/internal/model"
	"github.com/sandeepkv93/cadence/internal/storage"
)

func taskCmd(opts *appOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Tasks generated from patterns",
	}
	cmd.AddCommand(taskListCmd(opts))
	cmd.AddCommand(taskDoneCmd(opts))
	return cmd
}

func taskListCmd(opts *appOptions) *cobra.Command {
	var all bool
	var pattern string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks by due time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			filter := storage.TaskListFilter{Limit: limit}
			if !all {
				filter.State = model.TaskStatePlanned
			}
			if pattern != "" {
				if filter.PatternID, err = a.resolvePattern(pattern); err != nil {
					return err
				}
			}
			tasks, err := a.svc.ListTasks(ctx, filter)
			if err != nil {
				return err
			}
			if len(tasks) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No tasks.")
				return nil
			}
			rows := make([][]string, 0, len(tasks))
			for _, t := range tasks {
				rows = append(rows, []string{
					shortID(t.ID),
					formatTimePtr(t.DueAt, a.loc),
					string(t.State),
					string(t.Priority),
					shortID(t.PatternID),
					truncate(t.Title, 40),
				})
			}
			printTable(cmd.OutOrStdout(), []string{"ID", "Due", "State", "Priority", "Pattern", "Title"}, rows)
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include completed tasks")
	cmd.Flags().StringVar(&pattern, "pattern", "", "only tasks of this pattern")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "number of tasks to show")
	return cmd
}

func taskDoneCmd(opts *appOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "done [id]",
		Short: "Complete a task; a pattern task schedules its next instance",
		Args:  cobra.ExactArgs(1),
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
			task, next, err := a.svc.CompleteTask(ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Completed %s: %s\n", shortID(task.ID), task.Title)
			if next != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Next: %s due %s\n", shortID(next.ID), formatTimePtr(next.DueAt, a.loc))
			}
			return nil
		},
	}
}
