package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/diaz/kanban/internal/board"
)

func tasksCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Manage board tasks from the terminal",
	}

	cmd.AddCommand(tasksListCmd(e))
	cmd.AddCommand(tasksAddCmd(e))
	cmd.AddCommand(tasksMoveCmd(e))

	return cmd
}

func tasksListCmd(e *env) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, b, err := e.openBoard()
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := commandContext(cmd)
			tasks, err := b.List(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(tasks)
			}

			stats, err := b.Stats(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, renderBoard(tasks))
			fmt.Fprintln(out, renderStats(stats))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "Output as JSON")

	return cmd
}

func tasksAddCmd(e *env) *cobra.Command {
	var (
		description string
		priority    string
		column      string
	)

	cmd := &cobra.Command{
		Use:   "add [title]",
		Short: "Add a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := board.ParsePriority(priority)
			if err != nil {
				return err
			}
			c, err := board.ParseColumn(column)
			if err != nil {
				return err
			}

			db, b, err := e.openBoard()
			if err != nil {
				return err
			}
			defer db.Close()

			t, err := b.Create(commandContext(cmd), board.NewTask{
				Title:       args[0],
				Description: description,
				Priority:    p,
				Column:      c,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created %s in %s\n", t.ID, t.Column.Label())
			return nil
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "Task description")
	cmd.Flags().StringVarP(&priority, "priority", "p", string(board.PriorityMedium), "Priority (low, medium, high)")
	cmd.Flags().StringVar(&column, "column", string(board.ColumnPending), "Column (pending, progress, done)")

	return cmd
}

func tasksMoveCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "move [id] [column]",
		Short: "Move a task to another column",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := board.ParseColumn(args[1])
			if err != nil {
				return err
			}

			db, b, err := e.openBoard()
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := commandContext(cmd)
			if err := b.MoveTask(ctx, args[0], c); err != nil {
				return err
			}
			t, err := b.Get(ctx, args[0])
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Moved %s to %s (%d%%)\n", t.ID, t.Column.Label(), t.Progress)
			return nil
		},
	}
}
