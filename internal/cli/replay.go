package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/diaz/kanban/internal/interaction"
	"github.com/diaz/kanban/internal/replay"
)

func replayCmd(e *env) *cobra.Command {
	var (
		builtin string
		list    bool
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "replay [scenario.yaml]",
		Short: "Run a hand-tracking scenario through a headless session",
		Long: `Replay runs a scripted or recorded landmark scenario against the
configured gesture thresholds and prints the clicks and moves it produced.
It exits non-zero when the scenario's expectations are not met.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			if list {
				names, err := replay.Builtins()
				if err != nil {
					return err
				}
				for _, n := range names {
					fmt.Fprintln(out, n)
				}
				return nil
			}

			var (
				sc  *replay.Scenario
				err error
			)
			switch {
			case builtin != "":
				sc, err = replay.Builtin(builtin)
			case len(args) == 1:
				sc, err = replay.LoadFile(args[0])
			default:
				return errors.New("a scenario file or --builtin is required")
			}
			if err != nil {
				return err
			}

			res, err := replay.Run(commandContext(cmd), sc, e.cfg.Gesture)
			if err != nil {
				return err
			}

			if verbose {
				printTimeline(out, res.Timeline)
			}
			printResult(out, sc, res)

			if err := res.Check(sc.Expect); err != nil {
				fmt.Fprintln(out, errorStyle.Render("FAIL"))
				return err
			}
			if sc.Expect != nil {
				fmt.Fprintln(out, headerStyle.Render("PASS"))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&builtin, "builtin", "b", "", "Run a bundled scenario by name")
	cmd.Flags().BoolVarP(&list, "list", "l", false, "List bundled scenarios")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print every frame")

	return cmd
}

func printTimeline(w io.Writer, timeline []interaction.Snapshot) {
	for _, s := range timeline {
		fmt.Fprintf(w, "%6dms %-7s (%4.0f,%4.0f)", s.Timestamp.Sub(time.Unix(0, 0)).Milliseconds(), s.Pose, s.Cursor.X, s.Cursor.Y)
		if s.Target != "" {
			fmt.Fprintf(w, " target=%s %.0f%%", s.Target, s.DwellProgress*100)
		}
		if s.Highlighted != "" {
			fmt.Fprintf(w, " highlighted=%s", s.Highlighted)
		}
		if s.Grabbed != "" {
			fmt.Fprintf(w, " grabbed=%s over=%s", s.Grabbed, s.Hovered)
		}
		fmt.Fprintln(w)
	}
}

func printResult(w io.Writer, sc *replay.Scenario, res *replay.Result) {
	name := sc.Name
	if name == "" {
		name = "scenario"
	}
	fmt.Fprintln(w, headerStyle.Render(name))
	fmt.Fprintf(w, "frames:      %d processed, %d skipped\n", res.Stats.Processed, res.Stats.Skipped)
	fmt.Fprintf(w, "activations: %v\n", res.Activations)
	fmt.Fprintf(w, "focuses:     %v\n", res.Focuses)
	for _, m := range res.Moves {
		fmt.Fprintf(w, "move:        %s -> %s\n", m.TaskID, m.Column.Label())
	}
	if len(res.Moves) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("no moves"))
	}
}
