package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"vibe-tracker/tracker-backend/internal/curriculum"
	"vibe-tracker/tracker-backend/internal/progress"
)

func (a *app) stepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "step",
		Short: "Update progress on a step",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "percent <project-id> <step> <percent>",
			Short: "Set the completion percent",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				pct, err := strconv.Atoi(strings.TrimSuffix(args[2], "%"))
				if err != nil {
					return fmt.Errorf("percent must be a whole number: %q", args[2])
				}
				return a.updateStep(cmd, args, progress.DragPercent(pct))
			},
		},
		&cobra.Command{
			Use:       "status <project-id> <step> <status>",
			Short:     "Set the step status",
			Args:      cobra.ExactArgs(3),
			ValidArgs: []string{"not_started", "in_progress", "completed", "skipped"},
			RunE: func(cmd *cobra.Command, args []string) error {
				st, err := progress.ParseStatus(args[2])
				if err != nil {
					return err
				}
				return a.updateStep(cmd, args, progress.SelectStatus(st))
			},
		},
		&cobra.Command{
			Use:   "complete <project-id> <step>",
			Short: "Mark the step completed now",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.updateStep(cmd, args, progress.MarkComplete(a.now()))
			},
		},
		&cobra.Command{
			Use:   "reset <project-id> <step>",
			Short: "Return the step to not started",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.updateStep(cmd, args, progress.Reset())
			},
		},
		&cobra.Command{
			Use:   "notes <project-id> <step> <text...>",
			Short: "Replace the step notes",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.updateStep(cmd, args, progress.EditNotes(strings.Join(args[2:], " ")))
			},
		},
	)
	return cmd
}

// openBoard loads the snapshot and resolves the step argument against it.
func (a *app) openBoard(cmd *cobra.Command, projectID, stepArg string) (*progress.Board, curriculum.StepTemplate, error) {
	number, err := strconv.Atoi(stepArg)
	if err != nil {
		return nil, curriculum.StepTemplate{}, fmt.Errorf("step must be a number: %q", stepArg)
	}
	client, err := a.api()
	if err != nil {
		return nil, curriculum.StepTemplate{}, err
	}
	snap, err := client.GetProject(cmd.Context(), projectID)
	if err != nil {
		return nil, curriculum.StepTemplate{}, err
	}
	for _, s := range snap.Steps {
		if s.Number == number {
			return progress.NewBoard(client, snap), s, nil
		}
	}
	return nil, curriculum.StepTemplate{}, fmt.Errorf("step %d is not in the curriculum", number)
}

func (a *app) updateStep(cmd *cobra.Command, args []string, patch progress.Patch) error {
	board, tmpl, err := a.openBoard(cmd, args[0], args[1])
	if err != nil {
		return err
	}
	defer board.Close()

	rec, err := board.UpdateStep(cmd.Context(), tmpl.Number, patch)
	if err != nil {
		a.theme.banner(a.out, board.Err())
		return &reportedError{err: err}
	}
	a.theme.renderStep(a.out, tmpl, rec)
	return nil
}
