package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"vibe-tracker/tracker-backend/internal/progress"
)

var errMissingReminderTime = errors.New("either --at or --in is required")

var reminderLayouts = []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02T15:04"}

func (a *app) remindCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remind",
		Short: "Schedule and list step reminders",
	}
	cmd.AddCommand(a.remindAddCmd(), a.remindListCmd())
	return cmd
}

func (a *app) remindAddCmd() *cobra.Command {
	var (
		at      string
		in      time.Duration
		message string
	)
	cmd := &cobra.Command{
		Use:   "add <project-id> <step>",
		Short: "Schedule a reminder for a step",
		Long: `Schedule a reminder with --at (RFC3339 or "2006-01-02 15:04" local time)
or --in (a duration from now). A blank message defaults to "Step <n>: <title>".`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			when, err := a.reminderTime(at, in)
			if err != nil {
				return err
			}
			if when.IsZero() {
				return errMissingReminderTime
			}
			board, tmpl, err := a.openBoard(cmd, args[0], args[1])
			if err != nil {
				return err
			}
			defer board.Close()

			r, err := board.CreateReminder(cmd.Context(), tmpl.Number, progress.ReminderDraft{RemindAt: when, Message: message})
			if errors.Is(err, progress.ErrReminderTimeMissing) {
				return errMissingReminderTime
			}
			if err != nil {
				a.theme.banner(a.out, board.Err())
				return &reportedError{err: err}
			}
			a.printf("Reminder %s set for %s: %s\n", r.ID, r.RemindAt.Local().Format(time.RFC1123), r.Message)
			return nil
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "when to remind")
	cmd.Flags().DurationVar(&in, "in", 0, "remind after this long")
	cmd.Flags().StringVarP(&message, "message", "m", "", "reminder text")
	cmd.MarkFlagsMutuallyExclusive("at", "in")
	return cmd
}

// reminderTime resolves --at or --in. Neither yields the zero time.
func (a *app) reminderTime(at string, in time.Duration) (time.Time, error) {
	if in > 0 {
		return a.now().Add(in), nil
	}
	if at == "" {
		return time.Time{}, nil
	}
	for _, layout := range reminderLayouts {
		if t, err := time.ParseInLocation(layout, at, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse --at %q", at)
}

func (a *app) remindListCmd() *cobra.Command {
	var pending bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your reminders by time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.api()
			if err != nil {
				return err
			}
			list, err := client.ListReminders(cmd.Context(), pending)
			if err != nil {
				return err
			}
			a.theme.renderReminders(a.out, list)
			return nil
		},
	}
	cmd.Flags().BoolVar(&pending, "pending", false, "only reminders not yet sent")
	return cmd
}
