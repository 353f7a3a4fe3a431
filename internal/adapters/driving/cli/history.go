package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/hcgarun/internal/core/domain"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [dataset-id]",
	Short: "List recent pipeline runs",
	Long: `Lists recorded pipeline runs, newest first.
If a dataset ID is provided, only runs for that dataset are shown.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the stages of one run",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "maximum number of runs to show")
	historyCmd.AddCommand(historyShowCmd)
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	if historyService == nil {
		return errors.New("history service not configured")
	}

	var (
		runs []domain.Run
		err  error
	)
	if len(args) > 0 {
		runs, err = historyService.ForDataset(cmd.Context(), args[0], historyLimit)
	} else {
		runs, err = historyService.Recent(cmd.Context(), historyLimit)
	}
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
		return nil
	}

	out := cmd.OutOrStdout()
	st := stylesFor(out)

	fmt.Fprintln(out, st.Header.Render(fmt.Sprintf("%-8s  %-20s  %-9s  %4s  %-19s  %s",
		"RUN", "DATASET", "STATUS", "EXIT", "STARTED", "DURATION")))
	for _, run := range runs {
		fmt.Fprintf(out, "%-8s  %-20s  %s  %4d  %-19s  %s\n",
			shortID(run.ID),
			run.Dataset,
			statusStyle(st, run.Status).Render(padRight(string(run.Status), 9)),
			run.ExitCode,
			run.StartedAt.Local().Format(time.DateTime),
			run.Duration().Round(time.Millisecond),
		)
	}
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	if historyService == nil {
		return errors.New("history service not configured")
	}

	run, err := historyService.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("run %s: %w", args[0], err)
	}

	printRun(cmd.OutOrStdout(), run)
	return nil
}

func printRun(out io.Writer, run *domain.Run) {
	st := stylesFor(out)

	fmt.Fprintf(out, "Run:      %s\n", run.ID)
	fmt.Fprintf(out, "Dataset:  %s\n", run.Dataset)
	fmt.Fprintf(out, "Status:   %s (exit %d)\n", statusStyle(st, run.Status).Render(string(run.Status)), run.ExitCode)
	fmt.Fprintf(out, "Started:  %s\n", run.StartedAt.Local().Format(time.DateTime))
	fmt.Fprintf(out, "Duration: %s\n", run.Duration().Round(time.Millisecond))

	for _, stage := range run.Stages {
		fmt.Fprintln(out)
		fmt.Fprintf(out, "%s  %s  exit %d  %s\n",
			st.Header.Render(string(stage.Stage)),
			stageStyle(st, stage.Status).Render(string(stage.Status)),
			stage.ExitCode,
			stage.Duration().Round(time.Millisecond),
		)
		fmt.Fprintln(out, st.Muted.Render("  "+stage.Command))
		if stage.Error != "" {
			fmt.Fprintln(out, st.Error.Render("  "+stage.Error))
		}
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func statusStyle(st outputStyles, status domain.RunStatus) lipgloss.Style {
	switch status {
	case domain.RunSucceeded:
		return st.Success
	case domain.RunFailed:
		return st.Error
	case domain.RunCancelled:
		return st.Warning
	default:
		return st.Muted
	}
}

func stageStyle(st outputStyles, status domain.StageStatus) lipgloss.Style {
	switch status {
	case domain.StageSucceeded:
		return st.Success
	case domain.StageFailed:
		return st.Error
	case domain.StageCancelled:
		return st.Warning
	default:
		return st.Muted
	}
}
