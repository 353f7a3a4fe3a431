package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/hcgarun/internal/core/domain"
	"github.com/custodia-labs/hcgarun/internal/logger"
)

var watchCmd = &cobra.Command{
	Use:   "watch <dataset-id>",
	Short: "Rerun the pipeline whenever the dataset file changes",
	Long: `Watches datasets/<dataset-id>.pkl and runs the enabled stages each time
the file is created or rewritten and has stopped changing. A failed run is
reported and watching continues. Writes made by the run itself, such as
get_data refreshing the file, do not start another run. Press Ctrl+C to stop.`,
	Args: datasetArg,
	RunE: runWatch,
}

func init() {
	addPipelineFlags(watchCmd)
	rootCmd.AddCommand(watchCmd)
}

// fileStamp identifies one version of a file's content.
type fileStamp struct {
	modTime time.Time
	size    int64
}

// stampOf returns the current stamp of path, and false if it cannot be read.
func stampOf(path string) (fileStamp, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return fileStamp{}, false
	}
	return fileStamp{modTime: info.ModTime(), size: info.Size()}, true
}

func (s fileStamp) same(other fileStamp) bool {
	return s.size == other.size && s.modTime.Equal(other.modTime)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if datasetWatcher == nil {
		return errors.New("dataset watcher not configured")
	}

	pipeline, err := newPipeline(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	dataset := args[0]
	path := domain.DatasetPath(pipeline.Config().DatasetDir, dataset)

	events, err := datasetWatcher.Watch(ctx, path)
	if err != nil {
		return fmt.Errorf("watching %s: %w", path, err)
	}

	fmt.Fprintf(out, "Watching %s (Ctrl+C to stop)\n", path)

	// stamp of the file as the last run left it
	var (
		afterRun fileStamp
		ran      bool
	)

	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-events:
			if !ok {
				return nil
			}

			if current, ok := stampOf(path); ok && ran && current.same(afterRun) {
				logger.Debug("watch: %s unchanged since the last run", path)
				continue
			}

			run, err := pipeline.Run(ctx, dataset)
			if errors.Is(err, domain.ErrCancelled) {
				return err
			}
			if err != nil {
				cmd.PrintErrf("Run failed with exit code %d: %v\n", domain.ExitCodeFor(err), err)
			} else {
				fmt.Fprintf(out, "Run %s succeeded in %s\n", shortID(run.ID), run.Duration())
			}

			afterRun, ran = stampOf(path)
		}
	}
}
