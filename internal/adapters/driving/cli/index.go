package cli

import (
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/rememex/rememex-cli/internal/core/domain"
)

var indexCmd = &cobra.Command{
	Use:   "index [folder]",
	Short: "Index a folder into the active container",
	Long: `Walks the folder, extracts and embeds every supported file, and
registers the folder as a root of the active container. Files already
indexed with an unchanged modification time are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runIndex,
}

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rescan all roots of the active container",
	Long: `Re-walks every registered root, indexing new and changed files and
removing records for files that no longer exist on disk.`,
	Args: cobra.NoArgs,
	RunE: runReindex,
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the active container's index",
	Long:  `Removes all fragments and annotations. Roots stay registered.`,
	Args:  cobra.NoArgs,
	RunE:  runReset,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(reindexCmd)
	rootCmd.AddCommand(resetCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	stop := showProgress(cmd)
	defer stop()

	if err := indexerService.IndexFolder(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}
	return nil
}

func runReindex(cmd *cobra.Command, _ []string) error {
	stop := showProgress(cmd)
	defer stop()

	if err := indexerService.ReindexAll(cmd.Context()); err != nil {
		return fmt.Errorf("reindex failed: %w", err)
	}
	return nil
}

func runReset(cmd *cobra.Command, _ []string) error {
	if err := indexerService.ResetIndex(cmd.Context()); err != nil {
		return fmt.Errorf("reset failed: %w", err)
	}
	cmd.Println("Index cleared.")
	return nil
}

// showProgress renders indexing events as a progress bar until the
// returned stop function is called.
func showProgress(cmd *cobra.Command) func() {
	done := make(chan struct{})
	finished := make(chan struct{})

	go func() {
		defer close(finished)
		var bar *progressbar.ProgressBar
		for {
			select {
			case <-done:
				return
			case e := <-indexerService.Events():
				switch e.Kind {
				case domain.EventIndexingProgress:
					if bar == nil {
						bar = progressbar.NewOptions(e.Total,
							progressbar.OptionSetWriter(cmd.OutOrStderr()),
							progressbar.OptionSetDescription("Indexing"),
							progressbar.OptionShowCount(),
							progressbar.OptionClearOnFinish(),
						)
					}
					_ = bar.Set(e.Current)
				case domain.EventIndexingComplete:
					if bar != nil {
						_ = bar.Finish()
					}
					cmd.Println(e.Message)
				case domain.EventModelLoadError:
					cmd.PrintErrf("Model load error: %s\n", e.Reason)
				}
			}
		}
	}()

	return func() {
		close(done)
		<-finished
	}
}
