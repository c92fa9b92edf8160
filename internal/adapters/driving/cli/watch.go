package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rememex/rememex-cli/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the active container's roots for changes",
	Long: `Observes filesystem events under every registered root and keeps
the index current. Runs until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	status, err := indexerService.Status(cmd.Context())
	if err != nil {
		return fmt.Errorf("resolving roots: %w", err)
	}
	if len(status.Roots) == 0 {
		return fmt.Errorf("container %s has no indexed roots; run 'rememex index' first", status.Container)
	}

	w, err := watcher.New(indexerService, watcher.Config{})
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer w.Close() //nolint:errcheck

	for _, root := range status.Roots {
		if err := w.Watch(root); err != nil {
			return fmt.Errorf("watching %s: %w", root, err)
		}
		cmd.Printf("Watching %s\n", root)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	select {
	case <-cmd.Context().Done():
	case <-sig:
	}
	cmd.Println("Stopping watcher.")
	return nil
}
