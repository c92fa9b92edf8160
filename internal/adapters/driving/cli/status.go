package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	statusJSON   bool
	diffPreviews bool
	listJSON     bool
	listPrefix   string
	listExts     []string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show index status for the active container",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List indexed files in the active container",
	Args:  cobra.NoArgs,
	RunE:  runFiles,
}

var diffCmd = &cobra.Command{
	Use:   "diff [window]",
	Short: "Show files changed within a time window",
	Long: `Lists files added, modified or removed within the window.
The window is a duration with an s, m, h, d or w suffix, e.g. 30m, 2h, 1d.`,
	Args: cobra.ExactArgs(1),
	RunE: runDiff,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output as JSON")
	filesCmd.Flags().BoolVar(&listJSON, "json", false, "output as JSON")
	filesCmd.Flags().StringVar(&listPrefix, "prefix", "", "only list files under this path prefix")
	filesCmd.Flags().StringSliceVar(&listExts, "ext", nil, "only list files with these extensions")
	diffCmd.Flags().BoolVar(&diffPreviews, "previews", false, "include file previews")
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(filesCmd)
	rootCmd.AddCommand(diffCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	status, err := indexerService.Status(cmd.Context())
	if err != nil {
		return fmt.Errorf("status failed: %w", err)
	}

	if statusJSON {
		data, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling status: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Printf("Container:   %s\n", status.Container)
	cmd.Printf("Provider:    %s/%s (%d dimensions)\n",
		status.Provider.Provider, status.Provider.Model, status.Provider.Dimensions)
	cmd.Printf("Files:       %d\n", status.Files)
	cmd.Printf("Fragments:   %d\n", status.Fragments)
	cmd.Printf("Annotations: %d\n", status.Annotations)
	if status.Busy {
		cmd.Println("An indexing job is running.")
	}
	for _, root := range status.Roots {
		cmd.Printf("Root:        %s\n", root)
	}
	return nil
}

func runFiles(cmd *cobra.Command, _ []string) error {
	files, err := workspaceSvc.ListFiles(cmd.Context(), listPrefix, listExts)
	if err != nil {
		return fmt.Errorf("listing files: %w", err)
	}

	if listJSON {
		data, err := json.MarshalIndent(files, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling files: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	for _, f := range files {
		cmd.Printf("%s  (%d fragments, %d bytes)\n", f.Path, f.Fragments, f.Size)
	}
	cmd.Printf("%d files indexed.\n", len(files))
	return nil
}

func runDiff(cmd *cobra.Command, args []string) error {
	entries, err := workspaceSvc.Diff(cmd.Context(), args[0], diffPreviews)
	if err != nil {
		return fmt.Errorf("diff failed: %w", err)
	}
	if len(entries) == 0 {
		cmd.Println("No changes.")
		return nil
	}

	for _, e := range entries {
		cmd.Printf("%-9s %s  (%s)\n", e.Status, e.Path, e.MTime.Format("2006-01-02 15:04"))
		if diffPreviews && e.Preview != "" {
			cmd.Printf("          %s\n", firstLine(e.Preview))
		}
	}
	return nil
}
