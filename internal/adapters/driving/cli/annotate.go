package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rememex/rememex-cli/internal/core/services"
)

var annotatePath string

var annotateCmd = &cobra.Command{
	Use:   "annotate [path] [note]",
	Short: "Attach a note to a file",
	Long: `Stores a free-form note for a path. Notes are embedded immediately
and surface in search results alongside file fragments.`,
	Args: cobra.ExactArgs(2),
	RunE: runAnnotate,
}

var annotationsCmd = &cobra.Command{
	Use:   "annotations",
	Short: "List annotations",
	Args:  cobra.NoArgs,
	RunE:  runAnnotations,
}

var annotationDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete an annotation",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnnotationDelete,
}

func init() {
	annotationsCmd.Flags().StringVarP(&annotatePath, "path", "p", "", "only annotations for this path")
	annotationsCmd.AddCommand(annotationDeleteCmd)
	rootCmd.AddCommand(annotateCmd)
	rootCmd.AddCommand(annotationsCmd)
}

func runAnnotate(cmd *cobra.Command, args []string) error {
	a, err := annotationSvc.Add(cmd.Context(), args[0], args[1], services.AnnotationSourceUser)
	if err != nil {
		return fmt.Errorf("adding annotation: %w", err)
	}
	cmd.Printf("Added annotation %s for %s.\n", a.ID, a.Path)
	return nil
}

func runAnnotations(cmd *cobra.Command, _ []string) error {
	annotations, err := annotationSvc.Get(cmd.Context(), annotatePath)
	if err != nil {
		return fmt.Errorf("listing annotations: %w", err)
	}
	if len(annotations) == 0 {
		cmd.Println("No annotations.")
		return nil
	}
	for _, a := range annotations {
		cmd.Printf("%s  %s  [%s]\n", a.ID, a.Path, a.Source)
		cmd.Printf("  %s\n", a.Note)
	}
	return nil
}

func runAnnotationDelete(cmd *cobra.Command, args []string) error {
	if err := annotationSvc.Delete(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("deleting annotation: %w", err)
	}
	cmd.Println("Annotation deleted.")
	return nil
}
