package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var containerDescription string

var containerCmd = &cobra.Command{
	Use:   "container",
	Short: "Manage index containers",
	Long: `Containers are isolated indexes with their own roots and embedding
provider identity. The Default container always exists.`,
}

var containerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List containers",
	Args:  cobra.NoArgs,
	RunE:  runContainerList,
}

var containerCreateCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create a container",
	Args:  cobra.ExactArgs(1),
	RunE:  runContainerCreate,
}

var containerDeleteCmd = &cobra.Command{
	Use:   "delete [name]",
	Short: "Delete a container and all its data",
	Args:  cobra.ExactArgs(1),
	RunE:  runContainerDelete,
}

var containerUseCmd = &cobra.Command{
	Use:   "use [name]",
	Short: "Switch the active container",
	Args:  cobra.ExactArgs(1),
	RunE:  runContainerUse,
}

func init() {
	containerCreateCmd.Flags().StringVarP(&containerDescription, "description", "d", "", "container description")
	containerCmd.AddCommand(containerListCmd)
	containerCmd.AddCommand(containerCreateCmd)
	containerCmd.AddCommand(containerDeleteCmd)
	containerCmd.AddCommand(containerUseCmd)
	rootCmd.AddCommand(containerCmd)
}

func runContainerList(cmd *cobra.Command, _ []string) error {
	containers, err := containerSvc.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing containers: %w", err)
	}
	active, err := containerSvc.Active(cmd.Context())
	if err != nil {
		return fmt.Errorf("resolving active container: %w", err)
	}

	for _, c := range containers {
		marker := " "
		if c.Name == active.Name {
			marker = "*"
		}
		cmd.Printf("%s %s  %s/%s (%dd)", marker, c.Name,
			c.Provider.Provider, c.Provider.Model, c.Provider.Dimensions)
		if c.Description != "" {
			cmd.Printf("  %s", c.Description)
		}
		cmd.Println()
	}
	return nil
}

func runContainerCreate(cmd *cobra.Command, args []string) error {
	c, err := containerSvc.Create(cmd.Context(), args[0], containerDescription)
	if err != nil {
		return fmt.Errorf("creating container: %w", err)
	}
	cmd.Printf("Created container %s (%s/%s, %d dimensions).\n",
		c.Name, c.Provider.Provider, c.Provider.Model, c.Provider.Dimensions)
	return nil
}

func runContainerDelete(cmd *cobra.Command, args []string) error {
	if err := containerSvc.Delete(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("deleting container: %w", err)
	}
	cmd.Printf("Deleted container %s.\n", args[0])
	return nil
}

func runContainerUse(cmd *cobra.Command, args []string) error {
	if err := containerSvc.SetActive(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("activating container: %w", err)
	}
	cmd.Printf("Active container: %s\n", args[0])
	return nil
}
