package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create .tgconfig and the task store in the current workspace",
	Long: `Write a .tgconfig with default settings and create the store directory
that holds tasks.yaml and dependencies.yaml. Fails if .tgconfig already exists.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if ConfigMgr == nil {
			return fmt.Errorf("configuration manager not initialized")
		}

		path, err := ConfigMgr.WriteDefaultConfig()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Created %s\n", path)

		if StoreDir != "" {
			if err := os.MkdirAll(StoreDir, 0o750); err != nil {
				return fmt.Errorf("creating store directory: %w", err)
			}
			fmt.Fprintf(out, "Store directory: %s\n", StoreDir)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
