package cmd

import (
	"github.com/spf13/cobra"

	"github.com/glue-go/uccookie/internal/output"
	"github.com/glue-go/uccookie/pkg/build"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of uccookie",
	Long:  `Print the version of uccookie including the git revision.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return output.JSON(cmd.OutOrStdout(), map[string]string{
				"version":  build.Version,
				"commit":   build.Commit,
				"date":     build.Date,
				"built_by": build.BuiltBy,
			})
		}
		cmd.Printf("version: %s\n", build.Version)
		cmd.Printf("commit: %s\n", build.Commit)
		cmd.Printf("built at: %s\n", build.Date)
		cmd.Printf("built by: %s\n", build.BuiltBy)
		return nil
	},
}

func init() {
	versionCmd.Flags().BoolP("json", "j", false, "Format as JSON")
	rootCmd.AddCommand(versionCmd)
}
