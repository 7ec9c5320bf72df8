package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/keel/internal/app"
)

func (c *CLI) newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [targets...]",
		Short: "Run specified tasks",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				// Display command usage help without returning an error
				_ = cmd.Help()
				return nil
			}
			noStateCache, _ := cmd.Flags().GetBool("no-state-cache")
			watch, _ := cmd.Flags().GetBool("watch")
			parallelism, _ := cmd.Flags().GetInt("jobs")
			dir, _ := cmd.Flags().GetString("directory")

			return c.app.Run(cmd.Context(), dir, args, app.RunOptions{
				NoStateCache: noStateCache,
				Watch:        watch,
				Parallelism:  parallelism,
			})
		},
	}
	cmd.Flags().Bool("no-state-cache", false, "Bypass the configuration state cache and configure from scratch")
	cmd.Flags().BoolP("watch", "w", false, "Re-run the targets whenever watched files change")
	cmd.Flags().IntP("jobs", "j", 0, "Maximum number of tasks to run in parallel (0 = number of CPUs)")
	cmd.Flags().StringP("directory", "C", ".", "Root directory of the build")
	return cmd
}
