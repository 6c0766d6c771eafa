package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/vista/internal/cli"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <script>",
	Short: "Export the tree left by a script as a Mermaid diagram",
	Long: `Replays the script silently and outputs a Mermaid diagram (graph TD) of the
resulting tree, with the transition phase, named elements and pending
mutations overlaid. Use --shadow to draw the renderer's view instead of the
real tree.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		shadow, _ := cmd.Flags().GetBool("shadow")
		keepGoing, _ := cmd.Flags().GetBool("continue")

		out, err := cli.Graph(cmd.Context(), cli.ReplayOptions{
			ScriptPath:      args[0],
			Platform:        cfg.Platform,
			ContinueOnError: keepGoing,
			Logger:          logger,
		}, shadow)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().Bool("shadow", false, "Draw the shadow tree seen by the renderer")
	graphCmd.Flags().Bool("continue", false, "Keep running after a failing step")
}
