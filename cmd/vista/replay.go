package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/aretw0/vista/internal/cli"
	"github.com/aretw0/vista/internal/presentation/tui"
)

var replayCmd = &cobra.Command{
	Use:   "replay <script>",
	Short: "Replay a render pass script",
	Long: `Runs a YAML or JSON script of render steps against a fresh document and
reports every step, completion and the final phase.

With --watch the script is replayed again every time it changes.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		jsonMode, _ := cmd.Flags().GetBool("json")
		quiet, _ := cmd.Flags().GetBool("quiet")
		showTree, _ := cmd.Flags().GetBool("tree")
		keepGoing, _ := cmd.Flags().GetBool("continue")
		watch, _ := cmd.Flags().GetBool("watch")

		opts := cli.ReplayOptions{
			ScriptPath:      args[0],
			JSON:            jsonMode,
			Quiet:           quiet,
			ShowTree:        showTree,
			ContinueOnError: keepGoing,
			Platform:        cfg.Platform,
			Out:             cmd.OutOrStdout(),
			Logger:          logger,
		}

		// Markdown is only rendered for humans on a terminal.
		fd := int(os.Stdout.Fd())
		if !jsonMode && term.IsTerminal(fd) {
			width, _, err := term.GetSize(fd)
			if err != nil {
				width = 0
			}
			if render, err := tui.NewRenderer(width); err == nil {
				opts.Renderer = render
			}
		}

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		if watch {
			if jsonMode {
				return errWatchJSON
			}
			if !quiet {
				tui.PrintBanner(cmd.ErrOrStderr(), "")
			}
			return cli.WatchReplay(sigCtx, opts)
		}

		rep, err := cli.Replay(sigCtx, opts)
		if err != nil {
			return err
		}
		if rep.Failed > 0 {
			return errStepsFailed(rep.Failed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().Bool("json", false, "Emit JSON lines instead of text")
	replayCmd.Flags().BoolP("quiet", "q", false, "Only print the summary")
	replayCmd.Flags().Bool("tree", false, "Print the final document body")
	replayCmd.Flags().Bool("continue", false, "Keep running after a failing step")
	replayCmd.Flags().BoolP("watch", "w", false, "Replay again whenever the script changes")
}
