package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/vista/internal/cli"
	redisadapter "github.com/aretw0/vista/pkg/adapters/redis"
)

// eventsCmd represents the events command
var eventsCmd = &cobra.Command{
	Use:   "events <session>",
	Short: "Follow the completions of a session served by another process",
	Long: `Subscribes to the Redis channel a 'vista serve' replica publishes
completion events on and prints each event as a JSON line.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.Redis.Addr == "" {
			return errNoRedis
		}
		limit, _ := cmd.Flags().GetInt("limit")

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		client, err := cli.ConnectRedis(sigCtx, cfg.Redis.Addr)
		if err != nil {
			return err
		}
		defer client.Close()

		src := redisadapter.NewNotifier(client, cfg.Redis.Prefix)
		return cli.FollowEvents(sigCtx, src, args[0], cmd.OutOrStdout(), limit, func() {
			logger.Info("Following completions", "session_id", args[0], "channel", src.Channel(args[0]))
		})
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.Flags().String("redis", "", "Redis address the serving replicas publish on")
	eventsCmd.Flags().Int("limit", 0, "Stop after this many events (0 follows until interrupted)")
}
