package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/alanyoungcy/fxscalper/internal/app"
	"github.com/alanyoungcy/fxscalper/internal/cache/redis"
)

func newEventsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Read the bot event stream from Redis",
	}

	var (
		from  string
		count int
	)
	tail := &cobra.Command{
		Use:   "tail",
		Short: "Print stored events as JSON lines",
		Long: `Print events the running bot appended to the Redis stream, one JSON
object per line, prefixed with the stream entry ID. Pass the last printed
ID as --from to continue where a previous call stopped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			if !cfg.Redis.Enabled {
				return fmt.Errorf("redis is disabled; no event stream")
			}
			client, err := app.OpenRedis(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer client.Close()

			bus := redis.NewSignalBus(client, cfg.Redis.StreamMaxLen)
			stream := redis.NewEventSink(client, bus, slog.New(slog.NewTextHandler(io.Discard, nil))).Stream()
			msgs, err := bus.StreamRead(cmd.Context(), stream, from, count)
			if err != nil {
				return err
			}
			for _, m := range msgs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", m.ID, m.Payload)
			}
			return nil
		},
	}
	tail.Flags().StringVar(&from, "from", "0", "read entries after this stream ID")
	tail.Flags().IntVarP(&count, "count", "n", 100, "maximum entries")
	cmd.AddCommand(tail)
	return cmd
}
