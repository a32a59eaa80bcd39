package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/zoransi/split-laundry-express/internal/domain"
	"github.com/zoransi/split-laundry-express/internal/livefeed"
	"github.com/zoransi/split-laundry-express/internal/tracking"
)

func newRootCmd() *cobra.Command {
	v := viper.New()
	setDefaults(v)
	configureViper(v)

	rootCmd := &cobra.Command{
		Use:          "tracker",
		Short:        "Follow laundry orders live",
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.String("server", v.GetString("server"), "API base URL")
	flags.String("token", "", "bearer token")
	flags.Bool("verbose", false, "log debug output to stderr")
	_ = v.BindPFlag("server", flags.Lookup("server"))
	_ = v.BindPFlag("token", flags.Lookup("token"))
	_ = v.BindPFlag("verbose", flags.Lookup("verbose"))

	rootCmd.AddCommand(newTrackCmd(v), newVersionCmd())
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("tracker version %s\n", version)
		},
	}
}

func newTrackCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "track <order-id>...",
		Short: "Show the live status timeline of one or more orders",
		Long: "Connects to the live endpoint, joins every given order and redraws the\n" +
			"timeline on each update. Send SIGHUP to retry after the connection failed.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			untilDone, _ := cmd.Flags().GetBool("until-done")
			return runTrack(cmd.Context(), cfg, args, untilDone, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.Int("max-attempts", v.GetInt("live.max_reconnect_attempts"), "automatic reconnect attempts before giving up")
	flags.Duration("ping-interval", v.GetDuration("live.ping_interval"), "heartbeat interval")
	flags.Bool("until-done", false, "stop following orders once delivered or cancelled and exit when none are left")
	_ = v.BindPFlag("live.max_reconnect_attempts", flags.Lookup("max-attempts"))
	_ = v.BindPFlag("live.ping_interval", flags.Lookup("ping-interval"))

	return cmd
}

func newLogger(verbose bool) (*zap.SugaredLogger, error) {
	zcfg := zap.NewDevelopmentConfig()
	zcfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	zcfg.OutputPaths = []string{"stderr"}

	logger, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger.Sugar(), nil
}

func runTrack(ctx context.Context, cfg *Config, orderIDs []string, untilDone bool, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	logger, err := newLogger(cfg.Verbose)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	feedCfg := cfg.feedConfig()
	manager := livefeed.NewManager(feedCfg, livefeed.NewWebsocketDialer(feedCfg.URL, feedCfg.Token), logger)
	client := tracking.NewClient(cfg.Server, cfg.Token, logger)

	screen := newScreen(out)
	updates := make(chan struct{}, 1)
	view := tracking.NewView(manager, client, logger, func(st tracking.State) {
		screen.draw(st)
		select {
		case updates <- struct{}{}:
		default:
		}
	})
	defer view.Close()

	finished := make(map[string]domain.OrderStatus)
	defer printFinished(out, finished)

	if err := manager.Connect(); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	for _, id := range orderIDs {
		if err := view.Track(ctx, id); err != nil {
			logger.Warnw("failed to load order", "order_id", id, "error", err)
		}
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	// redraw so the reconnect notice and diagnostics age out
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-hup:
			logger.Infow("manual reconnect requested")
			if err := manager.Reconnect(); err != nil {
				return err
			}
		case <-updates:
			if untilDone && finishOrders(view, finished, logger) == 0 {
				return nil
			}
		case <-ticker.C:
			screen.draw(view.State())
		}
	}
}

// finishOrders stops following orders that reached a final status, records
// them in finished and returns how many are still open.
func finishOrders(view *tracking.View, finished map[string]domain.OrderStatus, logger *zap.SugaredLogger) int {
	open := 0
	for _, o := range view.State().Orders {
		if !o.Status.Terminal() {
			open++
			continue
		}
		finished[o.OrderID] = o.Status
		if err := view.Untrack(o.OrderID); err != nil {
			logger.Warnw("failed to leave order", "order_id", o.OrderID, "error", err)
		}
	}
	return open
}

func printFinished(out io.Writer, finished map[string]domain.OrderStatus) {
	ids := make([]string, 0, len(finished))
	for id := range finished {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Fprintf(out, "Order %s %s\n", id, finished[id])
	}
}
