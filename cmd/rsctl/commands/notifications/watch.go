package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/marmos91/reportshare/cmd/rsctl/cmdutil"
	"github.com/marmos91/reportshare/internal/cli/timeutil"
	"github.com/marmos91/reportshare/internal/logger"
	"github.com/marmos91/reportshare/internal/telemetry"
	"github.com/marmos91/reportshare/pkg/config"
	"github.com/marmos91/reportshare/pkg/metrics"
	"github.com/marmos91/reportshare/pkg/notify"
)

var watchCount int

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream share notifications",
	Long: `Connect to the push channel and print notifications as they arrive.

The connection is re-established with exponential backoff when it drops.
The command ends on Ctrl+C, after --count events, or when the session is
rejected by the backend.

Metrics (when enabled in the settings file) are served on /metrics for as
long as the command runs.

Examples:
  # Stream as text
  rsctl notifications watch

  # Stream JSON lines and stop after the first event
  rsctl notifications watch -o json --count 1`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().IntVar(&watchCount, "count", 0, "Exit after this many events (0 = unlimited)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := cmdutil.LoadConfig()
	if err != nil {
		return err
	}
	if !cfg.Push.Enabled {
		return fmt.Errorf("push channel is disabled (push.enabled: false)")
	}

	printer, err := cmdutil.Printer()
	if err != nil {
		return err
	}

	env, sess, err := cmdutil.NewSignedInEnv(ctx, cmdutil.EnvOptions{Push: true, Metrics: true})
	if err != nil {
		return err
	}
	defer func() { _ = env.Close() }()

	shutdown, err := startObservability(ctx, cfg, sess.UserID)
	if err != nil {
		return err
	}
	defer shutdown()

	bus := env.Runtime.Bus()
	if bus == nil {
		return fmt.Errorf("notification bus did not start")
	}

	sub := bus.Feed().Subscribe(notify.DefaultFeedCapacity)
	defer sub.Close()
	states, stopStates := bus.WatchStatus(8)
	defer stopStates()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return env.Runtime.Watch(ctx)
	})
	if cfg.Metrics.Enabled {
		g.Go(func() error {
			return metrics.Serve(ctx, fmt.Sprintf(":%d", cfg.Metrics.Port))
		})
	}
	g.Go(func() error {
		defer cancel()
		return stream(ctx, bus, sub, states, watchCount, func(ev notify.Event) error {
			return printer.Stream(eventLine(ev))
		})
	})

	cmd.PrintErrf("Watching notifications for %s (Ctrl+C to stop)\n", sess.UserID)
	if err := g.Wait(); err != nil {
		return err
	}
	return sessionChanged(bus, env.Runtime.Bus())
}

// sessionChanged reports why watching stopped when another rsctl process
// signed out or switched user, which replaces the bus being streamed.
func sessionChanged(watched, current *notify.Bus) error {
	switch {
	case current == watched:
		return nil
	case current == nil:
		return fmt.Errorf("signed out of %s in another session", watched.UserID())
	default:
		return fmt.Errorf("session switched from %s to %s, run the command again", watched.UserID(), current.UserID())
	}
}

// stream writes events until ctx is done, limit events were written, or the
// bus gives up. A bus that stops on its own reports its last error.
func stream(
	ctx context.Context,
	bus *notify.Bus,
	sub *notify.Subscription,
	states <-chan notify.State,
	limit int,
	write func(notify.Event) error,
) error {
	seen := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-sub.C():
			if !ok {
				return busError(bus)
			}
			if err := write(ev); err != nil {
				return err
			}
			seen++
			if limit > 0 && seen >= limit {
				return nil
			}
		case st, ok := <-states:
			if !ok {
				states = nil
				continue
			}
			logger.Info("Notification channel", logger.KeyState, st.String())
		case <-bus.Done():
			return busError(bus)
		}
	}
}

// eventLine prints a notification as "<time>  <type>  <message>" in table
// output and as the event itself otherwise.
type eventLine notify.Event

func (e eventLine) Headers() []string {
	return []string{"RECEIVED", "TYPE", "MESSAGE"}
}

func (e eventLine) Rows() [][]string {
	return [][]string{{timeutil.FormatTime(e.ReceivedAt), string(e.Type), e.Message}}
}

func (e eventLine) MarshalJSON() ([]byte, error) {
	return json.Marshal(notify.Event(e))
}

func (e eventLine) MarshalYAML() (any, error) {
	return notify.Event(e), nil
}

func busError(bus *notify.Bus) error {
	if err := bus.LastError(); err != nil {
		return fmt.Errorf("notification channel stopped: %w", err)
	}
	return nil
}

// startObservability starts tracing and profiling for the lifetime of the
// command.
func startObservability(ctx context.Context, cfg *config.Config, userID string) (func(), error) {
	stopTracing, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "rsctl",
		ServiceVersion: cmdutil.Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	stopProfiling, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "rsctl",
		ServiceVersion: cmdutil.Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		UserID:         userID,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	})
	if err != nil {
		_ = stopTracing(context.Background())
		return nil, fmt.Errorf("failed to initialize profiling: %w", err)
	}
	if telemetry.IsEnabled() || telemetry.IsProfilingEnabled() {
		logger.Debug("Telemetry active",
			"tracing", telemetry.IsEnabled(),
			"profiling", telemetry.IsProfilingEnabled())
	}

	return func() {
		if err := stopProfiling(); err != nil {
			logger.Warn("Profiler shutdown failed", logger.KeyError, err)
		}
		if err := stopTracing(context.Background()); err != nil {
			logger.Warn("Telemetry shutdown failed", logger.KeyError, err)
		}
	}, nil
}
