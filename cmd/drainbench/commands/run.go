package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/baxromumarov/drain"
	"github.com/baxromumarov/drain/internal/bench"
	"github.com/baxromumarov/drain/metrics"
)

// NewRunCmd returns the command that runs one saturation scenario.
func NewRunCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Drain N saturated producers and report per-channel delivery counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fairness, err := drain.ParseFairness(v.GetString("fairness"))
			if err != nil {
				return err
			}
			sc := bench.Scenario{
				Channels: v.GetInt("channels"),
				Messages: v.GetInt("messages"),
				Buffer:   v.GetInt("buffer"),
				Fairness: fairness,
			}

			logger := newLogger(v.GetString("log-level"), v.GetString("log-format"), cmd.ErrOrStderr())

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return run(ctx, sc, v.GetString("metrics-addr"), logger, cmd.OutOrStdout())
		},
	}

	cmd.Flags().Int("channels", 4, "number of producer channels")
	cmd.Flags().Int("messages", 10000, "messages sent per channel")
	cmd.Flags().Int("buffer", 64, "capacity of each channel")
	cmd.Flags().String("fairness", drain.Randomized.String(), "tie-break policy: random or round-robin")
	cmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address while running")
	return cmd
}

func run(ctx context.Context, sc bench.Scenario, metricsAddr string, logger *slog.Logger, out io.Writer) error {
	opts := []drain.Option{drain.WithLogger(logger)}

	if metricsAddr != "" {
		reg := prometheus.NewRegistry()
		m := metrics.New(reg)
		opts = append(opts, drain.WithObserver(m.Observe))

		srv, err := serveMetrics(metricsAddr, reg, logger)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("Shutting down metrics server.", "error", err)
			}
		}()
	}

	logger.Info("Starting drain benchmark",
		"channels", sc.Channels,
		"messages", sc.Messages,
		"buffer", sc.Buffer,
		"fairness", sc.Fairness.String(),
	)

	rep, err := bench.Run(ctx, sc, opts...)
	if err != nil {
		return fmt.Errorf("benchmark: %w", err)
	}

	logger.Info("Drain benchmark finished",
		"session", rep.Session,
		"delivered", rep.Total(),
		"elapsed", rep.Elapsed.String(),
	)
	return printReport(out, rep)
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Serving prometheus server.", "error", err)
		}
	}()
	logger.Info("Serving metrics", "addr", ln.Addr().String())
	return srv, nil
}

func printReport(w io.Writer, rep bench.Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "session\t%s\n", rep.Session)
	fmt.Fprintf(tw, "fairness\t%s\n", rep.Fairness)
	fmt.Fprintf(tw, "delivered\t%d\n", rep.Total())
	fmt.Fprintf(tw, "elapsed\t%s\n", rep.Elapsed)
	fmt.Fprintf(tw, "throughput\t%.0f msg/s\n", rep.Throughput())
	fmt.Fprintf(tw, "spread\t%.3f\n", rep.Spread())
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "slot\tdelivered\tsaturated window")
	for i := range rep.Delivered {
		fmt.Fprintf(tw, "%d\t%d\t%d\n", i, rep.Delivered[i], rep.Window[i])
	}
	return tw.Flush()
}
