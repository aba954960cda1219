// Command rdt is the process entry point: argument parsing, process
// bootstrap, and the application-layer test source/sink, all explicitly
// out of scope for the RDT engine itself (spec §1) but needed to run it.
//
// Grounded on the teacher's core/main.go (banner, signal channel,
// graceful-shutdown select), rebuilt on github.com/spf13/cobra instead
// of a hand-written flag-free loadConfig() returning a literal struct.
package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ventosilenzioso/go-rdt/internal/config"
	"github.com/ventosilenzioso/go-rdt/internal/harness"
	"github.com/ventosilenzioso/go-rdt/pkg/logger"
	"github.com/ventosilenzioso/go-rdt/pkg/rdt"
)

const version = "0.1.0"

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := config.Default()
	var configFile string
	var demo int

	cmd := &cobra.Command{
		Use:   "rdt",
		Short: "Reliable Data Transport peer: a selective-repeat sliding-window protocol over UDP",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configFile != "" {
				// Flags were parsed into cfg already: remember the ones
				// given explicitly and set them again over the file.
				given := map[string]string{}
				cmd.Flags().Visit(func(f *pflag.Flag) { given[f.Name] = f.Value.String() })
				if err := config.LoadFile(configFile, &cfg); err != nil {
					return err
				}
				for name, value := range given {
					if err := cmd.Flags().Set(name, value); err != nil {
						return err
					}
				}
			}
			return run(cmd.Context(), cfg, demo)
		},
	}

	fs := cmd.Flags()
	config.RegisterFlags(fs, &cfg)
	fs.StringVar(&configFile, "config", "", "optional YAML config file, overlaid before flags")
	fs.IntVar(&demo, "demo", 0, "send N \"testing N\" payloads and exit once they are all delivered back (0 disables)")

	return cmd
}

func run(ctx context.Context, cfg config.Config, demo int) error {
	logger.Banner("go-rdt", version)

	logger.SetLevel(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	reg := prometheus.NewRegistry()
	if cfg.MetricsAddr != "" {
		serveMetrics(cfg.MetricsAddr, reg)
	}

	conn, err := rdt.New(cfg, reg)
	if err != nil {
		return fmt.Errorf("starting connection: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn.Start(ctx)
	logger.Success("listening on %s, session %s", conn.LocalAddr(), conn.SessionID())

	if demo > 0 {
		return runDemo(ctx, conn, demo)
	}
	return runStdio(ctx, conn)
}

func serveMetrics(addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server: %v", err)
		}
	}()
	logger.Info("serving metrics on %s/metrics", addr)
}

// runDemo drives the "testing N" scenario from spec §8's concrete
// end-to-end tests: send count payloads, then wait for count payloads
// to be delivered back before shutting down. It is a one-peer half of
// the scenario: it only returns once the peer has sent it count payloads
// too, so point two instances of this binary at each other, both with
// --demo; against a plain stdin/stdout peer it keeps waiting until
// interrupted.
func runDemo(ctx context.Context, conn *rdt.Conn, count int) error {
	errCh := make(chan error, 1)
	go func() {
		for i := 0; i < count; i++ {
			if err := conn.Send(ctx, harness.Payload(i)); err != nil {
				errCh <- err
				return
			}
		}
		errCh <- nil
	}()

	received := 0
	for received < count {
		select {
		case payload := <-conn.Incoming():
			logger.Info("received: %s", payload)
			received++
		case err := <-errCh:
			if err != nil {
				return err
			}
		case <-ctx.Done():
			return conn.Stop()
		}
	}
	logger.Success("delivered all %d demo payloads", count)
	return conn.Stop()
}

// runStdio pipes stdin lines to Send and printed Incoming payloads to
// stdout, until ctx is cancelled (e.g. by SIGINT/SIGTERM).
func runStdio(ctx context.Context, conn *rdt.Conn) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return conn.Stop()
		case line, ok := <-lines:
			if !ok {
				<-ctx.Done()
				return conn.Stop()
			}
			if err := conn.Send(ctx, []byte(line)); err != nil {
				return conn.Stop()
			}
		case payload := <-conn.Incoming():
			fmt.Println(string(payload))
		}
	}
}
