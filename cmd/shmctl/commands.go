package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/srediag/shm-procctl/internal/config"
	"github.com/srediag/shm-procctl/internal/health"
	"github.com/srediag/shm-procctl/internal/logging"
	"github.com/srediag/shm-procctl/internal/metrics"
	"github.com/srediag/shm-procctl/pkg/procctl"
)

type command struct {
	flags *GlobalFlags
}

// session is everything a subcommand needs once flags are parsed.
type session struct {
	cfg    *config.Config
	log    *slog.Logger
	region *procctl.Region
	ctrl   *procctl.Controller
	closer io.Closer
}

func (c command) open(cmd *cobra.Command, create bool) (*session, error) {
	cfg, err := config.Load(c.flags.ConfigPath, cmd.Flags())
	if err != nil {
		return nil, err
	}
	log, closer := logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
		Output: cmd.ErrOrStderr(),
	})
	procctl.SetLogger(log.With("component", "procctl"))
	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		_ = closer.Close()
		return nil, err
	}

	opts := []procctl.Option{procctl.WithLayout(cfg.Layout())}
	if !create {
		opts = append(opts, procctl.WithoutCreate())
	}
	r, err := procctl.Open(cmd.Context(), cfg.FilePath(), opts...)
	if err != nil {
		_ = closer.Close()
		return nil, err
	}
	log.Debug("opened control region", "path", r.Path(), "slots", cfg.MaxSlots)
	return &session{cfg: cfg, log: log, region: r, ctrl: procctl.NewController(r), closer: closer}, nil
}

func (s *session) Close() error {
	err := s.region.Close()
	if cerr := s.closer.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

func (s *session) waitDown(ctx context.Context, slot int) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.cfg.Wait.Interval
	b.MaxInterval = 4 * s.cfg.Wait.Interval
	b.MaxElapsedTime = s.cfg.Wait.Timeout
	s.log.Info("waiting for process to go down", "slot", slot, "timeout", s.cfg.Wait.Timeout)
	if err := s.ctrl.WaitDown(ctx, slot, b); err != nil {
		return err
	}
	s.log.Info("process is down", "slot", slot)
	return nil
}

func parseSlot(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("invalid slot %q: %w", arg, err)
	}
	return n, nil
}

// withSession opens the region, runs fn and always releases the mapping.
func (c command) withSession(cmd *cobra.Command, create bool, fn func(*session) error) (err error) {
	s, err := c.open(cmd, create)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(s)
}

func createStatusCommand(c command) *cobra.Command {
	return &cobra.Command{
		Use:   "status [slot...]",
		Short: "Show UP and COMMAND flags of slots",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withSession(cmd, false, func(s *session) error {
				states, err := s.ctrl.Snapshot()
				if err != nil {
					return err
				}
				if len(args) > 0 {
					states, err = selectSlots(states, args)
					if err != nil {
						return err
					}
				}
				out := cmd.OutOrStdout()
				_, _ = fmt.Fprintf(out, "%-6s %-6s %s\n", "SLOT", "UP", "COMMAND")
				for _, st := range states {
					_, _ = fmt.Fprintf(out, "%-6d %-6t %s\n", st.Index, st.Up, st.Command)
				}
				return nil
			})
		},
	}
}

func selectSlots(states []procctl.SlotState, args []string) ([]procctl.SlotState, error) {
	out := make([]procctl.SlotState, 0, len(args))
	for _, a := range args {
		n, err := parseSlot(a)
		if err != nil {
			return nil, err
		}
		if n < 0 || n >= len(states) {
			return nil, fmt.Errorf("%w: %d not in [0, %d)", procctl.ErrOutOfRange, n, len(states))
		}
		out = append(out, states[n])
	}
	return out, nil
}

func createStopCommand(c command) *cobra.Command {
	var wait bool
	cmd := &cobra.Command{
		Use:   "stop <slot>",
		Short: "Request a graceful stop of the process in a slot",
		Long: `Write the stop command into a slot. Delivery is unconfirmed; use --wait to
poll until the process has published that it is down.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slot, err := parseSlot(args[0])
			if err != nil {
				return err
			}
			return c.withSession(cmd, true, func(s *session) error {
				if err := s.ctrl.RequestStop(slot); err != nil {
					return err
				}
				metrics.IncStopRequest(slot)
				s.log.Info("stop requested", "slot", slot, "path", s.region.Path())
				if !wait {
					return nil
				}
				return s.waitDown(cmd.Context(), slot)
			})
		},
	}
	cmd.Flags().BoolVar(&wait, "wait", false, "wait until the process is down")
	cmd.Flags().Duration("timeout", 0, "how long --wait polls before giving up")
	cmd.Flags().Duration("interval", 0, "initial polling interval for --wait")
	return cmd
}

func createResetCommand(c command) *cobra.Command {
	return &cobra.Command{
		Use:   "reset <slot>",
		Short: "Clear UP and COMMAND of a slot before assigning it to a new process",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slot, err := parseSlot(args[0])
			if err != nil {
				return err
			}
			return c.withSession(cmd, true, func(s *session) error {
				if err := s.ctrl.Reset(slot); err != nil {
					return err
				}
				s.log.Info("slot reset", "slot", slot)
				return nil
			})
		},
	}
}

func createWaitCommand(c command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wait <slot>",
		Short: "Wait until the process in a slot is down",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slot, err := parseSlot(args[0])
			if err != nil {
				return err
			}
			return c.withSession(cmd, false, func(s *session) error {
				return s.waitDown(cmd.Context(), slot)
			})
		},
	}
	cmd.Flags().Duration("timeout", 0, "how long to poll before giving up")
	cmd.Flags().Duration("interval", 0, "initial polling interval")
	return cmd
}

func createDumpCommand(c command) *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print the raw bytes of every slot",
		Long: `Print one line per slot with the decoded flags and the raw slot bytes.
With --raw the file is read without mapping it, so files of the wrong size
can be inspected too.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if raw {
				cfg, err := config.Load(c.flags.ConfigPath, cmd.Flags())
				if err != nil {
					return err
				}
				return procctl.DebugRegionDetail(cmd.OutOrStdout(), cfg.FilePath(), cfg.Layout())
			}
			return c.withSession(cmd, false, func(s *session) error {
				return procctl.Dump(cmd.OutOrStdout(), s.region)
			})
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "read the file directly instead of mapping it")
	return cmd
}

func createServeCommand(c command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve slot state as Prometheus metrics and health endpoints",
		Long: `Serve /metrics, /live and /ready for the control region. /ready fails until
every slot given with --slots is up and has no stop pending.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withSession(cmd, false, func(s *session) error {
				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()
				return serve(ctx, s)
			})
		},
	}
	cmd.Flags().String("listen", "", "listen address")
	cmd.Flags().IntSlice("slots", nil, "slots that must be up for /ready")
	return cmd
}

func newServeMux(s *session) (*http.ServeMux, error) {
	reg := prometheus.NewRegistry()
	if err := reg.Register(metrics.NewCollector(s.region)); err != nil {
		return nil, err
	}
	if err := metrics.Register(reg); err != nil {
		return nil, err
	}
	h := health.NewHandler(s.region, s.cfg.Serve.Slots)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	mux.HandleFunc("/live", h.LiveEndpoint)
	mux.HandleFunc("/ready", h.ReadyEndpoint)
	return mux, nil
}

func serve(ctx context.Context, s *session) error {
	mux, err := newServeMux(s)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              s.cfg.Serve.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("serving control region", "listen", srv.Addr, "path", s.region.Path())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
