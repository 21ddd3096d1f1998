//go:build linux

package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jhstatewide/fand/internal/config"
	"github.com/jhstatewide/fand/internal/controller"
	"github.com/jhstatewide/fand/internal/ec"
	"github.com/jhstatewide/fand/internal/ipc"
	"github.com/jhstatewide/fand/internal/privilege"
	"github.com/jhstatewide/fand/internal/ratelog"
	"github.com/jhstatewide/fand/internal/sensor"
	"github.com/jhstatewide/fand/internal/singleton"
)

type opts struct {
	configPath string
	socketPath string
	lockPath   string
	debug      bool
}

func main() {
	var o opts

	root := &cobra.Command{
		Use:   "fand",
		Short: "EC-driven laptop fan control daemon",
		Long: `fand samples CPU/GPU temperature from the laptop's Embedded Controller,
drives a closed-loop PID/adaptive controller, and writes a fan duty-cycle
setpoint back to the EC. A local Unix-domain socket lets clients read status
and override mode/setpoint at runtime.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("socket") {
				o.socketPath = ""
			}
			return run(cmd.Context(), o)
		},
	}
	root.PersistentFlags().StringVar(&o.configPath, "config", "", "path to YAML config file (optional)")
	root.PersistentFlags().StringVar(&o.socketPath, "socket", config.SocketPathDefault, "IPC socket path")
	root.Flags().StringVar(&o.lockPath, "lock", singleton.DefaultLockPath, "single-instance advisory lock path")
	root.Flags().BoolVar(&o.debug, "debug", false, "enable per-tick debug tracing")

	root.AddCommand(newStatusCmd(&o))

	if err := root.Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context, o opts) error {
	cfg, err := config.LoadFile(o.configPath)
	if err != nil {
		return err
	}
	if o.socketPath != "" {
		cfg.SocketPath = o.socketPath
	}
	cfg.Debug = cfg.Debug || o.debug
	if err := cfg.Validate(); err != nil {
		return err
	}

	logLevel := slog.LevelInfo
	if cfg.Debug {
		logLevel = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	lock, err := singleton.Acquire(o.lockPath)
	if err != nil {
		return fmt.Errorf("startup: %w", err)
	}
	defer lock.Release()

	if err := privilege.Acquire(); err != nil {
		return fmt.Errorf("startup: %w", err)
	}

	ports, err := ec.OpenPorts()
	if err != nil {
		return fmt.Errorf("startup: %w", err)
	}

	var bulk ec.BulkImage
	if b, err := ec.OpenBulkImage(ec.DebugfsImagePath); err == nil {
		bulk = b
	} else {
		log.Info("bulk EC image unavailable, using port path only", "err", err)
	}

	transport := ec.New(ports, bulk)
	s := sensor.New(transport)
	ctrl := controller.New(s, cfg, log)

	srv, err := ipc.Listen(cfg.SocketPath, ctrl, log)
	if err != nil {
		return fmt.Errorf("startup: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	ipcStop := make(chan struct{})
	go srv.Serve(ipcStop)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	tickWarn := ratelog.New(log)

	log.Info("fand started", "socket", cfg.SocketPath, "interval", cfg.Interval)

	for {
		select {
		case <-ctx.Done():
			log.Info("shutting down")
			goto END
		case now := <-ticker.C:
			if err := ctrl.Tick(now); err != nil {
				tickWarn.Warn("tick", "tick failed", "err", err)
			}
		}
	}

END:
	close(ipcStop)
	if err := srv.Close(); err != nil {
		log.Warn("ipc shutdown", "err", err)
	}
	return nil
}

func newStatusCmd(o *opts) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Query the running daemon's status over the IPC socket",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printStatus(o.socketPath)
		},
	}
}

func printStatus(socketPath string) error {
	conn, err := net.DialTimeout("unix", socketPath, 2*time.Second)
	if err != nil {
		return fmt.Errorf("status: dial %s: %w", socketPath, err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(2 * time.Second)); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(conn, "STATUS"); err != nil {
		return fmt.Errorf("status: send request: %w", err)
	}

	reply, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return fmt.Errorf("status: read reply: %w", err)
	}
	fmt.Print(reply)
	return nil
}
