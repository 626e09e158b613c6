package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/net/netutil"
	"golang.org/x/sync/errgroup"

	"radbench/internal/api"
	"radbench/internal/config"
	"radbench/internal/storage"
)

var serveMCP bool

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the radbench server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a running radbench server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func init() {
	startCmd.Flags().BoolVar(&serveMCP, "mcp", false, "also serve MCP over stdio")
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	initLogger(cfg.Log.Level)

	if pid, running := runningServerPID(); running {
		return fmt.Errorf("server already running (pid %d)", pid)
	}

	token, err := config.GetAPIToken(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("resolving API token: %w", err)
	}

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	addr := fmt.Sprintf("localhost:%d", cfg.Server.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	if cfg.Server.ConnLimit > 0 {
		ln = netutil.LimitListener(ln, cfg.Server.ConnLimit)
	}

	if err := writePIDFile(); err != nil {
		ln.Close()
		return err
	}
	defer removePIDFile()

	srv := &http.Server{
		Handler:           api.NewHandler(api.Deps{Store: store, Token: token}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("server listening", "addr", addr, "conn_limit", cfg.Server.ConnLimit)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if serveMCP {
		mcpSrv := server.NewStdioServer(api.NewMCPServer(api.MCPDeps{Store: store}))
		g.Go(func() error {
			slog.Info("MCP server listening on stdio")
			if err := mcpSrv.Listen(gctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("mcp server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func stopServer() error {
	pid, running := runningServerPID()
	if !running {
		printWarning("server is not running")
		return nil
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("finding process %d: %w", pid, err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("signaling process %d: %w", pid, err)
	}

	// Wait briefly for the process to exit and clean up its PID file.
	for i := 0; i < 50; i++ {
		if _, running := runningServerPID(); !running {
			printSuccess("server stopped (pid %d)", pid)
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	printWarning("server (pid %d) did not exit within 5s", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	pid, running := runningServerPID()
	if !running {
		printWarning("server is not running")
		return nil
	}

	printSuccess("server running (pid %d)", pid)
	printStatus("address", fmt.Sprintf("http://localhost:%d", cfg.Server.Port))

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://localhost:%d/health", cfg.Server.Port))
	if err != nil {
		printStatus("health", "unreachable")
		return nil
	}
	resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		printStatus("health", "ok")
	} else {
		printStatus("health", resp.Status)
	}
	return nil
}

func initLogger(level string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

func pidFilePath() string {
	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "radbench.pid")
}

func writePIDFile() error {
	return os.WriteFile(pidFilePath(), []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func removePIDFile() {
	os.Remove(pidFilePath())
}

// runningServerPID reads the PID file and checks the process is alive.
// A stale PID file is removed.
func runningServerPID() (int, bool) {
	data, err := os.ReadFile(pidFilePath())
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		removePIDFile()
		return 0, false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		removePIDFile()
		return 0, false
	}
	if err := proc.Signal(syscall.Signal(0)); err != nil {
		removePIDFile()
		return 0, false
	}
	return pid, true
}
