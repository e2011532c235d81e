package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/Jackevansevo/jeddit/internal/api"
	"github.com/Jackevansevo/jeddit/internal/build"
	"github.com/Jackevansevo/jeddit/internal/config"
	"github.com/Jackevansevo/jeddit/internal/keeper"
	"github.com/Jackevansevo/jeddit/internal/logger"
	"github.com/Jackevansevo/jeddit/internal/metrics"
	"github.com/Jackevansevo/jeddit/internal/reddit"
	"github.com/Jackevansevo/jeddit/internal/server"
	"github.com/Jackevansevo/jeddit/internal/session"
	"github.com/Jackevansevo/jeddit/internal/store"
	"github.com/Jackevansevo/jeddit/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the jeddit web server",
	Long: `Start the HTTP server serving the web UI.

Requires CLIENT_ID, CLIENT_SECRET and REDIRECT_URI in the environment
(or a .env file). REDIRECT_URI must match the callback registered with
Reddit and end in /auth.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int("port", 0, "HTTP server port (overrides PORT env var)")
	serveCmd.Flags().String("store", "", "Store backend: redis, sqlite or memory (overrides STORE_BACKEND env var)")
	serveCmd.Flags().Bool("no-browser", false, "Do not automatically open the browser on startup")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// CLI flags override env config.
	if cmd.Flags().Changed("port") {
		cfg.Port, _ = cmd.Flags().GetInt("port")
	}
	if cmd.Flags().Changed("store") {
		cfg.StoreBackend, _ = cmd.Flags().GetString("store")
	}
	noBrowser, _ := cmd.Flags().GetBool("no-browser")

	url := fmt.Sprintf("http://localhost:%d", cfg.Port)
	printBanner(build.Version, url, cfg.StoreBackend)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log := logger.New(cfg.LogFile, cfg.SlogLevel())

	log.Info("jeddit starting",
		slog.Int("port", cfg.Port),
		slog.String("store", cfg.StoreBackend),
		slog.String("version", build.Version),
		slog.String("commit", build.CommitSHA),
	)

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			log.Warn("closing store failed", "error", cerr)
		}
	}()

	prometheus.MustRegister(metrics.Collectors()...)

	ua := build.UserAgent()
	app := reddit.NewAppTokenSource(cfg.ClientID, cfg.ClientSecret, reddit.AuthBaseURL, st, reddit.NewHTTPClient(ua))
	client := reddit.NewClient(reddit.Options{
		App:       app,
		Store:     st,
		CacheTTL:  cfg.File.PageCacheTTL,
		UserAgent: ua,
		Logger:    log,
	})

	oauthCfg := reddit.NewOAuthConfig(cfg.ClientID, cfg.ClientSecret, cfg.RedirectURI, reddit.AuthBaseURL)
	sessions := session.NewManager(st, oauthCfg, cfg.SecureCookies(), reddit.NewHTTPClient(ua))

	renderer, err := web.NewRenderer(Assets)
	if err != nil {
		return fmt.Errorf("loading templates: %w", err)
	}

	pages := web.New(client, sessions, renderer, cfg, log)
	apiSrv := api.New(client, sessions, log)

	jobs, err := keeper.New(app, st, log)
	if err != nil {
		return fmt.Errorf("setting up background jobs: %w", err)
	}
	jobs.Start()
	defer func() {
		if serr := jobs.Stop(); serr != nil {
			log.Warn("stopping background jobs failed", "error", serr)
		}
	}()

	srv := server.New(pages, apiSrv, Assets, cfg.Port, cfg.CORSOrigins, log)
	log.Info("server ready", "url", url)

	if !noBrowser {
		go openBrowser(url)
	}

	return srv.Run(ctx)
}

// openStore creates the configured store backend and verifies it is
// reachable before the server starts taking requests.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	var st store.Store
	switch cfg.StoreBackend {
	case "redis":
		st = store.NewRedis(cfg.RedisURL)
	case "sqlite":
		s, err := store.NewSQLite(cfg.DBPath())
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		st = s
	case "memory":
		st = store.NewMemory()
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := st.Ping(pingCtx); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("store %s unreachable: %w", cfg.StoreBackend, err)
	}
	return st, nil
}

// printBanner writes the startup banner to stdout. Structured logs go to
// the configured log destination instead.
func printBanner(version, url, backend string) {
	fmt.Print(`
    _          _     _ _ _
   (_) ___  __| | __| (_) |_
   | |/ _ \/ _` + "`" + ` |/ _` + "`" + ` | | __|
   | |  __/ (_| | (_| | | |_
  _/ |\___|\__,_|\__,_|_|\__|
 |__/

`)
	fmt.Printf("jeddit %s running.\n", version)
	fmt.Printf("Please visit %s\n", url)
	fmt.Printf("Store: %s\n\n", backend)
}

func openBrowser(url string) {
	time.Sleep(600 * time.Millisecond)
	ctx := context.Background()
	var c *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		c = exec.CommandContext(ctx, "rundll32", "url.dll,FileProtocolHandler", url)
	case "darwin":
		c = exec.CommandContext(ctx, "open", url)
	default:
		c = exec.CommandContext(ctx, "xdg-open", url)
	}
	_ = c.Start()
}
