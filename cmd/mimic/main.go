package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ayusman/mimic/internal/app"
	"github.com/ayusman/mimic/internal/config"
	"github.com/ayusman/mimic/internal/log"
	"github.com/ayusman/mimic/internal/plugin"
	"github.com/ayusman/mimic/internal/retarget"
	"github.com/ayusman/mimic/internal/server"
	"github.com/ayusman/mimic/internal/store"
)

type options struct {
	configPath  string
	dbPath      string
	addr        string
	cameraID    int
	skeletonRef string
	record      string
	idleFPS     int
	pluginDir   string
	exportLimit time.Duration
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "tuning config file (JSON with comments, default "+config.DefaultConfigPath+" if present)")
	flag.StringVar(&opts.dbPath, "db", "", "database path (default ~/.mimic/mimic.db)")
	flag.StringVar(&opts.addr, "addr", ":8080", "HTTP listen address")
	flag.IntVar(&opts.cameraID, "camera", 0, "camera device ID")
	flag.StringVar(&opts.skeletonRef, "skeleton", "", "stored skeleton to bind, by ID or name")
	flag.StringVar(&opts.record, "record", "", "start recording a take with this name")
	flag.IntVar(&opts.idleFPS, "idle-fps", app.DefaultIdleFPS, "capture rate without motion, 0 to disable")
	flag.StringVar(&opts.pluginDir, "plugins", "", "exporter plugin directory (default ~/.mimic/plugins)")
	flag.DurationVar(&opts.exportLimit, "export-timeout", plugin.DefaultTimeout, "time limit for one export")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	log.Init(*logLevel)

	if err := run(opts); err != nil {
		log.Error("mimic failed", "err", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	tuning := config.DefaultTuningConfig()
	if opts.configPath == "" {
		if _, err := os.Stat(config.DefaultConfigPath); err == nil {
			opts.configPath = config.DefaultConfigPath
		}
	}
	if opts.configPath != "" {
		var err error
		if tuning, err = config.LoadTuningConfig(opts.configPath); err != nil {
			return err
		}
		log.Info("loaded tuning config", "path", opts.configPath)
	}
	engineCfg, err := retarget.ConfigFromTuning(tuning)
	if err != nil {
		return err
	}

	dir, err := dataDir()
	if err != nil {
		return err
	}
	dbPath := opts.dbPath
	if dbPath == "" {
		dbPath = filepath.Join(dir, "mimic.db")
	}
	st, err := store.New(dbPath)
	if err != nil {
		return fmt.Errorf("initialize store: %w", err)
	}
	defer st.Close()

	a, err := app.New(app.Config{
		Store:    st,
		CameraID: opts.cameraID,
		FPS:      tuning.GetFPS(),
		IdleFPS:  opts.idleFPS,
		Engine:   &engineCfg,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.skeletonRef != "" {
		if err := a.LoadSkeleton(ctx, opts.skeletonRef); err != nil {
			return err
		}
	}

	rotations := server.NewRotationsHandler()
	a.AddPublisher(rotations)

	a.SetEnabled(true)
	if err := a.Start(); err != nil {
		return fmt.Errorf("start pipeline: %w", err)
	}
	defer a.Stop()

	if opts.record != "" {
		take, err := a.StartRecording(opts.record)
		if err != nil {
			return err
		}
		defer func() {
			if _, err := a.StopRecording(); err != nil {
				log.Error("failed to finish take", "take", take.ID, "err", err)
			}
		}()
	}

	pluginDir := opts.pluginDir
	if pluginDir == "" {
		pluginDir = filepath.Join(dir, "plugins")
	}
	plugins := plugin.NewManager(pluginDir)
	if err := plugins.Discover(); err != nil {
		log.Warn("plugin discovery failed", "dir", pluginDir, "err", err)
	}
	exporter := plugin.NewExporter(plugins, plugin.NewExecutor(opts.exportLimit), st)

	webDir := findWebDir()
	if webDir != "" {
		log.Info("serving static files", "dir", webDir)
	}
	srv := &http.Server{
		Addr: opts.addr,
		Handler: server.New(server.Config{
			StaticDir: webDir,
			Store:     st,
			Pipeline:  a,
			Rotations: rotations,
			Exporter:  exporter,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", "addr", opts.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("server shutdown", "err", err)
		}
	}
	return nil
}

// dataDir returns ~/.mimic, creating it if needed.
func dataDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	dir := filepath.Join(homeDir, ".mimic")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create data directory: %w", err)
	}
	return dir, nil
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.mimic/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	for _, p := range []string{"web", "../web", "../../web"} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if absPath, err := filepath.Abs(p); err == nil {
				return absPath
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".mimic", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
