// Package main provides the player entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	apiconnect "github.com/osa030/bragi/internal/api/connect"
	"github.com/osa030/bragi/internal/app/filter"
	"github.com/osa030/bragi/internal/app/playback"
	"github.com/osa030/bragi/internal/app/session"
	"github.com/osa030/bragi/internal/infra/audio"
	"github.com/osa030/bragi/internal/infra/config"
	"github.com/osa030/bragi/internal/infra/logger"
	"github.com/osa030/bragi/internal/infra/metadata"
)

var (
	app        = kingpin.New("bragi", "bragi local audio player")
	configPath = app.Flag("config", "Path to config file").Default("config/bragi.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	debug      = app.Flag("debug", "Alias for --verbose").Hidden().Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()
	files      = app.Flag("file", "Audio file to queue at startup (repeatable)").Short('f').Strings()
	playlists  = app.Flag("playlist", "M3U playlist to queue at startup (repeatable)").Strings()

	// list-filters command
	listFiltersCmd = app.Command("list-filters", "List available filters and exit")
)

func init() {
	app.Command("start", "Start the player (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if command == listFiltersCmd.FullCommand() {
		printFilters()
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	loggerConfig := logger.Config{
		Output:     "stdout",
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	}
	if cfg.Log.File != "" {
		loggerConfig.Output = "file"
	}
	// Command-line flags win over the config file
	if *verbose || *debug {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = "file"
		loggerConfig.File = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	zlog.Info().Msgf("Loaded config from %s", *configPath)

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Player error: %+v", err)
		os.Exit(1)
	}
}

// run executes the main player logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	if err := validateFilterConfig(cfg); err != nil {
		return errors.Wrap(err, "invalid filter config")
	}

	sink, err := audio.NewSink(audio.Config{
		SampleRate:      cfg.Audio.SampleRate,
		Buffer:          time.Duration(cfg.Audio.BufferMs) * time.Millisecond,
		ResampleQuality: cfg.Audio.ResampleQuality,
		InitialVolume:   cfg.Audio.InitialVolume,
	})
	if err != nil {
		return errors.Wrap(err, "failed to open audio output")
	}

	decoder := audio.NewDecoder()
	controller := playback.NewController(sink, decoder, metadata.NewReader(decoder), playback.Config{
		MaxVolume: cfg.Audio.MaxVolume,
	})
	controller.SetVolume(cfg.Audio.InitialVolume)

	sessionMgr := session.NewManager(cfg, controller)

	ctx := context.Background()
	if len(*files) > 0 || len(*playlists) > 0 {
		n, err := sessionMgr.OpenStartup(ctx, *files, *playlists)
		if err != nil {
			zlog.Warn().Msgf("Some startup entries were not queued: %v", err)
		}
		zlog.Info().Msgf("Queued %d tracks at startup", n)
	}

	service := apiconnect.NewPlayerService(sessionMgr)

	mux := http.NewServeMux()
	path, handler := apiconnect.NewPlayerServiceHandler(
		service,
		connect.WithInterceptors(apiconnect.NewAuthInterceptor(cfg.Server.Token)),
	)
	mux.Handle(path, handler)

	if cfg.Server.Token == "" {
		zlog.Warn().Msg("Control token is not set, the control API is unauthenticated")
	}

	// Create server with h2c (HTTP/2 cleartext) support
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           h2c.NewHandler(mux, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrCh := make(chan error, 1)
	serverStartedCh := make(chan struct{})

	go func() {
		zlog.Info().Msgf("Starting control server: addr=%s", cfg.Server.Addr)
		close(serverStartedCh)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	<-serverStartedCh
	// Give the server a moment to fully initialize
	time.Sleep(100 * time.Millisecond)

	executeHooks(cfg, cfg.Server.Hooks.OnStarted, "on_started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case <-sessionMgr.Done():
		zlog.Info().Msg("Session ended, shutting down...")
	case err := <-serverErrCh:
		runErr = errors.Wrap(err, "server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Close session manager first to terminate active streams
	sessionMgr.Close()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	zlog.Info().Msg("Player stopped")

	executeHooks(cfg, cfg.Server.Hooks.OnStopped, "on_stopped")

	return runErr
}

// printFilters prints available filters.
func printFilters() {
	fmt.Println("Available Filters:")
	registry := filter.GetRegistered()
	for _, name := range filter.Names() {
		f := registry[name](filter.Deps{})
		codes := strings.Join(f.ReturnCodes(), ", ")
		fmt.Printf("  %-30s - %s [codes: %s]\n", f.Name(), f.Description(), codes)
	}
}

// validateFilterConfig validates filter configurations.
func validateFilterConfig(cfg *config.Config) error {
	for _, name := range cfg.EnabledFilters() {
		if _, err := filter.New(name, filter.Deps{}, cfg.FilterSettings(name)); err != nil {
			return errors.Wrapf(err, "filter %s", name)
		}
	}
	return nil
}

// hookTimeout bounds a single lifecycle hook.
const hookTimeout = 30 * time.Second

// executeHooks runs lifecycle shell commands in order. Each command sees
// the control address and the stage in its environment.
func executeHooks(cfg *config.Config, hooks []string, stage string) {
	if len(hooks) == 0 {
		return
	}

	zlog.Info().Msgf("Executing %s hooks (%d commands)", stage, len(hooks))

	env := append(os.Environ(),
		config.EnvListenAddr+"="+cfg.Server.Addr,
		"BRAGI_HOOK_STAGE="+stage,
	)
	for _, hook := range hooks {
		ctx, cancel := context.WithTimeout(context.Background(), hookTimeout)
		cmd := exec.CommandContext(ctx, "sh", "-c", hook)
		cmd.Env = env
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		start := time.Now()
		err := cmd.Run()
		cancel()
		if err != nil {
			zlog.Error().Err(err).Msgf("Hook failed: stage=%s command=%q", stage, hook)
			continue
		}
		zlog.Debug().Msgf("Hook finished: stage=%s command=%q elapsed=%v", stage, hook, time.Since(start))
	}
}
