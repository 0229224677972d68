package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/smazurov/videosqueeze/cmd"
	"github.com/smazurov/videosqueeze/internal/api"
	"github.com/smazurov/videosqueeze/internal/blob"
	"github.com/smazurov/videosqueeze/internal/config"
	"github.com/smazurov/videosqueeze/internal/conversion"
	"github.com/smazurov/videosqueeze/internal/engine"
	"github.com/smazurov/videosqueeze/internal/events"
	"github.com/smazurov/videosqueeze/internal/logging"
	"github.com/smazurov/videosqueeze/internal/metrics"
	"github.com/smazurov/videosqueeze/internal/metrics/exporters"
	"github.com/smazurov/videosqueeze/internal/systemd"
	"github.com/smazurov/videosqueeze/internal/version"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port          string `help:"Port to listen on" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`
	CorsOrigin    string `help:"Allowed CORS origin" default:"*" toml:"server.cors_origin" env:"SERVER_CORS_ORIGIN"`
	MaxUploadSize int64  `help:"Largest accepted upload in MB" default:"2048" toml:"server.max_upload_mb" env:"SERVER_MAX_UPLOAD_MB"`
	Metrics       bool   `help:"Serve Prometheus metrics at /metrics" default:"true" toml:"server.metrics" env:"SERVER_METRICS"`

	// Auth settings, empty disables auth
	AuthUsername string `help:"Basic auth username" default:"" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password or its bcrypt hash" default:"" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Engine settings
	EnginePath    string `help:"ffmpeg binary" default:"ffmpeg" toml:"engine.ffmpeg_path" env:"ENGINE_FFMPEG_PATH"`
	ProbePath     string `help:"ffprobe binary, empty disables probing" default:"ffprobe" toml:"engine.ffprobe_path" env:"ENGINE_FFPROBE_PATH"`
	WorkDir       string `help:"Engine working directory, empty uses a temporary one" default:"" toml:"engine.work_dir" env:"ENGINE_WORK_DIR"`
	Threads       int    `help:"Encoder threads, 0 lets ffmpeg decide" default:"0" toml:"engine.threads" env:"ENGINE_THREADS"`
	EagerLoad     bool   `help:"Load the engine at startup instead of on the first upload" default:"false" toml:"engine.eager_load" env:"ENGINE_EAGER_LOAD"`
	PresetsFile   string `help:"Preset definitions file, reloaded on change" default:"presets.toml" toml:"presets.file" env:"PRESETS_FILE"`
	PresetsReload bool   `help:"Watch the presets file" default:"true" toml:"presets.watch" env:"PRESETS_WATCH"`

	// Logging settings
	LoggingLevel      string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat     string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingApi        string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
	LoggingHttp       string `help:"HTTP request logging level" default:"info" toml:"logging.http" env:"LOGGING_HTTP"`
	LoggingConversion string `help:"Conversion driver logging level" default:"info" toml:"logging.conversion" env:"LOGGING_CONVERSION"`
	LoggingEngine     string `help:"Engine logging level" default:"info" toml:"logging.engine" env:"LOGGING_ENGINE"`
	LoggingFfmpeg     string `help:"ffmpeg output logging level" default:"warn" toml:"logging.ffmpeg" env:"LOGGING_FFMPEG"`
	LoggingConfig     string `help:"Config and presets logging level" default:"info" toml:"logging.config" env:"LOGGING_CONFIG"`
}

func (o *Options) engineConfig() engine.Config {
	return engine.Config{
		FFmpegPath:      o.EnginePath,
		FFprobePath:     o.ProbePath,
		WorkDir:         o.WorkDir,
		Threads:         o.Threads,
		GracefulTimeout: 5 * time.Second,
	}
}

func main() {
	rt := &cmd.Runtime{}
	var cliRoot *cobra.Command

	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		if loadErr := config.LoadConfig(opts, cliRoot); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		logging.Initialize(logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"api":        opts.LoggingApi,
				"http":       opts.LoggingHttp,
				"conversion": opts.LoggingConversion,
				"engine":     opts.LoggingEngine,
				"ffmpeg":     opts.LoggingFfmpeg,
				"config":     opts.LoggingConfig,
			},
		})
		logger := logging.GetLogger("main")

		rt.Engine = opts.engineConfig()
		rt.PresetsFile = opts.PresetsFile

		// The rest is only started by the root command; subcommands need rt.
		eventBus := events.New()
		api.ForwardLogs(eventBus)

		blobs := blob.NewStore("")
		blobs.OnCountChange(metrics.SetLiveBlobs)

		ffmpegEngine := engine.NewFFmpeg(rt.Engine)
		driver := conversion.NewDriver(ffmpegEngine, blobs, eventBus)
		baseCtx, cancelBase := context.WithCancel(context.Background())
		driver.SetBaseContext(baseCtx)

		presets := config.NewPresetStore(opts.PresetsFile, eventBus)
		if loadErr := presets.Load(); loadErr != nil {
			logger.Warn("Failed to load presets, using built-ins", "file", opts.PresetsFile, "error", loadErr)
		}

		apiOpts := &api.Options{
			AuthUsername:   opts.AuthUsername,
			AuthPassword:   opts.AuthPassword,
			CORSOrigin:     opts.CorsOrigin,
			MaxUploadBytes: opts.MaxUploadSize << 20,
			Driver:         driver,
			Presets:        presets,
			Blobs:          blobs,
			EventBus:       eventBus,
		}
		if opts.Metrics {
			prometheus.MustRegister(metrics.NewHostCollector(ffmpegEngine.WorkDir))
			apiOpts.MetricsHandler = exporters.HTTPHandler()
		}
		server := api.NewServer(apiOpts)

		hooks.OnStart(func() {
			logger.Info("Starting VideoSqueeze", "version", version.Long())

			if opts.PresetsReload {
				if watchErr := presets.Watch(); watchErr != nil {
					logger.Warn("Presets hot reload disabled", "file", opts.PresetsFile, "error", watchErr)
				}
			}
			if opts.EagerLoad {
				go func() {
					if loadErr := driver.EnsureLoaded(baseCtx); loadErr != nil {
						logger.Error("Engine failed to load", "error", loadErr)
					}
				}()
			}

			go systemd.RunWatchdog(baseCtx)
			systemd.Ready("Listening on " + opts.Port)

			logger.Info("Starting HTTP server", "port", opts.Port)
			if startErr := server.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down server")
			systemd.Stopping()
			if stopErr := server.Stop(); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}
			cancelBase()
			if closeErr := presets.Close(); closeErr != nil {
				logger.Warn("Error stopping presets watcher", "error", closeErr)
			}
			// Removes the temporary working directory and its staged files.
			if closeErr := ffmpegEngine.Close(); closeErr != nil {
				logger.Warn("Error closing engine", "error", closeErr)
			}
		})
	})
	cliRoot = cli.Root()

	cliRoot.Version = version.Long()
	cliRoot.AddCommand(cmd.CreateCompressCmd(rt))
	cliRoot.AddCommand(cmd.CreateArgsCmd(rt))

	cli.Run()
}
