package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/spf13/cobra"

	"github.com/smazurov/gpioled/cmd"
	"github.com/smazurov/gpioled/internal/api"
	"github.com/smazurov/gpioled/internal/config"
	"github.com/smazurov/gpioled/internal/controller"
	"github.com/smazurov/gpioled/internal/endpoint"
	"github.com/smazurov/gpioled/internal/events"
	"github.com/smazurov/gpioled/internal/line"
	"github.com/smazurov/gpioled/internal/logging"
	"github.com/smazurov/gpioled/internal/metrics"
	"github.com/smazurov/gpioled/internal/systemd"
	"github.com/smazurov/gpioled/internal/version"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"/etc/gpioled/config.toml"`

	// LED line settings
	LineName      string `help:"GPIO line name of the LED" default:"LED1" toml:"line.name" env:"LINE_NAME"`
	LineActiveLow bool   `help:"LED lights when the line is driven low" default:"true" toml:"line.active_low" env:"LINE_ACTIVE_LOW"`
	LineConsumer  string `help:"Consumer label for the line request" default:"gpioled" toml:"line.consumer" env:"LINE_CONSUMER"`
	LineBackend   string `help:"Line backend (gpiocdev, sysfs)" default:"gpiocdev" toml:"line.backend" env:"LINE_BACKEND"`

	// Control endpoint settings
	EndpointSocket string `help:"Control socket path" default:"/run/gpioled/led.sock" toml:"endpoint.socket" env:"ENDPOINT_SOCKET"`
	EndpointMode   string `help:"Control socket permissions (octal)" default:"0660" toml:"endpoint.mode" env:"ENDPOINT_MODE"`

	// Status API settings
	Port           string `help:"Status API listen address, empty to disable" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`
	MetricsEnabled bool   `help:"Expose Prometheus metrics on /metrics" default:"true" toml:"metrics.enabled" env:"METRICS_ENABLED"`

	// Logging settings
	LoggingLevel      string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat     string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingController string `help:"Controller logging level" default:"info" toml:"logging.controller" env:"LOGGING_CONTROLLER"`
	LoggingEndpoint   string `help:"Control endpoint logging level" default:"info" toml:"logging.endpoint" env:"LOGGING_ENDPOINT"`
	LoggingAPI        string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
}

func (o *Options) loggingConfig() logging.Config {
	return logging.Config{
		Level:  o.LoggingLevel,
		Format: o.LoggingFormat,
		Modules: map[string]string{
			"controller": o.LoggingController,
			"endpoint":   o.LoggingEndpoint,
			"api":        o.LoggingAPI,
			"http":       o.LoggingAPI,
		},
	}
}

// resolveLogging applies the usual precedence (CLI flags > environment >
// config file) to the logging options in base and adds the levels of any
// other modules named in the [logging] table. base is a copy; the running
// options are not modified. A key removed from the file keeps its previous
// value until restart.
func resolveLogging(base Options, root *cobra.Command) (logging.Config, error) {
	if err := config.LoadConfig(&base, root); err != nil {
		return logging.Config{}, err
	}
	cfg := base.loggingConfig()

	fileCfg, err := config.LoadLoggingConfig(base.Config)
	if err != nil {
		return logging.Config{}, err
	}
	for module, level := range fileCfg.Modules {
		if _, ok := cfg.Modules[module]; !ok {
			cfg.Modules[module] = level
		}
	}
	return cfg, nil
}

// runtimeDirStage creates the directory holding the control socket.
func runtimeDirStage(socketPath string) controller.Stage {
	dir := filepath.Dir(socketPath)
	created := false
	return controller.Stage{
		Name: "rundir",
		Acquire: func() error {
			if _, err := os.Stat(dir); err == nil {
				return nil
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("failed to create %s: %w", dir, err)
			}
			created = true
			return nil
		},
		Release: func() error {
			if !created {
				return nil
			}
			created = false
			return os.Remove(dir)
		},
	}
}

func main() {
	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		loggingConfig, logErr := resolveLogging(*opts, cli.Root())
		if logErr != nil {
			loggingConfig = opts.loggingConfig()
		}
		logging.Initialize(loggingConfig)
		logger := logging.GetLogger("main")
		if logErr != nil {
			logger.Warn("Failed to read logging config", "error", logErr)
		}
		logger.Info("Starting", "version", version.String())

		mode, modeErr := strconv.ParseUint(opts.EndpointMode, 8, 32)
		if modeErr != nil {
			logger.Error("Invalid endpoint mode", "mode", opts.EndpointMode, "error", modeErr)
			os.Exit(1)
		}

		provider, providerErr := line.NewProvider(opts.LineBackend, opts.LineConsumer)
		if providerErr != nil {
			logger.Error("Invalid line backend", "error", providerErr)
			os.Exit(1)
		}

		polarity, polarityErr := line.BackendPolarity(opts.LineBackend, opts.LineActiveLow)
		if polarityErr != nil {
			logger.Error("Invalid line configuration", "error", polarityErr)
			os.Exit(1)
		}

		eventBus := events.New()

		endpointOpts := []endpoint.Option{endpoint.WithMode(os.FileMode(mode))}
		activated, actErr := systemd.ActivatedListener()
		if actErr != nil {
			logger.Warn("Ignoring socket activation", "error", actErr)
		} else if activated != nil {
			endpointOpts = append(endpointOpts, endpoint.WithListener(activated))
		}
		endpointServer := endpoint.NewServer(opts.EndpointSocket, logging.GetLogger("endpoint"), endpointOpts...)

		stages := []controller.Stage{endpointServer.Stage()}
		if activated == nil {
			stages = append([]controller.Stage{runtimeDirStage(opts.EndpointSocket)}, stages...)
		}

		ctrl := controller.New(controller.Config{
			LineName: opts.LineName,
			Polarity: polarity,
			Provider: provider,
			Stages:   stages,
			EventBus: eventBus,
			Logger:   logging.GetLogger("controller"),
		})

		var exporter *metrics.Exporter
		if opts.MetricsEnabled {
			exporter = metrics.NewExporter(nil, func() bool { return ctrl.Status().Held })
			exporter.Attach(eventBus)
		}

		apiOpts := &api.Options{
			Status:   ctrl,
			EventBus: eventBus,
		}
		if exporter != nil {
			apiOpts.PrometheusHandler = exporter.Handler()
		}
		apiServer := api.NewServer(apiOpts)

		running := *opts
		watcher := config.NewWatcher(opts.Config, func(string) (logging.Config, error) {
			return resolveLogging(running, cli.Root())
		}, func(cfg logging.Config) {
			logging.SetLevels(cfg)
		}, logger)

		notifier := systemd.NewNotifier()
		stopped := make(chan struct{})

		hooks.OnStart(func() {
			if initErr := ctrl.Init(); initErr != nil {
				logger.Error("Failed to initialize LED controller", "line", opts.LineName, "error", initErr)
				os.Exit(1)
			}
			endpointServer.Serve(ctrl)

			if watchErr := watcher.Start(); watchErr != nil {
				logger.Warn("Config reload disabled", "error", watchErr)
			}

			if _, notifyErr := notifier.Ready(); notifyErr != nil {
				logger.Warn("Failed to notify systemd", "error", notifyErr)
			}

			if opts.Port == "" {
				logger.Info("Status API disabled")
				<-stopped
				return
			}
			if startErr := apiServer.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down")
			if _, notifyErr := notifier.Stopping(); notifyErr != nil {
				logger.Warn("Failed to notify systemd", "error", notifyErr)
			}

			if stopErr := apiServer.Stop(); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}
			if stopErr := ctrl.Shutdown(); stopErr != nil && !errors.Is(stopErr, controller.ErrNotReady) {
				logger.Error("Error shutting down LED controller", "error", stopErr)
			}
			if stopErr := watcher.Stop(); stopErr != nil {
				logger.Warn("Error stopping config watcher", "error", stopErr)
			}
			if exporter != nil {
				exporter.Close()
			}
			close(stopped)
		})
	})

	cli.Root().Use = "gpioled"
	cli.Root().Version = version.String()
	cli.Root().AddCommand(cmd.CreateCheckLineCmd(line.Find, func(c *cobra.Command) string {
		var name string
		humacli.WithOptions(func(_ *cobra.Command, _ []string, opts *Options) {
			name = opts.LineName
		})(c, nil)
		return name
	}))
	cli.Root().AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(c *cobra.Command, _ []string) {
			c.Println(version.String())
		},
	})

	cli.Run()
}
