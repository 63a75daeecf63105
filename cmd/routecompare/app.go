package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/truckmatch/routecompare/internal/commands"
	"github.com/truckmatch/routecompare/internal/config"
	"github.com/truckmatch/routecompare/internal/dispatcher"
	"github.com/truckmatch/routecompare/internal/geo"
	"github.com/truckmatch/routecompare/internal/influx"
	"github.com/truckmatch/routecompare/internal/logging"
	"github.com/truckmatch/routecompare/internal/mockrouter"
	"github.com/truckmatch/routecompare/internal/monitor"
	intOtel "github.com/truckmatch/routecompare/internal/otel"
	"github.com/truckmatch/routecompare/internal/routing"
	"github.com/truckmatch/routecompare/internal/scenario"
	"github.com/truckmatch/routecompare/internal/session"
	"github.com/truckmatch/routecompare/internal/storage"
)

const (
	telemetryFlushInterval = time.Second
	shutdownTimeout        = 5 * time.Second
)

// app holds every long-lived service of one process run.
type app struct {
	opts     options
	runStart time.Time

	logFile      *os.File
	slogManager  *logging.SlogManager
	graylog      logging.Option
	logger       *slog.Logger
	zlog         zerolog.Logger
	otelProvider *intOtel.Provider

	influxManager *influx.Manager
	sink          *influx.Sink
	stopSink      context.CancelFunc
	sinkDone      chan struct{}

	fakeRouter *http.Server
	store      storage.Backend
	scenario   *scenario.Context
	engine     *session.Engine
	dispatcher *dispatcher.Dispatcher
	monitor    *monitor.Service
}

func newApp(ctx context.Context, opts options, runStart time.Time) (*app, error) {
	a := &app{
		opts:        opts,
		runStart:    runStart,
		slogManager: logging.NewSlogManager(),
		scenario:    scenario.NewContext(),
	}

	configErr := config.Load(opts.configDir)
	if err := a.setupLogging(); err != nil {
		return nil, err
	}
	if configErr != nil {
		a.logger.Warn("Failed to load config, using defaults!", "error", configErr)
	} else {
		a.logger.Info("Loaded config", "dir", opts.configDir)
	}
	a.logger.Info("Starting up...", "version", Version, "buildDate", BuildDate)

	a.setupTelemetry(ctx)

	backend, err := storage.NewBackend(config.GetStorageConfig())
	if err != nil {
		a.shutdown()
		return nil, err
	}
	if err := backend.Init(); err != nil {
		a.shutdown()
		return nil, fmt.Errorf("initializing route store: %w", err)
	}
	a.store = backend
	a.logger.Info("Route store initialized", "type", config.GetStorageConfig().Type)

	client, err := a.routingClient()
	if err != nil {
		a.shutdown()
		return nil, err
	}

	routingCfg := config.GetRoutingConfig()
	playbackCfg := config.GetPlaybackConfig()
	viewportCfg := config.GetViewportConfig()
	speed := playbackCfg.Speed
	if opts.speed != 0 {
		speed = opts.speed
	}

	a.engine = session.New(session.Config{
		Costing:       routingCfg.Costing,
		IntervalKm:    playbackCfg.IntervalKm,
		FrameInterval: playbackCfg.FrameInterval,
		Speed:         speed,
		Viewport: geo.FitOptions{
			WidthPx:  viewportCfg.WidthPx,
			HeightPx: viewportCfg.HeightPx,
			Padding:  viewportCfg.PaddingPx,
			MaxZoom:  viewportCfg.MaxZoom,
		},
	},
		routing.NewCachedFetcher(client, a.store, a.logger),
		session.WithLogger(a.logger),
		session.WithScenarioContext(a.scenario),
	)

	a.dispatcher, err = dispatcher.New(logging.NewDispatcherLogger(a.zlog, a.scenario.Attrs))
	if err != nil {
		a.shutdown()
		return nil, fmt.Errorf("failed to create dispatcher: %w", err)
	}
	commands.Register(a.dispatcher, a.engine)
	a.logger.Info("Host commands registered", "commands", a.dispatcher.Commands())

	a.monitor = monitor.NewService(monitor.Dependencies{
		Frames:     a.engine,
		Logger:     a.logger,
		StatusPath: filepath.Join(config.GetString("logsDir"), AppName+".status.txt"),
	})
	if err := a.monitor.Start(); err != nil {
		a.logger.Warn("Status monitor not started", "error", err)
	}

	return a, nil
}

// setupLogging opens the run's log file and configures slog, zerolog and the
// optional Graylog sink.
func (a *app) setupLogging() error {
	logsDir := config.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("creating logs directory: %w", err)
	}

	path := logging.LogFilePath(logsDir, AppName, a.runStart)
	if _, err := os.Stat(path); err == nil {
		_ = os.Rename(path, path+".old")
	}
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	a.logFile = file

	level := config.GetString("logLevel")
	zlevel, err := zerolog.ParseLevel(level)
	if err != nil {
		zlevel = zerolog.InfoLevel
	}
	a.zlog = zerolog.New(file).Level(zlevel).With().Timestamp().Str("app", AppName).Logger()

	graylog := config.GetGraylogConfig()
	var graylogErr error
	if graylog.Enabled {
		a.graylog, graylogErr = a.slogManager.ConnectGraylog(graylog.Address)
	}

	a.configureSlog(nil)
	a.logger.Info("Begin logging in logs directory", "path", path)
	if graylogErr != nil {
		a.logger.Error("Graylog unavailable", "address", graylog.Address, "error", graylogErr)
	} else if graylog.Enabled {
		a.logger.Info("Shipping logs to Graylog", "address", graylog.Address)
	}
	return nil
}

func (a *app) configureSlog(provider *sdklog.LoggerProvider) {
	opts := []logging.Option{logging.WithContextProvider(a.scenario.Attrs)}
	if a.graylog != nil {
		opts = append(opts, a.graylog)
	}

	a.slogManager.Setup(a.logFile, config.GetString("logLevel"), provider, opts...)
	a.logger = a.slogManager.Logger()
	slog.SetDefault(a.logger)
}

// setupTelemetry starts the OTel providers and the InfluxDB route_fetch sink,
// both optional.
func (a *app) setupTelemetry(ctx context.Context) {
	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		provider, err := intOtel.New(intOtel.Config{
			Enabled:      otelCfg.Enabled,
			ServiceName:  otelCfg.ServiceName,
			BatchTimeout: otelCfg.BatchTimeout,
			LogWriter:    a.logFile,
			MetricWriter: a.logFile,
			Endpoint:     otelCfg.Endpoint,
			Insecure:     otelCfg.Insecure,
		})
		if err != nil {
			a.logger.Error("Failed to initialize OTel provider", "error", err)
		} else {
			a.otelProvider = provider
			a.configureSlog(provider.LoggerProvider())
			a.logger.Info("OTel provider initialized", "endpoint", otelCfg.Endpoint)
		}
	}

	influxCfg := config.GetInfluxConfig()
	if !influxCfg.Enabled {
		return
	}
	backupPath := filepath.Join(config.GetString("logsDir"),
		fmt.Sprintf("%s_%s.lp.gz", AppName, a.runStart.Format("20060102_150405")))
	a.influxManager = influx.NewManager(influxCfg, a.zlog, backupPath)
	if err := a.influxManager.Connect(ctx); err != nil {
		a.logger.Error("InfluxDB telemetry disabled", "error", err)
		return
	}

	a.sink = influx.NewSink(a.influxManager, influx.DefaultSinkCapacity, a.zlog)
	sinkCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a.stopSink = cancel
	a.sinkDone = make(chan struct{})
	go func() {
		defer close(a.sinkDone)
		a.sink.Run(sinkCtx, telemetryFlushInterval)
	}()
}

// routingClient builds the routing client, starting the mock service first
// when requested.
func (a *app) routingClient() (*routing.Client, error) {
	cfg := config.GetRoutingConfig()

	if a.opts.fakeRouter {
		endpoint, err := a.startFakeRouter()
		if err != nil {
			return nil, err
		}
		cfg.Endpoint = endpoint
	}

	opts := []routing.Option{routing.WithLogger(a.logger)}
	if a.sink != nil {
		opts = append(opts, routing.WithSink(a.sink))
	}

	client, err := routing.New(routing.Config{
		Endpoint:  cfg.Endpoint,
		Costing:   cfg.Costing,
		Units:     cfg.Units,
		Timeout:   cfg.Timeout,
		Precision: cfg.Precision,
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating routing client: %w", err)
	}
	a.logger.Info("Routing client ready", "endpoint", cfg.Endpoint, "costing", cfg.Costing)
	return client, nil
}

func (a *app) startFakeRouter() (string, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("starting mock routing service: %w", err)
	}

	router := mockrouter.New()
	router.Logger = a.logger
	a.fakeRouter = &http.Server{Handler: router.Handler(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := a.fakeRouter.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("Mock routing service stopped", "error", err)
		}
	}()

	endpoint := "http://" + ln.Addr().String() + "/route"
	a.logger.Info("Mock routing service listening", "endpoint", endpoint)
	return endpoint, nil
}

// shutdown releases everything newApp created, in reverse order. Safe to call
// on a partially built app.
func (a *app) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if a.monitor != nil {
		a.monitor.Stop()
	}
	if a.dispatcher != nil {
		a.dispatcher.Close()
	}
	if a.engine != nil {
		_ = a.engine.Close()
	}
	if a.fakeRouter != nil {
		_ = a.fakeRouter.Shutdown(ctx)
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("Closing route store", "error", err)
		}
	}
	if a.stopSink != nil {
		a.stopSink()
		<-a.sinkDone
	}
	if a.influxManager != nil {
		if err := a.influxManager.Close(); err != nil {
			a.logger.Warn("Closing InfluxDB client", "error", err)
		}
	}
	if a.logger != nil {
		a.logger.Info("Shut down")
	}
	if a.otelProvider != nil {
		_ = a.slogManager.Flush(ctx)
		if err := a.otelProvider.Shutdown(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "otel shutdown: %v\n", err)
		}
	}
	_ = a.slogManager.Close()
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
}
