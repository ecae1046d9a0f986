package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fbettag/liveu-chat-monitor/internal/chat"
	"github.com/fbettag/liveu-chat-monitor/internal/commands"
	"github.com/fbettag/liveu-chat-monitor/internal/config"
	"github.com/fbettag/liveu-chat-monitor/internal/database"
	"github.com/fbettag/liveu-chat-monitor/internal/handlers"
	"github.com/fbettag/liveu-chat-monitor/internal/liveu"
	"github.com/fbettag/liveu-chat-monitor/internal/monitor"
	"github.com/fbettag/liveu-chat-monitor/internal/rtmp"
	"github.com/fbettag/liveu-chat-monitor/internal/stream"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	Version = "dev" // Set by build process
)

var (
	configFile        = pflag.StringP("config", "c", "config.yaml", "Path to configuration file")
	logLevel          = pflag.String("log-level", "info", "Log level (debug, info, warn, error)")
	showVersion       = pflag.Bool("version", false, "Show version and exit")
	setStatusPassword = pflag.String("set-status-password", "", "Hash and store a password for the status API, then exit")
)

func main() {
	pflag.Parse()

	if *showVersion {
		fmt.Printf("LiveU Chat Monitor %s\n", Version)
		os.Exit(0)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	if err := viper.BindPFlag("log.level", pflag.Lookup("log-level")); err != nil {
		logger.Fatalf("Failed to bind flags: %v", err)
	}

	cfg, err := config.LoadOrInitialize(*configFile)
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	configureLogger(logger, cfg.Log)

	if *setStatusPassword != "" {
		if err := cfg.SetStatusPassword(*setStatusPassword); err != nil {
			logger.Fatalf("Failed to hash password: %v", err)
		}
		if err := config.SaveConfig(*configFile, cfg); err != nil {
			logger.Fatalf("Failed to save configuration: %v", err)
		}
		logger.Infof("Status API password stored in %s", *configFile)
		os.Exit(0)
	}

	if !cfg.IsConfigured() {
		logger.Fatalf("Configuration incomplete, fill in the liveu and twitch sections of %s", *configFile)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}

	logger.Infof("Starting LiveU Chat Monitor %s", Version)

	ctx := context.Background()

	liveuLogger := liveu.NewLogrusAdapter(logger)
	session, err := liveu.Authenticate(ctx, cfg.LiveU.AuthURL, liveu.Credentials{
		Email:    cfg.LiveU.Email,
		Password: cfg.LiveU.Password,
	}, liveuLogger)
	if err != nil {
		logger.Fatalf("Failed to log in to LiveU: %v", err)
	}

	client := liveu.NewClient(liveu.NewDispatcher(session, cfg.LiveU.APIURL, liveuLogger), liveuLogger)

	inventory, err := client.GetInventory(ctx)
	if err != nil {
		logger.Fatalf("Failed to fetch LiveU inventory: %v", err)
	}
	unit, err := liveu.SelectUnit(inventory, cfg.LiveU.Unit)
	if err != nil {
		logger.Fatalf("Failed to select LiveU unit: %v", err)
	}
	logger.Infof("Using LiveU unit %s (%s)", unit.ID, unit.RegCode)

	twitch, err := chat.ConnectTwitch(ctx, chat.TwitchConfig{
		URL:      cfg.Twitch.ServerURL,
		Username: cfg.Twitch.BotUsername,
		OAuth:    cfg.Twitch.BotOAuth,
		Channel:  cfg.Twitch.Channel,
	}, logger)
	if err != nil {
		logger.Fatalf("Failed to connect to Twitch: %v", err)
	}
	logger.Infof("Joined #%s as %s", cfg.Twitch.Channel, cfg.Twitch.BotUsername)

	var db *database.DB
	if cfg.LogActivity {
		db, err = database.Initialize(cfg.DatabasePath)
		if err != nil {
			logger.Fatalf("Failed to initialize database: %v", err)
		}
	}

	app := &handlers.App{
		Config:    cfg,
		DB:        db,
		Logger:    logger,
		Telemetry: client,
		UnitID:    unit.ID,
	}

	stop := make(chan struct{})
	if db != nil {
		go app.StartCleanupJob(stop)
	}

	controller := stream.NewController(client, twitch, cfg.Twitch.Channel, unit.ID, logger)

	router := commands.NewRouter(commands.Config{
		UnitID:    unit.ID,
		PortNames: &cfg.LiveU.CustomPortNames,
		Aliases: commands.Aliases{
			Stats:   cfg.Commands.Stats,
			Battery: cfg.Commands.Battery,
			Start:   cfg.Commands.Start,
			Stop:    cfg.Commands.Stop,
			Restart: cfg.Commands.Restart,
		},
		Policy: commands.Policy{
			ModOnly: cfg.Twitch.ModOnly,
			Admins:  cfg.Twitch.Admins,
		},
	}, twitch, client, controller, commands.NewCooldownGate(cfg.CooldownDuration()), logger)

	if cfg.RTMPEnabled() {
		router.SetBitrateSource(rtmp.NewClient(cfg.RTMP.URL, cfg.RTMP.Application, cfg.RTMP.Key))
	}

	mon := monitor.New(monitor.Config{
		Channel:    cfg.Twitch.Channel,
		UnitID:     unit.ID,
		PortNames:  &cfg.LiveU.CustomPortNames,
		Thresholds: cfg.BatteryThresholds(),
		Interval:   cfg.MonitorInterval(),
		Interfaces: cfg.LiveU.Monitor.Interfaces,
		Battery:    cfg.LiveU.Monitor.Battery,
	}, client, twitch, logger)

	if db != nil {
		router.SetActivityLog(db)
		mon.SetActivityLog(db)
	}

	mon.Start(ctx)

	if cfg.StatusAPI.Listen != "" {
		server := &http.Server{
			Addr:         cfg.StatusAPI.Listen,
			Handler:      app.Routes(),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		go func() {
			logger.Infof("Starting status API on %s", cfg.StatusAPI.Listen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Fatalf("Failed to start status API: %v", err)
			}
		}()
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		logger.Info("Shutting down...")
		os.Exit(0)
	}()

	for event := range twitch.Events() {
		switch event.Kind {
		case chat.EventLoginFailed:
			logger.Fatalf("Twitch rejected the bot credentials: %s", event.Notice)
		case chat.EventMessage:
			router.Handle(ctx, event.Message)
		}
	}

	shutdown(logger, stop, mon, twitch, db)
	logger.Fatal("Twitch chat connection lost")
}

// shutdown stops background work and releases the chat connection and
// database
func shutdown(logger *logrus.Logger, stop chan struct{}, mon interface{ Stop() }, transport io.Closer, db *database.DB) {
	close(stop)
	mon.Stop()
	if err := transport.Close(); err != nil {
		logger.Debugf("Failed to close Twitch connection: %v", err)
	}
	if db != nil {
		if err := db.Close(); err != nil {
			logger.Errorf("Failed to close database: %v", err)
		}
	}
}

// configureLogger applies the level and optional rotating log file
func configureLogger(logger *logrus.Logger, cfg config.LogConfig) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		logger.Warnf("Unknown log level %q, using info", cfg.Level)
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.File != "" {
		logger.SetOutput(io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
		}))
	}
}
