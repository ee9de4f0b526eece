package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"jordanella.com/botty-go/internal/bot"
	"jordanella.com/botty-go/internal/config"
	"jordanella.com/botty-go/internal/events"
	"jordanella.com/botty-go/internal/logging"
)

func main() {
	configDir := flag.String("config", "", "Config directory with params.ini and game.ini (default: ./config)")
	baseDir := flag.String("base", ".", "Base directory holding assets/templates and assets/routes")
	dbPath := flag.String("db", "bot.db", "History database, empty to disable")
	logDir := flag.String("logs", "log", "Directory for the log files")
	maxGames := flag.Int("games", 0, "Stop after this many games, 0 plays until interrupted")
	flag.Parse()

	cfg, err := config.Load(config.ResolveDir(*configDir))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logging.NewLogger("botty").SetMinLevel(cfg.Advanced.LogLevel)
	if err := os.MkdirAll(*logDir, 0755); err != nil {
		log.Fatalf("Failed to create log directory: %v", err)
	}
	logFile, err := os.OpenFile(filepath.Join(*logDir, "botty.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	logger.AddOutput(logFile)

	err = run(cfg, logger, bot.Paths{BaseDir: *baseDir, DBPath: *dbPath}, *logDir, *maxGames)
	logFile.Close()
	if err != nil {
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *logging.Logger, paths bot.Paths, logDir string, maxGames int) error {
	m, err := bot.NewManager(cfg, paths, bot.Devices{}, logger)
	if err != nil {
		logger.Fatal("Failed to set up bot", err)
		return err
	}
	defer m.Shutdown()

	if eventLog, err := events.NewEventLogger(m.Bus(), logDir); err != nil {
		logger.Warnf("Event log disabled: %v", err)
	} else {
		defer eventLog.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session := m.Session()
	session.SetMaxGames(maxGames)

	logger.Info("Running, press Ctrl+C to stop")
	return session.Run(ctx)
}
