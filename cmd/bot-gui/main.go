package main

import (
	"flag"
	"log"

	"fyne.io/fyne/v2/app"

	"jordanella.com/botty-go/internal/bot"
	"jordanella.com/botty-go/internal/config"
	"jordanella.com/botty-go/internal/events"
	"jordanella.com/botty-go/internal/gui"
	"jordanella.com/botty-go/internal/logging"
)

func main() {
	configDir := flag.String("config", "", "Config directory with params.ini and game.ini (default: ./config)")
	baseDir := flag.String("base", ".", "Base directory holding assets/templates and assets/routes")
	dbPath := flag.String("db", "bot.db", "History database, empty to disable")
	logDir := flag.String("logs", "log", "Directory for the event log")
	flag.Parse()

	cfg, err := config.Load(config.ResolveDir(*configDir))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger := logging.NewLogger("botty").SetMinLevel(cfg.Advanced.LogLevel)

	m, err := bot.NewManager(cfg, bot.Paths{BaseDir: *baseDir, DBPath: *dbPath}, bot.Devices{}, logger)
	if err != nil {
		log.Fatalf("Failed to set up bot: %v", err)
	}
	defer m.Shutdown()

	if eventLog, err := events.NewEventLogger(m.Bus(), *logDir); err != nil {
		logger.Warnf("Event log disabled: %v", err)
	} else {
		defer eventLog.Close()
	}

	myApp := app.NewWithID("com.jordanella.botty-go")
	myApp.Settings().SetTheme(&gui.BotTheme{})

	mainWindow := myApp.NewWindow("Botty - " + cfg.General.Name)
	mainWindow.Resize(gui.DefaultWindowSize)

	controller := gui.NewController(myApp, mainWindow, gui.Deps{
		Session: m.Session(),
		Bus:     m.Bus(),
		DB:      m.DB(),
		Logger:  logger,
	})

	mainWindow.SetContent(controller.BuildUI())
	mainWindow.SetMaster()
	mainWindow.ShowAndRun()

	controller.Shutdown()
}
