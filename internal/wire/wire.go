// Package wire provides dependency injection for the application.
// It creates singleton services with lazy initialization.
package wire

import (
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	cliadapter "github.com/example/nusup/internal/adapters/cli"
	"github.com/example/nusup/internal/adapters/httpnet"
	"github.com/example/nusup/internal/adapters/sqlite"
	"github.com/example/nusup/internal/app"
	"github.com/example/nusup/internal/config"
	"github.com/example/nusup/internal/db"
	"github.com/example/nusup/internal/ports/primary"
	"github.com/example/nusup/internal/ports/secondary"
)

var (
	cfg            *config.Config
	logger         *logrus.Logger
	titleStore     *sqlite.TitleStore
	journalRepo    secondary.JournalRepository
	updateService  primary.UpdateService
	installService primary.InstallService
	once           sync.Once
)

// UpdateService returns the singleton UpdateService instance.
func UpdateService() primary.UpdateService {
	once.Do(initServices)
	return updateService
}

// InstallService returns the singleton InstallService instance.
func InstallService() primary.InstallService {
	once.Do(initServices)
	return installService
}

// TitleStore returns the singleton reference store.
func TitleStore() *sqlite.TitleStore {
	once.Do(initServices)
	return titleStore
}

// Journal returns the singleton journal repository.
func Journal() secondary.JournalRepository {
	once.Do(initServices)
	return journalRepo
}

// Config returns the loaded configuration.
func Config() *config.Config {
	once.Do(initServices)
	return cfg
}

// initServices initializes all services and their dependencies.
// This is called once via sync.Once.
func initServices() {
	logger = logrus.New()
	logger.SetOutput(os.Stderr)

	dataDir, err := config.DefaultDataDir()
	if err != nil {
		log.Fatalf("failed to resolve data directory: %v", err)
	}
	cfg, err = config.LoadConfig(dataDir)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	if cfg.DataDir != "" {
		dataDir = cfg.DataDir
	}
	db.SetDataDir(dataDir)

	database, err := db.GetDB()
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	// Secondary adapters: store, transport, journal
	titleStore, err = sqlite.NewTitleStore(database, logger)
	if err != nil {
		log.Fatalf("failed to initialize title store: %v", err)
	}
	journalRepo = sqlite.NewJournalRepository(database)
	transport := httpnet.New(time.Duration(cfg.TimeoutMinutes)*time.Minute, logger)

	// Application services (primary ports implementation)
	catalogClient := app.NewCatalogClient(titleStore, transport, app.CatalogConfig{
		Endpoint:   cfg.Endpoint,
		SOAPAction: cfg.SOAPAction,
		UserAgent:  cfg.UserAgent,
	}, logger)
	updateService = app.NewUpdateService(titleStore, transport, catalogClient, journalRepo, logger)
	installService = app.NewInstallService(titleStore, cliadapter.NewBypassPrompter(os.Stdin, os.Stdout), journalRepo, logger)
}

// UpdateAdapter returns a new UpdateAdapter writing to stdout.
// Each call creates a new adapter (adapters are stateless translators).
func UpdateAdapter() *cliadapter.UpdateAdapter {
	return UpdateAdapterWithOutput(os.Stdout)
}

// UpdateAdapterWithOutput returns a new UpdateAdapter writing to the given output.
func UpdateAdapterWithOutput(out io.Writer) *cliadapter.UpdateAdapter {
	once.Do(initServices)
	return cliadapter.NewUpdateAdapter(updateService, out)
}

// InstallAdapter returns a new InstallAdapter writing to stdout.
func InstallAdapter() *cliadapter.InstallAdapter {
	once.Do(initServices)
	return cliadapter.NewInstallAdapter(installService, os.Stdout)
}

// TitlesAdapter returns a new TitlesAdapter writing to stdout.
func TitlesAdapter() *cliadapter.TitlesAdapter {
	once.Do(initServices)
	return cliadapter.NewTitlesAdapter(titleStore, os.Stdout)
}

// RunsAdapter returns a new RunsAdapter writing to stdout.
func RunsAdapter() *cliadapter.RunsAdapter {
	once.Do(initServices)
	return cliadapter.NewRunsAdapter(journalRepo, os.Stdout)
}
