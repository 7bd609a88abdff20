package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/thakonkawin/deep-search-products/pkg/auth"

	"github.com/oiime/logrusbun"
	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"
	"gopkg.in/yaml.v3"

	"github.com/thakonkawin/deep-search-products/config"
	"github.com/thakonkawin/deep-search-products/pkg/embeddings"
	"github.com/thakonkawin/deep-search-products/pkg/models"
	"github.com/thakonkawin/deep-search-products/pkg/server"
	"github.com/thakonkawin/deep-search-products/pkg/store/postgres"
)

const (
	ErrStoreTypeNotSet   = "store.type must be set"
	ErrPostgresDSNNotSet = "store.postgres.dsn must be set"
	StoreTypePostgres    = "postgres"
)

// run is the entrypoint for the deepsearch server
func run() {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		log.Fatalf("Error configuring deepsearch: %s", err)
	}

	handleCLIOptions(cfg)

	log.Infof("Starting deepsearch server version %s", config.VersionString)

	config.SetLogLevel(cfg)
	appState := NewAppState(cfg)

	srv := server.Create(appState)

	log.Infof("Listening on: %s", srv.Addr)
	err = srv.ListenAndServe()
	if err != nil {
		log.Fatal(err)
	}
}

// NewAppState creates an AppState struct from the config file / ENV, initializes
// the catalog store, and creates the image embedder
func NewAppState(cfg *config.Config) *models.AppState {
	appState := &models.AppState{
		Embedder: embeddings.NewServiceEmbedder(cfg),
		Config:   cfg,
	}

	initializeCatalogStore(appState)
	setupSignalHandler(appState)
	setupPurgeProcessor(context.Background(), appState)

	return appState
}

// handleCLIOptions handles CLI options that don't require the server to run
func handleCLIOptions(cfg *config.Config) {
	if showVersion {
		fmt.Println(config.VersionString)
		os.Exit(0)
	}
	if generateKey {
		fmt.Println(auth.GenerateJWT(cfg))
		os.Exit(0)
	}
	if dumpConfig {
		out, err := yaml.Marshal(cfg)
		if err != nil {
			log.Fatalf("Error dumping config: %s", err)
		}
		fmt.Println(string(out))
		os.Exit(0)
	}
}

// initializeCatalogStore initializes the catalog store based on the config file / ENV
func initializeCatalogStore(appState *models.AppState) {
	if appState.Config.Store.Type == "" {
		log.Fatal(ErrStoreTypeNotSet)
	}

	switch appState.Config.Store.Type {
	case StoreTypePostgres:
		if appState.Config.Store.Postgres.DSN == "" {
			log.Fatal(ErrPostgresDSNNotSet)
		}
		db, err := postgres.NewPostgresConn(appState)
		if err != nil {
			log.Fatal(err)
		}
		if appState.Config.Log.Level == "debug" {
			pgDebugLogging(db)
		}
		catalogStore, err := postgres.NewPostgresCatalogStore(appState, db)
		if err != nil {
			log.Fatal(err)
		}
		appState.CatalogStore = catalogStore
	default:
		log.Fatal(
			fmt.Sprintf(
				"store.type (%s) is not supported",
				appState.Config.Store.Type,
			),
		)
	}

	log.Info("Using catalog store: ", appState.Config.Store.Type)
}

func pgDebugLogging(db *bun.DB) {
	db.AddQueryHook(logrusbun.NewQueryHook(logrusbun.QueryHookOptions{
		LogSlow:         time.Second,
		Logger:          log,
		QueryLevel:      logrus.DebugLevel,
		ErrorLevel:      logrus.ErrorLevel,
		SlowLevel:       logrus.WarnLevel,
		MessageTemplate: "{{.Operation}}[{{.Duration}}]: {{.Query}}",
		ErrorTemplate:   "{{.Operation}}[{{.Duration}}]: {{.Query}}: {{.Error}}",
	}))
}

// setupSignalHandler sets up a signal handler to close the CatalogStore connection on termination
func setupSignalHandler(appState *models.AppState) {
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signalCh
		if err := appState.CatalogStore.Close(); err != nil {
			log.Errorf("Error closing CatalogStore connection: %v", err)
		}
		os.Exit(0)
	}()
}

// setupPurgeProcessor sets up a go routine to purge deleted records from the CatalogStore
// at a regular interval. It's cancellable via the passed context.
// If Config.DataConfig.PurgeEvery is 0, this function does nothing.
func setupPurgeProcessor(ctx context.Context, appState *models.AppState) {
	interval := time.Duration(appState.Config.DataConfig.PurgeEvery) * time.Minute
	if interval == 0 {
		log.Debug("purge delete processor disabled")
		return
	}

	log.Infof("Starting purge delete processor. Purging every %v", interval)
	go func() {
		for {
			select {
			case <-ctx.Done():
				log.Info("Stopping purge delete processor")
				return
			default:
				err := appState.CatalogStore.PurgeDeleted(ctx)
				if err != nil {
					log.Errorf("error purging deleted records: %v", err)
				}
			}
			time.Sleep(interval)
		}
	}()
}
