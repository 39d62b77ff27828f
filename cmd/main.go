package main

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"

	"vectora-backend/config"
	"vectora-backend/database"
	_ "vectora-backend/docs"
	"vectora-backend/internal/controller"
	"vectora-backend/internal/elasticsearch"
	"vectora-backend/internal/filestate"
	"vectora-backend/internal/kafka"
	"vectora-backend/internal/metrics"
	"vectora-backend/internal/repository"
	"vectora-backend/internal/scheduler"
	"vectora-backend/internal/service"
	"vectora-backend/internal/store"
	"vectora-backend/internal/timescaledb"
)

// @title           Vectora Analysis API
// @version         1.0
// @description     Ask questions about an uploaded dataset, clean it, and inspect the analysis event history.

// @host      localhost:8080
// @BasePath  /
// @schemes   http https

// @tag.name         ask
// @tag.description  Natural language questions over the live dataset

// @tag.name         dataset
// @tag.description  Upload, inspect, clean and download the live dataset

// @tag.name         events
// @tag.description  Indexed analysis events

// @tag.name         metrics
// @tag.description  Operator usage metrics

func main() {
	var wg sync.WaitGroup

	app := fx.New(
		// Core Dependencies
		fx.Provide(
			NewConfig,
		),
		// Infrastructure Dependencies
		fx.Provide(
			database.NewDB,
			NewGinEngine,
			repository.NewChatLogRepository,
			elasticsearch.NewClient,
			elasticsearch.NewElasticEventStore,
			elasticsearch.NewElasticsearchEventRepository,
			timescaledb.ProvideTimescaleDBPool,
			timescaledb.NewTimescaleMetricRepository,
			kafka.NewKafkaEventProducer,
			kafka.NewKafkaEventConsumer,
			metrics.NewAnalysisEventExtractor,
			store.NewInMemoryDatasetStore,
			store.NewInMemoryConversationStore,
			NewFileStateManager,
		),
		// Domain
		fx.Provide(
			service.NewGeminiPlanner,
			service.NewAskService,
			service.NewDatasetService,
			service.NewEventQueryService,
			service.NewMetricQueryService,
			service.NewEventConsumerService,
			NewSnapshotService,
			controller.NewAskController,
			NewDatasetController,
			controller.NewEventController,
			controller.NewMetricController,
		),
		fx.Invoke(
			LoadInitialDataset,
			RegisterAPIRoutes,
			RegisterScheduler,
			func(lc fx.Lifecycle, consumerService service.EventConsumerService) {
				startEventConsumer(lc, &wg, consumerService)
			},
		),
	)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 2*time.Minute) // ES connect retries run during startup
	defer cancelStart()
	if err := app.Start(startCtx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}
	<-app.Done()

	stopCtx, cancelStop := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStop()
	log.Info().Msg("Shutting down application...")
	if err := app.Stop(stopCtx); err != nil {
		log.Error().Err(err).Msg("Forced shutdown due to error or timeout")
	}

	log.Info().Msg("Waiting for background goroutines to finish...")
	wg.Wait()
	log.Info().Msg("All background processes finished. Exiting.")
}

func NewConfig() (*config.Config, error) {
	return config.NewConfig()
}

func NewGinEngine() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

func RegisterAPIRoutes(
	lifecycle fx.Lifecycle,
	router *gin.Engine,
	cfg *config.Config,
	askController *controller.AskController,
	datasetController *controller.DatasetController,
	eventController *controller.EventController,
	metricController *controller.MetricController,
) {
	controller.RegisterAskRoutes(router, askController)
	controller.RegisterDatasetRoutes(router, datasetController)
	controller.RegisterEventRoutes(router, eventController)
	controller.RegisterMetricRoutes(router, metricController)

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}
	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info().Msgf("Starting HTTP server on port %s", cfg.Server.Port)
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Error().Err(err).Msg("HTTP server ListenAndServe error")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Shutting down HTTP server...")
			return server.Shutdown(ctx)
		},
	})
}

// --- Factory Functions ---

func NewFileStateManager(cfg *config.Config) filestate.Manager {
	return filestate.NewManager(cfg.Snapshot.StatePath)
}

func NewSnapshotService(datasets store.DatasetStore, stateMgr filestate.Manager, cfg *config.Config) service.SnapshotService {
	return service.NewSnapshotService(datasets, stateMgr, cfg.Snapshot.Dir)
}

func NewDatasetController(datasetService service.DatasetService, cfg *config.Config) *controller.DatasetController {
	return controller.NewDatasetController(datasetService, cfg.Dataset.MaxUploadBytes)
}

// --- Invoker Functions ---

// LoadInitialDataset makes DATASET_INITIAL_PATH the live dataset. A bad file is
// logged and the server starts empty.
func LoadInitialDataset(cfg *config.Config, datasetService service.DatasetService) {
	if cfg.Dataset.InitialPath == "" {
		return
	}
	resp, err := datasetService.LoadFile(context.Background(), cfg.Dataset.InitialPath)
	if err != nil {
		log.Warn().Err(err).Str("path", cfg.Dataset.InitialPath).Msg("Failed to load initial dataset")
		return
	}
	log.Info().Str("path", cfg.Dataset.InitialPath).Int("rows", resp.Rows).Msg("Initial dataset loaded")
}

func RegisterScheduler(lc fx.Lifecycle, cfg *config.Config, snapshotSvc service.SnapshotService) {
	scheduler.NewScheduler(lc, cfg, snapshotSvc)
}

// startEventConsumer runs the consumer loop in a goroutine tied to the fx lifecycle.
func startEventConsumer(lc fx.Lifecycle, wg *sync.WaitGroup, consumerService service.EventConsumerService) {
	wg.Add(1)
	ctx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			log.Info().Msg("Starting Event Consumer goroutine")
			go consumerService.Run(ctx, wg)
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			log.Info().Msg("Signaling Event Consumer goroutine to stop...")
			cancel()
			return nil
		},
	})
}
