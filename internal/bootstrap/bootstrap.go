// Package bootstrap wires the service together: tracing, database and
// migrations, Kafka, the HTTP surface, and the ingestion pipeline.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/Ramsey-B/sorrel/config"
	"github.com/Ramsey-B/sorrel/internal/database"
	"github.com/Ramsey-B/sorrel/internal/middleware"
	bienrepo "github.com/Ramsey-B/sorrel/internal/repositories/bien"
	localisationrepo "github.com/Ramsey-B/sorrel/internal/repositories/localisation"
	lotrepo "github.com/Ramsey-B/sorrel/internal/repositories/lot"
	mutationrepo "github.com/Ramsey-B/sorrel/internal/repositories/mutation"
	mutationbienrepo "github.com/Ramsey-B/sorrel/internal/repositories/mutationbien"
	"github.com/Ramsey-B/sorrel/internal/startup"
	"github.com/Ramsey-B/sorrel/pkg/builder"
	"github.com/Ramsey-B/sorrel/pkg/events"
	"github.com/Ramsey-B/sorrel/pkg/kafka"
	"github.com/Ramsey-B/sorrel/pkg/loader"
	"github.com/Ramsey-B/sorrel/pkg/logging"
	"github.com/Ramsey-B/sorrel/pkg/resolver"
	"github.com/Ramsey-B/sorrel/pkg/routes/health"
	runroute "github.com/Ramsey-B/sorrel/pkg/routes/run"
	"github.com/Ramsey-B/sorrel/pkg/runner"
	"github.com/Ramsey-B/sorrel/pkg/tracing"
	"github.com/Ramsey-B/sorrel/pkg/tracing/exporters"
)

type App struct {
	cfg    *config.Config
	logger logging.Logger

	db             database.DB
	tracerProvider *sdktrace.TracerProvider
	producer       *kafka.Producer
	echo           *echo.Echo
	checker        *health.Checker
	runHandler     *runroute.Handler
	runner         *runner.Runner
}

func New(cfg *config.Config, logger logging.Logger) *App {
	return &App{cfg: cfg, logger: logger}
}

// dependency adapts closures to the startup graph.
type dependency struct {
	name      string
	dependsOn []string
	start     func(ctx context.Context) error
	stop      func(ctx context.Context) error
}

func (d *dependency) GetName() string      { return d.name }
func (d *dependency) DependsOn() []string  { return d.dependsOn }
func (d *dependency) Start(ctx context.Context) error { return d.start(ctx) }
func (d *dependency) Stop(ctx context.Context) error {
	if d.stop == nil {
		return nil
	}
	return d.stop(ctx)
}

// Run starts the service, executes the ingestion run, and serves the
// admin API until shutdown when configured to stay up.
func (a *App) Run(ctx context.Context) error {
	boot := startup.New(a.logger, a.cfg.StartupMaxAttempts)

	boot.AddDependency(&dependency{
		name:  "tracing",
		start: a.startTracing,
		stop:  a.stopTracing,
	})
	boot.AddDependency(&dependency{
		name:  "kafka",
		start: a.startKafka,
		stop:  a.stopKafka,
	})
	boot.AddDependency(&dependency{
		name:      "database",
		dependsOn: []string{"tracing", "kafka"},
		start:     a.startDatabase,
		stop:      a.stopDatabase,
	})
	boot.AddDependency(&dependency{
		name:      "http",
		dependsOn: []string{"database"},
		start:     a.startHTTP,
		stop:      a.stopHTTP,
	})

	if err := boot.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := boot.Stop(stopCtx); err != nil {
			a.logger.WithError(err).Error("shutdown did not complete cleanly")
		}
	}()

	a.checker.SetReady(true)

	summary, err := a.runner.Run(ctx)
	if summary != nil {
		a.runHandler.SetLatest(summary)
	}
	if err != nil {
		return err
	}

	if a.cfg.ServeAfterRun {
		a.logger.Info("ingestion finished, serving API until shutdown")
		<-ctx.Done()
	}
	return nil
}

func (a *App) startTracing(ctx context.Context) error {
	if !a.cfg.TracingEnabled {
		return nil
	}
	exporter, err := exporters.NewOTLPExporter(ctx, exporters.OTLPConfig{
		Endpoint: a.cfg.TracingEndpoint,
		Protocol: a.cfg.TracingProtocol,
		Insecure: a.cfg.TracingInsecure,
	})
	if err != nil {
		return err
	}
	a.tracerProvider = tracing.Init(a.cfg.AppName, exporter)
	return nil
}

func (a *App) stopTracing(ctx context.Context) error {
	if a.tracerProvider == nil {
		return nil
	}
	return a.tracerProvider.Shutdown(ctx)
}

func (a *App) startDatabase(ctx context.Context) error {
	db, err := database.Connect(ctx, database.Config{
		Host:            a.cfg.DatabaseHost,
		Port:            a.cfg.DatabasePort,
		UserName:        a.cfg.DatabaseUserName,
		Password:        a.cfg.DatabasePassword,
		Name:            a.cfg.DatabaseName,
		SSLMode:         a.cfg.DatabaseSSLMode,
		MaxOpenConns:    a.cfg.DatabaseMaxOpenConns,
		MaxIdleConns:    a.cfg.DatabaseMaxIdleConns,
		ConnMaxLifetime: a.cfg.DatabaseConnMaxLifetime,
	}, a.logger)
	if err != nil {
		return err
	}
	a.db = db

	driver, err := migratepg.WithInstance(db.Unsafe().DB, &migratepg.Config{})
	if err != nil {
		return err
	}
	migrations := database.NewMigrationService(a.logger, &database.MigrationConfig{
		MigrationFolderPath: a.cfg.DatabaseMigrationFolderPath,
		Version:             uint(a.cfg.DatabaseMigrationVersion),
		Force:               a.cfg.DatabaseMigrationForce,
		AutoRollback:        a.cfg.DatabaseMigrationAutoRollback,
	})
	if err := migrations.Migrate(a.cfg.DatabaseName, driver); err != nil {
		return err
	}

	a.buildPipeline()
	return nil
}

func (a *App) stopDatabase(context.Context) error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

// buildPipeline assembles the parser-to-loader chain over the connected
// database.
func (a *App) buildPipeline() {
	localisations := localisationrepo.NewRepository(a.db, a.logger)
	biens := bienrepo.NewRepository(a.db, a.logger)
	mutations := mutationrepo.NewRepository(a.db, a.logger)
	lots := lotrepo.NewRepository(a.db, a.logger)
	associations := mutationbienrepo.NewRepository(a.db, a.logger)

	res := resolver.New(localisations, biens, mutations, a.logger)
	bld := builder.New(lots, associations)
	ld := loader.New(a.db, localisations, biens, mutations, lots, associations,
		a.logger, a.cfg.FlushRetryCount, a.cfg.FlushRetryDelay)

	var emitter runner.EventEmitter
	if a.producer != nil {
		emitter = events.NewEmitter(a.producer, a.logger)
	}

	a.runner = runner.New(res, bld, ld, emitter, a.logger, runner.Config{
		InputFolder:      a.cfg.InputFolder,
		ChunkSize:        a.cfg.ChunkSize,
		ParseWorkerCount: a.cfg.ParseWorkerCount,
	})

	a.checker = health.NewChecker(a.db, a.cfg.AppName)
	a.runHandler = runroute.NewHandler(mutations, localisations, biens, lots, associations)
}

func (a *App) startKafka(context.Context) error {
	if !a.cfg.KafkaEnabled {
		return nil
	}
	a.producer = kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      a.cfg.KafkaBrokers,
		Topic:        a.cfg.KafkaRunTopic,
		BatchSize:    a.cfg.KafkaBatchSize,
		BatchTimeout: a.cfg.KafkaBatchTimeout,
		RequiredAcks: a.cfg.KafkaRequiredAcks,
		Compression:  a.cfg.KafkaCompression,
	}, a.logger)
	return nil
}

func (a *App) stopKafka(context.Context) error {
	if a.producer == nil {
		return nil
	}
	return a.producer.Close()
}

func (a *App) startHTTP(context.Context) error {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = middleware.Error(a.logger)
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(a.logger))
	e.Use(echomw.Recover())
	if a.cfg.TracingEnabled {
		e.Use(otelecho.Middleware(a.cfg.AppName))
	}

	a.checker.RegisterRoutes(e)
	a.runHandler.RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	a.echo = e
	go func() {
		addr := fmt.Sprintf(":%d", a.cfg.Port)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			a.logger.WithError(err).Fatal("http server failed")
		}
	}()
	return nil
}

func (a *App) stopHTTP(ctx context.Context) error {
	if a.echo == nil {
		return nil
	}
	return a.echo.Shutdown(ctx)
}
