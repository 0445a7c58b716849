package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	paho_mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/jackc/pgx/v5"
	"github.com/robfig/cron/v3"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/avbuild/roomsync/internal/pkg/assets"
	"github.com/avbuild/roomsync/internal/pkg/config"
	"github.com/avbuild/roomsync/internal/pkg/database"
	"github.com/avbuild/roomsync/internal/pkg/database/migration"
	"github.com/avbuild/roomsync/internal/pkg/fusion"
	"github.com/avbuild/roomsync/internal/pkg/fusion/fusionws"
	"github.com/avbuild/roomsync/internal/pkg/mqtt"
	"github.com/avbuild/roomsync/internal/pkg/publisher"
	"github.com/avbuild/roomsync/internal/pkg/room"
	"github.com/avbuild/roomsync/internal/pkg/scheduler"
	"github.com/avbuild/roomsync/internal/pkg/server"
	"github.com/avbuild/roomsync/internal/pkg/usage"
)

// Asset slot pool shared by every room in the deployment.
const (
	firstAssetSlot = 1
	lastAssetSlot  = 10
)

func RoomsyncCommand(ctx *cli.Context) error {
	cfg := &config.Config{
		FusionCfg: &config.FusionConfig{
			Host: ctx.String("fusion-host"),
			Ssl:  ctx.Bool("fusion-ssl"),
		},
		MqttCfg: &config.MqttConfig{
			Host:     ctx.String("mqtt-host"),
			Username: ctx.String("mqtt-user"),
			Password: ctx.String("mqtt-pass"),
		},
		DatabaseURL:   ctx.String("database-url"),
		MigrationsDir: ctx.String("migrations-folder"),
		RoomFile:      ctx.String("room-config"),
		AssetFile:     ctx.String("asset-file"),
		HTTPAddr:      ctx.String("http-addr"),
		LogLevel:      ctx.String("log-level"),
	}

	return run(ctx.Context, cfg)
}

func run(ctx context.Context, cfg *config.Config) error {
	errorChan := make(chan error, 1000)
	var err error

	eg, ctx := errgroup.WithContext(ctx)
	logCfg := zap.NewProductionConfig()

	logCfg.Level, err = zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logCfg.OutputPaths = []string{"stdout"}
	logCfg.ErrorOutputPaths = []string{"stdout"}
	logCfg.Sampling = nil
	logger := zap.Must(logCfg.Build(zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel)))
	defer func() {
		_ = logger.Sync() // flushes buffer, if any.
	}()
	zap.ReplaceGlobals(logger)

	registryFile, err := config.Load(cfg.RoomFile)
	if err != nil {
		return err
	}

	var db *database.Database
	var store assets.Store
	if cfg.DatabaseURL != "" {
		if err := migration.Migrate(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
			return err
		}
		conn, err := pgx.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		db = database.NewDatabase(conn)
		defer db.Close(context.Background())
		store = db
	} else {
		jsonStore, err := assets.OpenJSONStore(cfg.AssetFile)
		if err != nil {
			return err
		}
		store = jsonStore
	}

	slots, err := assets.NewRegistry(ctx, store, firstAssetSlot, lastAssetSlot)
	if err != nil {
		return err
	}

	usageSink := func(rec usage.Record) {
		logger.Info("usage record",
			zap.String("device", rec.DeviceKey), zap.Duration("duration", rec.Duration))
		if db == nil {
			return
		}
		writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.WriteUsage(writeCtx, rec); err != nil {
			errorChan <- err
		}
	}

	rooms := newControllerSet()
	sched := scheduler.New()
	for _, rc := range registryFile.Rooms {
		ctrl, err := room.New(rc, registryFile, slots, sched, usageSink)
		if err != nil {
			return err
		}
		rooms.add(ctrl)
	}

	publishers := publisher.NewRegistry()

	fusionSvc := fusionws.New(cfg.FusionCfg,
		func(roomKey string, offset uint, value json.RawMessage) {
			rooms.handleWriteBack(roomKey, offset, value)
		},
		rooms.resyncAll,
		errorChan,
	)
	if err := publishers.Register("fusion", fusionSvc); err != nil {
		return err
	}

	if cfg.MqttCfg.Host != "" {
		opts := paho_mqtt.NewClientOptions().
			AddBroker(cfg.MqttCfg.Host).
			SetUsername(cfg.MqttCfg.Username).
			SetPassword(cfg.MqttCfg.Password).
			SetAutoReconnect(true)
		mqttSvc := mqtt.New(paho_mqtt.NewClient(opts))
		if err := mqttSvc.Connect(); err != nil {
			return err
		}
		if err := publishers.Register("mqtt", mqttSvc); err != nil {
			return err
		}
	}

	for _, ctrl := range rooms.all() {
		ctrl.FusionRoom().OnUpdate(func(u fusion.Update) {
			publishers.Publish(ctx, u)
		})
		if err := ctrl.Setup(ctx); err != nil {
			return err
		}
	}
	defer rooms.teardownAll()

	eg.Go(func() error {
		return fusionSvc.Run(ctx)
	})

	eg.Go(func() error {
		return runCron(db, rooms, errorChan)
	})

	eg.Go(func() error {
		srv := &http.Server{
			Handler:      server.New(rooms).Router(),
			Addr:         cfg.HTTPAddr,
			WriteTimeout: 15 * time.Second,
			ReadTimeout:  15 * time.Second,
		}
		return srv.ListenAndServe()
	})

	eg.Go(func() error {
		// handle any async errors from services
		for {
			select {
			case err := <-errorChan:
				if errors.Is(err, errCron) {
					logger.Error("cron error", zap.Error(err))
					return err
				}
				logger.Error("async service error", zap.Error(err))
			case <-ctx.Done():
				logger.Info("context done")
				return ctx.Err()
			}
		}
	})

	return eg.Wait()
}

var errCron = errors.New("cron error")

func runCron(db *database.Database, rooms *controllerSet, errChan chan error) error {
	c := cron.New()

	if db != nil {
		if _, err := c.AddFunc("0 3 * * *", func() {
			cleanupCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			if err := db.Cleanup(cleanupCtx); err != nil {
				zap.L().Error("error cleaning up database", zap.Error(err))
				errChan <- errCron
				return
			}
			zap.L().Info("trimmed old usage telemetry")
		}); err != nil {
			return err
		}
	}

	if _, err := c.AddFunc("@every 1h", func() {
		rooms.resyncAll()
		zap.L().Info("periodic fusion resync complete")
	}); err != nil {
		return err
	}

	c.Run()
	return nil
}
