// Command missiond runs the mission scheduler: the HTTP API (serve), the
// periodic sweeps for external schedulers (sweep) and a calendar view of the
// slot grid (slots).
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/tbourn/go-mission-scheduler/internal/clock"
	"github.com/tbourn/go-mission-scheduler/internal/config"
	"github.com/tbourn/go-mission-scheduler/internal/delivery"
	"github.com/tbourn/go-mission-scheduler/internal/observability"
	"github.com/tbourn/go-mission-scheduler/internal/repo"
	"github.com/tbourn/go-mission-scheduler/internal/services"
	"github.com/tbourn/go-mission-scheduler/internal/sysutil"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

var envFile string

var rootCmd = &cobra.Command{
	Use:           "missiond",
	Short:         "Inspection mission scheduler",
	Long:          "missiond schedules entry and exit inspections of lease windows, assigns agents without double-booking, sends reminders and raises incidents.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.AddCommand(serveCmd(), sweepCmd(), slotsCmd())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// app is the wired runtime shared by every command.
type app struct {
	cfg     config.Config
	db      *gorm.DB
	svcs    *services.Services
	closers []func(context.Context) error
}

// bootstrap loads configuration, sets up logging and tracing, opens the
// database and wires the services.
func bootstrap(ctx context.Context) (*app, error) {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	sysutil.SetLogLevel(cfg.LogLevel)
	log.Logger = sysutil.NewLogger(os.Stderr, cfg.OTEL.ServiceName, cfg.LogPretty)

	a := &app{cfg: cfg}
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, sysutil.FirstNonEmpty(os.Getenv("APP_VERSION"), version))
	if err != nil {
		return nil, fmt.Errorf("otel: %w", err)
	}
	a.closers = append(a.closers, shutdownOTel)

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	a.db = db
	a.closers = append(a.closers, func(context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})

	var ch delivery.Channel
	switch cfg.Delivery.Channel {
	case "kafka":
		k := delivery.NewKafkaChannel(cfg.Delivery.KafkaBrokers, cfg.Delivery.KafkaTopic)
		a.closers = append(a.closers, func(context.Context) error { return k.Close() })
		ch = k
	default:
		ch = delivery.NewLogChannel(log.Logger.With().Str("component", "delivery").Logger())
	}

	a.svcs = services.New(db, ch, clock.Real(), log.Logger, cfg)
	log.Info().
		Str("db", cfg.DBPath).
		Str("delivery", cfg.Delivery.Channel).
		Str("timezone", cfg.Scheduling.TimeZone).
		Msg("mission scheduler ready")
	return a, nil
}

// close releases resources in reverse order of acquisition.
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			log.Warn().Err(err).Msg("shutdown step failed")
		}
	}
}
