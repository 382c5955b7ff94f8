package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sportcast/backend/config"
	"github.com/sportcast/backend/pkg/database"
	"github.com/sportcast/backend/pkg/queue"
	"github.com/sportcast/backend/pkg/redis"
)

var (
	cfg     *config.Config
	logger  *zap.Logger
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:           "streamctl",
	Short:         "Operate the broadcast session backend",
	Long:          "streamctl runs schema migrations, schedules analytics reconcile jobs, manages the dead-letter list and mints development tokens. Settings come from the same environment as the server.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		cfg = loaded
		logger = newLogger(verbose)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")
}

func newLogger(debug bool) *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.OutputPaths = []string{"stderr"}
	if debug {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, _ := config.Build()
	return logger
}

func openPool(ctx context.Context) (*pgxpool.Pool, error) {
	if cfg.Database.InMemory() {
		return nil, fmt.Errorf("STORE_DRIVER=%s has no database to operate on", config.StoreDriverMemory)
	}
	return database.NewPostgresPool(ctx, cfg.Database.DSN(), cfg.Database.MaxConns, logger)
}

// openQueue connects to Redis; the returned func closes the connection.
func openQueue(ctx context.Context) (*queue.Queue, func(), error) {
	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		return nil, nil, err
	}
	return queue.NewQueue(rdb.Client, logger), func() { _ = rdb.Close() }, nil
}
