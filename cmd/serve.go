package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	httpserver "github.com/CoPhuocVinh/demo-kafka/internal/adapters/http"
	"github.com/CoPhuocVinh/demo-kafka/internal/application"
	"github.com/CoPhuocVinh/demo-kafka/internal/config"
	"github.com/CoPhuocVinh/demo-kafka/internal/domain"
	"github.com/CoPhuocVinh/demo-kafka/internal/infrastructure/kafka"
	"github.com/CoPhuocVinh/demo-kafka/internal/infrastructure/memlog"
	"github.com/CoPhuocVinh/demo-kafka/internal/infrastructure/metrics"
	"github.com/CoPhuocVinh/demo-kafka/internal/infrastructure/repository"
	"github.com/CoPhuocVinh/demo-kafka/internal/utils"
)

const (
	startupTimeout  = 30 * time.Second
	shutdownTimeout = 10 * time.Second
)

type serveOptions struct {
	configPath string
	port       string
	driver     string
}

func (o *serveOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.configPath, "config", "", "settings file (default: $DEMO_CONFIG or the first config.yml found)")
	cmd.Flags().StringVar(&o.port, "port", "", "HTTP port (overrides PORT)")
	cmd.Flags().StringVar(&o.driver, "driver", "", "log driver: kafka or memory")
}

func newServeCommand() *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the producer, the consumer pool and the operator API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
	opts.bind(cmd)
	return cmd
}

// eventStore is what the harness needs from a log backend.
type eventStore interface {
	domain.EventLog
	domain.LogInspector
}

func openStore(cfg config.FileConfig) (eventStore, error) {
	if cfg.Log.Driver == config.DriverMemory {
		utils.Logger.Info("using in-memory log", "partitions", cfg.Demo.Partitions)
		return memlog.New(int32(cfg.Demo.Partitions)), nil
	}
	utils.Logger.Info("using kafka log", "brokers", cfg.Cluster.Brokers, "auth", cfg.Cluster.GetAuthType())
	if info, err := cfg.Cluster.GetCertificateInfo(); err != nil {
		utils.Logger.Warn("cannot read client certificate", "err", err)
	} else if info != nil && info.Status != "valid" {
		utils.Logger.Warn("client certificate expiring", "status", info.Status, "days", info.DaysToExpiry)
	}
	return kafka.NewLog(cfg.Cluster, cfg.Demo.ReplicationFactor)
}

func resolveConfigPath(flag string) string {
	if flag != "" {
		return flag
	}
	if p := os.Getenv("DEMO_CONFIG"); p != "" {
		return p
	}
	return config.FindConfigPath()
}

func runServe(parent context.Context, opts *serveOptions) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	config.InitI18n()

	var production *application.ProductionService
	settings := repository.NewSettingsRepository(resolveConfigPath(opts.configPath), func(ch repository.Change) {
		applySettings(production, ch)
	})
	if err := settings.Load(); err != nil {
		return fmt.Errorf("load settings %s: %w", settings.Path(), err)
	}
	cfg := settings.Current()
	if opts.port != "" {
		cfg.HTTP.Port = opts.port
	}
	if opts.driver != "" {
		cfg.Log.Driver = opts.driver
	}
	utils.SetLogLevel(cfg.Log.Level)
	utils.Logger.Info("settings loaded", "path", settings.Path(), "driver", cfg.Log.Driver, "topic", cfg.Demo.Topic)

	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer store.Close()

	sink := metrics.NewPrometheus()
	hub := httpserver.NewHub(sink)

	startCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()
	if err := store.EnsureTopic(startCtx, cfg.Demo.Topic, int32(cfg.Demo.Partitions)); err != nil {
		utils.Logger.Warn("could not ensure topic", "topic", cfg.Demo.Topic, "err", err)
	}

	pool := application.NewConsumerPool(store, hub, sink, application.ConsumerPoolConfig{
		Topic:         cfg.Demo.Topic,
		GroupID:       cfg.Demo.GroupID,
		Consumers:     cfg.Demo.Consumers,
		Partitions:    cfg.Demo.Partitions,
		FromBeginning: cfg.Demo.FromBeginning,
	})
	if err := pool.Start(startCtx); err != nil {
		return fmt.Errorf("start consumer pool: %w", err)
	}
	defer pool.Close()

	production = application.NewProductionService(store, sink, application.ProductionConfig{
		Topic:           cfg.Demo.Topic,
		Partitions:      cfg.Demo.Partitions,
		DefaultInterval: cfg.Demo.Interval(),
		Weights:         cfg.Demo.PartitionWeights,
	})
	defer production.Stop()
	if cfg.Demo.AutoStart {
		production.Start(0)
	}

	if err := settings.Watch(); err != nil {
		utils.Logger.Warn("settings hot reload disabled", "err", err)
	}
	defer settings.Close()

	groups := application.NewConsumerGroupService(store, sink, cfg.Demo.Topic, cfg.Demo.GroupID)
	server := httpserver.New(production, pool, groups, hub, sink.Handler())

	errCh := make(chan error, 1)
	go func() { errCh <- server.Run(":" + cfg.HTTP.Port) }()

	select {
	case <-ctx.Done():
		utils.Logger.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		utils.Logger.Warn("http shutdown", "err", err)
	}
	return nil
}

// applySettings applies only the live settings a reload changed, so weights set
// through the operator API survive an unrelated edit of the file.
func applySettings(production *application.ProductionService, ch repository.Change) {
	cfg := ch.Settings
	if ch.LevelChanged {
		utils.SetLogLevel(cfg.Log.Level)
	}
	if ch.WeightsChanged {
		production.Configure(cfg.Demo.PartitionWeights)
	}
	if ch.IntervalChanged {
		production.SetDefaultInterval(cfg.Demo.Interval())
		if production.Running() {
			production.Start(cfg.Demo.Interval())
		}
	}
}
