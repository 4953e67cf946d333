package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rxtech-lab/harbor-dex-proxy/internal/config"
	"github.com/rxtech-lab/harbor-dex-proxy/internal/connector"
	"github.com/rxtech-lab/harbor-dex-proxy/internal/events"
	"github.com/rxtech-lab/harbor-dex-proxy/internal/logger"
	"github.com/rxtech-lab/harbor-dex-proxy/internal/server"
	"github.com/rxtech-lab/harbor-dex-proxy/internal/version"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const shutdownTimeout = 15 * time.Second

// serveAction loads the config, starts the connector and serves HTTP until a signal arrives.
func serveAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"), cmd.StringSlice("env-file")...)
	if err != nil {
		return err
	}

	if level := cmd.String("log-level"); level != "" {
		cfg.LogLevel = level
	}

	appLogger, err := logger.NewLoggerWithLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	defer func() { _ = appLogger.Sync() }()

	hub := server.NewHub(appLogger.Named("ws"))

	var sink events.Sink = hub

	if cfg.Events.Redis.Addr != "" {
		client := events.NewRedisClient(cfg.Events.Redis)
		defer func() { _ = client.Close() }()

		if err := client.Ping(ctx).Err(); err != nil {
			appLogger.Warn("Redis is not reachable, publishing order events will fail until it is",
				zap.String("addr", cfg.Events.Redis.Addr),
				zap.Error(err),
			)
		}

		sink = events.Fanout{hub, events.NewRedisPublisher(client, cfg.Events.Redis.Channel)}
	}

	conn := connector.New(connector.Options{
		Config:   cfg.Harbor,
		Sink:     sink,
		Logger:   appLogger,
		API:      nil,
		Registry: nil,
	})

	srv := server.New(cfg.Server, conn, hub, appLogger)

	signalCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := conn.Start(signalCtx); err != nil {
		return fmt.Errorf("failed to start connector: %w", err)
	}

	serveErr := make(chan error, 1)

	go func() {
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err = <-serveErr:
		appLogger.Error("Server stopped unexpectedly", zap.Error(err))
	case <-signalCtx.Done():
		appLogger.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		appLogger.Warn("Server shutdown failed", zap.Error(shutdownErr))
	}

	if stopErr := conn.Stop(); stopErr != nil {
		appLogger.Warn("Connector shutdown failed", zap.Error(stopErr))
	}

	return err
}

// schemaAction prints the config JSON schema. With --output it writes the schema
// and, when missing, a sample config into that directory instead.
func schemaAction(_ context.Context, cmd *cli.Command) error {
	outputDir := cmd.String("output")

	schemaJSON, err := config.Schema()
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}

	if outputDir == "" {
		fmt.Println(schemaJSON)

		return nil
	}

	schemaName := "harbor-proxy-config.json"
	schemaPath := filepath.Join(outputDir, schemaName)
	sampleConfigPath := filepath.Join(outputDir, "harbor-proxy-config.yaml")

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(schemaPath, []byte(schemaJSON), 0o644); err != nil { //nolint:gosec // schema is public
		return fmt.Errorf("failed to write schema: %w", err)
	}

	if _, err := os.Stat(sampleConfigPath); os.IsNotExist(err) {
		sample := config.Default()
		sample.Version = version.GetVersion()
		sample.Harbor.REST.BaseURI = "https://api.harbor.example"
		sample.Harbor.REST.APIPath = "/api/v1"

		yamlBytes, err := yaml.Marshal(sample)
		if err != nil {
			return fmt.Errorf("failed to marshal sample config: %w", err)
		}

		yamlBytes = append([]byte("# yaml-language-server: $schema="+schemaName+"\n"), yamlBytes...)

		if err := os.WriteFile(sampleConfigPath, yamlBytes, 0o600); err != nil {
			return fmt.Errorf("failed to write sample config: %w", err)
		}

		log.Printf("Sample config generated at %s", sampleConfigPath)
	}

	log.Printf("Schema generated at %s", schemaPath)

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:    "harbor-proxy",
		Usage:   "Harbor DEX connector and HTTP proxy",
		Version: version.GetVersion(),
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Start the connector and serve the HTTP API",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "config",
						Aliases:  []string{"c"},
						Usage:    "Path to the YAML config file",
						Value:    "config/harbor-proxy-config.yaml",
						Required: false,
					},
					&cli.StringSliceFlag{
						Name:  "env-file",
						Usage: "Env files loaded before the config; missing files are skipped",
						Value: []string{".env"},
					},
					&cli.StringFlag{
						Name:  "log-level",
						Usage: "Override the configured log level (debug, info, warn, error)",
					},
				},
				Action: serveAction,
			},
			{
				Name:  "schema",
				Usage: "Print the config JSON schema",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write the schema and a sample config into this directory",
					},
				},
				Action: schemaAction,
			},
			{
				Name:  "version",
				Usage: "Print the version",
				Action: func(_ context.Context, _ *cli.Command) error {
					fmt.Println(version.GetVersion())

					return nil
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
