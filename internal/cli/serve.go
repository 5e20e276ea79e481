package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/synheart/synheart-stress/internal/config"
	"github.com/synheart/synheart-stress/internal/encoding"
	"github.com/synheart/synheart-stress/internal/ingest"
	"github.com/synheart/synheart-stress/internal/models"
	"github.com/synheart/synheart-stress/internal/pipeline"
	"github.com/synheart/synheart-stress/internal/recorder"
	"github.com/synheart/synheart-stress/internal/server"
	"github.com/synheart/synheart-stress/internal/sink"
	"github.com/synheart/synheart-stress/internal/state"
	"github.com/synheart/synheart-stress/internal/transport"
)

var (
	serveHost      string
	servePort      int
	serveModelsDir string
	serveRecord    string
	serveUDPPort   int
	serveUDPFormat string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the stress classification service",
	Long: `Starts the HTTP service that devices post samples to and displays poll.

Every state change is also pushed to WebSocket (/ws) and SSE (/events)
clients, an optional UDP broadcaster, and any configured MQTT, Redis or
Kafka sinks.

Examples:
  synheart-stress serve
  synheart-stress serve --port 8080 --record session.ndjson
  synheart-stress serve --config stress.yaml --udp-port 5002`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (default 0.0.0.0)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default 5000)")
	serveCmd.Flags().StringVar(&serveModelsDir, "models-dir", "", "Directory with model artifacts (default: embedded models)")
	serveCmd.Flags().StringVar(&serveRecord, "record", "", "Record every snapshot to an NDJSON file")
	serveCmd.Flags().IntVar(&serveUDPPort, "udp-port", 0, "Enable the UDP broadcaster on this port")
	serveCmd.Flags().StringVar(&serveUDPFormat, "udp-format", "", "UDP payload encoding: json|protobuf")
}

func applyServeFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Server.Host = serveHost
	}
	if flags.Changed("port") {
		cfg.Server.Port = servePort
	}
	if flags.Changed("models-dir") {
		cfg.Models.Dir = serveModelsDir
	}
	if flags.Changed("record") {
		cfg.Record.Path = serveRecord
	}
	if flags.Changed("udp-port") {
		cfg.UDP.Port = serveUDPPort
	}
	if flags.Changed("udp-format") {
		cfg.UDP.Format = serveUDPFormat
	}
	return cfg.Validate()
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := applyServeFlags(cmd, &cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	ctx, cancel := withSignals(func() {
		logger.Info("received interrupt signal, shutting down gracefully")
	})
	defer cancel()

	// Models are required; the service does not start without them.
	ensemble, err := loadEnsemble(ctx, cfg.Models)
	if err != nil {
		return fmt.Errorf("failed to load models: %w", err)
	}
	defer ensemble.Close(context.Background())

	feed := make(chan models.Snapshot, cfg.Server.FeedBuffer)
	st := state.New(state.Options{
		DisplayMode:    cfg.Device.DisplayMode,
		IsSensorActive: cfg.Device.Active,
		SendInterval:   cfg.Device.SendInterval,
		Feed:           feed,
	})

	pipe := pipeline.New(st, ensemble, pipeline.Config{
		ClassifyTimeout: cfg.Server.ClassifyTimeout,
	}, logger.Named("pipeline"))

	dispatcher := transport.NewDispatcher(feed, cfg.Server.FeedBuffer, logger.Named("dispatcher"))

	jsonEncoder := encoding.NewJSONEncoder()
	wsHub := transport.NewWebSocketHub(jsonEncoder, logger.Named("ws"))
	sseHub := transport.NewSSEHub(jsonEncoder, logger.Named("sse"))
	defer wsHub.Close()
	defer sseHub.Close()

	srv := server.NewServer(server.Config{
		Host:        cfg.Server.Host,
		Port:        cfg.Server.Port,
		CORSOrigins: cfg.Server.CORSOrigins,
		Version:     Version,
		Models:      ensemble.Models(),
	}, st, pipe, logger.Named("http"))
	srv.Mount("/ws", wsHub)
	srv.Mount("/events", sseHub)

	go wsHub.BroadcastFromChannel(ctx, dispatcher.Subscribe())
	go sseHub.BroadcastFromChannel(ctx, dispatcher.Subscribe())

	var udp *transport.UDPServer
	if cfg.UDP.Port > 0 {
		format, err := encoding.ParseFormat(cfg.UDP.Format)
		if err != nil {
			return err
		}
		udp = transport.NewUDPServer(cfg.Server.Host, cfg.UDP.Port, encoding.NewEncoder(format), logger.Named("udp"))
		go func() {
			if err := udp.Start(ctx); err != nil && err != context.Canceled {
				logger.Error("udp server failed", zap.Error(err))
			}
		}()
		go udp.BroadcastFromChannel(ctx, dispatcher.Subscribe())
	}

	sinks, ingestor, err := buildIntegrations(ctx, cfg, pipe, logger)
	if err != nil {
		return err
	}
	if len(sinks) > 0 {
		forwarder := sink.NewForwarder(logger.Named("sink"), sinks...)
		defer forwarder.Close()
		go forwarder.Run(ctx, dispatcher.Subscribe())
	}
	if ingestor != nil {
		go func() {
			if err := ingestor.Run(ctx); err != nil && err != context.Canceled {
				logger.Error("mqtt ingestion stopped", zap.Error(err))
			}
		}()
	}

	var rec *recorder.Recorder
	if cfg.Record.Path != "" {
		rec, err = recorder.NewRecorder(cfg.Record.Path)
		if err != nil {
			return fmt.Errorf("failed to create recorder: %w", err)
		}
		defer rec.Close()
		go rec.RecordFromChannel(ctx, dispatcher.Subscribe(), nil)
	}

	go dispatcher.Run(ctx)

	if !globalOpts.Quiet {
		fmt.Fprintf(os.Stderr, "Synheart Stress Service Started\n\n")
		fmt.Fprintf(os.Stderr, "HTTP:         %s\n", srv.GetAddress())
		fmt.Fprintf(os.Stderr, "WebSocket:    ws://%s:%d/ws\n", cfg.Server.Host, cfg.Server.Port)
		fmt.Fprintf(os.Stderr, "SSE:          %s/events\n", srv.GetAddress())
		if udp != nil {
			fmt.Fprintf(os.Stderr, "UDP:          %s\n", udp.GetAddress())
		}
		fmt.Fprintf(os.Stderr, "Models:       %v\n", ensemble.Models())
		for _, s := range sinks {
			fmt.Fprintf(os.Stderr, "Sink:         %s\n", s.Name())
		}
		if ingestor != nil {
			fmt.Fprintf(os.Stderr, "MQTT ingest:  %s\n", cfg.MQTT.SamplesTopic)
		}
		if rec != nil {
			fmt.Fprintf(os.Stderr, "Recording:    %s\n", cfg.Record.Path)
		}
		fmt.Fprintln(os.Stderr)
	}

	if err := srv.Start(ctx); err != nil && err != context.Canceled {
		return fmt.Errorf("server error: %w", err)
	}

	stats := pipe.Stats()
	logger.Info("shutdown complete",
		zap.Int("ingested", stats.Total),
		zap.Int("scored", stats.Scored),
		zap.Int("idle", stats.Idle),
		zap.Int("invalid", stats.Invalid),
		zap.Int("errors", stats.Errors),
		zap.Int64("feed_dropped", st.Dropped()),
		zap.Int64("fanout_dropped", dispatcher.GetDroppedCount()))
	return nil
}

// buildIntegrations connects the configured brokers. A broker that cannot be
// reached at startup is an error; failures after that are logged per publish.
func buildIntegrations(ctx context.Context, cfg config.Config, pipe *pipeline.Pipeline, logger *zap.Logger) ([]sink.Sink, *ingest.MQTTIngestor, error) {
	var (
		sinks    []sink.Sink
		ingestor *ingest.MQTTIngestor
	)

	if cfg.MQTT.Broker != "" && (cfg.MQTT.ReadingsTopic != "" || cfg.MQTT.SamplesTopic != "") {
		client, err := sink.ConnectMQTT(cfg.MQTT, logger.Named("mqtt"))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to mqtt broker: %w", err)
		}
		if cfg.MQTT.ReadingsTopic != "" {
			sinks = append(sinks, sink.NewMQTTSink(client, cfg.MQTT.ReadingsTopic, cfg.MQTT.QoS))
		}
		if cfg.MQTT.SamplesTopic != "" {
			ingestor = ingest.NewMQTTIngestor(client, cfg.MQTT.SamplesTopic, cfg.MQTT.QoS, pipe, logger.Named("mqtt-ingest"))
		}
	}

	if cfg.Redis.Addr != "" {
		rs := sink.NewRedisSink(sink.NewRedisClient(cfg.Redis), cfg.Redis.Channel, cfg.Redis.Key)
		pingCtx, cancel := context.WithTimeout(ctx, sink.DefaultPublishTimeout)
		err := rs.Ping(pingCtx)
		cancel()
		if err != nil {
			rs.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		sinks = append(sinks, rs)
	}

	if len(cfg.Kafka.Brokers) > 0 {
		ks, err := sink.NewKafkaSink(cfg.Kafka)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create kafka sink: %w", err)
		}
		sinks = append(sinks, ks)
	}

	return sinks, ingestor, nil
}
