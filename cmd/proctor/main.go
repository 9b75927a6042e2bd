// proctor: attention monitoring server for online exams.
// Browsers stream gaze samples and face counts over a websocket; the
// server runs calibration, focus and presence checks per session.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-proctor/internal/config"
	"github.com/teslashibe/go-proctor/internal/log"
	"github.com/teslashibe/go-proctor/pkg/detection"
	"github.com/teslashibe/go-proctor/pkg/session"
	"github.com/teslashibe/go-proctor/pkg/violation"
	"github.com/teslashibe/go-proctor/pkg/web"
)

var version = "0.1.0"

func main() {
	env := config.FromEnv()

	port := flag.String("port", env.Port, "HTTP server port")
	logLevel := flag.String("log-level", env.LogLevel, "Log level (debug, info, warn, error)")
	configPath := flag.String("config", env.ConfigPath, "Session config file (default ~/.proctor/config.json)")
	preset := flag.String("preset", "", "Threshold preset: default, strict, lenient")
	modelPath := flag.String("model", env.ModelPath, "YuNet ONNX model for server-side face detection")
	noDetector := flag.Bool("no-detector", false, "Disable server-side face detection")
	remoteURL := flag.String("remote", env.RemoteURL, "Frame analysis server URL")
	kafkaTopic := flag.String("kafka-topic", env.KafkaTopic, "Kafka topic for violation events")
	staticDir := flag.String("static", "", "Directory of static files to serve at / (optional)")
	debug := flag.Bool("debug", false, "Log every HTTP request")
	flag.Parse()

	log.Init(*logLevel)
	logger := log.With("component", "main")

	cfg, err := loadSessionConfig(*configPath, *preset)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if env.PollInterval > 0 {
		cfg.Presence.Interval = env.PollInterval
	}

	logger.Info("starting proctor", "version", version,
		"gaze_screen_hard", cfg.Gaze.ScreenHard,
		"gaze_task_hard", cfg.Gaze.TaskHard,
		"presence_interval", cfg.Presence.Interval,
		"presence_threshold", cfg.Presence.Threshold)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var sinks []violation.Sink
	var kafka *violation.KafkaSink
	if len(env.KafkaBrokers) > 0 {
		kafka = violation.NewKafkaSink(violation.KafkaConfig{
			Brokers: env.KafkaBrokers,
			Topic:   *kafkaTopic,
		}, log.L())
		sinks = append(sinks, kafka)
		logger.Info("forwarding violations to kafka", "brokers", env.KafkaBrokers, "topic", *kafkaTopic)
	}

	var det detection.Detector
	if !*noDetector {
		dcfg := detection.DefaultConfig()
		dcfg.ModelPath = *modelPath
		yunet, err := detection.NewYuNet(dcfg)
		if err != nil {
			logger.Warn("face detector unavailable", "error", err)
		} else {
			det = yunet
			defer yunet.Close()
			logger.Info("face detector loaded", "model", *modelPath)
		}
	}

	srv := web.NewServer(ctx, web.Config{
		Port:      *port,
		StaticDir: *staticDir,
		Debug:     *debug,
		Sessions: session.ManagerConfig{
			Session:   cfg,
			Sinks:     sinks,
			Detector:  det,
			RemoteURL: *remoteURL,
		},
	})

	errc := make(chan error, 1)
	go func() { errc <- srv.Start() }()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errc:
		logger.Error("server stopped", "error", err)
	}

	if err := srv.Shutdown(); err != nil {
		logger.Error("shutdown", "error", err)
	}
	if kafka != nil {
		if err := kafka.Close(); err != nil {
			logger.Error("close kafka sink", "error", err)
		}
	}
}

// loadSessionConfig applies, lowest to highest: defaults, config file,
// preset flag.
func loadSessionConfig(path, preset string) (session.Config, error) {
	if path == "" {
		path = session.DefaultConfigPath()
	}
	cfg, err := session.LoadConfig(path)
	if err != nil {
		return cfg, err
	}
	if preset != "" {
		p, err := session.Preset(preset)
		if err != nil {
			return cfg, err
		}
		cfg.Gaze = p.Gaze
		cfg.Presence.Threshold = p.Presence.Threshold
	}
	return cfg, nil
}
