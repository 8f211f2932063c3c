// Package stubgend runs the stub generation worker. It subscribes the flow
// handlers on the NATS bus and answers parse and generate requests from the
// catalog and the CLI.
package stubgend

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"
	"github.com/strongcodr/lowcodefusion/lcf/handlers"
	handlers_flows "github.com/strongcodr/lowcodefusion/lcf/handlers/flows"
	"github.com/strongcodr/lowcodefusion/lcf/lcferrors"
	"github.com/strongcodr/lowcodefusion/lcf/pkgstore"
	"github.com/strongcodr/lowcodefusion/lcf/utils"
	"go.uber.org/automaxprocs/maxprocs"
)

var serviceName = "stubgend"

type Config struct {
	DataDir string `json:"data_dir"`
	Debug   bool   `json:"debug"`

	NATSHost  string `json:"nats_host"`
	NATSToken string `json:"nats_token"`

	Bucket      string `json:"bucket"`
	S3Host      string `json:"s3_host"`
	S3Region    string `json:"s3_region"`
	S3AccessKey string `json:"s3_access_key"`
	S3SecretKey string `json:"s3_secret_key"`
}

type Service struct {
	Config *Config
}

func New(config any) (svc *Service, err error) {
	svc = &Service{
		Config: config.(*Config),
	}

	return svc, nil
}

func (svc *Service) Start() (int, error) {

	utils.WritePidFile(serviceName, os.Getpid())
	err := launchService(svc.Config)
	if err != nil {
		return 0, err
	}

	return os.Getpid(), nil
}

func (svc *Service) Stop() (err error) {

	err = utils.StopProcess(serviceName)
	return err
}

func (svc *Service) Status() (string, error) {
	return "", nil
}

func (svc *Service) Shutdown() (err error) {
	return svc.Stop()
}

func (svc *Service) Reload() (err error) {
	return nil
}

func launchService(config *Config) (err error) {

	var logLevel slog.Level
	if config.Debug {
		logLevel = slog.LevelDebug
	} else {
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	slog.SetDefault(slog.New(handler))

	// Adjust MAXPROCS if running under linux/cgroups quotas.
	undo, err := maxprocs.Set(maxprocs.Logger(log.Printf))
	if err != nil {
		log.Printf("Failed to set GOMAXPROCS: %v", err)
	} else {
		defer undo()
	}

	natsConn, err := utils.ConnectNATS(config.NATSHost, config.NATSToken)
	if err != nil {
		slog.Error("Failed to connect to NATS", "err", err)
		return err
	}
	defer natsConn.Close()

	slog.Info("Connected to NATS server", "host", config.NATSHost)

	// A configured S3 store lets the worker pull package archives it has
	// not extracted yet.
	var flowService handlers_flows.FlowService
	if config.S3Host != "" {
		s3svc, err := pkgstore.NewS3Session(pkgstore.S3Config{
			Host:      config.S3Host,
			Region:    config.S3Region,
			AccessKey: config.S3AccessKey,
			SecretKey: config.S3SecretKey,
		})
		if err != nil {
			slog.Error("Failed to connect to S3 package store", "err", err)
			return err
		}

		bucket := config.Bucket
		if bucket == "" {
			bucket = "packages"
		}

		flowService = handlers_flows.NewFlowServiceImplWithStore(config.DataDir, pkgstore.NewS3ObjectStore(s3svc), bucket)

		slog.Info("Using S3 package store", "host", config.S3Host, "bucket", bucket)
	} else {
		flowService = handlers_flows.NewFlowServiceImpl(config.DataDir)
	}

	flowHandlers := []handlers.Handler{
		handlers_flows.NewParseOperationsHandler(flowService),
		handlers_flows.NewGenerateStubsHandler(flowService),
	}

	// Subscribe each handler with a queue group so workers share the load
	for _, h := range flowHandlers {
		handler := h
		_, err := natsConn.QueueSubscribe(handler.Topic(), "stubgend-workers", func(msg *nats.Msg) {
			response := handler.Process(msg.Data)
			if response == nil {
				response = utils.GenerateErrorPayload(lcferrors.ErrorInternalFailure)
			}

			if err := msg.Respond(response); err != nil {
				slog.Error("Failed to respond to request", "topic", handler.Topic(), "err", err)
			}
		})
		if err != nil {
			return fmt.Errorf("failed to subscribe to NATS %s: %w", handler.Topic(), err)
		}

		slog.Info("Subscribed to topic", "topic", handler.Topic())
	}

	// Create a channel to receive shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Wait for shutdown signal
	<-sigChan
	slog.Info("Shutting down gracefully...")

	if err := natsConn.Drain(); err != nil {
		slog.Warn("Failed to drain NATS connection", "err", err)
	}

	utils.RemovePidFile(serviceName)

	return nil
}
