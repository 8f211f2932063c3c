// Package catalogd runs the catalog API as a managed service.
package catalogd

import (
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nats-io/nats.go"
	"github.com/strongcodr/lowcodefusion/lcf/catalog"
	"github.com/strongcodr/lowcodefusion/lcf/pkgstore"
	"github.com/strongcodr/lowcodefusion/lcf/utils"
	"go.uber.org/automaxprocs/maxprocs"
)

var serviceName = "catalogd"

type Config struct {
	Host    string `json:"host"`
	DataDir string `json:"data_dir"`
	AuthKey string `json:"auth_key"`
	Bucket  string `json:"bucket"`
	Debug   bool   `json:"debug"`

	TLSCert string `json:"tls_cert"`
	TLSKey  string `json:"tls_key"`

	NATSHost  string `json:"nats_host"`
	NATSToken string `json:"nats_token"`

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

	// Adjust MAXPROCS if running under linux/cgroups quotas.
	undo, err := maxprocs.Set(maxprocs.Logger(log.Printf))
	if err != nil {
		log.Printf("Failed to set GOMAXPROCS: %v", err)
	} else {
		defer undo()
	}

	// The parse and generate endpoints need the stubgen workers, the
	// version and download endpoints work without a bus.
	var natsConn *nats.Conn
	if config.NATSHost != "" {
		natsConn, err = utils.ConnectNATS(config.NATSHost, config.NATSToken)
		if err != nil {
			slog.Error("Failed to connect to NATS", "err", err)
			return err
		}
		defer natsConn.Close()

		slog.Info("Connected to NATS server", "host", config.NATSHost)
	} else {
		slog.Warn("No NATS host configured, parse and generate endpoints disabled")
	}

	bucket := config.Bucket
	if bucket == "" {
		bucket = "packages"
	}

	var store pkgstore.ObjectStore
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
		store = pkgstore.NewS3ObjectStore(s3svc)

		slog.Info("Using S3 package store", "host", config.S3Host, "bucket", bucket)
	} else {
		memStore := pkgstore.NewMemoryObjectStore()
		packagesDir := filepath.Join(config.DataDir, "packages")

		count, err := memStore.PreloadDir(bucket, packagesDir)
		if err != nil {
			slog.Warn("Failed to preload packages", "dir", packagesDir, "err", err)
		} else {
			slog.Info("Preloaded packages", "dir", packagesDir, "count", count)
		}
		store = memStore
	}

	cs := &catalog.Config{
		Debug:    config.Debug,
		Host:     config.Host,
		DataDir:  config.DataDir,
		AuthKey:  config.AuthKey,
		Bucket:   config.Bucket,
		TLSCert:  config.TLSCert,
		TLSKey:   config.TLSKey,
		NATSConn: natsConn,
		Store:    store,
	}

	app := cs.SetupRoutes()

	if config.TLSCert != "" {
		log.Fatal(app.ListenTLS(config.Host, config.TLSCert, config.TLSKey))
	} else {
		log.Fatal(app.Listen(config.Host))
	}

	return nil
}
