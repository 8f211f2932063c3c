/*
Copyright © 2025 StrongCodr

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/strongcodr/lowcodefusion/lcf/service"
	"github.com/strongcodr/lowcodefusion/lcf/services/catalogd"
	"github.com/strongcodr/lowcodefusion/lcf/services/nats"
	"github.com/strongcodr/lowcodefusion/lcf/services/stubgend"
	"github.com/strongcodr/lowcodefusion/lcf/utils"
)

var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Manage LowCodeFusion services",
}

var catalogdCmd = &cobra.Command{
	Use:   "catalogd",
	Short: "Manage the catalogd (catalog API) service",
}

var stubgendCmd = &cobra.Command{
	Use:   "stubgend",
	Short: "Manage the stubgend (stub generation worker) service",
}

var natsCmd = &cobra.Command{
	Use:   "nats",
	Short: "Manage the nats service",
}

// daemonize forks the current command into the background when --daemon is
// set. It reports whether the caller should return.
func daemonize(name string) bool {
	if !viper.GetBool("service-daemon") {
		return false
	}

	pid, err := utils.Daemonize()
	if err != nil {
		fmt.Printf("Error starting %s service: %v\n", name, err)
		return true
	}

	fmt.Printf("%s service starting in background (PID %d)\n", name, pid)
	return true
}

// statusService reports whether the PID recorded for a service is alive.
func statusService(name string) {
	pid, err := utils.ReadPidFile(name)
	if err != nil {
		fmt.Printf("%s service is not running\n", name)
		return
	}

	if utils.CheckProcessRunning(pid) {
		fmt.Printf("%s service is running (PID %d)\n", name, pid)
	} else {
		fmt.Printf("%s service is not running (stale PID file, PID %d)\n", name, pid)
	}
}

var catalogdStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the catalogd service",
	Run: func(cmd *cobra.Command, args []string) {
		if daemonize("catalogd") {
			return
		}

		fmt.Println("Starting catalogd service...")

		cfg := loadedConfig()

		// Overwrite defaults (CLI first, config second, env third)
		host := viper.GetString("catalogd-host")
		if host != "" {
			fmt.Println("Overwriting catalog host:", host)
			cfg.Catalog.Host = host
		}

		if authKey := viper.GetString("auth-key"); authKey != "" {
			cfg.Catalog.AuthKey = authKey
		}

		if bucket := viper.GetString("catalogd-bucket"); bucket != "" {
			cfg.Catalog.Bucket = bucket
		}

		if tlsCert := viper.GetString("catalogd-tls-cert"); tlsCert != "" {
			cfg.Catalog.TLSCert = tlsCert
		}

		if tlsKey := viper.GetString("catalogd-tls-key"); tlsKey != "" {
			cfg.Catalog.TLSKey = tlsKey
		}

		s3Host := viper.GetString("catalogd-s3-host")
		if s3Host != "" {
			fmt.Println("Overwriting catalog S3 host:", s3Host)
			cfg.Catalog.S3.Host = s3Host
		}

		if s3Region := viper.GetString("catalogd-s3-region"); s3Region != "" {
			cfg.Catalog.S3.Region = s3Region
		}

		if accessKey := viper.GetString("s3-access-key"); accessKey != "" {
			cfg.Catalog.S3.AccessKey = accessKey
		}

		if secretKey := viper.GetString("s3-secret-key"); secretKey != "" {
			cfg.Catalog.S3.SecretKey = secretKey
		}

		if natsHost := viper.GetString("nats-host"); natsHost != "" {
			cfg.NATS.Host = natsHost
		}

		if natsToken := viper.GetString("nats-token"); natsToken != "" {
			cfg.NATS.ACL.Token = natsToken
		}

		if cfg.Catalog.Host == "" {
			cfg.Catalog.Host = "0.0.0.0:8447"
		}

		// Required, no default
		if cfg.Catalog.AuthKey == "" {
			fmt.Println("Auth key is not set")
			return
		}

		dataDir := cfg.Catalog.DataDir
		if dataDir == "" {
			dataDir = cfg.DataDir
		}

		svc, err := service.New("catalogd", &catalogd.Config{
			Host:    cfg.Catalog.Host,
			DataDir: dataDir,
			AuthKey: cfg.Catalog.AuthKey,
			Bucket:  cfg.Catalog.Bucket,
			Debug:   cfg.Debug || cfg.Catalog.Debug || viper.GetBool("debug"),
			TLSCert: cfg.Catalog.TLSCert,
			TLSKey:  cfg.Catalog.TLSKey,

			NATSHost:  cfg.NATS.Host,
			NATSToken: cfg.NATS.ACL.Token,

			S3Host:      cfg.Catalog.S3.Host,
			S3Region:    cfg.Catalog.S3.Region,
			S3AccessKey: cfg.Catalog.S3.AccessKey,
			S3SecretKey: cfg.Catalog.S3.SecretKey,
		})

		if err != nil {
			fmt.Println("Error starting catalogd service:", err)
			return
		}

		if _, err := svc.Start(); err != nil {
			fmt.Println("Error starting catalogd service:", err)
			return
		}

		fmt.Println("Catalogd service started")
	},
}

var catalogdStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the catalogd service",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Stopping catalogd service...")

		svc, err := service.New("catalogd", &catalogd.Config{})

		if err != nil {
			fmt.Println("Error stopping catalogd service:", err)
			return
		}

		if err := svc.Stop(); err != nil {
			fmt.Println("Error stopping catalogd service:", err)
			return
		}

		fmt.Println("Catalogd service stopped")
	},
}

var catalogdStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Get status of the catalogd service",
	Run: func(cmd *cobra.Command, args []string) {
		statusService("catalogd")
	},
}

var stubgendStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the stubgend service",
	Run: func(cmd *cobra.Command, args []string) {
		if daemonize("stubgend") {
			return
		}

		fmt.Println("Starting stubgend service...")

		cfg := loadedConfig()

		dataDir := viper.GetString("stubgend-data-dir")
		if dataDir == "" {
			dataDir = cfg.Stubgen.DataDir
		}
		if dataDir == "" && cfg.DataDir != "" {
			dataDir = filepath.Join(cfg.DataDir, "flows")
		}

		// Required, no default
		if dataDir == "" {
			fmt.Println("Data directory is not set")
			return
		}

		natsHost := viper.GetString("nats-host")
		if natsHost == "" {
			natsHost = cfg.NATS.Host
		}

		if natsHost == "" {
			fmt.Println("NATS host is not set")
			return
		}

		natsToken := viper.GetString("nats-token")
		if natsToken == "" {
			natsToken = cfg.NATS.ACL.Token
		}

		bucket := viper.GetString("stubgend-bucket")
		if bucket == "" {
			bucket = cfg.Catalog.Bucket
		}

		s3Host := viper.GetString("stubgend-s3-host")
		if s3Host != "" {
			fmt.Println("Overwriting stubgend S3 host:", s3Host)
			cfg.Catalog.S3.Host = s3Host
		}

		if s3Region := viper.GetString("stubgend-s3-region"); s3Region != "" {
			cfg.Catalog.S3.Region = s3Region
		}

		if accessKey := viper.GetString("s3-access-key"); accessKey != "" {
			cfg.Catalog.S3.AccessKey = accessKey
		}

		if secretKey := viper.GetString("s3-secret-key"); secretKey != "" {
			cfg.Catalog.S3.SecretKey = secretKey
		}

		svc, err := service.New("stubgend", &stubgend.Config{
			DataDir: dataDir,
			Debug:   cfg.Debug || viper.GetBool("debug"),

			NATSHost:  natsHost,
			NATSToken: natsToken,

			Bucket:      bucket,
			S3Host:      cfg.Catalog.S3.Host,
			S3Region:    cfg.Catalog.S3.Region,
			S3AccessKey: cfg.Catalog.S3.AccessKey,
			S3SecretKey: cfg.Catalog.S3.SecretKey,
		})

		if err != nil {
			fmt.Println("Error starting stubgend service:", err)
			return
		}

		if _, err := svc.Start(); err != nil {
			fmt.Println("Error starting stubgend service:", err)
			return
		}

		fmt.Println("Stubgend service started")
	},
}

var stubgendStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the stubgend service",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Stopping stubgend service...")

		svc, err := service.New("stubgend", &stubgend.Config{})

		if err != nil {
			fmt.Println("Error stopping stubgend service:", err)
			return
		}

		if err := svc.Stop(); err != nil {
			fmt.Println("Error stopping stubgend service:", err)
			return
		}

		fmt.Println("Stubgend service stopped")
	},
}

var stubgendStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Get status of the stubgend service",
	Run: func(cmd *cobra.Command, args []string) {
		statusService("stubgend")
	},
}

var natsStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the nats service",
	Run: func(cmd *cobra.Command, args []string) {
		if daemonize("nats") {
			return
		}

		fmt.Println("Starting nats service...")

		cfg := loadedConfig()

		port := viper.GetInt("nats-port")
		listen := viper.GetString("nats-listen")
		dataDir := viper.GetString("nats-data-dir")

		configFile := viper.GetString("nats-config-file")
		if configFile == "" {
			homeDir, _ := os.UserHomeDir()
			defaultConf := filepath.Join(homeDir, "lcf", "config", "nats", "nats.conf")
			if _, err := os.Stat(defaultConf); err == nil {
				configFile = defaultConf
			}
		}

		token := viper.GetString("nats-token")
		if token == "" {
			token = cfg.NATS.ACL.Token
		}

		if dataDir == "" && cfg.DataDir != "" {
			dataDir = filepath.Join(cfg.DataDir, "nats")
		}

		svc, err := service.New("nats", &nats.Config{
			ConfigFile: configFile,
			Port:       port,
			Host:       listen,
			Debug:      cfg.Debug || viper.GetBool("debug"),
			DataDir:    dataDir,
			Token:      token,
		})

		if err != nil {
			fmt.Println("Error starting nats service:", err)
			return
		}

		if _, err := svc.Start(); err != nil {
			fmt.Println("Error starting nats service:", err)
			return
		}

		fmt.Println("NATS service started")
	},
}

var natsStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the nats service",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Stopping nats service...")

		svc, err := service.New("nats", &nats.Config{})

		if err != nil {
			fmt.Println("Error stopping nats service:", err)
			return
		}

		if err := svc.Stop(); err != nil {
			fmt.Println("Error stopping nats service:", err)
			return
		}

		fmt.Println("Nats service stopped")
	},
}

var natsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Get status of the nats service",
	Run: func(cmd *cobra.Command, args []string) {
		statusService("nats")
	},
}

func init() {

	viper.SetEnvPrefix("LCF") // Prefix for environment variables
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	viper.AutomaticEnv() // Read environment variables automatically

	rootCmd.AddCommand(serviceCmd)

	serviceCmd.PersistentFlags().Bool("daemon", false, "Run the service in the background")
	viper.BindEnv("service-daemon", "LCF_SERVICE_DAEMON")
	viper.BindPFlag("service-daemon", serviceCmd.PersistentFlags().Lookup("daemon"))

	// Catalogd
	serviceCmd.AddCommand(catalogdCmd)

	catalogdCmd.PersistentFlags().String("host", "", "Catalog listen address (host:port)")
	viper.BindEnv("catalogd-host", "LCF_CATALOGD_HOST")
	viper.BindPFlag("catalogd-host", catalogdCmd.PersistentFlags().Lookup("host"))

	catalogdCmd.PersistentFlags().String("bucket", "", "Package bucket name")
	viper.BindEnv("catalogd-bucket", "LCF_CATALOGD_BUCKET")
	viper.BindPFlag("catalogd-bucket", catalogdCmd.PersistentFlags().Lookup("bucket"))

	catalogdCmd.PersistentFlags().String("tls-cert", "", "Catalog TLS certificate")
	viper.BindEnv("catalogd-tls-cert", "LCF_CATALOGD_TLS_CERT")
	viper.BindPFlag("catalogd-tls-cert", catalogdCmd.PersistentFlags().Lookup("tls-cert"))

	catalogdCmd.PersistentFlags().String("tls-key", "", "Catalog TLS key")
	viper.BindEnv("catalogd-tls-key", "LCF_CATALOGD_TLS_KEY")
	viper.BindPFlag("catalogd-tls-key", catalogdCmd.PersistentFlags().Lookup("tls-key"))

	catalogdCmd.PersistentFlags().String("s3-host", "", "S3 compatible package store endpoint")
	viper.BindEnv("catalogd-s3-host", "LCF_CATALOGD_S3_HOST")
	viper.BindPFlag("catalogd-s3-host", catalogdCmd.PersistentFlags().Lookup("s3-host"))

	catalogdCmd.PersistentFlags().String("s3-region", "", "S3 compatible package store region")
	viper.BindEnv("catalogd-s3-region", "LCF_CATALOGD_S3_REGION")
	viper.BindPFlag("catalogd-s3-region", catalogdCmd.PersistentFlags().Lookup("s3-region"))

	catalogdCmd.AddCommand(catalogdStartCmd)
	catalogdCmd.AddCommand(catalogdStopCmd)
	catalogdCmd.AddCommand(catalogdStatusCmd)

	// Stubgend
	serviceCmd.AddCommand(stubgendCmd)

	stubgendCmd.PersistentFlags().String("data-dir", "", "Directory holding extracted integration packages")
	viper.BindEnv("stubgend-data-dir", "LCF_STUBGEND_DATA_DIR")
	viper.BindPFlag("stubgend-data-dir", stubgendCmd.PersistentFlags().Lookup("data-dir"))

	stubgendCmd.PersistentFlags().String("bucket", "", "Package bucket name")
	viper.BindEnv("stubgend-bucket", "LCF_STUBGEND_BUCKET")
	viper.BindPFlag("stubgend-bucket", stubgendCmd.PersistentFlags().Lookup("bucket"))

	stubgendCmd.PersistentFlags().String("s3-host", "", "S3 compatible package store endpoint")
	viper.BindEnv("stubgend-s3-host", "LCF_STUBGEND_S3_HOST")
	viper.BindPFlag("stubgend-s3-host", stubgendCmd.PersistentFlags().Lookup("s3-host"))

	stubgendCmd.PersistentFlags().String("s3-region", "", "S3 compatible package store region")
	viper.BindEnv("stubgend-s3-region", "LCF_STUBGEND_S3_REGION")
	viper.BindPFlag("stubgend-s3-region", stubgendCmd.PersistentFlags().Lookup("s3-region"))

	stubgendCmd.AddCommand(stubgendStartCmd)
	stubgendCmd.AddCommand(stubgendStopCmd)
	stubgendCmd.AddCommand(stubgendStatusCmd)

	// Nats
	serviceCmd.AddCommand(natsCmd)

	natsCmd.PersistentFlags().Int("port", 4222, "NATS server port")
	viper.BindEnv("nats-port", "LCF_NATS_PORT")
	viper.BindPFlag("nats-port", natsCmd.PersistentFlags().Lookup("port"))

	natsCmd.PersistentFlags().String("listen", "0.0.0.0", "NATS server listen address")
	viper.BindEnv("nats-listen", "LCF_NATS_LISTEN")
	viper.BindPFlag("nats-listen", natsCmd.PersistentFlags().Lookup("listen"))

	natsCmd.PersistentFlags().String("data-dir", "", "NATS data directory")
	viper.BindEnv("nats-data-dir", "LCF_NATS_DATA_DIR")
	viper.BindPFlag("nats-data-dir", natsCmd.PersistentFlags().Lookup("data-dir"))

	natsCmd.PersistentFlags().String("config-file", "", "NATS server configuration file (nats.conf)")
	viper.BindEnv("nats-config-file", "LCF_NATS_CONFIG_FILE")
	viper.BindPFlag("nats-config-file", natsCmd.PersistentFlags().Lookup("config-file"))

	natsCmd.AddCommand(natsStartCmd)
	natsCmd.AddCommand(natsStopCmd)
	natsCmd.AddCommand(natsStatusCmd)

}
