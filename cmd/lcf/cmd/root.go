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

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/strongcodr/lowcodefusion/lcf/admin"
	"github.com/strongcodr/lowcodefusion/lcf/config"
	"github.com/strongcodr/lowcodefusion/lcf/fetcher"
)

var (
	cfgFile   string
	appConfig *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "lcf",
	Short: "LowCodeFusion - SDK stub generation for Pliant integration packages",
	Long: `LowCodeFusion turns Pliant integration packages into typed SDK stub packages.
It runs the catalog and stub generation services and ships the client commands
that download packages and generate SDKs.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (defaults to ~/lcf/config/lcf.toml)")
	viper.BindEnv("config", "LCF_CONFIG_PATH")
	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))

	// Catalog authentication
	rootCmd.PersistentFlags().String("auth-key", "", "Catalog auth key (overrides config file and env)")
	viper.BindEnv("auth-key", "LCF_AUTH_KEY")
	viper.BindPFlag("auth-key", rootCmd.PersistentFlags().Lookup("auth-key"))

	rootCmd.PersistentFlags().String("region", "", "Region (overrides config file and env)")
	viper.BindEnv("region", "LCF_REGION")
	viper.BindPFlag("region", rootCmd.PersistentFlags().Lookup("region"))

	rootCmd.PersistentFlags().String("catalog-url", "", "Catalog base URL (overrides config file and env)")
	viper.BindEnv("catalog-url", "LCF_CATALOG_URL")
	viper.BindPFlag("catalog-url", rootCmd.PersistentFlags().Lookup("catalog-url"))

	rootCmd.PersistentFlags().String("profile", "", "Credentials profile in ~/.lcf/credentials (overrides config file and env)")
	viper.BindEnv("profile", "LCF_PROFILE")
	viper.BindPFlag("profile", rootCmd.PersistentFlags().Lookup("profile"))

	// NATS specific flags
	rootCmd.PersistentFlags().String("nats-host", "", "NATS server host (overrides config file and env)")
	viper.BindEnv("nats-host", "LCF_NATS_HOST")
	viper.BindPFlag("nats-host", rootCmd.PersistentFlags().Lookup("nats-host"))

	rootCmd.PersistentFlags().String("nats-token", "", "NATS authentication token (overrides config file and env)")
	viper.BindEnv("nats-token", "LCF_NATS_TOKEN")
	viper.BindPFlag("nats-token", rootCmd.PersistentFlags().Lookup("nats-token"))

	// Package store credentials
	rootCmd.PersistentFlags().String("s3-access-key", "", "Package store access key (overrides config file and env)")
	viper.BindEnv("s3-access-key", "LCF_S3_ACCESS_KEY")
	viper.BindPFlag("s3-access-key", rootCmd.PersistentFlags().Lookup("s3-access-key"))

	rootCmd.PersistentFlags().String("s3-secret-key", "", "Package store secret key (overrides config file and env)")
	viper.BindEnv("s3-secret-key", "LCF_S3_SECRET_KEY")
	viper.BindPFlag("s3-secret-key", rootCmd.PersistentFlags().Lookup("s3-secret-key"))

	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	viper.BindEnv("debug", "LCF_DEBUG")
	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	var err error

	if cfgFile == "" {
		cfgFile = viper.GetString("config")
	}

	// Fall back to the location admin init writes to
	if cfgFile == "" {
		homeDir, _ := os.UserHomeDir()
		defaultPath := filepath.Join(homeDir, "lcf", "config", "lcf.toml")
		if admin.FileExists(defaultPath) {
			cfgFile = defaultPath
		}
	}

	// Load configuration
	appConfig, err = config.LoadConfig(cfgFile)

	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		fmt.Fprintln(os.Stderr, "Continuing with environment variables and defaults...")
	}
}

// loadedConfig returns the configuration loaded by initConfig, or an empty
// config when no file or environment produced one.
func loadedConfig() *config.Config {
	if appConfig == nil {
		return &config.Config{}
	}
	return appConfig
}

// fetcherConfig resolves the catalog endpoint and auth key for client
// commands: flags first, then the config file, then the credentials profile.
func fetcherConfig() (fetcher.Config, error) {
	cfg := loadedConfig()

	catalogURL := viper.GetString("catalog-url")
	if catalogURL == "" {
		catalogURL = cfg.Fetcher.CatalogURL
	}

	authKey := viper.GetString("auth-key")
	if authKey == "" {
		authKey = cfg.Catalog.AuthKey
	}

	if catalogURL == "" || authKey == "" {
		profile := viper.GetString("profile")
		if profile == "" {
			profile = cfg.Fetcher.Profile
		}
		if profile == "" {
			profile = "lcf"
		}

		if homeDir, err := os.UserHomeDir(); err == nil {
			creds, err := admin.LoadCredentials(filepath.Join(homeDir, ".lcf", "credentials"), profile)
			if err == nil {
				if catalogURL == "" {
					catalogURL = creds.CatalogURL
				}
				if authKey == "" {
					authKey = creds.AuthKey
				}
			}
		}
	}

	if catalogURL == "" {
		return fetcher.Config{}, fmt.Errorf("catalog URL is not set, pass --catalog-url or run: lcf admin init")
	}

	return fetcher.Config{
		CatalogURL: catalogURL,
		AuthKey:    authKey,
	}, nil
}
