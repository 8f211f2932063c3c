package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
	"github.com/strongcodr/lowcodefusion/lcf/flows"
	"github.com/strongcodr/lowcodefusion/lcf/stubgen"
)

// Config is the top level lcf.toml structure shared by the CLI and the
// services. Individual services read their own section plus the globals.
type Config struct {
	Region  string `mapstructure:"region"`
	DataDir string `mapstructure:"data_dir"`
	Debug   bool   `mapstructure:"debug"`
	LogPath string `mapstructure:"log_path"`

	Catalog CatalogConfig `mapstructure:"catalog"`
	NATS    NATSConfig    `mapstructure:"nats"`
	Stubgen StubgenConfig `mapstructure:"stubgen"`
	Fetcher FetcherConfig `mapstructure:"fetcher"`
}

type CatalogConfig struct {
	Host    string `mapstructure:"host"`
	DataDir string `mapstructure:"data_dir"`
	AuthKey string `mapstructure:"auth_key"`
	Bucket  string `mapstructure:"bucket"`
	TLSCert string `mapstructure:"tlscert"`
	TLSKey  string `mapstructure:"tlskey"`
	Debug   bool   `mapstructure:"debug"`

	// Optional S3-compatible backing store. When Host is empty the catalog
	// serves packages preloaded from DataDir instead.
	S3 S3Config `mapstructure:"s3"`
}

type S3Config struct {
	Host      string `mapstructure:"host"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

type NATSConfig struct {
	Host string  `mapstructure:"host"`
	ACL  NATSACL `mapstructure:"acl"`
}

type NATSACL struct {
	Token string `mapstructure:"token"`
}

type StubgenConfig struct {
	DataDir string `mapstructure:"data_dir"`
	OutDir  string `mapstructure:"out_dir"`
}

type FetcherConfig struct {
	CatalogURL string `mapstructure:"catalog_url"`
	Profile    string `mapstructure:"profile"`
}

// LoadConfig loads the configuration from file and environment variables.
// A missing file is not an error: services fall back to LCF_* environment
// variables and flag defaults.
func LoadConfig(configPath string) (*Config, error) {
	viper.SetEnvPrefix("LCF")
	viper.AutomaticEnv()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			viper.SetConfigFile(configPath)
			viper.SetConfigType("toml")

			if err := viper.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		} else {
			fmt.Fprintf(os.Stderr, "Config file not found: %s, using environment variables and defaults\n", configPath)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// Requests and responses exchanged between the catalog and stubgend over the
// message bus.

type ParseOperationsRequest struct {
	Integration string `json:"integration"`
	SrcDir      string `json:"src_dir,omitempty"`
}

type ParseOperationsResponse struct {
	Integration string            `json:"integration"`
	Operations  []flows.Operation `json:"operations"`
}

type GenerateStubsRequest struct {
	Integration string `json:"integration"`
	Language    string `json:"language,omitempty"`
	Version     string `json:"version,omitempty"`
	SrcDir      string `json:"src_dir,omitempty"`
}

type GenerateStubsResponse struct {
	Integration string                  `json:"integration"`
	Language    string                  `json:"language"`
	Files       []stubgen.GeneratedFile `json:"files"`
}
