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
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/strongcodr/lowcodefusion/lcf/admin"
)

//go:embed templates/lcf.toml
var lcfTomlTemplate string

//go:embed templates/nats.conf
var natsConfTemplate string

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Administrative commands for LowCodeFusion management",
	Long:  `Administrative commands for initializing and managing a LowCodeFusion installation.`,
}

var adminInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize LowCodeFusion configuration",
	Long: `Initialize LowCodeFusion by creating configuration files, generating SSL
certificates, and setting up catalog credentials. This creates the necessary
directory structure and configuration files in ~/lcf/config.`,
	Run: runAdminInit,
}

func init() {
	rootCmd.AddCommand(adminCmd)
	adminCmd.AddCommand(adminInitCmd)

	homeDir, _ := os.UserHomeDir()
	configDir := fmt.Sprintf("%s/lcf/config", homeDir)
	lcfDir := fmt.Sprintf("%s/lcf/", homeDir)

	rootCmd.PersistentFlags().String("config-dir", configDir, "Configuration directory")
	rootCmd.PersistentFlags().String("lcf-dir", lcfDir, "LowCodeFusion base directory")

	// Flags for admin init
	adminInitCmd.Flags().Bool("force", false, "Force re-initialization (overwrites existing config)")
	adminInitCmd.Flags().String("region", "us-east-1", "Default region for the catalog")
	adminInitCmd.Flags().String("bind", "127.0.0.1", "IP address the catalog binds to")
	adminInitCmd.Flags().String("port", "8447", "Port the catalog listens on")
}

func runAdminInit(cmd *cobra.Command, args []string) {
	force, _ := cmd.Flags().GetBool("force")
	configDir, _ := cmd.Flags().GetString("config-dir")
	region, _ := cmd.Flags().GetString("region")
	bindIP, _ := cmd.Flags().GetString("bind")
	port, _ := cmd.Flags().GetString("port")

	// Default config directory
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting home directory: %v\n", err)
			os.Exit(1)
		}
		configDir = filepath.Join(homeDir, "lcf", "config")
	}

	fmt.Println("🚀 Initializing LowCodeFusion...")
	fmt.Printf("Configuration directory: %s\n\n", configDir)

	// Check if already initialized
	lcfTomlPath := filepath.Join(configDir, "lcf.toml")
	if !force && admin.FileExists(lcfTomlPath) {
		fmt.Println("⚠️  LowCodeFusion already initialized!")
		fmt.Printf("Config file exists: %s\n", lcfTomlPath)
		fmt.Println("\nTo re-initialize, run with --force flag:")
		fmt.Println("  lcf admin init --force")
		os.Exit(0)
	}

	// Create config directory
	if err := os.MkdirAll(configDir, 0700); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating config directory: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✅ Created config directory: %s\n", configDir)

	// Reuse the auth key from an existing config so issued keys stay valid
	// across a forced re-init.
	var authKey string
	if admin.FileExists(lcfTomlPath) {
		if content, err := os.ReadFile(lcfTomlPath); err == nil {
			authKey = admin.ParseAuthKeyFromConfig(string(content))
		}
	}

	if authKey != "" {
		fmt.Println("\n🔑 Reusing existing catalog auth key")
	} else {
		authKey = admin.GenerateAuthKey()
		fmt.Println("\n🔑 Generated catalog auth key:")
	}
	fmt.Printf("   Auth Key: %s\n", authKey)

	// Generate the CA and the server certificate signed by it
	caCertPath := admin.GenerateCertificatesIfNeeded(configDir, force, bindIP)

	// Generate NATS token
	natsToken := admin.GenerateNATSToken()
	fmt.Println("\n🔒 Generated NATS authentication token")

	// Get home directory for data path
	homeDir, _ := os.UserHomeDir()
	lcfRoot := filepath.Join(homeDir, "lcf")

	// Create config files from embedded templates
	fmt.Println("\n📝 Creating configuration files...")

	natsDir := filepath.Join(configDir, "nats")
	if err := os.MkdirAll(natsDir, 0700); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating directory %s: %v\n", natsDir, err)
		os.Exit(1)
	}

	settings := admin.ConfigSettings{
		AuthKey:   authKey,
		Region:    region,
		NatsToken: natsToken,
		DataDir:   lcfRoot,
		ConfigDir: configDir,
		BindIP:    bindIP,
		Port:      port,
	}

	configs := []admin.ConfigFile{
		{Name: "lcf.toml", Path: lcfTomlPath, Template: lcfTomlTemplate},
		{Name: "nats/nats.conf", Path: filepath.Join(natsDir, "nats.conf"), Template: natsConfTemplate},
	}

	if err := admin.GenerateConfigFiles(configs, settings); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Update ~/.lcf/credentials
	fmt.Println("\n🔧 Configuring catalog credentials...")
	catalogURL := fmt.Sprintf("https://%s:%s", bindIP, port)
	if err := admin.SetupCredentials(authKey, region, catalogURL); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not update credentials: %v\n", err)
	} else {
		fmt.Println("✅ Catalog credentials configured")
	}

	admin.CreateServiceDirectories(lcfRoot)

	// Print success message
	fmt.Println("\n🎉 LowCodeFusion initialization complete!")
	fmt.Println("\n📋 Next steps:")
	fmt.Println("   1. Start services:")
	fmt.Println("      lcf service nats start --daemon")
	fmt.Println("      lcf service stubgend start --daemon")
	fmt.Println("      lcf service catalogd start --daemon")
	fmt.Println()
	fmt.Println("   2. Generate an SDK:")
	fmt.Println("      export LCF_PROFILE=lcf")
	fmt.Println("      lcf download AWS_EC2")
	fmt.Println()
	fmt.Println("🔗 Configuration:")
	fmt.Printf("   Config file: %s\n", lcfTomlPath)
	fmt.Printf("   Data directory: %s\n", lcfRoot)
	fmt.Printf("   CA certificate: %s\n", caCertPath)
	fmt.Println()
}
