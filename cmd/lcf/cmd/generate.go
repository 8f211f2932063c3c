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

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/strongcodr/lowcodefusion/lcf/fetcher"
	"github.com/strongcodr/lowcodefusion/lcf/flows"
	"github.com/strongcodr/lowcodefusion/lcf/stubgen"
)

var generateCmd = &cobra.Command{
	Use:   "generate <integration>",
	Short: "Generate SDK stubs from extracted flow definitions",
	Long: `Generate SDK stubs for an integration. Flows are read from the local stubgen
data directory by default; with --remote the catalog parses and generates on
its side and the rendered files are written locally.`,
	Args: cobra.ExactArgs(1),
	Run:  runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().String("lang", stubgen.LanguageGo, "Target language for generated stubs")
	generateCmd.Flags().String("out", "./sdk", "Output directory for generated stubs")
	generateCmd.Flags().String("src-dir", "", "Directory of the extracted package (defaults to the stubgen data directory)")
	generateCmd.Flags().Bool("remote", false, "Generate on the catalog instead of locally")
}

func runGenerate(cmd *cobra.Command, args []string) {
	integration := args[0]
	lang, _ := cmd.Flags().GetString("lang")
	outDir, _ := cmd.Flags().GetString("out")
	srcDir, _ := cmd.Flags().GetString("src-dir")
	remote, _ := cmd.Flags().GetBool("remote")

	if remote {
		cfg, err := fetcherConfig()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		resp, err := fetcher.GenerateRemote(cfg, integration, lang)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if err := stubgen.WriteFiles(resp.Files, outDir); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		pterm.Printf("Generated %d files under %s\n", len(resp.Files), outDir)
		return
	}

	cfg := loadedConfig()

	if srcDir == "" {
		dataDir := cfg.Stubgen.DataDir
		if dataDir == "" && cfg.DataDir != "" {
			dataDir = filepath.Join(cfg.DataDir, "flows")
		}
		if dataDir == "" {
			fmt.Fprintln(os.Stderr, "Error: no flow source, pass --src-dir or set stubgen.data_dir in the config")
			os.Exit(1)
		}
		srcDir = filepath.Join(dataDir, integration)
	}

	ops, err := flows.ParseOperations(srcDir, integration)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if len(ops) == 0 {
		fmt.Println("No operations found.")
		return
	}

	files, err := stubgen.Generate(integration, ops, stubgen.Options{Language: lang})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := stubgen.WriteFiles(files, outDir); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	pterm.Printf("Generated %d files under %s\n", len(files), outDir)
}
