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

var downloadCmd = &cobra.Command{
	Use:   "download <integration>",
	Short: "Download an integration package and generate SDK stubs",
	Long: `Download the latest package of an integration from the catalog, extract
its flow definitions, and generate SDK stubs into the output directory.`,
	Args: cobra.ExactArgs(1),
	Run:  runDownload,
}

func init() {
	rootCmd.AddCommand(downloadCmd)

	downloadCmd.Flags().String("lang", stubgen.LanguageGo, "Target language for generated stubs")
	downloadCmd.Flags().String("out", "./sdk", "Output directory for generated stubs")
	downloadCmd.Flags().Bool("download-only", false, "Download the package archive without generating stubs")
}

func runDownload(cmd *cobra.Command, args []string) {
	lang, _ := cmd.Flags().GetString("lang")
	outDir, _ := cmd.Flags().GetString("out")
	downloadOnly, _ := cmd.Flags().GetBool("download-only")

	cfg, err := fetcherConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	def, err := fetcher.FetchIntegration(cfg, args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	pterm.Printf("Resolved %s to version %s\n", def.Name, def.Version)

	// Keep the archive in the working directory when only downloading
	if downloadOnly {
		zipPath, err := fetcher.DownloadPackage(cfg, def, ".")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		pterm.Printf("Downloaded %s\n", zipPath)
		return
	}

	workDir, err := os.MkdirTemp("", fmt.Sprintf("lcf-%s-*", flows.SanitizeName(def.Name)))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer os.RemoveAll(workDir)

	zipPath, err := fetcher.DownloadPackage(cfg, def, workDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	extractDir := filepath.Join(workDir, "extracted")
	if err := fetcher.ExtractZip(zipPath, extractDir); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ops, err := flows.ParseOperations(extractDir, def.Name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if len(ops) == 0 {
		fmt.Println("No operations found.")
		return
	}

	files, err := stubgen.Generate(def.Name, ops, stubgen.Options{
		Language: lang,
		Version:  def.Version,
	})
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
