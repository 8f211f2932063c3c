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
	"sort"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/strongcodr/lowcodefusion/lcf/fetcher"
)

var operationsCmd = &cobra.Command{
	Use:     "operations <integration>",
	Aliases: []string{"ops"},
	Short:   "List the operations of an integration",
	Long:    `List the operations parsed from the latest published package of an integration.`,
	Args:    cobra.ExactArgs(1),
	Run:     runOperations,
}

func init() {
	rootCmd.AddCommand(operationsCmd)
}

func runOperations(cmd *cobra.Command, args []string) {
	cfg, err := fetcherConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	resp, err := fetcher.ListOperations(cfg, args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if len(resp.Operations) == 0 {
		fmt.Println("No operations found.")
		return
	}

	ops := resp.Operations

	// Sort by module path then name for stable output
	sort.Slice(ops, func(i, j int) bool {
		if ops[i].ModulePath != ops[j].ModulePath {
			return ops[i].ModulePath < ops[j].ModulePath
		}
		return ops[i].Name < ops[j].Name
	})

	tableData := pterm.TableData{
		{"OPERATION", "MODULE", "PARAMETERS", "DESCRIPTION"},
	}

	for _, op := range ops {
		params := make([]string, 0, len(op.Parameters))
		for _, p := range op.Parameters {
			params = append(params, p.Name)
		}
		tableData = append(tableData, []string{
			op.Name,
			op.ModulePath,
			strings.Join(params, ","),
			op.Description,
		})
	}

	pterm.DefaultTable.WithHasHeader().WithLeftAlignment().WithData(tableData).Render()
}
