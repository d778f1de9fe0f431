// =============================================================================
// Line Item Pivot - Main Entry Point
// =============================================================================
//
// USAGE:
//   pivot render      - Render every line item file in the input directory
//   pivot validate    - Check the report definitions
//   pivot preview     - Browse a rendered report in the terminal
//   pivot version     - Display the application version
//
// LAYOUT:
//   cmd/           : CLI command definitions (Cobra)
//   internal/      : Grouping, grid, layout, writers and the report pipeline
//   pkg/           : Shared file utilities
//   reports/       : Report definitions (YAML)
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/line-item-pivot/cmd"
)

func main() {
	cmd.Execute()
}
