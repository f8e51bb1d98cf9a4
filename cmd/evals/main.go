// Command evals reports on the tool selection evaluation suites and checks
// them against the registered MediaWiki tools.
//
// Usage:
//
//	go run ./cmd/evals -suite all
//	go run ./cmd/evals -dir ./evals -suite confusion_pairs -verbose
//
// Without -dir the suites compiled into the evals package are used. To score
// a model, implement evals.ToolSelector and call the Evaluate functions.
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/olgasafonova/mediawiki-mcp-server/evals"
	"github.com/olgasafonova/mediawiki-mcp-server/tools"
)

func main() {
	dir := flag.String("dir", "", "Directory containing eval JSON files (default: embedded suites)")
	suite := flag.String("suite", "all", "Suite to show: tool_selection, confusion_pairs, arguments, or all")
	verbose := flag.Bool("verbose", false, "Show detailed test information")
	flag.Parse()

	fmt.Println("MediaWiki MCP Server - Evaluation Framework")
	fmt.Println("============================================")
	fmt.Println()

	suites, err := load(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading evals: %v\n", err)
		os.Exit(1)
	}

	switch *suite {
	case "tool_selection":
		showToolSelection(suites.ToolSelection, *verbose)
	case "confusion_pairs":
		showConfusionPairs(suites.ConfusionPairs, *verbose)
	case "arguments":
		showArguments(suites.Arguments, *verbose)
	case "all":
		showSummary(suites, *verbose)
	default:
		fmt.Fprintf(os.Stderr, "Unknown suite: %s\n", *suite)
		os.Exit(1)
	}

	if !checkCoverage(suites) {
		os.Exit(1)
	}
}

func load(dir string) (*evals.Suites, error) {
	if dir == "" {
		return evals.LoadEmbedded()
	}
	return evals.LoadAllEvals(dir)
}

func showToolSelection(suite *evals.ToolSelectionSuite, verbose bool) {
	fmt.Printf("Tool Selection Suite: %s\n", suite.Name)
	fmt.Printf("Version: %s\n", suite.Version)
	fmt.Printf("Description: %s\n", suite.Description)
	fmt.Printf("Total Tests: %d\n", len(suite.Tests))
	fmt.Println()

	categories := make(map[string]int)
	byTool := make(map[string]int)
	for _, test := range suite.Tests {
		categories[test.Category]++
		byTool[test.ExpectedTool]++
	}
	printCounts("Tests by Category", categories, 15)
	printCounts("Tests by Tool", byTool, 40)

	if verbose {
		fmt.Println("Test Cases:")
		for _, test := range suite.Tests {
			fmt.Printf("  [%s] %s\n", test.ID, test.Input)
			fmt.Printf("    → %s %v\n", test.ExpectedTool, test.ExpectedArgs)
			if len(test.NotTools) > 0 {
				fmt.Printf("    ✗ %v\n", test.NotTools)
			}
		}
		fmt.Println()
	}
}

func showConfusionPairs(suite *evals.ConfusionPairSuite, verbose bool) {
	fmt.Printf("Confusion Pairs Suite: %s\n", suite.Name)
	fmt.Printf("Version: %s\n", suite.Version)
	fmt.Printf("Description: %s\n", suite.Description)
	fmt.Printf("Total Pairs: %d\n", len(suite.Pairs))
	fmt.Println()

	for _, pair := range suite.Pairs {
		fmt.Printf("  %s:\n", pair.ID)
		fmt.Printf("    Tools: %v\n", pair.Tools)
		fmt.Printf("    Rule: %s\n", pair.Disambiguation)
		fmt.Printf("    Tests: %d\n", len(pair.Tests))
		if verbose {
			for _, test := range pair.Tests {
				fmt.Printf("      %q\n", test.Input)
				fmt.Printf("        → %s (%s)\n", test.Expected, test.Reason)
			}
		}
	}
	fmt.Println()
}

func showArguments(suite *evals.ArgumentSuite, verbose bool) {
	fmt.Printf("Argument Suite: %s\n", suite.Name)
	fmt.Printf("Version: %s\n", suite.Version)
	fmt.Printf("Description: %s\n", suite.Description)
	fmt.Printf("Total Tests: %d\n", len(suite.Tests))
	fmt.Println()

	byTool := make(map[string]int)
	for _, test := range suite.Tests {
		byTool[test.Tool]++
	}
	printCounts("Tests by Tool", byTool, 40)

	rules := suite.ValidationRules
	fmt.Println("Validation Rules:")
	fmt.Printf("  Title Format: %s\n", rules.TitleFormat)
	fmt.Printf("  Category Format: %s\n", rules.CategoryFormat)
	fmt.Printf("  Limit Handling: %s\n", rules.LimitHandling)
	fmt.Printf("  Boolean Handling: %s\n", rules.BooleanHandling)
	fmt.Printf("  Link Kinds: %s\n", rules.LinkKinds)
	fmt.Println()

	if verbose {
		fmt.Println("Test Cases:")
		for _, test := range suite.Tests {
			fmt.Printf("  [%s] %s\n", test.ID, test.Input)
			fmt.Printf("    Tool: %s\n", test.Tool)
			fmt.Printf("    Required: %v\n", test.RequiredArgs)
			fmt.Printf("    Expected: %v\n", test.ExpectedArgs)
			if len(test.ForbiddenArgs) > 0 {
				fmt.Printf("    Forbidden: %v\n", test.ForbiddenArgs)
			}
			if test.ArgNotes != "" {
				fmt.Printf("    Notes: %s\n", test.ArgNotes)
			}
		}
		fmt.Println()
	}
}

func showSummary(suites *evals.Suites, verbose bool) {
	confusionTests := 0
	for _, pair := range suites.ConfusionPairs.Pairs {
		confusionTests += len(pair.Tests)
	}

	fmt.Println("Summary:")
	fmt.Println("--------")
	fmt.Printf("Tool Selection Tests:   %d\n", len(suites.ToolSelection.Tests))
	fmt.Printf("Confusion Pair Tests:   %d (across %d pairs)\n", confusionTests, len(suites.ConfusionPairs.Pairs))
	fmt.Printf("Argument Tests:         %d\n", len(suites.Arguments.Tests))
	fmt.Printf("──────────────────────────\n")
	fmt.Printf("Total Evaluation Tests: %d\n", suites.TotalTests())
	fmt.Println()

	referenced := suites.ReferencedTools()
	fmt.Printf("Tool Coverage: %d unique tools referenced\n", len(referenced))
	if verbose {
		for _, tool := range referenced {
			fmt.Printf("  ✓ %s\n", tool)
		}
	}
	fmt.Println()
}

// checkCoverage prints mismatches between the suites and the registered tools
func checkCoverage(suites *evals.Suites) bool {
	registered := make([]string, 0, len(tools.AllTools))
	for _, spec := range tools.AllTools {
		registered = append(registered, spec.Name)
	}

	problems := suites.CheckCoverage(registered)
	if len(problems) == 0 {
		fmt.Printf("All %d registered tools are covered.\n", len(registered))
		return true
	}
	fmt.Println("Coverage problems:")
	for _, p := range problems {
		fmt.Printf("  - %s\n", p)
	}
	return false
}

func printCounts(title string, counts map[string]int, width int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Printf("%s:\n", title)
	for _, k := range keys {
		fmt.Printf("  %-*s: %d\n", width, k, counts[k])
	}
	fmt.Println()
}
