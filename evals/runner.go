// Package evals checks how well a model picks MediaWiki tools and fills their
// arguments from natural language requests. Suites are JSON files shipped
// with the package; a ToolSelector (an LLM or a mock) is scored against them.
package evals

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
)

// Suite file names
const (
	ToolSelectionFile  = "tool_selection.json"
	ConfusionPairsFile = "confusion_pairs.json"
	ArgumentsFile      = "argument_correctness.json"
)

//go:embed tool_selection.json confusion_pairs.json argument_correctness.json
var embedded embed.FS

// ToolSelectionTest is one request and the tool it should trigger
type ToolSelectionTest struct {
	ID           string         `json:"id"`
	Category     string         `json:"category"`
	Input        string         `json:"input"`
	ExpectedTool string         `json:"expected_tool"`
	ExpectedArgs map[string]any `json:"expected_args"`
	NotTools     []string       `json:"not_tools"`
}

// ToolSelectionSuite groups tool selection tests
type ToolSelectionSuite struct {
	Name        string              `json:"name"`
	Version     string              `json:"version"`
	Description string              `json:"description"`
	Tests       []ToolSelectionTest `json:"tests"`
}

// ConfusionPairTest is one request that separates two similar tools
type ConfusionPairTest struct {
	Input    string `json:"input"`
	Expected string `json:"expected"`
	Reason   string `json:"reason"`
}

// ConfusionPair is a set of tools models tend to mix up
type ConfusionPair struct {
	ID             string              `json:"id"`
	Tools          []string            `json:"tools"`
	Disambiguation string              `json:"disambiguation"`
	Tests          []ConfusionPairTest `json:"tests"`
}

// ConfusionPairSuite groups confusion pairs
type ConfusionPairSuite struct {
	Name        string          `json:"name"`
	Version     string          `json:"version"`
	Description string          `json:"description"`
	Pairs       []ConfusionPair `json:"pairs"`
}

// ArgumentTest checks the arguments extracted for a request
type ArgumentTest struct {
	ID            string         `json:"id"`
	Tool          string         `json:"tool"`
	Input         string         `json:"input"`
	RequiredArgs  []string       `json:"required_args"`
	ExpectedArgs  map[string]any `json:"expected_args"`
	ForbiddenArgs []string       `json:"forbidden_args"`
	ArgNotes      string         `json:"arg_notes,omitempty"`
}

// ValidationRules documents the argument conventions the suite assumes
type ValidationRules struct {
	TitleFormat     string `json:"title_format"`
	CategoryFormat  string `json:"category_format"`
	LimitHandling   string `json:"limit_handling"`
	BooleanHandling string `json:"boolean_handling"`
	LinkKinds       string `json:"link_kinds"`
}

// ArgumentSuite groups argument tests
type ArgumentSuite struct {
	Name            string          `json:"name"`
	Version         string          `json:"version"`
	Description     string          `json:"description"`
	Tests           []ArgumentTest  `json:"tests"`
	ValidationRules ValidationRules `json:"validation_rules"`
}

// Suites holds every loaded suite
type Suites struct {
	ToolSelection  *ToolSelectionSuite
	ConfusionPairs *ConfusionPairSuite
	Arguments      *ArgumentSuite
}

// TotalTests counts the cases across all suites
func (s *Suites) TotalTests() int {
	n := len(s.ToolSelection.Tests) + len(s.Arguments.Tests)
	for _, pair := range s.ConfusionPairs.Pairs {
		n += len(pair.Tests)
	}
	return n
}

// ReferencedTools lists every tool name the suites mention, sorted
func (s *Suites) ReferencedTools() []string {
	seen := make(map[string]bool)
	for _, test := range s.ToolSelection.Tests {
		seen[test.ExpectedTool] = true
		for _, tool := range test.NotTools {
			seen[tool] = true
		}
	}
	for _, pair := range s.ConfusionPairs.Pairs {
		for _, tool := range pair.Tools {
			seen[tool] = true
		}
		for _, test := range pair.Tests {
			seen[test.Expected] = true
		}
	}
	for _, test := range s.Arguments.Tests {
		seen[test.Tool] = true
	}
	return sortedKeys(seen)
}

// CheckCoverage compares the suites with the registered tool names. It reports
// tools the suites reference that are not registered, and registered tools
// without a tool selection test.
func (s *Suites) CheckCoverage(registered []string) []string {
	known := make(map[string]bool, len(registered))
	for _, name := range registered {
		known[name] = true
	}

	var problems []string
	for _, tool := range s.ReferencedTools() {
		if !known[tool] {
			problems = append(problems, fmt.Sprintf("unknown tool %s", tool))
		}
	}

	tested := make(map[string]bool)
	for _, test := range s.ToolSelection.Tests {
		tested[test.ExpectedTool] = true
	}
	for _, name := range registered {
		if !tested[name] {
			problems = append(problems, fmt.Sprintf("no tool selection test for %s", name))
		}
	}
	return problems
}

// LoadToolSelectionSuite reads a tool selection suite from a JSON file
func LoadToolSelectionSuite(path string) (*ToolSelectionSuite, error) {
	return loadFile[ToolSelectionSuite](path)
}

// LoadConfusionPairSuite reads a confusion pair suite from a JSON file
func LoadConfusionPairSuite(path string) (*ConfusionPairSuite, error) {
	return loadFile[ConfusionPairSuite](path)
}

// LoadArgumentSuite reads an argument suite from a JSON file
func LoadArgumentSuite(path string) (*ArgumentSuite, error) {
	return loadFile[ArgumentSuite](path)
}

// LoadAllEvals reads every suite from dir
func LoadAllEvals(dir string) (*Suites, error) {
	return loadAll(os.DirFS(dir))
}

// LoadEmbedded returns the suites compiled into the package
func LoadEmbedded() (*Suites, error) {
	return loadAll(embedded)
}

func loadAll(fsys fs.FS) (*Suites, error) {
	toolSelection, err := loadFS[ToolSelectionSuite](fsys, ToolSelectionFile)
	if err != nil {
		return nil, fmt.Errorf("loading tool selection: %w", err)
	}
	confusionPairs, err := loadFS[ConfusionPairSuite](fsys, ConfusionPairsFile)
	if err != nil {
		return nil, fmt.Errorf("loading confusion pairs: %w", err)
	}
	arguments, err := loadFS[ArgumentSuite](fsys, ArgumentsFile)
	if err != nil {
		return nil, fmt.Errorf("loading arguments: %w", err)
	}
	return &Suites{ToolSelection: toolSelection, ConfusionPairs: confusionPairs, Arguments: arguments}, nil
}

func loadFile[T any](path string) (*T, error) {
	return loadFS[T](os.DirFS(filepath.Dir(path)), filepath.Base(path))
}

func loadFS[T any](fsys fs.FS, name string) (*T, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	var suite T
	if err := json.Unmarshal(data, &suite); err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}
	return &suite, nil
}

// ToolSelector is implemented by an LLM harness or a mock
type ToolSelector interface {
	// SelectTool returns the tool name and arguments chosen for input
	SelectTool(input string) (toolName string, args map[string]any, err error)
}

// ToolSelectionResult is the outcome of one tool selection test
type ToolSelectionResult struct {
	TestID       string
	Input        string
	ExpectedTool string
	ActualTool   string
	Passed       bool
	Errors       []string
}

// ConfusionPairResult is the outcome of one confusion pair test
type ConfusionPairResult struct {
	PairID       string
	TestInput    string
	ExpectedTool string
	ActualTool   string
	Reason       string
	Passed       bool
}

// ArgumentResult is the outcome of one argument test
type ArgumentResult struct {
	TestID       string
	Tool         string
	Input        string
	Passed       bool
	MissingArgs  []string
	WrongArgs    map[string]string // arg -> "expected X, got Y"
	ForbiddenHit []string
}

// EvalMetrics aggregates a run
type EvalMetrics struct {
	TotalTests    int
	PassedTests   int
	FailedTests   int
	Accuracy      float64
	ByCategory    map[string]*CategoryMetrics
	ByTool        map[string]*ToolMetrics
	FailedDetails []string
}

// CategoryMetrics counts results per category
type CategoryMetrics struct {
	Total  int
	Passed int
	Failed int
}

// ToolMetrics counts how a tool was expected and selected
type ToolMetrics struct {
	ExpectedCount  int
	SelectedCount  int
	CorrectCount   int
	FalsePositives int // selected when another tool was expected
	FalseNegatives int // expected but another tool was selected
}

func newEvalMetrics() *EvalMetrics {
	return &EvalMetrics{
		ByCategory: make(map[string]*CategoryMetrics),
		ByTool:     make(map[string]*ToolMetrics),
	}
}

func (m *EvalMetrics) category(name string) *CategoryMetrics {
	if m.ByCategory[name] == nil {
		m.ByCategory[name] = &CategoryMetrics{}
	}
	return m.ByCategory[name]
}

func (m *EvalMetrics) tool(name string) *ToolMetrics {
	if m.ByTool[name] == nil {
		m.ByTool[name] = &ToolMetrics{}
	}
	return m.ByTool[name]
}

// selection records which tool was picked when expected was wanted
func (m *EvalMetrics) selection(expected, actual string) {
	m.tool(expected).ExpectedCount++
	m.tool(actual).SelectedCount++
	if expected == actual {
		m.tool(expected).CorrectCount++
		return
	}
	m.tool(expected).FalseNegatives++
	m.tool(actual).FalsePositives++
}

// outcome records a pass or failure under category
func (m *EvalMetrics) outcome(category string, passed bool, detail string) {
	m.TotalTests++
	c := m.category(category)
	c.Total++
	if passed {
		m.PassedTests++
		c.Passed++
		return
	}
	m.FailedTests++
	c.Failed++
	m.FailedDetails = append(m.FailedDetails, detail)
}

func (m *EvalMetrics) finish() {
	if m.TotalTests > 0 {
		m.Accuracy = float64(m.PassedTests) / float64(m.TotalTests)
	}
}

// EvaluateToolSelection scores selector against the tool selection suite
func EvaluateToolSelection(suite *ToolSelectionSuite, selector ToolSelector) (*EvalMetrics, []ToolSelectionResult) {
	metrics := newEvalMetrics()
	var results []ToolSelectionResult

	for _, test := range suite.Tests {
		actualTool, actualArgs, err := selector.SelectTool(test.Input)
		result := ToolSelectionResult{
			TestID:       test.ID,
			Input:        test.Input,
			ExpectedTool: test.ExpectedTool,
			ActualTool:   actualTool,
		}
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("selector error: %v", err))
		}
		metrics.selection(test.ExpectedTool, actualTool)
		if actualTool != test.ExpectedTool {
			result.Errors = append(result.Errors,
				fmt.Sprintf("wrong tool: expected %s, got %s", test.ExpectedTool, actualTool))
		}
		for _, forbidden := range test.NotTools {
			if actualTool == forbidden {
				result.Errors = append(result.Errors, fmt.Sprintf("selected forbidden tool: %s", forbidden))
			}
		}
		for _, key := range sortedKeys(test.ExpectedArgs) {
			expected := test.ExpectedArgs[key]
			actual, ok := actualArgs[key]
			switch {
			case !ok:
				result.Errors = append(result.Errors, fmt.Sprintf("missing arg %s (expected %v)", key, expected))
			case !compareValues(expected, actual):
				result.Errors = append(result.Errors,
					fmt.Sprintf("wrong arg %s: expected %v, got %v", key, expected, actual))
			}
		}

		result.Passed = len(result.Errors) == 0
		metrics.outcome(test.Category, result.Passed,
			fmt.Sprintf("[%s] %s: %s", test.ID, test.Input, strings.Join(result.Errors, "; ")))
		results = append(results, result)
	}

	metrics.finish()
	return metrics, results
}

// EvaluateConfusionPairs scores selector against each confusion pair, using the pair id as category
func EvaluateConfusionPairs(suite *ConfusionPairSuite, selector ToolSelector) (*EvalMetrics, []ConfusionPairResult) {
	metrics := newEvalMetrics()
	var results []ConfusionPairResult

	for _, pair := range suite.Pairs {
		for _, test := range pair.Tests {
			actualTool, _, err := selector.SelectTool(test.Input)
			result := ConfusionPairResult{
				PairID:       pair.ID,
				TestInput:    test.Input,
				ExpectedTool: test.Expected,
				ActualTool:   actualTool,
				Reason:       test.Reason,
				Passed:       err == nil && actualTool == test.Expected,
			}
			metrics.selection(test.Expected, actualTool)
			metrics.outcome(pair.ID, result.Passed,
				fmt.Sprintf("[%s] %s: expected %s, got %s (%s)",
					pair.ID, test.Input, test.Expected, actualTool, test.Reason))
			results = append(results, result)
		}
	}

	metrics.finish()
	return metrics, results
}

// EvaluateArguments scores the arguments selector extracts, using the tool name as category
func EvaluateArguments(suite *ArgumentSuite, selector ToolSelector) (*EvalMetrics, []ArgumentResult) {
	metrics := newEvalMetrics()
	var results []ArgumentResult

	for _, test := range suite.Tests {
		result := ArgumentResult{
			TestID:    test.ID,
			Tool:      test.Tool,
			Input:     test.Input,
			WrongArgs: make(map[string]string),
		}

		var details []string
		actualTool, actualArgs, err := selector.SelectTool(test.Input)
		switch {
		case err != nil:
			details = append(details, fmt.Sprintf("selector error: %v", err))
		case actualTool != test.Tool:
			details = append(details, fmt.Sprintf("wrong tool: expected %s, got %s", test.Tool, actualTool))
		default:
			result.MissingArgs, result.ForbiddenHit = checkArgs(test, actualArgs, result.WrongArgs)
			if len(result.MissingArgs) > 0 {
				details = append(details, fmt.Sprintf("missing: %v", result.MissingArgs))
			}
			for _, k := range sortedKeys(result.WrongArgs) {
				details = append(details, fmt.Sprintf("%s: %s", k, result.WrongArgs[k]))
			}
			if len(result.ForbiddenHit) > 0 {
				details = append(details, fmt.Sprintf("forbidden: %v", result.ForbiddenHit))
			}
		}

		result.Passed = len(details) == 0
		metrics.outcome(test.Tool, result.Passed,
			fmt.Sprintf("[%s] %s: %s", test.ID, test.Input, strings.Join(details, "; ")))
		results = append(results, result)
	}

	metrics.finish()
	return metrics, results
}

func checkArgs(test ArgumentTest, args map[string]any, wrong map[string]string) (missing, forbidden []string) {
	for _, name := range test.RequiredArgs {
		if _, ok := args[name]; !ok {
			missing = append(missing, name)
		}
	}
	for _, key := range sortedKeys(test.ExpectedArgs) {
		expected := test.ExpectedArgs[key]
		actual, ok := args[key]
		switch {
		case !ok:
			if !contains(missing, key) {
				missing = append(missing, key)
			}
		case !compareValues(expected, actual):
			wrong[key] = fmt.Sprintf("expected %v, got %v", expected, actual)
		}
	}
	for _, name := range test.ForbiddenArgs {
		if _, ok := args[name]; ok {
			forbidden = append(forbidden, name)
		}
	}
	return missing, forbidden
}

// compareValues compares loosely typed values. JSON decodes numbers as
// float64, so integers compare by value; titles compare case-sensitively.
func compareValues(expected, actual any) bool {
	if expected == nil || actual == nil {
		return expected == nil && actual == nil
	}

	ev := reflect.ValueOf(expected)
	av := reflect.ValueOf(actual)

	if ef, ok := number(ev); ok {
		af, ok := number(av)
		return ok && ef == af
	}

	if ev.Kind() == reflect.Slice && av.Kind() == reflect.Slice {
		if ev.Len() != av.Len() {
			return false
		}
		for i := 0; i < ev.Len(); i++ {
			if !compareValues(ev.Index(i).Interface(), av.Index(i).Interface()) {
				return false
			}
		}
		return true
	}

	return reflect.DeepEqual(expected, actual)
}

func number(v reflect.Value) (float64, bool) {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), true
	case reflect.Float32, reflect.Float64:
		return v.Float(), true
	}
	return 0, false
}

// FormatMetrics renders metrics as a short report
func FormatMetrics(metrics *EvalMetrics, suiteName string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "\n=== %s ===\n", suiteName)
	fmt.Fprintf(&b, "Total: %d tests\n", metrics.TotalTests)
	fmt.Fprintf(&b, "Passed: %d (%.1f%%)\n", metrics.PassedTests, metrics.Accuracy*100)
	fmt.Fprintf(&b, "Failed: %d\n", metrics.FailedTests)

	if len(metrics.ByCategory) > 0 {
		b.WriteString("\nBy Category:\n")
		for _, name := range sortedKeys(metrics.ByCategory) {
			m := metrics.ByCategory[name]
			if m.Total > 0 {
				fmt.Fprintf(&b, "  %-30s: %d/%d (%.0f%%)\n", name, m.Passed, m.Total,
					float64(m.Passed)/float64(m.Total)*100)
			}
		}
	}

	const maxDetails = 10
	if n := len(metrics.FailedDetails); n > 0 {
		shown := metrics.FailedDetails
		if n > maxDetails {
			fmt.Fprintf(&b, "\nFailed Tests (showing first %d of %d):\n", maxDetails, n)
			shown = shown[:maxDetails]
		} else {
			b.WriteString("\nFailed Tests:\n")
		}
		for _, detail := range shown {
			fmt.Fprintf(&b, "  - %s\n", detail)
		}
	}

	return b.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
