package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/olgasafonova/mediawiki-mcp-server/wiki"
)

func newClient() (*wiki.Client, error) {
	config, err := wiki.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return wiki.NewClient(config, wiki.WithLogger(logger))
}

// timeTwice runs fn cold and then again against the memo cache
func timeTwice(label string, fn func() error) {
	fmt.Printf("%s:\n", label)

	start := time.Now()
	if err := fn(); err != nil {
		fmt.Printf("   Error: %v\n", err)
		return
	}
	firstCall := time.Since(start)
	fmt.Printf("   First call (network):  %v\n", firstCall)

	start = time.Now()
	_ = fn()
	secondCall := time.Since(start)
	fmt.Printf("   Second call (cached):  %v\n", secondCall)
	if secondCall > 0 {
		fmt.Printf("   Speedup: %.0fx faster\n", float64(firstCall)/float64(secondCall))
	}
	fmt.Println()
}

// measureCachePerformance compares cold and memoized search and summary calls
func measureCachePerformance(ctx context.Context, client *wiki.Client, query, title string) {
	fmt.Println("=== Cache Performance Test ===")
	fmt.Println()

	timeTwice(fmt.Sprintf("1. Search %q", query), func() error {
		_, err := client.Search(ctx, query, 10, false)
		return err
	})

	timeTwice(fmt.Sprintf("2. Summary %q", title), func() error {
		_, err := client.Summary(ctx, title, wiki.DefaultSummaryOptions())
		return err
	})

	fmt.Printf("Memo cache entries: %d\n\n", client.CacheLen())
}

// measureCategoryTree times a depth-limited tree build
func measureCategoryTree(ctx context.Context, client *wiki.Client, category string, depth int) {
	fmt.Println("=== Category Tree Performance ===")
	fmt.Println()

	fmt.Printf("3. CategoryTree %q (depth %d):\n", category, depth)
	start := time.Now()
	tree, err := client.CategoryTree(ctx, []string{category}, wiki.WithMaxDepth(depth))
	if err != nil {
		fmt.Printf("   Error: %v\n", err)
		return
	}
	elapsed := time.Since(start)

	nodes, links := 0, 0
	for _, node := range tree {
		n, l := countTree(node)
		nodes += n
		links += l
	}
	fmt.Printf("   Build time: %v\n", elapsed)
	fmt.Printf("   Categories expanded: %d\n", nodes)
	fmt.Printf("   Member pages found: %d\n", links)
	if nodes > 0 {
		fmt.Printf("   Average per category: %v\n", elapsed/time.Duration(nodes))
	}
	fmt.Println()
}

func countTree(node *wiki.CategoryTreeNode) (nodes, links int) {
	if node == nil {
		return 0, 0
	}
	nodes, links = 1, len(node.Links)
	for _, sub := range node.SubCategories {
		n, l := countTree(sub)
		nodes += n
		links += l
	}
	return nodes, links
}

func main() {
	query := flag.String("query", "golang", "search query to time")
	title := flag.String("title", "Go (programming language)", "page to summarize")
	category := flag.String("category", "Programming languages", "root category for the tree")
	depth := flag.Int("depth", 2, "category tree depth")
	flag.Parse()

	fmt.Println("MediaWiki MCP Server - Performance Measurements")
	fmt.Println("================================================")
	fmt.Println()

	client, err := newClient()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wiki: %s\n\n", client.APIURL())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	measureCachePerformance(ctx, client, *query, *title)
	measureCategoryTree(ctx, client, *category, *depth)

	fmt.Println("=== Summary ===")
	fmt.Println()
	fmt.Println("Key points:")
	fmt.Println("• Memoization: repeated calls with equal arguments skip the network entirely")
	fmt.Println("• Category trees: each category costs several requests, so depth dominates build time")
	fmt.Println("• Retries: failed category requests back off before retrying, which shows up in slow builds")
}
