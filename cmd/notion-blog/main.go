package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/AureliusIvan/notion-blog/internal/blog"
	"github.com/AureliusIvan/notion-blog/internal/config"
	"github.com/AureliusIvan/notion-blog/internal/feed"
	"github.com/AureliusIvan/notion-blog/internal/notion"
	"github.com/AureliusIvan/notion-blog/internal/search"
	"github.com/AureliusIvan/notion-blog/internal/storage"
	"github.com/AureliusIvan/notion-blog/internal/sync"
	"github.com/AureliusIvan/notion-blog/internal/web"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "serve":
		serveFlags := flag.NewFlagSet("serve", flag.ExitOnError)
		host := serveFlags.String("host", "localhost", "Host to bind to")
		port := serveFlags.String("port", "7393", "Port to listen on")
		serveFlags.Parse(args)
		runServe(*host, *port)
	case "sync":
		runSync()
	case "feed":
		feedFlags := flag.NewFlagSet("feed", flag.ExitOnError)
		out := feedFlags.String("out", "./public/atom", "Output path for the Atom feed")
		feedFlags.Parse(args)
		runFeed(*out)
	case "search":
		if len(args) < 1 {
			fmt.Println("Error: search query required")
			fmt.Println("Usage: notion-blog search <query>")
			os.Exit(1)
		}
		runSearch(strings.Join(args, " "))
	case "prerender":
		runPrerender()
	case "stats":
		runStats()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("notion-blog - Notion-backed blog content pipeline")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  notion-blog <command> [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve [flags]      Start the HTTP server (asset proxy, search, atom)")
	fmt.Println("  sync               Sync published posts into local storage and search")
	fmt.Println("  feed [flags]       Generate the Atom feed file")
	fmt.Println("  search <query>     Search synced posts")
	fmt.Println("  prerender          Print the link paths to prerender")
	fmt.Println("  stats              Show storage and index statistics")
	fmt.Println()
	fmt.Println("Serve Flags:")
	fmt.Println("  -host=<host>       Host to bind to (default: localhost)")
	fmt.Println("  -port=<port>       Port to listen on (default: 7393)")
	fmt.Println()
	fmt.Println("Feed Flags:")
	fmt.Println("  -out=<path>        Output path (default: ./public/atom)")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  NOTION_TOKEN       Notion token_v2 cookie value (required)")
	fmt.Println("  BLOG_INDEX_ID      Root blog collection id (required)")
}

// mustLoad halts with a non-zero exit when required configuration is absent
func mustLoad() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	return cfg
}

func buildIndex(cfg *config.Config) (*blog.Index, *notion.Client) {
	client := notion.NewClientWithEndpoint(cfg.Token, cfg.APIEndpoint)
	index := blog.NewIndex(client, blog.Options{
		CollectionID: cfg.CollectionID,
		ViewID:       cfg.ViewID,
		IndexTTL:     cfg.IndexTTL,
		PageTTL:      cfg.PageTTL,
	})
	return index, client
}

func runServe(host, port string) {
	cfg := mustLoad()
	index, client := buildIndex(cfg)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		log.Fatalf("Error creating data directory: %v", err)
	}

	db, err := storage.Open(cfg.DBPath())
	if err != nil {
		log.Fatalf("Error opening database: %v", err)
	}
	defer db.Close()

	idx, err := search.Open(cfg.IndexPath())
	if err != nil {
		log.Fatalf("Error opening search index: %v", err)
	}
	defer idx.Close()

	trees := index.TreeBuilder()
	feeds := feed.NewGenerator(index, trees, nil, false)

	server := web.NewServer(db, idx, client, feeds)

	addr := fmt.Sprintf("%s:%s", host, port)
	log.Printf("Server running at http://%s", addr)

	if err := http.ListenAndServe(addr, server.Handler()); err != nil {
		log.Fatalf("Error starting server: %v", err)
	}
}

func runSync() {
	cfg := mustLoad()
	index, _ := buildIndex(cfg)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		log.Fatalf("Error creating data directory: %v", err)
	}

	db, err := storage.Open(cfg.DBPath())
	if err != nil {
		log.Fatalf("Error opening database: %v", err)
	}
	defer db.Close()

	idx, err := search.Open(cfg.IndexPath())
	if err != nil {
		log.Fatalf("Error opening search index: %v", err)
	}
	defer idx.Close()

	worker := sync.NewWorker(index, index.TreeBuilder(), db, idx)

	stats, err := worker.Sync(context.Background())
	if err != nil {
		log.Fatalf("Error syncing: %v", err)
	}

	fmt.Println()
	fmt.Println("=== Sync Complete ===")
	fmt.Printf("Total posts:   %d\n", stats.TotalPosts)
	fmt.Printf("New:           %d\n", stats.NewPosts)
	fmt.Printf("Updated:       %d\n", stats.UpdatedPosts)
	fmt.Printf("Skipped:       %d\n", stats.SkippedPosts)
	fmt.Printf("Errors:        %d\n", stats.Errors)
	fmt.Printf("Duration:      %v\n", stats.Duration)
}

func runFeed(outPath string) {
	cfg := mustLoad()
	index, _ := buildIndex(cfg)

	gen := feed.NewGenerator(index, index.TreeBuilder(), nil, true)

	xml, err := gen.Generate(context.Background())
	if err != nil {
		log.Fatalf("Error generating feed: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		log.Fatalf("Error creating output directory: %v", err)
	}
	if err := os.WriteFile(outPath, []byte(xml), 0644); err != nil {
		log.Fatalf("Error writing feed: %v", err)
	}

	log.Printf("Atom feed generated at %s", outPath)
}

func runSearch(query string) {
	cfg := mustLoad()

	idx, err := search.Open(cfg.IndexPath())
	if err != nil {
		log.Fatalf("Error opening search index: %v", err)
	}
	defer idx.Close()

	results, err := idx.Search(query, 10)
	if err != nil {
		log.Fatalf("Error searching: %v", err)
	}

	if len(results) == 0 {
		fmt.Println("No results found")
		return
	}

	fmt.Printf("\nFound %d results:\n\n", len(results))
	for i, result := range results {
		fmt.Printf("%d. %s\n", i+1, result.Title)
		if result.Authors != "" {
			fmt.Printf("   Authors: %s\n", result.Authors)
		}
		fmt.Printf("   Link: %s\n", result.Link)
		fmt.Printf("   Score: %.3f\n", result.Score)

		if snippets, ok := result.Fragments["Body"]; ok && len(snippets) > 0 {
			fmt.Printf("   Preview: %s\n", snippets[0])
		}
		fmt.Println()
	}
}

func runPrerender() {
	cfg := mustLoad()
	index, _ := buildIndex(cfg)

	paths, err := index.SlugsForPrerender(context.Background())
	if err != nil {
		log.Fatalf("Error listing slugs: %v", err)
	}

	for _, path := range paths {
		fmt.Println(path)
	}
}

func runStats() {
	cfg := mustLoad()

	db, err := storage.Open(cfg.DBPath())
	if err != nil {
		log.Fatalf("Error opening database: %v", err)
	}
	defer db.Close()

	idx, err := search.Open(cfg.IndexPath())
	if err != nil {
		log.Fatalf("Error opening search index: %v", err)
	}
	defer idx.Close()

	dbCount, err := db.Count()
	if err != nil {
		log.Fatalf("Error getting database count: %v", err)
	}
	indexCount, err := idx.Count()
	if err != nil {
		log.Fatalf("Error getting index count: %v", err)
	}

	fmt.Println("=== Index Statistics ===")
	fmt.Printf("Posts in database: %d\n", dbCount)
	fmt.Printf("Posts in index:    %d\n", indexCount)
}
