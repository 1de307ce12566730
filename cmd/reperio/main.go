package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/reperio/internal/common"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	// Command-line flags
	configFiles  configPaths
	serverPort   = flag.Int("port", 0, "Server port (overrides config)")
	serverHost   = flag.String("host", "", "Server host (overrides config)")
	backendURL   = flag.String("backend", "", "Backend base URL (overrides config)")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")

	// search flags
	searchPrompt   = flag.String("prompt", "", "Search prompt (search mode)")
	searchSites    = flag.String("sites", "", "Comma-separated target sites (search mode)")
	searchMinPrice = flag.Float64("min-price", -1, "Minimum price filter")
	searchMaxPrice = flag.Float64("max-price", -1, "Maximum price filter")
	searchCategory = flag.String("category", "", "Category filter")
	searchMaterial = flag.String("material", "", "Material filter")
	searchSize     = flag.String("size", "", "Size filter")
	searchRating   = flag.Float64("min-rating", -1, "Minimum rating filter")
	sortField      = flag.String("sort", "", "Sort field (title, price, site, rating, reviews_count, confidence)")
	sortOrder      = flag.String("order", "asc", "Sort direction (asc or desc)")
	pageIndex      = flag.Int("page", 1, "Result page (1-based)")
	pageSize       = flag.Int("page-size", 0, "Result page size (overrides config)")

	// Global state
	config *common.Config
	logger arbor.ILogger
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: reperio <command> [flags]

Commands:
  search    Submit a search and stream its progress
  serve     Run the simulator backend
  version   Print version information

Flags:
`)
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if *showVersion || *showVersionV {
		printVersion()
		os.Exit(0)
	}

	command := flag.Arg(0)
	if command == "" {
		usage()
		os.Exit(1)
	}

	if command == "version" {
		printVersion()
		return
	}

	// Startup sequence (REQUIRED ORDER):
	// 1. Load config (defaults -> file1 -> file2 -> ... -> env)
	// 2. Apply CLI overrides (highest priority)
	// 3. Initialize logger
	// 4. Print banner

	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		if _, err := os.Stat("reperio.toml"); err == nil {
			configFiles = append(configFiles, "reperio.toml")
		} else if _, err := os.Stat("deployments/local/reperio.toml"); err == nil {
			configFiles = append(configFiles, "deployments/local/reperio.toml")
		}
	}

	var err error
	config, err = common.LoadFromFiles(configFiles...)
	if err != nil {
		// Config failed, so the configured logger does not exist yet
		common.GetLogger().Fatal().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}

	common.ApplyFlagOverrides(config, *serverPort, *serverHost)
	if *backendURL != "" {
		config.Backend.BaseURL = *backendURL
	}
	if *pageSize > 0 {
		config.Search.PageSize = *pageSize
	}

	logger = common.InitLogger(config)

	switch command {
	case "serve":
		common.PrintBanner(common.GetVersion())
		runServe()
	case "search":
		runSearch()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		usage()
		os.Exit(1)
	}
}
