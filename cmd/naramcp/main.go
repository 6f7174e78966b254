package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Datajang/narajangteo-mcp-server/internal/app"
)

const serverVersion = "1.0.0"

func main() {
	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// .env is a convenience for local runs; the real environment wins.
	_ = godotenv.Load()

	var (
		apiKey       string
		baseURL      string
		windowDays   int
		listingsFile string
		listen       string
		userAgent    string
		configPath   string
		verbose      bool
	)

	flag.StringVar(&apiKey, "api.key", "", "data.go.kr service key (NARA_API_KEY)")
	flag.StringVar(&baseURL, "api.base", "", "Listing API base URL (default is the public endpoint)")
	flag.IntVar(&windowDays, "api.windowDays", 0, "Search lookback window in days (default 7)")
	flag.StringVar(&listingsFile, "listings.file", "", "Path to a JSON file with canned listings; replaces the live API")
	flag.StringVar(&listen, "listen", "", "HTTP listen address for streamable MCP, e.g. :8000; empty serves stdio")
	flag.StringVar(&userAgent, "fetch.ua", "", "Custom User-Agent for attachment downloads")
	flag.StringVar(&configPath, "config", "", "Path to a YAML or JSON config file")
	flag.BoolVar(&verbose, "v", false, "Verbose logging")
	flag.Parse()

	cfg := app.Config{
		APIKey:       apiKey,
		BaseURL:      baseURL,
		WindowDays:   windowDays,
		ListingsFile: listingsFile,
		Listen:       listen,
		UserAgent:    userAgent,
		Verbose:      verbose,
	}
	// Precedence: flags, then environment, then config file.
	app.ApplyEnvToConfig(&cfg)
	if configPath != "" {
		fc, err := app.LoadConfigFile(configPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", configPath).Msg("load config file")
		}
		app.ApplyFileConfig(&cfg, fc)
	}

	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if err := run(cfg); err != nil {
		log.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}

func run(cfg app.Config) error {
	a, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}

	srv := mcp.NewServer(&mcp.Implementation{Name: "nara-mcp-server", Version: serverVersion}, nil)
	app.RegisterTools(srv, a)

	if cfg.Listen != "" {
		handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return srv }, nil)
		log.Info().Str("listen", cfg.Listen).Msg("serving MCP over HTTP")
		return http.ListenAndServe(cfg.Listen, handler)
	}

	log.Info().Msg("serving MCP over stdio")
	return srv.Run(context.Background(), &mcp.StdioTransport{})
}
