package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/weighbridge/internal/metrics"
	"github.com/zombor/weighbridge/internal/scanning"
	"github.com/zombor/weighbridge/internal/ticket"
	"github.com/zombor/weighbridge/internal/vehicle"
	"github.com/zombor/weighbridge/internal/weighbridge"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("weighbridge")
	var (
		port          = fs.IntLong("port", 8080, "HTTP server port")
		dbPath        = fs.StringLong("db", "weighbridge.db", "Database file path")
		storagePath   = fs.StringLong("storage", "./documents", "Directory for uploaded source documents")
		catalogPath   = fs.StringLong("catalog", "", "Vehicle catalog YAML file (built-in catalog when empty)")
		timezone      = fs.StringLong("timezone", "", "IANA time zone tickets are issued in (system zone when empty)")
		scannerType   = fs.StringLong("scanner", "none", "Scanner for PDF/image documents: 'none', 'gemini' or 'ollama'")
		geminiKey     = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel   = fs.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name")
		ollamaURL     = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel   = fs.StringLong("ollama-model", "llava", "Ollama model name (e.g., llava, qwen2-vl)")
		authUser      = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass      = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		importDir     = fs.StringLong("import-dir", "", "Issue tickets for every XML file in this directory, print a summary and exit")
		importWorkers = fs.IntLong("import-workers", 4, "Documents processed in parallel by --import-dir")
		_             = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("WEIGHBRIDGE"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	location := time.Local
	if *timezone != "" {
		loc, err := time.LoadLocation(*timezone)
		if err != nil {
			slog.Error("Invalid time zone", "timezone", *timezone, "error", err)
			os.Exit(1)
		}
		location = loc
	}

	catalog, err := vehicle.LoadCatalog(*catalogPath)
	if err != nil {
		slog.Error("Failed to load vehicle catalog", "path", *catalogPath, "error", err)
		os.Exit(1)
	}
	slog.Info("Vehicle catalog loaded", "vehicles", len(catalog.All()))

	slog.Info("Initializing database...")
	db, err := weighbridge.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	var scanner scanning.Scanner
	switch *scannerType {
	case "none":
		slog.Info("No scanner configured, only XML documents will be read")
	case "gemini":
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			slog.Error("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing Gemini scanner...", "model", *geminiModel)
		gemini, err := scanning.NewGemini(apiKey, *geminiModel)
		if err != nil {
			slog.Error("Failed to initialize Gemini", "error", err)
			os.Exit(1)
		}
		scanner = gemini
	case "ollama":
		slog.Info("Initializing Ollama scanner...", "url", *ollamaURL, "model", *ollamaModel)
		ollama, err := scanning.NewOllama(*ollamaURL, *ollamaModel)
		if err != nil {
			slog.Error("Failed to initialize Ollama", "error", err)
			os.Exit(1)
		}
		scanner = ollama
	default:
		slog.Error("Invalid scanner type", "type", *scannerType, "valid", "none, gemini or ollama")
		os.Exit(1)
	}
	if scanner != nil {
		defer scanner.Close()
	}

	slog.Info("Initializing storage...")
	store, err := weighbridge.NewLocalStorage(*storagePath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	engine := ticket.NewEngine(ticket.WithLocation(location))
	service := weighbridge.NewService(db, store, catalog, engine, scanner, metrics.New())

	if *importDir != "" {
		code := runImport(service, *importDir, *importWorkers)
		// os.Exit skips deferred calls
		if scanner != nil {
			scanner.Close()
		}
		db.Close()
		os.Exit(code)
	}

	basicAuth := weighbridge.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	server := weighbridge.NewServer(service, basicAuth)

	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr), "timezone", location.String())
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}

// runImport processes a directory and prints the summary as JSON. The exit
// code is non-zero when any document failed.
func runImport(service *weighbridge.Service, dir string, workers int) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := service.ImportDirectory(ctx, dir, workers)
	if err != nil {
		slog.Error("Import failed", "dir", dir, "error", err)
		if summary == nil {
			return 1
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(summary); encErr != nil {
		slog.Error("Error encoding summary", "error", encErr)
		return 1
	}

	if err != nil || len(summary.Failures) > 0 {
		return 1
	}
	return 0
}
