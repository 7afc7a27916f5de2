package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	staticcache "github.com/always-cache/static-cache"
	"github.com/always-cache/static-cache/cache"
	contentsource "github.com/always-cache/static-cache/pkg/content-source"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// CLI flags
	configFilenameFlag string
	portFlag           int
	rootFlag           string
	filesFlag          string
	capacityFlag       int
	indexHintFlag      int
	sourceFlag         string
	dbFilenameFlag     string
	logFilenameFlag    string
	verbosityTraceFlag bool

	// this is set by goreleaser
	version string
)

func init() {
	flag.StringVar(&configFilenameFlag, "config", "", "Path to config file")
	flag.IntVar(&portFlag, "port", 3490, "Port to listen on")
	flag.StringVar(&rootFlag, "root", "./serverroot", "Directory to serve files from")
	flag.StringVar(&filesFlag, "files", "./serverfiles", "Directory holding the 404.html page")
	flag.IntVar(&capacityFlag, "capacity", 10, "Maximum number of cached files")
	flag.IntVar(&indexHintFlag, "hash-size", 0, "Cache index size hint (0 for capacity)")
	flag.StringVar(&sourceFlag, "source", "dir", "Content source to use (dir or sqlite)")
	flag.StringVar(&dbFilenameFlag, "db", "content.db", "Content DB file name for the sqlite source (use 'memory' for in-memory db)")
	flag.StringVar(&logFilenameFlag, "log-file", "", "Log file to use (in addition to stdout)")
	flag.BoolVar(&verbosityTraceFlag, "vv", false, "Verbosity: trace logging")

	if version == "" {
		version = "DEV"
	}
}

func main() {
	flag.Parse()

	config := defaultConfig()
	if configFilenameFlag != "" {
		var err error
		if config, err = getConfig(configFilenameFlag); err != nil {
			fmt.Fprintf(os.Stderr, "Cannot read config: %v\n", err)
			os.Exit(1)
		}
	}
	applyFlags(&config)

	setupLogging(config.LogFile)

	if err := config.validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, config); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

// applyFlags overrides config values with the flags given on the command line.
func applyFlags(config *Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			config.Port = portFlag
		case "root":
			config.Root = rootFlag
		case "files":
			config.Files = filesFlag
		case "capacity":
			config.Cache.Capacity = capacityFlag
		case "hash-size":
			config.Cache.IndexHint = indexHintFlag
		case "source":
			config.Source.Type = sourceFlag
		case "db":
			config.Source.DB = dbFilenameFlag
		case "log-file":
			config.LogFile = logFilenameFlag
		}
	})
}

func setupLogging(logFilename string) {
	// set log level
	logLevel := zerolog.DebugLevel
	if verbosityTraceFlag {
		logLevel = zerolog.TraceLevel
	}

	// set up log output to stdout
	// also output to logfile if specified
	logOutputs := make([]io.Writer, 0)
	logOutputs = append(logOutputs, zerolog.ConsoleWriter{Out: os.Stdout})
	if logFilename != "" {
		if logFileOutput, err := os.OpenFile(logFilename, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644); err != nil {
			log.Fatal().Err(err).Msg("Cannot open log file")
		} else {
			logOutputs = append(logOutputs, logFileOutput)
		}
	}
	multiWriter := zerolog.MultiLevelWriter(logOutputs...)
	log.Logger = log.Level(logLevel).Output(multiWriter).
		With().Str("version", version).Logger()
}

func openSource(config Config) (contentsource.Source, error) {
	switch config.Source.Type {
	case "sqlite":
		dbFilename := config.Source.DB
		if dbFilename == "memory" {
			dbFilename = ""
		}
		src, err := contentsource.NewSQLite(dbFilename)
		if err != nil {
			return nil, err
		}
		count := 0
		if err := src.Paths(func(string) { count++ }); err != nil {
			src.Close()
			return nil, err
		}
		log.Info().Str("db", config.Source.DB).Int("files", count).Msg("Opened sqlite content source")
		return src, nil
	default:
		return contentsource.NewDir(config.Root)
	}
}

// run serves until ctx is cancelled, then shuts down and releases the cache.
func run(ctx context.Context, config Config) error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	cacheLogger := log.Logger.With().Str("component", "cache").Logger()
	lru, err := cache.New(cache.Config{
		Capacity:   config.Cache.Capacity,
		IndexHint:  config.Cache.IndexHint,
		Registerer: registry,
		Name:       "files",
		Logger:     &cacheLogger,
	})
	if err != nil {
		return err
	}
	defer lru.Close()

	src, err := openSource(config)
	if err != nil {
		return err
	}
	defer src.Close()

	server, err := staticcache.New(staticcache.Config{
		Cache:        lru,
		Source:       src,
		NotFoundPage: filepath.Join(config.Files, "404.html"),
		Logger:       &log.Logger,
		Metrics:      promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		MaxBodyBytes: config.MaxBodyBytes,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", config.Port),
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().Msgf("Serving %s on port %d (cache capacity %d)", config.Source.Type, config.Port, config.Cache.Capacity)
		errc <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return releaseCache(lru, log.Logger)
}

// releaseCache closes lru and logs its final counters once it is gone.
func releaseCache(lru *cache.LRUCache, logger zerolog.Logger) error {
	stats := lru.Stats()
	if err := lru.Close(); err != nil {
		return err
	}
	logger.Info().
		Int64("hits", stats.Hits).
		Int64("misses", stats.Misses).
		Int64("evictions", stats.Evictions).
		Msg("Cache released")
	return nil
}
