package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/panjf2000/ants/v2"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/gcbaptista/go-record-search/api"
	"github.com/gcbaptista/go-record-search/config"
	"github.com/gcbaptista/go-record-search/internal/engine"
	"github.com/gcbaptista/go-record-search/internal/logger"
	"github.com/gcbaptista/go-record-search/internal/normalize"
	"github.com/gcbaptista/go-record-search/internal/rules"
	"github.com/gcbaptista/go-record-search/internal/search"
	"github.com/gcbaptista/go-record-search/model"
	"github.com/gcbaptista/go-record-search/services"
	"github.com/gcbaptista/go-record-search/store"
)

const version = "1.0.0"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	queryFlags := []cli.Flag{
		&cli.StringFlag{
			Name:     "query",
			Aliases:  []string{"q"},
			Usage:    "Search query (whitespace separated terms, quote to keep spaces)",
			Required: true,
		},
		&cli.BoolFlag{
			Name:    "case-sensitive",
			Aliases: []string{"c"},
			Usage:   "Match terms case-sensitively",
		},
		&cli.StringFlag{
			Name:    "mode",
			Aliases: []string{"m"},
			Usage:   "Match mode (regex, contains)",
			Value:   string(rules.ModeRegex),
		},
	}

	return &cli.App{
		Name:    "record_search",
		Usage:   "Regex and substring search over bibliographic records",
		Version: version,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP record search service",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Usage:   "Path to YAML configuration file",
						EnvVars: []string{"RECORD_SEARCH_CONFIG"},
					},
					&cli.IntFlag{
						Name:  "port",
						Usage: "Port to run the server on (overrides config)",
					},
					&cli.StringFlag{
						Name:  "data-dir",
						Usage: "Directory to store collections (overrides config)",
					},
					&cli.StringFlag{
						Name:  "storage",
						Usage: "Storage backend for new collections: gob or badger (overrides config)",
					},
				},
			},
			{
				Name:      "match",
				Usage:     "Print the IDs of records in a JSON file that match a query",
				ArgsUsage: " ",
				Action:    matchCommand,
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:     "records",
						Aliases:  []string{"r"},
						Usage:    "JSON file holding an array of records, or - for stdin",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "raw",
						Usage: "Match against fields without removing LaTeX markup",
					},
				}, queryFlags...),
			},
			{
				Name:   "validate",
				Usage:  "Check whether every term of a query is a usable pattern",
				Action: validateCommand,
				Flags:  queryFlags,
			},
		},
	}
}

func serveCommand(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if c.IsSet("port") {
		cfg.HTTP.Port = c.Int("port")
	}
	if c.IsSet("data-dir") {
		cfg.Storage.DataDir = c.String("data-dir")
	}
	if c.IsSet("storage") {
		cfg.Storage.Backend = c.String("storage")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	zlog, err := logger.NewLogger(cfg.Logging.Env, cfg.Logging.Level)
	if err != nil {
		return err
	}
	defer func() { _ = zlog.Sync() }()

	if cfg.Logging.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	zlog.Info("Opening record collections",
		zap.String("data_dir", cfg.Storage.DataDir),
		zap.String("backend", cfg.Storage.Backend),
		zap.Int("workers", cfg.Search.Workers),
	)
	eng, err := engine.NewEngine(engine.Options{
		DataDir:         cfg.Storage.DataDir,
		Backend:         cfg.Storage.Backend,
		Workers:         cfg.Search.Workers,
		DefaultPageSize: cfg.Search.DefaultPageSize,
		MaxPageSize:     cfg.Search.MaxPageSize,
		Logger:          zlog,
	})
	if err != nil {
		return fmt.Errorf("failed to start engine: %w", err)
	}

	router := api.NewRouter(eng, zlog, api.RouterOptions{
		MaxBodyBytes:   cfg.HTTP.MaxBodyBytes,
		RateLimitRPS:   cfg.HTTP.RateLimitRPS,
		RateLimitBurst: cfg.HTTP.RateLimitBurst,
	})
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		zlog.Info("Starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err = <-serveErr:
	case <-ctx.Done():
		zlog.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
		defer cancel()
		err = srv.Shutdown(shutdownCtx)
	}

	if closeErr := eng.Close(); closeErr != nil {
		zlog.Error("Failed to close engine", zap.Error(closeErr))
		if err == nil {
			err = closeErr
		}
	}
	return err
}

func matchCommand(c *cli.Context) error {
	recs, err := readRecords(c.String("records"), c.App.Reader)
	if err != nil {
		return err
	}

	recStore := store.NewMemoryStore()
	if err := recStore.Put(recs); err != nil {
		return err
	}

	pool, err := ants.NewPool(runtime.NumCPU())
	if err != nil {
		return err
	}
	defer pool.Release()

	opts := search.Options{
		DefaultPageSize: max(len(recs), 1),
		MaxPageSize:     max(len(recs), 1),
	}
	if c.Bool("raw") {
		opts.Normalizer = normalize.Identity
	}

	settings := config.CollectionSettings{
		Name:          filepath.Base(c.String("records")),
		CaseSensitive: c.Bool("case-sensitive"),
		SearchMode:    c.String("mode"),
	}
	searcher, err := search.NewService(recStore, settings, pool, opts)
	if err != nil {
		return err
	}

	res, err := searcher.Search(c.Context, services.SearchRequest{Query: c.String("query"), Strict: true})
	if err != nil {
		return err
	}
	for _, hit := range res.Hits {
		if _, err := fmt.Fprintln(c.App.Writer, hit.RecordID); err != nil {
			return err
		}
	}
	return nil
}

func validateCommand(c *cli.Context) error {
	mode, err := rules.ParseMode(c.String("mode"))
	if err != nil {
		return err
	}

	res, err := search.ValidateQuery(c.String("query"), c.Bool("case-sensitive"), mode)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return err
	}
	if !res.Valid {
		return fmt.Errorf("invalid query: term '%s': %s", res.InvalidTerm, res.Reason)
	}
	return nil
}

// readRecords loads a JSON array of records. Records without an ID get
// their position in the array as ID.
func readRecords(path string, stdin io.Reader) ([]model.Record, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(filepath.Clean(path))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}

	var recs []model.Record
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("failed to parse records from %s: %w", path, err)
	}
	for i, rec := range recs {
		if rec == nil {
			return nil, fmt.Errorf("record %d is null", i)
		}
		if _, ok := rec[model.RecordIDField]; !ok {
			rec[model.RecordIDField] = strconv.Itoa(i)
		}
	}
	return recs, nil
}
