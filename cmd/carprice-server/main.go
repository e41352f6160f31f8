package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gossbu666/car-prices-prediction-st126055/internal/features"
	"github.com/gossbu666/car-prices-prediction-st126055/internal/history"
	"github.com/gossbu666/car-prices-prediction-st126055/internal/model"
	"github.com/gossbu666/car-prices-prediction-st126055/internal/telemetry"
	"github.com/gossbu666/car-prices-prediction-st126055/internal/webui"
)

func main() {
	var (
		addr      = flag.String("addr", ":8050", "Listen address (PORT env overrides)")
		metaPath  = flag.String("meta", "app/model_meta.json", "Optional model metadata JSON (unique_values, defaults)")
		modelPath = flag.String("model", "app/forest.json", "Regression forest JSON for the forest backend")
		webDir    = flag.String("web-dir", "", "Directory overriding the embedded index.html/style.css")
		dbFlag    = flag.String("db", "", "path to SQLite history database (overrides DB_PATH env var)")
	)
	flag.Parse()

	if port := os.Getenv("PORT"); port != "" {
		*addr = ":" + port
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := telemetry.Setup(ctx, "carprice-server")
	if err != nil {
		log.Fatalf("init tracing: %v", err)
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer flushCancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Printf("flush tracing: %v", err)
		}
	}()

	res := features.ResolveFile(*metaPath)
	if res.Fallback != nil {
		log.Printf("using built-in field options: %v", res.Fallback)
	}

	predictor, err := model.Open(model.Config{
		Backend:    os.Getenv("MODEL_BACKEND"),
		ForestPath: *modelPath,
		RemoteURL:  os.Getenv("MODEL_URL"),
	})
	if err != nil {
		log.Fatalf("load model: %v", err)
	}

	store, closeStore, err := openHistory(*dbFlag)
	if err != nil {
		log.Fatalf("history: %v", err)
	}
	defer closeStore()

	handler, err := webui.NewServer(webui.Config{
		Options:   res.Options,
		Predictor: predictor,
		History:   store,
		WebDir:    *webDir,
	})
	if err != nil {
		log.Fatal(err)
	}

	log.Printf("carprice listening on %s", *addr)
	srv := &http.Server{Addr: *addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}

// openHistory resolves the history backend: --db flag > DB_PATH env > HISTORY_BACKEND.
func openHistory(dbFlag string) (history.Store, func(), error) {
	dbPath := dbFlag
	if dbPath == "" {
		dbPath = os.Getenv("DB_PATH")
	}
	backend := strings.TrimSpace(os.Getenv("HISTORY_BACKEND"))
	if dbPath != "" {
		backend = "sqlite"
	}
	if backend == "" {
		backend = "memory"
	}
	switch backend {
	case "memory":
		return history.NewMemoryStore(), func() {}, nil
	case "persistent":
		path := os.Getenv("HISTORY_FILE")
		if path == "" {
			path = "./data/history.json"
		}
		fstore, err := history.NewFileStore(path)
		if err != nil {
			return nil, nil, fmt.Errorf("initialize history file (%s): %w", path, err)
		}
		log.Printf("using history file at %s", path)
		return fstore, func() {}, nil
	case "sqlite":
		if dbPath == "" {
			dbPath = "./data/history.db"
		}
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create history dir: %w", err)
		}
		ss, err := history.NewSQLiteStore(dbPath)
		if err != nil {
			return nil, nil, fmt.Errorf("initialize sqlite history (%s): %w", dbPath, err)
		}
		log.Printf("using sqlite history at %s", dbPath)
		return ss, func() { ss.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown HISTORY_BACKEND %q", backend)
	}
}
