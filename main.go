// Command repcoach runs the exercise recognition engine, either as an
// HTTP service receiving live keypoint frames or as an offline replay of
// a recorded frame sequence.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/repcoach/repcoach/api"
	"github.com/repcoach/repcoach/db"
	"github.com/repcoach/repcoach/internal/config"
	"github.com/repcoach/repcoach/internal/engine"
	"github.com/repcoach/repcoach/internal/replay"
	"github.com/repcoach/repcoach/internal/version"
)

var (
	listen        = flag.String("listen", envOr("REPCOACH_LISTEN", ":8080"), "Listen address")
	dbFile        = flag.String("db", envOr("REPCOACH_DB", "sessions.db"), "Session database path (empty disables persistence)")
	migrationsDir = flag.String("migrations", "migrations", "Migrations directory")
	tuningFile    = flag.String("tuning", envOr("REPCOACH_TUNING", ""), "Tuning config JSON (defaults built in)")
	replayFile    = flag.String("replay", "", "Replay a JSONL frame recording instead of serving")
	exerciseName  = flag.String("exercise", "push-up", "Exercise type for replay mode")
	weightKg      = flag.Float64("weight-kg", engine.DefaultBodyWeightKg, "Body weight for the calorie estimate")
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	// Optional .env bootstrap; absence is fine.
	_ = godotenv.Load()
	flag.Parse()

	log.Printf("repcoach %s (%s)", version.Version, version.GitSHA)

	cfg := config.EmptyTuningConfig()
	if *tuningFile != "" {
		loaded, err := config.LoadTuningConfig(*tuningFile)
		if err != nil {
			log.Fatalf("failed to load tuning config: %v", err)
		}
		cfg = loaded
	}

	var database *db.DB
	if *dbFile != "" {
		var err error
		database, err = db.NewDB(*dbFile)
		if err != nil {
			log.Fatalf("failed to open session db: %v", err)
		}
		defer database.Close()
		if err := database.MigrateUp(*migrationsDir); err != nil {
			log.Fatalf("failed to migrate session db: %v", err)
		}
	}

	if *replayFile != "" {
		if err := runReplay(cfg, database); err != nil {
			log.Fatalf("replay failed: %v", err)
		}
		return
	}

	serve(cfg, database)
}

func runReplay(cfg *config.TuningConfig, database *db.DB) error {
	ex, err := engine.ParseExercise(*exerciseName)
	if err != nil {
		return err
	}
	session, err := engine.NewSession(ex, cfg, engine.WithBodyWeight(*weightKg))
	if err != nil {
		return err
	}
	src, err := replay.NewFileSource(*replayFile)
	if err != nil {
		return err
	}
	defer src.Close()

	summary, err := replay.Run(src, session)
	if err != nil {
		return err
	}
	if database != nil {
		if err := database.SaveSession(summary, session.RepHistory()); err != nil {
			return err
		}
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}

func serve(cfg *config.TuningConfig, database *db.DB) {
	server := api.NewServer(cfg, database)
	httpServer := &http.Server{
		Addr:    *listen,
		Handler: server.ServeMux(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("listening on %s", *listen)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
