package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/veridio/iriscore/internal/api"
	"github.com/veridio/iriscore/internal/capture"
	"github.com/veridio/iriscore/internal/config"
	"github.com/veridio/iriscore/internal/db"
	"github.com/veridio/iriscore/internal/fsutil"
	"github.com/veridio/iriscore/internal/imgstore"
	"github.com/veridio/iriscore/internal/iris"
	"github.com/veridio/iriscore/internal/monitoring"
	"github.com/veridio/iriscore/internal/version"
)

var (
	listen     = flag.String("listen", ":8080", "Listen address")
	dbFile     = flag.String("db", "subjects.db", "Path to the subjects database")
	docsDir    = flag.String("docs", ".", "Documents directory for stored eye images")
	configPath = flag.String("config", "", "Capture config JSON (defaults apply when empty)")
	framesDir  = flag.String("frames", "", "Run one capture session over grayscale images from this directory instead of serving")
	verbose    = flag.Bool("verbose", false, "Enable debug logging")
	showVer    = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()
	monitoring.Verbose = *verbose

	if *showVer {
		log.Printf("iriscore %s (%s, built %s)", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	args := flag.Args()
	if len(args) > 0 && args[0] == "migrate" {
		db.RunMigrateCommand(args[1:], *dbFile)
		return
	}

	cfg, err := config.LoadCaptureConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load capture config: %v", err)
	}

	database, err := db.OpenDB(*dbFile)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	if err := database.MigrateUp(db.MigrationsFS()); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	if *framesDir != "" {
		if err := runCaptureSession(cfg, database); err != nil {
			log.Fatalf("capture session failed: %v", err)
		}
		return
	}

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := http.NewServeMux()

		// admin debugging routes (live SQL and backup download)
		if err := database.AttachAdminRoutes(mux); err != nil {
			log.Printf("failed to attach admin routes: %v", err)
		}

		store, err := imgstore.New(fsutil.OSFileSystem{}, *docsDir)
		if err != nil {
			log.Fatalf("failed to open image store: %v", err)
		}
		apiMux := api.NewServer(database, api.WithImageStore(store)).ServeMux()
		mux.Handle("/", apiMux)

		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(mux),
		}

		go func() {
			log.Printf("listening on %s", *listen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}

// runCaptureSession replays the images in -frames through a full capture
// session. Enrollment mode needs a subject name in the remaining args.
func runCaptureSession(cfg *config.CaptureConfig, database *db.DB) error {
	frames, err := loadFrames(*framesDir)
	if err != nil {
		return err
	}
	cam := capture.NewMockCamera(frames)

	store, err := imgstore.New(fsutil.OSFileSystem{}, *docsDir)
	if err != nil {
		return err
	}
	opts := []capture.Option{capture.WithImageStore(store)}
	if cfg.GetMode() == config.ModeEnrollment {
		rec := &db.SubjectRecord{}
		if args := flag.Args(); len(args) > 0 {
			rec.FirstName = args[0]
		}
		if len(flag.Args()) > 1 {
			rec.LastName = flag.Args()[1]
		}
		opts = append(opts, capture.WithSubject(rec))
	}
	ctrl := capture.New(cfg, cam, database, opts...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		for ev := range ctrl.Events() {
			logEvent(ev)
		}
	}()
	return ctrl.Run(ctx)
}

func logEvent(ev capture.Event) {
	switch ev.Kind {
	case capture.EventStatus:
		monitoring.Debugf("status: %s", ev.Status)
	case capture.EventMatchConfirmed:
		log.Printf("confirmed match: %s %s (distance %.3f)",
			ev.Record.FirstName, ev.Record.LastName, ev.Candidates[0].Distance)
	case capture.EventMatchSuggested:
		log.Printf("%d suggested candidates, closest distance %.3f",
			len(ev.Candidates), ev.Candidates[0].Distance)
	case capture.EventEnrolled:
		log.Printf("enrolled subject %s with %d templates", ev.Record.ID, len(ev.Record.Templates))
	case capture.EventError:
		log.Printf("session error: %v", ev.Err)
	default:
		log.Printf("event: %s", ev.Kind)
	}
}

func loadFrames(dir string) ([]capture.Frame, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var frames []capture.Frame
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			monitoring.Logf("skipping %s: %v", e.Name(), err)
			continue
		}
		img, err := imgstore.DecodeGray(data)
		if err != nil {
			monitoring.Logf("skipping %s: %v", e.Name(), err)
			continue
		}
		frames = append(frames, frameFromImage(img))
	}
	if len(frames) == 0 {
		return nil, os.ErrNotExist
	}
	return frames, nil
}

func frameFromImage(img *iris.Image) capture.Frame {
	luma := make([]byte, len(img.Pix))
	copy(luma, img.Pix)
	f := capture.Frame{Width: img.Cols, Height: img.Rows, Stride: img.Cols, Luma: luma}
	img.Release()
	return f
}
