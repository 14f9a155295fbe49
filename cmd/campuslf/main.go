package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/campuslf/lostfound/internal/api"
	"github.com/campuslf/lostfound/internal/auth"
	"github.com/campuslf/lostfound/internal/catalog"
	"github.com/campuslf/lostfound/internal/claims"
	"github.com/campuslf/lostfound/internal/config"
	"github.com/campuslf/lostfound/internal/db"
	"github.com/campuslf/lostfound/internal/dispute"
	"github.com/campuslf/lostfound/internal/karma"
	"github.com/campuslf/lostfound/internal/notify"
	"github.com/campuslf/lostfound/internal/objstore"
	"github.com/campuslf/lostfound/internal/store"
	"github.com/campuslf/lostfound/internal/verify"
)

const usage = `Usage: campuslf <command> [flags]

Commands:
  serve             run the HTTP API
  migrate           apply database migrations and exit
  provision-admin   create or promote an admin account

Flags:
  -c, -config <path>      TOML config file
  -d, -db <path>          SQLite database path (default: campuslf.sqlite3)
  -a, -addr <host:port>   listen address (default: :8080)
  -l, -log <path>         log file path (default: stdout/stderr only)
  -log-level <level>      debug, info, warn or error (default: info)
  -karma-points <n>       karma per returned item (default: 50)
  -smtp-host <host>       SMTP relay; mail is only logged when empty
  -smtp-port <port>       SMTP port (default: 587)
  -include-contact        include owner contact in claim accepted emails
  -storage <backend>      inline or s3 (default: inline)
  -u, -username <name>    admin username for provision-admin (default: admin)
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	fs := flag.NewFlagSet("campuslf "+cmd, flag.ContinueOnError)
	fs.Usage = func() { fmt.Fprint(os.Stdout, usage) }

	var adminUser string
	if cmd == "provision-admin" {
		fs.StringVar(&adminUser, "username", "admin", "")
		fs.StringVar(&adminUser, "u", "admin", "")
	}

	var run func(context.Context, *config.Config) error
	switch cmd {
	case "serve":
		run = serve
	case "migrate":
		run = migrate
	case "provision-admin":
		run = func(ctx context.Context, cfg *config.Config) error {
			return provisionAdmin(ctx, cfg, adminUser)
		}
	case "-h", "-help", "--help", "help":
		fmt.Fprint(os.Stdout, usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n%s", cmd, usage)
		os.Exit(1)
	}

	cfg, err := config.Load(fs, os.Args[2:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "unexpected argument: %s\n", fs.Arg(0))
		os.Exit(1)
	}

	closeLog, err := setupLogger(cfg.Log.Path, cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	if err := run(context.Background(), cfg); err != nil {
		slog.Error(cmd+" failed", "error", err)
		closeLog()
		os.Exit(1)
	}
}

// openDatabase opens the database and brings the schema up to date.
func openDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	database, err := db.Open(cfg.DB.Path)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx, database); err != nil {
		database.Close()
		return nil, err
	}
	slog.Info("database ready", "path", cfg.DB.Path)
	return database, nil
}

func migrate(ctx context.Context, cfg *config.Config) error {
	database, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	return database.Close()
}

func provisionAdmin(ctx context.Context, cfg *config.Config, username string) error {
	database, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	secret, err := store.GetJWTSecret(ctx, database)
	if err != nil {
		return err
	}

	password, created, err := auth.NewService(database, secret).ProvisionAdmin(ctx, username)
	if err != nil {
		return err
	}
	if !created {
		fmt.Printf("Account %s exists and has the admin role. Password unchanged.\n", username)
		return nil
	}

	fmt.Println("Admin account created:")
	fmt.Printf("  Username: %s\n", username)
	fmt.Printf("  Password: %s\n", password)
	fmt.Println()
	fmt.Println("Save this password. It cannot be recovered.")
	return nil
}

func newMailer(cfg config.MailConfig) notify.Mailer {
	if cfg.Host == "" {
		slog.Warn("no SMTP host configured, outgoing mail is only logged")
		return &notify.LogMailer{}
	}
	return &notify.SMTPMailer{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Username: cfg.Username,
		Password: cfg.Password,
		From:     cfg.From,
	}
}

func newSink(ctx context.Context, cfg config.StorageConfig) (objstore.Sink, error) {
	if cfg.Backend != config.StorageS3 {
		return objstore.DataURLSink{}, nil
	}
	return objstore.NewS3Sink(ctx, objstore.S3Config{
		Bucket:    cfg.Bucket,
		Region:    cfg.Region,
		Endpoint:  cfg.Endpoint,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		PublicURL: cfg.PublicURL,
		PathStyle: cfg.PathStyle,
	})
}

func serve(ctx context.Context, cfg *config.Config) error {
	database, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	// Signing key lives in the database and is generated on first run.
	jwtSecret, err := store.GetJWTSecret(ctx, database)
	if err != nil {
		return fmt.Errorf("loading JWT secret: %w", err)
	}

	sink, err := newSink(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("setting up storage: %w", err)
	}

	mail := notify.NewDispatcher(newMailer(cfg.Mail), cfg.Mail.MaxInFlight, time.Duration(cfg.Mail.Timeout))
	ledger := karma.NewLedger(database, karma.Options{
		Points:    cfg.Karma.Points,
		CacheSize: cfg.Karma.CacheSize,
		CacheTTL:  time.Duration(cfg.Karma.CacheTTL),
	})
	authn := auth.NewService(database, jwtSecret)

	mux := http.NewServeMux()
	mux.Handle("/api/", api.NewRouter(api.Services{
		DB:       database,
		Auth:     authn,
		Catalog:  catalog.NewService(database),
		Claims:   claims.NewWorkflow(database, mail, claims.Options{IncludeContactOnAccept: cfg.Mail.IncludeContactOnAccept}),
		Notify:   notify.NewService(database, mail),
		Verify:   verify.NewService(database, ledger, sink),
		Karma:    ledger,
		Disputes: dispute.NewService(database),
	}))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := database.PingContext(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.LoggingMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		defer close(done)
		sig := <-quit
		slog.Info("shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout))
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", cfg.Server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	<-done

	slog.Info("server stopped, flushing mail")
	mail.Wait()
	return nil
}
