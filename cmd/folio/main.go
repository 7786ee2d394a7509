package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/eringen/folio"
	"github.com/eringen/folio/logging"
	"github.com/eringen/folio/store"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()
	logging.Init(folio.EnvOr("APP_ENV", "development"), folio.EnvOr("LOG_LEVEL", "info"))

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe()
	case "migrate":
		err = runMigrate(os.Args[2:])
	case "seed":
		err = runSeed()
	case "user":
		err = runUser(os.Args[2:])
	case "version":
		fmt.Printf("folio %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`folio - A portfolio and blog engine built with Go, Echo, and templ

Usage:
  folio <command> [arguments]

Commands:
  serve                         Run the HTTP server
  migrate [--check]             Apply database migrations, optionally run integrity checks
  seed                          Insert sample content into empty tables
  user create [--role admin|editor] <email> <name>
                                Create a user (password from FOLIO_PASSWORD)
  user passwd <email>           Set a user's password (from FOLIO_PASSWORD)
  version                       Print the folio version
  help                          Show this help message

Environment:
  SESSION_SECRET and JWT_SECRET are required by serve. A .env file in the
  working directory is loaded first.`)
}

func runServe() error {
	cfg := folio.ConfigFromEnv()
	app := folio.New(cfg, folio.ViewFuncs{},
		folio.WithStaticDir(folio.EnvOr("STATIC_DIR", "public")),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Init(ctx); err != nil {
		return err
	}

	errc := make(chan error, 1)
	go func() { errc <- app.Start() }()

	select {
	case err := <-errc:
		return errors.Join(err, app.Close())
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return app.Shutdown(shutdownCtx)
}

// openStore opens the database named by DATABASE_PATH, applying migrations.
func openStore(ctx context.Context, seed bool) (*store.Store, error) {
	return store.Open(ctx, store.Options{
		Path:          folio.EnvOr("DATABASE_PATH", folio.DefaultDatabasePath),
		Seed:          seed,
		AdminEmail:    folio.EnvOr("ADMIN_EMAIL", "admin@example.com"),
		AdminName:     folio.EnvOr("ADMIN_NAME", "Admin"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	})
}

func runMigrate(args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	check := fs.Bool("check", false, "run integrity and foreign key checks after migrating")
	if err := fs.Parse(args); err != nil {
		return err
	}
	ctx := context.Background()
	s, err := openStore(ctx, false)
	if err != nil {
		return err
	}
	defer s.Close()
	if *check {
		if err := s.Check(ctx); err != nil {
			return err
		}
		fmt.Println("database ok")
	}
	return nil
}

func runSeed() error {
	ctx := context.Background()
	s, err := openStore(ctx, true)
	if err != nil {
		return err
	}
	return s.Close()
}

func runUser(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: folio user create|passwd ...")
	}
	password := os.Getenv("FOLIO_PASSWORD")
	if password == "" {
		return errors.New("FOLIO_PASSWORD is not set")
	}
	ctx := context.Background()
	s, err := openStore(ctx, false)
	if err != nil {
		return err
	}
	defer s.Close()

	switch args[0] {
	case "create":
		fs := flag.NewFlagSet("user create", flag.ContinueOnError)
		role := fs.String("role", store.RoleEditor, "admin or editor")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if fs.NArg() < 2 {
			return errors.New("usage: folio user create [--role admin|editor] <email> <name>")
		}
		u, err := s.Users.Create(ctx, store.NewUser{
			Email:    fs.Arg(0),
			Name:     fs.Arg(1),
			Password: password,
			Role:     *role,
		})
		if err != nil {
			return err
		}
		fmt.Printf("created %s user %s (id %d)\n", u.Role, u.Email, u.ID)
	case "passwd":
		if len(args) < 2 {
			return errors.New("usage: folio user passwd <email>")
		}
		u, err := s.Users.GetByEmail(ctx, args[1])
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("no user with email %s", args[1])
			}
			return err
		}
		if err := s.Users.UpdatePassword(ctx, u.ID, password); err != nil {
			return err
		}
		fmt.Printf("password updated for %s\n", u.Email)
	default:
		return fmt.Errorf("unknown user command: %s", args[0])
	}
	return nil
}
