package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"patient-management/config"
	"patient-management/internal/auth"
	"patient-management/internal/infrastructure/cache"
	"patient-management/internal/infrastructure/store"
	"patient-management/internal/session"
	"patient-management/pkg/jwt"

	"github.com/sirupsen/logrus"
)

const defaultSessionFile = ".clinicctl/session.json"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string) int {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return exitError
	}

	log := newLogger(cfg.App.LogLevel)

	storage, closeStorage, err := openStorage(ctx, cfg)
	if err != nil {
		log.Errorf("Failed to open session storage: %v", err)
		return exitError
	}
	defer closeStorage()

	directory, err := auth.NewDefaultDirectory()
	if err != nil {
		log.Errorf("Failed to build credential directory: %v", err)
		return exitError
	}

	manager := session.NewManager(ctx, directory, jwt.NewTokenService(cfg.Session.TokenTTL), storage, log)
	patients := store.NewPatientClient(cfg.Store, manager, log)

	c := &cli{
		manager:  manager,
		patients: patients,
		debounce: cfg.Roster.Debounce,
		in:       os.Stdin,
		out:      os.Stdout,
		errOut:   os.Stderr,
	}
	return c.run(ctx, args)
}

// newLogger writes text logs to stderr so command output stays clean on stdout.
func newLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.WarnLevel
	}
	log.SetLevel(parsed)
	return log
}

// openStorage picks the session storage named by SESSION_STORAGE.
func openStorage(ctx context.Context, cfg *config.Config) (session.Storage, func(), error) {
	switch cfg.Session.Storage {
	case "memory":
		return session.NewMemoryStorage(), func() {}, nil
	case "redis":
		client, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return session.NewRedisStorage(client, cfg.Session.KeyPrefix), func() { _ = client.Close() }, nil
	default:
		path := cfg.Session.FilePath
		if path == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, nil, fmt.Errorf("resolve home dir: %w", err)
			}
			path = filepath.Join(home, defaultSessionFile)
		}
		return session.NewFileStorage(path), func() {}, nil
	}
}
