package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-curation-client/api"
	"github.com/jrsteele09/go-curation-client/internal/config"
	"github.com/jrsteele09/go-curation-client/server"
	"github.com/jrsteele09/go-curation-client/server/userrepo"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("error running server")
	}
	log.Info().Msg("server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	if level, err := zerolog.ParseLevel(c.GetLogLevel()); err == nil {
		zerolog.SetGlobalLevel(level)
	}
	displayAppname(c.GetAppName() + " API")

	handler, err := newHandler(c)
	if err != nil {
		return err
	}

	httpServer := &http.Server{Addr: c.GetPort(), Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	errs := make(chan error, 1)
	go func() { errs <- listenAndServe(httpServer) }()

	select {
	case err := <-errs:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(httpServer)
}

func newHandler(c config.Config) (*server.Server, error) {
	users := userrepo.NewInMemoryRepo()
	identity := server.DevIdentity(c.GetAdminUserName())
	admin := &api.User{
		ID:          identity.ID,
		Type:        "discord",
		Username:    identity.Username,
		Permissions: api.PermissionComment | api.PermissionSubmit | api.PermissionUpload | api.PermissionAudit | api.PermissionAssignPermissions,
		Registered:  time.Now(),
	}
	if err := users.Upsert(admin); err != nil {
		return nil, fmt.Errorf("seed admin user: %w", err)
	}

	codes := server.NewStaticCodeExchanger()
	codes.AcceptDevCodes = true
	log.Info().Str("code", "dev-"+admin.Username).Msg("dev-<name> codes log in as <name>, this one as the admin")

	opts := []server.ServerOption{
		server.WithEnv(c.GetEnv()),
		server.WithBypassToken(c.GetRateLimitBypassToken()),
		server.WithRateLimit(c.GetRateLimit(), server.DefaultRateWindow),
	}
	if key := c.GetSigningKey(); key != "" {
		opts = append(opts, server.WithSigningKey([]byte(key)))
	}
	return server.New(users, codes, opts...)
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
