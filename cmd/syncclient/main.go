package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/mlevitin/go-account-sync/internal/account"
	"github.com/mlevitin/go-account-sync/internal/client"
	"github.com/mlevitin/go-account-sync/internal/config"
	"github.com/mlevitin/go-account-sync/internal/logger"
	"github.com/mlevitin/go-account-sync/internal/service"
	"github.com/mlevitin/go-account-sync/internal/store"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	printBuildInfo()

	log := logger.NewClientLogger("account-sync-client")

	cfg, err := config.GetClientConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("error getting configs")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.NewConnectSQLite(ctx, cfg.Storage.DB.DSN, log)
	if err != nil {
		log.Fatal().Err(err).Msg("connect local storage")
	}
	defer db.Close()

	if err = db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("migrate local storage")
	}

	accountClient := account.New(account.Config{
		AuthBaseURL:    cfg.Account.AuthServerURL,
		OAuthBaseURL:   cfg.Account.OAuthServerURL,
		ProfileBaseURL: cfg.Account.ProfileServerURL,
		OAuthClientID:  cfg.Account.OAuthClientID,
		SignValidity:   cfg.Account.SignValidity,
	}, log)

	authService := service.NewAuthService(accountClient, log)

	app, err := client.NewApp(cfg, authService, db, log)
	if err != nil {
		log.Fatal().Err(err).Msg("init client app error")
	}

	if err = app.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("client run error")
	}
}

func printBuildInfo() {
	if buildVersion == "" {
		buildVersion = "N/A"
	}
	if buildDate == "" {
		buildDate = "N/A"
	}
	if buildCommit == "" {
		buildCommit = "N/A"
	}

	fmt.Printf("Build version: %s\n", buildVersion)
	fmt.Printf("Build date: %s\n", buildDate)
	fmt.Printf("Build commit: %s\n", buildCommit)
}
