package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/liut/beeview/htdocs"
	"github.com/liut/beeview/pkg/services/beeapi"
	"github.com/liut/beeview/pkg/services/llm"
	"github.com/liut/beeview/pkg/services/stores"
	"github.com/liut/beeview/pkg/settings"
	"github.com/liut/beeview/pkg/web"
)

func main() {
	app := &cli.App{
		Name:    "beeview",
		Usage:   "browse, summarize and chat about Bee conversations",
		Version: settings.Current.Version,
		Action:  runWeb,
		Commands: []*cli.Command{
			{
				Name:   "web",
				Usage:  "run the web viewer",
				Action: runWeb,
			},
			{
				Name:  "usage",
				Usage: "show environment settings",
				Action: func(*cli.Context) error {
					return settings.Usage()
				},
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		zap.S().Fatalw("run fail", "err", err)
	}
}

func setupLogger() (*zap.Logger, *stores.EventLog) {
	var zlogger *zap.Logger
	if settings.InDevelop() {
		zlogger, _ = zap.NewDevelopment()
	} else {
		zlogger, _ = zap.NewProduction()
	}
	events := stores.NewEventLog(settings.Current.EventLogSize)
	zlogger = events.Tee(zlogger, zapcore.InfoLevel)
	zap.ReplaceGlobals(zlogger)
	return zlogger, events
}

func runWeb(cc *cli.Context) error {
	zlogger, events := setupLogger()
	defer func() { _ = zlogger.Sync() }()
	sugar := zlogger.Sugar()

	ctx := cc.Context
	bee, err := beeapi.New(beeapi.Config{
		BaseURL:  settings.Current.BeeAPIBase,
		PageSize: settings.Current.PageSize,
		Timeout:  settings.Current.BeeTimeout,
	})
	if err != nil {
		return err
	}
	streamer, err := llm.New(ctx)
	if err != nil {
		return err
	}
	preset, err := stores.LoadPreset(settings.Current.PresetFile)
	if err != nil {
		sugar.Infow("use default preset", "err", err)
	}

	srv := web.New(web.Config{
		Addr:       settings.Current.HTTPListen,
		Debug:      settings.InDevelop(),
		DocHandler: http.FileServer(http.FS(htdocs.FS())),
		Bee:        bee,
		Streamer:   streamer,
		Sessions:   stores.NewSessions(settings.Current.SessionStore),
		Events:     events,
		Preset:     preset,
	})

	idleClosed := make(chan struct{})
	go func() {
		quit := make(chan os.Signal, 2)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		sugar.Info("shuting down server...")
		if err := srv.Stop(context.Background()); err != nil {
			sugar.Infow("server shutdown:", "err", err)
		}
		close(idleClosed)
	}()

	if err := srv.Serve(ctx); err != nil {
		sugar.Infow("serve fail", "err", err)
		return err
	}

	<-idleClosed
	return nil
}
