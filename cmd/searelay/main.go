package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/searelay/searelay/internal/config"
	"github.com/searelay/searelay/internal/handlers"
	"github.com/searelay/searelay/internal/inreach"
	"github.com/searelay/searelay/internal/ledger"
	"github.com/searelay/searelay/internal/logger"
	"github.com/searelay/searelay/internal/mailbox"
	"github.com/searelay/searelay/internal/mistral"
	"github.com/searelay/searelay/internal/relay"
	"github.com/searelay/searelay/internal/saildocs"
	"github.com/searelay/searelay/internal/server"
	"github.com/searelay/searelay/internal/version"
)

func main() {
	configPath := flag.String("config", "", "path to config file (falls back to CONFIG_PATH, then config.toml)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("searelay %s\n", version.GetInfo())
		return
	}

	fx.New(
		fx.Provide(
			provideConfig(*configPath),
			provideLogger,
			provideMailbox,
			provideLedger,
			provideMatcher,
			provideSaildocs,
			provideMistral,
			provideTransmitter,
			provideRelay,

			provideServerHandler(handlers.NewPingHandler),
			provideServerHandler(provideStatusHandler),

			provideServer,
		),
		fx.Invoke(
			startRelay,
			startServer,
		),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
	).Run()
}

func provideConfig(path string) func() (config.Config, error) {
	return func() (config.Config, error) {
		if path == "" {
			path = os.Getenv("CONFIG_PATH")
		}
		cfg, err := config.Load(path)
		if err != nil {
			return config.Config{}, fmt.Errorf("load config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return config.Config{}, fmt.Errorf("invalid config: %w", err)
		}
		return cfg, nil
	}
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideMailbox(log *slog.Logger, cfg config.Config) *mailbox.Client {
	return mailbox.New(log, cfg.Mailbox)
}

func provideLedger(log *slog.Logger, cfg config.Config) (*ledger.Ledger, error) {
	l := ledger.New(log, cfg.Relay.LedgerPath)
	if err := l.Load(); err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	return l, nil
}

func provideMatcher(log *slog.Logger, cfg config.Config, client *mailbox.Client) *saildocs.Matcher {
	return saildocs.NewMatcher(log, client, cfg.Saildocs.ReplyAddress,
		cfg.Saildocs.MaxAttempts, cfg.Saildocs.PollInterval())
}

func provideSaildocs(log *slog.Logger, cfg config.Config, client *mailbox.Client, matcher *saildocs.Matcher) *saildocs.Service {
	return saildocs.NewService(log, client, matcher, client,
		cfg.Saildocs.QueryAddress, cfg.Relay.AttachmentDir)
}

func provideMistral(log *slog.Logger, cfg config.Config) (*mistral.Client, error) {
	return mistral.NewClient(log, cfg.Mistral.BaseURL, cfg.Mistral.APIKey,
		cfg.Mistral.Model, cfg.Mistral.MaxTokens, cfg.Mistral.Timeout())
}

func provideTransmitter(log *slog.Logger, cfg config.Config) *inreach.Transmitter {
	return inreach.NewTransmitter(log, cfg.Mailbox.Address, cfg.Inreach.ChunkDelay())
}

func provideRelay(log *slog.Logger, cfg config.Config, client *mailbox.Client, chat *mistral.Client,
	weather *saildocs.Service, transmitter *inreach.Transmitter, dedup *ledger.Ledger,
) *relay.Service {
	return relay.NewService(log, client, chat, weather, transmitter, dedup, relay.Options{
		SubjectTag:    cfg.Relay.SubjectTag,
		SenderAddress: cfg.Relay.SenderAddress,
		ReplyURLHost:  cfg.Inreach.ReplyURLHost,
		ChatChunkSize: cfg.Inreach.ChatChunkSize,
		GribChunkSize: cfg.Inreach.GribChunkSize,
		PollInterval:  cfg.Relay.PollInterval(),
	})
}

func provideStatusHandler(log *slog.Logger, svc *relay.Service) *handlers.StatusHandler {
	return handlers.NewStatusHandler(log, svc)
}

func provideServerHandler(fn any) any {
	return fx.Annotate(
		fn,
		fx.As(new(server.Handler)),
		fx.ResultTags(`group:"server_handlers"`),
	)
}

type serverParams struct {
	fx.In

	Logger         *slog.Logger
	Config         config.Config
	ServerHandlers []server.Handler `group:"server_handlers"`
}

func provideServer(params serverParams) *server.Server {
	return server.NewServer(params.Logger, params.Config.Server.Addr, params.ServerHandlers...)
}

func startRelay(lc fx.Lifecycle, svc *relay.Service) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return svc.Start()
		},
		OnStop: func(ctx context.Context) error {
			return svc.Stop(ctx)
		},
	})
}

func startServer(lc fx.Lifecycle, logger *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner) {
	fmt.Printf("Starting searelay %s\n", version.GetInfo())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.Start(); err != nil { // block until server is stopped
					logger.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown() // shutdown the application if the server fails to start
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Stop(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}
