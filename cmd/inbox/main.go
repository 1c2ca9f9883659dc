// inbox is a terminal client for the employer notification inbox. It signs
// in against the identity provider, loads the account's notifications from
// the REST backend and keeps them current over a websocket push channel.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"github.com/nhle/notification-inbox/internal/app"
	"github.com/nhle/notification-inbox/internal/credential"
	"github.com/nhle/notification-inbox/internal/gateway"
	"github.com/nhle/notification-inbox/internal/identity"
	"github.com/nhle/notification-inbox/internal/inbox"
	"github.com/nhle/notification-inbox/internal/logging"
	"github.com/nhle/notification-inbox/internal/model"
	"github.com/nhle/notification-inbox/internal/push"
	"github.com/nhle/notification-inbox/internal/session"
	"github.com/nhle/notification-inbox/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath string
		logLevel   string
		apiURL     string
		pushURL    string
		noKeyring  bool
	)

	flagSet := pflag.NewFlagSet("inbox", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", model.DefaultConfigPath(), "path to the YAML config file")
	flagSet.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error (overrides config)")
	flagSet.StringVar(&apiURL, "api-url", "", "notification API root (overrides config)")
	flagSet.StringVar(&pushURL, "push-url", "", "websocket push endpoint (overrides config)")
	flagSet.BoolVar(&noKeyring, "no-keyring", false, "keep the refresh token in memory only")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	cfg, err := model.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if apiURL != "" {
		cfg.API.BaseURL = apiURL
	}
	if pushURL != "" {
		cfg.Push.URL = pushURL
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logFile, err := logging.OpenFile(cfg.Logging.File)
	if err != nil {
		return err
	}
	defer logFile.Close()
	logger := logging.Setup(cfg.Logging.Level, logFile)

	var vault credential.Vault = credential.Keyring{Dir: model.ConfigDir()}
	if noKeyring {
		vault = credential.NewMemory()
	}

	ident := identity.New(identity.Config{
		BaseURL:  cfg.Identity.BaseURL,
		TokenURL: cfg.Identity.TokenURL,
		APIKey:   cfg.Identity.APIKey,
		Logger:   logger,
		Vault:    vault,
	})

	gw := gateway.NewClient(cfg.API.BaseURL, ident,
		gateway.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.API.TimeoutSec) * time.Second}),
		gateway.WithLogger(logger),
	)
	st := store.New(gw, logger)

	pushOpts := push.Options{
		URL:                cfg.Push.URL,
		PingInterval:       time.Duration(cfg.Push.PingIntervalSec) * time.Second,
		ReconnectPerMinute: cfg.Push.ReconnectPerMinute,
		Logger:             logger,
	}
	sessions := session.NewManager(session.Options{
		Store: st,
		Dial: func(ctx context.Context, principalID string) session.Subscription {
			return push.Subscribe(ctx, principalID, ident, pushOpts)
		},
		SyncInterval: time.Duration(cfg.Sync.IntervalSec) * time.Second,
		Logger:       logger,
	})
	defer sessions.Stop()

	root := app.New(app.Deps{
		Config:   *cfg,
		Store:    st,
		Identity: ident,
		Sessions: sessions,
		Inbox:    inbox.New(st, gw, logger),
		SaveConfig: func(c *model.AppConfig) error {
			return model.SaveConfig(configPath, c)
		},
		Logger: logger,
	})

	logger.Info("starting", "api", cfg.API.BaseURL, "push", cfg.Push.URL)
	program := tea.NewProgram(root, tea.WithAltScreen())
	_, err = program.Run()
	return err
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `inbox: terminal client for the employer notification inbox.

Configuration is read from %s unless --config is given.
INBOX_* environment variables override file values, e.g.
INBOX_API_BASE_URL or INBOX_IDENTITY_API_KEY.

Usage:
  inbox [flags]

Flags:
`, model.DefaultConfigPath())
	flagSet.PrintDefaults()
}
