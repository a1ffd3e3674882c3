package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/wadjakorntonsri/go-shortlink/pkg/adapters/events"
	"github.com/wadjakorntonsri/go-shortlink/pkg/adapters/repository/sqlstore"
	"github.com/wadjakorntonsri/go-shortlink/pkg/adapters/title"
	"github.com/wadjakorntonsri/go-shortlink/pkg/config"
	"github.com/wadjakorntonsri/go-shortlink/pkg/core/services"
	"github.com/wadjakorntonsri/go-shortlink/pkg/core/shortcode"
	"github.com/wadjakorntonsri/go-shortlink/pkg/logger"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}

// run executes the command line and releases whatever it opened.
func run(args []string, stdout, stderr io.Writer) error {
	c := &cli{}
	root := newRootCmd(c)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	defer c.close()
	return root.Execute()
}

// cli carries the app built by the root command to its subcommands.
type cli struct {
	app *app
}

func (c *cli) close() {
	if c.app != nil {
		c.app.Close()
		c.app = nil
	}
}

// app holds the wired dependencies shared by every subcommand.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *sqlstore.Store
	broker *events.Broker
	links  *services.LinkService
	done   chan struct{}
}

func newApp(cfg *config.Config, logOut io.Writer) (*app, error) {
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	log := logger.New(logOut, level, cfg.LogFormat == "json")

	store, err := sqlstore.New(cfg.DatabaseURL, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to db: %w", err)
	}

	broker := events.NewBroker(log)
	a := &app{
		cfg:    cfg,
		logger: log,
		store:  store,
		broker: broker,
		done:   make(chan struct{}),
	}
	a.links = services.NewLinkService(services.LinkServiceDeps{
		Store: store,
		Titles: title.NewResolver(title.Config{
			AutoResolve:    cfg.AutoResolveTitles,
			Timeout:        cfg.TitleFetchTimeout,
			UserAgent:      cfg.TitleUserAgent,
			AllowedSchemes: cfg.AllowedURLSchemes,
		}, nil, log),
		Relations: services.NewRelationResolver(cfg.DefaultDomain),
		Allocator: services.NewShortCodeAllocator(services.AllocatorOptions{
			Policy:        shortcode.Policy{MinLength: cfg.SlugMinLength, MaxLength: cfg.SlugMaxLength},
			DefaultLength: cfg.ShortCodeLength,
			MaxAttempts:   cfg.ShortCodeMaxAttempts,
		}, log),
		Events:        broker,
		Logger:        log,
		DefaultDomain: cfg.DefaultDomain,
	})

	go a.logEvents(broker.Subscribe(64))
	return a, nil
}

func (a *app) logEvents(sub *events.Subscription) {
	defer close(a.done)
	for event := range sub.C {
		a.logger.Debug("link created event",
			"event_id", event.EventID,
			"link_id", event.LinkID,
			"short_code", event.ShortCode,
			"domain", event.Domain,
		)
	}
}

func (a *app) Close() {
	a.broker.Close()
	<-a.done
	if err := a.store.Close(); err != nil {
		a.logger.Error("failed to close store", "error", err)
	}
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:          "shortlink",
		Short:        "Short link management",
		Long:         "Create short links and migrate them between databases.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			c.app, err = newApp(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			cmd.SetContext(logger.ContextWithRequestID(cmd.Context(), uuid.NewString()))
			return nil
		},
	}

	root.AddCommand(newShortenCmd(c))
	root.AddCommand(newExportCmd(c))
	root.AddCommand(newImportCmd(c))
	return root
}
