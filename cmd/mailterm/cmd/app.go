package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nhle/mailterm/internal/app"
	"github.com/nhle/mailterm/internal/credential"
	"github.com/nhle/mailterm/internal/event"
	"github.com/nhle/mailterm/internal/imap"
	"github.com/nhle/mailterm/internal/model"
	"github.com/nhle/mailterm/internal/provider"
	"github.com/nhle/mailterm/internal/store"
	"github.com/nhle/mailterm/internal/sync"
	"github.com/nhle/mailterm/internal/transport"
	"github.com/nhle/mailterm/internal/ui"
)

// passwordSource resolves secrets by credential key.
type passwordSource interface {
	Password(key string) (string, error)
}

// application owns every long-lived component of a TUI session.
type application struct {
	logger   *slog.Logger
	store    store.Store
	closer   func() error
	events   *event.Handler
	provider *provider.Provider
	ctrl     *app.Controller
	poller   *sync.Poller
}

func runTUI(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApplication(ctx, cfg, credential.New(), logger)
	if err != nil {
		return err
	}
	defer a.close()

	return a.run(ctx)
}

func newApplication(ctx context.Context, c *model.AppConfig, creds passwordSource, logger *slog.Logger) (*application, error) {
	s, closer, err := openStore(c.Store)
	if err != nil {
		return nil, err
	}

	tr := newTransport(c, creds, logger)
	events := event.NewHandler(time.Duration(c.UI.TickMillis) * time.Millisecond)

	p := provider.New(s, tr, events,
		provider.WithTimeout(time.Duration(c.Store.RequestTimeoutSec)*time.Second),
		provider.WithLogger(logger),
	)
	if err := p.Initialize(ctx); err != nil {
		events.Close()
		_ = closer()
		return nil, err
	}

	a := &application{
		logger:   logger,
		store:    s,
		closer:   closer,
		events:   events,
		provider: p,
	}

	ctrlCfg := app.Config{
		From:            c.Identity.From,
		RefreshInterval: time.Duration(c.UI.RefreshIntervalSec) * time.Second,
		Logger:          logger,
	}

	if c.IMAP.Enabled {
		importer, ok := s.(store.Importer)
		if !ok {
			a.close()
			return nil, fmt.Errorf("store %q cannot import messages", c.Store.Driver)
		}
		a.poller = newPoller(c.IMAP, creds, importer, events, logger)
		ctrlCfg.Inbox = a.poller
	}

	a.ctrl = app.New(p, events, ctrlCfg)

	return a, nil
}

func openStore(sc model.StoreConfig) (store.Store, func() error, error) {
	switch sc.Driver {
	case model.StoreDriverMemory:
		return store.NewMemoryStore(sc.Seed), func() error { return nil }, nil
	case model.StoreDriverSQLite:
		if err := os.MkdirAll(filepath.Dir(sc.Path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("creating data directory: %w", err)
		}
		s, err := store.NewSQLiteStore(sc.Path, sc.Seed)
		if err != nil {
			return nil, nil, fmt.Errorf("opening store: %w", err)
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", sc.Driver)
	}
}

func newTransport(c *model.AppConfig, creds passwordSource, logger *slog.Logger) transport.Transport {
	if !c.SMTP.Enabled {
		return transport.NewLocal(logger)
	}

	password, err := creds.Password(credential.SMTPPasswordKey)
	if err != nil {
		logger.Warn("smtp password unavailable", "error", err)
	}

	return transport.NewSMTP(transport.SMTPConfig{
		Host:     c.SMTP.Host,
		Port:     c.SMTP.Port,
		Username: c.SMTP.Username,
		Password: password,
		TLS:      c.SMTP.TLS,
	}, logger)
}

func newPoller(ic model.IMAPConfig, creds passwordSource, importer store.Importer, events event.Sender, logger *slog.Logger) *sync.Poller {
	password, err := creds.Password(credential.IMAPPasswordKey)
	if err != nil {
		logger.Warn("imap password unavailable", "error", err)
	}

	client := imap.NewClient(imap.Config{
		Host:     ic.Host,
		Port:     ic.Port,
		Username: ic.Username,
		Password: password,
		TLS:      ic.TLS,
	})

	return sync.New(client, importer, events, sync.Options{
		Interval:  time.Duration(ic.PollIntervalSec) * time.Second,
		SinceDays: ic.SinceDays,
		Limit:     ic.Limit,
		Logger:    logger,
	})
}

func (a *application) run(ctx context.Context) error {
	a.ctrl.Start()
	if a.poller != nil {
		a.poller.Start()
	}

	program := tea.NewProgram(
		ui.New(a.ctrl, a.events, a.logger),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	_, err := program.Run()
	if err != nil {
		return fmt.Errorf("running TUI: %w", err)
	}
	return nil
}

// close shuts down in reverse start order. Results of requests still in
// flight are dropped by the closed queue.
func (a *application) close() {
	if a.poller != nil {
		a.poller.Stop()
	}
	a.events.Close()
	if err := a.closer(); err != nil {
		a.logger.Error("closing store", "error", err)
	}
}
