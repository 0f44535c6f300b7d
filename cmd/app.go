package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	logging "github.com/ipfs/go-log/v2"
	"github.com/spf13/cobra"

	"tims/internal/config"
	"tims/internal/events"
	"tims/internal/localstore"
	"tims/internal/rest"
	"tims/internal/securestore"
	"tims/internal/session"
	"tims/internal/tracker"
	"tims/internal/tui"
	"tims/internal/util"
)

var log = logging.Logger("tims/cmd")

// app is the composition root: one hub, one tracker, one REST client per
// process, with the terminal subscribers attached.
type app struct {
	cfg      *config.Config
	hub      *events.Hub
	tracker  *tracker.Tracker
	rest     *rest.Client
	store    *localstore.Store
	sessions *session.Store
	printer  *util.SafePrinter

	closers []func()
}

func newApp(cfg *config.Config, printer *util.SafePrinter) (*app, error) {
	a := &app{cfg: cfg, hub: events.NewHub(), printer: printer}

	a.tracker = tracker.New(a.hub.Busy(), tracker.WithInitial(cfg.Loader.InitialPending))
	loader := tui.NewLoader(a.hub.Busy(), printer, cfg.Loader.Spinner, "Loading")
	alerts := tui.NewAlerts(a.hub, printer)
	a.closers = append(a.closers, loader.Close, alerts.Close)
	if a.tracker.Busy() {
		a.hub.Busy().Trigger(true)
	}

	notifier := &rest.Notifier{Hub: a.hub, Tracker: a.tracker, Domain: cfg.RestDomain}
	opts := []rest.Option{rest.WithTimeout(cfg.TimeoutDuration())}
	if cfg.InsecureHTTP {
		opts = append(opts, rest.WithInsecureHTTP())
	}
	a.rest = rest.New(cfg.RestDomain, notifier.Hooks(), opts...)

	store, err := localstore.Open(cfg.DBPath())
	if err != nil {
		a.Close()
		return nil, err
	}
	a.store = store
	a.closers = append(a.closers, func() { _ = store.Close() })

	secret, err := securestore.LoadOrCreateSecret(cfg.SecretPath())
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to load secret: %w", err)
	}
	a.sessions, err = session.NewStore(store.DB(), secret, cfg.CookieDomain)
	if err != nil {
		a.Close()
		return nil, err
	}
	sub := session.Bind(a.hub, a.rest, a.sessions)
	a.closers = append(a.closers, sub.Unsubscribe)
	if session.Restore(a.rest, a.sessions) {
		log.Debug("session restored")
	}

	// settle the initial pending request, if configured
	if cfg.Loader.InitialPending > 0 {
		a.tracker.Finished()
	}
	return a, nil
}

// Close detaches the subscribers and closes the store, last opened first.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
	events.GlobalBus.Publish(events.EventSessionCompleted)
}

func (a *app) signedIn() bool { return a.rest.SessionToken() != "" }

// requireSession fails early when there is no stored session.
func (a *app) requireSession() error {
	if !a.signedIn() {
		return fmt.Errorf("not signed in. Please run 'tims signin' first")
	}
	return nil
}

// withApp loads the config and builds the app for a command's RunE.
func withApp(fn func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadAndValidateConfig()
		if err != nil {
			return err
		}
		a, err := newApp(cfg, util.Default)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd.Context(), a, cmd, args)
	}
}

// withSession is withApp for commands that need to be signed in.
func withSession(fn func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		if err := a.requireSession(); err != nil {
			return err
		}
		return fn(ctx, a, cmd, args)
	})
}

// settle runs err through the REST bridge: field errors are printed, known
// codes go to handlers, anything unreported lands on the error topic once.
// It returns errSilent when the user has already been told.
func (a *app) settle(err error, handlers rest.Handlers) error {
	err = rest.Bridge(a.hub, err, handlers)
	if err == nil || errors.Is(err, context.Canceled) {
		return nil
	}
	if fe, ok := rest.AsFieldErrors(err); ok {
		for _, f := range fe {
			a.hub.Warning().Trigger(fmt.Sprintf("%s: %s", f.Field, f.Reason))
		}
	}
	return errSilent
}

// errSilent makes a command fail without the error being printed again.
var errSilent = errors.New("")

// ExitCode prints err unless the user has already seen it and returns the
// process exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if err != errSilent {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
	}
	return 1
}
