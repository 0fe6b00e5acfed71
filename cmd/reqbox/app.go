package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/unkn0wn-root/reqbox/internal/config"
	"github.com/unkn0wn-root/reqbox/internal/credential"
	"github.com/unkn0wn-root/reqbox/internal/dispatch"
	"github.com/unkn0wn-root/reqbox/internal/errdef"
	"github.com/unkn0wn-root/reqbox/internal/history"
	"github.com/unkn0wn-root/reqbox/internal/httpclient"
	"github.com/unkn0wn-root/reqbox/internal/kvstore"
	"github.com/unkn0wn-root/reqbox/internal/logging"
	"github.com/unkn0wn-root/reqbox/internal/sandbox"
	"github.com/unkn0wn-root/reqbox/internal/saved"
	"github.com/unkn0wn-root/reqbox/internal/telemetry"
)

const logFileName = "reqbox.log"

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configDir string
	baseURL   string
	logLevel  string
	noColor   bool
}

// app is the wired core a command runs against.
type app struct {
	dir      string
	settings config.Settings
	logger   *slog.Logger
	store    kvstore.Store
	tokens   *credential.StoreSource
	session  *sandbox.Session

	closers []func() error
}

type appOptions struct {
	// logOutput receives logs; nil logs to <dir>/reqbox.log.
	logOutput io.Writer
	getenv    func(string) string
}

func (g globalFlags) resolveDir() string {
	if dir := strings.TrimSpace(g.configDir); dir != "" {
		return dir
	}
	return config.Dir()
}

// loadSettings reads the settings file and overlays the environment and then
// the command line.
func loadSettings(dir string, flags globalFlags, getenv func(string) string) (config.Settings, error) {
	settings, _, err := config.LoadSettings(dir)
	if err != nil {
		return config.Settings{}, err
	}
	settings = config.ApplyEnv(settings, getenv)
	if v := strings.TrimSpace(flags.baseURL); v != "" {
		settings.BaseURL = v
	}
	if v := strings.TrimSpace(flags.logLevel); v != "" {
		settings.Log.Level = v
	}
	settings = config.Normalise(settings)
	if err := settings.Validate(); err != nil {
		return config.Settings{}, err
	}
	return settings, nil
}

func openApp(flags globalFlags, opts appOptions) (*app, error) {
	getenv := opts.getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	dir := flags.resolveDir()
	settings, err := loadSettings(dir, flags, getenv)
	if err != nil {
		return nil, err
	}

	a := &app{dir: dir, settings: settings}

	out := opts.logOutput
	if out == nil {
		f, err := logging.OpenFile(filepath.Join(dir, logFileName))
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, f.Close)
		out = f
	}
	a.logger = logging.New(logging.Config{
		Level:  logging.ParseLevel(settings.Log.Level),
		Format: logging.ParseFormat(settings.Log.Format),
		Output: out,
	})

	store, err := kvstore.Open(kvstore.Backend(settings.Storage.Backend), settings.StoragePath(dir))
	if err != nil {
		a.close()
		return nil, err
	}
	a.store = store
	a.closers = append(a.closers, store.Close)
	a.tokens = credential.NewStoreSource(store, credential.DefaultKey)

	timeout, err := settings.TimeoutDuration()
	if err != nil {
		a.close()
		return nil, err
	}
	client, err := httpclient.New(httpclient.Options{Timeout: timeout})
	if err != nil {
		a.close()
		return nil, err
	}

	policy, err := credential.ParsePolicy(settings.Credential.Policy)
	if err != nil {
		a.close()
		return nil, err
	}
	ordering, err := sandbox.ParseOrdering(settings.Ordering)
	if err != nil {
		a.close()
		return nil, err
	}

	dispatchOpts := []dispatch.Option{
		dispatch.WithCredentialPolicy(policy, settings.Credential.Placeholder),
	}
	if tel := a.openTelemetry(getenv); tel != nil {
		dispatchOpts = append(dispatchOpts, dispatch.WithTelemetry(tel))
	}

	session, err := sandbox.Open(sandbox.Config{
		Client:          client,
		Credentials:     a.tokens,
		BaseURL:         settings.BaseURL,
		Ordering:        ordering,
		Saved:           saved.NewStore(kvstore.NewRecord[[]saved.Request](store, saved.RecordKey)),
		History:         history.NewStore(kvstore.NewRecord[[]history.Entry](store, history.RecordKey)),
		Logger:          a.logger,
		DispatchOptions: dispatchOpts,
	})
	if err != nil {
		// the session is usable with empty collections
		a.logger.Warn("stored state not fully loaded", "error", err)
	}
	a.session = session
	return a, nil
}

// openTelemetry returns nil when no exporter endpoint is configured.
func (a *app) openTelemetry(getenv func(string) string) telemetry.Instrumenter {
	cfg := telemetry.ConfigFromEnv(getenv)
	if v := strings.TrimSpace(a.settings.Trace.Endpoint); v != "" {
		cfg.Endpoint = v
		cfg.Insecure = a.settings.Trace.Insecure
	}
	if v := strings.TrimSpace(a.settings.Trace.Service); v != "" {
		cfg.ServiceName = v
	}
	cfg.Version = version
	if !cfg.Enabled() {
		return nil
	}

	provider, err := telemetry.New(cfg)
	if err != nil {
		a.logger.Warn("telemetry init error", "error", err)
		return nil
	}
	a.closers = append(a.closers, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return provider.Shutdown(ctx)
	})
	return provider
}

// close runs the closers in reverse order.
// shutdown closes the app and logs what failed. Commands defer it after
// openApp succeeds.
func (a *app) shutdown() {
	if err := a.close(); err != nil {
		a.logger.Warn("close", "error", err)
	}
}

func (a *app) close() error {
	var errs error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = errors.Join(errs, err)
		}
	}
	a.closers = nil
	if errs != nil {
		return errdef.Wrap(errdef.CodeFilesystem, errs, "shutdown")
	}
	return nil
}
