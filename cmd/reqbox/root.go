package main

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/MakeNowJust/heredoc"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/reqbox/internal/bindings"
	"github.com/unkn0wn-root/reqbox/internal/theme"
	"github.com/unkn0wn-root/reqbox/internal/ui"
)

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "reqbox",
		Short: "Interactive HTTP request sandbox",
		Long: heredoc.Doc(`
			reqbox composes HTTP requests against a configured API, shows the
			responses and keeps a small library of saved requests plus a log
			of recent executions.

			Run without a subcommand to open the terminal UI. Settings are read
			from settings.toml, settings.yaml or settings.json in the config
			directory (REQBOX_CONFIG_DIR or the user config dir).
		`),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flags.noColor {
				lipgloss.SetColorProfile(termenv.Ascii)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), *flags)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configDir, "config-dir", "", "Config directory (default: $REQBOX_CONFIG_DIR or user config dir)")
	pf.StringVar(&flags.baseURL, "base-url", "", "Override the API base URL")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.BoolVar(&flags.noColor, "no-color", false, "Disable colored output")

	root.AddCommand(
		newSendCmd(flags),
		newSavedCmd(flags),
		newHistoryCmd(flags),
		newTokenCmd(flags),
		newVersionCmd(),
	)
	return root
}

func runTUI(ctx context.Context, flags globalFlags) error {
	a, err := openApp(flags, appOptions{})
	if err != nil {
		return err
	}
	defer a.shutdown()

	th := theme.DefaultTheme()
	if path := strings.TrimSpace(a.settings.UI.Theme); path != "" {
		if !filepath.IsAbs(path) {
			path = filepath.Join(a.dir, path)
		}
		loaded, err := theme.LoadFile(path, th)
		if err != nil {
			a.logger.Warn("theme not applied", "path", path, "error", err)
		}
		th = loaded
	}

	keys, source, err := bindings.Load(a.dir)
	if err != nil {
		a.logger.Warn("bindings not applied", "path", source.Path, "error", err)
		keys = bindings.DefaultMap()
	}

	if ctx == nil {
		ctx = context.Background()
	}
	model := ui.New(ui.Config{
		Session:   a.session,
		Keys:      keys,
		Theme:     &th,
		Highlight: a.settings.UI.HighlightEnabled() && !flags.noColor,
		Layout:    a.settings.UI.Layout,
		Version:   version,
	}).WithContext(ctx)

	a.logger.Info("starting ui", "base_url", a.settings.BaseURL, "ordering", a.settings.Ordering)
	_, err = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}
