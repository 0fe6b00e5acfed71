package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/reqbox/internal/draft"
	"github.com/unkn0wn-root/reqbox/internal/errdef"
	"github.com/unkn0wn-root/reqbox/internal/responseview"
	"github.com/unkn0wn-root/reqbox/internal/sandbox"
	"github.com/unkn0wn-root/reqbox/internal/theme"
)

// draftFlags describe a request draft on the command line.
type draftFlags struct {
	method  string
	path    string
	body    string
	headers []string
}

func (f *draftFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.method, "method", "X", "", "HTTP method (GET, POST, PUT, PATCH, DELETE)")
	fs.StringVarP(&f.path, "path", "p", "", "Request path appended to the base URL")
	fs.StringVarP(&f.body, "body", "d", "", "Request body for POST, PUT and PATCH")
	fs.StringArrayVarP(&f.headers, "header", "H", nil, `Header as "Key: Value" (repeatable)`)
}

// apply overlays the flags that were set onto the session draft.
func (f *draftFlags) apply(cmd *cobra.Command, s *sandbox.Session) error {
	var method draft.Method
	if cmd.Flags().Changed("method") {
		m, ok := draft.ParseMethod(f.method)
		if !ok {
			return errdef.New(errdef.CodeValidation, "unsupported method %q", f.method)
		}
		method = m
	}
	headers := make([]draft.HeaderEntry, 0, len(f.headers))
	for _, raw := range f.headers {
		key, value, found := strings.Cut(raw, ":")
		key = strings.TrimSpace(key)
		if !found || key == "" {
			return errdef.New(errdef.CodeValidation, "header %q must be Key: Value", raw)
		}
		headers = append(headers, draft.HeaderEntry{Key: key, Value: strings.TrimSpace(value), Enabled: true})
	}

	pathSet := cmd.Flags().Changed("path")
	bodySet := cmd.Flags().Changed("body")
	s.Edit(func(d *draft.RequestDraft) {
		if method != "" {
			d.SetMethod(method)
		}
		if pathSet {
			d.SetPath(f.path)
		}
		if bodySet {
			d.SetBody(f.body)
		}
		d.Headers = append(d.Headers, headers...)
	})
	return nil
}

func newSendCmd(flags *globalFlags) *cobra.Command {
	var (
		df      draftFlags
		savedID string
		noHead  bool
		timing  bool
	)
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Dispatch one request and print the outcome",
		Example: `  reqbox send --path /v1/health
  reqbox send -X POST -p /v1/text/scramble -d '{"text":"hi"}'
  reqbox send --saved default-me`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(*flags, appOptions{logOutput: cmd.ErrOrStderr()})
			if err != nil {
				return err
			}
			defer a.shutdown()

			if savedID != "" {
				if err := a.session.LoadSaved(savedID); err != nil {
					return err
				}
			}
			if err := df.apply(cmd, a.session); err != nil {
				return err
			}

			out, _ := a.session.Execute(cmd.Context())
			opts := responseview.Options{
				Theme:       theme.DefaultTheme(),
				Highlight:   a.settings.UI.HighlightEnabled() && !flags.noColor,
				ShowHeaders: !noHead,
			}
			fmt.Fprintln(cmd.OutOrStdout(), responseview.Render(out, opts))
			if timing && out.Timeline != nil {
				fmt.Fprintln(cmd.OutOrStdout())
				for _, line := range out.Timeline.Breakdown() {
					fmt.Fprintln(cmd.OutOrStdout(), line)
				}
			}
			if out.TransportFailed() {
				return errdef.New(errdef.CodeHTTP, "request failed: %s", out.ErrorMessage())
			}
			return nil
		},
	}
	df.register(cmd)
	cmd.Flags().StringVar(&savedID, "saved", "", "Start from the saved request with this id")
	cmd.Flags().BoolVar(&noHead, "no-headers", false, "Do not print response headers")
	cmd.Flags().BoolVar(&timing, "timing", false, "Print the connection phase breakdown")
	return cmd
}
