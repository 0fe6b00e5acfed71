package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/reqbox/internal/credential"
)

func newTokenCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the stored bearer token",
		Args:  cobra.NoArgs,
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "set TOKEN",
			Short: "Store the bearer token",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withTokens(cmd, flags, func(src *credential.StoreSource) error {
					if err := src.Set(args[0]); err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), "token stored")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Remove the stored bearer token",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withTokens(cmd, flags, func(src *credential.StoreSource) error {
					if err := src.Clear(); err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), "token cleared")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "show",
			Short: "Describe the stored bearer token",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withTokens(cmd, flags, func(src *credential.StoreSource) error {
					token, ok, err := src.Token()
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), describeToken(token, ok, time.Now()))
					return nil
				})
			},
		},
	)
	return cmd
}

func withTokens(cmd *cobra.Command, flags *globalFlags, fn func(*credential.StoreSource) error) error {
	a, err := openApp(*flags, appOptions{logOutput: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}
	defer a.shutdown()
	return fn(a.tokens)
}

func describeToken(token string, ok bool, now time.Time) string {
	if !ok {
		return "no token stored"
	}
	var b strings.Builder
	b.WriteString("token: ")
	b.WriteString(maskToken(token))

	info := credential.Inspect(token)
	if !info.JWT {
		b.WriteString(" (opaque)")
		return b.String()
	}
	if info.Subject != "" {
		b.WriteString("\nsubject: ")
		b.WriteString(info.Subject)
	}
	if !info.ExpiresAt.IsZero() {
		state := "valid"
		if info.Expired(now) {
			state = "expired"
		}
		fmt.Fprintf(&b, "\nexpires: %s (%s)", info.ExpiresAt.UTC().Format(time.RFC3339), state)
	}
	return b.String()
}

func maskToken(token string) string {
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}
	return token[:4] + "…" + token[len(token)-4:]
}
