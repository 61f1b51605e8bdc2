// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"codeberg.org/unirex/guardia-monitor/internal/breach"
	"codeberg.org/unirex/guardia-monitor/internal/config"
	"codeberg.org/unirex/guardia-monitor/internal/i18n"
	"codeberg.org/unirex/guardia-monitor/internal/validate"
	"github.com/urfave/cli/v3"
)

// Check looks up the email given as argument and prints its breaches
// grouped by tier. It skips the verification flow and is meant for
// operators.
func Check(ctx context.Context, cmd *cli.Command) error {
	email := strings.TrimSpace(cmd.Args().First())
	if err := validate.Struct(validate.IssueRequest{Email: email}); err != nil {
		return fmt.Errorf("invalid email: %w", err)
	}

	cfg := config.NewFromCLI(cmd)
	if err := i18n.Init(); err != nil {
		return fmt.Errorf("failed to init i18n: %w", err)
	}
	ctx = i18n.WithLocale(ctx, i18n.MatchLanguage(cmd.String("lang")))

	breaches, err := newLookupClient(cfg).Lookup(ctx, email)
	if err != nil {
		return fmt.Errorf("lookup failed: %w", err)
	}

	out := cmd.Root().Writer
	if out == nil {
		out = os.Stdout
	}
	return printReport(ctx, out, email, breach.SortByDate(breaches))
}

func printReport(ctx context.Context, out io.Writer, email string, breaches []breach.Breach) error {
	if len(breaches) == 0 {
		_, err := fmt.Fprintln(out, i18n.T(ctx, "no_breaches"))
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, i18n.TPluralData(ctx, "breaches_found", len(breaches), map[string]any{"Email": email}))
	fmt.Fprintln(tw)

	for _, b := range breach.Summarize(breaches).Legend {
		fmt.Fprintf(tw, "%s\t%d\n", i18n.T(ctx, b.Tier.LabelID()), b.Count)
	}
	fmt.Fprintln(tw)

	for _, b := range breaches {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			b.Title,
			b.BreachDate,
			breach.FormatPwnCount(b.PwnCount),
			i18n.T(ctx, breach.Classify(b).LabelID()),
		)
	}
	return tw.Flush()
}

// CheckCommand is the "check" subcommand.
func CheckCommand() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "Look up the breaches of an email address",
		ArgsUsage: "<email>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "lang",
				Value: i18n.DefaultLanguage.String(),
				Usage: "Language of the report (it, en)",
			},
		},
		Action: Check,
	}
}
