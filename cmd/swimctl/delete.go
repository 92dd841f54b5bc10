package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/uc-package/swimctl/internal/cleanup"
	"github.com/uc-package/swimctl/internal/filter"
	"github.com/uc-package/swimctl/internal/models"
)

func newDeleteCommand(g *globalOptions) *cobra.Command {
	ff := &filterFlags{}
	rf := &runFlags{}
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete the images matching the filter",
		Long: `Delete every image matching the filter. Candidates are listed and a
confirmation is requested unless --yes is given. Golden images are skipped
unless --unlock-golden is set together with --site-id, --device-family-identifier
and --device-role.

Exit status is 1 when any deletion failed or timed out.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := g.load()
			if err != nil {
				return err
			}
			ff.apply(cmd.Flags(), &config.Filter)
			rf.apply(cmd.Flags(), config)

			spec, err := filter.FromConfig(config.Filter)
			if err != nil {
				return err
			}
			if spec.IsEmpty() && !config.Run.DryRun {
				return fmt.Errorf("refusing to delete without a filter; pass at least one filter flag or use --dry-run")
			}

			opts := cleanup.OptionsFromConfig(config)
			if err := opts.Validate(); err != nil {
				return err
			}
			opts.Confirm = promptConfirm(cmd.InOrStdin(), cmd.ErrOrStderr())

			cleaner, err := newCleaner(config)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			report, runErr := cleaner.Run(ctx, spec, opts)
			if report != nil {
				if err := writeReport(cmd.OutOrStdout(), report, asJSON); err != nil {
					return err
				}
			}
			if runErr != nil {
				return runErr
			}
			if report.Failed() {
				return &exitError{code: 1}
			}
			return nil
		},
	}

	ff.register(cmd.Flags())
	rf.register(cmd.Flags())
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	return cmd
}

func writeReport(w io.Writer, report *cleanup.Report, asJSON bool) error {
	if asJSON {
		return cleanup.WriteJSON(w, report)
	}
	return cleanup.WriteReport(w, report)
}

// promptConfirm 列出候选镜像并在终端上请求确认，只有 y / yes 视为同意
func promptConfirm(in io.Reader, out io.Writer) cleanup.ConfirmFunc {
	reader := bufio.NewReader(in)
	return func(ctx context.Context, candidates []models.ImageRecord) bool {
		if err := cleanup.WriteCandidates(out, candidates); err != nil {
			return false
		}

		golden := 0
		for _, img := range candidates {
			if img.Golden {
				golden++
			}
		}
		if golden > 0 {
			fmt.Fprintln(out, color.YellowString("%d golden image(s) selected.", golden))
		}

		fmt.Fprintf(out, "Delete %d image(s)? [y/N]: ", len(candidates))
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintln(out)
			return false
		}
		if ctx.Err() != nil {
			return false
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true
		}
		return false
	}
}
