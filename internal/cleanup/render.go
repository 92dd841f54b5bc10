package cleanup

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/uc-package/swimctl/internal/models"
)

var outcomeColors = map[Outcome]*color.Color{
	OutcomeDeleted:              color.New(color.FgGreen),
	OutcomeUnlockFailed:         color.New(color.FgRed),
	OutcomeDeleteFailed:         color.New(color.FgRed, color.Bold),
	OutcomeTimedOut:             color.New(color.FgYellow, color.Bold),
	OutcomeSkippedDryRun:        color.New(color.FgCyan),
	OutcomeSkippedGolden:        color.New(color.FgYellow),
	OutcomeSkippedLimit:         color.New(color.FgHiBlack),
	OutcomeAwaitingConfirmation: color.New(color.FgCyan),
	OutcomeAborted:              color.New(color.FgMagenta),
}

// WriteCandidates 输出候选镜像列表
func WriteCandidates(w io.Writer, candidates []models.ImageRecord) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "IMAGE ID\tNAME\tVERSION\tFAMILY\tTYPE\tGOLDEN\tUSED\tIMPORTED")
	for _, img := range candidates {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%t\t%d\t%s\n",
			img.ID, img.Name, img.Version, img.Family, typeLabel(img), img.Golden, img.UsedCount, importedLabel(img))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\nTotal matches: %d\n", len(candidates))
	return err
}

// WriteReport 以表格形式输出运行报告，结果列带颜色
func WriteReport(w io.Writer, r *Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "IMAGE ID\tNAME\tVERSION\tFAMILY\tGOLDEN\tUSED\tOUTCOME")
	for _, e := range r.Entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%d\t%s\n",
			e.Image.ID, e.Image.Name, e.Image.Version, e.Image.Family, e.Image.Golden, e.Image.UsedCount, paint(e.Outcome))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, e := range r.Entries {
		if e.Reason != "" {
			fmt.Fprintf(w, "  %s %s: %s\n", paint(e.Outcome), e.Image.ID, e.Reason)
		}
	}

	fmt.Fprintln(w)
	switch {
	case r.DryRun:
		fmt.Fprintln(w, "DRY RUN: no deletions performed.")
	case r.Halted:
		fmt.Fprintln(w, "Aborted: deletion was not confirmed, nothing was changed.")
	}

	fmt.Fprintf(w, "Total: %d", len(r.Entries))
	for _, o := range AllOutcomes {
		if n := r.Counts[o]; n > 0 {
			fmt.Fprintf(w, ", %s: %d", o, n)
		}
	}
	_, err := fmt.Fprintln(w)
	return err
}

// WriteJSON 输出 JSON 报告，供自动化使用
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func paint(o Outcome) string {
	if c, ok := outcomeColors[o]; ok {
		return c.Sprint(string(o))
	}
	return string(o)
}

func typeLabel(img models.ImageRecord) string {
	if img.RawType != "" {
		return fmt.Sprintf("%s (%s)", img.Type, img.RawType)
	}
	return string(img.Type)
}

func importedLabel(img models.ImageRecord) string {
	if img.ImportedAt.IsZero() {
		return "-"
	}
	return img.ImportedAt.Format("2006-01-02")
}
