package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/issuesync/internal/core/domain"
)

var watermarksCmd = &cobra.Command{
	Use:   "watermarks owner/repo",
	Short: "Show stored sync progress of a repository",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatermarks,
}

func init() {
	rootCmd.AddCommand(watermarksCmd)
}

func runWatermarks(cmd *cobra.Command, args []string) error {
	repo, err := domain.ParseRepository(args[0])
	if err != nil {
		return err
	}
	svc, err := loadServices(cmd)
	if err != nil {
		return err
	}
	if svc.Watermarks == nil {
		return errors.New("watermark service not configured")
	}

	wms, err := svc.Watermarks.Watermarks(cmd.Context(), repo)
	if err != nil {
		return err
	}
	if len(wms) == 0 {
		cmd.Printf("No watermarks stored for %s.\n", repo)
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tLAST RUN\tETAG\tNEXT CURSOR\tUPDATED")
	for _, wm := range wms {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			wm.Key, formatTime(wm.LastRun), dash(wm.ETag), dash(wm.NextCursor), formatTime(wm.UpdatedAt))
	}
	return tw.Flush()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
