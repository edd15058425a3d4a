package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/existflow/blogdesk/internal/guard"
	"github.com/existflow/blogdesk/internal/model"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the dashboard numbers",
	RunE:  runStats,
}

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "Inspect the site routes",
}

var routesCheckCmd = &cobra.Command{
	Use:   "check [path]",
	Short: "Resolve a path and show whether the current session may open it",
	Long: `Resolve a path against the site's route table and run it through the
route guard with the stored session.

Examples:
  blogdesk routes check /blog/64f0c2
  blogdesk routes check /admin/blog-post`,
	Args: cobra.ExactArgs(1),
	RunE: runRoutesCheck,
}

func init() {
	routesCmd.AddCommand(routesCheckCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, app *appContext) error {
		if err := app.requireSession(); err != nil {
			return err
		}
		stats, err := app.posts.Stats(ctx)
		if err != nil {
			return friendly(err, "Failed to load dashboard")
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "\nPosts: %d   Comments: %d   Views (7d): %d\n\n", stats.BlogCount, stats.CommentsCount, stats.TotalViews())

		// last point is today
		const days = 7
		values := make([]int, days)
		offset := days - len(stats.ViewsChart)
		peak := 0
		for i, v := range stats.ViewsChart {
			if j := offset + i; j >= 0 {
				values[j] = int(v)
				peak = max(peak, int(v))
			}
		}
		for i, label := range model.LastDays(time.Now(), days) {
			width := 0
			if peak > 0 {
				width = values[i] * 30 / peak
			}
			fmt.Fprintf(out, "  %s %-30s %d\n", label, strings.Repeat("█", width), values[i])
		}

		if len(stats.RecentPosts) > 0 {
			fmt.Fprintln(out, "\nRecent posts:")
			for _, p := range stats.RecentPosts {
				printPostLine(out, p)
			}
		}
		if len(stats.Activity) > 0 {
			fmt.Fprintln(out, "\nActivity:")
			for _, a := range stats.Activity {
				fmt.Fprintf(out, "  %s  %s\n", a.CreatedAt.Local().Format("Jan 02 15:04"), a.Message)
			}
		}
		fmt.Fprintln(out)
		return nil
	})
}

func runRoutesCheck(cmd *cobra.Command, args []string) error {
	path := args[0]
	return withApp(cmd, func(ctx context.Context, app *appContext) error {
		d := app.guard.Check(path)
		out := cmd.OutOrStdout()

		fmt.Fprintf(out, "Route:    %s (%s)\n", d.Route.Name, d.Route.Pattern)
		for k, v := range d.Params {
			fmt.Fprintf(out, "  %s = %s\n", k, v)
		}
		fmt.Fprintf(out, "Guarded:  %t\n", d.Route.Protected)
		if d.Allowed {
			fmt.Fprintln(out, "Allowed:  yes")
		} else {
			fmt.Fprintf(out, "Allowed:  no, redirect to %s\n", d.RedirectTo)
		}
		if d.Route.Name == guard.NotFound.Name {
			fmt.Fprintln(out, "No page matches this path.")
		}
		return nil
	})
}
