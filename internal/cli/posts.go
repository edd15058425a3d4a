package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/existflow/blogdesk/internal/model"
	"github.com/spf13/cobra"
)

var postsCmd = &cobra.Command{
	Use:     "posts",
	Aliases: []string{"post", "blog"},
	Short:   "Manage blog posts",
	Long: `List, show, create, update and delete blog posts.

Examples:
  blogdesk posts list
  blogdesk posts list --search go
  blogdesk posts show 64f0c2
  blogdesk posts create --title "Hello" --content "..." --image cover.png
  blogdesk posts update 64f0c2 --title "Hello again"
  blogdesk posts rm 64f0c2`,
}

var postsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List posts, newest first",
	RunE:    runPostsList,
}

var postsShowCmd = &cobra.Command{
	Use:   "show [post-id]",
	Short: "Show a post with related posts",
	Args:  cobra.ExactArgs(1),
	RunE:  runPostsShow,
}

var postsCreateCmd = &cobra.Command{
	Use:     "create",
	Aliases: []string{"add"},
	Short:   "Create a post",
	RunE:    runPostsCreate,
}

var postsUpdateCmd = &cobra.Command{
	Use:     "update [post-id]",
	Aliases: []string{"edit"},
	Short:   "Update a post. Unset flags keep their current value.",
	Args:    cobra.ExactArgs(1),
	RunE:    runPostsUpdate,
}

var postsDeleteCmd = &cobra.Command{
	Use:     "delete [post-id]",
	Aliases: []string{"rm"},
	Short:   "Delete a post",
	Args:    cobra.ExactArgs(1),
	RunE:    runPostsDelete,
}

var (
	postsSearch  string
	postTitle    string
	postContent  string
	postImage    string
	postsYes     bool
	relatedCount = 3
)

func init() {
	postsListCmd.Flags().StringVarP(&postsSearch, "search", "s", "", "Filter by title")

	for _, c := range []*cobra.Command{postsCreateCmd, postsUpdateCmd} {
		c.Flags().StringVarP(&postTitle, "title", "t", "", "Post title")
		c.Flags().StringVarP(&postContent, "content", "c", "", "Post content")
		c.Flags().StringVarP(&postImage, "image", "i", "", "Path to the cover image")
	}
	postsDeleteCmd.Flags().BoolVarP(&postsYes, "yes", "y", false, "Do not ask for confirmation")

	postsCmd.AddCommand(postsListCmd)
	postsCmd.AddCommand(postsShowCmd)
	postsCmd.AddCommand(postsCreateCmd)
	postsCmd.AddCommand(postsUpdateCmd)
	postsCmd.AddCommand(postsDeleteCmd)
}

func runPostsList(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, app *appContext) error {
		posts, err := app.posts.List(ctx)
		if err != nil {
			return friendly(err, "failed to list posts")
		}

		view := model.PostListView{Items: posts, SearchTerm: postsSearch}
		visible := view.Visible()

		out := cmd.OutOrStdout()
		if len(posts) == 0 {
			fmt.Fprintln(out, "No posts yet. Add one with: blogdesk posts create")
			return nil
		}
		if len(visible) == 0 {
			fmt.Fprintf(out, "No posts match %q\n", postsSearch)
			return nil
		}

		fmt.Fprintln(out)
		for _, p := range visible {
			printPostLine(out, p)
		}
		fmt.Fprintln(out)
		if postsSearch != "" {
			fmt.Fprintf(out, "%d of %d posts\n", len(visible), len(posts))
		} else {
			fmt.Fprintf(out, "%d posts\n", len(posts))
		}
		return nil
	})
}

func printPostLine(out io.Writer, p model.BlogPost) {
	photo := " "
	if p.Cover() != "" {
		photo = "▣"
	}
	date := "-"
	if !p.CreatedAt.IsZero() {
		date = p.CreatedAt.Local().Format("Jan 02, 2006")
	}
	fmt.Fprintf(out, "  %-24s %s %-12s  %s\n", p.ID, photo, date, p.Title)
}

func runPostsShow(cmd *cobra.Command, args []string) error {
	id := args[0]
	return withApp(cmd, func(ctx context.Context, app *appContext) error {
		post, err := app.posts.Get(ctx, id)
		if err != nil {
			return friendly(err, "failed to load post")
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "\n%s\n%s\n", post.Title, strings.Repeat("─", len([]rune(post.Title))))
		if !post.CreatedAt.IsZero() {
			fmt.Fprintf(out, "Published %s\n", post.CreatedAt.Local().Format("Jan 02, 2006"))
		}
		if cover := post.Cover(); cover != "" {
			fmt.Fprintf(out, "Cover:    %s\n", cover)
		}
		fmt.Fprintf(out, "\n%s\n", post.Content)

		// related posts are best-effort
		all, err := app.posts.List(ctx)
		if err != nil {
			return nil
		}
		if related := model.Related(all, post.ID, relatedCount); len(related) > 0 {
			fmt.Fprintln(out, "\nRelated:")
			for _, p := range related {
				printPostLine(out, p)
			}
		}
		return nil
	})
}

func runPostsCreate(cmd *cobra.Command, args []string) error {
	var image *model.ImageUpload
	if postImage != "" {
		img, err := model.LoadImage(postImage)
		if err != nil {
			return err
		}
		image = img
	}

	return withApp(cmd, func(ctx context.Context, app *appContext) error {
		if err := app.requireSession(); err != nil {
			return err
		}
		post, err := app.posts.Create(ctx, postTitle, postContent, image)
		if err != nil {
			return friendly(err, "Error saving post")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✅ Post created: %s (ID: %s)\n", post.Title, post.ID)
		return nil
	})
}

func runPostsUpdate(cmd *cobra.Command, args []string) error {
	id := args[0]
	var image *model.ImageUpload
	if postImage != "" {
		img, err := model.LoadImage(postImage)
		if err != nil {
			return err
		}
		image = img
	}

	return withApp(cmd, func(ctx context.Context, app *appContext) error {
		if err := app.requireSession(); err != nil {
			return err
		}

		// the API replaces both fields, so fill in the ones not given
		title, content := postTitle, postContent
		if !cmd.Flags().Changed("title") || !cmd.Flags().Changed("content") {
			current, err := app.posts.Get(ctx, id)
			if err != nil {
				return friendly(err, "failed to load post")
			}
			if !cmd.Flags().Changed("title") {
				title = current.Title
			}
			if !cmd.Flags().Changed("content") {
				content = current.Content
			}
		}

		post, err := app.posts.Update(ctx, id, title, content, image)
		if err != nil {
			return friendly(err, "Error saving post")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✅ Post updated: %s\n", post.Title)
		return nil
	})
}

func runPostsDelete(cmd *cobra.Command, args []string) error {
	id := args[0]
	return withApp(cmd, func(ctx context.Context, app *appContext) error {
		if err := app.requireSession(); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if app.cfg.ConfirmDelete && !postsYes {
			name := id
			if post, err := app.posts.Get(ctx, id); err == nil {
				name = post.Title
			}
			fmt.Fprintf(out, "About to delete: %q (ID: %s)\n", name, id)
			fmt.Fprint(out, "Are you sure? [y/N]: ")
			answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			answer = strings.TrimSpace(answer)
			if answer != "y" && answer != "Y" {
				fmt.Fprintln(out, "Cancelled.")
				return nil
			}
		}

		if err := app.posts.Delete(ctx, id); err != nil {
			return friendly(err, "Delete failed")
		}
		fmt.Fprintf(out, "🗑️  Deleted: %s\n", id)
		return nil
	})
}
