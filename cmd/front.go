package cmd

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/Jackevansevo/jeddit/internal/build"
	"github.com/Jackevansevo/jeddit/internal/config"
	"github.com/Jackevansevo/jeddit/internal/reddit"
	"github.com/Jackevansevo/jeddit/internal/store"
	"github.com/Jackevansevo/jeddit/internal/web"
)

var (
	scoreStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("208")).
			Bold(true).
			Width(6).
			Align(lipgloss.Right)
	titleStyle = lipgloss.NewStyle().Bold(true)
	metaStyle  = lipgloss.NewStyle().Faint(true)
	headStyle  = lipgloss.NewStyle().
			Foreground(lipgloss.Color("208")).
			Bold(true).
			Underline(true)
)

var frontCmd = &cobra.Command{
	Use:   "front [subreddit]",
	Short: "Print a listing to the terminal",
	Long: `Print a subreddit listing to the terminal without starting the server.

Examples:
  jeddit front
  jeddit front golang
  jeddit front golang --sort top --limit 5

Browses anonymously with the application token, so CLIENT_ID and
CLIENT_SECRET must still be set.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFront,
}

func init() {
	frontCmd.Flags().String("sort", "hot", "Listing sort: hot, new, rising, top or best")
	frontCmd.Flags().Int("limit", 10, "Number of posts to print")
}

func runFront(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	sub := cfg.File.FrontSubreddit
	if len(args) == 1 {
		sub = args[0]
	}
	sort, _ := cmd.Flags().GetString("sort")
	limit, _ := cmd.Flags().GetInt("limit")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ua := build.UserAgent()
	st := store.NewMemory()
	app := reddit.NewAppTokenSource(cfg.ClientID, cfg.ClientSecret, reddit.AuthBaseURL, st, reddit.NewHTTPClient(ua))
	client := reddit.NewClient(reddit.Options{
		App:       app,
		Store:     st,
		UserAgent: ua,
	})

	path := fmt.Sprintf("r/%s/%s", sub, sort)
	query := url.Values{"limit": {strconv.Itoa(limit)}}

	listing, err := client.Listing(ctx, reddit.Anonymous(), path, query)
	if err != nil {
		return fmt.Errorf("fetching r/%s: %w", sub, err)
	}

	fmt.Println(headStyle.Render(fmt.Sprintf("r/%s · %s", sub, sort)))
	fmt.Println()

	for _, link := range listing.Links {
		target := link.URL
		if link.IsSelf {
			target = "https://www.reddit.com" + link.Permalink
		}
		title := termenv.Hyperlink(target, titleStyle.Render(link.Title))

		fmt.Printf("%s  %s\n", scoreStyle.Render(web.CompactNumber(link.Score)), title)
		fmt.Printf("        %s\n", metaStyle.Render(fmt.Sprintf(
			"u/%s · %d comments · %s", link.Author, link.NumComments, link.Domain)))
	}
	return nil
}
