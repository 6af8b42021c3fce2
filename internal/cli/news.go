package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var newsCmd = &cobra.Command{
	Use:   "news",
	Short: "Show the latest market news",
	RunE:  runNews,
}

var sentimentCmd = &cobra.Command{
	Use:   "sentiment",
	Short: "Show the market sentiment split",
	RunE:  runSentiment,
}

var newsLimit int

func init() {
	newsCmd.Flags().IntVarP(&newsLimit, "limit", "n", 5, "Number of articles")
}

func runNews(cmd *cobra.Command, args []string) error {
	a, ctx, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer closeApp(a)

	if _, err := requireSession(ctx); err != nil {
		return err
	}

	items, err := a.Market.ListNews(ctx, newsLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(items) == 0 {
		fmt.Fprintln(out, "No news.")
		return nil
	}
	for _, n := range items {
		headerColor.Fprintln(out, n.Title)
		dimColor.Fprintf(out, "  %s • %s • %s\n", n.Source, n.TimeAgo, n.Sentiment)
		if n.Description != "" {
			fmt.Fprintf(out, "  %s\n", n.Description)
		}
		if n.URL != "" {
			dimColor.Fprintf(out, "  %s\n", n.URL)
		}
		fmt.Fprintln(out)
	}
	return nil
}

func runSentiment(cmd *cobra.Command, args []string) error {
	a, ctx, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer closeApp(a)

	if _, err := requireSession(ctx); err != nil {
		return err
	}

	s, err := a.Market.Sentiment(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	headerColor.Fprintf(out, "Market sentiment: %s\n", s.Label)
	successColor.Fprintf(out, "  positive %5.1f%%\n", s.Positive)
	failColor.Fprintf(out, "  negative %5.1f%%\n", s.Negative)
	warnColor.Fprintf(out, "  neutral  %5.1f%%\n", s.Neutral)
	return nil
}
