package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/existflow/stockdash/internal/market"
	"github.com/existflow/stockdash/internal/model"
)

var stocksCmd = &cobra.Command{
	Use:     "stocks",
	Aliases: []string{"ls"},
	Short:   "List stock quotes",
	Long: `List stock quotes with optional search, sorting and paging.

Examples:
  stockdash stocks
  stockdash stocks --search vn
  stockdash stocks --sort change_percent --desc
  stockdash stocks --page 2 --size 5`,
	RunE: runStocks,
}

var stockCmd = &cobra.Command{
	Use:   "stock <symbol>",
	Short: "Show one stock quote",
	Args:  cobra.ExactArgs(1),
	RunE:  runStock,
}

var (
	stocksSearch string
	stocksSort   string
	stocksDesc   bool
	stocksPage   int
	stocksSize   int
)

func init() {
	keys := make([]string, len(market.SortKeys))
	for i, k := range market.SortKeys {
		keys[i] = string(k)
	}
	stocksCmd.Flags().StringVarP(&stocksSearch, "search", "q", "", "Filter by symbol or name")
	stocksCmd.Flags().StringVarP(&stocksSort, "sort", "s", "symbol", "Sort column ("+strings.Join(keys, ", ")+")")
	stocksCmd.Flags().BoolVarP(&stocksDesc, "desc", "d", false, "Sort descending")
	stocksCmd.Flags().IntVarP(&stocksPage, "page", "p", 1, "Page number")
	stocksCmd.Flags().IntVar(&stocksSize, "size", market.DefaultPageSize, "Rows per page")
}

func runStocks(cmd *cobra.Command, args []string) error {
	sortBy, ok := market.ParseSortKey(stocksSort)
	if !ok {
		return fmt.Errorf("unknown sort column %q", stocksSort)
	}

	a, ctx, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer closeApp(a)

	if _, err := requireSession(ctx); err != nil {
		return err
	}

	stocks, err := a.Market.ListStocks(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	page := market.Apply(stocks, market.Query{
		Search:   stocksSearch,
		SortBy:   sortBy,
		Desc:     stocksDesc,
		Page:     stocksPage,
		PageSize: stocksSize,
	})
	if page.Total == 0 {
		fmt.Fprintln(out, "No stocks found.")
		return nil
	}

	sum := market.Summarize(stocks)
	headerColor.Fprintf(out, "\n%d stocks  ", sum.Count)
	successColor.Fprintf(out, "▲ %d  ", sum.Gainers)
	failColor.Fprintf(out, "▼ %d\n", sum.Losers)
	printStocks(out, page.Stocks)
	dimColor.Fprintf(out, "\npage %d/%d, %d matches\n", page.Page, page.TotalPages, page.Total)
	return nil
}

func runStock(cmd *cobra.Command, args []string) error {
	a, ctx, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer closeApp(a)

	if _, err := requireSession(ctx); err != nil {
		return err
	}

	st, err := a.Market.GetStock(ctx, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	headerColor.Fprintf(out, "%s", st.Symbol)
	if st.Name != "" {
		fmt.Fprintf(out, "  %s", st.Name)
	}
	fmt.Fprintln(out)
	trendColor(st.Trend).Fprintf(out, "  %.2f  %+.2f (%+.2f%%)\n", st.Price, st.Change, st.ChangePercent)
	fmt.Fprintf(out, "  open %.2f  high %.2f  low %.2f  prev %.2f\n", st.Open, st.High, st.Low, st.PrevClose)
	fmt.Fprintf(out, "  volume %d\n", st.Volume)
	if st.Timestamp != "" {
		dimColor.Fprintf(out, "  as of %s\n", st.Timestamp)
	}
	return nil
}

func printStocks(w io.Writer, stocks []model.Stock) {
	fmt.Fprintf(w, "  %-8s %10s %10s %9s %12s\n", "SYMBOL", "PRICE", "CHANGE", "%", "VOLUME")
	fmt.Fprintln(w, "  "+strings.Repeat("─", 53))
	for _, st := range stocks {
		fmt.Fprintf(w, "  %-8s %10.2f ", st.Symbol, st.Price)
		trendColor(st.Trend).Fprintf(w, "%+10.2f %+8.2f%%", st.Change, st.ChangePercent)
		fmt.Fprintf(w, " %12d\n", st.Volume)
	}
}
