package market

import (
	"sort"
	"strings"

	"github.com/existflow/stockdash/internal/model"
)

// SortKey names a sortable column
type SortKey string

const (
	SortSymbol        SortKey = "symbol"
	SortPrice         SortKey = "price"
	SortChange        SortKey = "change"
	SortChangePercent SortKey = "change_percent"
	SortVolume        SortKey = "volume"
)

// SortKeys in display order
var SortKeys = []SortKey{SortSymbol, SortPrice, SortChange, SortChangePercent, SortVolume}

// ParseSortKey accepts the key names and a few aliases
func ParseSortKey(s string) (SortKey, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "symbol":
		return SortSymbol, true
	case "price", "close":
		return SortPrice, true
	case "change":
		return SortChange, true
	case "change_percent", "changepercent", "percent", "pct":
		return SortChangePercent, true
	case "volume", "vol":
		return SortVolume, true
	}
	return "", false
}

// Next cycles to the following key
func (k SortKey) Next() SortKey {
	for i, key := range SortKeys {
		if key == k {
			return SortKeys[(i+1)%len(SortKeys)]
		}
	}
	return SortSymbol
}

// DefaultPageSize is the table page length
const DefaultPageSize = 10

// Query filters, orders and pages a stock list
type Query struct {
	Search   string
	SortBy   SortKey
	Desc     bool
	Page     int // 1-based
	PageSize int
}

// Page is one slice of a query result
type Page struct {
	Stocks     []model.Stock
	Page       int
	PageSize   int
	Total      int // matches before paging
	TotalPages int
}

// Apply runs q over stocks without modifying the input
func Apply(stocks []model.Stock, q Query) Page {
	size := q.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}

	needle := strings.ToLower(strings.TrimSpace(q.Search))
	matched := make([]model.Stock, 0, len(stocks))
	for _, s := range stocks {
		if needle == "" || strings.Contains(strings.ToLower(s.Symbol), needle) || strings.Contains(strings.ToLower(s.Name), needle) {
			matched = append(matched, s)
		}
	}

	less := lessFunc(q.SortBy)
	sort.SliceStable(matched, func(i, j int) bool {
		if q.Desc {
			return less(matched[j], matched[i])
		}
		return less(matched[i], matched[j])
	})

	total := len(matched)
	pages := (total + size - 1) / size
	if pages == 0 {
		pages = 1
	}
	page := q.Page
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}

	start := (page - 1) * size
	end := start + size
	if end > total {
		end = total
	}
	return Page{
		Stocks:     matched[start:end],
		Page:       page,
		PageSize:   size,
		Total:      total,
		TotalPages: pages,
	}
}

func lessFunc(key SortKey) func(a, b model.Stock) bool {
	switch key {
	case SortPrice:
		return func(a, b model.Stock) bool { return a.Price < b.Price }
	case SortChange:
		return func(a, b model.Stock) bool { return a.Change < b.Change }
	case SortChangePercent:
		return func(a, b model.Stock) bool { return a.ChangePercent < b.ChangePercent }
	case SortVolume:
		return func(a, b model.Stock) bool { return a.Volume < b.Volume }
	default:
		return func(a, b model.Stock) bool { return a.Symbol < b.Symbol }
	}
}

// Summary is the dashboard header numbers
type Summary struct {
	Count       int
	Gainers     int
	Losers      int
	TotalVolume int64
}

// Summarize counts movers and volume
func Summarize(stocks []model.Stock) Summary {
	var s Summary
	s.Count = len(stocks)
	for _, st := range stocks {
		switch st.Trend {
		case model.TrendUp:
			s.Gainers++
		case model.TrendDown:
			s.Losers++
		}
		s.TotalVolume += st.Volume
	}
	return s
}
