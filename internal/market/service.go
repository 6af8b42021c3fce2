// Package market reads quotes from the stock service and articles and
// sentiment from the news service.
package market

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"github.com/existflow/stockdash/internal/api"
	"github.com/existflow/stockdash/internal/logger"
	"github.com/existflow/stockdash/internal/model"
)

// DefaultNewsLimit is the number of articles fetched when none is given
const DefaultNewsLimit = 5

// Service wraps the stock and news transports. Both normally share the
// session's token source and unauthorized handler.
type Service struct {
	stocks *api.Client
	news   *api.Client
}

// NewService creates a market service
func NewService(stocks, news *api.Client) *Service {
	return &Service{stocks: stocks, news: news}
}

// ListStocks returns every quote
func (s *Service) ListStocks(ctx context.Context) ([]model.Stock, error) {
	var data struct {
		Stocks []stockRow `json:"stocks"`
	}
	if _, err := s.stocks.Do(ctx, api.Request{Path: "/api/stocks", Op: "loading stocks"}, &data); err != nil {
		return nil, err
	}

	out := make([]model.Stock, 0, len(data.Stocks))
	for _, row := range data.Stocks {
		if strings.TrimSpace(row.Symbol) == "" {
			continue
		}
		out = append(out, row.normalize())
	}
	logger.Debug("Loaded stocks", logger.F("count", len(out)))
	return out, nil
}

// GetStock returns one quote
func (s *Service) GetStock(ctx context.Context, symbol string) (*model.Stock, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, api.Errorf(api.KindValidation, "symbol is required")
	}

	var raw json.RawMessage
	if _, err := s.stocks.Do(ctx, api.Request{Path: "/api/stocks/" + url.PathEscape(symbol), Op: "loading " + symbol}, &raw); err != nil {
		return nil, err
	}

	// either the row itself or {stock: row}
	var wrapped struct {
		Stock *stockRow `json:"stock"`
	}
	row := stockRow{}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Stock != nil {
		row = *wrapped.Stock
	} else if err := json.Unmarshal(raw, &row); err != nil {
		return nil, &api.Error{Kind: api.KindMalformed, Message: "invalid stock record", Err: err}
	}
	if row.Symbol == "" {
		return nil, api.Errorf(api.KindMalformed, "stock record has no symbol")
	}
	stock := row.normalize()
	return &stock, nil
}

// ListNews returns up to limit articles
func (s *Service) ListNews(ctx context.Context, limit int) ([]model.NewsItem, error) {
	if limit <= 0 {
		limit = DefaultNewsLimit
	}

	var raw json.RawMessage
	req := api.Request{
		Path:  "/api/news",
		Query: url.Values{"limit": []string{strconv.Itoa(limit)}},
		Op:    "loading news",
	}
	if _, err := s.news.Do(ctx, req, &raw); err != nil {
		return nil, err
	}

	var rows []newsRow
	var wrapped struct {
		News []newsRow `json:"news"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.News != nil {
		rows = wrapped.News
	} else if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, &api.Error{Kind: api.KindMalformed, Message: "invalid news list", Err: err}
	}

	if len(rows) > limit {
		rows = rows[:limit]
	}
	out := make([]model.NewsItem, len(rows))
	for i, row := range rows {
		out[i] = row.normalize(i)
	}
	return out, nil
}

// Sentiment returns the market mood. Anything short of an authentication
// rejection falls back to the neutral default.
func (s *Service) Sentiment(ctx context.Context) (model.Sentiment, error) {
	var row sentimentRow
	_, err := s.news.Do(ctx, api.Request{Path: "/api/sentiment", Op: "loading sentiment"}, &row)
	if err != nil {
		if api.IsUnauthorized(err) {
			return model.DefaultSentiment(), err
		}
		logger.Debug("Sentiment unavailable, using default", logger.F("error", err))
		return model.DefaultSentiment(), nil
	}
	return row.normalize(), nil
}
