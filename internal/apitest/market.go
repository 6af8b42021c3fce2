package apitest

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// rows mirror what the stock service sends: close instead of price,
// camelCase percent, numbers sometimes as strings
func defaultStocks() []map[string]any {
	return []map[string]any{
		{"id": 1, "symbol": "VNM", "open": 74.0, "high": 76.1, "low": 73.8, "close": "75.50", "prevClose": 74.2, "change": 1.3, "changePercent": 1.75, "volume": "1500000", "timestamp": "2025-01-10T09:00:00Z"},
		{"id": 2, "symbol": "FPT", "open": 121.0, "high": 122.0, "low": 119.5, "close": 120.25, "prevClose": 121.5, "change": -1.25, "changePercent": -1.03, "volume": 850000, "timestamp": "2025-01-10T09:00:00Z"},
		{"id": 3, "symbol": "HPG", "open": 62.4, "high": 62.9, "low": 61.9, "close": 62.40, "prevClose": 62.40, "change": 0, "changePercent": 0, "volume": 1200000, "timestamp": "2025-01-10T09:00:00Z"},
		{"id": 4, "symbol": "VCB", "open": 94.0, "high": 96.2, "low": 93.7, "close": 95.80, "prevClose": 94.1, "change": 1.7, "changePercent": 1.81, "volume": 950000, "trend": "up", "timestamp": "2025-01-10T09:00:00Z"},
		{"id": 5, "symbol": "MWG", "open": 46.0, "high": 46.4, "low": 45.1, "close": 45.30, "prevClose": 46.1, "change": -0.8, "changePercent": -1.74, "volume": 2100000, "timestamp": "2025-01-10T09:00:00Z"},
	}
}

func defaultNews() []map[string]any {
	return []map[string]any{
		{"id": 1, "title": "VN-Index closes higher on bank rally", "source": "VnExpress", "time_ago": "2 hours ago", "sentiment": "positive", "description": "Banks led gains.", "url": "https://example.com/1"},
		{"id": 2, "headline": "FPT slips after earnings miss", "publisher": "Reuters", "published_at": "2025-01-10", "summary": "Revenue below estimates.", "link": "https://example.com/2"},
		{"id": 3, "title": "Steel demand outlook steady", "author": "Bloomberg", "date": "2025-01-09"},
	}
}

func (s *Server) handleStocks(c echo.Context) error {
	s.mu.Lock()
	rows := s.stocks
	s.mu.Unlock()
	return ok(c, "", map[string]any{"stocks": rows, "total": len(rows)})
}

func (s *Server) handleStock(c echo.Context) error {
	symbol := strings.ToUpper(c.Param("symbol"))
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.stocks {
		if sym, _ := row["symbol"].(string); strings.EqualFold(sym, symbol) {
			return ok(c, "", row)
		}
	}
	return fail(c, http.StatusNotFound, "Stock "+symbol+" not found")
}

func (s *Server) handleNews(c echo.Context) error {
	limit := 0
	if v := c.QueryParam("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}
	s.mu.Lock()
	rows := s.news
	s.mu.Unlock()
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return ok(c, "", map[string]any{"news": rows})
}

func (s *Server) handleSentiment(c echo.Context) error {
	s.mu.Lock()
	data := s.sentiment
	s.mu.Unlock()
	if data == nil {
		return c.JSON(http.StatusOK, map[string]any{"success": false, "message": "No sentiment data"})
	}
	return ok(c, "", data)
}
