package model

// Trend of a quote relative to the previous close
type Trend string

const (
	TrendUp      Trend = "up"
	TrendDown    Trend = "down"
	TrendNeutral Trend = "neutral"
)

// TrendOf derives a trend from a price change
func TrendOf(change float64) Trend {
	switch {
	case change > 0:
		return TrendUp
	case change < 0:
		return TrendDown
	default:
		return TrendNeutral
	}
}

// Stock is a normalized quote
type Stock struct {
	ID            string  `json:"id,omitempty"`
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name,omitempty"`
	Price         float64 `json:"price"`
	Open          float64 `json:"open"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	PrevClose     float64 `json:"prev_close"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
	Trend         Trend   `json:"trend"`
	Volume        int64   `json:"volume"`
	Timestamp     string  `json:"timestamp,omitempty"`
}

// NewsItem is a normalized article
type NewsItem struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Source      string `json:"source"`
	TimeAgo     string `json:"time_ago"`
	Sentiment   string `json:"sentiment"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

// Sentiment is the market-wide mood split in percent
type Sentiment struct {
	Label    string  `json:"sentiment"`
	Positive float64 `json:"positive"`
	Negative float64 `json:"negative"`
	Neutral  float64 `json:"neutral"`
}

// DefaultSentiment is used when the news service has no usable answer
func DefaultSentiment() Sentiment {
	return Sentiment{Label: "Neutral", Positive: 50, Negative: 30, Neutral: 20}
}
