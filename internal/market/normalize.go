package market

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/existflow/stockdash/internal/model"
)

// flexFloat accepts 1.5, "1.5" and null; unparsable values become 0
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	*f = 0
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		return nil
	}
	if v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64); err == nil {
		*f = flexFloat(v)
	}
	return nil
}

// flexString accepts strings and numbers
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = flexString(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*s = flexString(n.String())
		return nil
	}
	*s = ""
	return nil
}

// stockRow is a stock as the service sends it
type stockRow struct {
	ID             flexString `json:"id"`
	Symbol         string     `json:"symbol"`
	Name           string     `json:"name"`
	Price          *flexFloat `json:"price"`
	Close          *flexFloat `json:"close"`
	Open           flexFloat  `json:"open"`
	High           flexFloat  `json:"high"`
	Low            flexFloat  `json:"low"`
	PrevClose      flexFloat  `json:"prevClose"`
	PrevCloseSnake flexFloat  `json:"prev_close"`
	Change         flexFloat  `json:"change"`
	ChangePercent  flexFloat  `json:"changePercent"`
	ChangePctSnake flexFloat  `json:"change_percent"`
	Trend          string     `json:"trend"`
	Volume         flexFloat  `json:"volume"`
	Timestamp      string     `json:"timestamp"`
}

func (r stockRow) normalize() model.Stock {
	s := model.Stock{
		ID:            string(r.ID),
		Symbol:        strings.ToUpper(strings.TrimSpace(r.Symbol)),
		Name:          r.Name,
		Open:          float64(r.Open),
		High:          float64(r.High),
		Low:           float64(r.Low),
		PrevClose:     firstNonZero(r.PrevClose, r.PrevCloseSnake),
		Change:        float64(r.Change),
		ChangePercent: firstNonZero(r.ChangePercent, r.ChangePctSnake),
		Volume:        int64(r.Volume),
		Timestamp:     r.Timestamp,
	}
	// the service calls the last price close
	switch {
	case r.Close != nil:
		s.Price = float64(*r.Close)
	case r.Price != nil:
		s.Price = float64(*r.Price)
	}

	switch model.Trend(strings.ToLower(r.Trend)) {
	case model.TrendUp, model.TrendDown, model.TrendNeutral:
		s.Trend = model.Trend(strings.ToLower(r.Trend))
	default:
		s.Trend = model.TrendOf(s.Change)
	}
	return s
}

func firstNonZero(vals ...flexFloat) float64 {
	for _, v := range vals {
		if v != 0 {
			return float64(v)
		}
	}
	return 0
}

// newsRow covers the field names used by the different news feeds
type newsRow struct {
	ID          flexString `json:"id"`
	Title       string     `json:"title"`
	Headline    string     `json:"headline"`
	Source      string     `json:"source"`
	Publisher   string     `json:"publisher"`
	Author      string     `json:"author"`
	TimeAgo     string     `json:"time_ago"`
	PublishedAt string     `json:"published_at"`
	Date        string     `json:"date"`
	Sentiment   string     `json:"sentiment"`
	Description string     `json:"description"`
	Summary     string     `json:"summary"`
	URL         string     `json:"url"`
	Link        string     `json:"link"`
}

func (r newsRow) normalize(index int) model.NewsItem {
	id := string(r.ID)
	if id == "" {
		id = strconv.Itoa(index + 1)
	}
	return model.NewsItem{
		ID:          id,
		Title:       first(r.Title, r.Headline, "No title"),
		Source:      first(r.Source, r.Publisher, r.Author, "Unknown"),
		TimeAgo:     first(r.TimeAgo, r.PublishedAt, r.Date, "Recently"),
		Sentiment:   first(strings.ToLower(r.Sentiment), "neutral"),
		Description: first(r.Description, r.Summary),
		URL:         first(r.URL, r.Link),
	}
}

func first(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// sentimentRow accepts both *_percentage and short field names
type sentimentRow struct {
	Sentiment          string    `json:"sentiment"`
	PositivePercentage flexFloat `json:"positive_percentage"`
	NegativePercentage flexFloat `json:"negative_percentage"`
	NeutralPercentage  flexFloat `json:"neutral_percentage"`
	Positive           flexFloat `json:"positive"`
	Negative           flexFloat `json:"negative"`
	Neutral            flexFloat `json:"neutral"`
}

func (r sentimentRow) normalize() model.Sentiment {
	def := model.DefaultSentiment()
	pick := func(a, b flexFloat, fallback float64) float64 {
		if v := firstNonZero(a, b); v != 0 {
			return v
		}
		return fallback
	}
	return model.Sentiment{
		Label:    first(r.Sentiment, def.Label),
		Positive: pick(r.PositivePercentage, r.Positive, def.Positive),
		Negative: pick(r.NegativePercentage, r.Negative, def.Negative),
		Neutral:  pick(r.NeutralPercentage, r.Neutral, def.Neutral),
	}
}
