package models

// Requests for the market data HTTP endpoints. Defined in domain for
// consistency and reuse.

type StockRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	Start  string `query:"start" json:"start" validate:"required,datetime=2006-01-02"`
	End    string `query:"end" json:"end" validate:"required,datetime=2006-01-02"`
}

type NewsRequest struct {
	Query string `query:"query" json:"query" validate:"required,min=1,max=200"`
	From  string `query:"from" json:"from" validate:"required,datetime=2006-01-02"`
	Lang  string `query:"lang" json:"lang" default:"de" validate:"len=2"`
}

type AnalyzeRequest struct {
	Title       string `query:"title" json:"title" validate:"required"`
	Description string `query:"description" json:"description"`
	Topic       string `query:"topic" json:"topic" validate:"required"`
}

// StockResponse is the payload for price endpoints; bars are ordered by
// date ascending.
type StockResponse struct {
	Symbol string       `json:"symbol"`
	Source string       `json:"source"`
	Data   []PricePoint `json:"data"`
}

// NewsResponse is the payload for the news endpoint; articles are
// ordered newest first.
type NewsResponse struct {
	Query        string        `json:"query"`
	From         string        `json:"from"`
	TotalResults int           `json:"totalResults"`
	Articles     []ArticleJSON `json:"articles"`
}

// AnalyzeResponse carries the raw scorer verdict: a signed score token
// such as "+7" or "-2", or one of the scorer's sentinel strings.
type AnalyzeResponse struct {
	Topic   string `json:"topic"`
	Verdict string `json:"verdict"`
}
