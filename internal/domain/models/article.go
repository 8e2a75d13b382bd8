package models

import "time"

// Article is the canonical news record. Identity is (query, title):
// the title is the only de-duplication key the upstream data offers
// within one query's result set. First write wins; stored articles are
// never mutated.
type Article struct {
	Query       string    `json:"query"`
	Title       string    `json:"title"`
	PublishedAt time.Time `json:"published_at"`
	Description string    `json:"description"`
	Content     string    `json:"content"`
	Source      string    `json:"source"`
	Author      string    `json:"author"`
	URL         string    `json:"url"`
}

// RawArticle mirrors the provider payload, including the nested source
// object, before normalization.
type RawArticle struct {
	Source struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"source"`
	Author      string `json:"author"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
	Content     string `json:"content"`
}

// ArticleJSON is the wire shape of one article in HTTP responses,
// compatible with the upstream provider format consumers already parse.
type ArticleJSON struct {
	Title       string `json:"title"`
	PublishedAt string `json:"publishedAt"`
	Source      struct {
		Name string `json:"name"`
	} `json:"source"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Author      string `json:"author"`
	Content     string `json:"content"`
}

// NewArticleJSON converts a stored article to its response shape.
func NewArticleJSON(a *Article) ArticleJSON {
	out := ArticleJSON{
		Title:       a.Title,
		PublishedAt: a.PublishedAt.UTC().Format(time.RFC3339),
		Description: a.Description,
		URL:         a.URL,
		Author:      a.Author,
		Content:     a.Content,
	}
	out.Source.Name = a.Source
	return out
}
