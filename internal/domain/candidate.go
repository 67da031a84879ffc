package domain

import "strings"

// RawRecord is what collaborators (search providers, archive parser) hand over before
// normalization. Empty strings mean the provider had nothing for that field.
type RawRecord struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Source      string `json:"source"`
	Author      string `json:"author"`
	PublishedAt string `json:"publishedAt"`
	Description string `json:"description"`
	Content     string `json:"content"`
	Location    string `json:"location"`
	Language    string `json:"language,omitempty"`
}

// Candidate is a single article proposed for ingestion. Optional fields are nil when absent.
type Candidate struct {
	Title       string
	URL         string
	Source      *string
	Author      *string
	PublishedAt *string
	Description *string
	Content     *string
	Location    *string
}

// CombinedText renders the text used for embedding and similarity retrieval.
// Absent fields render as empty strings; the field order is fixed.
func (c Candidate) CombinedText() string {
	return strings.Join([]string{
		"Title: " + c.Title,
		"Location: " + Value(c.Location),
		"Published At: " + Value(c.PublishedAt),
		"Content: " + Value(c.Content),
	}, "\n")
}

// HasText reports whether any of the embedded fields carries text.
func (c Candidate) HasText() bool {
	for _, v := range []string{c.Title, Value(c.Location), Value(c.PublishedAt), Value(c.Content)} {
		if strings.TrimSpace(v) != "" {
			return true
		}
	}
	return false
}

// Value dereferences an optional field, returning "" when absent.
func Value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Optional turns an empty string into an absent value.
func Optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
