package collections

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/oakwood-commons/archsearch/internal/archive"
)

// excerptRunes bounds testimonial excerpts used when a record has no description.
const excerptRunes = 160

// Record is the union of the fields the collections return. Each category
// reads only the fields it owns.
type Record struct {
	ID              string      `json:"_id"`
	Slug            string      `json:"slug"`
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	Year            Year        `json:"year"`
	PublishedAt     string      `json:"publishedAt"`
	CreatedAt       string      `json:"createdAt"`
	IssueDate       string      `json:"issueDate"`
	Date            string      `json:"date"`
	TestimonialText string      `json:"testimonialText"`
	Photos          []PhotoItem `json:"photos"`
}

// PhotoItem is one photo of an album. Only the date is consumed.
type PhotoItem struct {
	Date string `json:"date"`
}

// Year accepts a JSON number, string or null.
type Year string

// UnmarshalJSON implements json.Unmarshaler.
func (y *Year) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*y = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*y = Year(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*y = Year(n.String())
	return nil
}

// ToResult maps a record onto a Result for category c. It reports false when
// the record lacks an identifier or a title.
func (r Record) ToResult(c archive.Category) (archive.Result, bool) {
	id := strings.TrimSpace(r.Slug)
	if c == archive.References && id == "" {
		id = strings.TrimSpace(r.ID)
	}
	title := collapse(r.Title)
	if id == "" || title == "" {
		return archive.Result{}, false
	}

	res := archive.Result{
		ID:          id,
		Title:       title,
		Description: cleanDescription(r.Description),
		Href:        c.ItemHref(id),
		Category:    c,
	}

	switch c {
	case archive.Documents:
		res.Meta = firstNonEmpty(string(r.Year), yearOf(r.PublishedAt), yearOf(r.CreatedAt))
	case archive.Photos:
		var photoDate string
		if len(r.Photos) > 0 {
			photoDate = r.Photos[0].Date
		}
		res.Meta = firstNonEmpty(dateOf(photoDate), dateOf(r.PublishedAt), dateOf(r.CreatedAt))
	case archive.Periodicals:
		res.Meta = firstNonEmpty(dateOf(r.IssueDate), dateOf(r.PublishedAt), dateOf(r.CreatedAt))
	case archive.Testimonials:
		res.Meta = firstNonEmpty(dateOf(r.Date), dateOf(r.PublishedAt), dateOf(r.CreatedAt))
		if res.Description == "" {
			res.Description = excerpt(cleanDescription(r.TestimonialText), excerptRunes)
		}
	case archive.References:
		res.Meta = string(r.Year)
	}
	return res, true
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006-01",
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// dateOf renders a date as YYYY-MM-DD, or returns the trimmed input when it
// is not a recognised date.
func dateOf(s string) string {
	if t, ok := parseDate(s); ok {
		return t.Format("2006-01-02")
	}
	return strings.TrimSpace(s)
}

// yearOf extracts the year of a date string.
func yearOf(s string) string {
	if t, ok := parseDate(s); ok {
		return strconv.Itoa(t.Year())
	}
	s = strings.TrimSpace(s)
	if len(s) >= 4 {
		if _, err := strconv.Atoi(s[:4]); err == nil {
			return s[:4]
		}
	}
	return ""
}

// cleanDescription converts HTML fragments to markdown text and collapses
// whitespace.
func cleanDescription(s string) string {
	if s == "" {
		return ""
	}
	if strings.ContainsAny(s, "<&") {
		if md, err := htmltomarkdown.ConvertString(s); err == nil {
			s = md
		}
	}
	return collapse(s)
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func excerpt(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	cut := strings.TrimRight(string(runes[:limit]), " ,.;:")
	return cut + "…"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
