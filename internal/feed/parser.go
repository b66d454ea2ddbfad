package feed

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/text/encoding/htmlindex"
)

// ErrMalformed is returned when the feed body is not a usable RSS document.
var ErrMalformed = errors.New("malformed feed")

// Item is one entry of the feed.
type Item struct {
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	Category    string    `json:"category,omitempty"` // quality classification when the feed supplies one
	GUID        string    `json:"guid,omitempty"`
	PublishDate time.Time `json:"publishDate,omitempty"`
}

type rssFeed struct {
	XMLName xml.Name    `xml:"rss"`
	Channel *rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title string    `xml:"title"`
	Items []rssItem `xml:"item"`
}

type rssItem struct {
	Title      string       `xml:"title"`
	Link       string       `xml:"link"`
	GUID       string       `xml:"guid"`
	PubDate    string       `xml:"pubDate"`
	Categories []string     `xml:"category"`
	Enclosure  rssEnclosure `xml:"enclosure"`
}

type rssEnclosure struct {
	URL  string `xml:"url,attr"`
	Type string `xml:"type,attr"`
}

// Parse decodes an RSS 2.0 document into items, in document order. The
// encoding declared in the XML prolog is honored, so windows-1251 feeds decode
// the same as UTF-8 ones.
func Parse(data []byte) ([]Item, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charsetReader

	var doc rssFeed
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if doc.Channel == nil {
		return nil, fmt.Errorf("%w: no channel element", ErrMalformed)
	}

	items := make([]Item, 0, len(doc.Channel.Items))
	for _, it := range doc.Channel.Items {
		link := strings.TrimSpace(it.Link)
		if link == "" {
			link = strings.TrimSpace(it.Enclosure.URL)
		}

		var category string
		if len(it.Categories) > 0 {
			category = strings.TrimSpace(it.Categories[0])
		}

		items = append(items, Item{
			Title:       strings.TrimSpace(it.Title),
			Link:        link,
			Category:    category,
			GUID:        strings.TrimSpace(it.GUID),
			PublishDate: parseDate(strings.TrimSpace(it.PubDate)),
		})
	}

	return items, nil
}

func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", label, err)
	}
	return enc.NewDecoder().Reader(input), nil
}

func parseDate(s string) time.Time {
	for _, layout := range []string{
		time.RFC1123Z,
		time.RFC1123,
		time.RFC3339,
		"Mon, 2 Jan 2006 15:04:05 -0700",
		"2006-01-02 15:04:05",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
