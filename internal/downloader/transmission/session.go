package transmission

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// SessionState is the client's position in session negotiation.
type SessionState int

const (
	StateUnauthenticated SessionState = iota
	StateAuthenticated
	StateRejected
)

func (s SessionState) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	case StateRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// sessionToken pulls the session id out of a 409 reply. The header is
// authoritative; older daemons and some reverse proxies drop it, in which case
// the id is read from the <code> element of the HTML error page.
func sessionToken(header http.Header, body []byte) string {
	if token := strings.TrimSpace(header.Get(sessionIDHeader)); token != "" {
		return token
	}
	if len(body) == 0 {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	var token string
	doc.Find("code").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		name, value, ok := strings.Cut(s.Text(), ":")
		if !ok || !strings.EqualFold(strings.TrimSpace(name), sessionIDHeader) {
			return true
		}
		token = strings.TrimSpace(value)
		return token == ""
	})
	return token
}
