package session

import (
	"errors"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// ErrNoToken means the landing page parsed but carried no anti-forgery token
var ErrNoToken = errors.New("no anti-forgery token in page")

// Token is the credential set the timetable endpoint expects alongside a POST
type Token struct {
	Value     string
	ModuleID  string
	TabID     string
	Cookies   []*http.Cookie
	FetchedAt time.Time
}

// Age reports how long ago the token was fetched
func (t Token) Age(now time.Time) time.Duration {
	return now.Sub(t.FetchedAt)
}

var (
	moduleIDPattern = regexp.MustCompile(`(?i)moduleid["']?\s*[:=,]\s*["']?(\d+)`)
	tabIDPattern    = regexp.MustCompile(`(?i)tabid["']?\s*[:=,]\s*["']?(\d+)`)
)

// Names the token is published under, as a hidden form field or a meta tag
var tokenNames = []string{"__RequestVerificationToken", "RequestVerificationToken", "csrf-token"}

// ParseToken reads the anti-forgery token and the module/tab identifiers from a landing page.
// Identifiers that are not on the page are left empty.
func ParseToken(r io.Reader) (Token, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return Token{}, err
	}

	var tok Token
	for _, name := range tokenNames {
		if v, ok := doc.Find(`input[name="` + name + `"]`).First().Attr("value"); ok && strings.TrimSpace(v) != "" {
			tok.Value = strings.TrimSpace(v)
			break
		}
		if v, ok := doc.Find(`meta[name="` + name + `"]`).First().Attr("content"); ok && strings.TrimSpace(v) != "" {
			tok.Value = strings.TrimSpace(v)
			break
		}
	}
	if tok.Value == "" {
		return Token{}, ErrNoToken
	}

	if v, ok := doc.Find("[data-moduleid]").First().Attr("data-moduleid"); ok {
		tok.ModuleID = strings.TrimSpace(v)
	}
	if v, ok := doc.Find("[data-tabid]").First().Attr("data-tabid"); ok {
		tok.TabID = strings.TrimSpace(v)
	}

	// DNN pages also expose the ids to their scripts, e.g. dnn.setVar('sf_tabId','248')
	scripts := doc.Find("script").Text()
	if tok.ModuleID == "" {
		if m := moduleIDPattern.FindStringSubmatch(scripts); m != nil {
			tok.ModuleID = m[1]
		}
	}
	if tok.TabID == "" {
		if m := tabIDPattern.FindStringSubmatch(scripts); m != nil {
			tok.TabID = m[1]
		}
	}

	return tok, nil
}
