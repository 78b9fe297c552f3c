package markdown

import (
	"context"
	"strings"
	"testing"
	"unicode"

	"golang.org/x/net/html"

	"github.com/ay/mdrender/request"
)

// stripSpace removes all whitespace so markup can be compared regardless of
// line breaks.
func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// hrefs returns the href of every <a> element in out, in document order.
func hrefs(t *testing.T, out string) []string {
	t.Helper()

	var found []string
	z := html.NewTokenizer(strings.NewReader(out))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return found
		case html.StartTagToken:
			tok := z.Token()
			if tok.Data != "a" {
				continue
			}
			for _, attr := range tok.Attr {
				if attr.Key == "href" {
					found = append(found, attr.Val)
				}
			}
		}
	}
}

type feature func(*request.Context)

func preview() feature {
	return func(rc *request.Context) { request.Add(rc, request.Preview{}) }
}

func contextPath(path string) feature {
	return func(rc *request.Context) {
		request.Add(rc, request.NewSiteProperties(map[string]any{request.ContextPathKey: path}))
	}
}

// withRequest returns a context carrying a request context with features.
func withRequest(features ...feature) context.Context {
	rc := request.New()
	for _, f := range features {
		f(rc)
	}
	return request.NewContext(context.Background(), rc)
}
