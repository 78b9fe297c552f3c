package markdown

import (
	"context"
	"strings"

	"github.com/yuin/goldmark/ast"

	"github.com/ay/mdrender/internal/logger"
	"github.com/ay/mdrender/request"
)

// previewMarker is appended to internal links rendered in preview mode.
const previewMarker = "preview"

// RewriteLink returns the href a link should carry for the request described
// by rc. External links (anything starting with "http") are never touched.
// Root-relative links are moved under the site's context path, and in
// preview mode every internal link gets a preview query marker.
func RewriteLink(href string, rc *request.Context) string {
	if rc == nil || strings.HasPrefix(href, "http") {
		return href
	}

	if site, ok := request.Lookup[request.SiteProperties](rc); ok {
		contextPath := site.ContextPath()
		if contextPath != "/" && !strings.HasPrefix(href, contextPath) && strings.HasPrefix(href, "/") {
			href = contextPath + href
		}
	}

	if request.Has[request.Preview](rc) {
		if strings.Contains(href, "?") {
			href += "&" + previewMarker
		} else {
			href += "?" + previewMarker
		}
	}

	return href
}

// LinkRewriter is the AttributeProvider that applies RewriteLink to the
// href of every Markdown link, using the request context found in the
// render context.
type LinkRewriter struct{}

var _ AttributeProvider = LinkRewriter{}

// Applies implements AttributeProvider.
func (LinkRewriter) Applies(kind ast.NodeKind) bool {
	return kind == ast.KindLink
}

// SetAttributes implements AttributeProvider.
func (LinkRewriter) SetAttributes(ctx context.Context, _ ast.Node, attrs *Attributes) {
	rc, ok := request.FromContext(ctx)
	if !ok {
		return
	}
	href, ok := attrs.Get("href")
	if !ok {
		return
	}
	rewritten := RewriteLink(href, rc)
	if rewritten != href {
		logger.Debug("rewrote link %q to %q", href, rewritten)
	}
	attrs.Set("href", rewritten)
}
