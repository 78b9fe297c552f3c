package markdown

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
)

func TestRender(t *testing.T) {
	r := New()
	defer func() { _ = r.Close() }()

	tests := []struct {
		name     string
		ctx      context.Context
		markdown string
		want     string
	}{
		{
			name:     "Bold",
			ctx:      context.Background(),
			markdown: "**Bold**",
			want:     `<p><strong>Bold</strong></p>`,
		},
		{
			name:     "ExternalLink",
			ctx:      context.Background(),
			markdown: "[Link text Here](https://link-url-here.org)",
			want:     `<p><a href="https://link-url-here.org">Link text Here</a></p>`,
		},
		{
			name:     "ExternalLinkEscaped",
			ctx:      context.Background(),
			markdown: "[Link text Here](https://link-url-here.org?test=true&demo=false)",
			want:     `<p><a href="https://link-url-here.org?test=true&amp;demo=false">Link text Here</a></p>`,
		},
		{
			name:     "InternalLinkWithoutRequest",
			ctx:      context.Background(),
			markdown: "[Link text Here](/internal/url)",
			want:     `<p><a href="/internal/url">Link text Here</a></p>`,
		},
		{
			name:     "Preview",
			ctx:      withRequest(preview()),
			markdown: "[Link text Here](/internal/url)",
			want:     `<p><a href="/internal/url?preview">Link text Here</a></p>`,
		},
		{
			name:     "PreviewAppend",
			ctx:      withRequest(preview()),
			markdown: "[Link text Here](/internal/url?hello=world)",
			want:     `<p><a href="/internal/url?hello=world&amp;preview">Link text Here</a></p>`,
		},
		{
			name:     "PreviewExternalHTTP",
			ctx:      withRequest(preview()),
			markdown: "[Link text Here](http://external.org/url?hello=world)",
			want:     `<p><a href="http://external.org/url?hello=world">Link text Here</a></p>`,
		},
		{
			name:     "PreviewExternalHTTPS",
			ctx:      withRequest(preview()),
			markdown: "[Link text Here](https://external.org/url?hello=world)",
			want:     `<p><a href="https://external.org/url?hello=world">Link text Here</a></p>`,
		},
		{
			name:     "ContextPath",
			ctx:      withRequest(contextPath("/de")),
			markdown: "[Link text Here](/internal/url)",
			want:     `<p><a href="/de/internal/url">Link text Here</a></p>`,
		},
		{
			name:     "ContextPathInPreview",
			ctx:      withRequest(preview(), contextPath("/de")),
			markdown: "[Link text Here](/internal/url)",
			want:     `<p><a href="/de/internal/url?preview">Link text Here</a></p>`,
		},
		{
			name:     "ReferenceLinkWithTitle",
			ctx:      withRequest(contextPath("/de")),
			markdown: "[docs][ref]\n\n[ref]: /docs \"The Docs\"",
			want:     `<p><a href="/de/docs" title="The Docs">docs</a></p>`,
		},
		{
			name:     "LinkWithNestedInlines",
			ctx:      withRequest(preview()),
			markdown: "[**bold** link](/a)",
			want:     `<p><a href="/a?preview"><strong>bold</strong> link</a></p>`,
		},
		{
			name:     "HeadingID",
			ctx:      context.Background(),
			markdown: "# heading",
			want:     `<h1><a href="#heading" id="heading">heading</a></h1>`,
		},
		{
			name:     "HeadingAnchorNotRewritten",
			ctx:      withRequest(preview(), contextPath("/de")),
			markdown: "## Second Level",
			want:     `<h2><a href="#second-level" id="second-level">Second Level</a></h2>`,
		},
		{
			name:     "TextEscaped",
			ctx:      context.Background(),
			markdown: `a < b & "c"`,
			want:     `<p>a &lt; b &amp; &quot;c&quot;</p>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Render(tt.ctx, tt.markdown)
			assert.Equal(t, stripSpace(tt.want), stripSpace(got))
		})
	}
}

func TestRenderHeadings(t *testing.T) {
	r := New()

	t.Run("Collisions", func(t *testing.T) {
		got := r.Render(context.Background(), "# Intro\n\n## Intro\n\n### Intro")
		assert.Equal(t, []string{"#intro", "#intro-1", "#intro-2"}, hrefs(t, got))
		assert.Contains(t, got, `id="intro-2"`)
	})

	t.Run("UniquePerRender", func(t *testing.T) {
		first := r.Render(context.Background(), "# Intro")
		second := r.Render(context.Background(), "# Intro")
		assert.Equal(t, first, second)
		assert.Contains(t, second, `id="intro"`)
	})

	t.Run("InlineMarkupStripped", func(t *testing.T) {
		got := r.Render(context.Background(), "# Hello *brave* `new` World!")
		assert.Contains(t, got, `href="#hello-brave-new-world"`)
		assert.Contains(t, got, "<em>brave</em>")
		assert.Contains(t, got, "<code>new</code>")
	})

	t.Run("SetextHeading", func(t *testing.T) {
		got := r.Render(context.Background(), "Title\n=====")
		assert.Equal(t, stripSpace(`<h1><a href="#title" id="title">Title</a></h1>`), stripSpace(got))
	})

	t.Run("IDOnHeading", func(t *testing.T) {
		r := New(WithAnchorOptions(AnchorOptions{IDOnHeading: true}))
		got := r.Render(context.Background(), "# heading")
		assert.Equal(t, stripSpace(`<h1 id="heading"><a href="#heading">heading</a></h1>`), stripSpace(got))
	})

	t.Run("EmptyHeading", func(t *testing.T) {
		got := r.Render(context.Background(), "#")
		assert.Equal(t, "<h1></h1>", strings.TrimSpace(got))
	})
}

func TestRenderTable(t *testing.T) {
	r := New()
	got := r.Render(withRequest(preview()), "| Name | Link |\n|------|:----:|\n| a | [x](/x) |\n")

	assert.Contains(t, got, "<table>")
	assert.Contains(t, got, "<thead>")
	assert.Contains(t, got, "<th>Name</th>")
	assert.Contains(t, got, "text-align:center")
	assert.Contains(t, got, "<td>a</td>")
	assert.Equal(t, []string{"/x?preview"}, hrefs(t, got))
}

func TestRenderTotal(t *testing.T) {
	r := New()
	inputs := []string{
		"",
		"[",
		"[a](",
		"[a](<b",
		"![",
		"|||",
		"| a |\n|--|--|--|",
		"#######",
		"**",
		"*_*_*_",
		"<",
		"\x00",
		"```",
		"> > > >",
		"[a]\n\n[a]:",
		strings.Repeat("[", 1000),
		strings.Repeat("*a", 1000),
	}

	for i, in := range inputs {
		t.Run(fmt.Sprintf("Input%d", i), func(t *testing.T) {
			assert.NotPanics(t, func() {
				_ = r.Render(withRequest(preview(), contextPath("/de")), in)
			})
		})
	}
}

func TestRenderUnsafe(t *testing.T) {
	t.Run("DangerousLinkDropped", func(t *testing.T) {
		r := New(WithUnsafe(false))
		got := r.Render(context.Background(), "[x](javascript:alert(1))")
		assert.Equal(t, []string{""}, hrefs(t, got))
	})

	t.Run("RawHTMLKeptByDefault", func(t *testing.T) {
		r := New()
		got := r.Render(context.Background(), "<div class=\"note\">hi</div>")
		assert.Contains(t, got, `<div class="note">hi</div>`)
	})

	t.Run("RawHTMLOmitted", func(t *testing.T) {
		r := New(WithUnsafe(false))
		got := r.Render(context.Background(), "<div class=\"note\">hi</div>")
		assert.NotContains(t, got, "<div")
	})
}

func TestRenderSanitizer(t *testing.T) {
	r := New(WithSanitizer(true))
	got := r.Render(withRequest(preview()), "<script>alert(1)</script>\n\n[ok](/ok)")

	assert.NotContains(t, got, "<script")
	assert.Equal(t, []string{"/ok?preview"}, hrefs(t, got))
}

func TestRenderHighlighting(t *testing.T) {
	source := "```go\nfunc main() {}\n```"

	t.Run("Enabled", func(t *testing.T) {
		got := New().Render(context.Background(), source)
		assert.Contains(t, got, "<pre")
		assert.Contains(t, got, "main")
		assert.NotContains(t, got, `<pre><code class="language-go">`)
	})

	t.Run("Disabled", func(t *testing.T) {
		got := New(WithHighlightStyle("")).Render(context.Background(), source)
		assert.Contains(t, got, `<pre><code class="language-go">`)
	})
}

type relProvider struct {
	calls int
	mu    sync.Mutex
}

func (p *relProvider) Applies(kind ast.NodeKind) bool {
	return kind == ast.KindLink || kind == KindHeadingAnchor
}

func (p *relProvider) SetAttributes(_ context.Context, node ast.Node, attrs *Attributes) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()

	if node.Kind() == KindHeadingAnchor {
		attrs.Set("class", "anchor")
		return
	}
	if href, _ := attrs.Get("href"); strings.HasPrefix(href, "http") {
		attrs.Set("rel", "noopener")
	}
}

func TestAttributeProviders(t *testing.T) {
	p := &relProvider{}
	r := New(WithAttributeProviders(p))

	got := r.Render(withRequest(preview()), "# Top\n\n[in](/in) and [out](https://ex.org)")

	assert.Contains(t, got, `<a href="#top" id="top" class="anchor">`)
	assert.Contains(t, got, `<a href="/in?preview">`)
	assert.Contains(t, got, `<a href="https://ex.org" rel="noopener">`)
	assert.Equal(t, 3, p.calls)
}

func TestConvertWithParserContext(t *testing.T) {
	r := New()

	var buf bytes.Buffer
	pc := NewParserContext(withRequest(contextPath("/de")))
	err := r.Markdown().Convert([]byte("[a](/a)"), &buf, parser.WithContext(pc))
	require.NoError(t, err)
	assert.Equal(t, []string{"/de/a"}, hrefs(t, buf.String()))

	buf.Reset()
	err = r.Markdown().Convert([]byte("[a](/a)"), &buf)
	require.NoError(t, err)
	assert.Equal(t, []string{"/a"}, hrefs(t, buf.String()))
}

func TestParse(t *testing.T) {
	r := New()
	doc := r.Parse(context.Background(), "# Title\n\n[a](/a)")

	require.NotNil(t, doc.Root())
	assert.Equal(t, ast.KindDocument, doc.Root().Kind())

	heading, ok := doc.Root().FirstChild().(*ast.Heading)
	require.True(t, ok)
	assert.Equal(t, 1, heading.Level)

	anchor, ok := heading.FirstChild().(*HeadingAnchor)
	require.True(t, ok)
	assert.Equal(t, "title", anchor.ID)
}

func TestRenderConcurrentIsolation(t *testing.T) {
	r := New()
	const workers = 64

	var wg sync.WaitGroup
	errs := make(chan error, workers)

	for i := range workers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			ctx := context.Background()
			want := "/page"
			switch i % 3 {
			case 0:
				ctx = withRequest(preview())
				want = "/page?preview"
			case 1:
				ctx = withRequest(contextPath(fmt.Sprintf("/site%d", i)))
				want = fmt.Sprintf("/site%d/page", i)
			}

			for range 20 {
				got := hrefs(t, r.Render(ctx, "[p](/page)"))
				if len(got) != 1 || got[0] != want {
					errs <- fmt.Errorf("worker %d: got %v, want %s", i, got, want)
					return
				}
			}
		}(i)
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}
