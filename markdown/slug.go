package markdown

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// slugger hands out heading ids that are unique within one document.
type slugger struct {
	used map[string]struct{}
}

var _ parser.IDs = (*slugger)(nil)

func newSlugger() *slugger {
	return &slugger{used: make(map[string]struct{})}
}

// Generate implements parser.IDs. Collisions get a -1, -2, ... suffix.
func (s *slugger) Generate(value []byte, kind ast.NodeKind) []byte {
	base := Slugify(string(value))
	if base == "" {
		if kind == ast.KindHeading {
			base = "heading"
		} else {
			base = "id"
		}
	}

	id := base
	for i := 1; s.taken(id); i++ {
		id = base + "-" + strconv.Itoa(i)
	}
	s.used[id] = struct{}{}
	return []byte(id)
}

// Put implements parser.IDs.
func (s *slugger) Put(value []byte) {
	s.used[string(value)] = struct{}{}
}

func (s *slugger) taken(id string) bool {
	_, ok := s.used[id]
	return ok
}

// Slugify turns heading text into a URL-safe id: diacritics are folded,
// letters are lowercased, whitespace, '-' and '_' become '-', and
// everything else is dropped.
func Slugify(s string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if err == nil {
		s = folded
	}

	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		case unicode.IsSpace(r) || r == '-' || r == '_':
			b.WriteByte('-')
		}
	}
	return b.String()
}
