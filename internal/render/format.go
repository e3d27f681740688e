package render

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/mattn/go-runewidth"
	"golang.org/x/net/html"
)

var htmlTagRe = regexp.MustCompile(`(?i)<(html|body|div|p|br|table|span|a|ul|ol|li|h[1-6]|blockquote)[\s>/]`)

// LooksLikeHTML reports whether body is probably an HTML document or fragment
func LooksLikeHTML(body string) bool {
	return htmlTagRe.MatchString(body)
}

// PlainText turns an email body into terminal-safe text. HTML bodies are
// flattened; anything that fails to parse is shown as-is.
func PlainText(body string) string {
	text := body
	if LooksLikeHTML(body) {
		if t, err := htmlToText(body); err == nil && strings.TrimSpace(t) != "" {
			text = t
		}
	}
	return strings.TrimSpace(sanitizeForTerminal(normalizeNewlines(text)))
}

// Preview flattens body into a single line cut to width display cells
func Preview(body string, width int) string {
	return Truncate(strings.Join(strings.Fields(PlainText(body)), " "), width)
}

// htmlToText walks the DOM emitting text, with block elements on their own lines
func htmlToText(src string) (string, error) {
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return "", err
	}
	var b strings.Builder
	quoteDepth := 0

	var visit func(n *html.Node)
	children := func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			text := collapseSpaces(n.Data)
			if strings.TrimSpace(text) == "" {
				return
			}
			if quoteDepth > 0 && atLineStart(&b) {
				b.WriteString(strings.Repeat("> ", quoteDepth))
				text = strings.TrimLeft(text, " ")
			}
			b.WriteString(text)
			return
		case html.ElementNode:
		default:
			children(n)
			return
		}

		switch strings.ToLower(n.Data) {
		case "head", "style", "script", "title", "meta", "link":
			return
		case "br":
			b.WriteByte('\n')
		case "hr":
			b.WriteString("\n-----\n")
		case "p", "h1", "h2", "h3", "h4", "h5", "h6":
			ensureNewline(&b)
			children(n)
			b.WriteString("\n\n")
		case "div", "section", "tr", "table":
			ensureNewline(&b)
			children(n)
			ensureNewline(&b)
		case "li":
			ensureNewline(&b)
			b.WriteString("- ")
			children(n)
			ensureNewline(&b)
		case "td", "th":
			children(n)
			b.WriteByte(' ')
		case "blockquote":
			ensureNewline(&b)
			quoteDepth++
			children(n)
			quoteDepth--
			ensureNewline(&b)
		case "a":
			before := b.Len()
			children(n)
			href := attr(n, "href")
			label := strings.TrimSpace(b.String()[before:])
			if strings.HasPrefix(href, "http") && href != label {
				b.WriteString(" (" + href + ")")
			}
		default:
			children(n)
		}
	}
	visit(doc)
	return b.String(), nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func atLineStart(b *strings.Builder) bool {
	s := b.String()
	return s == "" || strings.HasSuffix(s, "\n")
}

func ensureNewline(b *strings.Builder) {
	if !atLineStart(b) {
		b.WriteByte('\n')
	}
}

func collapseSpaces(s string) string {
	var b strings.Builder
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !space {
				b.WriteByte(' ')
			}
			space = true
			continue
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

// sanitizeForTerminal replaces rich-text glyphs that render as tofu
func sanitizeForTerminal(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '\u00a0', '\u202f':
			b.WriteRune(' ')
		case '\u200b', '\u200c', '\u200d', '\ufeff', '\u00ad', '\u2060':
		case '\u2013', '\u2014':
			b.WriteRune('-')
		case '\u2018', '\u2019':
			b.WriteRune('\'')
		case '\u201c', '\u201d':
			b.WriteRune('"')
		case '\u2026':
			b.WriteString("...")
		default:
			if unicode.IsControl(r) && r != '\n' && r != '\t' {
				continue
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	lines := strings.Split(s, "\n")
	for i, ln := range lines {
		lines[i] = strings.TrimRightFunc(ln, unicode.IsSpace)
	}
	s = strings.Join(lines, "\n")
	// collapse 3+ blank lines into 2
	for strings.Contains(s, "\n\n\n") {
		s = strings.ReplaceAll(s, "\n\n\n", "\n\n")
	}
	return s
}

// Wrap breaks text into lines of at most width display cells. Quote prefixes
// ("> ") are repeated on continuation lines and long words are never split.
func Wrap(text string, width int) string {
	if width <= 0 {
		return text
	}
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		prefix := ""
		rest := line
		for strings.HasPrefix(rest, "> ") {
			prefix += "> "
			rest = rest[2:]
		}
		words := strings.Fields(rest)
		if len(words) == 0 {
			out = append(out, strings.TrimRight(line, " "))
			continue
		}
		cur := prefix + words[0]
		for _, w := range words[1:] {
			if runewidth.StringWidth(cur)+1+runewidth.StringWidth(w) > width {
				out = append(out, cur)
				cur = prefix + w
				continue
			}
			cur += " " + w
		}
		out = append(out, cur)
	}
	return strings.Join(out, "\n")
}
