package tts

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"unicode"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var markdown = goldmark.New()

var (
	htmlTagPattern     = regexp.MustCompile(`<[^>]*>`)
	bracketPattern     = regexp.MustCompile(`\[[^\]]*\]`)
	parenPattern       = regexp.MustCompile(`\([^)]*\)`)
	charCountPattern   = regexp.MustCompile(`(?i)\b\d+\s*(?:chars?|characters?|words?)\b`)
	boilerplatePattern = regexp.MustCompile(`(?i)\b(?:read more|continue reading|read the full (?:article|story)|click here)\b[\s.…:]*`)
	currencyPattern    = regexp.MustCompile(`([$€£])\s?(\d[\d,]*(?:\.\d+)?)(?:\s?(thousand|million|billion|trillion)\b)?`)
	percentPattern     = regexp.MustCompile(`(\d(?:[\d,.]*\d)?)\s?%`)
	spaceBeforePunct   = regexp.MustCompile(`\s+([.,!?;:])`)
	danglingPattern    = regexp.MustCompile(`(?i)[\s,;:\-–—]*\b(?:according to|and|or|but|the|a|an|of)[\s.…]*$`)
)

var currencyNames = map[string]string{
	"$": "dollars",
	"€": "euros",
	"£": "pounds",
}

// abbreviations are expanded so the voice does not spell them out or stop
// at the period.
var abbreviations = []struct {
	pattern *regexp.Regexp
	replace string
}{
	{regexp.MustCompile(`\bU\.S\.A\.`), "USA"},
	{regexp.MustCompile(`\bU\.S\.`), "US"},
	{regexp.MustCompile(`\bU\.K\.`), "UK"},
	{regexp.MustCompile(`\bE\.U\.`), "EU"},
	{regexp.MustCompile(`\bU\.N\.`), "UN"},
	{regexp.MustCompile(`\bInc\.`), "Incorporated"},
	{regexp.MustCompile(`\bCorp\.`), "Corporation"},
	{regexp.MustCompile(`\bLtd\.`), "Limited"},
	{regexp.MustCompile(`\bCo\.`), "Company"},
	{regexp.MustCompile(`\bvs\.`), "versus"},
	{regexp.MustCompile(`\be\.g\.`), "for example"},
	{regexp.MustCompile(`\bi\.e\.`), "that is"},
	{regexp.MustCompile(`\betc\.`), "et cetera"},
	{regexp.MustCompile(`\bapprox\.`), "approximately"},
	{regexp.MustCompile(`\bDr\.`), "Doctor"},
	{regexp.MustCompile(`\bMr\.`), "Mister"},
	{regexp.MustCompile(`\bMrs\.`), "Missus"},
	{regexp.MustCompile(`\bGov\.`), "Governor"},
	{regexp.MustCompile(`\bSen\.`), "Senator"},
	{regexp.MustCompile(`\bRep\.`), "Representative"},
}

// Prepare cleans article text for narration. It removes markup and
// metadata, expands abbreviations, spells out currency and percentages,
// drops a trailing connector left by truncation and ends the text with
// punctuation. Prepare(Prepare(s)) == Prepare(s).
func Prepare(s string) string {
	s = htmlTagPattern.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	s = plainText(s)

	s = bracketPattern.ReplaceAllString(s, " ")
	s = parenPattern.ReplaceAllString(s, " ")
	s = charCountPattern.ReplaceAllString(s, " ")
	s = boilerplatePattern.ReplaceAllString(s, " ")
	s = strings.NewReplacer(
		"&", " and ",
		"…", "...",
		"[", " ", "]", " ",
		"(", " ", ")", " ",
		"\u00a0", " ",
	).Replace(s)

	for _, a := range abbreviations {
		s = a.pattern.ReplaceAllString(s, a.replace)
	}
	s = currencyPattern.ReplaceAllStringFunc(s, spellCurrency)
	s = percentPattern.ReplaceAllString(s, "$1 percent")

	s = strings.Join(strings.Fields(s), " ")
	s = spaceBeforePunct.ReplaceAllString(s, "$1")

	for {
		trimmed := danglingPattern.ReplaceAllString(s, "")
		trimmed = strings.TrimRightFunc(trimmed, func(r rune) bool {
			return unicode.IsSpace(r) || strings.ContainsRune(",;:-–—", r)
		})
		if trimmed == s {
			break
		}
		s = trimmed
	}

	if s == "" {
		return ""
	}
	if !endsSentence(s) {
		s += "."
	}
	return s
}

func spellCurrency(m string) string {
	parts := currencyPattern.FindStringSubmatch(m)
	amount := parts[2]
	if parts[3] != "" {
		amount += " " + parts[3]
	}
	return fmt.Sprintf("%s %s", amount, currencyNames[parts[1]])
}

func endsSentence(s string) bool {
	s = strings.TrimRight(s, `"'”’`)
	if s == "" {
		return false
	}
	switch s[len(s)-1] {
	case '.', '!', '?':
		return true
	}
	return false
}

// plainText renders markdown to text, keeping only what would be read.
// Ordered list markers are kept so a sentence that starts with a number
// followed by a period survives a second pass unchanged.
func plainText(src string) string {
	source := []byte(src)
	doc := markdown.Parser().Parse(text.NewReader(source))

	var b strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Text:
			if entering {
				b.Write(node.Segment.Value(source))
				if node.SoftLineBreak() || node.HardLineBreak() {
					b.WriteByte(' ')
				}
			}
			return ast.WalkContinue, nil
		case *ast.String:
			if entering {
				b.Write(node.Value)
			}
			return ast.WalkContinue, nil
		case *ast.AutoLink:
			if entering {
				b.Write(node.Label(source))
			}
			return ast.WalkSkipChildren, nil
		case *ast.RawHTML, *ast.HTMLBlock:
			return ast.WalkSkipChildren, nil
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			if entering {
				lines := node.Lines()
				for i := 0; i < lines.Len(); i++ {
					line := lines.At(i)
					b.Write(line.Value(source))
				}
				b.WriteByte('\n')
			}
			return ast.WalkSkipChildren, nil
		case *ast.Heading:
			if !entering {
				closeSentence(&b)
			}
		case *ast.ListItem:
			if entering {
				if list, ok := node.Parent().(*ast.List); ok && list.IsOrdered() {
					fmt.Fprintf(&b, "%d%c ", list.Start+itemIndex(node), list.Marker)
				}
			}
		}

		if !entering && n.Type() == ast.TypeBlock {
			b.WriteByte('\n')
		}
		return ast.WalkContinue, nil
	})

	return b.String()
}

// closeSentence ends a heading with a period so it is not read as the start
// of the following paragraph.
func closeSentence(b *strings.Builder) {
	s := strings.TrimRightFunc(b.String(), unicode.IsSpace)
	if s != "" && !endsSentence(s) {
		b.WriteByte('.')
	}
}

func itemIndex(item ast.Node) int {
	i := 0
	for sib := item.PreviousSibling(); sib != nil; sib = sib.PreviousSibling() {
		i++
	}
	return i
}
