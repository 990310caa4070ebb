package collector

import (
	"bytes"
	"html"
	"net/url"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	xhtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/linkwatch/activity"
)

// BaseURL resolves relative links found in activity cards.
const BaseURL = "https://www.linkedin.com"

var (
	strict  = bluemonday.StrictPolicy()
	brRe    = regexp.MustCompile(`(?i)<br\s*/?>|</p>|</li>`)
	spaceRe = regexp.MustCompile(`[ \t\x{00a0}]+`)
)

// ParseCards extracts activity records of one kind from a section page.
// Cards whose referenced post is authored by the watched profile are
// skipped for comments and likes. At most limit records are returned
// (limit <= 0 means no bound), deduplicated by Signature.
func ParseCards(page string, kind activity.Kind, sectionURL, profileSlug string, limit int) ([]activity.Record, error) {
	doc, err := xhtml.Parse(strings.NewReader(page))
	if err != nil {
		return nil, err
	}
	var out []activity.Record
	seen := map[string]bool{}
	for _, card := range findCards(doc) {
		if limit > 0 && len(out) >= limit {
			break
		}
		if kind != activity.KindPost {
			if author := authorSlug(card); author != "" && strings.EqualFold(author, profileSlug) {
				continue
			}
		}
		link := postLink(card)
		if link == "" {
			link = sectionURL
		}
		rec, err := activity.NewRecord(kind, cardText(card), link)
		if err != nil {
			continue
		}
		sig := activity.Signature(rec)
		if seen[sig] {
			continue
		}
		seen[sig] = true
		out = append(out, rec)
	}
	return out, nil
}

// ParsePostTexts returns the distinct post texts of the all-activity page,
// in page order, at most limit of them.
func ParsePostTexts(page string, limit int) ([]string, error) {
	doc, err := xhtml.Parse(strings.NewReader(page))
	if err != nil {
		return nil, err
	}
	var out []string
	seen := map[string]bool{}
	for _, box := range findAll(doc, func(n *xhtml.Node) bool { return hasClassPrefix(n, "update-components-text") }) {
		for _, span := range findAll(box, func(n *xhtml.Node) bool { return n.DataAtom == atom.Span && getAttr(n, "dir") == "ltr" }) {
			if limit > 0 && len(out) >= limit {
				return out, nil
			}
			t := cleanText(span)
			if t == "" || seen[t] {
				continue
			}
			seen[t] = true
			out = append(out, t)
		}
	}
	return out, nil
}

// findCards returns the outermost activity cards: <article> elements and
// feed update containers. Nested matches are not returned twice.
func findCards(doc *xhtml.Node) []*xhtml.Node {
	var cards []*xhtml.Node
	var walk func(*xhtml.Node)
	walk = func(n *xhtml.Node) {
		if n.Type == xhtml.ElementNode && (n.DataAtom == atom.Article || (n.DataAtom == atom.Div && hasClass(n, "feed-shared-update-v2"))) {
			cards = append(cards, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	if len(cards) > 0 {
		return cards
	}
	// Older markup only carries the unversioned class.
	return findAll(doc, func(n *xhtml.Node) bool { return n.DataAtom == atom.Div && hasClassPrefix(n, "feed-shared-update") })
}

// cardText picks the post body of a card, falling back to all of its text.
func cardText(card *xhtml.Node) string {
	candidates := []func(*xhtml.Node) bool{
		func(n *xhtml.Node) bool { return n.DataAtom == atom.Div && hasClassPrefix(n, "update-components-text") },
		func(n *xhtml.Node) bool { return n.DataAtom == atom.Span && getAttr(n, "dir") == "ltr" },
		func(n *xhtml.Node) bool { return hasClassPrefix(n, "break-words") },
	}
	for _, match := range candidates {
		for _, n := range findAll(card, match) {
			if t := cleanText(n); t != "" {
				return t
			}
		}
	}
	return cleanText(card)
}

// postLink returns the first link to a feed update, made absolute.
func postLink(card *xhtml.Node) string {
	for _, a := range findAll(card, func(n *xhtml.Node) bool { return n.DataAtom == atom.A }) {
		href := getAttr(a, "href")
		if strings.Contains(href, "/feed/update/") {
			return absolute(href)
		}
	}
	return ""
}

// authorSlug returns the slug of the first /in/ or /company/ link of a card.
func authorSlug(card *xhtml.Node) string {
	for _, a := range findAll(card, func(n *xhtml.Node) bool { return n.DataAtom == atom.A }) {
		u, err := url.Parse(getAttr(a, "href"))
		if err != nil {
			continue
		}
		var parts []string
		for _, p := range strings.Split(u.Path, "/") {
			if p != "" {
				parts = append(parts, p)
			}
		}
		for i := 0; i+1 < len(parts); i++ {
			if parts[i] == "in" || parts[i] == "company" {
				return parts[i+1]
			}
		}
	}
	return ""
}

func absolute(href string) string {
	if strings.HasPrefix(href, "/") {
		return BaseURL + href
	}
	return href
}

// cleanText renders a subtree, strips every tag with the strict policy and
// normalises whitespace, keeping line breaks.
func cleanText(n *xhtml.Node) string {
	var buf bytes.Buffer
	if err := xhtml.Render(&buf, n); err != nil {
		return ""
	}
	src := brRe.ReplaceAllString(buf.String(), "\n")
	text := html.UnescapeString(strict.Sanitize(src))

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(spaceRe.ReplaceAllString(line, " "))
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func findAll(root *xhtml.Node, match func(*xhtml.Node) bool) []*xhtml.Node {
	var out []*xhtml.Node
	var walk func(*xhtml.Node)
	walk = func(n *xhtml.Node) {
		if n.Type == xhtml.ElementNode && match(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}

func getAttr(n *xhtml.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *xhtml.Node, class string) bool {
	for _, c := range strings.Fields(getAttr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func hasClassPrefix(n *xhtml.Node, prefix string) bool {
	for _, c := range strings.Fields(getAttr(n, "class")) {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}
