package activity

import (
	"regexp"
	"strings"
	"unicode"
)

// Section is one activity listing page of a profile.
type Section struct {
	Kind Kind
	URL  string
}

var (
	numericSuffix = regexp.MustCompile(`-\d+$`)
	anySuffix     = regexp.MustCompile(`-([a-z0-9]+)$`)
)

// Slug returns the last non-empty path element of a profile URL
// ("https://www.linkedin.com/in/jane-doe/" gives "jane-doe").
func Slug(profileURL string) string {
	var parts []string
	for _, p := range strings.Split(strings.TrimRight(profileURL, "/"), "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return profileURL
	}
	return parts[len(parts)-1]
}

// DisplayName turns "jane-doe-42" into "Jane Doe".
func DisplayName(profileURL string) string {
	slug := Slug(profileURL)
	name := numericSuffix.ReplaceAllString(slug, "")
	name = strings.TrimSpace(strings.ReplaceAll(name, "-", " "))
	if name == "" {
		return slug
	}
	return titleCase(name)
}

// DisplayNameWithSuffix keeps the disambiguating slug suffix so two
// "Jane Doe" profiles stay distinguishable in reports.
func DisplayNameWithSuffix(profileURL string) string {
	name := DisplayName(profileURL)
	m := anySuffix.FindStringSubmatch(Slug(profileURL))
	if m == nil {
		return name
	}
	suffix := strings.ToUpper(m[1])
	if strings.HasSuffix(strings.ToUpper(name), " "+suffix) {
		return name
	}
	return name + " " + suffix
}

// AllActivityURL lists every kind of activity, used for past-post context.
func AllActivityURL(profileURL string) string {
	return strings.TrimRight(profileURL, "/") + "/recent-activity/all/"
}

// Sections returns the per-kind activity pages in report order.
func Sections(profileURL string) []Section {
	base := strings.TrimRight(profileURL, "/")
	return []Section{
		{Kind: KindPost, URL: base + "/recent-activity/shares/"},
		{Kind: KindComment, URL: base + "/recent-activity/comments/"},
		{Kind: KindLike, URL: base + "/recent-activity/reactions/"},
	}
}

// titleCase upper-cases every letter that follows a non-letter and
// lower-cases the rest ("931a62211" becomes "931A62211").
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
			continue
		}
		b.WriteRune(r)
		prevLetter = false
	}
	return b.String()
}
