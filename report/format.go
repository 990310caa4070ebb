// Package report renders per-profile activity reports and lifecycle notices
// as Telegram-flavoured HTML. Every piece of scraped or model text is
// escaped; the markup itself is fixed.
package report

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/hazyhaar/linkwatch/activity"
	"github.com/hazyhaar/linkwatch/dedup"
	"github.com/hazyhaar/linkwatch/enrich"
)

// TimestampLayout renders "14 Oct 2026, 09:05 PM".
const TimestampLayout = "02 Jan 2006, 03:04 PM"

// SnippetLen bounds comment and like text in a report.
const SnippetLen = 200

// DefaultMonthsBack is the backfill period named in historical reports.
const DefaultMonthsBack = 2

// Header identifies one report.
type Header struct {
	DisplayName string
	Slug        string
	Mode        dedup.Mode
	Timestamp   time.Time
	// Index and Total place this profile in the run ("Report 2/5").
	Index int
	Total int
}

// PostEntry is a post together with its analysis.
type PostEntry struct {
	Record   activity.Record
	Analysis enrich.Analysis
}

// Report is the content of one profile's notification.
type Report struct {
	Header   Header
	Posts    []PostEntry
	Comments []activity.Record
	Likes    []activity.Record
}

// Len is the number of entries.
func (r Report) Len() int { return len(r.Posts) + len(r.Comments) + len(r.Likes) }

// HeaderFor builds the header of a profile report.
func HeaderFor(profileURL string, mode dedup.Mode, now time.Time, index, total int) Header {
	return Header{
		DisplayName: activity.DisplayNameWithSuffix(profileURL),
		Slug:        activity.Slug(profileURL),
		Mode:        mode,
		Timestamp:   now,
		Index:       index,
		Total:       total,
	}
}

// Formatter renders reports.
type Formatter struct {
	// MonthsBack is the period shown for historical reports.
	MonthsBack int
}

// NewFormatter returns a Formatter for the given backfill period. Zero or
// negative uses DefaultMonthsBack.
func NewFormatter(monthsBack int) *Formatter {
	if monthsBack <= 0 {
		monthsBack = DefaultMonthsBack
	}
	return &Formatter{MonthsBack: monthsBack}
}

func (f *Formatter) months() int {
	if f == nil || f.MonthsBack <= 0 {
		return DefaultMonthsBack
	}
	return f.MonthsBack
}

// Period is the human label of the backfill window.
func (f *Formatter) Period() string {
	n := f.months()
	if n == 1 {
		return "Past 1 Month"
	}
	return fmt.Sprintf("Past %d Months", n)
}

// Format renders r. An empty report returns dedup.ErrNoNewActivity.
func (f *Formatter) Format(r Report) (string, error) {
	if r.Len() == 0 {
		return "", dedup.ErrNoNewActivity
	}
	h := r.Header
	runType, period := "Live Monitoring", "New Activity"
	if h.Mode == dedup.Historical {
		runType, period = "Historical Analysis", f.Period()
	}

	var lines []string
	add := func(format string, args ...any) { lines = append(lines, fmt.Sprintf(format, args...)) }

	add("📊 %s Report %d/%d for <b>%s</b>", runType, h.Index, h.Total, esc(h.DisplayName))
	add("🕒 %s\n", esc(h.Timestamp.Format(TimestampLayout)))
	add("👤 Profile: <b>%s</b>", esc(h.Slug))
	add("📅 Period: <b>%s</b>\n", period)

	if len(r.Posts) > 0 {
		add("1) <b>Post Notification</b>")
		for i, p := range r.Posts {
			add("   %d) i) <b>Post Summary</b>: %s", i+1, esc(p.Analysis.Summary))
			add("      ii) <b>Recent Themes</b>: %s", esc(p.Analysis.Themes))
			add("      iii) <b>Suggestion</b>: %s", esc(p.Analysis.Suggestion))
			add("      [Link: %s]", esc(p.Record.Link))
			add("")
		}
	}
	if len(r.Comments) > 0 {
		add("2) <b>Comments Notification</b>")
		for i, c := range r.Comments {
			add("   %d) 🗨️ %s", i+1, esc(Snippet(c.Text)))
			add("       [Link: %s]", esc(c.Link))
			add("")
		}
	}
	if len(r.Likes) > 0 {
		add("3) <b>Likes Notification</b>")
		for i, l := range r.Likes {
			add("   %d) 👍 %s", i+1, esc(Snippet(l.Text)))
			add("       [Link: %s]", esc(l.Link))
			add("")
		}
	}
	return strings.Join(lines, "\n"), nil
}

// Snippet bounds s to SnippetLen runes, marking the cut with an ellipsis.
func Snippet(s string) string {
	cut := activity.Truncate(s, SnippetLen)
	if cut == s {
		return s
	}
	return cut + "…"
}

func esc(s string) string { return html.EscapeString(s) }

// HistoricalStart announces the backfill.
func (f *Formatter) HistoricalStart() string {
	return fmt.Sprintf("🔍 <b>Starting Historical Analysis</b>\nFetching %s of activity for all profiles...",
		strings.ToLower(f.Period()))
}

// HistoricalDone announces the switch to live monitoring.
func (f *Formatter) HistoricalDone() string {
	return "✅ <b>Historical Analysis Complete!</b>\nNow switching to real-time monitoring mode."
}

// Started announces a restart with existing seen-state.
func (f *Formatter) Started() string {
	return "🤖 <b>Bot started successfully!</b> Now monitoring LinkedIn for new activity..."
}

// NoHistorical reports a profile with nothing in the backfill window.
func (f *Formatter) NoHistorical(who string) string {
	return fmt.Sprintf("📭 No historical activity found for <b>%s</b> in the %s.", esc(who), strings.ToLower(f.Period()))
}

// ProfileFailed reports a profile whose scan failed.
func (f *Formatter) ProfileFailed(who string, mode dedup.Mode, err error) string {
	if mode == dedup.Historical {
		return fmt.Sprintf("⚠️ Historical analysis failed for <b>%s</b>: %s", esc(who), esc(errText(err)))
	}
	return fmt.Sprintf("⚠️ Error scraping <b>%s</b>: %s", esc(who), esc(errText(err)))
}

// Fatal reports a session or driver failure at start.
func (f *Formatter) Fatal(err error) string {
	return "<b>[FATAL] Login/Driver failed:</b> " + esc(errText(err))
}

func errText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
