package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/google/uuid"
)

// ArchiveMeta describes one archived notification.
type ArchiveMeta struct {
	ID      string
	RunID   string
	Profile string
	Kind    string // "report", "notice"
	Mode    string
	Entries int
	SentAt  time.Time
}

// Archive keeps a Markdown copy of every notification in a directory.
// Files are written atomically (write .tmp then rename).
type Archive struct {
	dir   string
	conv  *converter.Converter
	newID func() string
}

// NewArchive returns an Archive writing into dir. The directory is created
// on first write.
func NewArchive(dir string) *Archive {
	return &Archive{
		dir: dir,
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
			),
		),
		newID: uuid.NewString,
	}
}

// Dir returns the target directory.
func (a *Archive) Dir() string { return a.dir }

// Write converts the HTML payload to Markdown and stores it with a YAML
// frontmatter. It returns the path of the written file.
func (a *Archive) Write(ctx context.Context, meta ArchiveMeta, payload string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return "", fmt.Errorf("report: mkdir %s: %w", a.dir, err)
	}
	if meta.ID == "" {
		meta.ID = a.newID()
	}
	if meta.SentAt.IsZero() {
		meta.SentAt = time.Now()
	}

	target := filepath.Join(a.dir, meta.ID+".md")
	tmp := target + ".tmp"
	content := formatFrontmatter(meta) + a.ToMarkdown(payload) + "\n"

	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("report: write tmp: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("report: rename: %w", err)
	}
	return target, nil
}

// ToMarkdown converts a notification payload. Line breaks of the payload are
// significant, so they are turned into <br> first. On conversion failure the
// payload is returned unchanged.
func (a *Archive) ToMarkdown(payload string) string {
	src := strings.ReplaceAll(payload, "\n", "<br>\n")
	md, err := a.conv.ConvertString(src)
	if err != nil || strings.TrimSpace(md) == "" {
		return payload
	}
	return strings.TrimSpace(md)
}

func formatFrontmatter(m ArchiveMeta) string {
	return "---\n" +
		"id: " + m.ID + "\n" +
		"run_id: " + m.RunID + "\n" +
		"profile: " + yamlEscape(m.Profile) + "\n" +
		"kind: " + m.Kind + "\n" +
		"mode: " + m.Mode + "\n" +
		"entries: " + strconv.Itoa(m.Entries) + "\n" +
		"sent_at: " + m.SentAt.UTC().Format(time.RFC3339) + "\n" +
		"---\n\n"
}

// yamlEscape quotes s when it holds characters YAML would interpret.
func yamlEscape(s string) string {
	if !strings.ContainsAny(s, ":#'\"{}[],&*?|-<>=!%@`\n") {
		return s
	}
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)
	return `"` + r.Replace(s) + `"`
}
