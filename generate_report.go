package painpoint

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"fmt"
	"html/template"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

//go:embed templates/report.html
var htmlTemplate string

//go:embed templates/styles.css
var cssStyles string

// WriteCSV writes the tabular summary: Cluster, Count, Example_1..N. The
// example column count matches the widest cluster.
func WriteCSV(w io.Writer, summaries []ClusterSummary) error {
	maxExamples := 0
	for _, s := range summaries {
		if len(s.Examples) > maxExamples {
			maxExamples = len(s.Examples)
		}
	}

	cw := csv.NewWriter(w)
	header := []string{"Cluster", "Count"}
	for i := 0; i < maxExamples; i++ {
		header = append(header, fmt.Sprintf("Example_%d", i+1))
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, s := range summaries {
		row := []string{strconv.Itoa(s.ClusterID), strconv.Itoa(s.Count)}
		row = append(row, s.Examples...)
		for len(row) < len(header) {
			row = append(row, "")
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteMarkdown renders the narrative insights document.
func WriteMarkdown(result *Result) string {
	var b strings.Builder
	b.WriteString("# Pain Points Summary\n\n")
	b.WriteString(fmt.Sprintf("_Vectorization: %s; clusters: %d; records: %d_\n\n",
		result.Mode, result.K, result.TotalRecords))

	for _, s := range result.Summaries {
		b.WriteString(fmt.Sprintf("## %s (%d)\n\n", s.Title, s.Count))
		if len(s.KeyTerms) > 0 {
			b.WriteString(fmt.Sprintf("**Key terms:** %s\n\n", strings.Join(s.KeyTerms, ", ")))
		}
		if s.Representative != "" {
			b.WriteString(fmt.Sprintf("> %s\n\n", s.Representative))
		}
		if len(s.Examples) > 0 {
			b.WriteString("**Examples:**\n\n")
			for _, e := range s.Examples {
				b.WriteString(fmt.Sprintf("- %s\n", e))
			}
			b.WriteString("\n")
		}
		b.WriteString("**Summary:**\n\n")
		if s.Summary != "" {
			b.WriteString(s.Summary)
		} else {
			b.WriteString("(no summary)")
		}
		b.WriteString("\n\n---\n\n")
	}

	return b.String()
}

// WriteHTML converts the markdown report into a complete styled HTML document
// with the embedded template and CSS.
func WriteHTML(markdownContent string) (string, error) {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Table,
			extension.Linkify,
			extension.Strikethrough,
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithXHTML(),
		),
	)

	var buf bytes.Buffer
	if err := md.Convert([]byte(markdownContent), &buf); err != nil {
		return "", fmt.Errorf("failed to convert markdown to HTML: %w", err)
	}

	tmpl, err := template.New("report").Parse(htmlTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML template: %w", err)
	}

	data := struct {
		Title string
		Date  string
		Body  template.HTML
		CSS   template.CSS
	}{
		Title: "Pain Points Summary",
		Date:  time.Now().Format("2 January 2006"),
		Body:  template.HTML(buf.String()),
		CSS:   template.CSS(cssStyles),
	}

	var result bytes.Buffer
	if err := tmpl.Execute(&result, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return result.String(), nil
}
