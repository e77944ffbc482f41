package painpoint

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// FeedbackRecord is one row of customer feedback. Immutable once loaded.
type FeedbackRecord struct {
	Text     string
	Priority string
	Revenue  float64
	Size     float64
	Customer string
}

// Corpus is the ordered set of feedback records for one run. The record index
// is the canonical index: feature-matrix rows, weights, and cluster labels all
// align to it. Texts holds the normalized form of each record's text.
type Corpus struct {
	Records []FeedbackRecord
	Texts   []string
}

var unnamedColumnRe = regexp.MustCompile(`^unnamed:?\s*\d*$`)

// textSynonyms are header names commonly used for the free-text column,
// checked in order after an exact "text" match.
var textSynonyms = []string{
	"request", "customer request", "feedback", "comment",
	"description", "body", "message", "notes", "issue", "content",
}

var textNameHintRe = regexp.MustCompile(`text|request|feedback|comment|desc|message|notes|issue|content`)

var (
	priorityColumns = map[string]struct{}{"priority": {}, "severity": {}, "urgency": {}}
	revenueColumns  = map[string]struct{}{"revenue": {}, "arr": {}, "mrr": {}, "account revenue": {}}
	sizeColumns     = map[string]struct{}{"size": {}, "seats": {}, "employees": {}, "account size": {}, "users": {}}
	customerColumns = map[string]struct{}{"customer": {}, "account": {}, "company": {}, "customer name": {}, "org": {}, "organization": {}}
)

// columnDetector locates the free-text column in a parsed table, returning the
// column index or -1. Detectors run in order; the first match wins.
type columnDetector func(headers []string, rows [][]string) int

var textDetectors = []columnDetector{
	detectExactText,
	detectTextSynonym,
	detectTextByContent,
}

func detectExactText(headers []string, _ [][]string) int {
	for i, h := range headers {
		if h == "text" {
			return i
		}
	}
	return -1
}

func detectTextSynonym(headers []string, _ [][]string) int {
	for _, syn := range textSynonyms {
		for i, h := range headers {
			if h == syn {
				return i
			}
		}
	}
	return -1
}

// detectTextByContent scores every column by non-null ratio, average value
// length, and a name hint, choosing the most text-like one.
func detectTextByContent(headers []string, rows [][]string) int {
	best, bestScore := -1, -1.0
	for i, h := range headers {
		nonNull := 0
		totalLen := 0
		for _, row := range rows {
			if i >= len(row) {
				continue
			}
			v := strings.TrimSpace(row[i])
			if v == "" {
				continue
			}
			nonNull++
			totalLen += len(v)
		}
		avgLen := 0.0
		if nonNull > 0 {
			avgLen = float64(totalLen) / float64(nonNull)
		}
		fracNonNull := float64(nonNull) / float64(max(len(rows), 1))
		score := fracNonNull*10.0 + avgLen/50.0
		if textNameHintRe.MatchString(h) {
			score += 5.0
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return best
}

// LoadFeedback reads a delimited feedback file from disk.
func LoadFeedback(path string) (*Corpus, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open feedback file: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Printf("Failed to close feedback file: %v", err)
		}
	}()
	return ParseFeedback(f)
}

// ParseFeedback parses tabular feedback data: the delimiter is inferred from
// the header line, headers are case/space normalized, and the text column is
// chosen by the ordered detector list. Returns ErrNoUsableText when no
// non-empty text rows survive.
func ParseFeedback(r io.Reader) (*Corpus, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read feedback data: %w", err)
	}

	delim := inferDelimiter(string(data))
	cr := csv.NewReader(strings.NewReader(string(data)))
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	table, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse feedback data: %w", err)
	}
	if len(table) < 2 {
		return nil, fmt.Errorf("%w: file has no data rows", ErrNoUsableText)
	}

	headers := make([]string, len(table[0]))
	for i, h := range table[0] {
		headers[i] = normalizeHeader(h)
	}
	rows := table[1:]

	// Drop Excel-style unnamed index columns before detection.
	keep := make([]int, 0, len(headers))
	for i, h := range headers {
		if unnamedColumnRe.MatchString(h) {
			continue
		}
		keep = append(keep, i)
	}
	kept := make([]string, len(keep))
	for i, idx := range keep {
		kept[i] = headers[idx]
	}
	keptRows := make([][]string, len(rows))
	for i, row := range rows {
		keptRows[i] = make([]string, len(keep))
		for j, idx := range keep {
			if idx < len(row) {
				keptRows[i][j] = row[idx]
			}
		}
	}

	textCol := -1
	for _, detect := range textDetectors {
		if idx := detect(kept, keptRows); idx >= 0 {
			textCol = idx
			break
		}
	}
	if textCol < 0 {
		return nil, fmt.Errorf("%w: no text-like column found", ErrNoUsableText)
	}

	priorityCol := findColumn(kept, priorityColumns)
	revenueCol := findColumn(kept, revenueColumns)
	sizeCol := findColumn(kept, sizeColumns)
	customerCol := findColumn(kept, customerColumns)

	corpus := &Corpus{}
	for _, row := range keptRows {
		text := strings.TrimSpace(cell(row, textCol))
		if text == "" {
			continue
		}
		normalized := NormalizeText(text)
		if normalized == "" {
			continue
		}
		rec := FeedbackRecord{
			Text:     text,
			Priority: strings.TrimSpace(cell(row, priorityCol)),
			Revenue:  parseNonNegative(cell(row, revenueCol)),
			Size:     parseNonNegative(cell(row, sizeCol)),
			Customer: strings.TrimSpace(cell(row, customerCol)),
		}
		corpus.Records = append(corpus.Records, rec)
		corpus.Texts = append(corpus.Texts, normalized)
	}

	if len(corpus.Records) == 0 {
		return nil, fmt.Errorf("%w: all text rows empty after parsing", ErrNoUsableText)
	}
	return corpus, nil
}

// inferDelimiter picks the candidate delimiter occurring most often in the
// header line. Comma wins ties.
func inferDelimiter(data string) rune {
	header := data
	if idx := strings.IndexByte(data, '\n'); idx >= 0 {
		header = data[:idx]
	}
	best := ','
	bestCount := strings.Count(header, ",")
	for _, cand := range []rune{';', '\t', '|'} {
		if n := strings.Count(header, string(cand)); n > bestCount {
			best, bestCount = cand, n
		}
	}
	return best
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return whitespaceRe.ReplaceAllString(h, " ")
}

func findColumn(headers []string, names map[string]struct{}) int {
	for i, h := range headers {
		if _, ok := names[h]; ok {
			return i
		}
	}
	return -1
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// parseNonNegative coerces a numeric cell to a non-negative float. Missing or
// unparsable values become 0.
func parseNonNegative(s string) float64 {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}
