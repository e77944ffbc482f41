package painpoint

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func loginDarkCorpus() *Corpus {
	raw := []string{
		"Login fails on mobile!",
		"login FAILS on mobile",
		"  Login fails on   mobile ",
		"Dark mode is missing",
		"dark MODE is missing!",
		"Dark mode is missing.",
	}
	corpus := &Corpus{}
	for _, text := range raw {
		corpus.Records = append(corpus.Records, FeedbackRecord{Text: text})
		corpus.Texts = append(corpus.Texts, NormalizeText(text))
	}
	return corpus
}

func TestAnalyzerSeparatesThemes(t *testing.T) {
	a := NewAnalyzer(DefaultOptions(), nil, nil)
	result, err := a.Run(context.Background(), loginDarkCorpus())
	if err != nil {
		t.Fatal(err)
	}
	if result.K != 2 {
		t.Fatalf("expected k=2, got %d", result.K)
	}
	if result.Mode != ModeLocal {
		t.Fatalf("expected local vectorization, got %q", result.Mode)
	}
	if len(result.Degradations) != 0 {
		t.Fatalf("unexpected degradations: %v", result.Degradations)
	}
	if len(result.Summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(result.Summaries))
	}

	total := 0
	var sawLogin, sawDark bool
	for _, s := range result.Summaries {
		if s.Count != 3 {
			t.Fatalf("expected 3 members per cluster, got %d", s.Count)
		}
		total += s.Count
		if strings.Contains(s.Title, "login") {
			sawLogin = true
		}
		if strings.Contains(s.Title, "dark") {
			sawDark = true
		}
	}
	if total != result.TotalRecords {
		t.Fatalf("summaries cover %d of %d records", total, result.TotalRecords)
	}
	if !sawLogin || !sawDark {
		t.Fatalf("expected one cluster per theme, got titles %q and %q",
			result.Summaries[0].Title, result.Summaries[1].Title)
	}
}

func TestAnalyzerRepresentativeIsVerbatim(t *testing.T) {
	corpus := loginDarkCorpus()
	a := NewAnalyzer(DefaultOptions(), nil, nil)
	result, err := a.Run(context.Background(), corpus)
	if err != nil {
		t.Fatal(err)
	}
	raw := make(map[string]bool, len(corpus.Records))
	for _, rec := range corpus.Records {
		raw[rec.Text] = true
	}
	for _, s := range result.Summaries {
		if !raw[s.Representative] {
			t.Fatalf("representative %q is not one of the input texts", s.Representative)
		}
		for _, ex := range s.Examples {
			if !raw[ex] {
				t.Fatalf("example %q is not one of the input texts", ex)
			}
		}
	}
}

func TestAnalyzerIdenticalPairCollapsesToOneCluster(t *testing.T) {
	corpus := &Corpus{
		Records: []FeedbackRecord{
			{Text: "App crashes on startup."},
			{Text: "App crashes on startup"},
		},
		Texts: []string{"app crashes on startup", "app crashes on startup"},
	}
	a := NewAnalyzer(DefaultOptions(), nil, nil)
	result, err := a.Run(context.Background(), corpus)
	if err != nil {
		t.Fatal(err)
	}
	if result.K != 1 {
		t.Fatalf("expected k clamped to 1, got %d", result.K)
	}
	if len(result.Summaries) != 1 || result.Summaries[0].Count != 2 {
		t.Fatalf("expected one cluster of 2, got %+v", result.Summaries)
	}
}

func TestAnalyzerForcedK(t *testing.T) {
	opts := DefaultOptions()
	opts.ForcedK = 2
	a := NewAnalyzer(opts, nil, nil)
	result, err := a.Run(context.Background(), loginDarkCorpus())
	if err != nil {
		t.Fatal(err)
	}
	if result.K != 2 {
		t.Fatalf("expected forced k=2, got %d", result.K)
	}

	// A forced k beyond n-1 is clamped, not rejected.
	opts.ForcedK = 50
	a = NewAnalyzer(opts, nil, nil)
	result, err = a.Run(context.Background(), loginDarkCorpus())
	if err != nil {
		t.Fatal(err)
	}
	if result.K != 5 {
		t.Fatalf("expected forced k clamped to 5, got %d", result.K)
	}
}

func TestAnalyzerEmbedderFailureDegrades(t *testing.T) {
	emb := &stubEmbedder{name: "stub", err: errors.New("connection refused")}
	a := NewAnalyzer(DefaultOptions(), emb, nil)
	result, err := a.Run(context.Background(), loginDarkCorpus())
	if err != nil {
		t.Fatalf("run should survive an embedder outage: %v", err)
	}
	if result.Mode != ModeLocal {
		t.Fatalf("expected TF-IDF fallback, got %q", result.Mode)
	}
	if len(result.Degradations) != 1 || result.Degradations[0].Stage != StageEmbedding {
		t.Fatalf("expected one embedding degradation, got %v", result.Degradations)
	}
	if result.K != 2 {
		t.Fatalf("fallback run should still find both themes, got k=%d", result.K)
	}
}

func TestAnalyzerTooFewRecords(t *testing.T) {
	corpus := &Corpus{
		Records: []FeedbackRecord{{Text: "only one"}},
		Texts:   []string{"only one"},
	}
	a := NewAnalyzer(DefaultOptions(), nil, nil)
	if _, err := a.Run(context.Background(), corpus); !errors.Is(err, ErrNoUsableText) {
		t.Fatalf("expected ErrNoUsableText, got %v", err)
	}
}
