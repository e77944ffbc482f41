package painpoint

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type stubGenerator struct {
	reply  string
	err    error
	prompt string
}

func (s *stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	s.prompt = prompt
	return s.reply, s.err
}

func TestSummarizeStructuredReply(t *testing.T) {
	members := []string{"Login fails on mobile", "Cannot log in at all"}
	gen := &stubGenerator{reply: `{"title":"Login failures","summary":"Users cannot sign in.","representative":"Login fails on mobile"}`}
	s := NewSummarizer(gen, "", 3)

	summary, deg := s.Summarize(context.Background(), Cluster{ID: 1, Members: []int{0, 1}}, members, []string{"login"})
	if deg != nil {
		t.Fatalf("unexpected degradation: %v", deg)
	}
	if summary.Title != "Login failures" || summary.Summary != "Users cannot sign in." {
		t.Fatalf("structured fields not used: %+v", summary)
	}
	if summary.Representative != "Login fails on mobile" {
		t.Fatalf("representative not taken verbatim: %q", summary.Representative)
	}
	if summary.Count != 2 || summary.ClusterID != 1 {
		t.Fatalf("cluster metadata wrong: %+v", summary)
	}
}

func TestSummarizeRejectsNonVerbatimRepresentative(t *testing.T) {
	members := []string{"Export is slow", "Exports take forever to finish"}
	gen := &stubGenerator{reply: `{"title":"Slow exports","summary":"Exports are slow.","representative":"An invented quote"}`}
	s := NewSummarizer(gen, "", 3)

	summary, _ := s.Summarize(context.Background(), Cluster{ID: 0, Members: []int{0, 1}}, members, nil)
	if summary.Representative != "Export is slow" {
		t.Fatalf("expected shortest member as representative, got %q", summary.Representative)
	}
}

func TestSummarizeGeneratorErrorFallsBack(t *testing.T) {
	wantErr := errors.New("rate limited")
	gen := &stubGenerator{err: wantErr}
	s := NewSummarizer(gen, "", 3)
	members := []string{"The app crashes with an error on startup"}

	summary, deg := s.Summarize(context.Background(), Cluster{ID: 2, Members: []int{0}}, members, []string{"crashes", "startup", "error", "app"})
	if deg == nil || deg.Stage != StageSummarize {
		t.Fatalf("expected a summarize degradation, got %v", deg)
	}
	if !errors.Is(deg.Err, wantErr) {
		t.Fatalf("degradation should wrap the generator error, got %v", deg.Err)
	}
	if summary.Title != "crashes, startup, error" {
		t.Fatalf("heuristic title should join the top three terms, got %q", summary.Title)
	}
	if !strings.Contains(summary.Summary, "Bug") {
		t.Fatalf("crash text should map to the Bug intent: %q", summary.Summary)
	}
	if summary.Representative != members[0] {
		t.Fatalf("representative must come from the member texts: %q", summary.Representative)
	}
}

func TestSummarizeUnstructuredReplyRecovered(t *testing.T) {
	gen := &stubGenerator{reply: "Login problems\n\nUsers cannot sign in from mobile devices."}
	s := NewSummarizer(gen, "", 3)
	members := []string{"Login fails on mobile"}

	summary, deg := s.Summarize(context.Background(), Cluster{ID: 0, Members: []int{0}}, members, nil)
	if deg == nil || deg.Stage != StageSummarize {
		t.Fatalf("expected a degradation for the unstructured reply, got %v", deg)
	}
	if summary.Title != "Login problems" {
		t.Fatalf("title should come from the first line, got %q", summary.Title)
	}
	if !strings.Contains(summary.Summary, "cannot sign in") {
		t.Fatalf("summary should come from the remaining lines, got %q", summary.Summary)
	}
}

func TestSummarizeNilGeneratorHeuristicsOnly(t *testing.T) {
	s := NewSummarizer(nil, "", 2)
	members := []string{"Please add dark mode", "Would like dark mode support"}

	summary, deg := s.Summarize(context.Background(), Cluster{ID: 0, Members: []int{0, 1}}, members, []string{"dark", "mode"})
	if deg != nil {
		t.Fatalf("heuristics-only path should not degrade: %v", deg)
	}
	if summary.Title != "dark, mode" {
		t.Fatalf("unexpected heuristic title: %q", summary.Title)
	}
	if !strings.Contains(summary.Summary, "Feature Request") {
		t.Fatalf("expected Feature Request intent: %q", summary.Summary)
	}
	if len(summary.Examples) != 2 {
		t.Fatalf("expected 2 examples, got %v", summary.Examples)
	}
}

func TestSummarizeNoTermsTitle(t *testing.T) {
	s := NewSummarizer(nil, "", 3)
	summary, _ := s.Summarize(context.Background(), Cluster{ID: 0, Members: []int{0}}, []string{"hmm"}, nil)
	if summary.Title != "Miscellaneous feedback" {
		t.Fatalf("unexpected fallback title: %q", summary.Title)
	}
}

func TestBuildPromptPlaceholder(t *testing.T) {
	prompt := buildPrompt("Requests:\n{samples}\nEnd.", []string{"first", "second"})
	if !strings.Contains(prompt, "- first\n- second\n") {
		t.Fatalf("samples not substituted: %q", prompt)
	}
	if strings.Contains(prompt, samplesPlaceholder) {
		t.Fatalf("placeholder left in prompt: %q", prompt)
	}

	// Templates without the placeholder get the samples appended.
	appended := buildPrompt("Summarize these.", []string{"first"})
	if !strings.HasSuffix(appended, "- first\n") {
		t.Fatalf("samples not appended: %q", appended)
	}
}

func TestBuildPromptCapsSamples(t *testing.T) {
	texts := make([]string, promptSampleCap+10)
	for i := range texts {
		texts[i] = "item"
	}
	prompt := buildPrompt("{samples}", texts)
	if got := strings.Count(prompt, "- item"); got != promptSampleCap {
		t.Fatalf("expected %d samples in prompt, got %d", promptSampleCap, got)
	}
}

func TestPickExamples(t *testing.T) {
	texts := []string{"bb", "aaa", "bb", "a", "cc"}
	got := PickExamples(texts, 3)
	want := []string{"a", "bb", "cc"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if all := PickExamples(texts, 10); len(all) != 4 {
		t.Fatalf("expected every distinct text, got %v", all)
	}
}

func TestHeuristicSummaryIntents(t *testing.T) {
	cases := []struct {
		texts  []string
		intent string
	}{
		{[]string{"the export button is broken"}, "Bug"},
		{[]string{"please add sso support"}, "Feature Request"},
		{[]string{"the docs are unclear about limits"}, "Documentation/Clarity"},
		{[]string{"search is painfully slow"}, "Performance/Quality"},
		{[]string{"let me configure the default view"}, "Configuration/Usability"},
		{[]string{"something something"}, "Unspecified"},
	}
	for _, c := range cases {
		summary := heuristicSummary(c.texts, nil)
		if !strings.Contains(summary, c.intent) {
			t.Fatalf("texts %v: expected intent %q in %q", c.texts, c.intent, summary)
		}
	}
}

func TestHeuristicSummaryFrustrationTone(t *testing.T) {
	summary := heuristicSummary([]string{"this bug ruins my day"}, nil)
	if !strings.Contains(summary, "frustration") {
		t.Fatalf("expected frustration tone: %q", summary)
	}
	summary = heuristicSummary([]string{"please add widgets"}, nil)
	if !strings.Contains(summary, "desire for capability or clarity") {
		t.Fatalf("expected neutral tone: %q", summary)
	}
}
