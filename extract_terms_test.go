package painpoint

import "testing"

func TestTopTermsDistinguishCluster(t *testing.T) {
	corpus := []string{
		"login fails on mobile",
		"login fails on mobile",
		"login fails on mobile",
		"dark mode missing from settings",
		"dark mode missing from settings",
		"dark mode missing from settings",
	}
	terms := TopTerms(corpus[:3], corpus, 6)
	if len(terms) == 0 {
		t.Fatal("expected terms for the login cluster")
	}
	got := make(map[string]bool, len(terms))
	for _, term := range terms {
		got[term] = true
	}
	if !got["login"] || !got["mobile"] {
		t.Fatalf("expected login vocabulary at the top, got %v", terms)
	}
	if got["dark"] || got["settings"] {
		t.Fatalf("other cluster's vocabulary leaked in: %v", terms)
	}
}

func TestTopTermsCapped(t *testing.T) {
	corpus := []string{"slow search results today", "broken password reset flow"}
	terms := TopTerms(corpus[:1], corpus, 3)
	if len(terms) > 3 {
		t.Fatalf("expected at most 3 terms, got %d: %v", len(terms), terms)
	}
}

func TestTopTermsEmptyInputs(t *testing.T) {
	corpus := []string{"some text"}
	if terms := TopTerms(nil, corpus, 5); terms != nil {
		t.Fatalf("empty member set should yield nil, got %v", terms)
	}
	if terms := TopTerms([]string{"", ""}, corpus, 5); terms != nil {
		t.Fatalf("blank members should yield nil, got %v", terms)
	}
	if terms := TopTerms(corpus, corpus, 0); terms != nil {
		t.Fatalf("n=0 should yield nil, got %v", terms)
	}
}
