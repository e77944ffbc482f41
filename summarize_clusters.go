package painpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// ClusterSummary is the assembled, ranked output for one cluster. It is built
// once after clustering and never mutated; rendering collaborators only read it.
type ClusterSummary struct {
	ClusterID      int      `json:"cluster_id"`
	Count          int      `json:"count"`
	KeyTerms       []string `json:"key_terms"`
	Examples       []string `json:"examples"`
	Title          string   `json:"title"`
	Summary        string   `json:"summary"`
	Representative string   `json:"representative"`
}

// GeneratedSummary is the structured reply expected from the text-generation
// collaborator.
type GeneratedSummary struct {
	Title          string `json:"title" jsonschema:"description=Short plain-language title for the pain point"`
	Summary        string `json:"summary" jsonschema:"description=2-4 sentence synthesis naming the core pain and likely intent"`
	Representative string `json:"representative" jsonschema:"description=One verbatim quote copied exactly from the sample requests"`
}

// TextGenerator is the external text-generation collaborator. Generate returns
// the raw reply for a prompt; the summarizer handles parsing and fallback.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// OpenAIGenerator calls the chat completions API with structured outputs.
type OpenAIGenerator struct {
	client openai.Client
	model  string
}

func NewOpenAIGenerator(apiKey, model string) *OpenAIGenerator {
	return &OpenAIGenerator{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

// Generate requests a structured {title, summary, representative} reply and
// returns the raw message content.
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	schema, err := summarySchema()
	if err != nil {
		return "", err
	}

	chatCompletion, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("Be precise, concise, and analytical."),
			openai.UserMessage(prompt),
		},
		Model:       openai.ChatModel(g.model),
		MaxTokens:   openai.Int(1000),
		Temperature: openai.Float(0.2),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        "cluster_summary",
					Description: openai.String("Synthesize a cluster of customer feedback"),
					Schema:      schema,
					Strict:      openai.Bool(true),
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to call OpenAI API: %w", err)
	}
	if len(chatCompletion.Choices) == 0 || chatCompletion.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("no content in response")
	}
	return chatCompletion.Choices[0].Message.Content, nil
}

func summarySchema() (any, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	schemaObj := reflector.Reflect(&GeneratedSummary{})
	if schemaObj.Type == "" {
		schemaObj.Type = "object"
	}

	schemaBytes, err := json.Marshal(schemaObj)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	var schema any
	if err := json.Unmarshal(schemaBytes, &schema); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema: %w", err)
	}
	return schema, nil
}

// samplesPlaceholder is the single substitution point in user-supplied prompt
// templates.
const samplesPlaceholder = "{samples}"

const defaultPromptTemplate = `You are helping a PM/CSM synthesize customer feedback.
Given the sample requests below, produce:
- a short plain-language title for the pain point
- a 2-4 sentence summary naming the core pain, its nuance (frustration, confusion, expectations), and likely intent type(s): Bug, Feature Request, Usability/UX, Documentation/Clarity, Performance/Quality
- one verbatim representative quote copied exactly from the samples
Be concise and non-marketing.

Sample requests:
` + samplesPlaceholder + "\n"

// promptSampleCap bounds the number of member texts placed in a prompt.
const promptSampleCap = 50

// Summarizer assembles a title, narrative summary, and representative example
// per cluster, preferring the external generator and always falling back to
// the deterministic heuristic layer.
type Summarizer struct {
	generator TextGenerator
	template  string
	samples   int
}

// NewSummarizer creates a summarizer. generator may be nil (heuristics only);
// template empty means the default prompt; samples bounds examples per cluster.
func NewSummarizer(generator TextGenerator, template string, samples int) *Summarizer {
	if template == "" {
		template = defaultPromptTemplate
	}
	if samples < 1 {
		samples = 3
	}
	return &Summarizer{generator: generator, template: template, samples: samples}
}

// Summarize builds the summary for one cluster from its raw member texts and
// ranked terms. Any generator failure is returned as a degradation, never an
// error; the heuristic layer fills whatever the generator did not provide.
// The representative is always verbatim one of memberTexts.
func (s *Summarizer) Summarize(ctx context.Context, cluster Cluster, memberTexts, terms []string) (ClusterSummary, *Degradation) {
	var gen GeneratedSummary
	var deg *Degradation

	if s.generator != nil {
		prompt := buildPrompt(s.template, memberTexts)
		reply, err := s.generator.Generate(ctx, prompt)
		if err != nil {
			deg = &Degradation{
				Stage:  StageSummarize,
				Reason: fmt.Sprintf("generator failed for cluster %d, using heuristic summary", cluster.ID),
				Err:    err,
			}
		} else if parseErr := json.Unmarshal([]byte(reply), &gen); parseErr != nil {
			// Unstructured reply: salvage a title from the first non-empty
			// line and treat the rest as the summary.
			gen = recoverFromPlainText(reply)
			deg = &Degradation{
				Stage:  StageSummarize,
				Reason: fmt.Sprintf("unstructured reply for cluster %d, recovered line-based fields", cluster.ID),
				Err:    parseErr,
			}
		}
	}

	title := strings.TrimSpace(gen.Title)
	if title == "" {
		title = heuristicTitle(terms)
	}
	summary := strings.TrimSpace(gen.Summary)
	if summary == "" {
		summary = heuristicSummary(memberTexts, terms)
	}
	representative := strings.TrimSpace(gen.Representative)
	if !containsVerbatim(memberTexts, representative) {
		representative = pickRepresentative(memberTexts)
	}

	return ClusterSummary{
		ClusterID:      cluster.ID,
		Count:          len(cluster.Members),
		KeyTerms:       terms,
		Examples:       PickExamples(memberTexts, s.samples),
		Title:          title,
		Summary:        summary,
		Representative: representative,
	}, deg
}

func buildPrompt(template string, memberTexts []string) string {
	capped := memberTexts
	if len(capped) > promptSampleCap {
		capped = capped[:promptSampleCap]
	}
	var b strings.Builder
	for _, t := range capped {
		b.WriteString("- ")
		b.WriteString(t)
		b.WriteString("\n")
	}
	joined := b.String()

	if strings.Contains(template, samplesPlaceholder) {
		return strings.ReplaceAll(template, samplesPlaceholder, joined)
	}
	return template + "\n\n" + joined
}

func recoverFromPlainText(reply string) GeneratedSummary {
	lines := strings.Split(reply, "\n")
	var gen GeneratedSummary
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		gen.Title = strings.TrimSpace(line)
		gen.Summary = strings.TrimSpace(strings.Join(lines[i+1:], "\n"))
		break
	}
	return gen
}

// Intent cues for the heuristic layer, checked in a fixed order so the label
// list is deterministic.
var intentCues = []struct {
	label string
	re    *regexp.Regexp
}{
	{"Bug", regexp.MustCompile(`\b(bug|error|crash|broken|fail|fails|failed|failure|doesn'?t work|not working)\b`)},
	{"Feature Request", regexp.MustCompile(`\b(feature|add|support|enable|would like|can you)\b`)},
	{"Documentation/Clarity", regexp.MustCompile(`\b(confus\w*|how do i|unclear|documentation|docs|help)\b`)},
	{"Performance/Quality", regexp.MustCompile(`\b(slow|lag|performance|optimi\w*|fast|speed)\b`)},
	{"Configuration/Usability", regexp.MustCompile(`\b(setting|settings|option|configure|preference|custom)\b`)},
}

var frustrationRe = regexp.MustCompile(`\b(bug|not working)\b`)

func heuristicTitle(terms []string) string {
	if len(terms) == 0 {
		return "Miscellaneous feedback"
	}
	top := terms
	if len(top) > 3 {
		top = top[:3]
	}
	return strings.Join(top, ", ")
}

// heuristicSummary composes the deterministic fallback narrative from key
// terms and keyword-matched intents.
func heuristicSummary(memberTexts, terms []string) string {
	joined := strings.ToLower(strings.Join(memberTexts, " "))

	var intents []string
	for _, cue := range intentCues {
		if cue.re.MatchString(joined) {
			intents = append(intents, cue.label)
		}
	}
	intentPart := "Unspecified"
	if len(intents) > 0 {
		intentPart = strings.Join(intents, ", ")
	}

	keyTerms := "n/a"
	if len(terms) > 0 {
		top := terms
		if len(top) > 6 {
			top = top[:6]
		}
		keyTerms = strings.Join(top, ", ")
	}

	tone := "a desire for capability or clarity"
	if frustrationRe.MatchString(joined) {
		tone = "frustration"
	}

	return fmt.Sprintf(
		"Likely theme around: %s. Representative feedback suggests a common pain that could map to intent(s): %s. Customers express %s.",
		keyTerms, intentPart, tone,
	)
}

// PickExamples returns up to n distinct texts, shortest first with
// lexicographic tie-break — a deterministic, de-duplication-safe choice.
func PickExamples(texts []string, n int) []string {
	seen := make(map[string]struct{}, len(texts))
	distinct := make([]string, 0, len(texts))
	for _, t := range texts {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		distinct = append(distinct, t)
	}
	sort.Slice(distinct, func(i, j int) bool {
		if len(distinct[i]) != len(distinct[j]) {
			return len(distinct[i]) < len(distinct[j])
		}
		return distinct[i] < distinct[j]
	})
	if n > len(distinct) {
		n = len(distinct)
	}
	return distinct[:n]
}

func pickRepresentative(texts []string) string {
	examples := PickExamples(texts, 1)
	if len(examples) == 0 {
		return ""
	}
	return examples[0]
}

func containsVerbatim(texts []string, candidate string) bool {
	if candidate == "" {
		return false
	}
	for _, t := range texts {
		if t == candidate {
			return true
		}
	}
	return false
}
