// Package analyzer classifies a customer question with a dedicated
// low-temperature model and plans the retrieval for it: intent, whether to
// search, which search strings to run and an optional metadata filter.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/tidwall/gjson"
	"github.com/xeipuuv/gojsonschema"

	"github.com/54b3r/orangebot-go/internal/prompts"
	"github.com/54b3r/orangebot-go/internal/rag"
)

// maxSearches caps the number of search strings kept from the classifier.
const maxSearches = 5

// Analysis is the classifier's retrieval plan for one question.
type Analysis struct {
	// Intent is the normalised intent.
	Intent Intent
	// NeedsRetrieval is false when no document search should happen.
	NeedsRetrieval bool
	// Searches holds 0–5 extra search strings.
	Searches []string
	// Filter is nil or a single-key metadata filter.
	Filter rag.Filter
}

// Fallback is the plan used whenever classification fails.
func Fallback(question string) Analysis {
	return Analysis{
		Intent:         IntentGeneral,
		NeedsRetrieval: true,
		Searches:       []string{question},
	}
}

// payloadSchema checks field types only; every field is optional.
const payloadSchema = `{
  "type": "object",
  "properties": {
    "intent":          {"type": "string"},
    "needs_retrieval": {"type": "boolean"},
    "search_queries":  {"type": ["array", "null"], "items": {"type": "string"}},
    "metadata_filter": {"type": ["object", "null"]}
  }
}`

var (
	compiledSchema = func() *gojsonschema.Schema {
		s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(payloadSchema))
		if err != nil {
			panic(fmt.Sprintf("analyzer: invalid payload schema: %v", err))
		}
		return s
	}()

	leadingFence  = regexp.MustCompile("^```(?:json)?\\s*\\n?")
	trailingFence = regexp.MustCompile("\\n?```\\s*$")

	errNoJSON = errors.New("analyzer: no JSON object in classifier output")
)

// Analyzer runs the classifier model.
type Analyzer struct {
	model   model.BaseChatModel
	prompts *prompts.Set
	log     *slog.Logger
}

// New constructs an Analyzer. m should be the classifier handle (temperature 0).
func New(m model.BaseChatModel, p *prompts.Set, log *slog.Logger) *Analyzer {
	return &Analyzer{model: m, prompts: p, log: log}
}

// Analyze classifies question. It never fails: any error is logged at WARN
// and the Fallback plan is returned.
func (a *Analyzer) Analyze(ctx context.Context, question string) Analysis {
	raw, err := a.classify(ctx, question)
	if err == nil {
		var out Analysis
		if out, err = Parse(raw); err == nil {
			return out
		}
	}
	a.log.Warn("analyzer: classification failed, treating as general question",
		slog.String("error", err.Error()),
	)
	return Fallback(question)
}

func (a *Analyzer) classify(ctx context.Context, question string) (string, error) {
	msgs, err := a.prompts.ClassifierMessages(ctx, question)
	if err != nil {
		return "", err
	}
	resp, err := a.model.Generate(ctx, msgs, model.WithTemperature(0))
	if err != nil {
		return "", fmt.Errorf("analyzer: classifier call: %w", err)
	}
	if resp == nil {
		return "", fmt.Errorf("analyzer: classifier returned no message")
	}
	return resp.Content, nil
}

// ExtractJSON strips Markdown code fences and returns the outermost {...}
// span of text.
func ExtractJSON(text string) (string, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = leadingFence.ReplaceAllString(text, "")
		text = trailingFence.ReplaceAllString(text, "")
	}
	start, end := strings.Index(text, "{"), strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", errNoJSON
	}
	return text[start : end+1], nil
}

// Parse turns raw classifier output into a normalised Analysis.
func Parse(raw string) (Analysis, error) {
	payload, err := ExtractJSON(raw)
	if err != nil {
		return Analysis{}, err
	}
	if !gjson.Valid(payload) {
		return Analysis{}, fmt.Errorf("analyzer: invalid JSON payload")
	}
	res, err := compiledSchema.Validate(gojsonschema.NewStringLoader(payload))
	if err != nil {
		return Analysis{}, fmt.Errorf("analyzer: validate payload: %w", err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return Analysis{}, fmt.Errorf("analyzer: payload schema: %s", strings.Join(msgs, "; "))
	}

	doc := gjson.Parse(payload)
	out := Analysis{
		Intent:         ParseIntent(doc.Get("intent").String()),
		NeedsRetrieval: true,
	}
	if nr := doc.Get("needs_retrieval"); nr.Exists() {
		out.NeedsRetrieval = nr.Bool()
	}

	for _, q := range doc.Get("search_queries").Array() {
		if s := strings.TrimSpace(q.String()); s != "" {
			out.Searches = append(out.Searches, s)
		}
		if len(out.Searches) == maxSearches {
			break
		}
	}

	if mf := doc.Get("metadata_filter"); mf.IsObject() {
		filter := rag.Filter{}
		mf.ForEach(func(k, v gjson.Result) bool {
			filter[k.String()] = v.String()
			return true
		})
		if len(filter) == 1 {
			out.Filter = filter
		}
	}
	return out, nil
}
