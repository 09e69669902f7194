// Package assistant answers customer questions. A Generator runs one turn:
// classify, answer directly or retrieve context, call the chat model and
// clean the result. A Conversation binds a Generator to the per-session
// history store.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/orangebot-go/internal/analyzer"
	"github.com/54b3r/orangebot-go/internal/budget"
	"github.com/54b3r/orangebot-go/internal/catalog"
	"github.com/54b3r/orangebot-go/internal/customer"
	"github.com/54b3r/orangebot-go/internal/logging"
	"github.com/54b3r/orangebot-go/internal/prompts"
	"github.com/54b3r/orangebot-go/internal/rag"
	"github.com/54b3r/orangebot-go/internal/retrieval"
)

// Defaults applied by NewGenerator when an Options field is zero.
const (
	DefaultHistoryExchanges = 3
	DefaultCitationDocs     = 3
)

// Classifier plans a turn. *analyzer.Analyzer implements it.
type Classifier interface {
	Analyze(ctx context.Context, question string) analyzer.Analysis
}

// DocumentRetriever fetches context documents. *retrieval.Retriever
// implements it.
type DocumentRetriever interface {
	Retrieve(ctx context.Context, query string, searches []string, k int, filter rag.Filter) []rag.Document
}

// Exchange is one prior question/answer pair. Either side may be empty.
type Exchange struct {
	User      string
	Assistant string
}

// Reply is the outcome of one turn.
type Reply struct {
	// Text is the answer shown to the customer.
	Text string
	// Intent is the classified intent.
	Intent analyzer.Intent
	// Direct is true when a canned reply was used.
	Direct bool
	// Documents are the retrieved context documents, if any.
	Documents []rag.Document
	// Failed is true when Text is the apology after an internal error.
	Failed bool
}

// Options tune a Generator.
type Options struct {
	// Citations appends the sources of the top documents to each answer.
	Citations bool
	// HistoryExchanges is how many prior exchanges reach the model.
	HistoryExchanges int
	// MaxContextTokens bounds the prompt; older history is dropped to fit.
	MaxContextTokens int
	// RetrievalK is the number of documents retrieved per turn.
	RetrievalK int
}

// Generator produces replies. It is safe for concurrent use.
type Generator struct {
	classifier Classifier
	retriever  DocumentRetriever
	chat       model.BaseChatModel
	prompts    *prompts.Set
	catalog    *catalog.Catalog
	opts       Options
	log        *slog.Logger
}

// Deps groups the collaborators of a Generator.
type Deps struct {
	Classifier Classifier
	Retriever  DocumentRetriever
	Chat       model.BaseChatModel
	Prompts    *prompts.Set
	Catalog    *catalog.Catalog
	Logger     *slog.Logger
}

// NewGenerator validates deps and fills zero options with defaults.
func NewGenerator(deps Deps, opts Options) (*Generator, error) {
	switch {
	case deps.Classifier == nil:
		return nil, errors.New("assistant: classifier must not be nil")
	case deps.Retriever == nil:
		return nil, errors.New("assistant: retriever must not be nil")
	case deps.Chat == nil:
		return nil, errors.New("assistant: chat model must not be nil")
	case deps.Prompts == nil:
		return nil, errors.New("assistant: prompts must not be nil")
	}
	if opts.HistoryExchanges <= 0 {
		opts.HistoryExchanges = DefaultHistoryExchanges
	}
	if opts.MaxContextTokens <= 0 {
		opts.MaxContextTokens = budget.DefaultMaxContextTokens
	}
	if opts.RetrievalK <= 0 {
		opts.RetrievalK = retrieval.DefaultK
	}
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Generator{
		classifier: deps.Classifier,
		retriever:  deps.Retriever,
		chat:       deps.Chat,
		prompts:    deps.Prompts,
		catalog:    deps.Catalog,
		opts:       opts,
		log:        log,
	}, nil
}

// Respond answers question. It never fails: internal errors are logged and
// turned into the apology reply.
func (g *Generator) Respond(ctx context.Context, question string, history []Exchange, profile *customer.Profile) Reply {
	log := logging.FromContextOr(ctx, g.log)

	plan := g.classifier.Analyze(ctx, question)
	if text, ok := DirectReply(plan.Intent, profile); ok {
		log.Info("assistant: direct reply", slog.String("intent", string(plan.Intent)), slog.Bool("direct", true))
		return Reply{Text: text, Intent: plan.Intent, Direct: true}
	}

	var docs []rag.Document
	if plan.NeedsRetrieval {
		docs = g.retriever.Retrieve(ctx, question, plan.Searches, g.opts.RetrievalK, plan.Filter)
	}
	contextText := retrieval.FormatContext(docs)
	if plan.Intent.WantsComparison() && profile != nil {
		contextText += catalog.Compare(profile.MobilePlan, profile.MobileDataMB, g.catalog.Entries())
	}

	text, err := g.generate(ctx, question, contextText, history, profile)
	if err != nil {
		log.Error("assistant: generating reply failed",
			slog.String("intent", string(plan.Intent)),
			slog.String("error", err.Error()),
		)
		return Reply{Text: ApologyReply, Intent: plan.Intent, Documents: docs, Failed: true}
	}

	if g.opts.Citations {
		if sources := retrieval.Sources(docs, DefaultCitationDocs); len(sources) > 0 {
			text = fmt.Sprintf("%s\n\nSources: %s", text, strings.Join(sources, "; "))
		}
	}

	log.Info("assistant: reply generated",
		slog.String("intent", string(plan.Intent)),
		slog.Int("documents", len(docs)),
		slog.Bool("direct", false),
	)
	return Reply{Text: text, Intent: plan.Intent, Documents: docs}
}

func (g *Generator) generate(ctx context.Context, question, contextText string, history []Exchange, profile *customer.Profile) (string, error) {
	in := prompts.AnswerInput{Profile: profile, Context: contextText, Question: question}

	fixed, err := g.prompts.AnswerMessages(ctx, in)
	if err != nil {
		return "", err
	}
	in.History = budget.TrimHistory(fixed, HistoryMessages(history, g.opts.HistoryExchanges), g.opts.MaxContextTokens)
	msgs := fixed
	if len(in.History) > 0 {
		if msgs, err = g.prompts.AnswerMessages(ctx, in); err != nil {
			return "", err
		}
	}
	if budget.Exceeds(msgs, g.opts.MaxContextTokens) {
		logging.FromContextOr(ctx, g.log).Warn("assistant: prompt exceeds context budget",
			slog.Int("estimated_tokens", budget.EstimateMessages(msgs)),
			slog.Int("max_tokens", g.opts.MaxContextTokens),
		)
	}

	resp, err := g.chat.Generate(ctx, msgs)
	if err != nil {
		return "", fmt.Errorf("assistant: chat model: %w", err)
	}
	if resp == nil {
		return "", errors.New("assistant: chat model returned no message")
	}
	return Clean(resp.Content, question), nil
}

// HistoryMessages converts the last n exchanges into alternating chat
// messages, skipping empty sides.
func HistoryMessages(history []Exchange, n int) []*schema.Message {
	if n > 0 && len(history) > n {
		history = history[len(history)-n:]
	}
	var msgs []*schema.Message
	for _, ex := range history {
		if ex.User != "" {
			msgs = append(msgs, schema.UserMessage(ex.User))
		}
		if ex.Assistant != "" {
			msgs = append(msgs, schema.AssistantMessage(ex.Assistant, nil))
		}
	}
	return msgs
}
