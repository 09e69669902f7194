// Package prompts compiles the assistant's prompt assets into eino chat
// templates. The assets are embedded in the binary; a directory override
// (PROMPTS_DIR) can replace any of them by file name without a rebuild.
package prompts

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/orangebot-go/internal/customer"
)

// Asset file names.
const (
	SystemFile           = "system.tmpl"
	UserFile             = "user.tmpl"
	ClassifierSystemFile = "classifier_system.tmpl"
	ClassifierUserFile   = "classifier_user.tmpl"
)

// Template variable names.
const (
	varProfile  = "profile"
	varHistory  = "history"
	varContext  = "context"
	varQuestion = "question"
)

//go:embed templates/*.tmpl
var embedded embed.FS

// Set holds the compiled answer and classifier templates.
type Set struct {
	answer     prompt.ChatTemplate
	classifier prompt.ChatTemplate
}

// AnswerInput is the data rendered into the answer template.
type AnswerInput struct {
	// Profile is the logged-in customer, or nil.
	Profile *customer.Profile
	// History holds prior turns as alternating user/assistant messages.
	History []*schema.Message
	// Context is the formatted retrieval context.
	Context string
	// Question is the customer's raw question.
	Question string
}

// Load compiles the templates. When dir is non-empty, files found there
// replace the embedded asset with the same name.
func Load(dir string) (*Set, error) {
	read := func(name string) (string, error) {
		if dir != "" {
			b, err := os.ReadFile(filepath.Join(dir, name))
			switch {
			case err == nil:
				return string(b), nil
			case !errors.Is(err, fs.ErrNotExist):
				return "", fmt.Errorf("prompts: read override %s: %w", name, err)
			}
		}
		b, err := embedded.ReadFile("templates/" + name)
		if err != nil {
			return "", fmt.Errorf("prompts: read embedded %s: %w", name, err)
		}
		return string(b), nil
	}

	texts := make(map[string]string, 4)
	for _, name := range []string{SystemFile, UserFile, ClassifierSystemFile, ClassifierUserFile} {
		t, err := read(name)
		if err != nil {
			return nil, err
		}
		texts[name] = t
	}

	return &Set{
		answer: prompt.FromMessages(schema.GoTemplate,
			schema.SystemMessage(texts[SystemFile]),
			schema.MessagesPlaceholder(varHistory, true),
			schema.UserMessage(texts[UserFile]),
		),
		classifier: prompt.FromMessages(schema.GoTemplate,
			schema.SystemMessage(texts[ClassifierSystemFile]),
			schema.UserMessage(texts[ClassifierUserFile]),
		),
	}, nil
}

// MustLoadEmbedded compiles the embedded templates only. It panics if the
// embedded assets are broken, which is a build defect.
func MustLoadEmbedded() *Set {
	s, err := Load("")
	if err != nil {
		panic(err)
	}
	return s
}

// AnswerMessages renders the system prompt, history and user message.
func (s *Set) AnswerMessages(ctx context.Context, in AnswerInput) ([]*schema.Message, error) {
	history := in.History
	if history == nil {
		history = []*schema.Message{}
	}
	msgs, err := s.answer.Format(ctx, map[string]any{
		varProfile:  in.Profile,
		varHistory:  history,
		varContext:  in.Context,
		varQuestion: in.Question,
	})
	if err != nil {
		return nil, fmt.Errorf("prompts: format answer: %w", err)
	}
	return msgs, nil
}

// ClassifierMessages renders the classifier system and user messages.
func (s *Set) ClassifierMessages(ctx context.Context, question string) ([]*schema.Message, error) {
	msgs, err := s.classifier.Format(ctx, map[string]any{varQuestion: question})
	if err != nil {
		return nil, fmt.Errorf("prompts: format classifier: %w", err)
	}
	return msgs, nil
}
