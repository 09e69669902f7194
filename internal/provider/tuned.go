package provider

import (
	"context"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// tunedModel prepends the handle's sampling options to every call. Options
// supplied by the caller come later and therefore win.
type tunedModel struct {
	inner    model.BaseChatModel
	defaults []model.Option
}

// newTuned wraps m so every call carries t. A negative temperature omits it.
func newTuned(m model.BaseChatModel, t SharedTuning) *tunedModel {
	var opts []model.Option
	if t.Temperature >= 0 {
		opts = append(opts, model.WithTemperature(t.Temperature))
	}
	if t.TopP > 0 {
		opts = append(opts, model.WithTopP(t.TopP))
	}
	if t.MaxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(t.MaxTokens))
	}
	return &tunedModel{inner: m, defaults: opts}
}

// Generate implements model.BaseChatModel.
func (m *tunedModel) Generate(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	return m.inner.Generate(ctx, in, m.merge(opts)...)
}

// Stream implements model.BaseChatModel.
func (m *tunedModel) Stream(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return m.inner.Stream(ctx, in, m.merge(opts)...)
}

func (m *tunedModel) merge(opts []model.Option) []model.Option {
	out := make([]model.Option, 0, len(m.defaults)+len(opts))
	out = append(out, m.defaults...)
	return append(out, opts...)
}
