package llm

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/s33g/gpt-prompter/internal/config"
)

// Family selects the request and response shape for a model
type Family string

const (
	FamilyChat       Family = config.FamilyChat
	FamilyCompletion Family = config.FamilyCompletion
)

// Fixed OpenAI endpoints
const (
	DefaultBaseURL     = "https://api.openai.com/v1"
	ChatEndpoint       = DefaultBaseURL + chatPath
	CompletionEndpoint = DefaultBaseURL + completionPath

	chatPath       = "/chat/completions"
	completionPath = "/completions"
)

// ModelDescriptor is the router's view of one model
type ModelDescriptor struct {
	ID            string
	Family        Family
	Endpoint      string
	MaxTokens     int // sent as max_tokens when > 0
	ContextWindow int // 0 when unknown
}

// builtinModels seeds the routing table; config entries override by ID
var builtinModels = []config.Model{
	{ID: "gpt-3.5-turbo", Family: config.FamilyChat, ContextWindow: 16385},
	{ID: "gpt-3.5-turbo-16k", Family: config.FamilyChat, ContextWindow: 16385},
	{ID: "gpt-4", Family: config.FamilyChat, ContextWindow: 8192},
	{ID: "gpt-4-32k", Family: config.FamilyChat, ContextWindow: 32768},
	{ID: "gpt-4-turbo", Family: config.FamilyChat, ContextWindow: 128000},
	{ID: "gpt-4o", Family: config.FamilyChat, ContextWindow: 128000},
	{ID: "gpt-4o-mini", Family: config.FamilyChat, ContextWindow: 128000},
	{ID: "gpt-3.5-turbo-instruct", Family: config.FamilyCompletion, ContextWindow: 4096},
	{ID: "text-davinci-003", Family: config.FamilyCompletion, ContextWindow: 4097},
	{ID: "text-davinci-002", Family: config.FamilyCompletion, ContextWindow: 4097},
	{ID: "text-curie-001", Family: config.FamilyCompletion, ContextWindow: 2049},
	{ID: "text-babbage-001", Family: config.FamilyCompletion, ContextWindow: 2049},
	{ID: "text-ada-001", Family: config.FamilyCompletion, ContextWindow: 2049},
	{ID: "davinci-002", Family: config.FamilyCompletion, ContextWindow: 16384},
	{ID: "babbage-002", Family: config.FamilyCompletion, ContextWindow: 16384},
	{ID: "davinci", Family: config.FamilyCompletion, ContextWindow: 2049},
	{ID: "curie", Family: config.FamilyCompletion, ContextWindow: 2049},
	{ID: "babbage", Family: config.FamilyCompletion, ContextWindow: 2049},
	{ID: "ada", Family: config.FamilyCompletion, ContextWindow: 2049},
}

// Router maps model identifiers to descriptors. The table is fixed at
// construction. Unknown and empty identifiers select the default model.
type Router struct {
	models       map[string]ModelDescriptor // key: lower-cased ID
	defaultModel ModelDescriptor
	baseURL      string
	logger       zerolog.Logger
}

// NewRouter builds the routing table from the built-in registry and the
// configured overrides. The default model must resolve to a known entry.
func NewRouter(cfg config.OpenAIConfig, logger zerolog.Logger) (*Router, error) {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	r := &Router{
		models:  make(map[string]ModelDescriptor, len(builtinModels)+len(cfg.Models)),
		baseURL: baseURL,
		logger:  logger.With().Str("component", "router").Logger(),
	}

	for _, entries := range [][]config.Model{builtinModels, cfg.Models} {
		for _, m := range entries {
			desc, err := describe(m, baseURL)
			if err != nil {
				return nil, err
			}
			r.models[strings.ToLower(m.ID)] = desc
		}
	}

	def, ok := r.Lookup(cfg.DefaultModel)
	if !ok {
		return nil, fmt.Errorf("default model %s is not in the model registry", cfg.DefaultModel)
	}
	r.defaultModel = def

	return r, nil
}

func describe(m config.Model, baseURL string) (ModelDescriptor, error) {
	desc := ModelDescriptor{
		ID:            m.ID,
		Family:        Family(m.Family),
		MaxTokens:     m.MaxTokens,
		ContextWindow: m.ContextWindow,
	}
	switch desc.Family {
	case FamilyChat:
		desc.Endpoint = baseURL + chatPath
	case FamilyCompletion:
		desc.Endpoint = baseURL + completionPath
	default:
		return ModelDescriptor{}, fmt.Errorf("model %s has unknown family %q", m.ID, m.Family)
	}
	return desc, nil
}

// Lookup returns the descriptor for an exact (case-insensitive) match
func (r *Router) Lookup(modelID string) (ModelDescriptor, bool) {
	desc, ok := r.models[strings.ToLower(strings.TrimSpace(modelID))]
	return desc, ok
}

// Resolve returns the descriptor for modelID. Unregistered identifiers fall
// back to the default model.
func (r *Router) Resolve(modelID string) ModelDescriptor {
	id := strings.TrimSpace(modelID)
	if id == "" {
		return r.defaultModel
	}
	if desc, ok := r.Lookup(id); ok {
		return desc
	}
	r.logger.Warn().
		Str("model", id).
		Str("default", r.defaultModel.ID).
		Msg("Unregistered model, using default")
	return r.defaultModel
}

// ResolveFamily returns the request family for modelID
func (r *Router) ResolveFamily(modelID string) Family {
	return r.Resolve(modelID).Family
}

// ResolveEndpoint returns the endpoint URL for modelID
func (r *Router) ResolveEndpoint(modelID string) string {
	return r.Resolve(modelID).Endpoint
}

// DefaultModel returns the fallback descriptor
func (r *Router) DefaultModel() ModelDescriptor {
	return r.defaultModel
}

// Models returns every registered descriptor sorted by ID
func (r *Router) Models() []ModelDescriptor {
	out := make([]ModelDescriptor, 0, len(r.models))
	for _, desc := range r.models {
		out = append(out, desc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
