package cmd

import (
	"github.com/nextlevelbuilder/agentbridge/internal/config"
	"github.com/nextlevelbuilder/agentbridge/internal/providers"
)

// registerProviders constructs and registers every configured LLM provider
// with reg, skipping any provider whose API key is empty. Each provider
// keeps its own default API base so individual config entries only need to
// set APIBase for self-hosted or proxy endpoints.
func registerProviders(reg *providers.Registry, cfg *config.Config) {
	p := cfg.Providers

	if p.Anthropic.APIKey != "" {
		var opts []providers.AnthropicOption
		if p.Anthropic.APIBase != "" {
			opts = append(opts, providers.WithAnthropicBaseURL(p.Anthropic.APIBase))
		}
		reg.Register(providers.NewAnthropicProvider(p.Anthropic.APIKey, opts...))
	}

	if p.OpenAI.APIKey != "" {
		reg.Register(providers.NewOpenAIProvider("openai", p.OpenAI.APIKey, p.OpenAI.APIBase, ""))
	}

	if p.OpenRouter.APIKey != "" {
		apiBase := p.OpenRouter.APIBase
		if apiBase == "" {
			apiBase = "https://openrouter.ai/api/v1"
		}
		reg.Register(providers.NewOpenAIProvider("openrouter", p.OpenRouter.APIKey, apiBase, ""))
	}

	if p.Groq.APIKey != "" {
		apiBase := p.Groq.APIBase
		if apiBase == "" {
			apiBase = "https://api.groq.com/openai/v1"
		}
		reg.Register(providers.NewOpenAIProvider("groq", p.Groq.APIKey, apiBase, ""))
	}

	if p.Gemini.APIKey != "" {
		apiBase := p.Gemini.APIBase
		if apiBase == "" {
			apiBase = "https://generativelanguage.googleapis.com/v1beta/openai"
		}
		reg.Register(providers.NewOpenAIProvider("gemini", p.Gemini.APIKey, apiBase, ""))
	}

	if p.DeepSeek.APIKey != "" {
		apiBase := p.DeepSeek.APIBase
		if apiBase == "" {
			apiBase = "https://api.deepseek.com/v1"
		}
		reg.Register(providers.NewOpenAIProvider("deepseek", p.DeepSeek.APIKey, apiBase, ""))
	}

	if p.Mistral.APIKey != "" {
		apiBase := p.Mistral.APIBase
		if apiBase == "" {
			apiBase = "https://api.mistral.ai/v1"
		}
		reg.Register(providers.NewOpenAIProvider("mistral", p.Mistral.APIKey, apiBase, ""))
	}

	if p.XAI.APIKey != "" {
		apiBase := p.XAI.APIBase
		if apiBase == "" {
			apiBase = "https://api.x.ai/v1"
		}
		reg.Register(providers.NewOpenAIProvider("xai", p.XAI.APIKey, apiBase, ""))
	}

	if p.MiniMax.APIKey != "" {
		apiBase := p.MiniMax.APIBase
		if apiBase == "" {
			apiBase = "https://api.minimax.chat/v1"
		}
		reg.Register(providers.NewOpenAIProvider("minimax", p.MiniMax.APIKey, apiBase, "").WithChatPath("/text/chatcompletion_v2"))
	}

	if p.Cohere.APIKey != "" {
		apiBase := p.Cohere.APIBase
		if apiBase == "" {
			apiBase = "https://api.cohere.ai/compatibility/v1"
		}
		reg.Register(providers.NewOpenAIProvider("cohere", p.Cohere.APIKey, apiBase, ""))
	}

	if p.Perplexity.APIKey != "" {
		apiBase := p.Perplexity.APIBase
		if apiBase == "" {
			apiBase = "https://api.perplexity.ai"
		}
		reg.Register(providers.NewOpenAIProvider("perplexity", p.Perplexity.APIKey, apiBase, ""))
	}
}
