package mbflow

import "github.com/smilemakc/mbflow/internal/application/executor"

// NodeConfig is satisfied by any node configuration type that knows how to
// flatten itself into the plain map a domain.Node stores as its Config().
type NodeConfig interface {
	ToMap() (map[string]any, error)
}

// Re-export all config types for public use, so callers can build typed
// node configs without importing the internal executor package directly.
type (
	OpenAICompletionConfig       = executor.OpenAICompletionConfig
	HTTPRequestConfig            = executor.HTTPRequestConfig
	TelegramMessageConfig        = executor.TelegramMessageConfig
	ConditionalRouterConfig      = executor.ConditionalRouterConfig
	DataMergerConfig             = executor.DataMergerConfig
	DataAggregatorConfig         = executor.DataAggregatorConfig
	ScriptExecutorConfig         = executor.ScriptExecutorConfig
	JSONParserConfig             = executor.JSONParserConfig
	OpenAIResponsesConfig        = executor.OpenAIResponsesConfig
	ConditionalEdgeConfig        = executor.ConditionalEdgeConfig
	FunctionCallConfig           = executor.FunctionCallConfig
	OpenAIFunctionResponseConfig = executor.OpenAIFunctionResponseConfig
	OpenAITool                   = executor.OpenAITool
	OpenAIFunction               = executor.OpenAIFunction
)
