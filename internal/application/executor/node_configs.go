package executor

import "encoding/json"

// toMap round-trips a config struct through JSON to produce the plain
// map[string]any representation a domain.Node stores as its Config().
func toMap(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// OpenAICompletionConfig represents the configuration for an OpenAI completion node.
type OpenAICompletionConfig struct {
	// Model is the OpenAI model to use (default: "gpt-4o")
	Model string `json:"model"`

	// Prompt is the prompt template with optional variable substitution using {{variable}}
	Prompt string `json:"prompt"`

	// MaxTokens is the maximum number of tokens to generate (optional)
	MaxTokens int `json:"max_tokens,omitempty"`

	// Temperature controls randomness (0.0-2.0, optional)
	Temperature float64 `json:"temperature,omitempty"`

	// OutputKey is the key to store the output in execution context (default: "output")
	OutputKey string `json:"output_key,omitempty"`

	// APIKey is the OpenAI API key (optional, can come from context or default)
	APIKey string `json:"api_key,omitempty"`
}

// ToMap converts the config into the plain map a domain.Node stores.
func (c *OpenAICompletionConfig) ToMap() (map[string]any, error) { return toMap(c) }

// HTTPRequestConfig represents the configuration for an HTTP request node.
type HTTPRequestConfig struct {
	// URL is the request URL template with optional variable substitution
	URL string `json:"url"`

	// Method is the HTTP method (default: "GET")
	Method string `json:"method,omitempty"`

	// Body is the request body (string or map, optional)
	Body interface{} `json:"body,omitempty"`

	// Headers is a map of HTTP headers with optional variable substitution
	Headers map[string]string `json:"headers,omitempty"`

	// OutputKey is the key to store the response in execution context (default: "output")
	OutputKey string `json:"output_key,omitempty"`
}

// ToMap converts the config into the plain map a domain.Node stores.
func (c *HTTPRequestConfig) ToMap() (map[string]any, error) { return toMap(c) }

// ConditionalRouterConfig represents the configuration for a conditional router node.
type ConditionalRouterConfig struct {
	// InputKey is the variable key to read from execution context
	InputKey string `json:"input_key"`

	// Routes maps condition values to route identifiers
	// Can be map[string]string or map[string]interface{}
	Routes map[string]interface{} `json:"routes"`
}

// ToMap converts the config into the plain map a domain.Node stores.
func (c *ConditionalRouterConfig) ToMap() (map[string]any, error) { return toMap(c) }

// DataMergerConfig represents the configuration for a data merger node.
type DataMergerConfig struct {
	// Strategy is the merging strategy (default: "select_first_available")
	// Options: "select_first_available", "merge_all"
	Strategy string `json:"strategy,omitempty"`

	// Sources is a list of variable keys to merge from
	Sources []string `json:"sources"`

	// OutputKey is the key to store the merged result (default: "output")
	OutputKey string `json:"output_key,omitempty"`
}

// ToMap converts the config into the plain map a domain.Node stores.
func (c *DataMergerConfig) ToMap() (map[string]any, error) { return toMap(c) }

// DataAggregatorConfig represents the configuration for a data aggregator node.
type DataAggregatorConfig struct {
	// Fields maps output field names to source variable keys
	Fields map[string]string `json:"fields"`

	// OutputFormat is the output format (optional, default: "json")
	OutputFormat string `json:"output_format,omitempty"`

	// OutputKey is the key to store the aggregated result (default: "output")
	OutputKey string `json:"output_key,omitempty"`
}

// ToMap converts the config into the plain map a domain.Node stores.
func (c *DataAggregatorConfig) ToMap() (map[string]any, error) { return toMap(c) }

// ScriptExecutorConfig represents the configuration for a script executor node.
type ScriptExecutorConfig struct {
	// Script is the script code to execute
	Script string `json:"script,omitempty"`

	// Language is the script language (e.g., "javascript", "python")
	Language string `json:"language,omitempty"`

	// OutputKey is the key to store the script output (default: "output")
	OutputKey string `json:"output_key,omitempty"`
}

// ToMap converts the config into the plain map a domain.Node stores.
func (c *ScriptExecutorConfig) ToMap() (map[string]any, error) { return toMap(c) }

// ConditionalEdgeConfig represents the configuration for a conditional edge.
type ConditionalEdgeConfig struct {
	// Condition is the expression to evaluate (e.g., "quality_rating == 'high'")
	Condition string `json:"condition"`
}

// ToMap converts the config into the plain map a domain.Node stores.
func (c *ConditionalEdgeConfig) ToMap() (map[string]any, error) { return toMap(c) }

// JSONParserConfig represents the configuration for a JSON parsing node.
type JSONParserConfig struct {
	// InputKey is the variable key holding the raw JSON string (required)
	InputKey string `json:"input_key,omitempty"`

	// OutputKey is the key to store the parsed result (default: InputKey)
	OutputKey string `json:"output_key,omitempty"`

	// FailOnError stops the workflow if parsing fails; otherwise the node
	// passes the original value through with status "parse_error" and
	// continues. When the key is absent from the node config, the executor
	// treats it as true.
	FailOnError bool `json:"fail_on_error,omitempty"`
}

// ToMap converts the config into the plain map a domain.Node stores.
func (c *JSONParserConfig) ToMap() (map[string]any, error) { return toMap(c) }

// TelegramMessageConfig represents the configuration for a Telegram message node.
type TelegramMessageConfig struct {
	// BotToken is the Telegram bot API token (optional, can come from context or default)
	BotToken string `json:"bot_token,omitempty"`

	// ChatID is the target chat, channel, or user ID
	ChatID string `json:"chat_id"`

	// Text is the message template with optional variable substitution
	Text string `json:"text"`

	// ParseMode selects Telegram's text formatting mode (e.g. "Markdown", "HTML")
	ParseMode string `json:"parse_mode,omitempty"`

	// DisableNotification sends the message silently
	DisableNotification bool `json:"disable_notification,omitempty"`

	// OutputKey is the key to store the API response (default: "telegram_response")
	OutputKey string `json:"output_key,omitempty"`
}

// ToMap converts the config into the plain map a domain.Node stores.
func (c *TelegramMessageConfig) ToMap() (map[string]any, error) { return toMap(c) }

// OpenAITool describes a function tool made available to an OpenAI Responses call.
type OpenAITool struct {
	Type     string         `json:"type"`
	Function OpenAIFunction `json:"function"`
}

// OpenAIFunction describes a single callable function within an OpenAITool.
type OpenAIFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// OpenAIResponsesConfig represents the configuration for an OpenAI Responses API node,
// which extends the plain completion node with fine-grained sampling controls
// and an optional structured response_format.
type OpenAIResponsesConfig struct {
	// Model is the OpenAI model to use (default: "gpt-4o")
	Model string `json:"model"`

	// Prompt is the prompt template with optional variable substitution using {{variable}}
	Prompt string `json:"prompt"`

	// Tools lists the function tools the model may call (reserved for future use
	// by function-call nodes; not yet dispatched by this node)
	Tools []OpenAITool `json:"tools,omitempty"`

	// MaxTokens is the maximum number of tokens to generate (optional)
	MaxTokens int `json:"max_tokens,omitempty"`

	// Temperature controls randomness (0.0-2.0, optional)
	Temperature float64 `json:"temperature,omitempty"`

	// TopP is the nucleus-sampling parameter (optional)
	TopP float64 `json:"top_p,omitempty"`

	// FrequencyPenalty penalizes tokens proportional to their existing frequency (optional)
	FrequencyPenalty float64 `json:"frequency_penalty,omitempty"`

	// PresencePenalty penalizes tokens that have already appeared (optional)
	PresencePenalty float64 `json:"presence_penalty,omitempty"`

	// Stop lists up to four sequences where the API stops generating tokens (optional)
	Stop []string `json:"stop,omitempty"`

	// ResponseFormat is passed through to the OpenAI response_format field,
	// e.g. {"type": "json_object"} (optional)
	ResponseFormat map[string]any `json:"response_format,omitempty"`

	// OutputKey is the key to store the output in execution context (default: "output")
	OutputKey string `json:"output_key,omitempty"`

	// APIKey is the OpenAI API key (optional, can come from context or default)
	APIKey string `json:"api_key,omitempty"`
}

// ToMap converts the config into the plain map a domain.Node stores.
func (c *OpenAIResponsesConfig) ToMap() (map[string]any, error) { return toMap(c) }

// FunctionCallConfig represents the configuration for a function-call node, which
// invokes one of the tool functions requested by a preceding OpenAI Responses node.
type FunctionCallConfig struct {
	// FunctionName restricts execution to a single named function (optional; when
	// empty, the node dispatches whichever function the model requested).
	FunctionName string `json:"function_name,omitempty"`

	// InputKey is the variable key holding the function-call request (default: "output")
	InputKey string `json:"input_key,omitempty"`

	// OutputKey is the key to store the function result (default: "output")
	OutputKey string `json:"output_key,omitempty"`
}

// ToMap converts the config into the plain map a domain.Node stores.
func (c *FunctionCallConfig) ToMap() (map[string]any, error) { return toMap(c) }

// OpenAIFunctionResponseConfig represents the configuration for a node that feeds a
// function's result back into a follow-up OpenAI Responses call.
type OpenAIFunctionResponseConfig struct {
	// Model is the OpenAI model to use (default: "gpt-4o")
	Model string `json:"model"`

	// InputKey is the variable key holding the function result (default: "output")
	InputKey string `json:"input_key,omitempty"`

	// OutputKey is the key to store the final model output (default: "output")
	OutputKey string `json:"output_key,omitempty"`

	// APIKey is the OpenAI API key (optional, can come from context or default)
	APIKey string `json:"api_key,omitempty"`
}

// ToMap converts the config into the plain map a domain.Node stores.
func (c *OpenAIFunctionResponseConfig) ToMap() (map[string]any, error) { return toMap(c) }

// ActionSpec names a node type and its configuration for a single child
// action invoked by a Loop or Parallel node body.
type ActionSpec struct {
	Type   string         `json:"type"`
	Config map[string]any `json:"config,omitempty"`
}

// ConditionConfig represents the configuration for a single-expression
// condition node: Expression is evaluated once and the chosen one of
// TrueNodeID/FalseNodeID/DefaultNodeID is reported in the node output as
// next_node_id. Which successors actually run is decided by the conditions
// on this node's outgoing conditional edges, not by next_node_id.
type ConditionConfig struct {
	// Expression is a boolean expression evaluated against execution variables.
	Expression string `json:"expression"`

	// TrueNodeID is the node to route to when Expression evaluates true.
	TrueNodeID string `json:"true_node_id,omitempty"`

	// FalseNodeID is the node to route to when Expression evaluates false.
	FalseNodeID string `json:"false_node_id,omitempty"`

	// DefaultNodeID is used when Expression fails to evaluate and neither
	// TrueNodeID nor FalseNodeID applies.
	DefaultNodeID string `json:"default_node_id,omitempty"`

	// OutputKey is the key under which the boolean result is stored (default: "result")
	OutputKey string `json:"output_key,omitempty"`
}

// ToMap converts the config into the plain map a domain.Node stores.
func (c *ConditionConfig) ToMap() (map[string]any, error) { return toMap(c) }

// LoopConfig represents the configuration for a loop node: Body is executed
// once per element of Foreach (when set) or up to MaxIterations times.
type LoopConfig struct {
	// Foreach is the variable name of a collection to iterate (optional).
	// When empty, the loop runs MaxIterations times with no bound item.
	Foreach string `json:"foreach,omitempty"`

	// MaxIterations caps how many times Body runs; zero or less means a
	// default of 1000. It is also enforced as a hard ceiling when Foreach is set.
	MaxIterations int `json:"max_iterations,omitempty"`

	// ItemVar is the variable name each iteration's item is bound to (default: "item")
	ItemVar string `json:"item_var,omitempty"`

	// IndexVar is the variable name each iteration's index is bound to (default: "index")
	IndexVar string `json:"index_var,omitempty"`

	// Body is the action executed once per iteration.
	Body ActionSpec `json:"body"`
}

// ToMap converts the config into the plain map a domain.Node stores.
func (c *LoopConfig) ToMap() (map[string]any, error) { return toMap(c) }

// ParallelConfig represents the configuration for a parallel node executed
// directly against an explicit list of child actions, as opposed to the
// structural fork/join inferred from graph edges by ForkExecutor/JoinExecutor.
type ParallelConfig struct {
	// Branches are the child actions run concurrently.
	Branches []ActionSpec `json:"branches"`

	// WaitForAll, when true, waits for every branch to finish (collecting
	// every error) before returning. When false, returns as soon as one
	// branch completes successfully and cancels the rest; the node fails
	// only if every branch fails.
	WaitForAll bool `json:"wait_for_all"`

	// TimeoutPerChild bounds each branch's own execution, independent of
	// the others (a time.ParseDuration string, e.g. "30s"). Empty means no
	// per-child timeout beyond the parent context's.
	TimeoutPerChild string `json:"timeout_per_child,omitempty"`
}

// ToMap converts the config into the plain map a domain.Node stores.
func (c *ParallelConfig) ToMap() (map[string]any, error) { return toMap(c) }
