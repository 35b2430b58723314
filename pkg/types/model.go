package types

// OutputType is the capability axis a provider declares: what kind of result
// it can produce for a request.
type OutputType string

const (
	OutputText       OutputType = "text"
	OutputStructured OutputType = "structured"
	OutputImage      OutputType = "image"
)

// Model describes one model a provider can serve.
type Model struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	ProviderType    string  `json:"providerType"`
	ContextLength   int     `json:"contextLength"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
	InputPrice      float64 `json:"inputPrice"`
	OutputPrice     float64 `json:"outputPrice"`
}

// ModelCondition selects a provider: the output capability required and,
// optionally, the model id that must serve it. An empty ModelID matches any
// model the provider offers.
type ModelCondition struct {
	OutputType OutputType `json:"outputType"`
	ModelID    string     `json:"modelId,omitempty"`
}
