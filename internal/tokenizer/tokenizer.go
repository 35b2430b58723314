// Package tokenizer estimates token counts per model family.
//
// No exact tokenizer is shipped: the engine only needs token counts for
// context windowing, where a conservative byte-ratio estimate is sufficient
// and keeps the hot path allocation-free.
package tokenizer

import "strings"

// Estimator estimates token counts for one model family.
type Estimator struct {
	family        string
	bytesPerToken float64
}

// family ratios, most specific prefix first.
var families = []struct {
	prefixes []string
	family   string
	ratio    float64
}{
	{[]string{"claude"}, "anthropic", 3.8},
	{[]string{"gpt-", "o1", "o3", "chatgpt"}, "openai", 4.0},
	{[]string{"gemini"}, "gemini", 4.0},
	{[]string{"ep-", "doubao"}, "ark", 3.5},
}

const defaultRatio = 4.0

// ForModel returns the estimator for the family the model id belongs to.
// Unknown models get the default ratio.
func ForModel(modelID string) *Estimator {
	id := strings.ToLower(modelID)
	for _, f := range families {
		for _, p := range f.prefixes {
			if strings.HasPrefix(id, p) {
				return &Estimator{family: f.family, bytesPerToken: f.ratio}
			}
		}
	}
	return &Estimator{family: "default", bytesPerToken: defaultRatio}
}

// Family returns the family name the estimator was built for.
func (e *Estimator) Family() string {
	return e.family
}

// Encode returns the estimated token count of text. Empty text costs zero;
// non-empty text always costs at least one token.
func (e *Estimator) Encode(text string) int {
	if text == "" {
		return 0
	}
	n := int(float64(len(text)) / e.bytesPerToken)
	if n < 1 {
		return 1
	}
	return n
}
