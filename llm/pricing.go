package llm

import "strings"

// textPrice is USD per million tokens.
type textPrice struct {
	input  float64
	output float64
}

// Static list prices used for usage accounting. Unknown models cost 0 so
// accounting never blocks a call.
var textPrices = map[string]textPrice{
	"gemini-2.0-flash":  {input: 0.10, output: 0.40},
	"gemini-2.5-flash":  {input: 0.30, output: 2.50},
	"gemini-2.5-pro":    {input: 1.25, output: 10.00},
	"claude-sonnet-4-5": {input: 3.00, output: 15.00},
	"claude-haiku-4-5":  {input: 1.00, output: 5.00},
	"gpt-4o":            {input: 2.50, output: 10.00},
	"gpt-4o-mini":       {input: 0.15, output: 0.60},
}

// imagePrices is USD per generated image.
var imagePrices = map[string]float64{
	"gemini-2.5-flash-image":         0.039,
	"gemini-2.5-flash-image-preview": 0.039,
}

// baseModel strips the "provider:" prefix and dated or numbered suffixes
// providers echo back, e.g. "gemini:gemini-2.0-flash-001".
func baseModel(model string) string {
	if i := strings.IndexByte(model, ':'); i >= 0 {
		model = model[i+1:]
	}
	return model
}

func lookupText(model string) (textPrice, bool) {
	m := baseModel(model)
	if p, ok := textPrices[m]; ok {
		return p, true
	}
	// longest known prefix wins
	best, found := "", false
	for k := range textPrices {
		if strings.HasPrefix(m, k) && len(k) > len(best) {
			best, found = k, true
		}
	}
	return textPrices[best], found
}

// TextCost estimates the price of one completion.
func TextCost(model string, inputTokens, outputTokens int) float64 {
	p, ok := lookupText(model)
	if !ok {
		return 0
	}
	return (float64(inputTokens)*p.input + float64(outputTokens)*p.output) / 1e6
}

// ImageCost estimates the price of n generated images.
func ImageCost(model string, n int) float64 {
	return imagePrices[baseModel(model)] * float64(n)
}
