package signals

import (
	"math"
	"net/http"
)

func analyzeRequest(r *http.Request, body []byte, claimed Claimed) RequestAnalysis {
	analysis := RequestAnalysis{
		RequestSize:       len(body),
		UserAgentAnalysis: analyzeUserAgent(r.UserAgent(), claimed),
	}
	if len(body) > 0 {
		analysis.PayloadEntropy = calculateEntropy(body)
	}
	return analysis
}

// calculateEntropy returns the Shannon entropy of data in bits per byte.
func calculateEntropy(data []byte) float64 {
	if len(data) == 0 {
		return 0
	}
	var freq [256]int
	for _, b := range data {
		freq[b]++
	}
	entropy := 0.0
	length := float64(len(data))
	for _, count := range freq {
		if count > 0 {
			p := float64(count) / length
			entropy -= p * math.Log2(p)
		}
	}
	return entropy
}
