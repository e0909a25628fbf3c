package search

import (
	"encoding/json"
	"fmt"

	"github.com/lumenmart/prodsearch/internal/core"
	"github.com/lumenmart/prodsearch/internal/logger"
)

// FormatResultsAsJSON formats search results into a JSON string for
// collaborators that want a ready-to-send payload.
func FormatResultsAsJSON(query string, results []core.SearchResult) string {
	if len(results) == 0 {
		payload, _ := json.Marshal(map[string]interface{}{
			"query":   query,
			"results": []core.SearchResult{},
			"message": "No products found matching your search criteria.",
		})
		return string(payload)
	}

	payload, err := json.Marshal(map[string]interface{}{
		"query":   query,
		"results": results,
		"message": fmt.Sprintf("Found %d relevant products", len(results)),
	})
	if err != nil {
		logger.Error("Failed to marshal search results to JSON: %v", err)
		return `{"error": "Failed to format results as JSON"}`
	}

	return string(payload)
}
