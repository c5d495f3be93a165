package mcpserver

import "encoding/json"

func allTools() []Tool {
	return []Tool{
		// Router-level tools
		{
			Name:        "cache_get",
			Description: "Look up a key across the cache layers with fallback chaining",
			InputSchema: schema(props{
				"key":   propStr("Cache key"),
				"layer": propStr("Optional explicit layer (predictive, semantic, vector, global, vector_diary)"),
			}, []string{"key"}),
		},
		{
			Name:        "cache_set",
			Description: "Store a value in the layer selected for the key",
			InputSchema: schema(props{
				"key":         propStr("Cache key"),
				"value":       propStr("Value to store"),
				"layer":       propStr("Optional explicit layer"),
				"ttl_seconds": propInt("Time to live in seconds (0 = never expires)"),
				"metadata":    propObj("Optional string metadata"),
			}, []string{"key", "value"}),
		},
		{
			Name:        "cache_delete",
			Description: "Delete a key from every cache layer",
			InputSchema: schema(props{"key": propStr("Cache key")}, []string{"key"}),
		},
		{
			Name:        "cache_search",
			Description: "Similarity search across the semantic and vector layers",
			InputSchema: schema(props{
				"query":          propStr("Query text"),
				"n_results":      propInt("Max results (default 5)"),
				"min_similarity": propNum("Minimum similarity 0.0-1.0"),
			}, []string{"query"}),
		},
		{
			Name:        "cache_stats",
			Description: "Aggregate statistics across all cache layers",
			InputSchema: schema(nil, nil),
		},
		{
			Name:        "cache_clear",
			Description: "Clear every cache layer including derived state",
			InputSchema: schema(nil, nil),
		},

		// Layer-specific tools
		{
			Name:        "predictive_cache_predict",
			Description: "Predict the user's likely next queries",
			InputSchema: schema(props{
				"query":           propStr("Current query context"),
				"user_id":         propStr("Acting user ID"),
				"max_predictions": propInt("Max predictions to return"),
			}, []string{"query"}),
		},
		{
			Name:        "semantic_cache_similar",
			Description: "Find cached keys semantically similar to the query",
			InputSchema: schema(props{
				"query":          propStr("Query text"),
				"n_results":      propInt("Max results (default 5)"),
				"min_similarity": propNum("Minimum similarity 0.0-1.0"),
			}, []string{"query"}),
		},
		{
			Name:        "vector_cache_search",
			Description: "Vector similarity search with optional reranking",
			InputSchema: schema(props{
				"query":          propStr("Query text"),
				"n_results":      propInt("Max results (default 5)"),
				"min_similarity": propNum("Minimum similarity 0.0-1.0"),
				"use_reranking":  propBool("Apply the secondary reranking pass"),
			}, []string{"query"}),
		},
		{
			Name:        "global_cache_query",
			Description: "Query the global knowledge cache with optional RAG fallback",
			InputSchema: schema(props{
				"query":        propStr("Query text"),
				"n_results":    propInt("Max results (default 5)"),
				"use_fallback": propBool("Consult the external knowledge source on a miss"),
			}, []string{"query"}),
		},
		{
			Name:        "vector_diary_session",
			Description: "Create, read, or append to a user's diary session",
			InputSchema: schema(props{
				"user_id":           propStr("Diary user ID"),
				"session_id":        propStr("Existing session ID"),
				"create_if_missing": propBool("Create a session when none is given"),
				"add_interaction":   propBool("Append the query/response pair to the session"),
				"query":             propStr("Interaction query text"),
				"response":          propStr("Interaction response text"),
			}, []string{"user_id"}),
		},
	}
}

// Schema helpers for building JSON Schema objects.

type props = map[string]any

func schema(properties map[string]any, required []string) json.RawMessage {
	s := map[string]any{"type": "object"}
	if properties != nil {
		s["properties"] = properties
	}
	if len(required) > 0 {
		s["required"] = required
	}
	data, _ := json.Marshal(s)
	return data
}

func propStr(desc string) map[string]string {
	return map[string]string{"type": "string", "description": desc}
}

func propInt(desc string) map[string]string {
	return map[string]string{"type": "integer", "description": desc}
}

func propNum(desc string) map[string]string {
	return map[string]string{"type": "number", "description": desc}
}

func propBool(desc string) map[string]string {
	return map[string]string{"type": "boolean", "description": desc}
}

func propObj(desc string) map[string]string {
	return map[string]string{"type": "object", "description": desc}
}
