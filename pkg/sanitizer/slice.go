package sanitizer

func NormalizeStringSlice(items []string, normalizer func(string) string) []string {
	if len(items) == 0 {
		return []string{}
	}

	seen := make(map[string]bool)
	result := make([]string, 0, len(items))

	for _, item := range items {
		normalized := normalizer(item)

		if normalized == "" || seen[normalized] {
			continue
		}

		seen[normalized] = true
		result = append(result, normalized)
	}

	return result
}

// NormalizeIDs trims and dedupes ids, keeping first occurrence order.
func NormalizeIDs(ids []string) []string {
	return NormalizeStringSlice(ids, TrimAndNormalize)
}
