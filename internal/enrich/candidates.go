package enrich

import "strings"

// QueryCandidates builds the search terms tried for one name: the raw name,
// its alias (if the alias table knows it) and the name without legal
// suffixes. Duplicates by normalized form are dropped; order is preserved.
func QueryCandidates(raw string, aliases map[string]string, suffixes []string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "-" {
		return nil
	}

	var (
		out  []string
		seen = map[string]bool{}
	)
	add := func(v string) {
		v = strings.TrimSpace(v)
		key := Normalize(v)
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		out = append(out, v)
	}

	add(raw)
	if alias, ok := aliases[Normalize(raw)]; ok {
		add(alias)
	}
	add(StripSuffixes(raw, suffixes))

	return out
}

// StripSuffixes removes trailing legal or generic words ("brewing", "ltd", ...)
// from a name. The first word is always kept.
func StripSuffixes(name string, suffixes []string) string {
	drop := make(map[string]bool, len(suffixes))
	for _, s := range suffixes {
		drop[Normalize(s)] = true
	}

	words := strings.Fields(Normalize(name))
	for len(words) > 1 && drop[words[len(words)-1]] {
		words = words[:len(words)-1]
	}
	return strings.Join(words, " ")
}
