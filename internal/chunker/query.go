package chunker

import "strings"

// stopWords are dropped when building the keyword query variant.
// English and Turkish, matching the languages of typical corpora.
var stopWords = map[string]bool{}

func init() {
	for _, w := range strings.Fields(
		"a an the is are was were be been being have has had do does did will would could " +
			"should may might shall can to of in for on with at by from as into about between " +
			"through during and but or nor not so yet it its this that these those i me my we " +
			"our you your he she they them their what which who whom how when where why " +
			"bir ve ile de da bu o ne nasıl nerede neden için gibi daha en çok var") {
		stopWords[w] = true
	}
}

// ExpandQuery produces search variants for a query: the original, a
// lowercase form when it differs, and a stop-word-stripped keyword form
// when at least two keywords remain and something was actually stripped.
func ExpandQuery(query string) []string {
	variants := []string{query}

	lower := strings.ToLower(query)
	if lower != query {
		variants = append(variants, lower)
	}

	words := strings.Fields(lower)
	keywords := make([]string, 0, len(words))
	for _, w := range words {
		if !stopWords[w] {
			keywords = append(keywords, w)
		}
	}

	if len(keywords) >= 2 && len(keywords) < len(words) {
		variants = append(variants, strings.Join(keywords, " "))
	}

	return variants
}
