package recovery

// defaultWords is the fixed common-word list used to judge how English-like
// a text is. Only alphabetic runs of three or more letters are ever scored,
// so shorter function words are omitted. The tail of the list carries the
// charter vocabulary that dominates marketplace chat traffic.
var defaultWords = []string{
	"the", "and", "for", "are", "but", "not", "was", "all", "can", "had",
	"her", "has", "him", "his", "how", "its", "new", "now", "one", "our",
	"out", "she", "see", "two", "who", "why", "you", "any", "may", "get",
	"that", "this", "with", "have", "will", "your", "from", "they", "been",
	"good", "just", "know", "like", "long", "look", "make", "many", "more",
	"much", "need", "only", "over", "some", "such", "take", "than", "them",
	"then", "time", "very", "want", "well", "were", "what", "when",
	"about", "after", "again", "also", "back", "because", "before", "being",
	"between", "both", "could", "down", "each", "even", "find", "first",
	"give", "here", "into", "other", "people", "please", "right", "should",
	"still", "there", "these", "thing", "think", "those", "through", "under",
	"where", "which", "while", "would", "year", "work",
	// charter marketplace vocabulary
	"flight", "trip", "quote", "charter", "aircraft", "airport", "price",
	"passenger", "depart", "departure", "arrival", "available", "hello",
	"thanks", "thank", "best", "regards", "message", "send", "confirm",
}

// DefaultWords returns a copy of the built-in common-word list.
func DefaultWords() []string {
	out := make([]string, len(defaultWords))
	copy(out, defaultWords)
	return out
}

// wordSet builds a lookup set from a word list, lowercasing entries.
func wordSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[lower(w)] = struct{}{}
	}
	return set
}

// lower is an ASCII-only lowercase; the tokenizer only emits ASCII letters.
func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
