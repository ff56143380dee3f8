package llm

import "unicode/utf8"

// runesPerToken approximates how many runes one model token covers.
// Both the chunk budget and the answer context budget run on this estimate,
// so the two stay consistent.
const runesPerToken = 4

// EstimateTokens returns an approximate token count for the given text.
func EstimateTokens(text string) int {
	runes := utf8.RuneCountInString(text)
	if runes == 0 {
		return 0
	}
	return (runes + runesPerToken - 1) / runesPerToken
}

// TokensToRunes converts a token budget to the equivalent rune budget.
func TokensToRunes(tokens int) int {
	return tokens * runesPerToken
}
