package ngram

import "strings"

// Tokenize splits a cleaned sentence on single spaces and drops the empty
// tokens that runs of spaces leave behind.
func Tokenize(sentence string) []string {
	parts := strings.Split(sentence, " ")
	tokens := parts[:0]
	for _, p := range parts {
		if p != "" {
			tokens = append(tokens, p)
		}
	}
	return tokens
}

// Grams slides a window of order tokens over the sentence and returns every
// full window joined by single spaces, in sentence order.
func Grams(sentence string, order int) []string {
	return gramsFromTokens(Tokenize(sentence), order)
}

func gramsFromTokens(tokens []string, order int) []string {
	if order < 1 || len(tokens) < order {
		return nil
	}
	grams := make([]string, 0, len(tokens)-order+1)
	for i := order; i <= len(tokens); i++ {
		grams = append(grams, strings.Join(tokens[i-order:i], " "))
	}
	return grams
}

// firstToken returns the first word of a gram.
func firstToken(gram string) string {
	if i := strings.IndexByte(gram, ' '); i >= 0 {
		return gram[:i]
	}
	return gram
}
