package filter

import (
	"strings"

	"tweet-classifier/src/tweets"
	"tweet-classifier/src/workers"
)

// CleanWorkers is the fan-out used when cleaning a whole corpus.
const CleanWorkers = 16

const specialCharacters = "!@#$%^&*()_+-=[]{}\\|;':\",./<>?0123456789\n\r"

// StripSpecialCharacters lower-cases s and replaces punctuation, digits and
// line breaks with spaces. Word boundaries are kept; runs of spaces are left
// for the tokenizer to collapse.
func StripSpecialCharacters(s string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(specialCharacters, r) {
			return ' '
		}
		return r
	}, strings.ToLower(s))
}

// Cleaner strips tweet text and applies the stop list and whitelist.
// A nil or empty whitelist allows every word.
type Cleaner struct {
	Stop  *WordFilter
	Allow *WordFilter
}

// Clone implements workers.Cloner.
func (c Cleaner) Clone() Cleaner {
	return Cleaner{Stop: c.Stop.Clone(), Allow: c.Allow.Clone()}
}

// Clean returns the normalised text: stripped, filtered, single-space joined.
func (c Cleaner) Clean(text string) string {
	words := strings.Fields(StripSpecialCharacters(text))
	kept := words[:0]
	useAllow := c.Allow != nil && c.Allow.Len() > 0
	for _, w := range words {
		if c.Stop != nil && c.Stop.Contains(w) {
			continue
		}
		if useAllow && !c.Allow.Contains(w) {
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}

// CleanSamples cleans every sample's text in parallel, keeping labels and
// input order.
func CleanSamples(samples tweets.Samples, cleaner Cleaner, numWorkers int) (tweets.Samples, error) {
	work := func(c Cleaner, chunk []tweets.Sample) ([]tweets.Sample, error) {
		out := make([]tweets.Sample, 0, len(chunk))
		for _, s := range chunk {
			out = append(out, tweets.Sample{Label: s.Label, Text: c.Clean(s.Text)})
		}
		return out, nil
	}
	cleaned, err := workers.Run(samples, cleaner, numWorkers, work, nil)
	if err != nil {
		return nil, err
	}
	return tweets.Samples(cleaned), nil
}
