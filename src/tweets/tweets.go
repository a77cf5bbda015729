package tweets

// Tweet represents a parsed tweet with all its components
type Tweet struct {
	IDStr        string   `json:"id_str"`
	Unix         int64    `json:"unix"`
	UserIDStr    string   `json:"user_id_str"`
	Text         string   `json:"text"`
	Tokens       []string `json:"tokens"`
	Retweeted    bool     `json:"retweeted"`
	RetweetCount int      `json:"retweet_count"`
}

// Sample is one labelled training or validation row.
type Sample struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// Samples is a slice of labelled rows. It satisfies workers.Cloner so it can
// be handed to worker goroutines as read-only context.
type Samples []Sample

// Clone returns a copy of the slice. Sample holds only strings, so a shallow
// element copy is a deep copy.
func (s Samples) Clone() Samples {
	out := make(Samples, len(s))
	copy(out, s)
	return out
}

// Labels returns the number of samples per label. Empty labels are counted
// under "" so callers can report how many rows training will discard.
func (s Samples) Labels() map[string]int {
	counts := make(map[string]int)
	for _, sample := range s {
		counts[sample.Label]++
	}
	return counts
}
