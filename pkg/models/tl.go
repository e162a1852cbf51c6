package models

// Cluster (TL) groups semantically similar answers under one prompt. The
// centroid is the running arithmetic mean of member embeddings; past
// rounds reference cluster IDs so identity is stable even as the
// centroid drifts with new members (spec.md §3).
type Cluster struct {
	ID             string    `json:"id"`
	PromptID       string    `json:"promptId"`
	Centroid       []float64 `json:"centroid"`
	Size           int       `json:"size"` // invariant: >= 1
	ExampleMember  string    `json:"exampleMember"`
}

// TLAnswer is one candidate guess answer belonging to a prompt's active
// corpus, scored for pruning by usefulness = contributed_matches / (shows + 1).
type TLAnswer struct {
	ID                string  `json:"id"`
	PromptID          string  `json:"promptId"`
	ClusterID         string  `json:"clusterId"`
	Text              string  `json:"text"`
	Weight            float64 `json:"weight"`
	Shows             int     `json:"shows"`
	ContributedMatches int    `json:"contributedMatches"`
	Active            bool    `json:"active"`
}

// Usefulness computes the pruning score for this answer.
func (a *TLAnswer) Usefulness() float64 {
	return float64(a.ContributedMatches) / float64(a.Shows+1)
}

// EmbeddingCacheEntry is the persistent (second) tier of the two-tier
// embedding cache, keyed by (phrase, model, provider).
type EmbeddingCacheEntry struct {
	Phrase    string    `json:"phrase"`
	Model     string    `json:"model"`
	Provider  string    `json:"provider"`
	Embedding []float64 `json:"embedding"`
}
