package cache

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// LoadCorpus reads a two-column CSV (prompt, phrase) into the
// normalized-prompt-keyed shape Consume expects. One prompt may repeat
// across many rows to seed several candidate phrases. An empty path is
// not an error — it just means generation falls straight to the LLM
// provider, which is the expected shape for ai_provider-only deployments.
func LoadCorpus(path string) (map[string][]string, error) {
	corpus := map[string][]string{}
	if path == "" {
		return corpus, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open content cache corpus: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 2
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read content cache corpus: %w", err)
		}
		key := NormalizeKey(row[0])
		corpus[key] = append(corpus[key], row[1])
	}
	return corpus, nil
}
