package question

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// seedEntry accepts both shapes the seed file may use: a bare question string
// or an object carrying phrasing variants of the same question.
type seedEntry struct {
	text     string
	variants []string
}

func (e *seedEntry) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		e.text = s
		return nil
	}
	var obj struct {
		Variants []string `json:"variants"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("seed entry is neither string nor variants object")
	}
	e.variants = obj.Variants
	return nil
}

// LoadSeedPool reads the seed question file and returns the flattened,
// deduplicated union of all question variants. A missing or malformed file is
// not fatal: the caller gets an empty pool and an error to log.
func LoadSeedPool(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	var entries []seedEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}

	seen := make(map[string]struct{})
	var pool []string
	add := func(q string) {
		q = strings.TrimSpace(q)
		if q == "" {
			return
		}
		if _, dup := seen[q]; dup {
			return
		}
		seen[q] = struct{}{}
		pool = append(pool, q)
	}

	for _, e := range entries {
		add(e.text)
		for _, v := range e.variants {
			add(v)
		}
	}

	return pool, nil
}
