package segment

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/Adithya-Monish-Kumar-K/catalog/internal/indexer/index"
)

// Export writes the index as a JSON object mapping each term to its
// per-document weights: {"term": {"doc": weight}}. Terms and documents appear
// in sorted order.
func Export(w io.Writer, idx *index.Index) error {
	bw := bufio.NewWriter(w)
	bw.WriteByte('{')
	for i, term := range idx.Terms() {
		if i > 0 {
			bw.WriteByte(',')
		}
		key, err := json.Marshal(term)
		if err != nil {
			return fmt.Errorf("encoding term %q: %w", term, err)
		}
		weights := make(map[string]float64, idx.DocFreq(term))
		for _, p := range idx.Postings(term) {
			weights[p.DocID] = p.Weight
		}
		val, err := json.Marshal(weights)
		if err != nil {
			return fmt.Errorf("encoding postings of %q: %w", term, err)
		}
		bw.Write(key)
		bw.WriteByte(':')
		bw.Write(val)
	}
	bw.WriteString("}\n")
	return bw.Flush()
}
