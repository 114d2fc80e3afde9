package index

// Posting is one (term, document) entry: the raw frequency of the term in the
// document and its tf-idf weight.
type Posting struct {
	DocID     string  `json:"d"`
	Frequency int     `json:"f"`
	Weight    float64 `json:"w"`
}

// PostingList is ordered by DocID.
type PostingList []Posting

// TermEntry holds every posting for a term together with its corpus
// statistics.
type TermEntry struct {
	Term     string
	DocFreq  int
	IDF      float64
	Postings PostingList
}

// DocStats is the per-document data the scorer needs without rescanning
// postings: the number of terms kept after normalization and the L2 norm of
// the document's weight vector.
type DocStats struct {
	DocID  string  `json:"id"`
	Length int     `json:"len"`
	Norm   float64 `json:"norm"`
}

// Meta describes how an index was built. Checksum is zero for an index that
// has not been written to or read from disk.
type Meta struct {
	Analyzer string   `json:"analyzer"`
	TFScheme TFScheme `json:"tf_scheme"`
	Checksum uint32   `json:"-"`
}
