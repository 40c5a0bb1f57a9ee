package index

// Posting records how often a term occurs in one document.
type Posting struct {
	DocID     string
	Frequency int
}

type PostingList []Posting

// TermStats holds collection-wide counts for a single term.
type TermStats struct {
	DocFreq   int64
	TotalFreq int64
}

// termKey identifies a posting list. Field is a layer name, optionally
// prefixed by a section.
type termKey struct {
	field string
	value string
}
