package ranker

import "sort"

// Hit is one ranked document.
type Hit struct {
	DocID string  `json:"doc_id"`
	Score float64 `json:"score"`
}

// Sort orders ids by descending score with ascending document ID as the
// tiebreak. Documents scoring exactly zero are left out.
func Sort(ids []string, scores []float64) []Hit {
	hits := make([]Hit, 0, len(ids))
	for i, id := range ids {
		if scores[i] == 0 {
			continue
		}
		hits = append(hits, Hit{DocID: id, Score: scores[i]})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].DocID < hits[j].DocID
	})
	return hits
}

// DocIDs returns the document IDs of hits in rank order.
func DocIDs(hits []Hit) []string {
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.DocID
	}
	return ids
}
