package models

// SearchMatch is one ranked similarity result. Score is a percentage in
// [0,100]; 100 means the query vector coincides with a stored embedding.
type SearchMatch struct {
	ProductCode string  `json:"product_code"`
	Score       float64 `json:"score"`
}

type SearchResponse struct {
	Matches []SearchMatch `json:"matches"`
}
