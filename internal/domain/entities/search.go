package entities

// SearchFilters narrows free-text doctor search results. Nil fields are inactive.
type SearchFilters struct {
	Speciality    string   `json:"speciality,omitempty"`
	MinFee        *float64 `json:"min_fee,omitempty"`
	MaxFee        *float64 `json:"max_fee,omitempty"`
	MinExperience *int     `json:"min_experience,omitempty"`
	Available     *bool    `json:"available,omitempty"`
}

// DoctorSearchResult is one ranked hit of a free-text search
type DoctorSearchResult struct {
	Doctor       *Doctor  `json:"doctor"`
	Score        float64  `json:"score"`
	MatchReasons []string `json:"match_reasons"`
	NgramMatches int      `json:"ngram_matches"`
}

// SimilarDoctor is a doctor whose profile text resembles a reference doctor
type SimilarDoctor struct {
	Doctor     *Doctor `json:"doctor"`
	Similarity float64 `json:"similarity"`
}

// NgramCount pairs a gram with the number of doctors referencing it
type NgramCount struct {
	Ngram   string `json:"ngram"`
	Doctors int    `json:"doctors"`
}

// NgramStatistics summarises the doctor index
type NgramStatistics struct {
	TotalDoctors      int          `json:"total_doctors"`
	TotalNgrams       int          `json:"total_ngrams"`
	NgramDistribution map[int]int  `json:"ngram_distribution"`
	MostCommonNgrams  []NgramCount `json:"most_common_ngrams"`
}
