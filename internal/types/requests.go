package types

// AnalyzeRequest is the body of POST /analyze.
type AnalyzeRequest struct {
	URL      string `json:"url"`
	Language string `json:"language"`
}

// GenerateRequest is the body of POST /generate.
type GenerateRequest struct {
	MealType    string   `json:"mealType"`
	DietTypes   []string `json:"dietTypes"`
	Equipment   []string `json:"equipment"`
	Ingredients []string `json:"ingredients"`
	Language    string   `json:"language"`
}

// Normalize fills request defaults.
func (r *AnalyzeRequest) Normalize() {
	if r.Language == "" {
		r.Language = "fr"
	}
}

// Normalize fills request defaults.
func (r *GenerateRequest) Normalize() {
	if r.Language == "" {
		r.Language = "fr"
	}
	if r.DietTypes == nil {
		r.DietTypes = []string{}
	}
	if r.Equipment == nil {
		r.Equipment = []string{}
	}
	if r.Ingredients == nil {
		r.Ingredients = []string{}
	}
}
