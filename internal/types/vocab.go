package types

// Closed vocabularies, per language. The LLM prompts enumerate these and
// the /generate validator checks user input against them before any
// provider is contacted.

// SupportedLanguages lists the accepted values for the request language.
var SupportedLanguages = []string{"fr", "en"}

// MealTypes maps language to the closed meal-type set.
var MealTypes = map[string][]string{
	"en": {"breakfast", "lunch", "dinner", "snack", "dessert", "drink"},
	"fr": {"petit-déjeuner", "déjeuner", "dîner", "collation", "dessert", "boisson"},
}

// DietTypes maps language to the closed diet-type set.
var DietTypes = map[string][]string{
	"en": {"vegetarian", "vegan", "gluten-free", "lactose-free", "pescatarian", "halal", "kosher"},
	"fr": {"végétarien", "végétalien", "sans gluten", "sans lactose", "pescétarien", "halal", "casher"},
}

// CuisineOrigins maps language to the closed cuisine-origin set.
var CuisineOrigins = map[string][]string{
	"en": {"french", "italian", "asian", "mexican", "indian", "mediterranean", "american", "middle-eastern", "african", "other"},
	"fr": {"française", "italienne", "asiatique", "mexicaine", "indienne", "méditerranéenne", "américaine", "moyen-orientale", "africaine", "autre"},
}

// EquipmentSets maps language to the closed kitchen-equipment set.
var EquipmentSets = map[string][]string{
	"en": {"oven", "stove", "microwave", "blender", "food processor", "air fryer", "barbecue", "slow cooker", "pressure cooker"},
	"fr": {"four", "plaque de cuisson", "micro-ondes", "mixeur", "robot de cuisine", "friteuse à air", "barbecue", "mijoteuse", "autocuiseur"},
}

// IsSupportedLanguage reports whether lang is one of the accepted languages.
func IsSupportedLanguage(lang string) bool {
	for _, l := range SupportedLanguages {
		if l == lang {
			return true
		}
	}
	return false
}

// InVocabulary reports whether value belongs to the given closed set.
func InVocabulary(set []string, value string) bool {
	for _, v := range set {
		if v == value {
			return true
		}
	}
	return false
}

// FilterVocabulary keeps only the values that belong to the closed set,
// preserving order.
func FilterVocabulary(set []string, values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if InVocabulary(set, v) {
			out = append(out, v)
		}
	}
	return out
}
