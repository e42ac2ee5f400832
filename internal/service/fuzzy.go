package service

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/snapdish/backend/internal/models"
)

// matchThreshold is the minimum similarity score for a food-item link.
const matchThreshold = 0.5

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeName lowercases, strips diacritics and collapses whitespace so
// that "Tomates Fraîches" and "tomates fraiches" compare equal.
func NormalizeName(s string) string {
	s = strings.ToLower(s)
	if out, _, err := transform.String(stripMarks, s); err == nil {
		s = out
	}
	return strings.Join(strings.Fields(s), " ")
}

// SimilarityScore scores two normalized names in [0, 1]:
//   - 1.0 for an exact match
//   - 0.8 when the shorter is a substring of the longer (both >= 3 chars)
//   - otherwise word-set overlap, floored at 0.7 when every word of the
//     shorter set appears in the longer one
func SimilarityScore(a, b string) float64 {
	if a == b {
		return 1.0
	}

	shorter, longer := a, b
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if len(shorter) >= 3 && strings.Contains(longer, shorter) {
		return 0.8
	}

	wordsA := wordSet(a)
	wordsB := wordSet(b)
	smaller, bigger := wordsA, wordsB
	if len(smaller) > len(bigger) {
		smaller, bigger = bigger, smaller
	}

	common := 0
	allContained := true
	for w := range smaller {
		if _, ok := bigger[w]; ok {
			common++
		} else {
			allContained = false
		}
	}

	maxLen := len(wordsA)
	if len(wordsB) > maxLen {
		maxLen = len(wordsB)
	}
	if maxLen == 0 {
		return 0
	}
	wordScore := float64(common) / float64(maxLen)

	if allContained && len(smaller) > 0 && wordScore < 0.7 {
		return 0.7
	}
	return wordScore
}

func wordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(s) {
		set[w] = struct{}{}
	}
	return set
}

// FoodMatcher links raw ingredient names to the master food table by
// fuzzy score. Deterministic for a given snapshot: ties break by
// first-seen order.
type FoodMatcher struct {
	items      []models.FoodItem
	normalized []string
}

// NewFoodMatcher builds a matcher over a snapshot of the food table.
func NewFoodMatcher(items []models.FoodItem) *FoodMatcher {
	m := &FoodMatcher{items: items, normalized: make([]string, len(items))}
	for i, item := range items {
		m.normalized[i] = NormalizeName(item.Name)
	}
	return m
}

// Match returns the id of the best-scoring food item, or nil when the best
// score is below the acceptance threshold.
func (m *FoodMatcher) Match(rawName string) *uuid.UUID {
	name := NormalizeName(rawName)
	if name == "" {
		return nil
	}

	best := -1.0
	bestIdx := -1
	for i, candidate := range m.normalized {
		score := SimilarityScore(name, candidate)
		if score > best {
			best = score
			bestIdx = i
		}
	}
	if bestIdx < 0 || best < matchThreshold {
		return nil
	}
	id := m.items[bestIdx].ID
	return &id
}
