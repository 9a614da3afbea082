package roster

import (
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// minSearchRatio is the lowest similarity a name must reach to appear in fuzzy results.
const minSearchRatio = 0.6

// rankByName returns the students matching `search`, best match first.
// Substring matches on name or code always rank above fuzzy-only matches.
func rankByName(students []Student, search string) []Student {
	needle := strings.ToLower(search)
	type scored struct {
		st    Student
		exact bool
		ratio float64
		order int
	}

	var hits []scored
	for i, st := range students {
		name := strings.ToLower(st.Name)
		s := scored{st: st, order: i}
		s.exact = strings.Contains(name, needle) || strings.HasPrefix(st.Code, needle)
		s.ratio = bestWordRatio(name, needle)
		if s.exact || s.ratio >= minSearchRatio {
			hits = append(hits, s)
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if a.exact != b.exact {
			return a.exact
		}
		if a.ratio != b.ratio {
			return a.ratio > b.ratio
		}
		return a.order < b.order
	})

	result := make([]Student, 0, len(hits))
	for _, h := range hits {
		result = append(result, h.st)
	}
	return result
}

// bestWordRatio compares `needle` with the full name and each of its words.
func bestWordRatio(name, needle string) float64 {
	best := similarity(name, needle)
	for _, word := range strings.Fields(name) {
		if r := similarity(word, needle); r > best {
			best = r
		}
	}
	return best
}

func similarity(a, b string) float64 {
	m := difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, ""))
	return m.Ratio()
}
