// internal/recommend/filters.go
// Categorical and interest filters

package recommend

// MatchesCategorical is the wildcard-equality test. Callers only invoke it
// when the subject has a value for the attribute.
func MatchesCategorical(candidate *string, subject string) bool {
	if candidate == nil {
		return true
	}
	switch *candidate {
	case WildcardAny, WildcardAnyLatin:
		return true
	}
	return *candidate == subject
}

// MatchesInterests is true when the subject has no interests or the sets intersect
func MatchesInterests(candidateTags, subjectInterests []string) bool {
	if len(subjectInterests) == 0 {
		return true
	}

	wanted := make(map[string]struct{}, len(subjectInterests))
	for _, i := range subjectInterests {
		wanted[i] = struct{}{}
	}
	for _, tag := range candidateTags {
		if _, ok := wanted[tag]; ok {
			return true
		}
	}
	return false
}
