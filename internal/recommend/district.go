// internal/recommend/district.go
// District adjacency table

package recommend

// HubDistrict is adjacent to every district in the table
const HubDistrict = "ЦАО"

// districtAdjacency is intentionally not symmetric: only the hub lists
// every district, the others list their ring neighbours plus the hub.
var districtAdjacency = map[string][]string{
	"ЦАО":  {"ЦАО", "ЗАО", "СЗАО", "САО", "СВАО", "ВАО", "ЮВАО", "ЮАО", "ЮЗАО"},
	"ЗАО":  {"ЗАО", "СЗАО", "ЮЗАО", "ЦАО"},
	"СЗАО": {"СЗАО", "САО", "ЗАО", "ЦАО"},
	"САО":  {"САО", "СЗАО", "СВАО", "ЦАО"},
	"СВАО": {"СВАО", "САО", "ВАО", "ЦАО"},
	"ВАО":  {"ВАО", "СВАО", "ЮВАО", "ЦАО"},
	"ЮВАО": {"ЮВАО", "ВАО", "ЮАО", "ЦАО"},
	"ЮАО":  {"ЮАО", "ЮВАО", "ЮЗАО", "ЦАО"},
	"ЮЗАО": {"ЮЗАО", "ЮАО", "ЗАО", "ЦАО"},
}

// Districts lists the known districts in display order
func Districts() []string {
	return append([]string(nil), districtAdjacency[HubDistrict]...)
}

// ExpandDistrict returns the districts considered near home.
// Unknown districts expand to themselves only.
func ExpandDistrict(home string) []string {
	if group, ok := districtAdjacency[home]; ok {
		return append([]string(nil), group...)
	}
	return []string{home}
}

// MatchesDistrict reports whether a candidate lives near home.
// Candidates without a district never match.
func MatchesDistrict(candidate *string, home string) bool {
	if candidate == nil {
		return false
	}
	for _, d := range ExpandDistrict(home) {
		if d == *candidate {
			return true
		}
	}
	return false
}
