package reconciliation

import (
	"regexp"
	"sort"
	"strings"

	"github.com/fortuna/ceres/internal/availability"
)

var (
	suffixPattern = regexp.MustCompile(`\s+(jr\.?|sr\.?|ii|iii|iv|v)$`)
	spacePattern  = regexp.MustCompile(`\s+`)
)

// NormalizeName lower-cases a player name, drops generational suffixes,
// punctuation inside the name, and repeated spaces.
func NormalizeName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	n = suffixPattern.ReplaceAllString(n, "")
	n = strings.NewReplacer("'", "", "’", "", "-", "", ".", "").Replace(n)
	return strings.TrimSpace(spacePattern.ReplaceAllString(n, " "))
}

// Matcher finds availability records by player name
type Matcher struct {
	byName map[string][]availability.Record
}

// NewMatcher indexes records by normalized full name. Records without a
// name are ignored.
func NewMatcher(records availability.Records) *Matcher {
	byName := make(map[string][]availability.Record)
	for _, r := range records {
		name := NormalizeName(r.FullName)
		if name == "" {
			continue
		}
		byName[name] = append(byName[name], r)
	}
	for name := range byName {
		sort.Slice(byName[name], func(i, j int) bool { return byName[name][i].ID < byName[name][j].ID })
	}
	return &Matcher{byName: byName}
}

// Find returns the record matching name, narrowing same-name candidates by
// position and then team. ambiguous is true when more than one candidate
// survives.
func (m *Matcher) Find(name, position, team string) (rec availability.Record, ok bool, ambiguous bool) {
	candidates := m.byName[NormalizeName(name)]
	if len(candidates) == 0 {
		return availability.Record{}, false, false
	}

	candidates = narrow(candidates, func(r availability.Record) bool { return strings.EqualFold(r.Position, position) })
	candidates = narrow(candidates, func(r availability.Record) bool { return matchTeams(r.Team, team) })

	if len(candidates) > 1 {
		return availability.Record{}, false, true
	}
	return candidates[0], true, false
}

// narrow keeps the candidates passing keep, unless none do.
func narrow(candidates []availability.Record, keep func(availability.Record) bool) []availability.Record {
	if len(candidates) < 2 {
		return candidates
	}
	var out []availability.Record
	for _, c := range candidates {
		if keep(c) {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return candidates
	}
	return out
}

// matchTeams compares team codes, treating relocated franchise codes as equal.
func matchTeams(a, b string) bool {
	if strings.EqualFold(a, b) {
		return true
	}

	aliases := map[string][]string{
		"LA":  {"LAR", "STL"},
		"LV":  {"OAK"},
		"LAC": {"SD"},
		"WAS": {"WSH"},
		"JAX": {"JAC"},
	}
	for key, variants := range aliases {
		group := append([]string{key}, variants...)
		if contains(group, a) && contains(group, b) {
			return true
		}
	}
	return false
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if strings.EqualFold(x, v) {
			return true
		}
	}
	return false
}
