package iso19115

import (
	"fmt"
	"sort"
	"strings"

	"github.com/geomd/metaschema/internal/validation"
)

// CornerPointsRule requires at least two corner points along one diagonal of a georectified grid
const CornerPointsRule = "georectified-corner-points"

var rules = map[string]validation.Rule{
	CornerPointsRule: validation.MinItems(CornerPointsRule, "Georectified", "cornerPoints", 2),
}

// RuleNames returns the names of the optional business rules, sorted
func RuleNames() []string {
	names := make([]string, 0, len(rules))
	for name := range rules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Rules returns the named business rules. "all" selects every rule.
func Rules(names ...string) ([]validation.Rule, error) {
	var out []validation.Rule
	for _, name := range names {
		if name == "all" {
			out = out[:0]
			for _, n := range RuleNames() {
				out = append(out, rules[n])
			}
			return out, nil
		}
		rule, ok := rules[name]
		if !ok {
			return nil, fmt.Errorf("unknown rule %q (available: %s)", name, strings.Join(RuleNames(), ", "))
		}
		out = append(out, rule)
	}
	return out, nil
}
