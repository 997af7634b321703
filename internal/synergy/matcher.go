package synergy

// MatchResult is the outcome of matching one collection's outputs against
// another collection's inputs.
type MatchResult struct {
	// Matches maps synergy name to output count times input count. Only
	// positive counts are present.
	Matches map[string]int

	// Misses maps synergy name to owner to value for inputs of the first
	// collection that found no partner in this call.
	Misses map[string]map[string]int

	// Order lists the matched synergy names in table order.
	Order []string
}

// Total returns the sum of all match counts.
func (r MatchResult) Total() int {
	total := 0
	for _, n := range r.Matches {
		total += n
	}
	return total
}

// Matched reports whether any synergy matched.
func (r MatchResult) Matched() bool {
	return len(r.Matches) > 0
}

// Match counts, per synergy, how many outputs of a pair with inputs of b.
// It is directional: Match(a, b) and Match(b, a) generally differ.
func Match(a, b *Collection) MatchResult {
	result := MatchResult{
		Matches: make(map[string]int),
		Misses:  make(map[string]map[string]int),
	}
	if a == nil {
		return result
	}

	for _, name := range a.Synergies() {
		count := 0
		if b != nil {
			outputs := a.InterfacesOf(Output, name)
			if len(outputs) > 0 {
				count = len(outputs) * len(b.InterfacesOf(Input, name))
			}
		}
		if count > 0 {
			result.Matches[name] = count
			result.Order = append(result.Order, name)
			continue
		}

		inputs := a.InterfacesOf(Input, name)
		if len(inputs) == 0 {
			continue
		}
		missed := make(map[string]int, len(inputs))
		for owner, iface := range inputs {
			missed[owner] = iface.Value
		}
		result.Misses[name] = missed
	}

	return result
}
