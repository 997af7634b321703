package evaluation

import (
	"github.com/TMind/SolMDb/internal/synergy"
)

// Instance is one rule applied to one deck's tag counts.
type Instance struct {
	Rule         *synergy.Rule
	SourceCounts map[string]int
	TargetCounts map[string]int
}

// NewInstance picks the rule's source and target counts out of tagTotals.
func NewInstance(rule *synergy.Rule, tagTotals map[string]int) *Instance {
	inst := &Instance{
		Rule:         rule,
		SourceCounts: make(map[string]int),
		TargetCounts: make(map[string]int),
	}
	for _, tag := range rule.SourceTags {
		if v := tagTotals[tag]; v > 0 {
			inst.SourceCounts[tag] = v
		}
	}
	for _, tag := range rule.TargetTags {
		if v := tagTotals[tag]; v > 0 {
			inst.TargetCounts[tag] = v
		}
	}
	return inst
}

// Instances builds one instance per rule, in table order.
func Instances(reg *synergy.Registry, tagTotals map[string]int) []*Instance {
	rules := reg.Rules()
	out := make([]*Instance, 0, len(rules))
	for _, rule := range rules {
		out = append(out, NewInstance(rule, tagTotals))
	}
	return out
}

// IsActive reports whether at least one source and one target count is positive.
func (i *Instance) IsActive() bool {
	return positive(i.SourceCounts) && positive(i.TargetCounts)
}

// SourceTotal sums the source counts.
func (i *Instance) SourceTotal() int {
	return sum(i.SourceCounts)
}

// TargetTotal sums the target counts.
func (i *Instance) TargetTotal() int {
	return sum(i.TargetCounts)
}

func positive(m map[string]int) bool {
	for _, v := range m {
		if v > 0 {
			return true
		}
	}
	return false
}

func sum(m map[string]int) int {
	n := 0
	for _, v := range m {
		n += v
	}
	return n
}
