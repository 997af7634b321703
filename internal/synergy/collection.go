package synergy

import (
	"sort"
)

// Collection indexes interfaces by synergy name. Within a synergy bucket an
// interface is keyed by its owner, so an owner holds at most one interface
// per synergy and adding the same interface twice keeps a single copy.
type Collection struct {
	reg     *Registry
	buckets map[string]map[string]Interface
	inert   map[InterfaceKey]Interface
}

// NewCollection creates an empty collection bound to reg.
func NewCollection(reg *Registry) *Collection {
	return &Collection{
		reg:     reg,
		buckets: make(map[string]map[string]Interface),
		inert:   make(map[InterfaceKey]Interface),
	}
}

// Registry returns the rule table the collection resolves tags against.
func (c *Collection) Registry() *Registry {
	return c.reg
}

// Add files iface under every rule that mentions its tag. Any interface of
// the same owner already in that rule's bucket is replaced, whatever its tag.
// Interfaces whose tag no rule mentions are kept aside and never match.
func (c *Collection) Add(iface Interface) {
	rules := c.reg.RulesForTag(iface.Tag)
	if len(rules) == 0 {
		c.inert[iface.Key()] = iface
		return
	}
	for _, rule := range rules {
		bucket, ok := c.buckets[rule.Name]
		if !ok {
			bucket = make(map[string]Interface)
			c.buckets[rule.Name] = bucket
		}
		bucket[iface.Owner] = iface
	}
}

// Merge adds every interface of other into c.
func (c *Collection) Merge(other *Collection) {
	if other == nil {
		return
	}
	for key, iface := range other.inert {
		c.inert[key] = iface
	}
	for name, bucket := range other.buckets {
		dst, ok := c.buckets[name]
		if !ok {
			dst = make(map[string]Interface, len(bucket))
			c.buckets[name] = dst
		}
		for owner, iface := range bucket {
			dst[owner] = iface
		}
	}
}

// Clone returns an independent copy of c.
func (c *Collection) Clone() *Collection {
	out := NewCollection(c.reg)
	out.Merge(c)
	return out
}

// InterfacesOf returns the interfaces of one synergy whose direction for that
// synergy's rule contains direction, keyed by owner.
func (c *Collection) InterfacesOf(direction DirectionSet, synergy string) map[string]Interface {
	rule, ok := c.reg.Rule(synergy)
	if !ok {
		return nil
	}
	bucket := c.buckets[synergy]
	out := make(map[string]Interface)
	for owner, iface := range bucket {
		if iface.Directions.Has(direction) && rule.DirectionOf(iface.Tag).Has(direction) {
			out[owner] = iface
		}
	}
	return out
}

// ByDirection groups InterfacesOf by synergy, omitting empty groups.
func (c *Collection) ByDirection(direction DirectionSet) map[string]map[string]Interface {
	out := make(map[string]map[string]Interface)
	for name := range c.buckets {
		if group := c.InterfacesOf(direction, name); len(group) > 0 {
			out[name] = group
		}
	}
	return out
}

// Synergies returns the names of non-empty buckets in table order.
func (c *Collection) Synergies() []string {
	names := make([]string, 0, len(c.buckets))
	for name, bucket := range c.buckets {
		if len(bucket) > 0 {
			names = append(names, name)
		}
	}
	sort.Slice(names, func(i, j int) bool {
		return c.reg.Order(names[i]) < c.reg.Order(names[j])
	})
	return names
}

// Interfaces returns a copy of one synergy bucket, keyed by owner.
func (c *Collection) Interfaces(synergy string) map[string]Interface {
	bucket := c.buckets[synergy]
	out := make(map[string]Interface, len(bucket))
	for k, v := range bucket {
		out[k] = v
	}
	return out
}

// Inert returns the interfaces whose tag belongs to no rule.
func (c *Collection) Inert() []Interface {
	out := make([]Interface, 0, len(c.inert))
	for _, iface := range c.inert {
		out = append(out, iface)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Owner != out[j].Owner {
			return out[i].Owner < out[j].Owner
		}
		return out[i].Tag < out[j].Tag
	})
	return out
}

// Len counts bucket entries. An interface filed under two synergies counts
// twice; inert interfaces are not counted.
func (c *Collection) Len() int {
	n := 0
	for _, bucket := range c.buckets {
		n += len(bucket)
	}
	return n
}

// Empty reports whether c holds no interfaces.
func (c *Collection) Empty() bool {
	return c == nil || c.Len() == 0
}

// Equal reports whether c and other hold the same interfaces per synergy.
func (c *Collection) Equal(other *Collection) bool {
	if c.Len() != other.Len() || len(c.inert) != len(other.inert) {
		return false
	}
	for key, iface := range c.inert {
		if oi, ok := other.inert[key]; !ok || oi != iface {
			return false
		}
	}
	for name, bucket := range c.buckets {
		ob := other.buckets[name]
		if len(ob) != len(bucket) {
			return false
		}
		for owner, iface := range bucket {
			if oi, ok := ob[owner]; !ok || oi != iface {
				return false
			}
		}
	}
	return true
}

// TagTotals sums the values of distinct bucketed interfaces per tag. An
// interface filed under several synergies counts once. Totals saturate at
// MaxValue.
func (c *Collection) TagTotals() map[string]int {
	seen := make(map[InterfaceKey]struct{})
	totals := make(map[string]int)
	for _, bucket := range c.buckets {
		for _, iface := range bucket {
			key := iface.Key()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			totals[iface.Tag] = addCapped(totals[iface.Tag], iface.Value)
		}
	}
	return totals
}

func addCapped(a, b int) int {
	if b > MaxValue-a {
		return MaxValue
	}
	return a + b
}
