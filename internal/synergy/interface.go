package synergy

import (
	"math"
	"strconv"
	"strings"
)

// MaxValue is the largest interface strength. Larger values are clamped by
// NewInterface and treated as malformed by ParseTagValue.
const MaxValue = math.MaxInt32

// DirectionSet is a subset of {Input, Output}.
type DirectionSet uint8

const (
	Input DirectionSet = 1 << iota
	Output
)

// Both is the direction of a tag that is a source and a target.
const Both = Input | Output

// Has reports whether d contains every direction in other.
func (d DirectionSet) Has(other DirectionSet) bool {
	return other != 0 && d&other == other
}

// Empty reports whether d contains no direction.
func (d DirectionSet) Empty() bool {
	return d == 0
}

func (d DirectionSet) String() string {
	switch d {
	case Input:
		return "input"
	case Output:
		return "output"
	case Both:
		return "both"
	default:
		return "none"
	}
}

// RangeMarker annotates a tag whose value is only known at draw time.
type RangeMarker string

const (
	RangeNone       RangeMarker = ""
	RangeAny        RangeMarker = "*"
	RangeAtLeastOne RangeMarker = "+"
	RangeEmpty      RangeMarker = "."
)

// Valid reports whether m is a recognized marker.
func (m RangeMarker) Valid() bool {
	switch m {
	case RangeNone, RangeAny, RangeAtLeastOne, RangeEmpty:
		return true
	}
	return false
}

// Interface is one tagged capability declared by a card or ability.
type Interface struct {
	Owner      string       `json:"owner"`
	Tag        string       `json:"tag"`
	Value      int          `json:"value"`
	Directions DirectionSet `json:"directions"`
	Range      RangeMarker  `json:"range,omitempty"`
}

// InterfaceKey identifies one declared tag of one owner. Synergy buckets hold
// a single interface per owner; the key tells an owner's tags apart where
// buckets do not.
type InterfaceKey struct {
	Owner string
	Tag   string
}

// Key returns the owner and tag of i.
func (i Interface) Key() InterfaceKey {
	return InterfaceKey{Owner: i.Owner, Tag: i.Tag}
}

// NewInterface builds an interface for owner. It returns false when value is
// not positive and clamps it to MaxValue. Tags unknown to reg yield an inert
// interface with no direction.
func NewInterface(reg *Registry, owner, tag string, value int, marker RangeMarker) (Interface, bool) {
	if value <= 0 {
		return Interface{}, false
	}
	value = min(value, MaxValue)
	if !marker.Valid() {
		marker = RangeNone
	}
	return Interface{
		Owner:      owner,
		Tag:        tag,
		Value:      value,
		Directions: reg.DirectionsOf(tag),
		Range:      marker,
	}, true
}

// ParseTagValue converts a raw tag value to a strength and range marker.
//
//	"3"  -> 3, none
//	"*"  -> 1, any amount
//	"+"  -> 1, at least one
//	"."  -> 0, none
//	"2+" -> 2, at least one
//
// Anything unparseable or above MaxValue is treated as absent (0).
func ParseTagValue(raw string) (int, RangeMarker) {
	s := strings.TrimSpace(raw)
	switch s {
	case "":
		return 0, RangeNone
	case string(RangeAny):
		return 1, RangeAny
	case string(RangeAtLeastOne):
		return 1, RangeAtLeastOne
	case string(RangeEmpty):
		return 0, RangeEmpty
	}

	marker := RangeNone
	if last := RangeMarker(s[len(s)-1:]); last == RangeAny || last == RangeAtLeastOne || last == RangeEmpty {
		marker = last
		s = strings.TrimSpace(s[:len(s)-1])
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f > MaxValue {
			return 0, marker
		}
		n = int(f)
	}
	if n < 0 || n > MaxValue {
		return 0, marker
	}
	return n, marker
}
