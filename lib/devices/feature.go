package devices

import "strings"

// FeaturePredicate decides whether a device advertises a connectivity
// feature. it is a plain substring test over every attribute pair, a
// record matches when any key contains KeyMarker and that key's value
// contains ValueMarker. both comparisons are case sensitive.
//
// note: "SIM" also matches keys like "SIM Slot Design", this is how the
// dataset has always been built so it stays.
type FeaturePredicate struct {
	KeyMarker   string
	ValueMarker string
}

var ESIM = FeaturePredicate{KeyMarker: "SIM", ValueMarker: "eSIM"}

func (p FeaturePredicate) Match(key, value string) bool {
	return strings.Contains(key, p.KeyMarker) && strings.Contains(value, p.ValueMarker)
}

func (p FeaturePredicate) Matches(r Record) bool {
	_, ok := p.MatchingKey(r)
	return ok
}

// MatchingKey returns the first key that satisfies the predicate, for logging.
func (p FeaturePredicate) MatchingKey(r Record) (string, bool) {
	for _, k := range r.keys {
		if p.Match(k, r.values[k]) {
			return k, true
		}
	}
	return "", false
}
