// Package reference models the dotted variable references that may appear in
// workflow template tags, and answers which references are legal within a
// given scope.
package reference

import (
	"sort"
	"strings"

	"github.com/agext/levenshtein"
)

// Segment is one element of a reference path: either a literal name or the
// wildcard that matches any name. The wildcard stands in for key sets that
// cannot be determined statically, such as outputs of a template defined in
// another manifest.
type Segment struct {
	value    string
	wildcard bool
}

// Any matches any literal segment.
var Any = Segment{wildcard: true}

// Lit returns a literal segment.
func Lit(value string) Segment {
	return Segment{value: value}
}

// Matches reports whether the segment accepts the given literal name.
func (s Segment) Matches(name string) bool {
	return s.wildcard || s.value == name
}

// IsWildcard reports whether this is the wildcard segment.
func (s Segment) IsWildcard() bool {
	return s.wildcard
}

func (s Segment) String() string {
	if s.wildcard {
		return "ANY"
	}
	return s.value
}

// Ref is a reference path, e.g. inputs.parameters.message.
type Ref []Segment

// Path builds an all-literal Ref from plain strings.
func Path(parts ...string) Ref {
	ref := make(Ref, len(parts))
	for i, p := range parts {
		ref[i] = Lit(p)
	}
	return ref
}

func (r Ref) dynamic() bool {
	for _, seg := range r {
		if seg.wildcard {
			return true
		}
	}
	return false
}

func (r Ref) key() string {
	parts := make([]string, len(r))
	for i, seg := range r {
		if seg.wildcard {
			parts[i] = "\x00ANY\x00"
		} else {
			parts[i] = seg.value
		}
	}
	return strings.Join(parts, "\x1f")
}

// matches reports whether target is accepted segment-for-segment.
func (r Ref) matches(target []string) bool {
	if len(r) != len(target) {
		return false
	}
	for i, seg := range r {
		if !seg.Matches(target[i]) {
			return false
		}
	}
	return true
}

func (r Ref) String() string {
	parts := make([]string, len(r))
	for i, seg := range r {
		parts[i] = seg.String()
	}
	return strings.Join(parts, ".")
}

// Collection is a set of references. Static entries (no wildcard) and dynamic
// entries (containing the wildcard) are partitioned internally because
// membership and nearest-match behave differently for each. References only
// accumulate as scope narrows, so removal is not supported.
type Collection struct {
	static  []Ref
	dynamic []Ref
	index   map[string]struct{}
}

// NewCollection returns an empty collection.
func NewCollection() *Collection {
	return &Collection{index: make(map[string]struct{})}
}

// Add inserts a reference. Duplicates are ignored.
func (c *Collection) Add(ref Ref) {
	key := ref.key()
	if _, ok := c.index[key]; ok {
		return
	}
	c.index[key] = struct{}{}
	if ref.dynamic() {
		c.dynamic = append(c.dynamic, ref)
	} else {
		c.static = append(c.static, ref)
	}
}

// AddPath inserts an all-literal reference built from plain strings.
func (c *Collection) AddPath(parts ...string) {
	c.Add(Path(parts...))
}

// Update inserts every given reference.
func (c *Collection) Update(refs ...Ref) {
	for _, ref := range refs {
		c.Add(ref)
	}
}

// Merge inserts every reference held by other.
func (c *Collection) Merge(other *Collection) {
	if other == nil {
		return
	}
	for _, ref := range other.static {
		c.Add(ref)
	}
	for _, ref := range other.dynamic {
		c.Add(ref)
	}
}

// Len reports the number of stored references.
func (c *Collection) Len() int {
	return len(c.static) + len(c.dynamic)
}

// Contains reports whether the target resolves against the collection. A
// stored wildcard segment accepts any literal in its position.
func (c *Collection) Contains(target []string) bool {
	key := Path(target...).key()
	if _, ok := c.index[key]; ok {
		return true
	}
	for _, ref := range c.dynamic {
		if ref.matches(target) {
			return true
		}
	}
	return false
}

// All returns every stored reference in first-registration order, static
// entries first. The slice is freshly allocated on each call.
func (c *Collection) All() []Ref {
	out := make([]Ref, 0, c.Len())
	out = append(out, c.static...)
	out = append(out, c.dynamic...)
	return out
}

// Clone returns an independent copy of the collection.
func (c *Collection) Clone() *Collection {
	out := &Collection{
		static:  append([]Ref(nil), c.static...),
		dynamic: append([]Ref(nil), c.dynamic...),
		index:   make(map[string]struct{}, len(c.index)),
	}
	for k := range c.index {
		out.index[k] = struct{}{}
	}
	return out
}

var similarityParams = levenshtein.NewParams()

// lengthPenalty is appended to the per-segment distance vector when the
// target and candidate lengths differ, so same-length candidates win over
// different-length ones that are otherwise equally close.
const lengthPenalty = 2.0

// FindClosest returns the stored reference nearest to target, for use in
// "did you mean" suggestions. Wildcard segments in the winning candidate are
// substituted with the target's corresponding segments. Returns an empty
// path when the collection is empty. The result is deterministic for a fixed
// collection and target: candidates at equal distance are tie-broken by the
// per-segment normalized edit distance, then by first-registration order.
func (c *Collection) FindClosest(target []string) []string {
	var (
		closest     []Ref
		closestDist = -1
	)
	for _, candidate := range c.All() {
		dist := segmentEditDistance(target, candidate)
		switch {
		case closestDist < 0 || dist < closestDist:
			closestDist = dist
			closest = closest[:0]
			closest = append(closest, candidate)
		case dist == closestDist:
			closest = append(closest, candidate)
		}
	}

	vectors := make(map[string][]float64, len(closest))
	for _, candidate := range closest {
		vectors[candidate.key()] = distanceVector(target, candidate)
	}
	sort.SliceStable(closest, func(i, j int) bool {
		return compareVectors(vectors[closest[i].key()], vectors[closest[j].key()]) < 0
	})

	for _, candidate := range closest {
		if !candidate.dynamic() {
			out := make([]string, len(candidate))
			for i, seg := range candidate {
				out[i] = seg.value
			}
			return out
		}
		// A wildcard fills exactly one segment, so it cannot stand in for a
		// segment the target does not have.
		if len(target) < len(candidate) {
			continue
		}
		out := make([]string, len(candidate))
		for i, seg := range candidate {
			if seg.wildcard {
				out[i] = target[i]
			} else {
				out[i] = seg.value
			}
		}
		return out
	}

	return []string{}
}

// segmentEditDistance computes the Damerau-Levenshtein distance between the
// target and a candidate, treating each segment as an atomic token. Wildcard
// segments compare equal to any literal.
func segmentEditDistance(target []string, candidate Ref) int {
	n, m := len(target), len(candidate)
	if n == 0 {
		return m
	}
	if m == 0 {
		return n
	}

	eq := func(i, j int) bool { return candidate[j].Matches(target[i]) }

	prev2 := make([]int, m+1)
	prev := make([]int, m+1)
	cur := make([]int, m+1)
	for j := 0; j <= m; j++ {
		prev[j] = j
	}

	for i := 1; i <= n; i++ {
		cur[0] = i
		for j := 1; j <= m; j++ {
			cost := 1
			if eq(i-1, j-1) {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
			if i > 1 && j > 1 && eq(i-1, j-2) && eq(i-2, j-1) {
				cur[j] = min(cur[j], prev2[j-2]+1)
			}
		}
		prev2, prev, cur = prev, cur, prev2
	}
	return prev[m]
}

// distanceVector is the secondary sort key: the normalized string edit
// distance of each aligned segment pair, with a fixed penalty appended when
// the lengths differ.
func distanceVector(target []string, candidate Ref) []float64 {
	n := min(len(target), len(candidate))
	vector := make([]float64, 0, n+1)
	for i := 0; i < n; i++ {
		if candidate[i].wildcard {
			vector = append(vector, 0)
			continue
		}
		vector = append(vector, 1-levenshtein.Similarity(target[i], candidate[i].value, similarityParams))
	}
	if len(target) != len(candidate) {
		vector = append(vector, lengthPenalty)
	}
	return vector
}

func compareVectors(a, b []float64) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		switch {
		case a[i] < b[i]:
			return -1
		case a[i] > b[i]:
			return 1
		}
	}
	return len(a) - len(b)
}
