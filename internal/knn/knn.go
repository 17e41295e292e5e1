package knn

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"

	"knnviz/internal/geom"
)

// Neighbor is one of the k nearest points of a query.
type Neighbor struct {
	Point    geom.LabeledPoint
	Index    int // position in the input slice
	Distance float64
}

// Result is the outcome of a single classification.
type Result struct {
	Prediction string
	Neighbors  []Neighbor // ascending distance, len k
	Radius     float64    // distance to the k-th neighbor
}

// Classify predicts the category at q. It panics if points is empty or k is
// outside [1, len(points)].
func Classify(q geom.Vec, points []geom.LabeledPoint, k int) Result {
	s := NewSearcher(points, k)
	nn := s.Search(q)
	out := Result{
		Prediction: s.vote(nn),
		Neighbors:  make([]Neighbor, len(nn)),
	}
	copy(out.Neighbors, nn)
	if len(nn) > 0 {
		out.Radius = nn[len(nn)-1].Distance
	}
	return out
}

// Searcher runs repeated queries against one point set, reusing its buffers.
// A Searcher is not safe for concurrent use.
type Searcher struct {
	points []geom.LabeledPoint
	k      int
	buf    []Neighbor
	counts map[string]int
}

// NewSearcher returns a Searcher for points and k. It panics if points is
// empty or k is outside [1, len(points)].
func NewSearcher(points []geom.LabeledPoint, k int) *Searcher {
	if len(points) == 0 {
		panic("knn: empty point set")
	}
	if k < 1 || k > len(points) {
		panic(fmt.Sprintf("knn: k=%d out of range [1, %d]", k, len(points)))
	}
	return &Searcher{
		points: points,
		k:      k,
		buf:    make([]Neighbor, 0, k),
		counts: make(map[string]int, k),
	}
}

// Search returns the k nearest points to q in ascending distance. Points at
// equal distance keep their input order. The returned slice is owned by the
// Searcher and is overwritten by the next call.
func (s *Searcher) Search(q geom.Vec) []Neighbor {
	nn := s.buf[:0]
	for i := range s.points {
		p := &s.points[i]
		d := floats.Distance(q[:], p.Pos[:], 2)
		if len(nn) == s.k && d >= nn[len(nn)-1].Distance {
			continue
		}
		// first slot holding a strictly larger distance keeps ties stable
		at := sort.Search(len(nn), func(j int) bool { return nn[j].Distance > d })
		if len(nn) < s.k {
			nn = append(nn, Neighbor{})
		}
		copy(nn[at+1:], nn[at:len(nn)-1])
		nn[at] = Neighbor{Point: *p, Index: i, Distance: d}
	}
	s.buf = nn
	return nn
}

// Predict returns only the predicted category at q.
func (s *Searcher) Predict(q geom.Vec) string {
	return s.vote(s.Search(q))
}

// vote picks the most frequent category among nn. On a tie the first
// neighbor, in ascending distance, whose category has the top count wins.
func (s *Searcher) vote(nn []Neighbor) string {
	clear(s.counts)
	top := 0
	for _, n := range nn {
		c := s.counts[n.Point.Category] + 1
		s.counts[n.Point.Category] = c
		if c > top {
			top = c
		}
	}
	for _, n := range nn {
		if s.counts[n.Point.Category] == top {
			return n.Point.Category
		}
	}
	return ""
}
