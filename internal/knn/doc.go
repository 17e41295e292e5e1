// Package knn classifies 2D positions by k-nearest-neighbor majority vote.
//
// What:
//
//   - Classify returns the predicted category for a query position, the k
//     nearest points in ascending distance and the distance to the farthest
//     of them (the neighborhood radius).
//   - Searcher is the allocation-free form used when many queries run against
//     the same point set, e.g. one per grid cell of a decision surface.
//
// Determinism:
//
//   - Distance ties keep the original point order.
//   - A tie in the vote goes to the category of the closest neighbor among the
//     tied categories. Map iteration order is never consulted.
//
// Preconditions:
//
//   - points is non-empty and 1 <= k <= len(points). Callers clamp k where it
//     is set; a violation panics.
//
// Complexity:
//
//   - One query: O(n log k) comparisons plus O(n*k) worst-case shifts, with
//     n = len(points). k is small in practice.
package knn
