// Package keyed provides the key-partitioned runtime that drives the
// pipeline's stateful stages, plus the generic envelope type they
// communicate through.
package keyed

// Envelope carries one stage's payload together with the source
// references that contributed to it. A freshly decoded record starts with
// a single ref; stages that fold multiple records into one (the balise
// parts combiner, the direction resolver, station-visit aggregation)
// concatenate the refs of everything they consumed, mirroring the
// original pipeline's "msgs" list on AjoaikadataMsg.
type Envelope[T any] struct {
	Data       T
	SourceRefs []string
}

// New wraps data with a single source reference.
func New[T any](data T, ref string) Envelope[T] {
	return Envelope[T]{Data: data, SourceRefs: []string{ref}}
}

// Combine folds two envelopes' source refs into a fresh envelope around
// data, without mutating either input.
func Combine[T any](a, b Envelope[T], data T) Envelope[T] {
	refs := make([]string, 0, len(a.SourceRefs)+len(b.SourceRefs))
	refs = append(refs, a.SourceRefs...)
	refs = append(refs, b.SourceRefs...)
	return Envelope[T]{Data: data, SourceRefs: refs}
}
