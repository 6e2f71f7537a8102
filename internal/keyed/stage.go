package keyed

// Stage documents the shape every pipeline stage follows: a pure step
// from (state, input) to (state', output), run without concurrent access
// to state. It is not implemented as a literal interface because each
// concrete stage's input/output arity differs (the reorder buffer yields
// zero or more messages per input, the dedup cache yields a bool, the
// station aggregator yields an optional event) — dedup.Cache.Admit,
// tstvalidate.Validator.Apply, reorder.State.Process,
// balise.PartsState.Combine, balise.DirectionState.Resolve,
// events.Detector.Process, and station.Aggregator.Process are all Stage
// in this sense, wired together by worker.process in stage order.
type Stage[S, I, O any] func(state S, input I) (S, O)
