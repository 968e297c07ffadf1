// Package aec holds the block geometry, buffer sizing helpers and small value
// types shared by the echo canceller packages.
//
// The echo canceller core is split into:
//
//   - [github.com/cwbudde/algo-aec/aec/render]: the multi-rate render history
//     and its read-only views.
//   - [github.com/cwbudde/algo-aec/aec/delay]: the render delay buffer that
//     reconciles the render and capture call streams.
//   - [github.com/cwbudde/algo-aec/aec/reverb]: the reverb model estimator.
//   - [github.com/cwbudde/algo-aec/aec/erle]: ERLE estimators.
//   - [github.com/cwbudde/algo-aec/aec/analyzer]: adaptive filter analysis.
//
// None of the packages start goroutines or lock; callers serialize every call
// into one echo canceller instance.
package aec
