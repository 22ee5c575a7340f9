// Package classify holds the static heuristics applied to an address once
// its syntax is known to be valid: disposable-domain membership and
// role-account detection.
//
// Sets are built once at process start and only read afterwards, so they
// are shared across request handlers without locking.
package classify
