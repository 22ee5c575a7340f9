// Package ratelimit gates access to the validation endpoints by API key.
//
// Every account has a plan, a quota for the current period and a usage
// counter. Admission authenticates the key, lazily rolls the period over
// when it has expired, then consumes one unit if and only if usage is below
// quota. The check and the increment are a single atomic step in the
// repository so concurrent requests on the same key never overshoot.
package ratelimit
