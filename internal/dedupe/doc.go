// Package dedupe provides a TTL cache for suppressing repeats of the same key
// within a time window.
package dedupe
