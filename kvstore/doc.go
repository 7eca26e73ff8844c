// Narrow interface over the atomic primitives of a key-value backend: get,
// set, set-with-expiry, increment, list append/range, existence check, and
// namespace flush.
//
// Includes an interface and implementations using redis and in-process memory.
//
// The higher-level cache components (blobstore, tracker, webcache) hold no
// state of their own; every atomicity guarantee they offer comes from the
// primitives here. Multiple components may share one Store as long as their
// key prefixes are disjoint.
package kvstore
