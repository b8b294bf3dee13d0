// Package canon produces canonical JSON and content digests for run
// requests.
//
// Canonical JSON follows RFC 8785 for the value kinds a request holds:
// strings, integers, booleans, arrays and objects. Object keys are sorted by
// UTF-16 code units, strings are NFC normalized, and only quote, backslash
// and control characters are escaped. Floats and null are rejected so a
// digest never depends on number formatting.
//
// Digests are SHA-256 over a domain prefix, a NUL separator and the
// canonical bytes, so equal payloads hashed for different purposes never
// collide.
package canon
