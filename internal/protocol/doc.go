// Package protocol implements the line-oriented reporting token stream.
//
// Every run writes its results as a sequence of token lines on the captured
// standard output stream:
//
//	<DESCRIBE::>title
//	<IT::>title
//	<PASSED::>message
//	<FAILED::>message
//	<ERROR::>message
//	<COMPLETEDIN::>millis
//
// Callers match on these literal prefixes, so the tokens and the trailing
// newline of each line are part of the contract. Payloads never contain raw
// line breaks: embedded newlines are encoded as the literal <:LF:>.
//
// Events are written through an Encoder, which is safe for concurrent use and
// drops everything written after Close. A Decoder turns a captured stream back
// into events, treating any non-token line as program output.
package protocol
