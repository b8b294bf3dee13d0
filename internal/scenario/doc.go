// Package scenario runs kata scenarios: YAML files pairing a run request
// with assertions over the resulting token stream.
//
// A scenario file looks like:
//
//	name: basic-pass
//	description: a single passing expectation
//	request:
//	  framework: cw-2
//	  code: var a = 1
//	  fixture: Test.expect(a == 1)
//	assertions:
//	  - type: verdict
//	    value: passed
//	  - type: token_count
//	    token: passed
//	    count: 1
//
// Files are decoded strictly (unknown fields are errors) and validated
// against an embedded CUE schema before they run. Scenarios execute on a
// stopped clock so <COMPLETEDIN::> is always 0 and streams can be compared
// byte for byte against golden files.
package scenario
