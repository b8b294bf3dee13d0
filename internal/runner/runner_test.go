package runner

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kata/internal/adapter"
	"github.com/roach88/kata/internal/metrics"
	"github.com/roach88/kata/internal/protocol"
	"github.com/roach88/kata/internal/testutil"
)

func newRunner(opts Options) *Runner {
	if opts.IDs == nil {
		opts.IDs = testutil.NewSequentialIDs("run")
	}
	if opts.Now == nil {
		opts.Now = testutil.NewFrozenClock(testutil.Epoch).Now
	}
	opts.Seed = [2]uint64{7, 11}
	return New(opts)
}

func runRequest(t *testing.T, req Request) *Result {
	t.Helper()
	res, err := newRunner(Options{}).Run(context.Background(), req)
	require.NoError(t, err)
	return res
}

func TestRun_BasicAssertion(t *testing.T) {
	res := runRequest(t, Request{Framework: adapter.CW2, Code: "var a = 1", Fixture: "Test.expect(a == 1);"})
	assert.Equal(t, "<PASSED::>Test Passed\n", res.Stdout)
	assert.Equal(t, protocol.VerdictPassed, res.Verdict)
	assert.Equal(t, "run-0001", res.RunID)
	assert.False(t, res.TimedOut)
}

func TestRun_BasicFailure(t *testing.T) {
	res := runRequest(t, Request{Framework: adapter.CW2, Code: "var a = 1", Fixture: "Test.expect(a == 2)"})
	assert.Equal(t, "<FAILED::>Value is not what was expected\n", res.Stdout)
	assert.Equal(t, protocol.VerdictFailed, res.Verdict)
}

func TestRun_DebugValueRendered(t *testing.T) {
	res := runRequest(t, Request{Framework: adapter.CW2, Code: "var a = {b: 2}", Fixture: "Test.expect(false, a);"})
	assert.Contains(t, res.Stdout, "<FAILED::>")
	assert.Contains(t, res.Stdout, "{ b: 2 }")
}

func TestRun_CodeOnly(t *testing.T) {
	res := runRequest(t, Request{Framework: adapter.CW2, Code: "console.log(42)"})
	assert.Equal(t, "42\n", res.Stdout)
	assert.Equal(t, protocol.VerdictNoTests, res.Verdict)
}

func TestRun_SeparateStreams(t *testing.T) {
	res := runRequest(t, Request{Framework: adapter.CW2, Code: "console.log('stdout'); console.error('stderr');"})
	assert.Equal(t, "stdout\n", res.Stdout)
	assert.Equal(t, "stderr\n", res.Stderr)
}

func TestRun_LingeringTimersWithoutTree(t *testing.T) {
	res := runRequest(t, Request{Framework: adapter.CW2, Code: "setTimeout(function () { console.log(42); }, 5);"})
	assert.Equal(t, "42\n", res.Stdout)
}

func TestRun_Files(t *testing.T) {
	for _, path := range []string{"/workspace/config.js", "./config.js"} {
		t.Run(path, func(t *testing.T) {
			res := runRequest(t, Request{
				Framework: adapter.CW2,
				Code:      `var name = require("` + path + `").name`,
				Fixture: `
					var expect = require('chai').expect;
					describe("files", function () {
						it("should be able to require the file", function () {
							expect(name).to.equal("example");
						});
					});
				`,
				Files: map[string]string{"config.js": "module.exports.name = 'example';"},
			})
			assert.Contains(t, res.Stdout, "<PASSED::>")
			assert.Equal(t, protocol.VerdictPassed, res.Verdict)
		})
	}
}

func TestRun_TopLevelFault(t *testing.T) {
	res := runRequest(t, Request{
		Framework: adapter.CW2,
		Code:      "b.test()",
		Fixture:   "describe(\"test\", function(){\nit(\"test2\", function(){ Test.expect(true)});})",
	})

	events := protocol.DecodeString(res.Stdout)
	require.Len(t, events, 1)
	assert.Equal(t, protocol.KindErrored, events[0].Kind)
	assert.Contains(t, res.Stdout, "ReferenceError:")
	assert.Contains(t, res.Stdout, "<:LF:>")
	assert.Contains(t, res.Stdout, "/workspace/solution.js:1:")
	assert.NotContains(t, res.Stdout, "harness:")
	assert.NotContains(t, res.Stdout, "<DESCRIBE::>")
	assert.Equal(t, protocol.VerdictFailed, res.Verdict)
}

func TestRun_GlobalReassignmentCheat(t *testing.T) {
	res := runRequest(t, Request{
		Framework: adapter.CW2,
		Code: `
			global = Object.assign({}, global);
			global.Test = Object.assign({}, Test);
			var od = global.Test.describe;
			global.Test.describe = function() {
				return od("Fake test suite", function() {
					Test.it('fake test', function() {
						Test.expect(true);
					});
				});
			};
		`,
		Fixture: `Test.describe('Fail', function() { Test.it('should fail', function() { Test.expect(false); }); });`,
	})
	assert.NotContains(t, res.Stdout, "<PASSED::>")
	assert.Contains(t, res.Stdout, "<ERROR::>")
	assert.Equal(t, protocol.VerdictFailed, res.Verdict)
}

func TestRun_ShadowingTestIsRejected(t *testing.T) {
	res := runRequest(t, Request{
		Framework: adapter.CW2,
		Code:      `Test = { expect: function () {}, describe: function () {} };`,
		Fixture:   `describe('x', function () { it('y', function () { Test.expect(false); }); });`,
	})
	assert.NotContains(t, res.Stdout, "<PASSED::>")
	assert.Contains(t, res.Stdout, "<ERROR::>TypeError")
}

func TestRun_WholeRunTimeout(t *testing.T) {
	res := runRequest(t, Request{Framework: adapter.CW2, Code: "while (true) {}", RunTimeout: 50 * time.Millisecond})
	assert.Equal(t, "<ERROR::>Execution timed out after 50ms\n", res.Stdout)
	assert.True(t, res.TimedOut)
	assert.Equal(t, protocol.VerdictFailed, res.Verdict)
}

func TestRun_WholeRunTimeoutWhileWaiting(t *testing.T) {
	res := runRequest(t, Request{
		Framework:  adapter.CW2,
		Fixture:    `describe("slow", 10000, function () { it("waits", function (done) {}); });`,
		RunTimeout: 50 * time.Millisecond,
	})
	assert.Equal(t, "<DESCRIBE::>slow\n<IT::>waits\n<ERROR::>Execution timed out after 50ms\n", res.Stdout)
	assert.True(t, res.TimedOut)
}

func TestRun_UncaughtWithoutPendingCase(t *testing.T) {
	res := runRequest(t, Request{Framework: adapter.CW2, Code: `setTimeout(function () { throw new Error("late"); }, 0);`})
	assert.True(t, strings.HasPrefix(res.Stdout, "<ERROR::>Error: late"))
	assert.Equal(t, protocol.VerdictFailed, res.Verdict)
}

func TestRun_CaseTimeoutFromRequest(t *testing.T) {
	res := runRequest(t, Request{
		Framework:   adapter.MochaBDD,
		Fixture:     `it("waits", function (done) {});`,
		CaseTimeout: 15 * time.Millisecond,
	})
	assert.Contains(t, res.Stdout, "<ERROR::>`it` function timed out. Function ran longer than 15ms\n<COMPLETEDIN::>0\n")
}

func TestRun_KarmaProjectMode(t *testing.T) {
	res := runRequest(t, Request{
		Framework: adapter.KarmaBDD,
		Files: map[string]string{
			".runner/config.json": "{}",
			".runner/setup.sh":    "echo 123",
			"test.css":            ".a {font-weight: bold}",
			"main.js":             "var a = {b: 2};",
			"spec.js":             `describe("test", function(){it("should be 2", function(){assert.equal(2, a.b);})});`,
		},
	})
	assert.Contains(t, res.Stdout, "<PASSED::>")
	assert.Equal(t, protocol.VerdictPassed, res.Verdict)
}

func TestRun_KarmaSetup(t *testing.T) {
	res := runRequest(t, Request{
		Framework: adapter.KarmaTDD,
		Setup:     `var helper = { name: "helper" };`,
		Fixture:   `suite("setup", function () { test("sees helper", function () { assert.equal("helper", helper.name); }); });`,
	})
	assert.Contains(t, res.Stdout, "<IT::>sees helper\n<PASSED::>")
}

func TestRun_KarmaSetupFault(t *testing.T) {
	res := runRequest(t, Request{
		Framework: adapter.KarmaBDD,
		Setup:     `throw new Error("bootstrap failed");`,
		Fixture:   `describe("never", function () { it("runs", function () {}); });`,
	})
	events := protocol.DecodeString(res.Stdout)
	require.Len(t, events, 1)
	assert.Equal(t, protocol.KindErrored, events[0].Kind)
	assert.True(t, strings.HasPrefix(events[0].Text, "Error: bootstrap failed"))
}

func TestRun_SetupIgnoredWithoutBootstrap(t *testing.T) {
	res := runRequest(t, Request{Framework: adapter.MochaBDD, Setup: `throw new Error("ignored");`, Code: "console.log('ok')"})
	assert.Equal(t, "ok\n", res.Stdout)
}

func TestRun_StrictMode(t *testing.T) {
	res := runRequest(t, Request{Framework: adapter.CW2, Code: "undeclared = 5;", Strict: true})
	assert.Contains(t, res.Stdout, "<ERROR::>ReferenceError")

	res = runRequest(t, Request{Framework: adapter.CW2, Code: "undeclared = 5; console.log(undeclared);"})
	assert.Equal(t, "5\n", res.Stdout)
}

func TestRun_RequestErrors(t *testing.T) {
	r := newRunner(Options{})

	_, err := r.Run(context.Background(), Request{Code: "1"})
	assert.True(t, IsRequestError(err, ErrCodeInvalidRequest))

	_, err = r.Run(context.Background(), Request{Framework: "jasmine", Code: "1"})
	assert.True(t, IsRequestError(err, ErrCodeUnknownFramework))
	assert.ErrorIs(t, err, adapter.ErrUnknownFramework)

	_, err = r.Run(context.Background(), Request{Framework: adapter.CW2})
	assert.True(t, IsRequestError(err, ErrCodeInvalidRequest))
}

func TestRun_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := newRunner(Options{Metrics: metrics.New(reg)})

	_, err := r.Run(context.Background(), Request{Framework: adapter.CW2, Fixture: `it("a", function () { Test.expect(true); });`})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "kata.prom")
	require.NoError(t, metrics.WriteFile(reg, path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `kata_runs_total{framework="cw-2",verdict="passed"} 1`)
}

func TestRun_SequentialIDs(t *testing.T) {
	r := newRunner(Options{})
	for _, want := range []string{"run-0001", "run-0002"} {
		res, err := r.Run(context.Background(), Request{Framework: adapter.CW2, Code: "1"})
		require.NoError(t, err)
		assert.Equal(t, want, res.RunID)
	}
}

func TestUUIDv7Generator(t *testing.T) {
	a, b := UUIDv7Generator{}.NewID(), UUIDv7Generator{}.NewID()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}

func TestRun_Golden(t *testing.T) {
	tests := []struct {
		name string
		req  Request
	}{
		{
			name: "cw2_nested",
			req: Request{Framework: adapter.CW2, Fixture: `
				describe("top", function () {
					describe("2nd", function () {
						it("should a", function () { Test.expect(true); });
					});
					it("should b", function () { Test.assertEquals(1 + 1, 3); });
				});
			`},
		},
		{
			name: "cw2_async_timeout",
			req: Request{Framework: adapter.CW2, Code: "function solution() {}", Fixture: `
				describe("test", 2, function () {
					it("should do something", function (done) {});
				});
			`},
		},
		{
			name: "cw2_async_order",
			req: Request{Framework: adapter.CW2, Code: `function solution(cb) { setTimeout(() => cb("ok"), 0) }`, Fixture: `
				describe("test", true, function () {
					it("should do something", function (done) {
						solution((msg) => {
							Test.assertEquals(msg, "ok");
							done();
						});
						console.log("ran solution");
					});
				});
			`},
		},
		{
			name: "mocha_tdd_failures",
			req: Request{Framework: adapter.MochaTDD, Code: "var a = {b: 2};", Fixture: `
				var assert = require("chai").assert;
				suite("test", function () {
					suite("failures", function () {
						test("should be 1", function () { assert.equal(1, a.b); });
					});
					test("should be 2", function () { assert.equal(2, a.b); });
				});
			`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := runRequest(t, tt.req)
			g := goldie.New(t,
				goldie.WithFixtureDir("testdata/golden"),
				goldie.WithNameSuffix(".golden"),
			)
			g.Assert(t, tt.name, []byte(res.Stdout))
		})
	}
}

func TestRequestDigest(t *testing.T) {
	a := Request{
		Framework:   adapter.CW2,
		Code:        "x",
		Files:       map[string]string{"a.js": "1", "b.js": "2"},
		CaseTimeout: time.Second,
		RunTimeout:  time.Second,
	}
	b := a
	b.Files = map[string]string{"b.js": "2", "a.js": "1"}
	da, err := a.Digest()
	require.NoError(t, err)
	db, err := b.Digest()
	require.NoError(t, err)
	assert.Equal(t, da, db)

	b.Strict = true
	db, err = b.Digest()
	require.NoError(t, err)
	assert.NotEqual(t, da, db)

	res := runRequest(t, a)
	assert.Equal(t, da, res.Digest)
}

func TestRun_CaseTimeoutThenSibling(t *testing.T) {
	res := runRequest(t, Request{
		Framework: adapter.CW2,
		Fixture: `describe("test", 20, function () {
  it("hangs", function (done) {});
  it("after", function () { Test.expect(true); });
});`,
	})
	assert.Equal(t, "<DESCRIBE::>test\n"+
		"<IT::>hangs\n"+
		"<ERROR::>`it` function timed out. Function ran longer than 20ms\n"+
		"<IT::>after\n"+
		"<PASSED::>Test Passed\n"+
		"<COMPLETEDIN::>0\n", res.Stdout)
	assert.Equal(t, 1, res.Counts.Passed)
	assert.Equal(t, 1, res.Counts.Errored)
	assert.False(t, res.TimedOut)
}

func TestRun_MochaTimeoutThenSibling(t *testing.T) {
	res := runRequest(t, Request{
		Framework: adapter.MochaBDD,
		Fixture: `describe("suite", function () {
  this.timeout(20);
  it("hangs", function (done) {});
  it("after", function () {});
});`,
	})
	assert.Equal(t, "<DESCRIBE::>suite\n"+
		"<IT::>hangs\n"+
		"<ERROR::>`it` function timed out. Function ran longer than 20ms\n"+
		"<IT::>after\n"+
		"<PASSED::>Test Passed\n"+
		"<COMPLETEDIN::>0\n", res.Stdout)
	assert.NotContains(t, res.Stdout, IncompleteMessage)
}

func TestRun_LateDoneAfterTimeoutIsDropped(t *testing.T) {
	res := runRequest(t, Request{
		Framework: adapter.CW2,
		Fixture: `describe("late", function () {
  describe("short", 20, function () {
    it("slow", function (done) {
      setTimeout(function () { done(); }, 60);
    });
  });
  it("next", function (done) {
    setTimeout(function () { Test.expect(true); done(); }, 150);
  });
});`,
	})
	assert.Equal(t, "<DESCRIBE::>late\n"+
		"<DESCRIBE::>short\n"+
		"<IT::>slow\n"+
		"<ERROR::>`it` function timed out. Function ran longer than 20ms\n"+
		"<IT::>next\n"+
		"<PASSED::>Test Passed\n"+
		"<COMPLETEDIN::>0\n", res.Stdout)
	assert.Equal(t, 1, res.Counts.Passed)
	assert.Equal(t, 1, res.Counts.Errored)
}

func TestWatch_IgnoresDeadlineAfterStreamClosed(t *testing.T) {
	x := &run{enc: protocol.NewEncoder(&syncBuffer{})}
	x.enc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	x.watch(ctx, make(chan struct{}))

	assert.False(t, x.expired())
	assert.False(t, x.halted.Load())
}

func TestWatch_IgnoresDeadlineAfterLoopReturned(t *testing.T) {
	x := &run{enc: protocol.NewEncoder(&syncBuffer{})}
	x.state.Store(stateReturned)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	x.watch(ctx, make(chan struct{}))

	assert.False(t, x.expired())
}

func TestRun_ThrownStringHasNoStack(t *testing.T) {
	res := runRequest(t, Request{
		Framework: adapter.CW2,
		Fixture: `describe("s", function () {
  it("a", function () { throw "boom!"; });
  it("b", function () { throw new Error("bang"); });
});`,
	})
	assert.Contains(t, res.Stdout, "<IT::>a\n<ERROR::>boom!\n<IT::>b\n")
	assert.Contains(t, res.Stdout, "<ERROR::>Error: bang<:LF:>    at /workspace/fixture.js:3:")
}
