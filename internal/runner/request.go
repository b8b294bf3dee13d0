package runner

import (
	"strings"
	"time"

	"github.com/roach88/kata/internal/canon"
	"github.com/roach88/kata/internal/jsrt"
	"github.com/roach88/kata/internal/protocol"
)

// Request is one execution request.
type Request struct {
	// Code is the submitted solution.
	Code string `json:"code,omitempty" yaml:"code,omitempty"`
	// Fixture holds the tests run against Code.
	Fixture string `json:"fixture,omitempty" yaml:"fixture,omitempty"`
	// Setup is evaluated first by bootstrapping adapters.
	Setup string `json:"setup,omitempty" yaml:"setup,omitempty"`
	// Framework selects the adapter.
	Framework string `json:"framework" yaml:"framework"`

	// CaseTimeout limits asynchronous cases with no explicit limit.
	CaseTimeout time.Duration `json:"case_timeout,omitempty" yaml:"-"`
	// RunTimeout bounds the whole run.
	RunTimeout time.Duration `json:"run_timeout,omitempty" yaml:"-"`

	// Files are staged into the workspace, keyed by path.
	Files map[string]string `json:"files,omitempty" yaml:"files,omitempty"`

	// Strict compiles user scripts in strict mode.
	Strict bool `json:"strict,omitempty" yaml:"strict,omitempty"`
}

// Canonical returns the canonical JSON form of the request, the form
// recorded in run ledgers.
func (r Request) Canonical() ([]byte, error) {
	return canon.Marshal(r.fields())
}

// Digest identifies the request content. Two requests with equal digests
// evaluate the same sources under the same limits.
func (r Request) Digest() (string, error) {
	return canon.Digest(canon.DomainRequest, r.fields())
}

func (r Request) fields() map[string]any {
	return map[string]any{
		"code":            r.Code,
		"fixture":         r.Fixture,
		"setup":           r.Setup,
		"framework":       r.Framework,
		"case_timeout_ms": r.CaseTimeout.Milliseconds(),
		"run_timeout_ms":  r.RunTimeout.Milliseconds(),
		"files":           r.Files,
		"strict":          r.Strict,
	}
}

// Result is the outcome of a run.
type Result struct {
	RunID     string           `json:"run_id"`
	Digest    string           `json:"digest"`
	Framework string           `json:"framework"`
	Stdout    string           `json:"stdout"`
	Stderr    string           `json:"stderr"`
	Counts    protocol.Counts  `json:"counts"`
	Verdict   protocol.Verdict `json:"verdict"`
	Duration  time.Duration    `json:"duration_ns"`
	TimedOut  bool             `json:"timed_out"`
	Events    []protocol.Event `json:"-"`
}

// runnerDir holds runner configuration in project mode; it is never staged.
const runnerDir = ".runner/"

var (
	projectFixtures = []string{"spec.js", "test.js", "fixture.js"}
	projectSources  = []string{"main.js", "solution.js", "index.js"}
)

// script is a named source evaluated in order.
type script struct {
	file string
	src  string
}

// plan resolves the scripts to evaluate and the files to stage. In project
// mode (no code and no fixture, only files) the fixture and the solution
// are picked from well-known file names.
func plan(req Request, bootstrap bool, workdir string) (scripts []script, files map[string]string) {
	files = make(map[string]string, len(req.Files))
	for name, content := range req.Files {
		if strings.HasPrefix(jsrt.Relative(workdir, name), runnerDir) {
			continue
		}
		files[name] = content
	}

	if bootstrap && req.Setup != "" {
		scripts = append(scripts, script{file: "setup.js", src: req.Setup})
	}

	if req.Code == "" && req.Fixture == "" && len(files) > 0 {
		if name, src, ok := pick(files, projectSources, workdir); ok {
			scripts = append(scripts, script{file: name, src: src})
		}
		if name, src, ok := pick(files, projectFixtures, workdir); ok {
			scripts = append(scripts, script{file: name, src: src})
		}
		return scripts, files
	}

	if req.Code != "" {
		scripts = append(scripts, script{file: "solution.js", src: req.Code})
	}
	if req.Fixture != "" {
		scripts = append(scripts, script{file: "fixture.js", src: req.Fixture})
	}
	return scripts, files
}

func pick(files map[string]string, names []string, workdir string) (string, string, bool) {
	staged := make(map[string]string, len(files))
	for name, src := range files {
		staged[jsrt.Relative(workdir, name)] = src
	}
	for _, name := range names {
		if src, ok := staged[name]; ok {
			return name, src, true
		}
	}
	return "", "", false
}
