package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"duet/internal/core"
	"duet/internal/ext"
)

type fakeResponder struct {
	cmd      string
	synopsis string
	calls    int
	err      error
}

func (f *fakeResponder) Command() string  { return f.cmd }
func (f *fakeResponder) Synopsis() string { return f.synopsis }
func (f *fakeResponder) Respond(ctx context.Context, req *Request) (core.Response, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	res := NewResponse(req)
	res.SetPayload(core.NewTextPayload("ran " + strings.Join(req.ToolArgs(), ",")))
	return res, nil
}

type greetResponder struct {
	fakeResponder
}

func (g *greetResponder) SetUsage(req *Request) {
	req.SetUsage("%prog [common options] greet [-v] NAME")
}

func (g *greetResponder) AddToolOptions(req *Request) {
	req.ToolFlags().BoolP("verbose", "v", false, "be chatty")
}

type harness struct {
	reg    *ext.Registry
	stdout bytes.Buffer
	stderr bytes.Buffer
}

func newHarness(t *testing.T, responders ...Responder) *harness {
	t.Helper()
	h := &harness{reg: ext.NewRegistry()}
	for _, r := range responders {
		if err := Register(h.reg, r); err != nil {
			t.Fatalf("register %s: %v", r.Command(), err)
		}
	}
	return h
}

func (h *harness) request(argv ...string) *Request {
	if argv == nil {
		argv = []string{}
	}
	return NewRequest(argv,
		WithRegistry(h.reg),
		WithOutput(&h.stdout, &h.stderr),
		WithProgram("duet"),
		WithEnviron(map[string]string{}),
	)
}

func errorText(t *testing.T, res core.Response) string {
	t.Helper()
	r, ok := res.(*Response)
	if !ok {
		t.Fatalf("expected *cli.Response, got %T", res)
	}
	return r.ErrorText()
}

func TestDispatchUnknownCommand(t *testing.T) {
	h := newHarness(t, &fakeResponder{cmd: "status", synopsis: "Show status"})
	res := Dispatch(context.Background(), h.request("nosuchcmd"))
	if res.ReturnCode() != 1 {
		t.Fatalf("expected return code 1, got %d", res.ReturnCode())
	}
	if got := errorText(t, res); got != "nosuchcmd is not a valid command." {
		t.Fatalf("unexpected error text %q", got)
	}
	if h.stdout.Len() != 0 {
		t.Fatalf("unknown command must not print help, got %q", h.stdout.String())
	}
}

func TestDispatchMissingCommand(t *testing.T) {
	status := &fakeResponder{cmd: "status", synopsis: "Show host status"}
	cfg := &fakeResponder{cmd: "config", synopsis: "Show or change settings"}
	h := newHarness(t, status, cfg)

	res := Dispatch(context.Background(), h.request())
	if res.ReturnCode() != 1 {
		t.Fatalf("expected return code 1, got %d", res.ReturnCode())
	}
	if got := errorText(t, res); got != "You must specify a command." {
		t.Fatalf("unexpected error text %q", got)
	}
	out := h.stdout.String()
	want := "\nCommands:\n  config  Show or change settings\n  status  Show host status\n"
	if !strings.HasSuffix(out, want) {
		t.Fatalf("unexpected command list:\n%s", out)
	}
	if !strings.HasPrefix(out, "Usage: duet [common options] <command> [command arguments]\n") {
		t.Fatalf("unexpected usage line:\n%s", out)
	}
	if status.calls != 0 || cfg.calls != 0 {
		t.Fatalf("no responder must run")
	}
}

func TestDispatchHelpFlag(t *testing.T) {
	status := &fakeResponder{cmd: "status", synopsis: "Show status"}
	h := newHarness(t, status)

	for _, argv := range [][]string{{"-h"}, {"--help"}} {
		h.stdout.Reset()
		res := Dispatch(context.Background(), h.request(argv...))
		if res.ReturnCode() != 0 {
			t.Fatalf("%v: expected return code 0, got %d", argv, res.ReturnCode())
		}
		out := h.stdout.String()
		if !strings.Contains(out, "Common Options:") || !strings.Contains(out, "--help") {
			t.Fatalf("%v: expected common options help, got:\n%s", argv, out)
		}
		if !strings.Contains(out, "  status  Show status\n") {
			t.Fatalf("%v: expected command list, got:\n%s", argv, out)
		}
	}
	if status.calls != 0 {
		t.Fatalf("help must not invoke the responder")
	}
}

func TestDispatchRunsResponderWithToolOptions(t *testing.T) {
	greet := &greetResponder{fakeResponder{cmd: "greet", synopsis: "Say hello"}}
	h := newHarness(t, greet)

	req := h.request("greet", "-v", "bob", "alice")
	res := Dispatch(context.Background(), req)
	if res.ReturnCode() != 0 {
		t.Fatalf("expected success, got %d (%s)", res.ReturnCode(), errorText(t, res))
	}
	if greet.calls != 1 {
		t.Fatalf("expected one call, got %d", greet.calls)
	}
	if got := req.ToolOption("verbose", ""); got != "true" {
		t.Fatalf("expected verbose=true, got %q", got)
	}
	if got := req.ToolOption("missing", "def"); got != "def" {
		t.Fatalf("expected default for unknown option, got %q", got)
	}

	var out bytes.Buffer
	if err := res.Output(&out); err != nil {
		t.Fatalf("output: %v", err)
	}
	if out.String() != "ran bob,alice" {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestDispatchHelpForCommand(t *testing.T) {
	greet := &greetResponder{fakeResponder{cmd: "greet", synopsis: "Say hello"}}
	h := newHarness(t, greet)

	for _, argv := range [][]string{{"-h", "greet"}, {"greet", "--help"}} {
		h.stdout.Reset()
		res := Dispatch(context.Background(), h.request(argv...))
		if res.ReturnCode() != 0 {
			t.Fatalf("%v: expected success, got %d", argv, res.ReturnCode())
		}
		out := h.stdout.String()
		if !strings.HasPrefix(out, "Usage: duet [common options] greet [-v] NAME\n") {
			t.Fatalf("%v: expected custom usage, got:\n%s", argv, out)
		}
		if !strings.Contains(out, "Command Options:") || !strings.Contains(out, "--verbose") {
			t.Fatalf("%v: expected command options, got:\n%s", argv, out)
		}
		if strings.Contains(out, "Commands:") {
			t.Fatalf("%v: command list must not be shown for a resolved command", argv)
		}
		if strings.Count(out, "Usage:") != 1 {
			t.Fatalf("%v: expected a single usage line, got:\n%s", argv, out)
		}
	}
	if greet.calls != 0 {
		t.Fatalf("help must not invoke the responder")
	}
}

func TestDispatchCommonOptionsStopAtCommand(t *testing.T) {
	status := &fakeResponder{cmd: "status", synopsis: "Show status"}
	h := newHarness(t, status)

	req := h.request("status", "a", "b")
	res := Dispatch(context.Background(), req)
	if res.ReturnCode() != 0 {
		t.Fatalf("expected success, got %d", res.ReturnCode())
	}
	if req.ToolName() != "status" {
		t.Fatalf("unexpected tool %q", req.ToolName())
	}
	if got := strings.Join(req.CommonArgs(), " "); got != "a b" {
		t.Fatalf("unexpected residual args %q", got)
	}
}

func TestDispatchBadOption(t *testing.T) {
	h := newHarness(t, &fakeResponder{cmd: "status"})
	res := Dispatch(context.Background(), h.request("--bogus", "status"))
	if res.ReturnCode() != UsageErrorCode {
		t.Fatalf("expected usage error code, got %d", res.ReturnCode())
	}
	if errorText(t, res) == "" {
		t.Fatalf("expected error text")
	}

	res = Dispatch(context.Background(), h.request("status", "--bogus"))
	if res.ReturnCode() != UsageErrorCode {
		t.Fatalf("expected usage error code for tool option, got %d", res.ReturnCode())
	}
}

func TestDispatchResponderError(t *testing.T) {
	h := newHarness(t, &fakeResponder{cmd: "status", err: errors.New("disk on fire")})
	res := Dispatch(context.Background(), h.request("status"))
	if res.ReturnCode() != 1 {
		t.Fatalf("expected return code 1, got %d", res.ReturnCode())
	}
	if got := errorText(t, res); got != "disk on fire" {
		t.Fatalf("unexpected error text %q", got)
	}
}

func TestDispatchIsCaseSensitive(t *testing.T) {
	h := newHarness(t, &fakeResponder{cmd: "status"})
	res := Dispatch(context.Background(), h.request("Status"))
	if got := errorText(t, res); got != "Status is not a valid command." {
		t.Fatalf("unexpected error text %q", got)
	}
}

func TestDisabledResponderIsInvisible(t *testing.T) {
	h := newHarness(t, &fakeResponder{cmd: "status"})
	h.reg.Disable(Category, "status")
	res := Dispatch(context.Background(), h.request("status"))
	if res.ReturnCode() != 1 {
		t.Fatalf("disabled responder must not be found, got %d", res.ReturnCode())
	}
}

func TestResponderDisabledInAncestorIsInvisible(t *testing.T) {
	fake := &fakeResponder{cmd: "status"}
	h := newHarness(t, fake)
	h.reg.Disable(core.ResponderCategory, "status")
	res := Dispatch(context.Background(), h.request("status"))
	if res.ReturnCode() != 1 || fake.calls != 0 {
		t.Fatalf("responder disabled under %q must not run, got code %d calls %d",
			core.ResponderCategory, res.ReturnCode(), fake.calls)
	}
}
