package host

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"duet/internal/ext"
	"duet/internal/transports/cli"
	"duet/internal/transports/web"
)

func stubCollect(t *testing.T, snap Snapshot, err error) {
	t.Helper()
	orig := collect
	collect = func(context.Context) (Snapshot, error) { return snap, err }
	t.Cleanup(func() { collect = orig })
}

var testSnapshot = Snapshot{
	Hostname:   "node<1>",
	Platform:   "linux",
	Kernel:     "6.1",
	UptimeSec:  90,
	MemTotal:   1024,
	MemUsed:    512,
	MemUsedPct: 50,
	Load1:      0.5,
}

func runStatus(t *testing.T, argv ...string) (int, string, string) {
	t.Helper()
	reg := ext.NewRegistry()
	if err := cli.Register(reg, &StatusCommand{}); err != nil {
		t.Fatalf("register: %v", err)
	}
	var stdout, stderr bytes.Buffer
	req := cli.NewRequest(argv, cli.WithRegistry(reg), cli.WithOutput(&stdout, &stderr), cli.WithEnviron(map[string]string{}))
	res := cli.Dispatch(context.Background(), req)
	if err := res.Output(&stdout); err != nil {
		t.Fatalf("output: %v", err)
	}
	msg := ""
	if r, ok := res.(*cli.Response); ok {
		msg = r.ErrorText()
	}
	return res.ReturnCode(), stdout.String(), msg
}

func TestStatusText(t *testing.T) {
	stubCollect(t, testSnapshot, nil)
	code, out, _ := runStatus(t, "status")
	if code != 0 {
		t.Fatalf("expected success, got %d", code)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if !strings.HasPrefix(lines[0], "boot_time") {
		t.Fatalf("fields must be sorted by name, got %q", lines[0])
	}
	if !strings.Contains(out, "hostname          node<1>\n") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if !strings.Contains(out, "uptime            1m30s\n") {
		t.Fatalf("unexpected uptime:\n%s", out)
	}
}

func TestStatusJSON(t *testing.T) {
	stubCollect(t, testSnapshot, nil)
	code, out, _ := runStatus(t, "status", "--json")
	if code != 0 {
		t.Fatalf("expected success, got %d", code)
	}
	var got Snapshot
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Hostname != "node<1>" || got.MemUsed != 512 {
		t.Fatalf("unexpected snapshot %#v", got)
	}
}

func TestStatusCollectError(t *testing.T) {
	stubCollect(t, Snapshot{}, errors.New("no procfs"))
	code, _, msg := runStatus(t, "status")
	if code != 1 || msg != "no procfs" {
		t.Fatalf("expected error response, got %d %q", code, msg)
	}
}

func TestPageHTMLEscapes(t *testing.T) {
	stubCollect(t, testSnapshot, nil)
	req := web.NewRequest(web.WithEnviron(map[string]string{}), web.WithHTTP(false))
	res := web.Respond(context.Background(), &Page{}, req)
	var out bytes.Buffer
	if err := res.Output(&out); err != nil {
		t.Fatalf("output: %v", err)
	}
	body := out.String()
	if !strings.Contains(body, "<h1>node&lt;1&gt;</h1>") {
		t.Fatalf("hostname must be escaped:\n%s", body)
	}
	if !strings.Contains(body, "<tr><th>hostname</th><td>node&lt;1&gt;</td></tr>") {
		t.Fatalf("table value must be escaped:\n%s", body)
	}
	if res.ContentType() != web.TextHTML {
		t.Fatalf("unexpected content type %q", res.ContentType())
	}
}

func TestPageJSON(t *testing.T) {
	stubCollect(t, testSnapshot, nil)
	req := web.NewRequest(web.WithEnviron(map[string]string{}), web.WithQueryString("format=json"))
	res := web.Respond(context.Background(), &Page{}, req)
	if res.ContentType() != web.ApplicationJSON || res.Status() != http.StatusOK {
		t.Fatalf("unexpected response %q %d", res.ContentType(), res.Status())
	}
}

func TestPageNotFound(t *testing.T) {
	stubCollect(t, testSnapshot, nil)
	req := web.NewRequest(web.WithEnviron(map[string]string{}), web.WithPathInfo("/nope"))
	res := web.Respond(context.Background(), &Page{}, req)
	if res.Status() != http.StatusNotFound || res.ReturnCode() != 404 {
		t.Fatalf("expected 404, got %d", res.Status())
	}
}

func TestPageCollectError(t *testing.T) {
	stubCollect(t, Snapshot{}, errors.New("no procfs"))
	req := web.NewRequest(web.WithEnviron(map[string]string{}))
	res := web.Respond(context.Background(), &Page{}, req)
	if res.Status() != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", res.Status())
	}
}

func TestModulesAreProvided(t *testing.T) {
	reg := ext.NewRegistry()
	for _, domain := range []string{"cmd", "web"} {
		if err := ext.Discover(context.Background(), reg, "modules", domain); err != nil {
			t.Fatalf("discover %s: %v", domain, err)
		}
	}
	if _, err := web.Select(reg, "host"); err != nil {
		t.Fatalf("host page not registered: %v", err)
	}
	if len(ext.Of[cli.Responder](reg, cli.Category)) != 1 {
		t.Fatalf("expected the status command")
	}
}
