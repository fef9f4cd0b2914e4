package settings

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"duet/internal/config"
	"duet/internal/ext"
	"duet/internal/transports/cli"
)

func run(t *testing.T, cfg *config.Store, argv ...string) (int, string, string) {
	t.Helper()
	reg := ext.NewRegistry()
	if err := cli.Register(reg, &Command{}); err != nil {
		t.Fatalf("register: %v", err)
	}
	var stdout, stderr bytes.Buffer
	req := cli.NewRequest(argv, cli.WithRegistry(reg), cli.WithOutput(&stdout, &stderr), cli.WithEnviron(map[string]string{}))
	if cfg != nil {
		req.SetData(config.DataKey, cfg)
	}
	res := cli.Dispatch(context.Background(), req)
	if err := res.Output(&stdout); err != nil {
		t.Fatalf("output: %v", err)
	}
	return res.ReturnCode(), stdout.String(), res.(*cli.Response).ErrorText()
}

func TestListInRegistrationOrder(t *testing.T) {
	code, out, _ := run(t, config.New(), "config")
	if code != 0 {
		t.Fatalf("expected success, got %d", code)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if !strings.HasPrefix(lines[0], "web_root_url") || !strings.HasSuffix(lines[0], "http://127.0.0.1/") {
		t.Fatalf("unexpected first line %q", lines[0])
	}
	if !strings.HasPrefix(lines[len(lines)-1], "mail_from") {
		t.Fatalf("unexpected last line %q", lines[len(lines)-1])
	}
	if strings.Contains(out, "#") {
		t.Fatalf("docs must be hidden by default")
	}

	_, out, _ = run(t, config.New(), "config", "--docs")
	if !strings.Contains(out, "# The root URL for this site") {
		t.Fatalf("expected docs, got:\n%s", out)
	}
}

func TestGetAndSet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if code, _, msg := run(t, cfg, "config", "web_root_url", "https://duet.example"); code != 0 {
		t.Fatalf("set failed: %d %s", code, msg)
	}
	_, out, _ := run(t, cfg, "config", "web_root_url")
	if out != "https://duet.example/\n" {
		t.Fatalf("unexpected value %q", out)
	}

	reloaded, err := config.Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Settings().WebRootURL != "https://duet.example/" {
		t.Fatalf("value must be saved, got %q", reloaded.Settings().WebRootURL)
	}
}

func TestUnknownOption(t *testing.T) {
	code, _, msg := run(t, config.New(), "config", "nope")
	if code != 1 || !strings.Contains(msg, "unknown option") {
		t.Fatalf("expected unknown option error, got %d %q", code, msg)
	}
}

func TestTooManyArguments(t *testing.T) {
	code, _, _ := run(t, config.New(), "config", "a", "b", "c")
	if code != cli.UsageErrorCode {
		t.Fatalf("expected usage error, got %d", code)
	}
}

func TestMissingConfig(t *testing.T) {
	code, _, msg := run(t, nil, "config")
	if code != 1 || msg != errNoConfig.Error() {
		t.Fatalf("expected missing config error, got %d %q", code, msg)
	}
}
