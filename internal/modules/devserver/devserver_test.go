package devserver

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"duet/internal/config"
	"duet/internal/ext"
	"duet/internal/transports/cli"
	"duet/internal/transports/web"
)

type nopPage struct{}

func (nopPage) Name() string { return "nop" }
func (nopPage) Respond(ctx context.Context, req *web.Request) (*web.Response, error) {
	return web.NewResponse(req), nil
}

func run(ctx context.Context, t *testing.T, reg *ext.Registry, argv ...string) (int, string) {
	t.Helper()
	if err := cli.Register(reg, &Command{}); err != nil {
		t.Fatalf("register: %v", err)
	}
	var stdout, stderr bytes.Buffer
	req := cli.NewRequest(argv, cli.WithRegistry(reg), cli.WithOutput(&stdout, &stderr), cli.WithEnviron(map[string]string{}))
	req.SetData(config.DataKey, config.New())
	res := cli.Dispatch(ctx, req)
	return res.ReturnCode(), res.(*cli.Response).ErrorText()
}

func TestServeWithoutWebResponder(t *testing.T) {
	code, msg := run(context.Background(), t, ext.NewRegistry(), "serve")
	if code != 1 || !strings.Contains(msg, web.ErrNoResponder.Error()) {
		t.Fatalf("expected missing responder error, got %d %q", code, msg)
	}
}

func TestServeUnknownResponder(t *testing.T) {
	reg := ext.NewRegistry()
	if err := web.Register(reg, nopPage{}); err != nil {
		t.Fatalf("register page: %v", err)
	}
	code, msg := run(context.Background(), t, reg, "serve", "--responder", "other")
	if code != 1 || !strings.Contains(msg, "other") {
		t.Fatalf("expected unknown responder error, got %d %q", code, msg)
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	reg := ext.NewRegistry()
	if err := web.Register(reg, nopPage{}); err != nil {
		t.Fatalf("register page: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	code, msg := run(ctx, t, reg, "serve", "-l", "127.0.0.1:0")
	if code != 0 {
		t.Fatalf("expected clean shutdown, got %d %q", code, msg)
	}
}

func TestServeListenError(t *testing.T) {
	reg := ext.NewRegistry()
	if err := web.Register(reg, nopPage{}); err != nil {
		t.Fatalf("register page: %v", err)
	}
	code, msg := run(context.Background(), t, reg, "serve", "--listen", "256.0.0.1:bad")
	if code != 1 || msg == "" {
		t.Fatalf("expected listen error, got %d %q", code, msg)
	}
}
