// Package devserver дает команду serve: web responder по HTTP без
// внешнего CGI-сервера.
package devserver

import (
	"context"
	"fmt"
	"time"

	"duet/internal/app"
	"duet/internal/config"
	"duet/internal/core"
	"duet/internal/ext"
	"duet/internal/modules"
	"duet/internal/storage"
	"duet/internal/transports/cli"
	"duet/internal/transports/web"
)

func init() {
	ext.Provide(modules.Base, "devserver", modules.DomainCmd, func(reg *ext.Registry) error {
		return cli.Register(reg, &Command{})
	})
}

type Command struct{}

func (c *Command) Command() string  { return "serve" }
func (c *Command) Synopsis() string { return "Serve a web responder over HTTP" }

func (c *Command) SetUsage(req *cli.Request) {
	req.SetUsage("%prog [common options] serve [--listen ADDR] [--responder NAME] [--rate-limit N]")
}

func (c *Command) AddToolOptions(req *cli.Request) {
	fs := req.ToolFlags()
	fs.StringP("listen", "l", "", "address to listen on (default: listen_addr setting)")
	fs.StringP("responder", "r", "", "web responder to serve (default: web_responder setting)")
	fs.Int("rate-limit", 0, "requests per minute from one client; 0 disables the limit")
}

// Respond блокируется до отмены контекста.
func (c *Command) Respond(ctx context.Context, req *cli.Request) (core.Response, error) {
	cfg := config.FromRequest(req)
	if cfg == nil {
		cfg = config.New()
	}
	settings := cfg.Settings()

	listen := req.ToolOption("listen", "")
	if listen == "" {
		listen = settings.ListenAddr
	}
	name := req.ToolOption("responder", "")
	if name == "" {
		name = settings.WebResponder
	}
	responder, err := web.Select(req.Registry(), name)
	if err != nil {
		return nil, fmt.Errorf("select web responder: %w", err)
	}

	rate, err := req.ToolFlags().GetInt("rate-limit")
	if err != nil {
		return nil, fmt.Errorf("rate-limit: %w", err)
	}

	st := storage.FromRequest(req)
	srv := web.NewServer(responder,
		web.Config{
			ListenAddr: listen,
			RootURL:    settings.WebRootURL,
			RateLimit:  rate,
			RateWindow: time.Minute,
		},
		web.WithPrepare(func(wr *web.Request) {
			wr.SetData(config.DataKey, cfg)
			if st != nil {
				wr.SetData(storage.DataKey, st)
			}
		}),
		web.WithRecorder(func(ctx context.Context, wr *web.Request, res *web.Response) {
			app.RecordWeb(ctx, st, wr, res)
		}),
	)
	if err := srv.Run(ctx); err != nil {
		return nil, err
	}
	return cli.NewResponse(req), nil
}
