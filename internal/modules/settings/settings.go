// Package settings дает команду config для чтения и изменения настроек.
package settings

import (
	"context"
	"errors"
	"fmt"

	"duet/internal/config"
	"duet/internal/core"
	"duet/internal/ext"
	"duet/internal/modules"
	"duet/internal/transports/cli"
)

func init() {
	ext.Provide(modules.Base, "settings", modules.DomainCmd, func(reg *ext.Registry) error {
		return cli.Register(reg, &Command{})
	})
}

var errNoConfig = errors.New("configuration is not available")

// Command реализует команду config:
//
//	config              все опции со значениями
//	config NAME         значение одной опции
//	config NAME VALUE   сохранить новое значение
type Command struct{}

func (c *Command) Command() string  { return "config" }
func (c *Command) Synopsis() string { return "Show or change settings" }

func (c *Command) SetUsage(req *cli.Request) {
	req.SetUsage("%prog [common options] config [--docs] [NAME [VALUE]]")
}

func (c *Command) AddToolOptions(req *cli.Request) {
	req.ToolFlags().Bool("docs", false, "print the description of each option")
}

func (c *Command) Respond(ctx context.Context, req *cli.Request) (core.Response, error) {
	cfg := config.FromRequest(req)
	if cfg == nil {
		return nil, errNoConfig
	}
	args := req.ToolArgs()
	res := cli.NewResponse(req)

	switch len(args) {
	case 0:
		res.SetPayload(list(cfg, req.ToolOption("docs", "false") == "true"))
	case 1:
		v, err := cfg.Get(args[0])
		if err != nil {
			return nil, err
		}
		res.SetPayload(core.NewTextPayload(v + "\n"))
	case 2:
		if err := cfg.Set(args[0], args[1]); err != nil {
			return nil, err
		}
		if err := cfg.Save(); err != nil {
			return nil, fmt.Errorf("save settings: %w", err)
		}
	default:
		res.SetError(cli.UsageErrorCode, "config takes at most two arguments")
	}
	return res, nil
}

// list выводит опции в порядке регистрации.
func list(cfg *config.Store, docs bool) *core.TextPayload {
	opts := cfg.Options()
	width := 0
	for _, opt := range opts {
		if len(opt.Name) > width {
			width = len(opt.Name)
		}
	}
	out := core.NewTextPayload("")
	for _, opt := range opts {
		v, _ := cfg.Get(opt.Name)
		out.Addf("%-*s  %s\n", width, opt.Name, v)
		if docs && opt.Doc != "" {
			out.Addf("%-*s  # %s\n", width, "", opt.Doc)
		}
	}
	return out
}
