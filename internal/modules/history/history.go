// Package history дает команду history: последние вызовы из журнала.
package history

import (
	"context"
	"errors"
	"strconv"
	"time"

	"duet/internal/core"
	"duet/internal/ext"
	"duet/internal/modules"
	"duet/internal/storage"
	"duet/internal/transports/cli"
	"duet/internal/transports/web"
)

func init() {
	ext.Provide(modules.Base, "history", modules.DomainCmd, func(reg *ext.Registry) error {
		return cli.Register(reg, &Command{})
	})
}

var errNoStore = errors.New("invocation history is not available")

type Command struct{}

func (c *Command) Command() string  { return "history" }
func (c *Command) Synopsis() string { return "List recent invocations" }

func (c *Command) AddToolOptions(req *cli.Request) {
	fs := req.ToolFlags()
	fs.IntP("limit", "n", 20, "number of rows to show")
	fs.String("transport", "", "show only cmd or web invocations")
	fs.String("since", "", "show invocations after this RFC3339 time")
	fs.Bool("json", false, "print JSON instead of text")
}

type row struct {
	RequestID string `json:"request_id"`
	Transport string `json:"transport"`
	Target    string `json:"target"`
	Outcome   int    `json:"outcome"`
	Message   string `json:"message,omitempty"`
	TS        string `json:"ts"`
}

func (c *Command) Respond(ctx context.Context, req *cli.Request) (core.Response, error) {
	st := storage.FromRequest(req)
	if st == nil {
		return nil, errNoStore
	}

	q := storage.InvocationQuery{Transport: req.ToolOption("transport", "")}
	if n, err := strconv.Atoi(req.ToolOption("limit", "20")); err == nil {
		q.Limit = n
	}
	if since := req.ToolOption("since", ""); since != "" {
		ts, err := time.Parse(time.RFC3339, since)
		if err != nil {
			res := cli.NewResponse(req)
			res.SetError(cli.UsageErrorCode, "--since must be an RFC3339 time")
			return res, nil
		}
		q.From = ts
	}

	items, err := st.QueryInvocations(ctx, q)
	if err != nil {
		return nil, err
	}
	rows := make([]row, 0, len(items))
	for _, inv := range items {
		rows = append(rows, row{
			RequestID: inv.RequestID,
			Transport: inv.Transport,
			Target:    inv.Target,
			Outcome:   inv.Outcome,
			Message:   inv.Message,
			TS:        inv.TS.UTC().Format(time.RFC3339),
		})
	}

	res := cli.NewResponse(req)
	if req.ToolOption("json", "false") == "true" {
		res.SetPayload(web.NewJSONPayload(rows))
		return res, nil
	}
	text := core.NewTextPayload("")
	for _, r := range rows {
		target := r.Target
		if target == "" {
			target = "-"
		}
		text.Addf("%s  %-3s  %3d  %s", r.TS, r.Transport, r.Outcome, target)
		if r.Message != "" {
			text.Addf("  %s", r.Message)
		}
		text.Add("\n")
	}
	res.SetPayload(text)
	return res, nil
}
