// Package host показывает базовые метрики узла: команда status и
// web responder host.
package host

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"

	"duet/internal/core"
	"duet/internal/ext"
	"duet/internal/modules"
	"duet/internal/ordering"
	"duet/internal/transports/cli"
	"duet/internal/transports/web"
)

func init() {
	ext.Provide(modules.Base, "host", modules.DomainCmd, func(reg *ext.Registry) error {
		return cli.Register(reg, &StatusCommand{})
	})
	ext.Provide(modules.Base, "host", modules.DomainWeb, func(reg *ext.Registry) error {
		return web.Register(reg, &Page{})
	})
}

// Snapshot хранит метрики узла на момент запроса.
type Snapshot struct {
	Hostname    string  `json:"hostname"`
	Platform    string  `json:"platform"`
	PlatformVer string  `json:"platformVer"`
	Kernel      string  `json:"kernel"`
	UptimeSec   uint64  `json:"uptime_sec"`
	BootTime    string  `json:"boot_time"`
	MemTotal    uint64  `json:"mem_total"`
	MemUsed     uint64  `json:"mem_used"`
	MemUsedPct  float64 `json:"mem_used_pct"`
	Load1       float64 `json:"load1"`
	Load5       float64 `json:"load5"`
	Load15      float64 `json:"load15"`
}

// collect подменяется в тестах.
var collect = func(ctx context.Context) (Snapshot, error) {
	hInfo, err := host.InfoWithContext(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("host info: %w", err)
	}
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("memory info: %w", err)
	}
	ld, err := load.AvgWithContext(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load info: %w", err)
	}
	return Snapshot{
		Hostname:    hInfo.Hostname,
		Platform:    hInfo.Platform,
		PlatformVer: hInfo.PlatformVersion,
		Kernel:      hInfo.KernelVersion,
		UptimeSec:   hInfo.Uptime,
		BootTime:    time.Unix(int64(hInfo.BootTime), 0).UTC().Format(time.RFC3339),
		MemTotal:    vm.Total,
		MemUsed:     vm.Used,
		MemUsedPct:  vm.UsedPercent,
		Load1:       ld.Load1,
		Load5:       ld.Load5,
		Load15:      ld.Load15,
	}, nil
}

type field struct {
	Name  string
	Value string
}

// fields возвращает метрики строками, отсортированными по имени.
func (s Snapshot) fields() ([]field, error) {
	return ordering.Sorted([]field{
		{"hostname", s.Hostname},
		{"platform", s.Platform},
		{"platform_version", s.PlatformVer},
		{"kernel", s.Kernel},
		{"uptime", (time.Duration(s.UptimeSec) * time.Second).String()},
		{"boot_time", s.BootTime},
		{"mem_total", fmt.Sprintf("%d", s.MemTotal)},
		{"mem_used", fmt.Sprintf("%d (%.1f%%)", s.MemUsed, s.MemUsedPct)},
		{"load", fmt.Sprintf("%.2f %.2f %.2f", s.Load1, s.Load5, s.Load15)},
	}, "Name")
}

// StatusCommand реализует команду status.
type StatusCommand struct{}

func (c *StatusCommand) Command() string  { return "status" }
func (c *StatusCommand) Synopsis() string { return "Show host status" }

func (c *StatusCommand) SetUsage(req *cli.Request) {
	req.SetUsage("%prog [common options] status [--json]")
}

func (c *StatusCommand) AddToolOptions(req *cli.Request) {
	req.ToolFlags().Bool("json", false, "print JSON instead of text")
}

func (c *StatusCommand) Respond(ctx context.Context, req *cli.Request) (core.Response, error) {
	snap, err := collect(ctx)
	if err != nil {
		return nil, err
	}
	res := cli.NewResponse(req)
	if req.ToolOption("json", "false") == "true" {
		res.SetPayload(web.NewJSONPayload(snap))
		return res, nil
	}

	rows, err := snap.fields()
	if err != nil {
		return nil, err
	}
	width := 0
	for _, f := range rows {
		if len(f.Name) > width {
			width = len(f.Name)
		}
	}
	text := core.NewTextPayload("")
	for _, f := range rows {
		text.Addf("%-*s  %s\n", width, f.Name, f.Value)
	}
	res.SetPayload(text)
	return res, nil
}

// Page отдает web responder host: HTML-таблица или JSON при ?format=json.
// Путь, кроме корня, дает 404.
type Page struct{}

func (p *Page) Name() string { return "host" }

func (p *Page) Respond(ctx context.Context, req *web.Request) (*web.Response, error) {
	if len(req.Path()) > 0 {
		return nil, web.NewError(http.StatusNotFound, "Not found", "No page at "+req.PathInfo())
	}
	snap, err := collect(ctx)
	if err != nil {
		return nil, web.NewError(http.StatusServiceUnavailable, "Host status unavailable", err.Error())
	}

	res := web.NewResponse(req)
	if req.QueryValue("format", "") == "json" {
		res.SetPayload(web.NewJSONPayload(snap))
		return res, nil
	}

	rows, err := snap.fields()
	if err != nil {
		return nil, err
	}
	values := make(map[string]string, len(rows))
	for _, f := range rows {
		values[f.Name] = f.Value
	}
	view := web.Escape(values).(web.MapView)

	page := web.NewHTMLPayload().
		Add("<!DOCTYPE html>\n<html><head>").
		Addf("<title>%s</title></head><body>\n<h1>%s</h1>\n<table>\n", snap.Hostname, snap.Hostname)
	for _, f := range rows {
		page.Addf("<tr><th>%s</th>", f.Name).
			Add("<td>", view.Value(f.Name), "</td></tr>\n")
	}
	page.Add("</table>\n</body></html>\n")
	res.SetPayload(page)
	return res, nil
}
