package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/Nomadcxx/jellyhook/internal/activity"
	"github.com/Nomadcxx/jellyhook/internal/prefetch"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

func newTableWriter(header table.Row, rightAligned ...string) table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(header)

	configs := make([]table.ColumnConfig, 0, len(rightAligned))
	for _, name := range rightAligned {
		configs = append(configs, table.ColumnConfig{
			Name:        name,
			Align:       text.AlignRight,
			AlignFooter: text.AlignRight,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)
	return tw
}

// windowTable lists what happened to each episode of a prefetch window,
// with wanted and searched totals in the footer.
func windowTable(sum *prefetch.Summary) string {
	tw := newTableWriter(table.Row{"Episode", "ID", "Has File", "Wanted", "Searched", "Skipped"}, "ID")
	for _, w := range sum.Window {
		tw.AppendRow(table.Row{w.Ref(), w.ID, yesNo(w.HasFile), yesNo(w.Wanted), yesNo(w.Searched), w.Skipped})
	}
	tw.AppendFooter(table.Row{"Total", len(sum.Window), "", sum.Wanted, sum.Searched, ""})
	return tw.Render()
}

func activityTable(entries []activity.Entry) string {
	tw := newTableWriter(table.Row{"Time", "Event", "Item", "Channels", "Prefetch", "Exit"}, "Exit")
	for _, e := range entries {
		tw.AppendRow(table.Row{
			e.Timestamp.Local().Format("2006-01-02 15:04:05"),
			e.EventType,
			e.Item,
			channelMarks(e.Channels),
			prefetchCell(e.Prefetch),
			e.ExitCode,
		})
	}
	return tw.Render()
}

func channelMarks(channels []activity.ChannelEntry) string {
	marks := make([]string, 0, len(channels))
	for _, c := range channels {
		mark := "✓"
		if !c.OK {
			mark = "✗"
		}
		marks = append(marks, mark+c.Channel)
	}
	return strings.Join(marks, " ")
}

func prefetchCell(p *activity.PrefetchEntry) string {
	if p == nil {
		return ""
	}
	if p.Kind == string(prefetch.KindMovie) {
		return "unmonitored: " + yesNo(p.MovieUnmonitored)
	}
	cell := fmt.Sprintf("%d wanted, %d searched", p.Wanted, p.Searched)
	if len(p.Errors) > 0 {
		cell += fmt.Sprintf(", %d failed", len(p.Errors))
	}
	return cell
}

// connectionCheck is one row of `config test`.
type connectionCheck struct {
	Target  string
	Status  string
	Latency time.Duration
}

func connectionTable(checks []connectionCheck) string {
	tw := newTableWriter(table.Row{"Target", "Status", "Latency"}, "Latency")
	for _, c := range checks {
		latency := ""
		if c.Latency > 0 {
			latency = c.Latency.Round(time.Millisecond).String()
		}
		tw.AppendRow(table.Row{c.Target, c.Status, latency})
	}
	return tw.Render()
}
