package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/sweetpotato0/echoflow/llm"
)

// printer writes reply text to out and everything else to status.
type printer struct {
	out    io.Writer
	status io.Writer

	tool     *color.Color
	thinking *color.Color
	meta     *color.Color

	midLine bool
}

func newPrinter(out, status io.Writer) *printer {
	return &printer{
		out:      out,
		status:   status,
		tool:     color.New(color.FgCyan),
		thinking: color.New(color.Faint, color.Italic),
		meta:     color.New(color.FgYellow),
	}
}

func (p *printer) event(ev llm.StreamEvent) {
	switch ev.Type {
	case llm.EventTextDelta:
		fmt.Fprint(p.out, ev.Text)
		p.midLine = true
	case llm.EventThinkingDelta:
		p.thinking.Fprint(p.status, ev.Text)
	case llm.EventTool:
		p.endLine()
		args, err := ev.Tool.InputJSON()
		if err != nil {
			args = []byte("{}")
		}
		p.tool.Fprintf(p.status, "tool %s %s (%s)\n", ev.Tool.Name, args, ev.Tool.ID)
	case llm.EventStop:
		p.endLine()
	case llm.EventMetadata:
		p.meta.Fprintf(p.status, "tokens in=%d out=%d cached=%d\n",
			ev.Metadata.InputTokens(), ev.Metadata.OutputTokens(), ev.Metadata.CacheReadTokens())
	}
}

func (p *printer) text(s string) {
	fmt.Fprintln(p.out, s)
}

func (p *printer) usage(u llm.Usage) {
	p.meta.Fprintf(p.status, "total tokens in=%d out=%d cached=%d\n", u.InputTokens, u.OutputTokens, u.CacheReadInputTokens)
}

func (p *printer) endLine() {
	if p.midLine {
		fmt.Fprintln(p.out)
		p.midLine = false
	}
}
