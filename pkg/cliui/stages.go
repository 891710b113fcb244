package cliui

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/papercomputeco/council/pkg/council"
)

// RenderOption configures how council messages are printed.
type RenderOption func(*printer)

// WithPlain disables styling and markdown rendering.
func WithPlain(plain bool) RenderOption {
	return func(p *printer) {
		p.plain = plain
	}
}

// WithWidth sets the wrap width for rendered markdown.
func WithWidth(width uint) RenderOption {
	return func(p *printer) {
		if width > 0 {
			p.width = width
		}
	}
}

type printer struct {
	w     io.Writer
	plain bool
	width uint
}

func newPrinter(w io.Writer, opts []RenderOption) printer {
	p := printer{w: w, width: 80}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// StageRenderer prints the stages of the open assistant message as they
// arrive. It is meant to be subscribed to a store.Store.
//
// Each stage is printed once. Messages that are already done the first time
// the renderer sees them are history and are not printed.
type StageRenderer struct {
	printer

	mu      sync.Mutex
	index   int
	printed printedStages
}

type printedStages struct {
	stage1, stage2, stage3 bool

	waited  bool
	waiting council.StageState

	done bool
}

// NewStageRenderer returns a StageRenderer writing to w.
func NewStageRenderer(w io.Writer, opts ...RenderOption) *StageRenderer {
	return &StageRenderer{
		printer: newPrinter(w, opts),
		index:   -1,
	}
}

// Notify implements store.Observer.
func (r *StageRenderer) Notify(conv council.Conversation) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := len(conv.Messages) - 1
	if idx < 0 {
		return
	}
	msg := conv.Messages[idx]
	if msg.Role != council.RoleAssistant {
		return
	}

	if idx != r.index {
		r.index = idx
		r.printed = printedStages{done: !msg.Open()}
	}
	if r.printed.done {
		return
	}

	p := &r.printed
	if msg.Stage1 != nil && !p.stage1 {
		p.stage1 = true
		r.stage1(msg)
	}
	if msg.Stage2 != nil && !p.stage2 {
		p.stage2 = true
		r.stage2(msg)
	}
	if msg.Stage3 != nil && !p.stage3 {
		p.stage3 = true
		r.stage3(msg)
	}

	if msg.Open() {
		if !p.waited || p.waiting != msg.State {
			p.waited = true
			p.waiting = msg.State
			r.waitingFor(msg.State)
		}
		return
	}

	p.done = true
	if msg.Stage3 == nil {
		fmt.Fprintf(r.w, "\n  %s %s\n\n", r.mark(FailMark, "x"), "The council finished without a final answer.")
	}
}

// RenderMessage prints every stage present in msg.
func RenderMessage(w io.Writer, msg council.Message, opts ...RenderOption) {
	p := newPrinter(w, opts)
	if msg.Role == council.RoleUser {
		fmt.Fprintf(w, "\n%s%s\n", p.style(RoleStyle, "you> "), msg.Content)
		return
	}

	if msg.Stage1 != nil {
		p.stage1(msg)
	}
	if msg.Stage2 != nil {
		p.stage2(msg)
	}
	switch {
	case msg.Stage3 != nil:
		p.stage3(msg)
	case msg.Content != "":
		p.header("Answer")
		p.markdown(msg.Content)
	}
}

// RenderConversation prints the whole history of conv.
func RenderConversation(w io.Writer, conv council.Conversation, opts ...RenderOption) {
	for _, msg := range conv.Messages {
		RenderMessage(w, msg, opts...)
	}
}

var waitingLines = map[council.StageState]string{
	council.StateAwaitingStage1: "Running Stage 1: Collecting individual responses...",
	council.StateAwaitingStage2: "Running Stage 2: Peer rankings...",
	council.StateAwaitingStage3: "Running Stage 3: Final synthesis...",
}

func (p printer) waitingFor(state council.StageState) {
	line, ok := waitingLines[state]
	if !ok {
		return
	}
	fmt.Fprintf(p.w, "\n  %s %s\n", p.style(spinnerStyle, "●"), p.style(DimStyle, line))
}

func (p printer) stage1(msg council.Message) {
	p.header("Stage 1 · Individual responses")
	for _, model := range slices.Sorted(maps.Keys(msg.Stage1)) {
		fmt.Fprintf(p.w, "\n  %s %s\n", p.style(DimStyle, "──"), p.style(NameStyle, model))
		p.markdown(msg.Stage1[model])
	}
}

func (p printer) stage2(msg council.Message) {
	p.header("Stage 2 · Peer rankings")

	var labels map[string]string
	if msg.Metadata != nil {
		labels = msg.Metadata.LabelToModel

		if len(msg.Metadata.AggregateRankings) > 0 {
			fmt.Fprintf(p.w, "\n  %s\n", p.style(KeyStyle, "Aggregate ranking"))
			for i, ar := range msg.Metadata.AggregateRankings {
				fmt.Fprintf(p.w, "  %s %s %s\n",
					p.style(DimStyle, fmt.Sprintf("%d.", i+1)),
					p.style(NameStyle, ar.Model),
					p.style(DimStyle, fmt.Sprintf("avg %.2f (%d votes)", ar.AverageRank, ar.RankingsCount)),
				)
			}
		}
	}

	for _, reviewer := range slices.Sorted(maps.Keys(msg.Stage2)) {
		r := msg.Stage2[reviewer]
		fmt.Fprintf(p.w, "\n  %s %s\n", p.style(DimStyle, "──"), p.style(NameStyle, reviewer))
		if len(r.Parsed) == 0 {
			p.markdown(r.Text)
			continue
		}

		order := make([]string, len(r.Parsed))
		for i, label := range r.Parsed {
			if model, ok := labels[label]; ok {
				order[i] = model
			} else {
				order[i] = label
			}
		}
		fmt.Fprintf(p.w, "  %s\n", p.style(ValueStyle, strings.Join(order, " > ")))
	}
}

func (p printer) stage3(msg council.Message) {
	title := "Stage 3 · Final answer"
	if msg.Chairman != "" {
		title += " (chairman: " + msg.Chairman + ")"
	}
	p.header(title)
	p.markdown(*msg.Stage3)
}

func (p printer) header(title string) {
	fmt.Fprintf(p.w, "\n  %s\n", p.style(HeaderStyle, title))
}

func (p printer) markdown(text string) {
	if p.plain {
		fmt.Fprintf(p.w, "%s\n", text)
		return
	}
	rendered, err := RenderMarkdown(text, p.width)
	if err != nil {
		fmt.Fprintf(p.w, "%s\n", text)
		return
	}
	fmt.Fprint(p.w, rendered)
}

func (p printer) style(s lipgloss.Style, text string) string {
	if p.plain {
		return text
	}
	return s.Render(text)
}

func (p printer) mark(styled, plain string) string {
	if p.plain {
		return plain
	}
	return styled
}
