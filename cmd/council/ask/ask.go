// Package askcmder provides the ask command, which puts one or more prompts
// to the council at once, each in its own new conversation.
package askcmder

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/council/cmd/council/cmdenv"
	"github.com/papercomputeco/council/pkg/cliui"
	"github.com/papercomputeco/council/pkg/council"
	"github.com/papercomputeco/council/pkg/eventstream"
	"github.com/papercomputeco/council/pkg/store"
	"github.com/papercomputeco/council/pkg/worker"
)

type askCommander struct {
	parallel uint
	full     bool

	env *cmdenv.Env
}

const askLongDesc string = `Ask the council one or more prompts without an interactive session.

Each prompt runs in a new conversation. Up to --parallel prompts are answered
at the same time; answers are printed in prompt order once all are done.

By default only the chairman's final answer is printed. Use --full to also
print the individual responses and peer rankings.

Examples:
  council ask "What is the CAP theorem?"
  council ask --parallel 2 "Explain Raft" "Explain Paxos" "Compare them"`

const askShortDesc string = "Ask the council one or more prompts"

func NewAskCmd() *cobra.Command {
	cmder := &askCommander{}

	cmd := &cobra.Command{
		Use:   "ask <prompt>...",
		Short: askShortDesc,
		Long:  askLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := cmdenv.Load(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = env.Close() }()

			cmder.env = env
			return cmder.run(cmd.Context(), args)
		},
	}

	cmdenv.AddClientFlags(cmd)
	cmd.Flags().UintVarP(&cmder.parallel, "parallel", "p", 3, "Number of prompts answered at the same time")
	cmd.Flags().BoolVar(&cmder.full, "full", false, "Print every stage, not only the final answer")

	return cmd
}

func (c *askCommander) run(ctx context.Context, prompts []string) error {
	cl, err := c.env.Client()
	if err != nil {
		return err
	}
	deviceID, err := c.env.DeviceID()
	if err != nil {
		return err
	}

	pub, err := c.env.Publisher()
	if err != nil {
		return err
	}
	defer func() { _ = pub.Close() }()
	src := c.env.EventSource(deviceID)

	var (
		mu      sync.Mutex
		results []worker.Result
	)

	pool, err := worker.NewPool(ctx, &worker.Config{
		Backend:    cl,
		DeviceID:   deviceID,
		NumWorkers: c.parallel,
		QueueSize:  uint(len(prompts)),
		OnResult: func(r worker.Result) {
			mu.Lock()
			defer mu.Unlock()
			results = append(results, r)
		},
		Observer: func(worker.Job) store.Observer {
			return eventstream.NewObserver(pub, src, c.env.Logger)
		},
		Logger: c.env.Logger,
	})
	if err != nil {
		return err
	}

	start := time.Now()
	for i, prompt := range prompts {
		pool.Enqueue(worker.Job{ID: i + 1, Prompt: prompt})
	}
	pool.Close()

	slices.SortFunc(results, func(a, b worker.Result) int { return a.Job.ID - b.Job.ID })

	out := c.env.Stdout
	failed := 0
	for _, r := range results {
		fmt.Fprintf(out, "\n  %s %s %s\n",
			cliui.Mark(r.Err),
			cliui.KeyStyle.Render(fmt.Sprintf("[%d]", r.Job.ID)),
			r.Job.Prompt,
		)
		if r.Conversation.ID != "" {
			fmt.Fprintf(out, "  %s %s\n", cliui.DimStyle.Render("conversation"), cliui.HashStyle.Render(r.Conversation.ID))
		}
		if r.Err != nil {
			failed++
			fmt.Fprintf(out, "  %s\n", r.Err)
		}

		last, ok := r.Conversation.Last()
		if !ok || last.Role != council.RoleAssistant {
			continue
		}
		if c.full {
			cliui.RenderMessage(out, last, c.env.RenderOptions()...)
			continue
		}
		answer := last
		answer.Stage1, answer.Stage2, answer.Metadata = nil, nil, nil
		cliui.RenderMessage(out, answer, c.env.RenderOptions()...)
	}

	fmt.Fprintf(out, "\n  %s\n\n", cliui.StepStyle.Render(fmt.Sprintf("%d prompts in %s", len(prompts), cliui.FormatDuration(time.Since(start)))))

	if failed > 0 {
		return fmt.Errorf("%d of %d prompts failed", failed, len(prompts))
	}
	return nil
}
