// Package chatcmder provides the chat command: an interactive session with
// the council that renders every stage of an answer as it streams in.
package chatcmder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/council/cmd/council/cmdenv"
	"github.com/papercomputeco/council/pkg/chat"
	"github.com/papercomputeco/council/pkg/cliui"
	"github.com/papercomputeco/council/pkg/client"
	"github.com/papercomputeco/council/pkg/council"
	"github.com/papercomputeco/council/pkg/eventstream"
	"github.com/papercomputeco/council/pkg/sse"
	"github.com/papercomputeco/council/pkg/store"
)

var userPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")

type chatCommander struct {
	conversation string
	resume       bool
	record       string

	env      *cmdenv.Env
	client   *client.Client
	deviceID string
	in       io.Reader
}

const chatLongDesc string = `Start an interactive chat session with the LLM council.

Every prompt is answered in three stages: each council model answers on its
own, the models rank each other's anonymized answers, and a chairman model
synthesizes the final answer. Stages are printed as they arrive.

Without --conversation or --resume a new conversation is created. The
conversation in use is remembered so "council chat --resume" continues it.

Press Ctrl+C to abort the answer in flight. Type /exit or press Ctrl+D to quit.

Examples:
  council chat
  council chat --resume
  council chat --conversation 6f1c2e9a-0b7d-4c1e-9d55-3f2a1b0c9e8d
  council chat --record stream.log --api-target http://localhost:8001`

const chatShortDesc string = "Interactive chat with the LLM council"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(_ *cobra.Command, _ []string) error {
			if cmder.resume && cmder.conversation != "" {
				return errors.New("--resume and --conversation are mutually exclusive")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := cmdenv.Load(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = env.Close() }()

			cmder.env = env
			cmder.in = cmd.InOrStdin()
			return cmder.run(cmd.Context())
		},
	}

	cmdenv.AddClientFlags(cmd)
	cmd.Flags().StringVarP(&cmder.conversation, "conversation", "c", "", "Conversation ID to continue")
	cmd.Flags().BoolVarP(&cmder.resume, "resume", "r", false, "Continue the last conversation")
	cmd.Flags().StringVar(&cmder.record, "record", "", "Append the raw event stream of every answer to this file")

	return cmd
}

func (c *chatCommander) run(ctx context.Context) error {
	var err error
	c.client, err = c.env.Client()
	if err != nil {
		return err
	}
	c.deviceID, err = c.env.DeviceID()
	if err != nil {
		return err
	}

	out := c.env.Stdout

	convID, existing, err := c.resolveConversation(ctx)
	if err != nil {
		return err
	}

	st := store.New(council.Conversation{ID: convID}, store.WithLogger(c.env.Logger))
	defer st.Close()

	sessionOpts := []chat.Option{chat.WithLogger(c.env.Logger)}
	if c.record != "" {
		f, err := os.OpenFile(c.record, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return fmt.Errorf("opening record file: %w", err)
		}
		defer func() { _ = f.Close() }()
		sessionOpts = append(sessionOpts, chat.WithStreamOptions(sse.WithTee(f)))
	}
	session := chat.NewSession(c.client, convID, st, sessionOpts...)

	fmt.Fprintln(out)
	if existing {
		err := cliui.Step(c.env.Stderr, "Loading conversation", func() error {
			return session.Load(ctx)
		})
		if err != nil {
			return err
		}

		conv := st.Snapshot()
		cliui.RenderConversation(out, conv, c.env.RenderOptions()...)
		fmt.Fprintf(out, "\n  %s Resuming %s %s\n",
			cliui.SuccessMark,
			cliui.HashStyle.Render(convID),
			cliui.DimStyle.Render(fmt.Sprintf("(%d messages)", len(conv.Messages))),
		)
	} else {
		fmt.Fprintf(out, "  %s New conversation %s\n", cliui.DimStyle.Render("●"), cliui.HashStyle.Render(convID))
	}
	c.env.RememberConversation(convID)

	st.Subscribe(cliui.NewStageRenderer(out, c.env.RenderOptions()...))

	pub, err := c.env.Publisher()
	if err != nil {
		return err
	}
	defer func() { _ = pub.Close() }()
	st.Subscribe(eventstream.NewObserver(pub, c.env.EventSource(c.deviceID), c.env.Logger))

	fmt.Fprintf(out, "  %s %s\n\n",
		cliui.KeyStyle.Render("Backend:"),
		cliui.NameStyle.Render(c.client.BaseURL()),
	)
	fmt.Fprintf(out, "  %s\n\n", cliui.DimStyle.Render("Type your message and press Enter. /exit or Ctrl+D to quit."))

	scanner := bufio.NewScanner(c.in)
	for {
		fmt.Fprint(out, userPrompt)
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/exit" {
			break
		}

		if err := c.ask(ctx, session, input); err != nil {
			fmt.Fprintf(c.env.Stderr, "  %s %v\n", cliui.FailMark, err)
		}
		fmt.Fprintln(out)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Fprintln(out)
	return nil
}

// ask sends one prompt. Ctrl+C aborts the answer without ending the session.
func (c *chatCommander) ask(ctx context.Context, session *chat.Session, input string) error {
	askCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	err := session.Send(askCtx, input)
	if errors.Is(err, context.Canceled) && ctx.Err() == nil {
		return errors.New("answer aborted")
	}
	return err
}

// resolveConversation picks the conversation to chat in and reports whether
// it already existed.
func (c *chatCommander) resolveConversation(ctx context.Context) (string, bool, error) {
	if c.conversation != "" {
		return c.conversation, true, nil
	}

	if c.resume {
		id, err := c.env.LastConversation()
		if err != nil {
			return "", false, fmt.Errorf("loading state: %w", err)
		}
		if id == "" {
			return "", false, errors.New("no conversation to resume: start one with \"council chat\"")
		}
		return id, true, nil
	}

	var conv council.Conversation
	err := cliui.Step(c.env.Stderr, "Creating conversation", func() error {
		var err error
		conv, err = c.client.CreateConversation(ctx, c.deviceID)
		return err
	})
	if err != nil {
		return "", false, err
	}
	return conv.ID, false, nil
}
