package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/becayis/chatcore/internal/chat"
	"github.com/becayis/chatcore/internal/model"
	"github.com/becayis/chatcore/internal/transport"
)

func newOpenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "open <conversation-id>",
		Short: "Open a conversation and chat live",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(true)
			if err != nil {
				return err
			}
			defer e.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return e.open(ctx, args[0], cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func (e *env) open(ctx context.Context, conversationID string, in io.Reader, out io.Writer) error {
	client, err := e.apiClient()
	if err != nil {
		return err
	}
	endpoint, err := transport.Endpoint(e.cfg.APIBaseURL, e.session.Token)
	if err != nil {
		return err
	}

	view, err := chat.NewView(chat.ViewConfig{
		ConversationID: conversationID,
		SelfID:         e.session.UserID,
		API:            client,
		Endpoint:       endpoint,
		Policy:         newPolicy(e.cfg),
		DialTimeout:    e.cfg.DialTimeout,
		TypingWindow:   e.cfg.TypingIdle,
		Logger:         e.log,
	})
	if err != nil {
		return err
	}
	defer view.Close()

	p := newPrinter(out, e.session.UserID)
	view.Tracker().OnChange(p.typing)
	view.OnConnectionChange(p.state)

	if err := view.Mount(ctx); err != nil {
		return fmt.Errorf("failed to open conversation: %w", err)
	}
	p.header(view.Participants())
	view.Store().OnChange(func() { p.messages(view.Messages()) })
	p.messages(view.Messages())

	go func() {
		for n := range view.Notices() {
			p.notice(n)
		}
	}()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			view.SetDraft(line)
			// failures surface as notices and keep the draft
			_, _ = view.Submit(ctx)
		}
	}
}

// printer renders conversation events as lines of text.
type printer struct {
	selfID string

	mu      sync.Mutex
	out     io.Writer
	printed map[string]struct{}
	names   map[string]string
}

func newPrinter(out io.Writer, selfID string) *printer {
	return &printer{
		selfID:  selfID,
		out:     out,
		printed: make(map[string]struct{}),
		names:   make(map[string]string),
	}
}

func (p *printer) header(participants []model.Participant) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, part := range participants {
		p.names[part.UserID] = part.DisplayName
		if part.UserID == p.selfID {
			continue
		}
		fmt.Fprintf(p.out, "== %s", part.DisplayName)
		if part.Institution != "" {
			fmt.Fprintf(p.out, " (%s)", part.Institution)
		}
		fmt.Fprintln(p.out)
	}
}

// messages prints every message not printed before, in order.
func (p *printer) messages(msgs []model.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, m := range msgs {
		if _, ok := p.printed[m.ID]; ok {
			continue
		}
		p.printed[m.ID] = struct{}{}

		who := p.names[m.SenderID]
		if m.SenderID == p.selfID {
			who = "Siz"
		} else if who == "" {
			who = m.SenderID
		}
		fmt.Fprintf(p.out, "[%s] %s: %s\n", m.CreatedAt.Local().Format("15:04"), who, m.Content)
	}
}

func (p *printer) typing(typing bool) {
	if !typing {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, "... yazıyor")
}

func (p *printer) state(s transport.State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch s {
	case transport.StateConnected:
		fmt.Fprintln(p.out, "-- bağlandı")
	case transport.StateDisconnected:
		fmt.Fprintln(p.out, "-- bağlantı koptu, yeniden deneniyor")
	}
}

func (p *printer) notice(n chat.Notice) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "!! %s\n", n.Text)
}
