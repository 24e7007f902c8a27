package client

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"aktis-pm-agent/internal/interfaces"
	"aktis-pm-agent/internal/models"

	"github.com/fatih/color"
	"github.com/ternarybob/arbor"
	"golang.org/x/term"
)

const defaultWidth = 100

var (
	userColor  = color.New(color.FgCyan, color.Bold)
	agentColor = color.New(color.FgGreen, color.Bold)
	errorColor = color.New(color.FgRed)
	dimColor   = color.New(color.Faint)
)

// REPL is the terminal chat client. Each line is sent to the dispatcher and
// both turns are appended to the session's history.
type REPL struct {
	backend interfaces.ChatBackend
	history interfaces.ChatHistory
	session string
	in      io.Reader
	out     io.Writer
	width   int
	logger  arbor.ILogger
}

func NewREPL(backend interfaces.ChatBackend, history interfaces.ChatHistory, session string, in io.Reader, out io.Writer, logger arbor.ILogger) *REPL {
	return &REPL{
		backend: backend,
		history: history,
		session: session,
		in:      in,
		out:     out,
		width:   terminalWidth(out),
		logger:  logger,
	}
}

// Run reads lines until EOF, /quit, or ctx is cancelled. Input is read on
// its own goroutine so cancellation ends the loop even while waiting for a line.
func (r *REPL) Run(ctx context.Context) error {
	fmt.Fprintln(r.out, dimColor.Sprint("Ask about open bugs, tasks, or create an issue. /history shows the transcript, /quit exits."))

	lines := make(chan string)
	readErr := make(chan error, 1)
	readCtx, stopReading := context.WithCancel(ctx)
	defer stopReading()
	go readLines(readCtx, r.in, lines, readErr)

	for {
		fmt.Fprint(r.out, userColor.Sprint("You: "))

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(r.out)
			return nil
		case err := <-readErr:
			fmt.Fprintln(r.out)
			return err
		case line = <-lines:
		}

		line = strings.TrimSpace(line)
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/history":
			if err := r.printHistory(); err != nil {
				return err
			}
			continue
		}

		if err := r.exchange(ctx, line); err != nil {
			if ctx.Err() != nil {
				fmt.Fprintln(r.out)
				return nil
			}
			return err
		}
	}
}

// readLines feeds lines to the loop and reports the scanner result at EOF
func readLines(ctx context.Context, in io.Reader, lines chan<- string, readErr chan<- error) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		select {
		case lines <- scanner.Text():
		case <-ctx.Done():
			return
		}
	}
	readErr <- scanner.Err()
}

// exchange sends one message. Dispatcher failures are shown, not returned;
// only history failures and cancellation stop the loop.
func (r *REPL) exchange(ctx context.Context, message string) error {
	if _, err := r.history.Append(r.session, models.SenderUser, message); err != nil {
		return err
	}

	answer, err := r.backend.Send(ctx, message)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		r.logger.Debug().Err(err).Msg("Dispatcher call failed")
		answer = "Error: " + err.Error()
		fmt.Fprintln(r.out, agentColor.Sprint("Bot: ")+errorColor.Sprint(wrap(answer, r.width)))
	} else {
		fmt.Fprintln(r.out, agentColor.Sprint("Bot: ")+RenderAnswer(answer, r.width))
	}

	_, err = r.history.Append(r.session, models.SenderAgent, answer)
	return err
}

func (r *REPL) printHistory() error {
	turns, err := r.history.Load(r.session)
	if err != nil {
		return err
	}
	if len(turns) == 0 {
		fmt.Fprintln(r.out, dimColor.Sprint("No messages yet."))
		return nil
	}

	for _, turn := range turns {
		stamp := dimColor.Sprint(turn.Time.Format("15:04:05"))
		if turn.Sender == models.SenderUser {
			fmt.Fprintf(r.out, "%s %s%s\n", stamp, userColor.Sprint("You: "), turn.Message)
		} else {
			fmt.Fprintf(r.out, "%s %s%s\n", stamp, agentColor.Sprint("Bot: "), RenderAnswer(turn.Message, r.width))
		}
	}
	return nil
}

// PrintSessions lists the stored sessions in id order with their turn counts
func PrintSessions(history interfaces.ChatHistory, out io.Writer) error {
	sessions, err := history.Sessions()
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Fprintln(out, dimColor.Sprint("No stored sessions."))
		return nil
	}

	for _, session := range sessions {
		turns, err := history.Load(session)
		if err != nil {
			return err
		}
		last := ""
		if n := len(turns); n > 0 {
			last = turns[n-1].Time.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(out, "%s  %s  %s\n", session, dimColor.Sprintf("%d turns", len(turns)), dimColor.Sprint(last))
	}
	return nil
}

func terminalWidth(out io.Writer) int {
	f, ok := out.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return defaultWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return defaultWidth
	}
	return width
}
