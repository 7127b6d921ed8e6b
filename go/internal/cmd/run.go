package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/timez-app/timez/go/internal/models"
	"github.com/timez-app/timez/go/internal/session"
	"github.com/timez-app/timez/go/internal/session/events"
	"golang.org/x/term"
)

const keyCtrlC = 3

var runFlags sessionFlags

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a timed session in the terminal",
	Args:  cobra.NoArgs,
	RunE:  runSession,
}

func init() {
	rootCmd.AddCommand(runCmd)
	addSessionFlags(runCmd, &runFlags)
}

// keySession is what a key press can act on
type keySession interface {
	Start()
	Stop()
	MarkDone() error
	MarkSkipped() error
	GrantExtension(seconds int) error
	DeclineExtension()
	Snapshot() models.SessionState
}

func runSession(cmd *cobra.Command, args []string) error {
	questions, secs := runFlags.resolve(cfg, cmd.Flags().Changed)
	if err := validateSetup(questions, secs); err != nil {
		return err
	}

	timer := session.NewTimer()
	if err := timer.Configure(questions, secs); err != nil {
		return err
	}
	updates, unsubscribe := timer.Subscribe(session.DefaultSubscriberBuffer)
	defer unsubscribe()

	ui := &terminalUI{out: cmd.OutOrStdout(), newline: "\n", presets: cfg.Session.ExtensionPresets}

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		oldState, err := term.MakeRaw(fd)
		if err != nil {
			return fmt.Errorf("enable raw mode: %w", err)
		}
		defer term.Restore(fd, oldState)
		ui.newline = "\r\n"
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	keys := readKeys(os.Stdin)

	ui.println(renderPreview(questions, secs))
	ui.println(valueMuted.Render(keyHelp))
	timer.Start()
	ui.redraw(timer.Snapshot())

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			ui.finish(timer.Snapshot())
			return nil

		case key, ok := <-keys:
			if !ok {
				keys = nil
				continue
			}
			quit, err := handleKey(timer, key, ui.presets)
			if err != nil {
				log.Debug().Err(err).Str("key", string(key)).Msg("key rejected")
			}
			if quit {
				timer.Stop()
				ui.finish(timer.Snapshot())
				return nil
			}

		case e := <-updates:
			ui.redraw(e.State)
			if e.Type == events.EventTypeSessionCompleted {
				ui.finish(e.State)
				return nil
			}
		}
	}
}

// handleKey maps a key press to a session operation. Unknown keys are ignored.
func handleKey(s keySession, key byte, presets []int) (quit bool, err error) {
	switch key {
	case 'd':
		return false, s.MarkDone()
	case 's':
		return false, s.MarkSkipped()
	case 'e', 'E':
		i := 0
		if key == 'E' {
			i = 1
		}
		if i >= len(presets) {
			return false, nil
		}
		return false, s.GrantExtension(presets[i])
	case 'n':
		s.DeclineExtension()
	case 'p':
		if s.Snapshot().IsRunning {
			s.Stop()
		} else {
			s.Start()
		}
	case 'q', keyCtrlC:
		return true, nil
	}
	return false, nil
}

func readKeys(r io.Reader) <-chan byte {
	keys := make(chan byte)
	go func() {
		defer close(keys)
		buf := make([]byte, 1)
		for {
			n, err := r.Read(buf)
			if err != nil {
				return
			}
			if n == 1 {
				keys <- buf[0]
			}
		}
	}()
	return keys
}

type terminalUI struct {
	out     io.Writer
	newline string
	presets []int
}

func (u *terminalUI) println(s string) {
	s = strings.TrimRight(s, "\n")
	fmt.Fprint(u.out, strings.ReplaceAll(s, "\n", u.newline)+u.newline)
}

func (u *terminalUI) redraw(state models.SessionState) {
	fmt.Fprint(u.out, "\r\033[K"+renderStatus(state, u.presets))
}

func (u *terminalUI) finish(state models.SessionState) {
	fmt.Fprint(u.out, u.newline+u.newline)
	u.println(renderSummary(state))
}
