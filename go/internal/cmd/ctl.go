package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/timez-app/timez/go/internal/models"
	"github.com/timez-app/timez/go/internal/session/gateway"
)

var (
	ctlServer  string
	ctlSeconds int
	ctlSetup   sessionFlags
)

var ctlCmd = &cobra.Command{
	Use:   "ctl [state|action]",
	Short: "Inspect or drive a session served by `timez serve`",
	Long: "Inspect or drive a session served by `timez serve` over Connect.\n\n" +
		"Actions: configure, start, stop, done, skip, extend, decline, reset.\n" +
		"Without an argument ctl prints the current state.",
	Args: cobra.MaximumNArgs(1),
	RunE: runCtl,
}

func init() {
	rootCmd.AddCommand(ctlCmd)

	ctlCmd.Flags().StringVar(&ctlServer, "server", "", "Gateway base URL (default http://localhost:<gateway.port>)")
	ctlCmd.Flags().IntVar(&ctlSeconds, "add", 0, "Seconds to add for extend (default first extension preset)")
	addSessionFlags(ctlCmd, &ctlSetup)
}

func runCtl(cmd *cobra.Command, args []string) error {
	action := "state"
	if len(args) == 1 {
		action = args[0]
	}

	server := ctlServer
	if server == "" {
		server = "http://localhost:" + cfg.Gateway.Port
	}
	client := gateway.NewSessionServiceClient(&http.Client{Timeout: 10 * time.Second}, server)

	ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
	defer cancel()

	if action == "state" {
		state, err := client.GetState(ctx)
		if err != nil {
			return fmt.Errorf("get state: %w", err)
		}
		printCtlState(cmd.OutOrStdout(), state)
		return nil
	}

	command, err := ctlCommand(action, cmd.Flags().Changed)
	if err != nil {
		return err
	}
	state, err := client.Apply(ctx, command)
	if err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}
	printCtlState(cmd.OutOrStdout(), state)
	return nil
}

// ctlCommand builds the gateway command for action from the ctl flags
func ctlCommand(action string, changed func(string) bool) (gateway.Command, error) {
	if !gateway.IsKnownAction(action) {
		return gateway.Command{}, fmt.Errorf("unknown action %q", action)
	}
	command := gateway.Command{Action: action}

	switch action {
	case gateway.ActionConfigure:
		questions, secs := ctlSetup.resolve(cfg, changed)
		if err := validateSetup(questions, secs); err != nil {
			return gateway.Command{}, err
		}
		command.TotalQuestions = questions
		command.SecondsPerQuestion = secs
	case gateway.ActionExtend:
		command.Seconds = ctlSeconds
		if !changed("add") {
			if len(cfg.Session.ExtensionPresets) == 0 {
				return gateway.Command{}, fmt.Errorf("extend needs --add when no extension presets are configured")
			}
			command.Seconds = cfg.Session.ExtensionPresets[0]
		}
	}
	return command, nil
}

func printCtlState(out io.Writer, state models.SessionState) {
	fmt.Fprintln(out, renderStatus(state, cfg.Session.ExtensionPresets))
	if state.SessionCompleted {
		fmt.Fprint(out, renderSummary(state))
	}
}
