package commands

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/compozy/storepulse/engine/llm"
	"github.com/spf13/cobra"
)

// askCmd represents the ask command
var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask the analytics assistant a question",
	Long: `Send one question to the OpenAI-compatible model configured under
assistant (Ollama by default). The model can call every report tool, and
the calls it makes are listed on stderr while the answer streams to stdout.`,
	Example: `  # Ask about last month
  storepulse ask "How did sales in January compare to December?"

  # Use another model
  STOREPULSE_ASSISTANT_MODEL=qwen2.5 storepulse ask "Which region sells most?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

var initAskOnce sync.Once

// InitAskCommand registers the ask command
func InitAskCommand() {
	initAskOnce.Do(func() {
		rootCmd.AddCommand(askCmd)
	})
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := newServices(ctx, appConfig)
	if err != nil {
		return err
	}
	defer svc.Close()

	registry, err := svc.catalog()
	if err != nil {
		return err
	}

	question := strings.Join(args, " ")
	return svc.assistant(registry).Ask(ctx, question, terminalSink(cmd.OutOrStdout(), cmd.ErrOrStderr()))
}

// terminalSink streams answer tokens to out and tool activity to status
func terminalSink(out, status io.Writer) llm.Sink {
	renderer := lipgloss.NewRenderer(status)
	toolStyle := renderer.NewStyle().Foreground(lipgloss.Color("69"))
	faintStyle := renderer.NewStyle().Faint(true)

	return func(e llm.Event) error {
		switch e.Type {
		case llm.EventToken:
			_, err := io.WriteString(out, e.Content)
			return err
		case llm.EventToolCall:
			fmt.Fprintln(status, toolStyle.Render("→ "+e.Tool)+" "+faintStyle.Render(string(e.Arguments)))
		case llm.EventToolResult:
			fmt.Fprintln(status, faintStyle.Render("✓ "+e.Tool))
		case llm.EventDone:
			_, err := fmt.Fprintln(out)
			return err
		}
		return nil
	}
}
