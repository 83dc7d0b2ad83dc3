package main

import (
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"
	"github.com/sweetpotato0/echoflow/pkg/logging"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "echoflow",
		Short: "Talk to LLM providers through one normalized event stream",
		Long: `echoflow sends a conversation to Anthropic (direct, Bedrock or Vertex AI)
or OpenAI and prints the reply, executing built-in tools on request.

Configuration is read from an optional YAML file and ECHOFLOW_* environment
variables. A .env file in the working directory is loaded first.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			setupLogging(cmd)
		},
	}
	root.AddCommand(newChatCmd(), newVersionCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// setupLogging keeps stdout for replies. Logs go to stderr at warn level
// unless ECHOFLOW_LOG_LEVEL asks for more.
func setupLogging(cmd *cobra.Command) {
	opts := logging.OptionsFromEnv()
	opts.Output = cmd.ErrOrStderr()
	if os.Getenv("ECHOFLOW_LOG_LEVEL") == "" {
		opts.Level = slog.LevelWarn
	}
	logging.SetLogger(logging.New(opts))
}
