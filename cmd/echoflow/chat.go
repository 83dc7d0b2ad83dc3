package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/sweetpotato0/echoflow/agent"
	"github.com/sweetpotato0/echoflow/config"
	"github.com/sweetpotato0/echoflow/contrib/provider/anthropic"
	"github.com/sweetpotato0/echoflow/contrib/provider/openai"
	"github.com/sweetpotato0/echoflow/llm"
	"github.com/sweetpotato0/echoflow/message"
	"github.com/sweetpotato0/echoflow/middleware"
	mwlogger "github.com/sweetpotato0/echoflow/middleware/logger"
	"github.com/sweetpotato0/echoflow/pkg/logging"
	"github.com/sweetpotato0/echoflow/pkg/telemetry"
	"github.com/sweetpotato0/echoflow/pkg/version"
)

type chatOptions struct {
	configPath  string
	system      string
	historyPath string
	savePath    string
	docs        []string
	stream      bool
	tools       bool
	repair      bool
	trace       bool
}

func newChatCmd() *cobra.Command {
	var opts chatOptions
	cmd := &cobra.Command{
		Use:   "chat [prompt]",
		Short: "Send a prompt and print the reply",
		Long: `Send a prompt and print the reply. The prompt is read from standard input
when no argument is given.

Example:
  # Stream a reply with the built-in tools enabled
  echoflow chat --stream --tools "What time is it in Tokyo?"

  # Answer from local notes
  echoflow chat --doc notes.md --doc faq.md "How do I rotate the keys?"

  # Continue a saved conversation through Bedrock
  ECHOFLOW_PROVIDER=bedrock ECHOFLOW_AWS_REGION=us-east-1 \
    echoflow chat --history chat.json --save chat.json "And tomorrow?"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			tc := telemetry.Config{
				ServiceVersion: version.Get().GitVersion,
				Exporter:       cfg.Telemetry.Exporter,
				Endpoint:       cfg.Telemetry.Endpoint,
				Insecure:       cfg.Telemetry.Insecure,
				Writer:         cmd.ErrOrStderr(),
			}
			if opts.trace {
				tc.Exporter = telemetry.ExporterStdout
			}
			shutdown, err := telemetry.Init(ctx, tc)
			if err != nil {
				return err
			}
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logging.Logger().Warn("telemetry shutdown failed", "error", err)
				}
			}()

			return runChat(ctx, cfg, opts, input, newPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr()))
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.configPath, "config", "c", "", "path to a YAML, JSON or TOML config file")
	f.StringVarP(&opts.system, "system", "s", "", "system prompt (default: "+agent.DefaultSystemPrompt+")")
	f.StringVar(&opts.historyPath, "history", "", "JSON transcript to continue")
	f.StringVar(&opts.savePath, "save", "", "write the updated transcript to this file")
	f.StringArrayVarP(&opts.docs, "doc", "d", nil, "reference document to send with the system prompt (repeatable)")
	f.BoolVar(&opts.stream, "stream", false, "print the reply as it is generated")
	f.BoolVar(&opts.tools, "tools", false, "offer the built-in tools to the model")
	f.BoolVar(&opts.repair, "repair", false, "repair malformed tool arguments instead of dropping them")
	f.BoolVar(&opts.trace, "trace", false, "write trace spans to stderr (overrides telemetry.exporter)")
	return cmd
}

func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read prompt: %w", err)
	}
	input := strings.TrimSpace(string(data))
	if input == "" {
		return "", fmt.Errorf("no prompt given")
	}
	return input, nil
}

func runChat(ctx context.Context, cfg *config.Config, opts chatOptions, input string, p *printer) error {
	var clientOpts []llm.Option
	if opts.repair {
		clientOpts = append(clientOpts, llm.WithNormalizeOptions(llm.WithArgumentRepair()))
	}

	switch cfg.Provider {
	case config.ProviderOpenAI:
		client, err := openai.NewClient(openai.Config{
			APIKey:        cfg.APIKey,
			BaseURL:       cfg.BaseURL,
			ClientOptions: clientOpts,
		})
		if err != nil {
			return err
		}
		return chat(ctx, client, openai.Adapter{}, cfg.Params().WithModel(openai.DefaultModel), cfg, opts, input, p)
	default:
		client, err := anthropic.NewClient(ctx, anthropic.Config{
			Backend:         cfg.Provider,
			APIKey:          cfg.APIKey,
			BaseURL:         cfg.BaseURL,
			AWSRegion:       cfg.AWS.Region,
			AWSAccessKey:    cfg.AWS.AccessKey,
			AWSSecretKey:    cfg.AWS.SecretKey,
			AWSSessionToken: cfg.AWS.SessionToken,
			VertexRegion:    cfg.Vertex.Region,
			VertexProject:   cfg.Vertex.Project,
			Cache:           cfg.Cache,
			ClientOptions:   clientOpts,
		})
		if err != nil {
			return err
		}
		return chat(ctx, client, anthropic.Adapter{}, cfg.Params().WithModel(anthropic.DefaultModel), cfg, opts, input, p)
	}
}

func chat[W any](
	ctx context.Context,
	client *llm.Client[W],
	adapter message.Adapter[W],
	params llm.Params,
	cfg *config.Config,
	opts chatOptions,
	input string,
	p *printer,
) error {
	agentOpts := []agent.Option{
		agent.WithName("echoflow"),
		agent.WithParams(params),
		agent.WithMaxIterations(int(cfg.MaxIterations)),
	}
	if opts.system != "" {
		agentOpts = append(agentOpts, agent.WithSystemPrompt(opts.system))
	}
	if opts.tools {
		agentOpts = append(agentOpts, agent.WithTools(builtinTools()...))
	}
	if len(opts.docs) > 0 {
		docs, err := loadDocuments(cfg.Chunk, opts.docs)
		if err != nil {
			return err
		}
		agentOpts = append(agentOpts, agent.WithDocuments(docs...))
	}
	agentOpts = append(agentOpts, agent.WithMiddleware(runMiddleware(cfg)...))
	a, err := agent.New(client, adapter, agentOpts...)
	if err != nil {
		return err
	}

	if opts.historyPath != "" {
		data, err := os.ReadFile(opts.historyPath)
		if err != nil {
			return fmt.Errorf("read history: %w", err)
		}
		history, err := message.DecodeTranscript(data)
		if err != nil {
			return fmt.Errorf("decode history %s: %w", opts.historyPath, err)
		}
		for _, msg := range history {
			if err := a.AddMessage(msg); err != nil {
				return fmt.Errorf("history: %w", err)
			}
		}
	}

	if opts.stream {
		for ev, err := range a.RunStream(ctx, input) {
			if err != nil {
				return err
			}
			p.event(ev)
		}
	} else {
		out, err := a.Run(ctx, input)
		if err != nil {
			return err
		}
		p.text(out)
	}
	p.usage(a.Usage())

	if opts.savePath == "" {
		return nil
	}
	data, err := json.MarshalIndent(a.Messages(), "", "  ")
	if err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}
	return os.WriteFile(opts.savePath, data, 0o600)
}

func runMiddleware(cfg *config.Config) []middleware.Middleware {
	mws := []middleware.Middleware{mwlogger.New(nil)}
	if cfg.MaxInput > 0 {
		mws = append(mws, middleware.MaxInputLength(int(cfg.MaxInput)))
	}
	if cfg.Timeout > 0 {
		mws = append(mws, middleware.NewTimeout(cfg.Timeout))
	}
	return mws
}
