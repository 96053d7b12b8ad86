package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/devhyun/llmstack"
)

type command struct {
	global *GlobalFlags
}

// orchestrator loads config and wires an Orchestrator for one invocation.
func (c *command) orchestrator() (*llmstack.Orchestrator, error) {
	cfg, err := llmstack.LoadConfig(c.global.ConfigPath)
	if err != nil {
		return nil, err
	}
	return llmstack.New(cfg)
}

// signalContext cancels on SIGINT/SIGTERM so waits abort cleanly.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func buildRoot() *cobra.Command {
	global := &GlobalFlags{}
	c := command{global: global}

	root := createRootCommand(global)
	root.AddCommand(
		createStartCommand(c),
		createStopCommand(c),
		createStatusCommand(c),
		createSetupCommand(c),
	)
	return root
}

func createRootCommand(flags *GlobalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "llmstack",
		Short: "Local LLM serving stack orchestrator",
		Long: `llmstack starts, stops and provisions a local LLM serving stack:
a GPU-resident inference service (OpenAI-compatible API) plus an optional
containerized chat UI.

Examples:
  llmstack setup                          # verify tooling, download default model
  llmstack start                          # start inference service and chat UI
  llmstack start --no-ui                  # inference service only
  llmstack stop --force                   # stop, escalating to SIGKILL`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to TOML config file (optional)")
	return root
}

func createStartCommand(c command) *cobra.Command {
	flags := &StartFlags{}
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the serving stack",
		Long: `Start the inference service, wait for it to become healthy, then
start the chat UI container. Services that fail to become ready abort the
sequence; already-started services are left running for diagnosis.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			orc, err := c.orchestrator()
			if err != nil {
				return err
			}
			defer func() { _ = orc.Close() }()
			ctx, cancel := signalContext()
			defer cancel()
			_, err = orc.Start(ctx, !flags.NoUI)
			return err
		},
	}
	cmd.Flags().BoolVar(&flags.NoUI, "no-ui", false, "skip the chat UI container")
	return cmd
}

func createStopCommand(c command) *cobra.Command {
	flags := &StopFlags{}
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the serving stack",
		Long: `Stop the chat UI container, then the inference service. Without
--force a process that survives the grace period is left running and its
pid record is retained.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			orc, err := c.orchestrator()
			if err != nil {
				return err
			}
			defer func() { _ = orc.Close() }()
			ctx, cancel := signalContext()
			defer cancel()
			_, err = orc.Stop(ctx, flags.Force)
			return err
		},
	}
	cmd.Flags().BoolVarP(&flags.Force, "force", "f", false, "escalate to SIGKILL after the grace period")
	return cmd
}

func createStatusCommand(c command) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report liveness of both services",
		RunE: func(cmd *cobra.Command, args []string) error {
			orc, err := c.orchestrator()
			if err != nil {
				return err
			}
			defer func() { _ = orc.Close() }()
			ctx, cancel := signalContext()
			defer cancel()
			st := orc.Status(ctx)
			b, err := json.MarshalIndent(st, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(b))
			return nil
		},
	}
}

func createSetupCommand(c command) *cobra.Command {
	flags := &SetupFlags{}
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Prepare the stack: tooling checks, directories, default model",
		RunE: func(cmd *cobra.Command, args []string) error {
			orc, err := c.orchestrator()
			if err != nil {
				return err
			}
			defer func() { _ = orc.Close() }()
			ctx, cancel := signalContext()
			defer cancel()
			return orc.Setup(ctx, llmstack.SetupOptions{SkipModel: flags.SkipModel})
		},
	}
	cmd.Flags().BoolVar(&flags.SkipModel, "skip-model", false, "skip the default model download")
	cmd.AddCommand(createDownloadModelCommand(c))
	return cmd
}

func createDownloadModelCommand(c command) *cobra.Command {
	return &cobra.Command{
		Use:   "download-model <repo> <revision>",
		Short: "Download one model revision (no-op when already present)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			orc, err := c.orchestrator()
			if err != nil {
				return err
			}
			defer func() { _ = orc.Close() }()
			ctx, cancel := signalContext()
			defer cancel()
			art, err := orc.EnsureModel(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Println(art.Dir)
			return nil
		},
	}
}
