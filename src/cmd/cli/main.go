package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"omnikey/src/command"
	"omnikey/src/config"
	"omnikey/src/gateway"
	"omnikey/src/logutil"
)

const (
	maxFileSizeMB = 10
	maxFileSize   = maxFileSizeMB * 1024 * 1024
)

type cliOptions struct {
	filePath   string
	command    string
	jsonOutput bool
	verbose    bool
	health     bool
	serviceURL string
	envPath    string
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	return runWithArgs(normalizeLegacyArgs(os.Args), os.Stdin, os.Stdout)
}

func runWithArgs(args []string, stdin io.Reader, stdout io.Writer) error {
	if len(args) == 0 {
		args = []string{"omnikey-cli"}
	}

	opts := &cliOptions{}
	cmd := newRootCmd(opts, stdin, stdout)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *cliOptions, stdin io.Reader, stdout io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "omnikey-cli",
		Short:         "Rewrite text through the OmniKey rewrite service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithOptions(*opts, stdin, stdout)
		},
	}

	cmd.Flags().StringVar(&opts.filePath, "file", "-", "Path to a text file (use '-' for stdin)")
	cmd.Flags().StringVarP(&opts.command, "command", "c", string(command.Enhance), "enhance, grammar or custom-task")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output results as JSON")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output to stderr")
	cmd.Flags().BoolVar(&opts.health, "health", false, "Only check the service health endpoint")
	cmd.Flags().StringVar(&opts.serviceURL, "service-url", "", "Rewrite service base URL (overrides SERVICE_URL)")
	cmd.Flags().StringVar(&opts.envPath, "env", "", "Path to a .env file")

	return cmd
}

func runWithOptions(opts cliOptions, stdin io.Reader, stdout io.Writer) error {
	// Logging before anything else so stdout carries only the result.
	logutil.SetupStderr(opts.verbose)

	cfg, err := config.LoadWithOptions(config.LoadOptions{ServiceURLOverride: opts.serviceURL, EnvPathOverride: opts.envPath})
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if opts.verbose {
		fmt.Fprintf(os.Stderr, "[verbose] Service: %s, timeout %v\n", cfg.ServiceURL, cfg.RequestTimeout)
	}

	client := gateway.New(cfg.ServiceURL, cfg.RequestTimeout)
	ctx := context.Background()

	if opts.health {
		if err := client.Health(ctx); err != nil {
			return fmt.Errorf("service at %s is unhealthy: %w", cfg.ServiceURL, err)
		}
		fmt.Fprintln(stdout, "ok")
		return nil
	}

	cmd, err := command.Parse(opts.command)
	if err != nil {
		return err
	}

	text, err := readInput(opts.filePath, stdin, opts.verbose)
	if err != nil {
		return err
	}

	start := time.Now()
	result, err := client.Submit(ctx, gateway.Request{Command: cmd, Text: text})
	elapsed := time.Since(start)
	if err != nil {
		if opts.verbose {
			fmt.Fprintf(os.Stderr, "[verbose] Rewrite failed after %v: %v\n", elapsed, err)
		}
		return fmt.Errorf("rewrite failed: %w", err)
	}
	if opts.verbose {
		fmt.Fprintf(os.Stderr, "[verbose] Rewrite completed in %v, %d characters\n", elapsed, len([]rune(result)))
	}

	return outputResult(stdout, result, cmd, opts.filePath, elapsed, opts.jsonOutput)
}

func readInput(filePath string, stdin io.Reader, verbose bool) (string, error) {
	var data []byte
	var err error

	if filePath == "-" || filePath == "" {
		if verbose {
			fmt.Fprintf(os.Stderr, "[verbose] Reading text from stdin\n")
		}
		data, err = io.ReadAll(io.LimitReader(stdin, maxFileSize+1))
		if err != nil {
			return "", fmt.Errorf("failed to read from stdin: %w", err)
		}
	} else {
		if verbose {
			fmt.Fprintf(os.Stderr, "[verbose] Reading text from file: %s\n", filePath)
		}
		data, err = os.ReadFile(filePath)
		if err != nil {
			return "", fmt.Errorf("failed to read file %s: %w", filePath, err)
		}
	}

	if len(data) > maxFileSize {
		return "", fmt.Errorf("input exceeds maximum size of %d MB", maxFileSizeMB)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("input is empty")
	}
	return text, nil
}

func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}

	normalized := make([]string, len(args))
	copy(normalized, args)

	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		for _, name := range []string{"file", "command", "json", "verbose", "health", "service-url", "env"} {
			switch {
			case arg == "-"+name:
				normalized[i] = "--" + name
			case strings.HasPrefix(arg, "-"+name+"="):
				normalized[i] = "-" + arg
			}
		}
	}

	return normalized
}

type RewriteResult struct {
	Text      string  `json:"text"`
	Command   string  `json:"command"`
	Source    string  `json:"source"`
	Timestamp string  `json:"timestamp"`
	Duration  float64 `json:"duration_seconds"`
	CharCount int     `json:"character_count"`
}

func outputResult(w io.Writer, text string, cmd command.Command, sourcePath string, elapsed time.Duration, jsonOutput bool) error {
	if !jsonOutput {
		_, err := fmt.Fprint(w, text)
		return err
	}

	result := RewriteResult{
		Text:      text,
		Command:   string(cmd),
		Source:    sourcePath,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Duration:  elapsed.Seconds(),
		CharCount: len([]rune(text)),
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		return fmt.Errorf("failed to encode JSON output: %w", err)
	}
	return nil
}
