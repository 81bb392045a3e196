package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"

	"github.com/strongdm/hoptoad-notifier/pkg/hoptoad"
	"github.com/strongdm/hoptoad-notifier/pkg/hoptoad/sinks/remote"
	"github.com/strongdm/hoptoad-notifier/pkg/logger"
)

const (
	envPrefix = "HOPTOAD"

	testErrorClass   = "HoptoadTestingError"
	testErrorMessage = `Testing hoptoad via "hoptoad test". If you can see this, it works.`
)

// NewCmdTest returns the command that sends a test notice.
func NewCmdTest() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Send a test notice to the collector",
		Long: `Send a test notice to the collector and report the outcome.

Every flag can also be set from the environment with the HOPTOAD_ prefix
(HOPTOAD_API_KEY, HOPTOAD_HOST, ...) or from a .env file.

Examples:
  # Send using an API key from the environment
  HOPTOAD_API_KEY=abc123 hoptoad test

  # Print the XML document instead of sending it
  hoptoad test --api-key abc123 --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadEnvFile(v.GetString("env-file")); err != nil {
				return err
			}
			return runTest(cmd.Context(), v, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.String("api-key", "", "Project API key")
	flags.String("host", hoptoad.DefaultHost, "Collector host")
	flags.Int("port", 0, "Collector port (default 80, or 443 with --secure)")
	flags.String("path", hoptoad.DefaultPath, "Collector path")
	flags.Bool("secure", false, "Use HTTPS")
	flags.String("proxy-host", "", "HTTP proxy host")
	flags.String("proxy-port", "", "HTTP proxy port")
	flags.String("proxy-user", "", "HTTP proxy user")
	flags.String("proxy-pass", "", "HTTP proxy password")
	flags.Duration("open-timeout", hoptoad.DefaultOpenTimeout, "Connection timeout")
	flags.Duration("read-timeout", hoptoad.DefaultReadTimeout, "Response timeout")
	flags.String("environment", "production", "Reported environment name")
	flags.String("project-root", "", "Project root (defaults to the working directory)")
	flags.String("log-level", "info", "Log level: debug, info, warn, error")
	flags.Bool("dry-run", false, "Print the notice XML instead of sending it")
	flags.String("env-file", ".env", "Dotenv file to load before reading the environment")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.BindPFlags(flags)

	return cmd
}

// loadEnvFile applies a dotenv file without overriding variables already set.
// A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := gotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func configFrom(v *viper.Viper, out io.Writer) (hoptoad.Config, error) {
	log, err := logger.New(out, v.GetString("log-level"))
	if err != nil {
		return hoptoad.Config{}, err
	}

	root := v.GetString("project-root")
	if root == "" {
		root, _ = os.Getwd()
	}

	return hoptoad.NewConfig(
		hoptoad.WithAPIKey(v.GetString("api-key")),
		hoptoad.WithHost(v.GetString("host"), v.GetInt("port")),
		hoptoad.WithPath(v.GetString("path")),
		hoptoad.WithSecure(v.GetBool("secure")),
		hoptoad.WithProxy(v.GetString("proxy-host"), v.GetString("proxy-port"), v.GetString("proxy-user"), v.GetString("proxy-pass")),
		hoptoad.WithTimeouts(v.GetDuration("open-timeout"), v.GetDuration("read-timeout")),
		hoptoad.WithEnvironmentName(v.GetString("environment")),
		hoptoad.WithProjectRoot(root),
		hoptoad.WithLogger(log),
	), nil
}

func runTest(ctx context.Context, v *viper.Viper, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := configFrom(v, out)
	if err != nil {
		return err
	}
	if cfg.APIKey == "" {
		return errors.New("an API key is required (--api-key or HOPTOAD_API_KEY)")
	}

	notice := hoptoad.NewNotice(cfg)
	notice.SetErrorClass(testErrorClass)
	notice.SetErrorMessage(testErrorMessage)
	notice.SetEnvironmentVars(hoptoad.EnvironmentVars())

	if v.GetBool("dry-run") {
		body, err := notice.ToXML()
		if err != nil {
			return fmt.Errorf("render notice: %w", err)
		}
		_, err = out.Write(append(body, '\n'))
		return err
	}

	resp := remote.NewSubmitter(cfg).Submit(ctx, notice)
	switch {
	case resp == nil:
		return remote.ErrNotDelivered
	case !resp.Success():
		return fmt.Errorf("%w: status %d", remote.ErrRejected, resp.StatusCode)
	}
	return nil
}
