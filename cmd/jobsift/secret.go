package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/amishk599/jobsift/internal/config"
	"github.com/amishk599/jobsift/internal/secrets"
	"github.com/spf13/cobra"
)

var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Manage AI provider API keys in the OS keychain",
}

var secretSetCmd = &cobra.Command{
	Use:       "set <provider>",
	Short:     "Store an API key read from stdin",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{config.ProviderGemini, config.ProviderOpenAI, config.ProviderAnthropic},
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(cmd.ErrOrStderr(), "Paste the %s API key and press enter: ", args[0])
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && strings.TrimSpace(line) == "" {
			return fmt.Errorf("read api key: %w", err)
		}
		if err := secrets.SetAPIKey(args[0], line); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "stored %s key in keychain\n", args[0])
		return nil
	},
}

var secretDeleteCmd = &cobra.Command{
	Use:   "delete <provider>",
	Short: "Remove a stored API key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := secrets.DeleteAPIKey(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s key\n", args[0])
		return nil
	},
}

func init() {
	secretCmd.AddCommand(secretSetCmd, secretDeleteCmd)
	rootCmd.AddCommand(secretCmd)
}
