package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alanyoungcy/fxscalper/internal/config"
	"github.com/alanyoungcy/fxscalper/internal/crypto"
)

func newVaultCmd(opts *rootOptions) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "vault",
		Short: "Manage encrypted account passwords",
		Long: `The vault stores venue account passwords encrypted with a master password
taken from accounts.vault_password or FXSCALPER_VAULT_PASSWORD.

Examples:
  echo 's3cret' | fxscalper vault seal live
  fxscalper vault verify live
  fxscalper vault list`,
	}
	cmd.PersistentFlags().StringVar(&path, "file", "", "vault file (default accounts.vault_path)")

	resolve := func(cmd *cobra.Command) (string, *config.Config, error) {
		cfg, err := opts.load(cmd)
		if err != nil {
			return "", nil, err
		}
		p := path
		if p == "" {
			p = cfg.Accounts.VaultPath
		}
		if p == "" {
			return "", nil, errors.New("no vault file: set --file or accounts.vault_path")
		}
		return p, cfg, nil
	}
	master := func(cfg *config.Config) (string, error) {
		if cfg.Accounts.VaultPassword == "" {
			return "", fmt.Errorf("no master password: set %sVAULT_PASSWORD", config.EnvPrefix)
		}
		return cfg.Accounts.VaultPassword, nil
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "seal <account>",
		Short: "Encrypt the password read from stdin for an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, cfg, err := resolve(cmd)
			if err != nil {
				return err
			}
			mp, err := master(cfg)
			if err != nil {
				return err
			}
			secret, err := readSecret(cmd.InOrStdin())
			if err != nil {
				return err
			}
			v, err := crypto.LoadVault(p)
			if err != nil {
				return err
			}
			if err := v.Seal(args[0], secret, mp); err != nil {
				return err
			}
			if err := v.Save(p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sealed %s in %s\n", args[0], p)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "verify <account>",
		Short: "Check that an account's password decrypts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, cfg, err := resolve(cmd)
			if err != nil {
				return err
			}
			mp, err := master(cfg)
			if err != nil {
				return err
			}
			v, err := crypto.LoadVault(p)
			if err != nil {
				return err
			}
			if _, err := v.Open(args[0], mp); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s OK\n", args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List accounts stored in the vault",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, _, err := resolve(cmd)
			if err != nil {
				return err
			}
			v, err := crypto.LoadVault(p)
			if err != nil {
				return err
			}
			for _, k := range v.Keys() {
				fmt.Fprintln(cmd.OutOrStdout(), k)
			}
			return nil
		},
	})
	return cmd
}

func readSecret(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read secret: %w", err)
	}
	secret := strings.TrimRight(line, "\r\n")
	if secret == "" {
		return "", errors.New("empty secret on stdin")
	}
	return secret, nil
}
