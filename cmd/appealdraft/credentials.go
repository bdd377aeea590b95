package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dusk-indust/appealdraft/internal/credstore"
)

func credentialsCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "credentials",
		Short: "Manage provider keys in the local store",
	}
	c.AddCommand(credentialsSetCmd())
	c.AddCommand(credentialsGetCmd())
	c.AddCommand(credentialsClearCmd())
	c.AddCommand(credentialsListCmd())
	return c
}

// withStore opens the credential store named by the configuration.
func withStore(fn func(s *credstore.SQLiteStore) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	s, err := credstore.Open(cfg.Credentials.Path)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

func credentialsSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <KEY> [value]",
		Short: "Store a key (reads the value from stdin when omitted)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value := ""
			if len(args) == 2 {
				value = args[1]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("reading value: %w", err)
				}
				value = line
			}
			return withStore(func(s *credstore.SQLiteStore) error {
				if err := s.Set(cmd.Context(), args[0], value); err != nil {
					return err
				}
				fmt.Printf("  stored %s (%s)\n", strings.TrimSpace(args[0]), credstore.Mask(strings.TrimSpace(value)))
				return nil
			})
		},
	}
}

func credentialsGetCmd() *cobra.Command {
	var reveal bool
	cmd := &cobra.Command{
		Use:   "get <KEY>",
		Short: "Show a stored key, masked unless --reveal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(s *credstore.SQLiteStore) error {
				v, err := s.Get(cmd.Context(), args[0])
				if errors.Is(err, credstore.ErrNotFound) {
					return fmt.Errorf("%s is not stored", args[0])
				}
				if err != nil {
					return err
				}
				if !reveal {
					v = credstore.Mask(v)
				}
				fmt.Println(v)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&reveal, "reveal", false, "print the full value")
	return cmd
}

func credentialsClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear <KEY>",
		Short: "Delete a stored key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(s *credstore.SQLiteStore) error {
				if err := s.Clear(cmd.Context(), args[0]); err != nil {
					if errors.Is(err, credstore.ErrNotFound) {
						return fmt.Errorf("%s is not stored", args[0])
					}
					return err
				}
				fmt.Printf("  cleared %s\n", args[0])
				return nil
			})
		},
	}
}

func credentialsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(s *credstore.SQLiteStore) error {
				keys, err := s.Keys(cmd.Context())
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(keys)
				}
				if len(keys) == 0 {
					fmt.Println("No credentials stored.")
					return nil
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Key", "Value"})
				for _, k := range keys {
					v, err := s.Get(cmd.Context(), k)
					if err != nil {
						return err
					}
					tw.AppendRow(table.Row{k, credstore.Mask(v)})
				}
				tw.Render()
				return nil
			})
		},
	}
}
