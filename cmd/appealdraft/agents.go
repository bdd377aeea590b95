package main

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type agentRow struct {
	ID         string `json:"id"`
	Label      string `json:"label"`
	Provider   string `json:"provider"`
	Model      string `json:"model"`
	Vision     bool   `json:"vision"`
	Enabled    bool   `json:"enabled"`
	Configured bool   `json:"configured"`
}

func agentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "agents",
		Short: "List configured agents and whether each has a credential",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			var rows []agentRow
			for _, id := range a.registry.ListAgents() {
				configured := false
				if id.CredentialKey != "" {
					c, err := a.creds.Credential(cmd.Context(), id.CredentialKey)
					configured = err == nil && c != ""
				}
				rows = append(rows, agentRow{
					ID:         id.ID,
					Label:      id.Label,
					Provider:   string(id.Provider),
					Model:      id.Model,
					Vision:     id.Vision,
					Enabled:    id.Enabled,
					Configured: configured,
				})
			}
			if viper.GetBool("json") {
				return printJSON(rows)
			}

			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"ID", "Label", "Provider", "Model", "Vision", "Enabled", "Key"})
			for _, r := range rows {
				tw.AppendRow(table.Row{r.ID, r.Label, r.Provider, r.Model, yesNo(r.Vision), yesNo(r.Enabled), yesNo(r.Configured)})
			}
			tw.Render()
			return nil
		},
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
