package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dusk-indust/appealdraft/internal/deadline"
)

func deadlineCmd() *cobra.Command {
	var text, today string
	cmd := &cobra.Command{
		Use:   "deadline [file|-]",
		Short: "Compute the appeal deadline from a fine's text",
		Long: `Finds the notification date in the text, works out whether the allegations
or the reposition period applies, and prints the due date. No LLM is called.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				var (
					b   []byte
					err error
				)
				if args[0] == "-" {
					b, err = io.ReadAll(cmd.InOrStdin())
				} else {
					b, err = os.ReadFile(args[0])
				}
				if err != nil {
					return err
				}
				text = string(b)
			}
			at := time.Now()
			if today != "" {
				t, err := time.Parse("2006-01-02", today)
				if err != nil {
					return fmt.Errorf("--today: want YYYY-MM-DD: %w", err)
				}
				at = t
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			info := deadline.NewCalculator(cfg.Deadline).ComputeAt(text, at)
			if viper.GetBool("json") {
				return printJSON(struct {
					Deadline *deadline.Info `json:"deadline"`
				}{info})
			}
			if info == nil {
				fmt.Println("No notification date found.")
				return nil
			}
			fmt.Printf("Procedure:     %s\n", info.ProcedureType)
			fmt.Printf("Notified:      %s\n", info.NoticeDate)
			fmt.Printf("Due:           %s\n", info.DueDate)
			fmt.Printf("Days left:     %d (%s)\n", info.DaysRemaining, info.Urgency)
			fmt.Printf("Legal basis:   %s\n", info.LegalBasis)
			return nil
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "fine text")
	cmd.Flags().StringVar(&today, "today", "", "reference date YYYY-MM-DD (default today)")
	return cmd
}
