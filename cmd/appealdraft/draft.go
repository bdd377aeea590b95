package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dusk-indust/appealdraft/internal/export"
	"github.com/dusk-indust/appealdraft/internal/orchestrator"
)

func draftCmd() *cobra.Command {
	var (
		text, textFile, extra, outDir string
		supports                        []string
		quiet                           bool
	)
	cmd := &cobra.Command{
		Use:   "draft [fine-file]",
		Short: "Draft an appeal from a fine (PDF, image or text)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := orchestrator.Request{
				FineText:          text,
				AdditionalContext: extra,
			}
			if textFile != "" {
				b, err := os.ReadFile(textFile)
				if err != nil {
					return err
				}
				req.FineText = string(b)
			}
			if len(args) == 1 {
				f, err := orchestrator.LoadFile(args[0])
				if err != nil {
					return err
				}
				req.Fine = f
			}
			for _, s := range supports {
				sf, err := parseSupport(s)
				if err != nil {
					return err
				}
				req.SupportFiles = append(req.SupportFiles, sf)
			}
			if req.Fine.Data == nil && strings.TrimSpace(req.FineText) == "" {
				return errors.New("a fine file, --text or --text-file is required")
			}

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			p := a.pipeline()
			done := make(chan struct{})
			go func() {
				defer close(done)
				for ev := range p.Progress() {
					if !quiet {
						fmt.Fprintln(os.Stderr, orchestrator.FormatProgress(ev))
					}
				}
			}()
			resp, runErr := p.Run(cmd.Context(), req)
			p.Close()
			<-done

			if resp == nil {
				return runErr
			}
			if viper.GetBool("json") {
				if err := printJSON(export.BuildExport(resp, time.Now())); err != nil {
					return err
				}
			} else {
				printResults(resp)
			}
			if runErr != nil {
				return runErr
			}

			if outDir == "" {
				outDir = "recurso-" + resp.RequestID
			}
			written, err := export.WriteBundle(outDir, resp, time.Now())
			if err != nil {
				return err
			}
			if !viper.GetBool("json") {
				fmt.Println()
				for _, w := range written {
					fmt.Printf("  created %s\n", displayPath(w))
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "fine text instead of a file")
	cmd.Flags().StringVar(&textFile, "text-file", "", "read the fine text from a file")
	cmd.Flags().StringVar(&extra, "context", "", "your account of the facts and arguments")
	cmd.Flags().StringArrayVar(&supports, "support", nil, "supporting document as path or path=context (repeatable)")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory (default recurso-<request id>)")
	cmd.Flags().String("strategy", "", "merge strategy: heuristic or master")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "hide per-agent progress")
	_ = viper.BindPFlag("strategy", cmd.Flags().Lookup("strategy"))
	return cmd
}

// parseSupport reads "path" or "path=context".
func parseSupport(s string) (orchestrator.SupportFile, error) {
	path, ctx, _ := strings.Cut(s, "=")
	f, err := orchestrator.LoadFile(strings.TrimSpace(path))
	if err != nil {
		return orchestrator.SupportFile{}, err
	}
	return orchestrator.SupportFile{File: f, Context: strings.TrimSpace(ctx)}, nil
}

func printResults(resp *orchestrator.Response) {
	fmt.Printf("Request: %s\n\n", resp.RequestID)
	printAgentTable("Metadata", resp.MetadataResults)
	printAgentTable("Drafts", resp.AgentResults)

	doc := resp.MergedDocument
	fmt.Printf("\nMerge: %s", doc.Strategy)
	if doc.MasterAgentID != "" {
		fmt.Printf(" (master %s)", doc.MasterAgentID)
	}
	if len(doc.Sources) > 0 {
		fmt.Printf(" from %s", strings.Join(doc.Sources, ", "))
	}
	fmt.Println()

	if d := resp.DeadlineInfo; d != nil {
		fmt.Printf("Deadline: %s (%d days, %s, %s)\n", d.DueDate, d.DaysRemaining, d.ProcedureType, d.Urgency)
	} else {
		fmt.Println("Deadline: notification date not found")
	}
	if u := resp.SubmissionURL; u != nil {
		fmt.Printf("Submit at: %s\n", u.URL)
	}
	for _, w := range resp.Warnings {
		fmt.Printf("Warning: %s\n", w)
	}
}

func printAgentTable(title string, results []orchestrator.AgentResult) {
	if len(results) == 0 {
		return
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetTitle(title)
	tw.AppendHeader(table.Row{"Agent", "Status", "Time", "Error"})
	for _, r := range results {
		elapsed := ""
		if r.DurationMS > 0 {
			elapsed = (time.Duration(r.DurationMS) * time.Millisecond).String()
		}
		tw.AppendRow(table.Row{r.AgentID, r.Status, elapsed, r.Error})
	}
	tw.Render()
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// displayPath shortens path relative to the working directory.
func displayPath(path string) string {
	wd, err := os.Getwd()
	if err != nil {
		return path
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(wd, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return "./" + rel
}
