package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"arxivmcp/internal/ui"

	"github.com/spf13/cobra"
)

func newListCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List stored papers",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			papers, err := a.store.List()
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), papers)
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.PaperTable(papers))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print papers as JSON")
	return cmd
}

func newReadCmd(a *app) *cobra.Command {
	var (
		raw   bool
		width int
	)
	cmd := &cobra.Command{
		Use:   "read <paper-id>",
		Short: "Print a stored paper",
		Long: `Print a stored paper's Markdown, rendered for the terminal.

Set GLAMOUR_STYLE to force a style (dark, light, notty, ...); by default it is
picked from the terminal background.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.store.Read(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if raw {
				_, err := io.WriteString(out, doc.Content)
				return err
			}
			rendered, err := ui.RenderMarkdown(doc.Content, ui.DetectGlamourStyle(100*time.Millisecond), width)
			if err != nil {
				a.logger.Warn("Falling back to raw output", "error", err)
				rendered = doc.Content
			}
			_, err = io.WriteString(out, rendered)
			return err
		},
	}
	cmd.Flags().BoolVarP(&raw, "raw", "r", false, "print the Markdown without rendering")
	cmd.Flags().IntVar(&width, "width", ui.DefaultWrapWidth, "wrap rendered output at this many columns")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
