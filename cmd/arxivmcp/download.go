package main

import (
	"fmt"

	"arxivmcp/internal/download"
	"arxivmcp/internal/ui"

	"github.com/spf13/cobra"
)

func newDownloadCmd(a *app) *cobra.Command {
	var (
		format string
		check  bool
		wait   bool
	)
	cmd := &cobra.Command{
		Use:   "download <paper-id>...",
		Short: "Download and convert papers",
		Long: `Download papers by arXiv id and convert them to Markdown.

The HTML rendering is tried first unless --format pdf is given. PDF conversions
are waited for by default; with --wait=false the command exits once the PDF is
downloaded, the conversion is abandoned and the next download starts over.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			failed := 0
			for _, id := range args {
				resp := a.downloader.Handle(cmd.Context(), download.Request{
					PaperID:     id,
					CheckStatus: check,
					Format:      download.Format(format),
				})
				if wait && resp.Status == download.StatusConverting {
					a.downloader.Wait()
					resp = a.settled(cmd, id)
				}
				if resp.Status == download.StatusError {
					failed++
				}
				fmt.Fprintf(out, "%s\n%s\n\n", ui.TitleStyle.Render(id), ui.Status(resp))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d paper(s) failed", failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", string(download.FormatAuto), "source format: auto, html or pdf")
	cmd.Flags().BoolVar(&check, "check", false, "only report the status of each paper")
	cmd.Flags().BoolVarP(&wait, "wait", "w", true, "wait for PDF conversions to finish")
	return cmd
}

// settled returns the status of a paper once its conversion has finished. A
// failed conversion leaves nothing on disk or in the registry, so an unknown
// status at this point is reported as an error.
func (a *app) settled(cmd *cobra.Command, id string) download.Response {
	resp := a.downloader.Handle(cmd.Context(), download.Request{PaperID: id, CheckStatus: true})
	if resp.Status == download.StatusUnknown {
		return download.Response{
			Status:  download.StatusError,
			Message: "Conversion failed",
			Error:   "no Markdown was produced; run with DEBUG=1 for the converter output",
		}
	}
	return resp
}
