package mcp

// In this file: MCP prompt definitions.

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"arxivmcp/internal/validation"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpsrv "github.com/mark3labs/mcp-go/server"
)

const promptPaperAnalysis = "deep-paper-analysis"

type serverPrompt struct {
	Prompt  mcplib.Prompt
	Handler mcpsrv.PromptHandlerFunc
}

// prompts returns the MCP prompts this server exposes.
func (s *Server) prompts() []serverPrompt {
	return []serverPrompt{s.promptPaperAnalysis()}
}

// ─── deep-paper-analysis ──────────────────────────────────────────────────────

func (s *Server) promptPaperAnalysis() serverPrompt {
	prompt := mcplib.NewPrompt(promptPaperAnalysis,
		mcplib.WithPromptDescription("Analyze an arXiv paper in depth using the paper tools"),
		mcplib.WithArgument("paper_id",
			mcplib.ArgumentDescription("The arXiv ID of the paper to analyze"),
			mcplib.RequiredArgument(),
		),
	)
	return serverPrompt{Prompt: prompt, Handler: s.handlePaperAnalysis}
}

func (s *Server) handlePaperAnalysis(_ context.Context, req mcplib.GetPromptRequest) (*mcplib.GetPromptResult, error) {
	paperID := strings.TrimSpace(req.Params.Arguments["paper_id"])
	if paperID == "" {
		return nil, errors.New("deep-paper-analysis: paper_id is required")
	}
	if err := validation.ValidatePaperID(paperID); err != nil {
		return nil, fmt.Errorf("deep-paper-analysis: %w", err)
	}

	return mcplib.NewGetPromptResult(
		fmt.Sprintf("In-depth analysis of arXiv paper %s", paperID),
		[]mcplib.PromptMessage{
			mcplib.NewPromptMessage(mcplib.RoleUser, mcplib.NewTextContent(paperAnalysisText(paperID))),
		},
	), nil
}

func paperAnalysisText(paperID string) string {
	return fmt.Sprintf(`Analyze arXiv paper %[1]s in depth.

Workflow:
1. Call list_papers to see whether %[1]s is already stored.
2. If it is not, call download_paper with paper_id=%[1]s. If the status is
   "converting", call download_paper again with check_status=true until it
   reports "success".
3. Call read_paper with paper_id=%[1]s to get the full text.
4. Use search_papers to find closely related or follow-up work where it helps
   place the paper in context.

Structure the analysis as follows:
- Executive summary: the problem, the approach and the main result in a few
  sentences.
- Research context: prior work the paper builds on and what gap it addresses.
- Methodology: the key technical ideas, assumptions and experimental setup.
- Results: the main findings, with the numbers that support them.
- Limitations: weaknesses, threats to validity and open questions.
- Implications and future directions: what the work enables and what should
  be studied next.

Quote the paper where precision matters and say so explicitly when a claim
cannot be verified from the text.`, paperID)
}
