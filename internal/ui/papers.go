package ui

import (
	"fmt"
	"strings"
	"time"

	"arxivmcp/internal/arxiv"
	"arxivmcp/internal/download"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/muesli/reflow/wordwrap"
)

const maxTitleWidth = 60

// PaperTable renders stored papers as a bordered table.
func PaperTable(papers []download.StoredPaper) string {
	if len(papers) == 0 {
		return HelpStyle.Render("No papers stored yet. Use `arxivmcp download <id>` to fetch one.")
	}

	rows := make([][]string, 0, len(papers))
	for _, p := range papers {
		rows = append(rows, []string{
			p.PaperID,
			ellipsize(p.Title, maxTitleWidth),
			orDash(p.Source),
			humanize.Bytes(uint64(p.Size)),
			humanize.Time(p.ModTime),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(BorderStyle).
		Headers("ID", "TITLE", "SOURCE", "SIZE", "MODIFIED").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return HeaderCellStyle
			}
			return CellStyle
		})

	return t.Render() + "\n" + SubtitleStyle.Render(fmt.Sprintf("%d paper(s)", len(papers)))
}

// SearchResults renders search hits as a numbered list with wrapped abstracts.
func SearchResults(total int, papers []arxiv.Paper, width int) string {
	if len(papers) == 0 {
		return HelpStyle.Render("No papers matched the query.")
	}
	if width <= 0 {
		width = DefaultWrapWidth
	}

	var b strings.Builder
	b.WriteString(SubtitleStyle.Render(fmt.Sprintf("Showing %d of %d result(s)", len(papers), total)))
	b.WriteString("\n\n")
	for i, p := range papers {
		fmt.Fprintf(&b, "%d. %s\n", i+1, TitleStyle.Render(p.Title))
		fmt.Fprintf(&b, "   %s\n", SubtitleStyle.Render(paperLine(p)))
		if len(p.Authors) > 0 {
			fmt.Fprintf(&b, "   %s\n", strings.Join(p.Authors, ", "))
		}
		if p.Abstract != "" {
			for _, line := range strings.Split(wordwrap.String(p.Abstract, width-3), "\n") {
				b.WriteString("   " + line + "\n")
			}
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// paperLine is the id, primary category and publication date.
func paperLine(p arxiv.Paper) string {
	parts := []string{p.ID}
	if c := p.PrimaryCategory(); c != "" {
		parts = append(parts, c)
	}
	if !p.Published.IsZero() {
		parts = append(parts, p.Published.Format(time.DateOnly))
	}
	return strings.Join(parts, " · ")
}

// Status renders a download response as a single line.
func Status(resp download.Response) string {
	var label string
	switch resp.Status {
	case download.StatusSuccess:
		label = SuccessStyle.Render(string(resp.Status))
	case download.StatusError:
		label = ErrorStyle.Render(string(resp.Status))
	case download.StatusUnknown:
		label = HelpStyle.Render(string(resp.Status))
	default:
		label = PendingStyle.Render(string(resp.Status))
	}

	line := label
	if resp.Message != "" {
		line += " " + resp.Message
	}
	if resp.Error != "" {
		line += "\n" + ErrorStyle.Render("error: ") + resp.Error
	}
	if resp.ResourceURI != "" {
		line += "\n" + SubtitleStyle.Render(resp.ResourceURI)
	}
	return line
}

func ellipsize(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
