// Package ui renders arxivmcp results for the terminal: Markdown papers through
// glamour, stored papers and search hits as lipgloss tables and lists, and
// download outcomes as one-line status messages.
//
// Nothing here reads input; every function returns a string for the CLI to print.
package ui
