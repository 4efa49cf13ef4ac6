package ui

import (
	"fmt"
	"time"

	"github.com/fatih/color"
)

var (
	successBadge = color.New(color.BgGreen, color.FgBlack, color.Bold)
	warningBadge = color.New(color.BgYellow, color.FgBlack, color.Bold)
	errorBadge   = color.New(color.BgRed, color.FgWhite, color.Bold)
	infoBadge    = color.New(color.FgCyan, color.Bold)

	successText = color.New(color.FgGreen, color.Bold)
	warningText = color.New(color.FgYellow)
	errorText   = color.New(color.FgRed)
	infoText    = color.New(color.FgCyan)
	mutedText   = color.New(color.FgHiBlack)
	accentText  = color.New(color.FgHiCyan, color.Bold)
)

// KeyRow is one credential line in the status table. Secret must arrive
// already masked.
type KeyRow struct {
	ID       string
	Secret   string
	State    string
	Used     int64
	Limit    int64
	Failures int
	LastUsed time.Time
}

// PrintStateBadge prints a colored badge for a credential state.
func PrintStateBadge(state string) {
	switch state {
	case "active":
		successBadge.Printf(" %-9s ", "ACTIVE")
	case "exhausted":
		warningBadge.Printf(" %-9s ", "EXHAUSTED")
	case "disabled":
		errorBadge.Printf(" %-9s ", "DISABLED")
	default:
		mutedText.Printf(" %-9s ", state)
	}
}

// PrintKeyTable prints the credential pool of one provider.
func PrintKeyTable(provider string, rows []KeyRow) {
	fmt.Println()
	infoBadge.Print("[POOL]")
	fmt.Print(" ")
	accentText.Println(provider)

	if len(rows) == 0 {
		mutedText.Println("  no credentials configured")
		return
	}

	mutedText.Printf("  %-14s %-14s %-11s %12s %10s  %s\n",
		"ID", "KEY", "STATE", "USED/LIMIT", "FAILURES", "LAST USED")

	for _, row := range rows {
		fmt.Printf("  %-14s %-14s ", row.ID, row.Secret)
		PrintStateBadge(row.State)
		fmt.Printf(" %12s %10d  %s\n",
			formatUsage(row.Used, row.Limit), row.Failures, formatLastUsed(row.LastUsed))
	}
}

// PrintPoolSummary prints the aggregate counters of one provider pool.
func PrintPoolSummary(provider string, active, exhausted, disabled int, remaining int64, quotaKnown bool) {
	infoBadge.Print("[POOL]")
	fmt.Printf(" %s: ", provider)
	successText.Printf("%d active", active)
	fmt.Print(" / ")
	warningText.Printf("%d exhausted", exhausted)
	fmt.Print(" / ")
	errorText.Printf("%d disabled", disabled)
	if quotaKnown {
		fmt.Print("  ")
		mutedText.Printf("~%d calls remaining", remaining)
	}
	fmt.Println()
}

// PrintStartupInfo prints styled server startup information.
func PrintStartupInfo(host string, port int, activeKeys int) {
	fmt.Println()
	infoBadge.Print("[SERVER]")
	fmt.Print(" Listening on ")
	accentText.Printf("http://%s:%d\n", host, port)

	infoBadge.Print("[SERVER]")
	fmt.Print(" Active credentials: ")
	if activeKeys > 0 {
		successText.Printf("%d\n", activeKeys)
	} else {
		errorText.Println("0 (local fallback only)")
	}

	fmt.Println()
	printEndpoints()
}

// printEndpoints prints the portal-facing API surface.
func printEndpoints() {
	mutedText.Println("  POST /api/v1/convert/doc-to-pdf     DOC/DOCX to PDF")
	mutedText.Println("  POST /api/v1/convert/images-to-pdf  images to a single PDF")
	mutedText.Println("  POST /api/v1/convert/merge-pdf      merge PDFs in upload order")
	mutedText.Println("  POST /api/v1/convert/pdf-to-doc     PDF to DOCX")
	mutedText.Println("  POST /api/v1/grammar/check          grammar findings report")
	mutedText.Println("  GET  /api/v1/providers              pool overview")
	mutedText.Println("  GET  /healthz                       health")
	mutedText.Println("  GET  /metrics                       prometheus metrics")
	fmt.Println()
}

// PrintResetResult prints the outcome of a reset-keys run.
func PrintResetResult(provider string, reset int) {
	if reset == 0 {
		mutedText.Printf("no exhausted or disabled keys for %s\n", provider)
		return
	}
	successBadge.Print(" OK ")
	fmt.Print(" ")
	successText.Printf("%d key(s) returned to rotation for %s\n", reset, provider)
}

// PrintShutdown prints a styled shutdown message.
func PrintShutdown() {
	fmt.Println()
	warningText.Println("shutting down gracefully...")
}

// PrintGoodbye prints the final message after a clean stop.
func PrintGoodbye() {
	successBadge.Print(" OK ")
	fmt.Print(" ")
	successText.Println("server stopped")
}

// formatLastUsed renders the last-used column.
func formatLastUsed(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Format("2006-01-02 15:04:05")
}

// formatUsage renders the used/limit column.
func formatUsage(used, limit int64) string {
	if limit > 0 {
		return fmt.Sprintf("%d/%d", used, limit)
	}
	return fmt.Sprintf("%d/∞", used)
}
