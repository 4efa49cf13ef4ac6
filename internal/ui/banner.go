// Package ui provides colorized console output for the converter daemon.
package ui

import (
	"fmt"

	"github.com/fatih/color"
)

// Version is stamped into the banner. Overridden at build time with
// -ldflags "-X .../internal/ui.Version=x.y.z".
var Version = "dev"

// PrintBanner displays the startup banner.
func PrintBanner() {
	cyan := color.New(color.FgCyan, color.Bold)
	hiCyan := color.New(color.FgHiCyan)
	white := color.New(color.FgWhite)
	dim := color.New(color.FgHiBlack)

	fmt.Println()
	cyan.Println("╔══════════════════════════════════════════════════════════╗")

	cyan.Print("║  ")
	hiCyan.Print("STI CONVERT")
	dim.Print("  │  ")
	white.Print("document conversion gateway")
	dim.Print("  │  ")
	white.Printf("%-8s", Version)
	cyan.Println("║")

	cyan.Println("╠══════════════════════════════════════════════════════════╣")

	cyan.Print("║  ")
	dim.Print("pooled provider credentials · round-robin · failover    ")
	cyan.Println("║")

	cyan.Println("╚══════════════════════════════════════════════════════════╝")
	fmt.Println()
}
