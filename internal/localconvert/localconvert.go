// Package localconvert renders documents to PDF on this machine, with no
// network and no quota. It is the conversion path of last resort: text
// survives, formatting does not.
package localconvert

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/VidZid2/STI-sub006/internal/domain"
)

// FormattingWarning is attached to every offline result so callers can
// tell the portal the output is a degraded rendition.
const FormattingWarning = "converted offline: text content preserved, formatting and images are not"

// truncationWarning is added when the input has more text than one page holds.
const truncationWarning = "offline output truncated to one page"

const (
	pageWidth  = 612 // US Letter, 1/72 inch units
	pageHeight = 792
	margin     = 72
	fontSize   = 11
	leading    = 14
	maxColumns = 90
)

// maxLines is how many text lines fit between the top and bottom margins.
const maxLines = (pageHeight - 2*margin) / leading

// Converter renders a document's text into a minimal single-page PDF.
type Converter struct{}

// New returns a ready Converter.
func New() *Converter {
	return &Converter{}
}

// DocToPdf extracts the file's text and typesets it in Helvetica on a
// single page. Word documents are unzipped and their paragraph text
// pulled from the document XML; anything else is treated as plain text
// with non-printing bytes dropped.
func (c *Converter) DocToPdf(ctx context.Context, file domain.InputFile) (*domain.ConversionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(file.Content) == 0 {
		return nil, fmt.Errorf("offline conversion: %q is empty", file.Name)
	}

	text := extractText(file.Content)
	lines := layoutLines(text)

	warnings := []string{FormattingWarning}
	if len(lines) > maxLines {
		lines = lines[:maxLines]
		warnings = append(warnings, truncationWarning)
	}

	return &domain.ConversionResult{
		FileName:    pdfName(file.Name),
		Content:     writePDF(lines),
		ContentType: "application/pdf",
		Warnings:    warnings,
	}, nil
}

// extractText returns the document's readable text. Zip containers are
// treated as Word documents; everything else as raw text.
func extractText(content []byte) string {
	if bytes.HasPrefix(content, []byte("PK\x03\x04")) {
		if text, err := wordDocumentText(content); err == nil {
			return text
		}
	}
	return printableText(content)
}

// wordDocumentText pulls paragraph text out of word/document.xml.
func wordDocumentText(content []byte) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", err
	}

	var document io.ReadCloser
	for _, f := range reader.File {
		if f.Name == "word/document.xml" {
			document, err = f.Open()
			if err != nil {
				return "", err
			}
			break
		}
	}
	if document == nil {
		return "", fmt.Errorf("no word/document.xml in archive")
	}
	defer document.Close()

	var text strings.Builder
	decoder := xml.NewDecoder(document)
	inRun := false
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := token.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inRun = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inRun = false
			case "p":
				text.WriteByte('\n')
			}
		case xml.CharData:
			if inRun {
				text.Write(t)
			}
		}
	}
	return text.String(), nil
}

// printableText keeps tabs, newlines and printable ASCII, dropping
// everything else so binary junk never reaches the page.
func printableText(content []byte) string {
	var text strings.Builder
	text.Grow(len(content))
	for _, b := range content {
		switch {
		case b == '\n':
			text.WriteByte('\n')
		case b == '\t':
			text.WriteString("    ")
		case b >= 0x20 && b < 0x7f:
			text.WriteByte(b)
		}
	}
	return text.String()
}

// layoutLines splits text into page lines, hard-wrapping at the column
// limit.
func layoutLines(text string) []string {
	var lines []string
	for _, raw := range strings.Split(text, "\n") {
		raw = strings.TrimRight(raw, " ")
		if raw == "" {
			lines = append(lines, "")
			continue
		}
		for len(raw) > maxColumns {
			cut := strings.LastIndex(raw[:maxColumns], " ")
			if cut <= 0 {
				cut = maxColumns
			}
			lines = append(lines, raw[:cut])
			raw = strings.TrimLeft(raw[cut:], " ")
		}
		lines = append(lines, raw)
	}
	// Drop the trailing blank a final newline produces.
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// escapeString quotes the characters PDF string literals reserve.
func escapeString(line string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return replacer.Replace(line)
}

// writePDF assembles a one-page document: catalog, page tree, one page,
// the Helvetica font and an uncompressed content stream, followed by the
// cross-reference table.
func writePDF(lines []string) []byte {
	var stream bytes.Buffer
	fmt.Fprintf(&stream, "BT\n/F1 %d Tf\n%d TL\n%d %d Td\n", fontSize, leading, margin, pageHeight-margin)
	for _, line := range lines {
		fmt.Fprintf(&stream, "(%s) Tj T*\n", escapeString(line))
	}
	stream.WriteString("ET\n")

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %d %d] /Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>", pageWidth, pageHeight),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", stream.Len(), stream.String()),
	}

	var out bytes.Buffer
	out.WriteString("%PDF-1.4\n")

	offsets := make([]int, len(objects)+1)
	for i, body := range objects {
		offsets[i+1] = out.Len()
		fmt.Fprintf(&out, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}

	xrefStart := out.Len()
	fmt.Fprintf(&out, "xref\n0 %d\n", len(objects)+1)
	out.WriteString("0000000000 65535 f \n")
	for _, offset := range offsets[1:] {
		fmt.Fprintf(&out, "%010d 00000 n \n", offset)
	}
	fmt.Fprintf(&out, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xrefStart)

	return out.Bytes()
}

// pdfName swaps the input's extension for .pdf.
func pdfName(name string) string {
	if name == "" {
		return "document.pdf"
	}
	if dot := strings.LastIndex(name, "."); dot > 0 {
		name = name[:dot]
	}
	return name + ".pdf"
}
