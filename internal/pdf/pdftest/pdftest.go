// Package pdftest builds small, valid PDF files in memory for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"sort"
)

// Page describes one page of a generated document
type Page struct {
	Width  float64
	Height float64
	Rotate int
	Text   string
}

// Letter is a single unrotated US Letter page
var Letter = Page{Width: 612, Height: 792}

// Document is a generated file with an optional document information
// dictionary
type Document struct {
	Info  map[string]string
	Pages []Page
}

// Build returns a PDF with the given pages. Offsets in the xref table are
// computed from the generated bytes so the output parses strictly.
func Build(pages ...Page) []byte {
	return Document{Pages: pages}.Bytes()
}

// Bytes renders the document
func (d Document) Bytes() []byte {
	pages := d.Pages
	if len(pages) == 0 {
		pages = []Page{Letter}
	}

	var objects []string
	objects = append(objects, "<< /Type /Catalog /Pages 2 0 R >>")

	fontObj := 3
	firstPageObj := 4
	kids := ""
	for i := range pages {
		kids += fmt.Sprintf("%d 0 R ", firstPageObj+i*2)
	}
	objects = append(objects, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, len(pages)))
	objects = append(objects, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	for i, p := range pages {
		pageObj := firstPageObj + i*2
		contentObj := pageObj + 1
		dict := fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %g %g] /Resources << /Font << /F1 %d 0 R >> >> /Contents %d 0 R",
			p.Width, p.Height, fontObj, contentObj)
		if p.Rotate != 0 {
			dict += fmt.Sprintf(" /Rotate %d", p.Rotate)
		}
		dict += " >>"
		objects = append(objects, dict)

		stream := ""
		if p.Text != "" {
			stream = fmt.Sprintf("BT /F1 12 Tf 72 %g Td (%s) Tj ET", p.Height-72, p.Text)
		}
		objects = append(objects, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream))
	}

	trailerExtra := ""
	if len(d.Info) > 0 {
		keys := make([]string, 0, len(d.Info))
		for k := range d.Info {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		info := "<<"
		for _, k := range keys {
			info += fmt.Sprintf(" /%s (%s)", k, d.Info[k])
		}
		objects = append(objects, info+" >>")
		trailerExtra = fmt.Sprintf(" /Info %d 0 R", len(objects))
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R%s >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, trailerExtra, xref)

	return buf.Bytes()
}
