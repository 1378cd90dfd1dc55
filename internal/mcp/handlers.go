package mcp

import (
	"context"
	"encoding/base64"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/a3tai/mcp-pdf-signer/internal/conversion"
	"github.com/a3tai/mcp-pdf-signer/internal/forms"
	"github.com/a3tai/mcp-pdf-signer/internal/stage"
	"github.com/a3tai/mcp-pdf-signer/internal/viewer"
	"github.com/mark3labs/mcp-go/mcp"
)

// textPreviewLimit bounds the page text echoed by view_inspect
const textPreviewLimit = 500

// Handler functions
func (s *Server) handleDocumentLoad(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := request.GetString("path", "")
	encoded := request.GetString("content_base64", "")
	if path == "" && encoded == "" {
		return mcp.NewToolResultError("either path or content_base64 is required"), nil
	}

	src := viewer.Source{ContentRef: path}
	if encoded != "" {
		blob, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid content_base64: %v", err)), nil
		}
		src.Blob = blob
	}

	status, err := s.flow.LoadDocument(ctx, src)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	responseText := "Document loaded for preparation\n"
	responseText += s.formatDocumentStatus(status)
	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleAssigneeSelect(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	email := request.GetString("email", "")
	if email == "" {
		return mcp.NewToolResultText(s.formatRoster()), nil
	}

	assignee, err := s.flow.SelectAssignee(email)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Assignee selected: %s <%s>", assignee.Name, assignee.Email)), nil
}

func (s *Server) handleFieldAdd(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind, err := request.RequireString("kind")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	args := request.GetArguments()
	x, hasX := numberArg(args, "x")
	y, hasY := numberArg(args, "y")
	if hasX != hasY {
		return mcp.NewToolResultError("x and y must be given together"), nil
	}

	req := stage.FieldRequest{
		Kind:  forms.ParseKind(kind),
		Value: request.GetString("value", ""),
	}
	if hasX {
		req.Pointer = &forms.Point{X: x, Y: y}
	}
	page, _ := numberArg(args, "page")
	zoom, _ := numberArg(args, "zoom")
	if page != 0 || zoom != 0 {
		req.View = &stage.ViewChange{Page: int(page), Zoom: zoom}
	}

	placeholder, transition, err := s.flow.AddField(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if placeholder == nil {
		if len(transition.Notifications) > 0 {
			return s.transitionResult("", transition), nil
		}
		return mcp.NewToolResultText("Drop point is outside every page, no field placed"), nil
	}

	body := "Placeholder added\n" + s.formatPlaceholder(placeholder)
	if !placeholder.Kind.Valid() {
		body += fmt.Sprintf("Note: kind %s is not one of %s and will be dropped on prepare\n", placeholder.Kind, kindList())
	}
	return s.transitionResult(body, transition), nil
}

func (s *Server) handleFieldMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	args := request.GetArguments()
	x, hasX := numberArg(args, "x")
	y, hasY := numberArg(args, "y")
	if !hasX || !hasY {
		return mcp.NewToolResultError("x and y are required"), nil
	}

	placeholder, err := s.flow.MovePlaceholder(id, forms.Point{X: x, Y: y})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("Placeholder moved\n" + s.formatPlaceholder(&placeholder)), nil
}

func (s *Server) handleDocumentPrepare(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, transition, err := s.flow.PrepareDocument(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if result.Cancelled {
		return mcp.NewToolResultText("Preparation cancelled: the document was closed"), nil
	}
	return s.transitionResult(s.formatConversionResult(result), transition), nil
}

func (s *Server) handleSignStart(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	transition, err := s.flow.StartSigning(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	body := ""
	if transition.Route == stage.RouteSign {
		fields, err := s.flow.SignFields()
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		body = s.formatFields(fields)
	}
	return s.transitionResult(body, transition), nil
}

func (s *Server) handleSignFieldFill(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	value, err := request.RequireString("value")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := s.flow.FillField(name, value); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Field %s set to %q", name, value)), nil
}

func (s *Server) handleSignFieldNext(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	field, err := s.flow.NextField()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(s.formatCurrentField(field)), nil
}

func (s *Server) handleSignFieldPrev(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	field, err := s.flow.PrevField()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(s.formatCurrentField(field)), nil
}

func (s *Server) handleSignComplete(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	transition, err := s.flow.CompleteSigning(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.transitionResult("", transition), nil
}

func (s *Server) handleViewStart(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	transition, err := s.flow.StartViewing(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.transitionResult("", transition), nil
}

func (s *Server) handleViewInspect(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	inspection, err := s.flow.Inspect()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(s.formatInspection(inspection)), nil
}

func (s *Server) handleViewDownload(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	download, transition, err := s.flow.Download(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	body := ""
	if download != nil {
		body = fmt.Sprintf("PDF: %s\nXFDF: %s\n", download.PDFPath, download.XFDFPath)
	}
	return s.transitionResult(body, transition), nil
}

func (s *Server) handleViewDone(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	transition, err := s.flow.DoneViewing(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.transitionResult("", transition), nil
}

func (s *Server) handleFlowReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	transition, err := s.flow.Reset(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.transitionResult("Flow reset", transition), nil
}

func (s *Server) handleFlowStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(s.formatStatus(s.flow.Status())), nil
}

// transitionResult reports a step change. Any error notification marks the
// result as an error.
func (s *Server) transitionResult(body string, t stage.Transition) *mcp.CallToolResult {
	var b strings.Builder
	failed := false
	for _, n := range t.Notifications {
		fmt.Fprintf(&b, "[%s] %s\n", n.Level, n.Message)
		if n.Level == stage.LevelError {
			failed = true
		}
	}
	if body != "" {
		b.WriteString(body)
		if !strings.HasSuffix(body, "\n") {
			b.WriteString("\n")
		}
	}
	fmt.Fprintf(&b, "Step: %s\n", t.Route)

	if failed {
		return mcp.NewToolResultError(b.String())
	}
	return mcp.NewToolResultText(b.String())
}

func (s *Server) formatDocumentStatus(d *stage.DocumentStatus) string {
	if d == nil {
		return "No document open\n"
	}
	responseText := ""
	if d.ContentRef != "" {
		responseText += fmt.Sprintf("Source: %s\n", d.ContentRef)
	}
	responseText += fmt.Sprintf("Pages: %d\n", d.Pages)
	responseText += fmt.Sprintf("Current page: %d\n", d.CurrentPage)
	responseText += fmt.Sprintf("Zoom: %g\n", d.Zoom)
	responseText += fmt.Sprintf("Placeholders: %d\n", d.Placeholders)
	responseText += fmt.Sprintf("Widgets: %d\n", d.Widgets)
	return responseText
}

func (s *Server) formatRoster() string {
	assignees := s.flow.Assignees()
	if len(assignees) == 0 {
		return "The roster is empty"
	}
	current := s.flow.Status().Assignee

	responseText := fmt.Sprintf("Roster (%d):\n", len(assignees))
	for _, a := range assignees {
		marker := " "
		if a.Email == current {
			marker = "*"
		}
		responseText += fmt.Sprintf("%s %s <%s>\n", marker, a.Name, a.Email)
	}
	return responseText
}

func (s *Server) formatPlaceholder(p *forms.Placeholder) string {
	g := p.Geometry
	responseText := fmt.Sprintf("Placeholder: %s\n", p.ID)
	responseText += fmt.Sprintf("Kind: %s\n", p.Kind)
	responseText += fmt.Sprintf("Assignee: %s\n", p.Assignee)
	responseText += fmt.Sprintf("Page: %d at (%g, %g), %gx%g, rotation %d\n",
		g.Page, g.X, g.Y, g.Width, g.Height, g.Rotation)
	return responseText
}

func (s *Server) formatConversionResult(result conversion.Result) string {
	responseText := fmt.Sprintf("Fields created: %d\n", len(result.Fields))
	for _, f := range result.Fields {
		responseText += fmt.Sprintf("  %s (%s, page %d)\n", f.Name, f.Widget, f.Geometry.Page)
	}
	if len(result.Dropped) > 0 {
		responseText += fmt.Sprintf("Dropped placeholders: %s\n", strings.Join(result.Dropped, ", "))
	}
	return responseText
}

func (s *Server) formatFields(fields []forms.FormField) string {
	if len(fields) == 0 {
		return "No fields to fill\n"
	}
	responseText := fmt.Sprintf("Fields (%d):\n", len(fields))
	for _, f := range fields {
		value := f.Value
		if value == "" {
			value = "(empty)"
		}
		responseText += fmt.Sprintf("  %s [%s] page %d: %s\n", f.Name, f.Kind, f.Geometry.Page, value)
	}
	return responseText
}

func (s *Server) formatCurrentField(field *forms.FormField) string {
	if field == nil {
		return "No fields to fill"
	}
	return fmt.Sprintf("Current field: %s [%s] on page %d", field.Name, field.Kind, field.Geometry.Page)
}

func (s *Server) formatInspection(in stage.Inspection) string {
	responseText := fmt.Sprintf("Document: %s (%s)\n", in.DocID, in.Stage)
	responseText += fmt.Sprintf("Pages: %d\n", in.Pages)
	if in.Version != "" {
		responseText += fmt.Sprintf("PDF version: %s\n", in.Version)
	}
	if in.Metadata.Title != "" {
		responseText += fmt.Sprintf("Title: %s\n", in.Metadata.Title)
	}
	if in.Metadata.Author != "" {
		responseText += fmt.Sprintf("Author: %s\n", in.Metadata.Author)
	}
	responseText += s.formatFields(in.Fields)
	for _, pt := range in.Text {
		text := strings.TrimSpace(pt.Text)
		if text == "" {
			continue
		}
		text = truncateRunes(text, textPreviewLimit)
		responseText += fmt.Sprintf("--- Page %d ---\n%s\n", pt.Page, text)
	}
	return responseText
}

// truncateRunes cuts text to at most limit runes, marking the cut
func truncateRunes(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	return string([]rune(text)[:limit]) + "..."
}

func (s *Server) formatStatus(st stage.Status) string {
	responseText := fmt.Sprintf("Step: %s\n", st.Route)
	responseText += fmt.Sprintf("Assignee: %s\n", st.Assignee)

	stages := make([]string, 0, len(st.Handoff))
	for stg, waiting := range st.Handoff {
		if waiting {
			stages = append(stages, string(stg))
		}
	}
	sort.Strings(stages)
	if len(stages) == 0 {
		responseText += "Handoff: none waiting\n"
	} else {
		responseText += fmt.Sprintf("Handoff: %s\n", strings.Join(stages, ", "))
	}

	responseText += s.formatDocumentStatus(st.Document)

	if len(st.Notifications) > 0 {
		responseText += "Recent notifications:\n"
		for _, n := range st.Notifications {
			responseText += fmt.Sprintf("  [%s] %s\n", n.Level, n.Message)
		}
	}
	return responseText
}

// numberArg reads a numeric argument. JSON numbers decode as float64.
func numberArg(args map[string]any, key string) (float64, bool) {
	switch v := args[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// kindList renders the supported field kinds for tool text
func kindList() string {
	names := make([]string, len(forms.Kinds))
	for i, k := range forms.Kinds {
		names[i] = k.String()
	}
	return strings.Join(names, ", ")
}
