package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"tableflip.dev/journey/pkg/app"
	"tableflip.dev/journey/pkg/crud"
	"tableflip.dev/journey/pkg/printers"
	"tableflip.dev/journey/pkg/record"
	"tableflip.dev/journey/pkg/router"
)

func registerTools(srv *server.MCPServer, svc *app.Service) {
	srv.AddTool(listMomentsTool(), listMoments(svc))
	srv.AddTool(addMomentTool(), addMoment(svc))
	srv.AddTool(listJournalTool(), listJournal(svc))
	srv.AddTool(addJournalEntryTool(), addJournalEntry(svc))
	srv.AddTool(getPurposeTool(), getPurpose(svc))
	srv.AddTool(setPurposeTool(), setPurpose(svc))
	srv.AddTool(deleteRecordTool(), deleteRecord(svc))
}

func typeNames() []string {
	names := make([]string, 0, 3)
	for _, t := range record.MomentTypes() {
		names = append(names, string(t))
	}
	return names
}

func listMomentsTool() mcp.Tool {
	return mcp.NewTool(
		"list_moments",
		mcp.WithDescription("List our moments, newest first."),
	)
}

func listMoments(svc *app.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		moments, err := svc.Moments(ctx)
		if err != nil {
			return toolError(err), nil
		}
		out := make([]printers.MomentJSON, 0, len(moments))
		for _, m := range moments {
			out = append(out, printers.ToMomentJSON(m))
		}
		return toJSONResult(map[string]any{"moments": out, "count": len(out)})
	}
}

func addMomentTool() mcp.Tool {
	return mcp.NewTool(
		"add_moment",
		mcp.WithDescription("Record a new moment. Returns the saved moment."),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Short title of the moment."),
		),
		mcp.WithString("description",
			mcp.Description("Optional longer description."),
		),
		mcp.WithString("type",
			mcp.Description("Kind of moment. Unknown values are stored as star."),
			mcp.Enum(typeNames()...),
		),
	)
}

func addMoment(svc *app.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			Type        string `json:"type"`
		}
		if err := request.BindArguments(&args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		m, err := svc.AddMoment(ctx, record.MomentForm{
			Title:       args.Title,
			Description: args.Description,
			Type:        record.ParseMomentType(args.Type),
		})
		if err != nil {
			return toolError(err), nil
		}
		return toJSONResult(map[string]any{"status": "created", "moment": printers.ToMomentJSON(m)})
	}
}

func listJournalTool() mcp.Tool {
	return mcp.NewTool(
		"list_journal",
		mcp.WithDescription("List journal entries, newest first."),
	)
}

func listJournal(svc *app.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		entries, err := svc.Journal(ctx)
		if err != nil {
			return toolError(err), nil
		}
		out := make([]printers.JournalEntryJSON, 0, len(entries))
		for _, e := range entries {
			out = append(out, printers.ToJournalEntryJSON(e))
		}
		return toJSONResult(map[string]any{"entries": out, "count": len(out)})
	}
}

func addJournalEntryTool() mcp.Tool {
	return mcp.NewTool(
		"add_journal_entry",
		mcp.WithDescription("Write a journal entry. Returns the saved entry."),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Body of the entry."),
		),
	)
}

func addJournalEntry(svc *app.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := request.RequireString("text")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		e, err := svc.AddJournalEntry(ctx, text)
		if err != nil {
			return toolError(err), nil
		}
		return toJSONResult(map[string]any{"status": "created", "entry": printers.ToJournalEntryJSON(e)})
	}
}

func getPurposeTool() mcp.Tool {
	return mcp.NewTool(
		"get_purpose",
		mcp.WithDescription("Read our purpose statement. Text is empty when it has never been written."),
	)
}

func getPurpose(svc *app.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		p, err := svc.Purpose(ctx)
		if err != nil {
			return toolError(err), nil
		}
		return toJSONResult(printers.ToPurposeJSON(p))
	}
}

func setPurposeTool() mcp.Tool {
	return mcp.NewTool(
		"set_purpose",
		mcp.WithDescription("Rewrite our purpose statement. Empty text clears it."),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("The new purpose."),
		),
	)
}

func setPurpose(svc *app.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := request.RequireString("text")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		p, err := svc.SetPurpose(ctx, text)
		if err != nil {
			return toolError(err), nil
		}
		return toJSONResult(printers.ToPurposeJSON(p))
	}
}

func deleteRecordTool() mcp.Tool {
	return mcp.NewTool(
		"delete_record",
		mcp.WithDescription("Delete a moment or journal entry you created. Calling this tool is the confirmation."),
		mcp.WithString("view",
			mcp.Required(),
			mcp.Description("Where the record lives."),
			mcp.Enum(string(router.Moments), string(router.Journal)),
		),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Record identifier."),
		),
	)
}

func deleteRecord(svc *app.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		view, err := request.RequireString("view")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		id, err := request.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		v, err := router.Parse(view)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := svc.Delete(ctx, v, strings.TrimSpace(id)); err != nil {
			return toolError(err), nil
		}
		return toJSONResult(map[string]any{"deleted": id, "view": v})
	}
}

// toolError renders domain errors the way the other surfaces do.
func toolError(err error) *mcp.CallToolResult {
	if errors.Is(err, app.ErrNotSignedIn) {
		return mcp.NewToolResultError("not signed in")
	}
	return mcp.NewToolResultError(crud.Message("record", err))
}

func toJSONResult(data any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal error: %v", err)), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}
