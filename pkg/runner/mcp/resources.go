package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"tableflip.dev/journey/pkg/app"
	"tableflip.dev/journey/pkg/printers"
)

func registerResources(srv *server.MCPServer, svc *app.Service) {
	registerPurposeResource(srv, svc)
	registerSessionResource(srv, svc)
}

func registerPurposeResource(srv *server.MCPServer, svc *app.Service) {
	resource := mcp.NewResource(
		"journey://purpose",
		"Our Purpose",
		mcp.WithResourceDescription("The shared purpose statement."),
		mcp.WithMIMEType("application/json"),
	)

	srv.AddResource(resource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		p, err := svc.Purpose(ctx)
		if err != nil {
			return nil, err
		}
		return encodeResourceJSON(request.Params.URI, printers.ToPurposeJSON(p))
	})
}

func registerSessionResource(srv *server.MCPServer, svc *app.Service) {
	resource := mcp.NewResource(
		"journey://session",
		"Session",
		mcp.WithResourceDescription("Who the server is signed in as."),
		mcp.WithMIMEType("application/json"),
	)

	srv.AddResource(resource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		snap, err := svc.Whoami(ctx)
		if err != nil {
			return nil, err
		}
		return encodeResourceJSON(request.Params.URI, printers.ToSessionJSON(snap))
	})
}

func encodeResourceJSON(uri string, payload any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
