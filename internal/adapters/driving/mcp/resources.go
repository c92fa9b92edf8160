package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// uriScheme is the custom URI scheme for Rememex resources.
	uriScheme = "rememex://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Static resource for listing containers.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "containers",
		Name:        "containers",
		Description: "List of all index containers",
		MIMEType:    "application/json",
	}, s.handleContainersResource)

	// Static resource for the active container's file list.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "files",
		Name:        "files",
		Description: "Files indexed in the active container",
		MIMEType:    "application/json",
	}, s.handleFilesResource)

	// Template for file content.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "files/{+path}",
		Name:        "file-content",
		Description: "Content of an indexed file",
		MIMEType:    "text/plain",
	}, s.handleFileContentResource)
}

// handleContainersResource returns a list of all containers.
func (s *Server) handleContainersResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Container == nil {
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     "[]",
			}},
		}, nil
	}

	containers, err := s.ports.Container.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing containers: %w", err)
	}

	infos := make([]ContainerOutput, len(containers))
	for i, c := range containers {
		infos[i] = ContainerOutput{
			Name:        c.Name,
			Description: c.Description,
			Provider:    c.Provider.Provider,
			Model:       c.Provider.Model,
			Dimensions:  c.Provider.Dimensions,
			Roots:       c.Roots,
		}
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling containers: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// handleFilesResource returns the active container's indexed files.
func (s *Server) handleFilesResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Workspace == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	files, err := s.ports.Workspace.ListFiles(ctx, "", nil)
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}

	infos := make([]FileInfoOutput, len(files))
	for i, f := range files {
		infos[i] = FileInfoOutput{
			Path:      f.Path,
			Size:      f.Size,
			Fragments: f.Fragments,
			MTime:     f.MTime.Format(timeFormat),
		}
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling files: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// handleFileContentResource returns the content of an indexed file.
// Reads go through the workspace service, which confines them to the
// active container's roots.
func (s *Server) handleFileContentResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Workspace == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	path := extractFilePath(req.Params.URI)
	if path == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	content, err := s.ports.Workspace.ReadFile(ctx, path, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     content,
		}},
	}, nil
}

// extractFilePath extracts the absolute path from a URI like
// rememex://files/home/user/notes.md.
func extractFilePath(uri string) string {
	const prefix = uriScheme + "files/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	path := strings.TrimPrefix(uri, prefix)
	if path == "" {
		return ""
	}
	return "/" + strings.TrimPrefix(path, "/")
}
