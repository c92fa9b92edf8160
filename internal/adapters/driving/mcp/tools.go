package mcp

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rememex/rememex-cli/internal/core/domain"
	"github.com/rememex/rememex-cli/internal/core/services"
)

// errNotConfigured is returned by tools whose optional port is absent.
var errNotConfigured = errors.New("mcp: service not configured")

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query         string   `json:"query" jsonschema:"the search query"`
	TopK          int      `json:"top_k,omitempty" jsonschema:"maximum number of results (default 10, max 50)"`
	MinScore      float64  `json:"min_score,omitempty" jsonschema:"drop results scoring below this (0-100)"`
	Extensions    []string `json:"file_extensions,omitempty" jsonschema:"restrict to these file extensions"`
	PathPrefix    string   `json:"path_prefix,omitempty" jsonschema:"restrict to paths under this prefix"`
	ContextBytes  int      `json:"context_bytes,omitempty" jsonschema:"truncate snippets to this many bytes (max 10000)"`
	Container     string   `json:"container,omitempty" jsonschema:"container to search (default: active)"`
	DisableRerank bool     `json:"disable_rerank,omitempty" jsonschema:"skip the reranker stage"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents a single search result.
type SearchResultOutput struct {
	Path    string  `json:"path"`
	Snippet string  `json:"snippet,omitempty"`
	Score   float64 `json:"score"`
	Ordinal int     `json:"ordinal"`
}

// RelatedInput is the input schema for the related tool.
type RelatedInput struct {
	Path string `json:"path" jsonschema:"the reference file path"`
	TopK int    `json:"top_k,omitempty" jsonschema:"maximum number of results (default 10, max 30)"`
}

// RelatedOutput is the output schema for the related tool.
type RelatedOutput struct {
	Results []RelatedResultOutput `json:"results"`
}

// RelatedResultOutput is one file ranked by similarity.
type RelatedResultOutput struct {
	Path  string  `json:"path"`
	Score float64 `json:"score"`
}

// IndexFolderInput is the input schema for the index_folder tool.
type IndexFolderInput struct {
	Path string `json:"path" jsonschema:"absolute path of the folder to index"`
}

// JobOutput summarises an indexing job.
type JobOutput struct {
	Container string `json:"container"`
	Files     int    `json:"files"`
	Fragments int    `json:"fragments"`
}

// StatusOutput is the output schema for the index_status tool.
type StatusOutput struct {
	Container   string   `json:"container"`
	Files       int      `json:"files"`
	Fragments   int      `json:"fragments"`
	Annotations int      `json:"annotations"`
	Busy        bool     `json:"busy"`
	Provider    string   `json:"provider"`
	Model       string   `json:"model"`
	Dimensions  int      `json:"dimensions"`
	Roots       []string `json:"roots"`
}

// ReadFileInput is the input schema for the read_file tool.
type ReadFileInput struct {
	Path      string `json:"path" jsonschema:"path of an indexed file"`
	StartLine int    `json:"start_line,omitempty" jsonschema:"1-based first line to return"`
	EndLine   int    `json:"end_line,omitempty" jsonschema:"1-based last line to return"`
}

// ReadFileOutput is the output schema for the read_file tool.
type ReadFileOutput struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// ListFilesInput is the input schema for the list_files tool.
type ListFilesInput struct {
	PathPrefix string   `json:"path_prefix,omitempty" jsonschema:"only list files under this path prefix"`
	Extensions []string `json:"file_extensions,omitempty" jsonschema:"only list files with these extensions"`
}

// ListFilesOutput is the output schema for the list_files tool.
type ListFilesOutput struct {
	Files []FileInfoOutput `json:"files"`
	Count int              `json:"count"`
}

// FileInfoOutput summarises one indexed file.
type FileInfoOutput struct {
	Path      string `json:"path"`
	Size      int64  `json:"size"`
	Fragments int    `json:"fragments"`
	MTime     string `json:"mtime"`
}

// DiffInput is the input schema for the diff tool.
type DiffInput struct {
	Window   string `json:"window" jsonschema:"time window with s/m/h/d/w suffix, e.g. 30m or 2d"`
	Previews bool   `json:"previews,omitempty" jsonschema:"include the first lines of each changed file"`
}

// DiffOutput is the output schema for the diff tool.
type DiffOutput struct {
	Entries []DiffEntryOutput `json:"entries"`
}

// DiffEntryOutput is one changed file.
type DiffEntryOutput struct {
	Path    string `json:"path"`
	Status  string `json:"status"`
	MTime   string `json:"mtime"`
	Preview string `json:"preview,omitempty"`
}

// ContainerInput names a container.
type ContainerInput struct {
	Name        string `json:"name" jsonschema:"container name"`
	Description string `json:"description,omitempty" jsonschema:"optional description"`
}

// ContainersOutput is the output schema for the list_containers tool.
type ContainersOutput struct {
	Active     string            `json:"active"`
	Containers []ContainerOutput `json:"containers"`
}

// ContainerOutput describes one container.
type ContainerOutput struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Provider    string   `json:"provider"`
	Model       string   `json:"model"`
	Dimensions  int      `json:"dimensions"`
	Roots       []string `json:"roots,omitempty"`
}

// AnnotateInput is the input schema for the annotate tool.
type AnnotateInput struct {
	Path string `json:"path" jsonschema:"the file path the note refers to"`
	Note string `json:"note" jsonschema:"the annotation text"`
}

// AnnotationOutput describes one stored annotation.
type AnnotationOutput struct {
	ID        string `json:"id"`
	Path      string `json:"path"`
	Note      string `json:"note"`
	Source    string `json:"source"`
	CreatedAt string `json:"created_at"`
}

// AnnotationsInput is the input schema for the list_annotations tool.
type AnnotationsInput struct {
	Path string `json:"path,omitempty" jsonschema:"only annotations for this path"`
}

// AnnotationsOutput is the output schema for the list_annotations tool.
type AnnotationsOutput struct {
	Annotations []AnnotationOutput `json:"annotations"`
}

// IDInput carries a single identifier.
type IDInput struct {
	ID string `json:"id" jsonschema:"the identifier"`
}

// OKOutput acknowledges a state-changing tool call.
type OKOutput struct {
	Message string `json:"message"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Hybrid semantic and keyword search over indexed files",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "related",
		Description: "Find files similar to a given file",
	}, s.handleRelated)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "index_folder",
		Description: "Index a folder into the active container",
	}, s.handleIndexFolder)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "reindex_all",
		Description: "Rescan all roots of the active container",
	}, s.handleReindexAll)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "reset_index",
		Description: "Clear all fragments and annotations from the active container",
	}, s.handleResetIndex)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "index_status",
		Description: "Report the index state of the active container",
	}, s.handleIndexStatus)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "read_file",
		Description: "Read an indexed file, optionally restricted to a line range",
	}, s.handleReadFile)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_files",
		Description: "List indexed files, optionally filtered by path prefix and extension",
	}, s.handleListFiles)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "diff",
		Description: "List files added, modified or removed within a time window",
	}, s.handleDiff)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_containers",
		Description: "List index containers",
	}, s.handleListContainers)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "create_container",
		Description: "Create an index container",
	}, s.handleCreateContainer)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "delete_container",
		Description: "Delete a container and all its data",
	}, s.handleDeleteContainer)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "use_container",
		Description: "Switch the active container",
	}, s.handleUseContainer)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "annotate",
		Description: "Attach a note to a file; the note becomes searchable immediately",
	}, s.handleAnnotate)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_annotations",
		Description: "List annotations, newest first",
	}, s.handleListAnnotations)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "delete_annotation",
		Description: "Delete an annotation by ID",
	}, s.handleDeleteAnnotation)
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	opts := domain.SearchOptions{
		TopK:          input.TopK,
		MinScore:      input.MinScore,
		Extensions:    input.Extensions,
		PathPrefix:    input.PathPrefix,
		ContextBytes:  input.ContextBytes,
		Container:     input.Container,
		DisableRerank: input.DisableRerank,
	}

	results, err := s.ports.Search.Search(ctx, input.Query, opts)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]SearchResultOutput, len(results)),
		Count:   len(results),
	}
	for i, r := range results {
		output.Results[i] = SearchResultOutput{
			Path:    r.Path,
			Snippet: r.Snippet,
			Score:   r.Score,
			Ordinal: r.Ordinal,
		}
	}
	return nil, output, nil
}

func (s *Server) handleRelated(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RelatedInput,
) (*mcp.CallToolResult, RelatedOutput, error) {
	results, err := s.ports.Search.Related(ctx, input.Path, input.TopK)
	if err != nil {
		return nil, RelatedOutput{}, err
	}

	output := RelatedOutput{Results: make([]RelatedResultOutput, len(results))}
	for i, r := range results {
		output.Results[i] = RelatedResultOutput{Path: r.Path, Score: r.Score}
	}
	return nil, output, nil
}

func (s *Server) handleIndexFolder(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IndexFolderInput,
) (*mcp.CallToolResult, JobOutput, error) {
	if err := s.ports.Indexer.IndexFolder(ctx, input.Path); err != nil {
		return nil, JobOutput{}, err
	}
	return nil, s.jobSummary(ctx), nil
}

func (s *Server) handleReindexAll(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ struct{},
) (*mcp.CallToolResult, JobOutput, error) {
	if err := s.ports.Indexer.ReindexAll(ctx); err != nil {
		return nil, JobOutput{}, err
	}
	return nil, s.jobSummary(ctx), nil
}

func (s *Server) handleResetIndex(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ struct{},
) (*mcp.CallToolResult, OKOutput, error) {
	if err := s.ports.Indexer.ResetIndex(ctx); err != nil {
		return nil, OKOutput{}, err
	}
	return nil, OKOutput{Message: "index cleared"}, nil
}

// jobSummary reports post-job counters; a failed status read degrades to
// an empty summary rather than failing the tool call.
func (s *Server) jobSummary(ctx context.Context) JobOutput {
	status, err := s.ports.Indexer.Status(ctx)
	if err != nil {
		return JobOutput{}
	}
	return JobOutput{
		Container: status.Container,
		Files:     status.Files,
		Fragments: status.Fragments,
	}
}

func (s *Server) handleIndexStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ struct{},
) (*mcp.CallToolResult, StatusOutput, error) {
	status, err := s.ports.Indexer.Status(ctx)
	if err != nil {
		return nil, StatusOutput{}, err
	}
	return nil, StatusOutput{
		Container:   status.Container,
		Files:       status.Files,
		Fragments:   status.Fragments,
		Annotations: status.Annotations,
		Busy:        status.Busy,
		Provider:    status.Provider.Provider,
		Model:       status.Provider.Model,
		Dimensions:  status.Provider.Dimensions,
		Roots:       status.Roots,
	}, nil
}

func (s *Server) handleReadFile(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ReadFileInput,
) (*mcp.CallToolResult, ReadFileOutput, error) {
	if s.ports.Workspace == nil {
		return nil, ReadFileOutput{}, errNotConfigured
	}
	content, err := s.ports.Workspace.ReadFile(ctx, input.Path, input.StartLine, input.EndLine)
	if err != nil {
		return nil, ReadFileOutput{}, err
	}
	return nil, ReadFileOutput{Path: input.Path, Content: content}, nil
}

func (s *Server) handleListFiles(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListFilesInput,
) (*mcp.CallToolResult, ListFilesOutput, error) {
	if s.ports.Workspace == nil {
		return nil, ListFilesOutput{}, errNotConfigured
	}
	files, err := s.ports.Workspace.ListFiles(ctx, input.PathPrefix, input.Extensions)
	if err != nil {
		return nil, ListFilesOutput{}, err
	}

	output := ListFilesOutput{
		Files: make([]FileInfoOutput, len(files)),
		Count: len(files),
	}
	for i, f := range files {
		output.Files[i] = FileInfoOutput{
			Path:      f.Path,
			Size:      f.Size,
			Fragments: f.Fragments,
			MTime:     f.MTime.Format(timeFormat),
		}
	}
	return nil, output, nil
}

func (s *Server) handleDiff(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DiffInput,
) (*mcp.CallToolResult, DiffOutput, error) {
	if s.ports.Workspace == nil {
		return nil, DiffOutput{}, errNotConfigured
	}
	entries, err := s.ports.Workspace.Diff(ctx, input.Window, input.Previews)
	if err != nil {
		return nil, DiffOutput{}, err
	}

	output := DiffOutput{Entries: make([]DiffEntryOutput, len(entries))}
	for i, e := range entries {
		output.Entries[i] = DiffEntryOutput{
			Path:    e.Path,
			Status:  string(e.Status),
			MTime:   e.MTime.Format(timeFormat),
			Preview: e.Preview,
		}
	}
	return nil, output, nil
}

func (s *Server) handleListContainers(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ struct{},
) (*mcp.CallToolResult, ContainersOutput, error) {
	if s.ports.Container == nil {
		return nil, ContainersOutput{}, errNotConfigured
	}
	containers, err := s.ports.Container.List(ctx)
	if err != nil {
		return nil, ContainersOutput{}, err
	}
	active, err := s.ports.Container.Active(ctx)
	if err != nil {
		return nil, ContainersOutput{}, err
	}

	output := ContainersOutput{
		Active:     active.Name,
		Containers: make([]ContainerOutput, len(containers)),
	}
	for i, c := range containers {
		output.Containers[i] = ContainerOutput{
			Name:        c.Name,
			Description: c.Description,
			Provider:    c.Provider.Provider,
			Model:       c.Provider.Model,
			Dimensions:  c.Provider.Dimensions,
			Roots:       c.Roots,
		}
	}
	return nil, output, nil
}

func (s *Server) handleCreateContainer(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ContainerInput,
) (*mcp.CallToolResult, ContainerOutput, error) {
	if s.ports.Container == nil {
		return nil, ContainerOutput{}, errNotConfigured
	}
	c, err := s.ports.Container.Create(ctx, input.Name, input.Description)
	if err != nil {
		return nil, ContainerOutput{}, err
	}
	return nil, ContainerOutput{
		Name:        c.Name,
		Description: c.Description,
		Provider:    c.Provider.Provider,
		Model:       c.Provider.Model,
		Dimensions:  c.Provider.Dimensions,
	}, nil
}

func (s *Server) handleDeleteContainer(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ContainerInput,
) (*mcp.CallToolResult, OKOutput, error) {
	if s.ports.Container == nil {
		return nil, OKOutput{}, errNotConfigured
	}
	if err := s.ports.Container.Delete(ctx, input.Name); err != nil {
		return nil, OKOutput{}, err
	}
	return nil, OKOutput{Message: "container " + input.Name + " deleted"}, nil
}

func (s *Server) handleUseContainer(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ContainerInput,
) (*mcp.CallToolResult, OKOutput, error) {
	if s.ports.Container == nil {
		return nil, OKOutput{}, errNotConfigured
	}
	if err := s.ports.Container.SetActive(ctx, input.Name); err != nil {
		return nil, OKOutput{}, err
	}
	return nil, OKOutput{Message: "active container: " + input.Name}, nil
}

func (s *Server) handleAnnotate(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AnnotateInput,
) (*mcp.CallToolResult, AnnotationOutput, error) {
	if s.ports.Annotation == nil {
		return nil, AnnotationOutput{}, errNotConfigured
	}
	a, err := s.ports.Annotation.Add(ctx, input.Path, input.Note, services.AnnotationSourceAgent)
	if err != nil {
		return nil, AnnotationOutput{}, err
	}
	return nil, annotationOutput(*a), nil
}

func (s *Server) handleListAnnotations(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AnnotationsInput,
) (*mcp.CallToolResult, AnnotationsOutput, error) {
	if s.ports.Annotation == nil {
		return nil, AnnotationsOutput{}, errNotConfigured
	}
	annotations, err := s.ports.Annotation.Get(ctx, input.Path)
	if err != nil {
		return nil, AnnotationsOutput{}, err
	}

	output := AnnotationsOutput{Annotations: make([]AnnotationOutput, len(annotations))}
	for i, a := range annotations {
		output.Annotations[i] = annotationOutput(a)
	}
	return nil, output, nil
}

func (s *Server) handleDeleteAnnotation(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IDInput,
) (*mcp.CallToolResult, OKOutput, error) {
	if s.ports.Annotation == nil {
		return nil, OKOutput{}, errNotConfigured
	}
	if err := s.ports.Annotation.Delete(ctx, input.ID); err != nil {
		return nil, OKOutput{}, err
	}
	return nil, OKOutput{Message: "annotation deleted"}, nil
}

// timeFormat is RFC 3339 with second precision.
const timeFormat = "2006-01-02T15:04:05Z07:00"

func annotationOutput(a domain.Annotation) AnnotationOutput {
	return AnnotationOutput{
		ID:        a.ID,
		Path:      a.Path,
		Note:      a.Note,
		Source:    a.Source,
		CreatedAt: a.CreatedAt.Format(timeFormat),
	}
}
