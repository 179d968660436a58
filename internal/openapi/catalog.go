package openapi

import (
	"strings"

	v3 "github.com/pb33f/libopenapi/datamodel/high/v3"
)

// DefaultPageLimit caps a single tool listing page.
const DefaultPageLimit = 10

// enumeratedMethods is the fixed per-path method order surfaced as tools.
// TRACE is deliberately excluded.
var enumeratedMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "HEAD", "OPTIONS"}

// ToolInfo describes one operation surfaced as a tool.
type ToolInfo struct {
	ID        string
	Path      string
	Method    string
	Operation *v3.Operation
}

// Catalog enumerates a document's operations as tools in a stable order:
// paths in declared order, methods in the fixed order above.
type Catalog struct {
	doc *Document
}

func NewCatalog(doc *Document) *Catalog {
	return &Catalog{doc: doc}
}

// toolID derives a tool id for an operation: the declared operationId when
// present, otherwise "{method}_{path}" with slashes turned into underscores
// and any leading underscore removed.
func toolID(method, path string, op *v3.Operation) string {
	if op.OperationId != "" {
		return op.OperationId
	}
	p := strings.TrimLeft(strings.ReplaceAll(path, "/", "_"), "_")
	return strings.ToLower(method) + "_" + p
}

func operationForMethod(item *v3.PathItem, method string) *v3.Operation {
	switch method {
	case "GET":
		return item.Get
	case "POST":
		return item.Post
	case "PUT":
		return item.Put
	case "DELETE":
		return item.Delete
	case "PATCH":
		return item.Patch
	case "HEAD":
		return item.Head
	case "OPTIONS":
		return item.Options
	default:
		return nil
	}
}

// operations materializes the full enumeration. Documents are small enough
// that a plain slice beats a lazy iterator here.
func (c *Catalog) operations() []ToolInfo {
	var tools []ToolInfo
	if c.doc.Model.Paths == nil || c.doc.Model.Paths.PathItems == nil {
		return tools
	}
	for path, item := range c.doc.Model.Paths.PathItems.FromOldest() {
		for _, method := range enumeratedMethods {
			op := operationForMethod(item, method)
			if op == nil {
				continue
			}
			tools = append(tools, ToolInfo{
				ID:        toolID(method, path, op),
				Path:      path,
				Method:    method,
				Operation: op,
			})
		}
	}
	return tools
}

// List returns one page of tools. A non-empty cursor resumes after the tool
// whose id equals it; an unknown cursor yields an empty page. nextCursor is
// the last id of a full page and empty otherwise.
func (c *Catalog) List(cursor string, limit int) (tools []ToolInfo, nextCursor string) {
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	skipping := cursor != ""
	for _, t := range c.operations() {
		if skipping {
			if t.ID == cursor {
				skipping = false
			}
			continue
		}
		tools = append(tools, t)
		if len(tools) == limit {
			break
		}
	}
	if len(tools) == limit {
		nextCursor = tools[len(tools)-1].ID
	}
	return tools, nextCursor
}

// Find returns the first tool whose id matches, or false when none does.
func (c *Catalog) Find(id string) (ToolInfo, bool) {
	for _, t := range c.operations() {
		if t.ID == id {
			return t, true
		}
	}
	return ToolInfo{}, false
}
