package unitycatalog

import (
	"sort"
	"strings"

	apierrors "github.com/revodata/databricks-mcp-server/internal/errors"
)

// Separator joins the levels of a fully-qualified name
const Separator = "."

// Hierarchy is the three-level namespace: catalog -> schema -> tables
type Hierarchy map[string]map[string][]string

// JoinName builds a dotted name. Every part must be non-empty and free of the
// separator, otherwise the name could not be split back unambiguously.
func JoinName(parts ...string) (string, error) {
	for _, p := range parts {
		if p == "" {
			return "", &apierrors.NamespaceIntegrityError{Name: strings.Join(parts, Separator), Reason: "empty component"}
		}
		if strings.Contains(p, Separator) {
			return "", &apierrors.NamespaceIntegrityError{Name: p, Reason: "component contains '" + Separator + "'"}
		}
	}
	return strings.Join(parts, Separator), nil
}

// SplitName splits a dotted name into exactly n non-empty parts
func SplitName(name string, n int) ([]string, error) {
	parts := strings.Split(name, Separator)
	if len(parts) != n {
		return nil, &apierrors.NamespaceIntegrityError{Name: name, Reason: "expected " + levels(n)}
	}
	for _, p := range parts {
		if p == "" {
			return nil, &apierrors.NamespaceIntegrityError{Name: name, Reason: "empty component"}
		}
	}
	return parts, nil
}

func levels(n int) string {
	switch n {
	case 2:
		return "catalog.schema"
	case 3:
		return "catalog.schema.table"
	default:
		return "a dotted name"
	}
}

// BuildHierarchy groups fully-qualified table names by catalog and schema.
// Levels are created on first insertion; tables keep their input order.
func BuildHierarchy(names []string) (Hierarchy, error) {
	h := make(Hierarchy)
	for _, name := range names {
		parts, err := SplitName(name, 3)
		if err != nil {
			return nil, err
		}
		catalog, schema, table := parts[0], parts[1], parts[2]
		schemas, ok := h[catalog]
		if !ok {
			schemas = make(map[string][]string)
			h[catalog] = schemas
		}
		schemas[schema] = append(schemas[schema], table)
	}
	return h, nil
}

// Flatten is the inverse of BuildHierarchy. Catalogs and schemas are sorted;
// tables keep their order within a schema.
func Flatten(h Hierarchy) []string {
	names := make([]string, 0)
	catalogs := make([]string, 0, len(h))
	for c := range h {
		catalogs = append(catalogs, c)
	}
	sort.Strings(catalogs)

	for _, c := range catalogs {
		schemas := make([]string, 0, len(h[c]))
		for s := range h[c] {
			schemas = append(schemas, s)
		}
		sort.Strings(schemas)
		for _, s := range schemas {
			for _, t := range h[c][s] {
				names = append(names, c+Separator+s+Separator+t)
			}
		}
	}
	return names
}
