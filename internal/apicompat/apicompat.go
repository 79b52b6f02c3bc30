// Package apicompat detects backward-incompatible changes between two
// versions of the OpenAPI document: removed paths, removed operations and
// removed response codes. Both YAML and JSON documents are accepted.
package apicompat

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

var methods = map[string]struct{}{
	"get":     {},
	"put":     {},
	"post":    {},
	"delete":  {},
	"patch":   {},
	"head":    {},
	"options": {},
}

// Document is the subset of an OpenAPI document the check looks at:
// path -> method -> response codes.
type Document struct {
	Paths map[string]map[string]map[string]struct{}
}

// Parse reads a swagger/OpenAPI document.
func Parse(raw []byte) (*Document, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	paths, ok := toMap(doc["paths"])
	if !ok {
		return nil, errors.New("missing top-level paths field")
	}

	out := &Document{Paths: make(map[string]map[string]map[string]struct{}, len(paths))}
	for path, item := range paths {
		ops, ok := toMap(item)
		if !ok {
			continue
		}
		parsed := make(map[string]map[string]struct{})
		for method, op := range ops {
			method = strings.ToLower(strings.TrimSpace(method))
			if _, ok := methods[method]; !ok {
				continue
			}
			opMap, ok := toMap(op)
			if !ok {
				continue
			}
			codes := make(map[string]struct{})
			if responses, ok := toMap(opMap["responses"]); ok {
				for code := range responses {
					if code = strings.ToLower(strings.TrimSpace(code)); code != "" {
						codes[code] = struct{}{}
					}
				}
			}
			parsed[method] = codes
		}
		if len(parsed) > 0 {
			out.Paths[path] = parsed
		}
	}
	return out, nil
}

// toMap accepts both mapping shapes yaml.v3 produces; unquoted numeric
// response codes arrive as non-string keys.
func toMap(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	default:
		return nil, false
	}
}

// Compare lists everything base offers that revision no longer does,
// sorted for stable output. An empty result means revision is compatible.
func Compare(base, revision *Document) []string {
	var issues []string
	for path, baseOps := range base.Paths {
		revOps, ok := revision.Paths[path]
		if !ok {
			issues = append(issues, "removed path: "+path)
			continue
		}
		for method, codes := range baseOps {
			revCodes, ok := revOps[method]
			if !ok {
				issues = append(issues, fmt.Sprintf("removed operation: %s %s", strings.ToUpper(method), path))
				continue
			}
			for code := range codes {
				if _, ok := revCodes[code]; !ok {
					issues = append(issues, fmt.Sprintf("removed response code: %s %s -> %s",
						strings.ToUpper(method), path, strings.ToUpper(code)))
				}
			}
		}
	}
	sort.Strings(issues)
	return issues
}
