// Command openapi-compat fails when a revised API document drops paths,
// operations or response codes that the base document offers. Without
// -revision the document compiled into this build is used.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"feedhub/docs"
	"feedhub/internal/apicompat"
)

func main() {
	basePath := flag.String("base", "", "base swagger.yaml or swagger.json path")
	revisionPath := flag.String("revision", "", "revision document path (default: bundled docs)")
	flag.Parse()

	if strings.TrimSpace(*basePath) == "" {
		fmt.Fprintln(os.Stderr, "usage: openapi-compat -base <path> [-revision <path>]")
		os.Exit(2)
	}

	base, err := load(*basePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load base document: %v\n", err)
		os.Exit(1)
	}
	revision, err := load(*revisionPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load revision document: %v\n", err)
		os.Exit(1)
	}

	if issues := apicompat.Compare(base, revision); len(issues) > 0 {
		fmt.Fprintln(os.Stderr, "backward compatibility check failed:")
		for _, issue := range issues {
			fmt.Fprintf(os.Stderr, "- %s\n", issue)
		}
		os.Exit(1)
	}
	fmt.Println("openapi compatibility check passed")
}

func load(path string) (*apicompat.Document, error) {
	if strings.TrimSpace(path) == "" {
		return apicompat.Parse([]byte(docs.SwaggerInfo.ReadDoc()))
	}
	// #nosec G304: path comes from CLI flags in a dev tool
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return apicompat.Parse(raw)
}
