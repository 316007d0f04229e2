package main

import (
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const modulePath = "fellowship"

// layerPolicy says what the packages under Layer (relative to the service
// root, "" for the root package itself) may depend on. Packages are allowed
// exactly, Trees by prefix, Libraries by module prefix.
type layerPolicy struct {
	Layer     string
	Packages  []string
	Trees     []string
	Libraries []string
}

var policies = []layerPolicy{
	{Layer: "domain", Trees: []string{"domain"}},
	{Layer: "ports", Trees: []string{"domain"}},
	{Layer: "application", Trees: []string{"domain", "ports"}},
	{Layer: "application/commands", Packages: []string{"application"}, Trees: []string{"domain", "ports"}},
	{Layer: "application/queries", Packages: []string{"application"}, Trees: []string{"domain", "ports"}},
	{Layer: "application/workers", Packages: []string{"application"}, Trees: []string{"domain", "ports"}},
	{Layer: "transport/http"},
	{
		Layer:     "adapters/memory",
		Trees:     []string{"domain", "ports"},
		Libraries: []string{"github.com/google/uuid"},
	},
	{
		Layer:     "adapters/postgres",
		Trees:     []string{"domain", "ports"},
		Libraries: []string{"gorm.io/gorm", "github.com/jackc/pgx/v5", "github.com/google/uuid"},
	},
	{
		Layer:     "adapters/http",
		Trees:     []string{"application", "domain", "transport/http"},
		Libraries: []string{"github.com/microcosm-cc/bluemonday"},
	},
	{Layer: "", Trees: []string{"adapters", "application", "domain", "ports", "transport"}},
}

type violation struct {
	File   string
	Line   int
	Import string
	Rule   string
}

func main() {
	violations := collectViolations("contexts")
	if len(violations) == 0 {
		fmt.Println("boundary checks passed")
		return
	}

	sort.Slice(violations, func(i, j int) bool {
		if violations[i].File != violations[j].File {
			return violations[i].File < violations[j].File
		}
		return violations[i].Line < violations[j].Line
	})
	fmt.Printf("%d boundary violations:\n", len(violations))
	for _, v := range violations {
		if v.Import == "" {
			fmt.Printf("- %s:%d %s\n", v.File, v.Line, v.Rule)
			continue
		}
		fmt.Printf("- %s:%d imports %q (%s)\n", v.File, v.Line, v.Import, v.Rule)
	}
	os.Exit(1)
}

// collectViolations walks root, laid out as contexts/<area>/<service>/..., and
// checks every non-test file against the policy of its layer.
func collectViolations(root string) []violation {
	var violations []violation
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		normalized := filepath.ToSlash(path)
		parts := strings.Split(normalized, "/")
		if len(parts) < 4 || parts[0] != "contexts" {
			return nil
		}
		service := fmt.Sprintf("%s/contexts/%s/%s", modulePath, parts[1], parts[2])
		layer := strings.Join(parts[3:len(parts)-1], "/")

		policy, ok := policyFor(layer)
		if !ok {
			violations = append(violations, violation{File: normalized, Line: 1, Rule: "file is outside a known layer"})
			return nil
		}
		violations = append(violations, checkFile(path, normalized, layer, service, policy)...)
		return nil
	})
	return violations
}

// policyFor picks the most specific policy covering layer. The root policy
// covers only the service root package.
func policyFor(layer string) (layerPolicy, bool) {
	var best layerPolicy
	found := false
	for _, p := range policies {
		if p.Layer == "" {
			if layer == "" {
				return p, true
			}
			continue
		}
		if hasPrefix(layer, p.Layer) && (!found || len(p.Layer) > len(best.Layer)) {
			best, found = p, true
		}
	}
	return best, found
}

func checkFile(path string, normalized string, layer string, service string, policy layerPolicy) []violation {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
	if err != nil {
		return []violation{{File: normalized, Line: 1, Rule: "file must parse"}}
	}

	var violations []violation
	for _, imp := range file.Imports {
		importPath := strings.Trim(imp.Path.Value, "\"")
		if rule := judgeImport(importPath, layer, service, policy); rule != "" {
			violations = append(violations, violation{
				File:   normalized,
				Line:   fset.Position(imp.Pos()).Line,
				Import: importPath,
				Rule:   rule,
			})
		}
	}
	return violations
}

// judgeImport returns the broken rule, or "" when importPath is allowed.
func judgeImport(importPath string, layer string, service string, policy layerPolicy) string {
	switch {
	case isStdlib(importPath):
		return ""
	case hasPrefix(importPath, modulePath+"/internal"), hasPrefix(importPath, modulePath+"/cmd"):
		return "contexts must not import platform packages"
	case hasPrefix(importPath, service):
		target := strings.TrimPrefix(strings.TrimPrefix(importPath, service), "/")
		if layerAllows(policy, layer, target) {
			return ""
		}
		return fmt.Sprintf("%s must not import %s", displayLayer(layer), displayLayer(target))
	case hasPrefix(importPath, modulePath):
		return "cross-context imports are forbidden"
	}

	for _, lib := range policy.Libraries {
		if hasPrefix(importPath, lib) {
			return ""
		}
	}
	if owners := libraryOwners(importPath); len(owners) > 0 {
		return fmt.Sprintf("library is reserved for %s", strings.Join(owners, ", "))
	}
	return "library is not declared for any layer"
}

func layerAllows(policy layerPolicy, layer string, target string) bool {
	if target == layer {
		return true
	}
	for _, p := range policy.Packages {
		if target == p {
			return true
		}
	}
	for _, t := range policy.Trees {
		if hasPrefix(target, t) {
			return true
		}
	}
	return false
}

func libraryOwners(importPath string) []string {
	var owners []string
	for _, p := range policies {
		for _, lib := range p.Libraries {
			if hasPrefix(importPath, lib) {
				owners = append(owners, displayLayer(p.Layer))
			}
		}
	}
	return owners
}

func displayLayer(layer string) string {
	if layer == "" {
		return "module root"
	}
	return layer
}

func hasPrefix(path string, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func isStdlib(importPath string) bool {
	if hasPrefix(importPath, modulePath) {
		return false
	}
	first := importPath
	if idx := strings.Index(first, "/"); idx != -1 {
		first = first[:idx]
	}
	return !strings.Contains(first, ".")
}
