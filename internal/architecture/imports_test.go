package architecture_test

import (
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"testing"
)

// importGraph maps a module-relative package dir to the module-internal
// packages its non-test files import.
type importGraph map[string]map[string]bool

type rule struct {
	from   string
	banned []string
}

func TestLayerBoundaries(t *testing.T) {
	g, mod := loadGraph(t)
	in := func(p string) string { return mod + "/" + p }

	rules := []rule{
		{from: "internal/domain", banned: []string{in("internal/platform"), in("internal/data"), in("internal/modules"), in("internal/http"), in("internal/app")}},
		{from: "internal/platform", banned: []string{in("internal/data"), in("internal/modules"), in("internal/http"), in("internal/app")}},
		{from: "internal/data", banned: []string{in("internal/modules"), in("internal/http"), in("internal/app")}},
		{from: "internal/realtime", banned: []string{in("internal/modules"), in("internal/http"), in("internal/app")}},
		{from: "internal/modules", banned: []string{in("internal/http"), in("internal/app")}},
		// Handlers reach storage through the coursework services.
		{from: "internal/http", banned: []string{in("internal/data/repos"), in("internal/app")}},
	}
	check(t, g, rules)
}

func TestCourseworkModuleLayers(t *testing.T) {
	g, mod := loadGraph(t)
	cw := func(p string) string { return mod + "/internal/modules/coursework/" + p }

	// prompts is the leaf; agents and ingestion sit on it; the pipeline,
	// study modes and chat are the entry points and never call each other.
	rules := []rule{
		{from: "internal/modules/coursework/prompts", banned: []string{cw("agents"), cw("ingestion"), cw("pipeline"), cw("modes"), cw("chat")}},
		{from: "internal/modules/coursework/agents", banned: []string{cw("ingestion"), cw("pipeline"), cw("modes"), cw("chat")}},
		{from: "internal/modules/coursework/ingestion", banned: []string{cw("agents"), cw("pipeline"), cw("modes"), cw("chat")}},
		{from: "internal/modules/coursework/pipeline", banned: []string{cw("modes"), cw("chat")}},
		{from: "internal/modules/coursework/modes", banned: []string{cw("pipeline"), cw("chat")}},
		{from: "internal/modules/coursework/chat", banned: []string{cw("pipeline"), cw("modes")}},
	}
	check(t, g, rules)
}

func check(t *testing.T, g importGraph, rules []rule) {
	t.Helper()
	for _, r := range rules {
		r := r
		t.Run(r.from, func(t *testing.T) {
			var bad []string
			for pkg, imps := range g {
				if pkg != r.from && !strings.HasPrefix(pkg, r.from+"/") {
					continue
				}
				for imp := range imps {
					for _, b := range r.banned {
						if imp == b || strings.HasPrefix(imp, b+"/") {
							bad = append(bad, fmt.Sprintf("%s imports %q", pkg, imp))
							break
						}
					}
				}
			}
			if len(bad) > 0 {
				sort.Strings(bad)
				t.Fatalf("import boundary violations:\n- %s", strings.Join(bad, "\n- "))
			}
		})
	}
}

func loadGraph(t *testing.T) (importGraph, string) {
	t.Helper()
	root, mod := moduleRoot(t)
	fset := token.NewFileSet()
	g := importGraph{}

	err := filepath.WalkDir(filepath.Join(root, "internal"), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		f, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, filepath.Dir(path))
		if err != nil {
			return err
		}
		pkg := filepath.ToSlash(rel)
		if g[pkg] == nil {
			g[pkg] = map[string]bool{}
		}
		for _, spec := range f.Imports {
			imp, err := strconv.Unquote(spec.Path.Value)
			if err == nil && strings.HasPrefix(imp, mod+"/") {
				g[pkg][imp] = true
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk internal/: %v", err)
	}
	return g, mod
}

// moduleRoot walks up from the test's directory to go.mod and returns the
// root dir and module path.
func moduleRoot(t *testing.T) (string, string) {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	for {
		raw, err := os.ReadFile(filepath.Join(dir, "go.mod"))
		if err == nil {
			for _, line := range strings.Split(string(raw), "\n") {
				if mp, ok := strings.CutPrefix(strings.TrimSpace(line), "module "); ok && strings.TrimSpace(mp) != "" {
					return dir, strings.TrimSpace(mp)
				}
			}
			t.Fatalf("module path not found in %s/go.mod", dir)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatalf("go.mod not found")
		}
		dir = parent
	}
}
