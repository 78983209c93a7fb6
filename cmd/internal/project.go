package internal

import (
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"

	"github.com/samber/mo"
	"golang.org/x/mod/modfile"
	"golang.org/x/tools/go/packages"
)

const toolModule = "github.com/kcmvp/arx"

// Project holds key information about the Go project being analyzed.
type Project struct {
	Root string
	Mod  *modfile.File
	Pkgs []*packages.Package
}

// Current returns the project enclosing the working directory. Packages are loaded on
// first use only, so commands that never inspect sources pay nothing for it.
var Current = sync.OnceValues(func() (*Project, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("could not get working directory: %w", err)
	}
	// Walk up parent directories to find go.mod. This allows running from
	// subpackages (like during `go test ./cmd/internal`).
	for dir := wd; ; dir = filepath.Dir(dir) {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return NewProject(dir)
		}
		if filepath.Dir(dir) == dir {
			return nil, fmt.Errorf("go.mod not found from %s", wd)
		}
	}
})

// NewProject parses the go.mod in root and loads the packages matching patterns,
// "./..." when none is given.
func NewProject(root string, patterns ...string) (*Project, error) {
	modPath := filepath.Join(root, "go.mod")
	modBytes, err := os.ReadFile(modPath)
	if err != nil {
		return nil, fmt.Errorf("could not read go.mod file: %w", err)
	}
	modFile, err := modfile.Parse(modPath, modBytes, nil)
	if err != nil {
		return nil, fmt.Errorf("could not parse go.mod file: %w", err)
	}
	if len(patterns) == 0 {
		patterns = []string{"./..."}
	}
	cfg := &packages.Config{
		Mode:  packages.NeedName | packages.NeedFiles | packages.NeedSyntax | packages.NeedTypes | packages.NeedTypesInfo | packages.NeedImports,
		Dir:   root,
		Tests: false,
	}
	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, fmt.Errorf("could not load project packages: %w", err)
	}
	var loadErr error
	packages.Visit(pkgs, nil, func(p *packages.Package) {
		if len(p.Errors) > 0 && loadErr == nil {
			loadErr = fmt.Errorf("package %s: %v", p.PkgPath, p.Errors[0])
		}
	})
	if loadErr != nil {
		return nil, loadErr
	}
	return &Project{Root: root, Mod: modFile, Pkgs: pkgs}, nil
}

// DependsOn returns the subset of deps the project module is, requires or replaces.
func (p *Project) DependsOn(deps ...string) mo.Option[[]string] {
	if p == nil || p.Mod == nil || len(deps) == 0 {
		return mo.None[[]string]()
	}
	available := make(map[string]struct{})
	if p.Mod.Module != nil && p.Mod.Module.Mod.Path != "" {
		available[p.Mod.Module.Mod.Path] = struct{}{}
	}
	for _, req := range p.Mod.Require {
		available[req.Mod.Path] = struct{}{}
	}
	for _, rep := range p.Mod.Replace {
		if rep.Old.Path != "" {
			available[rep.Old.Path] = struct{}{}
		}
		if rep.New.Path != "" {
			available[rep.New.Path] = struct{}{}
		}
	}
	var matched []string
	for _, d := range deps {
		if _, ok := available[d]; ok {
			matched = append(matched, d)
		}
	}
	if len(matched) == 0 {
		return mo.None[[]string]()
	}
	return mo.Some(matched)
}

// ToolModulePath returns the current tool's module path inferred at runtime.
// Test binaries carry no main module, so it falls back to the declared path.
func ToolModulePath() string {
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Path != "" && bi.Main.Path != "command-line-arguments" {
		return bi.Main.Path
	}
	return toolModule
}

// DependsOnTool reports whether the project depends on this tool's module path.
func (p *Project) DependsOnTool() bool {
	return p.DependsOn(ToolModulePath()).IsPresent()
}

// ToolEntityPackage is the import path of the package declaring Entity.
func ToolEntityPackage() string {
	return ToolModulePath() + "/entity"
}

// ToolConstraintPackage is the import path of the validators package.
func ToolConstraintPackage() string {
	return ToolModulePath() + "/constraint"
}

// EntityInfo holds the type spec and package of a discovered entity.
type EntityInfo struct {
	TypeSpec *ast.TypeSpec
	Pkg      *packages.Package
}

// entityInterface mirrors `interface{ Table() string }`.
var entityInterface = func() *types.Interface {
	sig := types.NewSignatureType(nil, nil, nil, nil,
		types.NewTuple(types.NewVar(token.NoPos, nil, "", types.Typ[types.String])), false)
	iface := types.NewInterfaceType([]*types.Func{types.NewFunc(token.NoPos, nil, "Table", sig)}, nil)
	return iface.Complete()
}()

// StructsImplementEntity finds all structs in the project that implement the
// entity.Entity interface, with value or pointer receivers.
func (p *Project) StructsImplementEntity() []EntityInfo {
	var implementers []EntityInfo
	for _, pkg := range p.Pkgs {
		for _, file := range pkg.Syntax {
			ast.Inspect(file, func(n ast.Node) bool {
				ts, ok := n.(*ast.TypeSpec)
				if !ok {
					return true
				}
				if _, ok = ts.Type.(*ast.StructType); !ok || ts.TypeParams != nil {
					return true
				}
				obj := pkg.TypesInfo.Defs[ts.Name]
				if obj == nil {
					return true
				}
				if types.Implements(obj.Type(), entityInterface) || types.Implements(types.NewPointer(obj.Type()), entityInterface) {
					implementers = append(implementers, EntityInfo{TypeSpec: ts, Pkg: pkg})
				}
				return true
			})
		}
	}
	return implementers
}

// Dir returns the directory holding the sources of the entity's package.
func (e EntityInfo) Dir() string {
	if len(e.Pkg.GoFiles) == 0 {
		return ""
	}
	return filepath.Dir(e.Pkg.GoFiles[0])
}
