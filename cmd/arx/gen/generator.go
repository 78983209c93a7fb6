package gen

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/format"
	"go/types"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"
	"text/template"

	_ "embed"

	"github.com/kcmvp/arx/cmd/internal"
	"github.com/samber/lo"
	"golang.org/x/tools/go/packages"
)

//go:embed resources/mapping.tmpl
var mappingTmpl string

const (
	tagKey     = "arx"
	optionPkg  = "github.com/samber/mo"
	genSuffix  = "_mapping_gen.go"
	validatePf = "validate:"
)

var tmpl = template.Must(template.New("mapping").Parse(mappingTmpl))

// Field is a persisted struct field, declared as mo.Option[T].
type Field struct {
	GoName     string // Go field name (e.g., "CreatedAt").
	GoType     string // Option type argument (e.g., "time.Time").
	Column     string // database column name (e.g., "created_at").
	IsPK       bool
	Auto       bool
	Validators []string // Go expressions yielding constraint.ValidateFunc values.
}

// Ctor returns the entity package constructor declaring the field.
func (f Field) Ctor() string {
	switch {
	case f.IsPK && f.Auto:
		return "AutoPK"
	case f.IsPK:
		return "PK"
	default:
		return "Col"
	}
}

// EntityMeta holds what is needed to generate the mapping of one entity.
type EntityMeta struct {
	StructName string
	PkgName    string
	Dir        string
	Imports    []string
	Fields     []Field
}

// isSupportedType reports whether typ can be stored in a column.
func isSupportedType(typ types.Type) bool {
	if named, ok := typ.(*types.Named); ok {
		return named.Obj().Pkg() != nil && named.Obj().Pkg().Path() == "time" && named.Obj().Name() == "Time"
	}
	basic, ok := typ.(*types.Basic)
	if !ok {
		return false
	}
	allowed := map[types.BasicKind]struct{}{
		types.Bool:    {},
		types.Int:     {},
		types.Int8:    {},
		types.Int16:   {},
		types.Int32:   {},
		types.Int64:   {},
		types.Uint:    {},
		types.Uint8:   {},
		types.Uint16:  {},
		types.Uint32:  {},
		types.Uint64:  {},
		types.Float32: {},
		types.Float64: {},
		types.String:  {},
	}
	_, ok = allowed[basic.Kind()]
	return ok
}

func isNumber(goType string) bool {
	return strings.HasPrefix(goType, "int") || strings.HasPrefix(goType, "uint") || strings.HasPrefix(goType, "float")
}

// optionArg returns T when typ is mo.Option[T].
func optionArg(typ types.Type) (types.Type, bool) {
	named, ok := typ.(*types.Named)
	if !ok || named.Obj().Pkg() == nil {
		return nil, false
	}
	if named.Obj().Pkg().Path() != optionPkg || named.Obj().Name() != "Option" || named.TypeArgs().Len() != 1 {
		return nil, false
	}
	return named.TypeArgs().At(0), true
}

// splitTag splits tag on ';' outside of quotes and brackets, so validator
// expressions such as constraint.OneOf("a;b") stay whole.
func splitTag(tag string) []string {
	var (
		parts []string
		depth int
		quote rune
		start int
	)
	for i, r := range tag {
		switch {
		case quote != 0:
			if r == quote && (i == 0 || tag[i-1] != '\\') {
				quote = 0
			}
		case r == '"' || r == '\'' || r == '`':
			quote = r
		case r == '(' || r == '[' || r == '{':
			depth++
		case r == ')' || r == ']' || r == '}':
			depth--
		case r == ';' && depth == 0:
			parts = append(parts, tag[start:i])
			start = i + 1
		}
	}
	return append(parts, tag[start:])
}

// parseTag applies an `arx:"column;pk;auto;validate:expr"` tag to field. The column name
// may only come first; every other segment is a directive. Directives are case-insensitive.
// A ';' inside a validator expression must sit within quotes or brackets.
func parseTag(tag string, field *Field) error {
	for i, d := range splitTag(tag) {
		d = strings.TrimSpace(d)
		switch {
		case d == "":
		case strings.EqualFold(d, "pk"):
			field.IsPK = true
		case strings.EqualFold(d, "auto"):
			field.Auto = true
		case len(d) >= len(validatePf) && strings.EqualFold(d[:len(validatePf)], validatePf):
			expr := strings.TrimSpace(d[len(validatePf):])
			if expr == "" {
				return fmt.Errorf("field %s: empty validator", field.GoName)
			}
			field.Validators = append(field.Validators, expr)
		case i == 0:
			field.Column = d
		default:
			return fmt.Errorf("field %s: unknown directive %q", field.GoName, d)
		}
	}
	if field.Auto && !field.IsPK {
		return fmt.Errorf("field %s: auto requires pk", field.GoName)
	}
	if field.Auto && !isNumber(field.GoType) {
		return fmt.Errorf("field %s: auto requires a numeric type, got %s", field.GoName, field.GoType)
	}
	if field.Auto && len(field.Validators) > 0 {
		return fmt.Errorf("field %s: generated keys take no validator", field.GoName)
	}
	return nil
}

// parseFields collects the mo.Option fields of spec. Fields of other types are not persisted;
// embedded structs are not supported.
func parseFields(pkg *packages.Package, spec *ast.TypeSpec) ([]Field, error) {
	structType, ok := spec.Type.(*ast.StructType)
	if !ok {
		return nil, nil
	}
	var fields []Field
	for _, field := range structType.Fields.List {
		if len(field.Names) == 0 {
			return nil, fmt.Errorf("%s: embedded fields are not supported", spec.Name.Name)
		}
		tag := ""
		if field.Tag != nil {
			tag = reflect.StructTag(strings.Trim(field.Tag.Value, "`")).Get(tagKey)
		}
		if tag == "-" {
			continue
		}
		typ := pkg.TypesInfo.TypeOf(field.Type)
		if typ == nil {
			continue
		}
		arg, ok := optionArg(typ)
		if !ok {
			continue
		}
		if !isSupportedType(arg) {
			return nil, fmt.Errorf("unsupported field type %s for field %s.%s", arg.String(), spec.Name.Name, field.Names[0].Name)
		}
		for _, name := range field.Names {
			if !name.IsExported() {
				continue
			}
			f := Field{
				GoName: name.Name,
				GoType: arg.String(),
				Column: lo.SnakeCase(name.Name),
			}
			if err := parseTag(tag, &f); err != nil {
				return nil, fmt.Errorf("%s: %w", spec.Name.Name, err)
			}
			fields = append(fields, f)
		}
	}
	return fields, nil
}

// buildMeta validates the fields of one entity and derives its imports.
func buildMeta(info internal.EntityInfo) (EntityMeta, error) {
	name := info.TypeSpec.Name.Name
	fields, err := parseFields(info.Pkg, info.TypeSpec)
	if err != nil {
		return EntityMeta{}, err
	}
	if len(fields) == 0 {
		return EntityMeta{}, fmt.Errorf("no supported fields found for entity %s", name)
	}
	if pks := lo.CountBy(fields, func(f Field) bool { return f.IsPK }); pks != 1 {
		return EntityMeta{}, fmt.Errorf("entity %s must declare exactly one pk, found %d", name, pks)
	}
	if dup := lo.FindDuplicatesBy(fields, func(f Field) string { return strings.ToLower(f.Column) }); len(dup) > 0 {
		return EntityMeta{}, fmt.Errorf("entity %s declares column %s twice", name, dup[0].Column)
	}
	imports := []string{internal.ToolEntityPackage(), optionPkg}
	if lo.ContainsBy(fields, func(f Field) bool { return f.GoType == "time.Time" }) {
		imports = append(imports, "time")
	}
	if lo.ContainsBy(fields, func(f Field) bool {
		return lo.ContainsBy(f.Validators, func(v string) bool { return strings.HasPrefix(v, "constraint.") })
	}) {
		imports = append(imports, internal.ToolConstraintPackage())
	}
	slices.Sort(imports)
	return EntityMeta{
		StructName: name,
		PkgName:    info.Pkg.Name,
		Dir:        info.Dir(),
		Imports:    imports,
		Fields:     fields,
	}, nil
}

// render executes the mapping template and gofmts the result.
func render(meta EntityMeta) ([]byte, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, meta); err != nil {
		return nil, fmt.Errorf("failed to execute template for %s: %w", meta.StructName, err)
	}
	formatted, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("failed to format generated code for %s: %w", meta.StructName, err)
	}
	return formatted, nil
}

// generate writes <entity>_mapping_gen.go next to every entity, or only to those named.
// It returns the written paths.
func generate(project *internal.Project, names []string) ([]string, error) {
	entities := project.StructsImplementEntity()
	if len(names) > 0 {
		entities = lo.Filter(entities, func(e internal.EntityInfo, _ int) bool {
			return lo.Contains(names, e.TypeSpec.Name.Name)
		})
	}
	if len(entities) == 0 {
		return nil, fmt.Errorf("no entity structs found")
	}
	written := make([]string, 0, len(entities))
	for _, info := range entities {
		meta, err := buildMeta(info)
		if err != nil {
			return written, err
		}
		src, err := render(meta)
		if err != nil {
			return written, err
		}
		out := filepath.Join(meta.Dir, lo.SnakeCase(meta.StructName)+genSuffix)
		if err = os.WriteFile(out, src, 0o644); err != nil {
			return written, fmt.Errorf("failed to write generated file for %s: %w", meta.StructName, err)
		}
		written = append(written, out)
	}
	return written, nil
}
