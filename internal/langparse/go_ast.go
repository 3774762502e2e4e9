package langparse

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	"github.com/patchsplit/patchsplit/internal/model"
)

type goExtractor struct{}

func newGoExtractor() Extractor { return &goExtractor{} }

// ExtractAll implements the Go rules from the design spec: definitions from
// function_declaration, method_declaration (receiver captured as scope),
// type_declaration (struct->type, interface->interface), const_declaration
// and var_declaration; usages from selector_expression when the left
// operand is an imported alias (-> alias.Name, qualified) or an uppercase
// chain segment in a call (-> Type.Method, pseudo-qualified), and from
// call_expression when the callee is a bare identifier (-> Foo(), the
// dominant intra-package dependency shape); import map from import_spec,
// including aliased, blank, and dot imports.
func (g *goExtractor) ExtractAll(text, file string, lineBase int) Result {
	src := []byte(text)
	parser := sitter.NewParser()
	parser.SetLanguage(golang.GetLanguage())
	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil || tree == nil {
		return newRegexExtractor(model.LangGo).ExtractAll(text, file, lineBase)
	}
	defer tree.Close()

	w := &goWalker{src: src, file: file, lineBase: lineBase, imports: model.ImportMap{}}
	w.walk(tree.RootNode())

	return Result{
		Definitions: dedup(w.defs),
		Usages:      dedup(w.usages),
		Imports:     w.imports,
	}
}

type goWalker struct {
	src      []byte
	file     string
	lineBase int
	imports  model.ImportMap
	defs     []model.Symbol
	usages   []model.Symbol
}

func (w *goWalker) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(w.src)
}

func (w *goWalker) line(n *sitter.Node) int {
	if n == nil {
		return w.lineBase
	}
	return w.lineBase + int(n.StartPoint().Row)
}

func (w *goWalker) walk(n *sitter.Node) {
	if n == nil {
		return
	}
	switch n.Type() {
	case "function_declaration":
		if name := n.ChildByFieldName("name"); name != nil {
			w.defs = append(w.defs, model.Symbol{
				Name: w.text(name), Kind: model.SymbolFunction, File: w.file,
				Line: w.line(n), Role: model.RoleDefinition,
			})
		}
	case "method_declaration":
		name := n.ChildByFieldName("name")
		receiver := n.ChildByFieldName("receiver")
		if name != nil {
			scope := receiverTypeName(w.text(receiver))
			w.defs = append(w.defs, model.Symbol{
				Name: w.text(name), Kind: model.SymbolMethod, File: w.file,
				Line: w.line(n), Role: model.RoleDefinition, Scope: scope,
			})
		}
	case "type_declaration":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			spec := n.NamedChild(i)
			if spec.Type() != "type_spec" {
				continue
			}
			name := spec.ChildByFieldName("name")
			typ := spec.ChildByFieldName("type")
			if name == nil {
				continue
			}
			kind := model.SymbolType
			if typ != nil && typ.Type() == "interface_type" {
				kind = model.SymbolInterface
			}
			w.defs = append(w.defs, model.Symbol{
				Name: w.text(name), Kind: kind, File: w.file,
				Line: w.line(spec), Role: model.RoleDefinition,
			})
		}
	case "const_declaration", "var_declaration":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			spec := n.NamedChild(i)
			if spec.Type() != "const_spec" && spec.Type() != "var_spec" {
				continue
			}
			nameList := spec.ChildByFieldName("name")
			if nameList != nil {
				w.defs = append(w.defs, model.Symbol{
					Name: w.text(nameList), Kind: model.SymbolVariable, File: w.file,
					Line: w.line(spec), Role: model.RoleDefinition,
				})
			}
		}
	case "import_spec":
		w.recordImport(n)
	case "selector_expression":
		w.recordSelectorUsage(n)
	case "call_expression":
		w.recordCallUsage(n)
	}

	for i := 0; i < int(n.ChildCount()); i++ {
		w.walk(n.Child(i))
	}
}

func receiverTypeName(receiverText string) string {
	// receiverText looks like "(r *Foo)" or "(r Foo)".
	t := strings.Trim(receiverText, "()")
	fields := strings.Fields(t)
	if len(fields) == 0 {
		return ""
	}
	typ := fields[len(fields)-1]
	return strings.TrimPrefix(typ, "*")
}

func (w *goWalker) recordImport(spec *sitter.Node) {
	pathNode := spec.ChildByFieldName("path")
	nameNode := spec.ChildByFieldName("name")
	if pathNode == nil {
		return
	}
	importPath := strings.Trim(w.text(pathNode), "\"")
	alias := lastPathSegment(importPath)
	if nameNode != nil {
		switch w.text(nameNode) {
		case "_", ".":
			// blank and dot imports register under their literal token so a
			// usage can never accidentally collide with them.
			alias = w.text(nameNode)
		default:
			alias = w.text(nameNode)
		}
	}
	w.imports[alias] = importPath
}

func lastPathSegment(p string) string {
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}

// recordSelectorUsage handles "alias.Name" (qualified, when alias is an
// imported package) and "Type.Method" (pseudo-qualified, when the left
// operand is an uppercase identifier used in a call) per the spec.
func (w *goWalker) recordSelectorUsage(n *sitter.Node) {
	operand := n.ChildByFieldName("operand")
	field := n.ChildByFieldName("field")
	if operand == nil || field == nil {
		return
	}
	if operand.Type() != "identifier" {
		return
	}
	left := w.text(operand)
	right := w.text(field)
	if left == "" || right == "" {
		return
	}

	if modPath, ok := w.imports[left]; ok {
		w.usages = append(w.usages, model.Symbol{
			Name: right, Kind: model.SymbolFunction, File: w.file,
			Line: w.line(n), Role: model.RoleUsage, Alias: left,
			Qualified: left + "." + right, Scope: modPath,
		})
		return
	}
	if len(left) > 0 && isUpper(left[0]) {
		if p := n.Parent(); p == nil || p.Type() != "call_expression" {
			return
		}
		w.usages = append(w.usages, model.Symbol{
			Name: right, Kind: model.SymbolMethod, File: w.file,
			Line: w.line(n), Role: model.RoleUsage,
			Qualified: left + "." + right,
		})
	}
}

// goBuiltins lists the predeclared functions a bare call_expression callee
// should never be mistaken for a same-package definition.
var goBuiltins = map[string]bool{
	"append": true, "cap": true, "clear": true, "close": true, "complex": true,
	"copy": true, "delete": true, "imag": true, "len": true, "make": true,
	"max": true, "min": true, "new": true, "panic": true, "print": true,
	"println": true, "real": true, "recover": true,
}

// recordCallUsage handles a bare call "Foo()", left unqualified (no Alias,
// no Qualified) so the DependencyAnalyzer can tell it apart from a
// selector-based usage and resolve it against a same-file or same-package
// definition instead of an import. Selector-based calls ("pkg.Foo()",
// "recv.Method()") are already covered by recordSelectorUsage, which fires
// independently as the walk recurses into the call's function child.
func (w *goWalker) recordCallUsage(n *sitter.Node) {
	fn := n.ChildByFieldName("function")
	if fn == nil || fn.Type() != "identifier" {
		return
	}
	name := w.text(fn)
	if name == "" || goBuiltins[name] {
		return
	}
	w.usages = append(w.usages, model.Symbol{
		Name: name, Kind: model.SymbolFunction, File: w.file,
		Line: w.line(n), Role: model.RoleUsage,
	})
}
