package langparse

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/patchsplit/patchsplit/internal/model"
)

type pythonExtractor struct{}

func newPythonExtractor() Extractor { return &pythonExtractor{} }

// ExtractAll implements the Python rules: definitions from
// function_definition (method if nested in a class), class_definition, and
// module-level assignment where the LHS is UPPER_CASE; usages from
// attribute access on an imported identifier, type annotations, direct
// identifier references to imported names outside declaration contexts, and
// from call when the callee is a bare identifier not already covered by an
// import (-> foo(), the dominant intra-module dependency shape); import map
// records alias -> fully.qualified.path for both "import" and
// "from ... import" forms.
func (p *pythonExtractor) ExtractAll(text, file string, lineBase int) Result {
	src := []byte(text)
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())
	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil || tree == nil {
		return newRegexExtractor(model.LangPython).ExtractAll(text, file, lineBase)
	}
	defer tree.Close()

	w := &pyWalker{src: src, file: file, lineBase: lineBase, imports: model.ImportMap{}}
	w.walk(tree.RootNode(), "", 0)

	return Result{
		Definitions: dedup(w.defs),
		Usages:      dedup(w.usages),
		Imports:     w.imports,
	}
}

type pyWalker struct {
	src      []byte
	file     string
	lineBase int
	imports  model.ImportMap
	defs     []model.Symbol
	usages   []model.Symbol
}

func (w *pyWalker) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(w.src)
}

func (w *pyWalker) line(n *sitter.Node) int {
	if n == nil {
		return w.lineBase
	}
	return w.lineBase + int(n.StartPoint().Row)
}

// walk recurses through the tree; classScope is the enclosing class name
// ("" at module scope) and depth tracks nesting so module-level assignments
// are only picked up at depth==2 (an assignment directly under a module-level
// expression_statement).
func (w *pyWalker) walk(n *sitter.Node, classScope string, depth int) {
	if n == nil {
		return
	}
	switch n.Type() {
	case "import_statement":
		w.recordImportStatement(n)
	case "import_from_statement":
		w.recordImportFrom(n)
	case "function_definition":
		if name := n.ChildByFieldName("name"); name != nil {
			kind := model.SymbolFunction
			if classScope != "" {
				kind = model.SymbolMethod
			}
			w.defs = append(w.defs, model.Symbol{
				Name: w.text(name), Kind: kind, File: w.file,
				Line: w.line(n), Role: model.RoleDefinition, Scope: classScope,
			})
		}
		body := n.ChildByFieldName("body")
		w.walkChildren(body, classScope, depth+1)
		return
	case "class_definition":
		name := n.ChildByFieldName("name")
		className := w.text(name)
		if name != nil {
			w.defs = append(w.defs, model.Symbol{
				Name: className, Kind: model.SymbolClass, File: w.file,
				Line: w.line(n), Role: model.RoleDefinition,
			})
		}
		body := n.ChildByFieldName("body")
		w.walkChildren(body, className, depth+1)
		return
	case "assignment":
		if p := n.Parent(); depth == 2 && p != nil && p.Type() == "expression_statement" {
			left := n.ChildByFieldName("left")
			if left != nil && left.Type() == "identifier" {
				name := w.text(left)
				if name == strings.ToUpper(name) && name != "" {
					w.defs = append(w.defs, model.Symbol{
						Name: name, Kind: model.SymbolVariable, File: w.file,
						Line: w.line(n), Role: model.RoleDefinition,
					})
				}
			}
		}
	case "attribute":
		w.recordAttributeUsage(n)
	case "call":
		w.recordCallUsage(n)
	case "identifier":
		w.recordIdentifierUsage(n)
	}

	w.walkChildren(n, classScope, depth+1)
}

func (w *pyWalker) walkChildren(n *sitter.Node, classScope string, depth int) {
	if n == nil {
		return
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		w.walk(n.Child(i), classScope, depth)
	}
}

func (w *pyWalker) recordImportStatement(n *sitter.Node) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "dotted_name":
			path := w.text(child)
			w.imports[lastDotSegment(path)] = path
		case "aliased_import":
			name := child.ChildByFieldName("name")
			alias := child.ChildByFieldName("alias")
			if name != nil && alias != nil {
				w.imports[w.text(alias)] = w.text(name)
			}
		}
	}
}

func (w *pyWalker) recordImportFrom(n *sitter.Node) {
	moduleNode := n.ChildByFieldName("module_name")
	module := w.text(moduleNode)
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "dotted_name", "identifier":
			if child == moduleNode {
				continue
			}
			name := w.text(child)
			w.imports[name] = module + "." + name
		case "aliased_import":
			name := child.ChildByFieldName("name")
			alias := child.ChildByFieldName("alias")
			if name != nil && alias != nil {
				w.imports[w.text(alias)] = module + "." + w.text(name)
			}
		}
	}
}

func (w *pyWalker) recordAttributeUsage(n *sitter.Node) {
	object := n.ChildByFieldName("object")
	attr := n.ChildByFieldName("attribute")
	if object == nil || attr == nil || object.Type() != "identifier" {
		return
	}
	name := w.text(object)
	if modPath, ok := w.imports[name]; ok {
		w.usages = append(w.usages, model.Symbol{
			Name: w.text(attr), Kind: model.SymbolFunction, File: w.file,
			Line: w.line(n), Role: model.RoleUsage, Alias: name,
			Qualified: name + "." + w.text(attr), Scope: modPath,
		})
	}
}

func (w *pyWalker) recordIdentifierUsage(n *sitter.Node) {
	name := w.text(n)
	if name == "" {
		return
	}
	parent := n.Parent()
	if parent != nil {
		switch parent.Type() {
		case "import_statement", "import_from_statement", "aliased_import", "dotted_name":
			return
		}
		if field := parent.ChildByFieldName("name"); field == n {
			return
		}
	}
	if modPath, ok := w.imports[name]; ok {
		w.usages = append(w.usages, model.Symbol{
			Name: name, Kind: model.SymbolImport, File: w.file,
			Line: w.line(n), Role: model.RoleUsage, Qualified: name, Scope: modPath,
		})
	}
}

// pyBuiltins lists the builtins a bare call's callee should never be
// mistaken for a same-module definition.
var pyBuiltins = map[string]bool{
	"print": true, "len": true, "range": true, "str": true, "int": true,
	"float": true, "bool": true, "list": true, "dict": true, "set": true,
	"tuple": true, "open": true, "isinstance": true, "super": true,
	"enumerate": true, "zip": true, "map": true, "filter": true, "sorted": true,
	"getattr": true, "setattr": true, "hasattr": true, "repr": true,
}

// recordCallUsage handles a bare call "foo()" to a function or method
// defined elsewhere in the same module, left unqualified (no Alias, no
// Qualified) so the DependencyAnalyzer resolves it against a same-file or
// same-package definition instead of an import. Attribute-based calls
// ("mod.foo()", "self.foo()") are already covered by recordAttributeUsage,
// which fires independently as the walk recurses into the call's function
// child.
func (w *pyWalker) recordCallUsage(n *sitter.Node) {
	fn := n.ChildByFieldName("function")
	if fn == nil || fn.Type() != "identifier" {
		return
	}
	name := w.text(fn)
	if name == "" || pyBuiltins[name] {
		return
	}
	if _, ok := w.imports[name]; ok {
		return // already captured by recordIdentifierUsage as an import usage
	}
	w.usages = append(w.usages, model.Symbol{
		Name: name, Kind: model.SymbolFunction, File: w.file,
		Line: w.line(n), Role: model.RoleUsage,
	})
}

func lastDotSegment(p string) string {
	if i := strings.LastIndex(p, "."); i >= 0 {
		return p[i+1:]
	}
	return p
}
