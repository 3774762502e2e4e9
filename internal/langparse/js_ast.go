package langparse

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/patchsplit/patchsplit/internal/model"
)

type jsExtractor struct {
	isTS bool
}

func newJSExtractor(isTS bool) Extractor { return &jsExtractor{isTS: isTS} }

// ExtractAll implements the JS/TS rules: definitions from
// function_declaration, class_declaration, method_definition (class scope),
// arrow/function/class assigned via variable_declarator, plus TS
// interface_declaration and type_alias_declaration; usages from
// member_expression on imported names, direct references to imported
// identifiers outside import clauses, and TS type_identifier references;
// imports handle default, named, and namespace forms.
func (j *jsExtractor) ExtractAll(text, file string, lineBase int) Result {
	src := []byte(text)
	parser := sitter.NewParser()
	lang := model.LangJavaScript
	if j.isTS {
		parser.SetLanguage(typescript.GetLanguage())
		lang = model.LangTypeScript
	} else {
		parser.SetLanguage(javascript.GetLanguage())
	}
	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil || tree == nil {
		return newRegexExtractor(lang).ExtractAll(text, file, lineBase)
	}
	defer tree.Close()

	w := &jsWalker{src: src, file: file, lineBase: lineBase, imports: model.ImportMap{}}
	w.walk(tree.RootNode(), "")

	return Result{
		Definitions: dedup(w.defs),
		Usages:      dedup(w.usages),
		Imports:     w.imports,
	}
}

type jsWalker struct {
	src      []byte
	file     string
	lineBase int
	imports  model.ImportMap
	defs     []model.Symbol
	usages   []model.Symbol
}

func (w *jsWalker) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(w.src)
}

func (w *jsWalker) line(n *sitter.Node) int {
	if n == nil {
		return w.lineBase
	}
	return w.lineBase + int(n.StartPoint().Row)
}

func (w *jsWalker) walk(n *sitter.Node, classScope string) {
	if n == nil {
		return
	}
	switch n.Type() {
	case "import_statement":
		w.recordImport(n)
	case "function_declaration":
		if name := n.ChildByFieldName("name"); name != nil {
			w.defs = append(w.defs, model.Symbol{
				Name: w.text(name), Kind: model.SymbolFunction, File: w.file,
				Line: w.line(n), Role: model.RoleDefinition,
			})
		}
	case "class_declaration":
		name := n.ChildByFieldName("name")
		className := w.text(name)
		if name != nil {
			w.defs = append(w.defs, model.Symbol{
				Name: className, Kind: model.SymbolClass, File: w.file,
				Line: w.line(n), Role: model.RoleDefinition,
			})
		}
		body := n.ChildByFieldName("body")
		w.walkChildren(body, className)
		return
	case "method_definition":
		if name := n.ChildByFieldName("name"); name != nil {
			w.defs = append(w.defs, model.Symbol{
				Name: w.text(name), Kind: model.SymbolMethod, File: w.file,
				Line: w.line(n), Role: model.RoleDefinition, Scope: classScope,
			})
		}
	case "variable_declarator":
		w.recordVariableDeclarator(n, classScope)
	case "interface_declaration":
		if name := n.ChildByFieldName("name"); name != nil {
			w.defs = append(w.defs, model.Symbol{
				Name: w.text(name), Kind: model.SymbolInterface, File: w.file,
				Line: w.line(n), Role: model.RoleDefinition,
			})
		}
	case "type_alias_declaration":
		if name := n.ChildByFieldName("name"); name != nil {
			w.defs = append(w.defs, model.Symbol{
				Name: w.text(name), Kind: model.SymbolType, File: w.file,
				Line: w.line(n), Role: model.RoleDefinition,
			})
		}
	case "member_expression":
		w.recordMemberUsage(n)
	case "type_identifier":
		w.recordTypeIdentifierUsage(n)
	case "identifier":
		w.recordIdentifierUsage(n)
	}

	w.walkChildren(n, classScope)
}

func (w *jsWalker) walkChildren(n *sitter.Node, classScope string) {
	if n == nil {
		return
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		w.walk(n.Child(i), classScope)
	}
}

// recordVariableDeclarator handles `const Foo = () => {}`, `const Foo =
// function() {}`, and `const Foo = class {}` assignment-style definitions.
func (w *jsWalker) recordVariableDeclarator(n *sitter.Node, classScope string) {
	name := n.ChildByFieldName("name")
	value := n.ChildByFieldName("value")
	if name == nil || name.Type() != "identifier" || value == nil {
		return
	}
	switch value.Type() {
	case "arrow_function", "function", "function_expression":
		w.defs = append(w.defs, model.Symbol{
			Name: w.text(name), Kind: model.SymbolFunction, File: w.file,
			Line: w.line(n), Role: model.RoleDefinition, Scope: classScope,
		})
	case "class", "class_expression":
		w.defs = append(w.defs, model.Symbol{
			Name: w.text(name), Kind: model.SymbolClass, File: w.file,
			Line: w.line(n), Role: model.RoleDefinition,
		})
	}
}

func (w *jsWalker) recordImport(n *sitter.Node) {
	source := n.ChildByFieldName("source")
	module := trimQuotes(w.text(source))
	if module == "" {
		return
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "import_clause":
			w.recordImportClause(child, module)
		}
	}
}

func (w *jsWalker) recordImportClause(clause *sitter.Node, module string) {
	for i := 0; i < int(clause.ChildCount()); i++ {
		child := clause.Child(i)
		switch child.Type() {
		case "identifier":
			// default import
			w.imports[w.text(child)] = module
		case "namespace_import":
			if id := child.NamedChild(0); id != nil {
				w.imports[w.text(id)] = module
			}
		case "named_imports":
			w.recordNamedImports(child, module)
		}
	}
}

func (w *jsWalker) recordNamedImports(named *sitter.Node, module string) {
	for i := 0; i < int(named.NamedChildCount()); i++ {
		spec := named.NamedChild(i)
		if spec.Type() != "import_specifier" {
			continue
		}
		name := spec.ChildByFieldName("name")
		alias := spec.ChildByFieldName("alias")
		if name == nil {
			continue
		}
		key := w.text(name)
		if alias != nil {
			key = w.text(alias)
		}
		w.imports[key] = module
	}
}

func trimQuotes(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'' || s[0] == '`') {
		return s[1 : len(s)-1]
	}
	return s
}

func (w *jsWalker) recordMemberUsage(n *sitter.Node) {
	object := n.ChildByFieldName("object")
	property := n.ChildByFieldName("property")
	if object == nil || property == nil || object.Type() != "identifier" {
		return
	}
	name := w.text(object)
	if modPath, ok := w.imports[name]; ok {
		w.usages = append(w.usages, model.Symbol{
			Name: w.text(property), Kind: model.SymbolFunction, File: w.file,
			Line: w.line(n), Role: model.RoleUsage, Alias: name,
			Qualified: name + "." + w.text(property), Scope: modPath,
		})
	}
}

func (w *jsWalker) recordTypeIdentifierUsage(n *sitter.Node) {
	name := w.text(n)
	parent := n.Parent()
	if parent != nil && (parent.Type() == "interface_declaration" || parent.Type() == "type_alias_declaration") {
		if parent.ChildByFieldName("name") == n {
			return
		}
	}
	w.usages = append(w.usages, model.Symbol{
		Name: name, Kind: model.SymbolType, File: w.file,
		Line: w.line(n), Role: model.RoleUsage, Qualified: name,
	})
}

func (w *jsWalker) recordIdentifierUsage(n *sitter.Node) {
	name := w.text(n)
	if name == "" {
		return
	}
	parent := n.Parent()
	if parent != nil {
		switch parent.Type() {
		case "import_specifier", "import_clause", "namespace_import", "import_statement":
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
