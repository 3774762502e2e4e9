package langparse

import (
	"regexp"
	"strings"

	"github.com/patchsplit/patchsplit/internal/model"
)

// regexExtractor is the conservative per-language pattern set used when no
// AST grammar is wired for a language (Java, Rust, C, C++, Unknown) or when
// the AST extractor fails at runtime. It is permitted to miss usages but
// must not produce spurious qualified names for non-imported aliases —
// usages are only emitted against names present in the import map built
// from the same text.
type regexExtractor struct {
	lang model.Language
}

func newRegexExtractor(lang model.Language) Extractor {
	return &regexExtractor{lang: lang}
}

var (
	reGoFunc       = regexp.MustCompile(`^func\s+(\w+)\s*\(`)
	reGoMethod     = regexp.MustCompile(`^func\s+\(\s*\w*\s*\*?(\w+)\s*\)\s+(\w+)\s*\(`)
	reGoType       = regexp.MustCompile(`^type\s+(\w+)\s+(struct|interface)\b`)
	reGoImport     = regexp.MustCompile(`^\s*(?:(\w+)\s+)?"([^"]+)"`)
	rePyDef        = regexp.MustCompile(`^(\s*)def\s+(\w+)\s*\(`)
	rePyClass      = regexp.MustCompile(`^class\s+(\w+)`)
	rePyImport     = regexp.MustCompile(`^import\s+([\w.]+)(?:\s+as\s+(\w+))?`)
	rePyFromImport = regexp.MustCompile(`^from\s+([\w.]+)\s+import\s+(.+)`)
	reJSFunc       = regexp.MustCompile(`^(?:export\s+)?(?:default\s+)?function\s+(\w+)\s*\(`)
	reJSClass      = regexp.MustCompile(`^(?:export\s+)?(?:default\s+)?class\s+(\w+)`)
	reJSConst      = regexp.MustCompile(`^(?:export\s+)?(?:const|let|var)\s+(\w+)\s*=\s*(?:async\s*)?(?:\(|function|class)`)
	reJSInterface  = regexp.MustCompile(`^(?:export\s+)?interface\s+(\w+)`)
	reJSTypeAlias  = regexp.MustCompile(`^(?:export\s+)?type\s+(\w+)\s*=`)
	reJSImport     = regexp.MustCompile(`^import\s+(.+?)\s+from\s+['"]([^'"]+)['"]`)
	reJavaType     = regexp.MustCompile(`^\s*(?:public|private|protected|static|final|abstract)*\s*(class|interface|enum)\s+(\w+)`)
	reJavaMethod   = regexp.MustCompile(`^\s*(?:public|private|protected|static|final|synchronized|abstract)+\s+[\w<>\[\],\s]+?\s(\w+)\s*\([^;]*$`)
	reJavaCtor     = regexp.MustCompile(`^\s*(?:public|private|protected)\s+(\w+)\s*\([^;]*$`)
	reJavaImport   = regexp.MustCompile(`^import\s+(?:static\s+)?([\w.]+)\s*;`)
	reRustFn       = regexp.MustCompile(`^\s*(?:pub\s+)?fn\s+(\w+)`)
	reRustStruct   = regexp.MustCompile(`^\s*(?:pub\s+)?(struct|enum|trait)\s+(\w+)`)
	reRustUse      = regexp.MustCompile(`^\s*use\s+([\w:]+)(?:\s+as\s+(\w+))?\s*;`)
	reCFunc        = regexp.MustCompile(`^[\w\*\s]+?\b(\w+)\s*\([^;{]*\)\s*\{?\s*$`)
	reCStruct      = regexp.MustCompile(`^\s*(?:typedef\s+)?struct\s+(\w+)`)
	reCInclude     = regexp.MustCompile(`^\s*#include\s+[<"]([^>"]+)[>"]`)
	reQualifiedUse = regexp.MustCompile(`\b([A-Za-z_]\w*)\.(\w+)`)
	reScopedUse    = regexp.MustCompile(`\b([A-Za-z_]\w*)::(\w+)`)
)

func (r *regexExtractor) ExtractAll(text, file string, lineBase int) Result {
	lines := strings.Split(text, "\n")
	imports := model.ImportMap{}
	var defs, usages []model.Symbol

	for i, raw := range lines {
		line := strings.TrimRight(raw, "\r")
		lineNo := lineBase + i

		switch r.lang {
		case model.LangGo:
			r.extractGoLine(line, lineNo, file, imports, &defs)
		case model.LangPython:
			r.extractPythonLine(line, lineNo, file, imports, &defs)
		case model.LangJavaScript, model.LangTypeScript:
			r.extractJSLine(line, lineNo, file, imports, &defs)
		case model.LangJava:
			r.extractJavaLine(line, lineNo, file, imports, &defs)
		case model.LangRust:
			r.extractRustLine(line, lineNo, file, imports, &defs)
		case model.LangC, model.LangCpp:
			r.extractCLine(line, lineNo, file, imports, &defs)
		}
	}

	// Second pass: scan every line for "alias.Name" / "alias::Name" usages
	// against the import map just built, never fabricating qualified names
	// for aliases that were not actually imported.
	for i, raw := range lines {
		lineNo := lineBase + i
		for _, m := range reQualifiedUse.FindAllStringSubmatch(raw, -1) {
			alias, name := m[1], m[2]
			if modPath, ok := imports[alias]; ok {
				usages = append(usages, model.Symbol{
					Name: name, Kind: model.SymbolFunction, File: file, Line: lineNo,
					Role: model.RoleUsage, Alias: alias, Qualified: alias + "." + name, Scope: modPath,
				})
			}
		}
		for _, m := range reScopedUse.FindAllStringSubmatch(raw, -1) {
			alias, name := m[1], m[2]
			if modPath, ok := imports[alias]; ok {
				usages = append(usages, model.Symbol{
					Name: name, Kind: model.SymbolFunction, File: file, Line: lineNo,
					Role: model.RoleUsage, Alias: alias, Qualified: alias + "::" + name, Scope: modPath,
				})
			}
		}
	}

	return Result{Definitions: dedup(defs), Usages: dedup(usages), Imports: imports}
}

func (r *regexExtractor) extractGoLine(line string, lineNo int, file string, imports model.ImportMap, defs *[]model.Symbol) {
	if m := reGoMethod.FindStringSubmatch(line); m != nil {
		*defs = append(*defs, model.Symbol{Name: m[2], Kind: model.SymbolMethod, File: file, Line: lineNo, Role: model.RoleDefinition, Scope: m[1]})
		return
	}
	if m := reGoFunc.FindStringSubmatch(line); m != nil {
		*defs = append(*defs, model.Symbol{Name: m[1], Kind: model.SymbolFunction, File: file, Line: lineNo, Role: model.RoleDefinition})
		return
	}
	if m := reGoType.FindStringSubmatch(line); m != nil {
		kind := model.SymbolType
		if m[2] == "interface" {
			kind = model.SymbolInterface
		}
		*defs = append(*defs, model.Symbol{Name: m[1], Kind: kind, File: file, Line: lineNo, Role: model.RoleDefinition})
		return
	}
	if m := reGoImport.FindStringSubmatch(line); m != nil && strings.Contains(line, "\"") {
		alias := m[1]
		path := m[2]
		if alias == "" {
			alias = lastPathSegment(path)
		}
		imports[alias] = path
	}
}

func (r *regexExtractor) extractPythonLine(line string, lineNo int, file string, imports model.ImportMap, defs *[]model.Symbol) {
	if m := rePyDef.FindStringSubmatch(line); m != nil {
		kind := model.SymbolFunction
		if len(m[1]) > 0 {
			kind = model.SymbolMethod
		}
		*defs = append(*defs, model.Symbol{Name: m[2], Kind: kind, File: file, Line: lineNo, Role: model.RoleDefinition})
		return
	}
	if m := rePyClass.FindStringSubmatch(line); m != nil {
		*defs = append(*defs, model.Symbol{Name: m[1], Kind: model.SymbolClass, File: file, Line: lineNo, Role: model.RoleDefinition})
		return
	}
	trimmed := strings.TrimSpace(line)
	if m := rePyFromImport.FindStringSubmatch(trimmed); m != nil {
		module := m[1]
		for _, part := range strings.Split(m[2], ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			fields := strings.Fields(part)
			name := fields[0]
			alias := name
			if len(fields) == 3 && fields[1] == "as" {
				alias = fields[2]
			}
			imports[alias] = module + "." + name
		}
		return
	}
	if m := rePyImport.FindStringSubmatch(trimmed); m != nil {
		path := m[1]
		alias := m[2]
		if alias == "" {
			alias = lastDotSegment(path)
		}
		imports[alias] = path
	}
	if strings.HasPrefix(trimmed, "class ") {
		return
	}
	if m := regexp.MustCompile(`^([A-Z_][A-Z0-9_]*)\s*=`).FindStringSubmatch(trimmed); m != nil {
		*defs = append(*defs, model.Symbol{Name: m[1], Kind: model.SymbolVariable, File: file, Line: lineNo, Role: model.RoleDefinition})
	}
}

func (r *regexExtractor) extractJSLine(line string, lineNo int, file string, imports model.ImportMap, defs *[]model.Symbol) {
	trimmed := strings.TrimSpace(line)
	if m := reJSFunc.FindStringSubmatch(trimmed); m != nil {
		*defs = append(*defs, model.Symbol{Name: m[1], Kind: model.SymbolFunction, File: file, Line: lineNo, Role: model.RoleDefinition})
		return
	}
	if m := reJSClass.FindStringSubmatch(trimmed); m != nil {
		*defs = append(*defs, model.Symbol{Name: m[1], Kind: model.SymbolClass, File: file, Line: lineNo, Role: model.RoleDefinition})
		return
	}
	if m := reJSConst.FindStringSubmatch(trimmed); m != nil {
		*defs = append(*defs, model.Symbol{Name: m[1], Kind: model.SymbolFunction, File: file, Line: lineNo, Role: model.RoleDefinition})
		return
	}
	if m := reJSInterface.FindStringSubmatch(trimmed); m != nil {
		*defs = append(*defs, model.Symbol{Name: m[1], Kind: model.SymbolInterface, File: file, Line: lineNo, Role: model.RoleDefinition})
		return
	}
	if m := reJSTypeAlias.FindStringSubmatch(trimmed); m != nil {
		*defs = append(*defs, model.Symbol{Name: m[1], Kind: model.SymbolType, File: file, Line: lineNo, Role: model.RoleDefinition})
		return
	}
	if m := reJSImport.FindStringSubmatch(trimmed); m != nil {
		module := m[2]
		clause := strings.TrimSpace(m[1])
		clause = strings.Trim(clause, "{}")
		for _, part := range strings.Split(clause, ",") {
			part = strings.TrimSpace(part)
			if part == "" || part == "*" {
				continue
			}
			fields := strings.Fields(strings.TrimPrefix(part, "* as "))
			name := fields[0]
			alias := name
			if len(fields) == 3 && fields[1] == "as" {
				alias = fields[2]
			}
			imports[alias] = module
		}
	}
}

func (r *regexExtractor) extractJavaLine(line string, lineNo int, file string, imports model.ImportMap, defs *[]model.Symbol) {
	trimmed := strings.TrimSpace(line)
	if m := reJavaType.FindStringSubmatch(trimmed); m != nil {
		kind := model.SymbolClass
		if m[1] == "interface" {
			kind = model.SymbolInterface
		}
		*defs = append(*defs, model.Symbol{Name: m[2], Kind: kind, File: file, Line: lineNo, Role: model.RoleDefinition})
		return
	}
	if m := reJavaMethod.FindStringSubmatch(trimmed); m != nil {
		*defs = append(*defs, model.Symbol{Name: m[1], Kind: model.SymbolMethod, File: file, Line: lineNo, Role: model.RoleDefinition})
		return
	}
	if m := reJavaCtor.FindStringSubmatch(trimmed); m != nil {
		*defs = append(*defs, model.Symbol{Name: m[1], Kind: model.SymbolMethod, File: file, Line: lineNo, Role: model.RoleDefinition})
		return
	}
	if m := reJavaImport.FindStringSubmatch(trimmed); m != nil {
		path := m[1]
		alias := lastDotSegment(path)
		imports[alias] = path
	}
}

func (r *regexExtractor) extractRustLine(line string, lineNo int, file string, imports model.ImportMap, defs *[]model.Symbol) {
	trimmed := strings.TrimSpace(line)
	if m := reRustFn.FindStringSubmatch(trimmed); m != nil {
		*defs = append(*defs, model.Symbol{Name: m[1], Kind: model.SymbolFunction, File: file, Line: lineNo, Role: model.RoleDefinition})
		return
	}
	if m := reRustStruct.FindStringSubmatch(trimmed); m != nil {
		kind := model.SymbolType
		if m[1] == "trait" {
			kind = model.SymbolInterface
		}
		*defs = append(*defs, model.Symbol{Name: m[2], Kind: kind, File: file, Line: lineNo, Role: model.RoleDefinition})
		return
	}
	if m := reRustUse.FindStringSubmatch(trimmed); m != nil {
		path := m[1]
		alias := m[2]
		if alias == "" {
			parts := strings.Split(path, "::")
			alias = parts[len(parts)-1]
		}
		imports[alias] = path
	}
}

func (r *regexExtractor) extractCLine(line string, lineNo int, file string, imports model.ImportMap, defs *[]model.Symbol) {
	trimmed := strings.TrimSpace(line)
	if m := reCInclude.FindStringSubmatch(trimmed); m != nil {
		header := m[1]
		imports[strings.TrimSuffix(header, ".h")] = header
		return
	}
	if m := reCStruct.FindStringSubmatch(trimmed); m != nil {
		*defs = append(*defs, model.Symbol{Name: m[1], Kind: model.SymbolType, File: file, Line: lineNo, Role: model.RoleDefinition})
		return
	}
	if m := reCFunc.FindStringSubmatch(trimmed); m != nil && !strings.HasPrefix(trimmed, "if") && !strings.HasPrefix(trimmed, "for") && !strings.HasPrefix(trimmed, "while") && !strings.HasPrefix(trimmed, "switch") && !strings.HasPrefix(trimmed, "return") {
		*defs = append(*defs, model.Symbol{Name: m[1], Kind: model.SymbolFunction, File: file, Line: lineNo, Role: model.RoleDefinition})
	}
}
