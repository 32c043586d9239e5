package schema

import (
	"fmt"
	"strings"

	"github.com/roach88/strata/value"
)

// Analyzer accumulates schema sources and produces an Analysis.
type Analyzer struct {
	files []schemaFile
}

type schemaFile struct {
	path    string
	content string
}

// NewAnalyzer creates an empty analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// AddSchema registers one schema source. path is used for include-graph
// tracking only; the first added file is the root schema.
func (a *Analyzer) AddSchema(path, content string) {
	a.files = append(a.files, schemaFile{path: path, content: content})
}

// Analyze parses every added schema and derives the analysis. Parse
// problems are collected into Errors rather than aborting; a non-nil error
// is returned only when no schema was added.
func (a *Analyzer) Analyze() (*Analysis, error) {
	if len(a.files) == 0 {
		return nil, fmt.Errorf("no schema sources added")
	}

	res := &Analysis{
		Tables:  make(map[string]*Table),
		Unions:  make(map[string]Union),
		Structs: make(map[string]bool),
		Imports: make(map[string][]string),
	}

	for i, f := range a.files {
		parseFile(res, f, i > 0)
	}

	res.Order, res.Cycle = includeOrder(res.Imports, a.files[0].path)
	if res.Cycle != nil {
		res.Errors = append(res.Errors,
			fmt.Sprintf("include cycle: %s", strings.Join(res.Cycle.Path, " -> ")))
	}

	a.resolveReferences(res)
	res.Junctions = deriveJunctions(res)
	return res, nil
}

// resolveReferences classifies non-scalar fields against the parsed type
// universe now that every table and union is known.
func (a *Analyzer) resolveReferences(res *Analysis) {
	for _, t := range res.Tables {
		kept := t.References[:0]
		for _, ref := range t.References {
			base := ref.Target
			if u, ok := res.Unions[base]; ok {
				if ref.Relation == RelVector {
					ref.Relation = RelVectorUnion
				} else {
					ref.Relation = RelUnion
				}
				ref.UnionTypes = u.Members
				kept = append(kept, ref)
				continue
			}
			if res.Structs[base] {
				// Structs inline into the parent; no relationship.
				continue
			}
			if _, ok := res.Tables[base]; ok {
				kept = append(kept, ref)
				continue
			}
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("%s.%s references unknown type %q", t.Name, ref.Field, base))
		}
		t.References = kept
	}
}

// deriveJunctions emits one linking-table definition per table reference,
// named Parent__field.
func deriveJunctions(res *Analysis) []Junction {
	var out []Junction
	for _, name := range res.tableOrder {
		t := res.Tables[name]
		for _, ref := range t.References {
			j := Junction{
				Name:     t.Name + "__" + ref.Field,
				Parent:   t.Name,
				Field:    ref.Field,
				Relation: ref.Relation,
			}
			if ref.Relation == RelUnion || ref.Relation == RelVectorUnion {
				j.UnionChildren = ref.UnionTypes
			} else {
				j.Child = ref.Target
			}
			out = append(out, j)
		}
	}
	return out
}

// includeOrder topologically sorts the include graph rooted at root. On a
// cycle it returns the offending path.
func includeOrder(imports map[string][]string, root string) ([]string, *CycleInfo) {
	const (
		white = 0
		grey  = 1
		black = 2
	)
	state := make(map[string]int)
	var order []string
	var stack []string
	var cycle *CycleInfo

	var visit func(string) bool
	visit = func(f string) bool {
		switch state[f] {
		case grey:
			// Found the back edge; slice the stack into the cycle path.
			for i, s := range stack {
				if s == f {
					path := append(append([]string{}, stack[i:]...), f)
					cycle = &CycleInfo{Path: path}
					break
				}
			}
			return false
		case black:
			return true
		}
		state[f] = grey
		stack = append(stack, f)
		for _, dep := range imports[f] {
			if !visit(dep) {
				return false
			}
		}
		stack = stack[:len(stack)-1]
		state[f] = black
		order = append(order, f)
		return true
	}

	visit(root)
	for f := range imports {
		if state[f] == white && cycle == nil {
			visit(f)
		}
	}
	return order, cycle
}

// parseFile walks one schema source, appending declarations to res.
func parseFile(res *Analysis, f schemaFile, imported bool) {
	s := newScanner(f.content)
	for {
		tok, ok := s.next()
		if !ok {
			return
		}
		switch tok {
		case "include":
			if path, ok := s.next(); ok {
				res.Imports[f.path] = append(res.Imports[f.path], strings.Trim(path, `"`))
			}
			s.skipPast(";")

		case "namespace", "attribute":
			s.skipPast(";")

		case "root_type":
			if name, ok := s.next(); ok && !imported {
				res.RootType = name
			}
			s.skipPast(";")

		case "file_identifier":
			if id, ok := s.next(); ok && !imported {
				res.FileID = strings.Trim(id, `"`)
			}
			s.skipPast(";")

		case "enum":
			s.skipPast("{")
			s.skipPast("}")

		case "union":
			name, _ := s.next()
			s.skipPast("{")
			var members []string
			for {
				m, ok := s.next()
				if !ok || m == "}" {
					break
				}
				if m != "," {
					members = append(members, m)
				}
			}
			res.Unions[name] = Union{Name: name, Members: members, SourceFile: f.path}

		case "struct":
			name, _ := s.next()
			res.Structs[name] = true
			s.skipPast("{")
			s.skipPast("}")

		case "table":
			parseTable(res, s, f.path, imported)

		default:
			// Unknown top-level token; resynchronise at the next statement.
			if tok == "{" {
				s.skipPast("}")
			}
		}
	}
}

func parseTable(res *Analysis, s *scanner, path string, imported bool) {
	name, ok := s.next()
	if !ok {
		res.Errors = append(res.Errors, fmt.Sprintf("%s: table without a name", path))
		return
	}
	t := &Table{Name: name, SourceFile: path, IsImported: imported}
	if tok, ok := s.next(); !ok || tok != "{" {
		res.Errors = append(res.Errors, fmt.Sprintf("%s: table %s: expected {", path, name))
		return
	}

	for {
		field, ok := s.next()
		if !ok {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: table %s: unterminated body", path, name))
			break
		}
		if field == "}" {
			break
		}
		if tok, ok := s.next(); !ok || tok != ":" {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: table %s: field %s: expected :", path, name, field))
			s.skipPast(";")
			continue
		}

		typ, vector := parseFieldType(s)
		attrs := parseFieldAttrs(res, s, path, name, field)
		indexed := attrs["id"] || attrs["key"]

		if kind, scalar := value.ParseKind(typ); scalar && !vector {
			col := Column{Name: field, Type: typ, Kind: kind, Indexed: indexed}
			t.Columns = append(t.Columns, col)
			if indexed {
				t.Indexed = append(t.Indexed, field)
			}
			continue
		}

		rel := RelSingle
		if vector {
			rel = RelVector
		}
		// Union membership is resolved after all files parse.
		t.References = append(t.References, Reference{Field: field, Target: typ, Relation: rel})
		if indexed {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("%s.%s: reference fields cannot be indexed", name, field))
		}
	}

	if prev, dup := res.Tables[name]; dup {
		res.Errors = append(res.Errors,
			fmt.Sprintf("table %s declared in both %s and %s", name, prev.SourceFile, path))
		return
	}
	res.addTable(t)
}

// parseFieldType consumes "type", "[type]", or "type = default".
func parseFieldType(s *scanner) (typ string, vector bool) {
	tok, ok := s.next()
	if !ok {
		return "", false
	}
	if tok == "[" {
		typ, _ = s.next()
		s.skipPast("]")
		return typ, true
	}
	return tok, false
}

// parseFieldAttrs consumes the optional "= default", "(attr, attr: v)"
// tail and the closing semicolon, returning the attribute set.
func parseFieldAttrs(res *Analysis, s *scanner, path, table, field string) map[string]bool {
	attrs := make(map[string]bool)
	for {
		tok, ok := s.next()
		if !ok {
			return attrs
		}
		switch tok {
		case ";":
			return attrs
		case "=":
			s.next() // default value, unused
		case "(":
			for {
				attr, ok := s.next()
				if !ok || attr == ")" {
					break
				}
				if attr == "," || attr == ":" {
					continue
				}
				attrs[strings.ToLower(attr)] = true
			}
		default:
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("%s: table %s: field %s: unexpected token %q", path, table, field, tok))
		}
	}
}
