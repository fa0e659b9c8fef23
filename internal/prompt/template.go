// Package prompt implements the render-prompt template interpreter: a
// small two-pass substitution engine over {{var}}, {{#if}}/{{else}}/{{/if}},
// {{#unless}}, and {{#each}}...{{this.field}}...{{/each}}.
// Compatibility with any specific template engine is not a goal; the
// directive semantics described there are the whole contract.
package prompt

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
)

// Data is the root variable scope a template renders against. Keys may
// contain nested maps, addressed with dotted paths ("agent.role").
type Data map[string]any

var tokenRe = regexp.MustCompile(`(?s)\{\{(.*?)\}\}`)

type tokenKind int

const (
	tokText tokenKind = iota
	tokVar
	tokIf
	tokUnless
	tokEach
	tokElse
	tokEndIf
	tokEndUnless
	tokEndEach
)

type token struct {
	kind tokenKind
	text string // tokText body
	expr string // argument for tokVar/tokIf/tokUnless/tokEach
}

// tokenize splits tmpl into a flat stream of text and directive tokens.
func tokenize(tmpl string) []token {
	var tokens []token
	last := 0
	for _, m := range tokenRe.FindAllStringSubmatchIndex(tmpl, -1) {
		if m[0] > last {
			tokens = append(tokens, token{kind: tokText, text: tmpl[last:m[0]]})
		}
		content := strings.TrimSpace(tmpl[m[2]:m[3]])
		tokens = append(tokens, classify(content))
		last = m[1]
	}
	if last < len(tmpl) {
		tokens = append(tokens, token{kind: tokText, text: tmpl[last:]})
	}
	return tokens
}

func classify(content string) token {
	switch {
	case content == "else":
		return token{kind: tokElse}
	case content == "/if":
		return token{kind: tokEndIf}
	case content == "/unless":
		return token{kind: tokEndUnless}
	case content == "/each":
		return token{kind: tokEndEach}
	case strings.HasPrefix(content, "#if "):
		return token{kind: tokIf, expr: strings.TrimSpace(content[len("#if "):])}
	case strings.HasPrefix(content, "#unless "):
		return token{kind: tokUnless, expr: strings.TrimSpace(content[len("#unless "):])}
	case strings.HasPrefix(content, "#each "):
		return token{kind: tokEach, expr: strings.TrimSpace(content[len("#each "):])}
	default:
		return token{kind: tokVar, expr: content}
	}
}

// node is a parsed template element.
type node interface{}

type textNode string
type varNode struct{ expr string }
type ifNode struct {
	cond                 string
	thenNodes, elseNodes []node
}
type unlessNode struct {
	cond  string
	nodes []node
}
type eachNode struct {
	listExpr string
	body     []node
}

// parse builds a node tree from a token stream, starting at *pos and
// stopping at a token in stop (not consumed) or end of input.
func parse(tokens []token, pos *int, stop map[tokenKind]bool) []node {
	var nodes []node
	for *pos < len(tokens) {
		t := tokens[*pos]
		if stop[t.kind] {
			return nodes
		}
		switch t.kind {
		case tokText:
			nodes = append(nodes, textNode(t.text))
			*pos++
		case tokVar:
			nodes = append(nodes, varNode{expr: t.expr})
			*pos++
		case tokIf:
			*pos++
			thenNodes := parse(tokens, pos, map[tokenKind]bool{tokElse: true, tokEndIf: true})
			var elseNodes []node
			if *pos < len(tokens) && tokens[*pos].kind == tokElse {
				*pos++
				elseNodes = parse(tokens, pos, map[tokenKind]bool{tokEndIf: true})
			}
			if *pos < len(tokens) && tokens[*pos].kind == tokEndIf {
				*pos++
			}
			nodes = append(nodes, ifNode{cond: t.expr, thenNodes: thenNodes, elseNodes: elseNodes})
		case tokUnless:
			*pos++
			body := parse(tokens, pos, map[tokenKind]bool{tokEndUnless: true})
			if *pos < len(tokens) && tokens[*pos].kind == tokEndUnless {
				*pos++
			}
			nodes = append(nodes, unlessNode{cond: t.expr, nodes: body})
		case tokEach:
			*pos++
			body := parse(tokens, pos, map[tokenKind]bool{tokEndEach: true})
			if *pos < len(tokens) && tokens[*pos].kind == tokEndEach {
				*pos++
			}
			nodes = append(nodes, eachNode{listExpr: t.expr, body: body})
		default:
			// Stray else/end tokens with no matching opener: skip rather
			// than fail, since a malformed template is a prompt-authoring
			// bug, not a renderer concern.
			*pos++
		}
	}
	return nodes
}

// Render executes tmpl against data, producing the substituted prompt text.
func Render(tmpl string, data Data) (string, error) {
	tokens := tokenize(tmpl)
	pos := 0
	nodes := parse(tokens, &pos, nil)

	var sb strings.Builder
	if err := renderNodes(&sb, nodes, data, nil); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return sb.String(), nil
}

func renderNodes(sb *strings.Builder, nodes []node, root Data, scopes []any) error {
	for _, n := range nodes {
		switch v := n.(type) {
		case textNode:
			sb.WriteString(string(v))
		case varNode:
			val, _ := resolve(v.expr, root, scopes)
			sb.WriteString(stringify(val))
		case ifNode:
			val, _ := resolve(v.cond, root, scopes)
			if truthy(val) {
				if err := renderNodes(sb, v.thenNodes, root, scopes); err != nil {
					return err
				}
			} else if err := renderNodes(sb, v.elseNodes, root, scopes); err != nil {
				return err
			}
		case unlessNode:
			val, _ := resolve(v.cond, root, scopes)
			if !truthy(val) {
				if err := renderNodes(sb, v.nodes, root, scopes); err != nil {
					return err
				}
			}
		case eachNode:
			val, ok := resolve(v.listExpr, root, scopes)
			if !ok {
				continue
			}
			items := toSlice(val)
			for _, item := range items {
				if err := renderNodes(sb, v.body, root, append(scopes, item)); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// resolve looks up a dotted path, relative to the innermost {{#each}}
// scope ("this" or "this.field") or the root Data otherwise.
func resolve(expr string, root Data, scopes []any) (any, bool) {
	expr = strings.TrimSpace(expr)
	if expr == "this" {
		if len(scopes) == 0 {
			return nil, false
		}
		return scopes[len(scopes)-1], true
	}
	if rest, ok := strings.CutPrefix(expr, "this."); ok {
		if len(scopes) == 0 {
			return nil, false
		}
		return lookupPath(scopes[len(scopes)-1], rest)
	}
	return lookupPath(map[string]any(root), expr)
}

func lookupPath(v any, path string) (any, bool) {
	parts := strings.Split(path, ".")
	cur := v
	for _, p := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func toSlice(v any) []any {
	if items, ok := v.([]any); ok {
		return items
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return v != nil
	}
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", t)
	}
}
