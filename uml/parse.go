package uml

import (
	"context"
	"fmt"
	"strings"

	"github.com/umlforge/umlforge/agent"
	"github.com/umlforge/umlforge/core"
	"github.com/umlforge/umlforge/logging"
)

// relation arrow tokens, most specific first so "--" does not shadow "<|--".
var relationTokens = []struct {
	token string
	kind  string
}{
	{"<|--", "inheritance"},
	{"*--", "composition"},
	{"o--", "aggregation"},
	{"..>", "dependency"},
	{"-->", "association"},
	{"--", "association"},
}

// NewParser returns the agent that parses the surviving textual draft into a
// structured model record under KeyUMLModel.
func NewParser(logger logging.Logger) core.Agent {
	return agent.NewFunc("parser",
		[]string{KeyUMLSpec},
		[]string{KeyUMLModel},
		func(_ context.Context, sc *core.Scope) error {
			spec, err := sc.Get(KeyUMLSpec)
			if err != nil {
				return err
			}
			text, ok := spec.AsText()
			if !ok {
				return fmt.Errorf("key %q does not hold text", KeyUMLSpec)
			}

			rec, err := ParseSpec(text)
			if err != nil {
				return fmt.Errorf("parsing uml spec: %w", err)
			}
			return sc.Set(KeyUMLModel, core.Record(rec))
		},
		func(o *agent.FuncOptions) {
			o.Description = "Parses the textual UML draft into a structured model"
			o.Logger = logger
		},
	)
}

// NewMaterializer returns the agent that renders the structured model as a
// PlantUML document under KeyDocument.
func NewMaterializer(logger logging.Logger) core.Agent {
	return agent.NewFunc("materializer",
		[]string{KeyUMLModel},
		[]string{KeyDocument},
		func(_ context.Context, sc *core.Scope) error {
			v, err := sc.Get(KeyUMLModel)
			if err != nil {
				return err
			}
			rec, ok := v.AsRecord()
			if !ok {
				return fmt.Errorf("key %q does not hold a record", KeyUMLModel)
			}
			return sc.Set(KeyDocument, core.Text(RenderPlantUML(rec)))
		},
		func(o *agent.FuncOptions) {
			o.Description = "Renders the structured model as a PlantUML document"
			o.Logger = logger
		},
	)
}

// ParseSpec parses the textual class-model form the designer is instructed
// to emit. Markdown fences and blank lines are tolerated; anything else that
// is neither a class block nor a relation line is an error, so malformed
// model output fails loudly instead of producing an empty document.
func ParseSpec(text string) (map[string]any, error) {
	var classes []any
	var relations []any

	var current map[string]any

	for lineNo, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "```") || strings.HasPrefix(line, "'") {
			continue
		}

		if current != nil {
			if line == "}" {
				classes = append(classes, current)
				current = nil
				continue
			}
			member := strings.TrimSuffix(line, ";")
			if strings.Contains(member, "(") {
				current["operations"] = append(current["operations"].([]any), member)
			} else {
				current["attributes"] = append(current["attributes"].([]any), member)
			}
			continue
		}

		if name, open, ok := parseClassHeader(line); ok {
			current = map[string]any{
				"name":       name,
				"attributes": []any{},
				"operations": []any{},
			}
			if !open {
				classes = append(classes, current)
				current = nil
			}
			continue
		}

		if rel, ok := parseRelation(line); ok {
			relations = append(relations, rel)
			continue
		}

		return nil, fmt.Errorf("line %d: unrecognized construct %q", lineNo+1, line)
	}

	if current != nil {
		return nil, fmt.Errorf("class %v: unterminated body", current["name"])
	}
	if len(classes) == 0 {
		return nil, fmt.Errorf("no classes found")
	}

	return map[string]any{
		"classes":   classes,
		"relations": relations,
	}, nil
}

// parseClassHeader matches `class Name`, `class Name {` and `class Name { }`.
func parseClassHeader(line string) (name string, open bool, ok bool) {
	rest, found := strings.CutPrefix(line, "class ")
	if !found {
		return "", false, false
	}
	rest = strings.TrimSpace(rest)

	if body, hasBrace := strings.CutSuffix(rest, "{"); hasBrace {
		return strings.TrimSpace(body), true, true
	}
	if body, closed := strings.CutSuffix(rest, "{ }"); closed {
		return strings.TrimSpace(body), false, true
	}
	if strings.ContainsAny(rest, " {}") {
		return "", false, false
	}
	return rest, false, true
}

// parseRelation matches `From TOKEN To` with an optional ` : label` suffix
// and optional quoted cardinalities around the token.
func parseRelation(line string) (map[string]any, bool) {
	label := ""
	if idx := strings.Index(line, " : "); idx >= 0 {
		label = strings.TrimSpace(line[idx+3:])
		line = strings.TrimSpace(line[:idx])
	}

	for _, rt := range relationTokens {
		idx := strings.Index(line, rt.token)
		if idx < 0 {
			continue
		}

		from := stripTrailingCardinality(strings.TrimSpace(line[:idx]))
		to := stripLeadingCardinality(strings.TrimSpace(line[idx+len(rt.token):]))
		if from == "" || to == "" || strings.ContainsAny(from, " \t") || strings.ContainsAny(to, " \t") {
			return nil, false
		}

		return map[string]any{
			"from":  from,
			"to":    to,
			"kind":  rt.kind,
			"token": rt.token,
			"label": label,
		}, true
	}

	return nil, false
}

// stripTrailingCardinality drops a quoted multiplicity like `Library "1"`.
func stripTrailingCardinality(s string) string {
	if strings.HasSuffix(s, `"`) {
		if i := strings.LastIndex(s[:len(s)-1], `"`); i >= 0 {
			return strings.TrimSpace(s[:i])
		}
	}
	return s
}

// stripLeadingCardinality drops a quoted multiplicity like `"*" Book`.
func stripLeadingCardinality(s string) string {
	if strings.HasPrefix(s, `"`) {
		if i := strings.Index(s[1:], `"`); i >= 0 {
			return strings.TrimSpace(s[i+2:])
		}
	}
	return s
}

// RenderPlantUML renders a parsed model record as a PlantUML class diagram.
func RenderPlantUML(rec map[string]any) string {
	var b strings.Builder
	b.WriteString("@startuml\n")

	if classes, ok := rec["classes"].([]any); ok {
		for _, c := range classes {
			cls, ok := c.(map[string]any)
			if !ok {
				continue
			}
			fmt.Fprintf(&b, "class %v {\n", cls["name"])
			writeMembers(&b, cls["attributes"])
			writeMembers(&b, cls["operations"])
			b.WriteString("}\n")
		}
	}

	if relations, ok := rec["relations"].([]any); ok {
		for _, r := range relations {
			rel, ok := r.(map[string]any)
			if !ok {
				continue
			}
			token, _ := rel["token"].(string)
			if token == "" {
				token = "--"
			}
			fmt.Fprintf(&b, "%v %s %v", rel["from"], token, rel["to"])
			if label, _ := rel["label"].(string); label != "" {
				fmt.Fprintf(&b, " : %s", label)
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("@enduml\n")
	return b.String()
}

func writeMembers(b *strings.Builder, v any) {
	members, ok := v.([]any)
	if !ok {
		return
	}
	for _, m := range members {
		fmt.Fprintf(b, "  %v\n", m)
	}
}
