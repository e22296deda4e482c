package relationship

import (
	"hash/fnv"
	"regexp"
	"sort"
	"strings"

	"vinculo/models"
)

// Os dois formatos de placeholder usados pelos templates: [Variavel] e {{Variavel}}.
var placeholderRe = regexp.MustCompile(`\[([A-Za-z0-9_]+)\]|\{\{([A-Za-z0-9_]+)\}\}`)

// Render substitui os placeholders do template pelos valores do contexto.
// Placeholder cuja variável não está no contexto fica no texto como literal —
// visível na mensagem entregue/logada em vez de sumir silenciosamente.
// Nunca retorna erro.
func Render(variant string, ctx map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(variant, func(m string) string {
		name := strings.Trim(m, "[]{}")
		if v, ok := ctx[name]; ok {
			return v
		}
		return m
	})
}

// UsedVariables lista, em ordem estável, as variáveis do contexto que o
// template efetivamente referencia (para a coluna variables_used).
func UsedVariables(variant string, ctx map[string]string) []string {
	seen := map[string]bool{}
	for _, m := range placeholderRe.FindAllString(variant, -1) {
		name := strings.Trim(m, "[]{}")
		if _, ok := ctx[name]; ok {
			seen[name] = true
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

/************************************************
/**** MARK: VARIANT SELECTION ****/
/************************************************/
const VARIANT_V1 = "v1"
const VARIANT_V2 = "v2"
const VARIANT_AB = "ab"

// SelectVariant escolhe o corpo de mensagem do template conforme a política
// configurada: "v1" (default), "v2", ou "ab" (hash estável do aluno divide o
// público entre as duas versões). Template sem message_v2 sempre usa v1.
func SelectVariant(t models.Template, policy string, studentID string) string {
	if strings.TrimSpace(t.MessageV2) == "" {
		return t.MessageV1
	}
	switch policy {
	case VARIANT_V2:
		return t.MessageV2
	case VARIANT_AB:
		h := fnv.New32a()
		h.Write([]byte(studentID + ":" + t.Code))
		if h.Sum32()%2 == 1 {
			return t.MessageV2
		}
		return t.MessageV1
	default:
		return t.MessageV1
	}
}
