package ai

import "strings"

const (
	PROMPT_VAR_CONTENT       = "${content}"
	PROMPT_VAR_LANG          = "${lang}"
	PROMPT_VAR_GRAPH_NAME    = "${graph_name}"
	PROMPT_VAR_KNOWN_UNITS   = "${known_units}"
	PROMPT_VAR_CANDIDATE     = "${candidate}"
	PROMPT_VAR_MATCHES       = "${matches}"
	PROMPT_VAR_RELATION_SET  = "${relation_set}"
	PROMPT_VAR_SEGMENT_INDEX = "${segment_index}"
)

// BuildPrompt fills a template and fails when a ${var} is left unbound,
// so a broken caller never reaches the model with a raw placeholder.
func BuildPrompt(tpl string, vars map[string]string) (string, error) {
	for k, v := range vars {
		tpl = strings.ReplaceAll(tpl, k, v)
	}

	if idx := strings.Index(tpl, "${"); idx != -1 {
		end := strings.Index(tpl[idx:], "}")
		if end != -1 {
			return "", &PromptVarError{Var: tpl[idx : idx+end+1]}
		}
	}
	return tpl, nil
}

type PromptVarError struct {
	Var string
}

func (e *PromptVarError) Error() string {
	return "prompt variable unbound: " + e.Var
}

func (e *PromptVarError) Unwrap() error {
	return ErrMissingPromptContext
}
