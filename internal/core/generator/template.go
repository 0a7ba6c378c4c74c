package generator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"text/template"
)

// EnvPair is one rendered environment variable.
type EnvPair struct {
	Name  string
	Value any
}

var templateFuncs = template.FuncMap{
	// json renders a value as a JSON literal, used for exec-form CMD and
	// ENTRYPOINT instructions.
	"json": func(v any) (string, error) {
		b, err := json.Marshal(v)
		return string(b), err
	},
	"join":     joinStrings,
	"envpairs": envPairs,
}

// joinStrings joins a YAML string list with the given separator.
func joinStrings(v any, sep string) string {
	items, ok := v.([]any)
	if !ok {
		return ""
	}
	var buf bytes.Buffer
	for i, item := range items {
		if i > 0 {
			buf.WriteString(sep)
		}
		fmt.Fprintf(&buf, "%v", item)
	}
	return buf.String()
}

// envPairs flattens the envs mapping (section name to a list of name/value
// entries) into one list, with sections in stable name order.
func envPairs(v any) []EnvPair {
	sections, ok := v.(map[string]any)
	if !ok {
		return nil
	}

	names := make([]string, 0, len(sections))
	for name := range sections {
		names = append(names, name)
	}
	sort.Strings(names)

	var pairs []EnvPair
	for _, name := range names {
		entries, ok := sections[name].([]any)
		if !ok {
			continue
		}
		for _, item := range entries {
			entry, ok := item.(map[string]any)
			if !ok {
				continue
			}
			pairName, _ := entry["name"].(string)
			if pairName == "" {
				continue
			}
			pairs = append(pairs, EnvPair{Name: pairName, Value: entry["value"]})
		}
	}
	return pairs
}

// builtinTemplate is the default Dockerfile layout. The USER instruction is
// rendered immediately before CMD; cmd and entrypoint use exec form.
const builtinTemplate = `# This file was generated, all changes will be overwritten.
FROM {{ .from }}

{{ if .name -}}
LABEL name="{{ .name }}" \
      version="{{ .version }}"{{ if .release }} \
      release="{{ .release }}"{{ end }}
{{ end -}}

{{- range $pair := envpairs .envs }}
ENV {{ $pair.Name }}="{{ $pair.Value }}"
{{- end }}

{{- range $name, $value := .labels }}
LABEL {{ $name }}="{{ $value }}"
{{- end }}

{{- if .packages }}
RUN yum install -y {{ join .packages " " }}{{ range .additional_repos }} --enablerepo={{ . }}{{ end }} \
    && yum clean all \
    && rpm -q {{ join .packages " " }}
{{- end }}

{{- range $a := .artifacts }}
ADD {{ index $a "name" }} /tmp/artifacts/{{ index $a "name" }}
{{- end }}

{{- range $s := .scripts }}
USER {{ index $s "user" }}
RUN [ "bash", "-x", "/tmp/scripts/{{ index $s "package" }}/{{ index $s "exec" }}" ]
{{- end }}

{{- if .workdir }}
WORKDIR {{ .workdir }}
{{- end }}

{{- range .volumes }}
VOLUME ["{{ . }}"]
{{- end }}

USER {{ .user }}

{{ if .entrypoint -}}
ENTRYPOINT {{ json .entrypoint }}
{{ end -}}
{{ if .cmd -}}
CMD {{ json .cmd }}
{{ end -}}
`

// renderTemplate renders the effective configuration into the build file at
// out. An empty templatePath selects the builtin template.
func renderTemplate(templatePath string, cfg map[string]any, out string) error {
	var tpl *template.Template
	var err error

	if templatePath == "" {
		tpl, err = template.New("Dockerfile").Funcs(templateFuncs).Parse(builtinTemplate)
	} else {
		tpl, err = template.New(filepath.Base(templatePath)).Funcs(templateFuncs).ParseFiles(templatePath)
	}
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, cfg); err != nil {
		return fmt.Errorf("failed to render template: %w", err)
	}

	return os.WriteFile(out, buf.Bytes(), 0o644)
}
