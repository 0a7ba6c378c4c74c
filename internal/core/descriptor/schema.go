package descriptor

import (
	"context"

	goskema "github.com/reoring/goskema"
	g "github.com/reoring/goskema/dsl"
	js "github.com/reoring/goskema/jsonschema"
)

// scalarSchema accepts any YAML scalar untouched. Fields like version, release
// and user legitimately arrive as either strings or numbers (and may hold
// substitution placeholders that only resolve to their final type later), so
// the schema constrains their presence, not their scalar type.
type scalarSchema struct{}

func (scalarSchema) Parse(ctx context.Context, v any) (any, error) {
	switch v.(type) {
	case map[string]any, []any:
		return nil, goskema.Issues{goskema.Issue{Path: "/", Code: goskema.CodeInvalidType, Message: "expected a scalar value"}}
	}
	return v, nil
}

func (s scalarSchema) ParseWithMeta(ctx context.Context, v any) (goskema.Decoded[any], error) {
	val, err := s.Parse(ctx, v)
	return goskema.Decoded[any]{Value: val, Presence: goskema.PresenceMap{"/": goskema.PresenceSeen}}, err
}

func (s scalarSchema) TypeCheck(ctx context.Context, v any) error {
	_, err := s.Parse(ctx, v)
	return err
}

func (scalarSchema) RuleCheck(ctx context.Context, v any) error { return nil }

func (s scalarSchema) Validate(ctx context.Context, v any) error { return s.TypeCheck(ctx, v) }

func (scalarSchema) ValidateValue(ctx context.Context, v any) error { return nil }

func (scalarSchema) JSONSchema() (*js.Schema, error) { return &js.Schema{}, nil }

func scalar() g.AnyAdapter { return g.SchemaOf[any](scalarSchema{}) }

// toolBlock validates the imagen: settings block shared by both kinds.
func toolBlock() g.AnyAdapter {
	b := g.Object().
		Field("version", g.StringOf[string]()).Optional().
		Field("ssl_verify", g.BoolOf[bool]()).Optional().
		Field("template", g.StringOf[string]()).Optional().
		Field("scripts_path", g.StringOf[string]()).Optional().
		Field("additional_scripts", g.ArrayOf[string](g.String())).Optional().
		UnknownStrict()
	return g.SchemaOf[map[string]any](b.MustBuild())
}

func buildSchema(kind Kind) goskema.Schema[map[string]any] {
	b := g.Object().
		Field("name", g.StringOf[string]()).Required().
		Field("version", scalar()).Optional().
		Field("release", scalar()).Optional().
		Field("description", g.StringOf[string]()).Optional().
		Field("from", g.StringOf[string]()).Optional().
		Field("user", scalar()).Optional().
		Field("cmd", g.ArrayOf[string](g.String())).Optional().
		Field("entrypoint", g.ArrayOf[string](g.String())).Optional().
		Field("volumes", g.ArrayOf[string](g.String())).Optional().
		Field("workdir", g.StringOf[string]()).Optional().
		Field("packages", g.ArrayOf[string](g.String())).Optional().
		Field("modules", g.ArrayOf[string](g.String())).Optional().
		Field("envs", g.SchemaOf[map[string]any](g.MapAny())).Optional().
		Field("labels", g.SchemaOf[map[string]any](g.MapAny())).Optional().
		Field("artifacts", g.ArrayOf[map[string]any](g.MapAny())).Optional().
		Field("scripts", g.ArrayOf[map[string]any](g.MapAny())).Optional().
		Field("imagen", toolBlock()).Optional().
		UnknownStrict()

	if kind == KindImage {
		b = b.Require("from", "version")
	}

	return b.MustBuild()
}

var schemas = map[Kind]goskema.Schema[map[string]any]{
	KindImage:  buildSchema(KindImage),
	KindModule: buildSchema(KindModule),
}
