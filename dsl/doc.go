// Package dsl provides a type-safe schema DSL for postq.
//
// Overview
//   - Builder API: declare JSON object semantics (unknown/required/default/refine) with Object()/Field()/Required()/UnknownStrict()/MustBuild().
//   - Typed build: bind an object builder to a struct with Bind[T]/MustBind[T]; keys resolve via postq:"name=..." then json tags.
//   - Primitives/Array: String()/Bool(), Array(elem).
//   - Conversions: Codec(c) turns a postq.Codec into a Schema; Transform(in, fn) maps a parsed value one way.
//   - AnyAdapter: adapt an existing Schema[T] with SchemaOf[T](s) to embed it into builders.
//
// Entry points
//   - Object(): create an object builder; chain Field/Required/Unknown* then MustBuild()/Build.
//   - Partial()/Omit(keys...): derive patch or draft shapes from a full object builder.
//   - Array(elem): build an array schema from an element schema (Min/Max).
//   - StringOf[T]()/StringWith[T](s)/ObjectOf[T](s)/CodecOf(c)/TransformOf(in, fn): AnyAdapters for Field.
//
// File layout (roles)
//   - adapter.go: AnyAdapter and Nullable/Describe.
//   - primitives.go: String and Bool schemas.
//   - object_builder.go: objectBuilder/fieldStep and Build/MustBuild.
//   - object_core.go: objectSchema (Parse/Validate/JSONSchema).
//   - bind.go: typed binding to structs.
//   - array.go, codec_wrap.go, transform.go.
//
// Error model
//
// Every failure is postq.Issues. Object and array parsing collect every issue
// in key/index order unless the context carries postq.WithFailFast; nested
// issues are rebased under the parent JSON Pointer.
//
// Example
//
//	type Post struct {
//	    ID   string `json:"id"`
//	    Name string `json:"name"`
//	}
//
//	schema := dsl.MustBind[Post](
//	    dsl.Object().
//	        Field("id", dsl.StringOf[string]()).Required().
//	        Field("name", dsl.StringWith[string](dsl.String().Min(10))).Required("missing title").
//	        UnknownStrip(),
//	)
//	p, err := postq.ParseJSON(ctx, schema, []byte(`{"id":"1","name":"A long enough title"}`))
package dsl
