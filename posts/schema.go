package posts

import (
	"context"
	"fmt"

	"github.com/reoring/postq"
	"github.com/reoring/postq/codec"
	"github.com/reoring/postq/dsl"
	js "github.com/reoring/postq/jsonschema"
)

// Title rules shared by every post shape.
const (
	TitleMinLength   = 10
	MsgTitleTooShort = "Post title have to be 10 or more characters long."
	MsgTitleMissing  = "One of posts is missing title"
)

// Schemas holds every post shape the client validates.
type Schemas struct {
	Post   postq.Schema[Post]
	Posts  postq.Schema[[]Post]
	List   postq.Schema[[]PostListItem]
	Draft  postq.Schema[Draft]
	Patch  postq.Schema[Patch]
	Delete postq.Schema[DeleteResult]
}

// TitleSchema returns the title rules. strict additionally requires an
// uppercase first letter.
func TitleSchema(strict bool) dsl.StringBuilder {
	s := dsl.String().Min(TitleMinLength, MsgTitleTooShort)
	if strict {
		s = s.UppercaseFirst()
	}
	return s
}

// NewSchemas builds the post schemas.
func NewSchemas(strict bool) Schemas {
	title := dsl.StringWith[string](TitleSchema(strict))
	post := dsl.Object().
		Field("id", dsl.StringOf[string]()).Required().
		Field("name", title).Required(MsgTitleMissing).
		Field("content", dsl.StringOf[string]()).
		Field("created", dsl.CodecOf(codec.TimeRFC3339()).Describe("creation time, RFC3339")).
		UnknownStrip()

	draft := post.Omit("created").Partial().
		Field("name", title).Required(MsgTitleMissing).
		UnknownStrict()
	patch := post.Omit("id", "created").Partial().UnknownStrict()

	item := dsl.MustBind[PostListItem](dsl.Object().
		Field("id", dsl.StringOf[string]()).Required().
		Field("name", title).Required(MsgTitleMissing).
		Field("content", dsl.TransformOf(dsl.String(), excerpt)).
		Field("created", dsl.CodecOf(codec.DisplayDate(""))).
		UnknownStrip())

	del := dsl.MustBind[DeleteResult](dsl.Object().
		Field("success", dsl.BoolOf[bool]()).Required().
		Field("id", dsl.StringOf[string]()).Required().
		UnknownStrip())

	postSchema := dsl.MustBind[Post](post)
	return Schemas{
		Post:   postSchema,
		Posts:  dsl.Array(postSchema),
		List:   dsl.Array(item),
		Draft:  dsl.MustBind[Draft](draft),
		Patch:  dsl.MustBind[Patch](patch),
		Delete: del,
	}
}

func excerpt(_ context.Context, s string) (string, error) {
	return codec.Excerpt(s, codec.ExcerptLength), nil
}

// SchemaNames lists the names accepted by JSONSchema.
var SchemaNames = []string{"post", "draft", "patch", "list"}

// JSONSchema exports one of the shapes by name.
func (s Schemas) JSONSchema(name string) (*js.Schema, error) {
	switch name {
	case "post":
		return s.Post.JSONSchema()
	case "draft":
		return s.Draft.JSONSchema()
	case "patch":
		return s.Patch.JSONSchema()
	case "list":
		return s.List.JSONSchema()
	default:
		return nil, fmt.Errorf("unknown schema %q (want one of %v)", name, SchemaNames)
	}
}
