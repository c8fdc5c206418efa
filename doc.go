// Package postq provides the schema core of the post data layer:
//
// - Type-safe validation and transformation based on Schema/Codec (Parse/Validate/Decode/Encode)
// - A stable error model via Issues (JSON Pointer, code, message)
// - JSON entry points backed by goccy/go-json
//
// Layout:
// - Builders live under dsl/, codecs and read-side transforms under codec/.
// - The validating query wrapper lives under query/, the HTTP transport under query/fetch.
// - The query cache (tags, subscriptions, optimistic patches) lives under cache/.
// - The post data client lives under posts/; the mock backend under internal/mockserver.
//
// Typical usage:
//
//	s := posts.PostSchema()
//	p, err := postq.ParseJSON(ctx, s, data)
//	if iss, ok := postq.AsIssues(err); ok {
//		for _, it := range iss {
//			fmt.Println(it.Path, it.Message)
//		}
//	}
package postq
