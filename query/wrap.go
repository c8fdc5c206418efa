package query

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/reoring/postq"
)

type wrapConfig struct {
	logger     *zap.Logger
	issueLimit int
}

// WrapOption configures WithSchemaValidation.
type WrapOption func(*wrapConfig)

// WithLogger logs validation failures at debug level.
func WithLogger(l *zap.Logger) WrapOption {
	return func(c *wrapConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithIssueLimit keeps at most n issues per error. n <= 0 keeps all.
func WithIssueLimit(n int) WrapOption {
	return func(c *wrapConfig) { c.issueLimit = n }
}

// WithSchemaValidation wraps base so that request bodies are checked against
// Options.ArgsSchema before sending, and successful payloads are parsed with
// Options.DataSchema. Both failures surface as KindValidation errors; the
// transport's own failures pass through untouched.
func WithSchemaValidation(base BaseQuery, opts ...WrapOption) BaseQuery {
	cfg := wrapConfig{logger: zap.NewNop()}
	for _, o := range opts {
		o(&cfg)
	}
	return func(ctx context.Context, args Args) Result {
		if s := args.Options.ArgsSchema; s != nil && args.Body != nil {
			if _, iss := cfg.parse(ctx, s, args.Body); len(iss) > 0 {
				cfg.logger.Debug("request body rejected",
					zap.String("request", args.Key()),
					zap.Array("issues", issueList(iss)))
				return Result{Data: args.Body, Err: ValidationError(iss, args.Body)}
			}
		}

		res := base(ctx, args)

		s := args.Options.DataSchema
		if res.Err != nil || res.Data == nil || s == nil {
			return res
		}
		parsed, iss := cfg.parse(ctx, s, res.Data)
		if len(iss) > 0 {
			cfg.logger.Debug("response payload rejected",
				zap.String("request", args.Key()),
				zap.Any("data", res.Data),
				zap.Array("issues", issueList(iss)))
			ve := ValidationError(iss, res.Data)
			ve.Status = res.Meta.Status
			return Result{Data: res.Data, Err: ve, Meta: res.Meta}
		}
		res.Data = parsed
		return res
	}
}

// parse runs s over v in wire form. Panics and plain errors become a single
// parse_error issue.
func (c wrapConfig) parse(ctx context.Context, s Validator, v any) (out any, iss postq.Issues) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			iss = postq.Issues{{Path: "/", Code: postq.CodeParseError, Message: fmt.Sprintf("schema panicked: %v", r)}}
		}
	}()
	wire, err := postq.Normalize(v)
	if err != nil {
		return nil, postq.ToIssues(err)
	}
	out, err = s.Parse(ctx, wire)
	if err == nil {
		return out, nil
	}
	iss = postq.ToIssues(err)
	if len(iss) == 0 {
		iss = postq.Issues{{Path: "/", Code: postq.CodeParseError, Message: err.Error(), Cause: err}}
	}
	if c.issueLimit > 0 && len(iss) > c.issueLimit {
		iss = iss[:c.issueLimit]
	}
	return nil, iss
}

type issueList postq.Issues

func (l issueList) MarshalLogArray(enc zapcore.ArrayEncoder) error {
	for _, it := range l {
		err := enc.AppendObject(zapcore.ObjectMarshalerFunc(func(oe zapcore.ObjectEncoder) error {
			oe.AddString("path", it.Path)
			oe.AddString("code", it.Code)
			oe.AddString("message", it.Message)
			return nil
		}))
		if err != nil {
			return err
		}
	}
	return nil
}
