package postq

import (
	"bytes"
	stdjson "encoding/json"
	"errors"
	"io"

	"github.com/reoring/postq/i18n"
)

type dupFrame struct {
	object  bool
	keys    map[string]struct{}
	key     string // last key read in an object
	index   int    // next element index in an array
	wantKey bool
}

// DuplicateKeys reports every key repeated within one JSON object as a
// duplicate_key issue at the key's pointer. Input that is not valid JSON
// yields a single parse_error issue.
func DuplicateKeys(data []byte) Issues {
	dec := stdjson.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var (
		iss   Issues
		stack []dupFrame
	)
	path := func() PathRef {
		p := Root()
		for _, f := range stack[:len(stack)-1] {
			if f.object {
				p = p.Field(f.key)
			} else {
				p = p.Index(f.index)
			}
		}
		return p
	}
	endValue := func() {
		if len(stack) == 0 {
			return
		}
		top := &stack[len(stack)-1]
		if top.object {
			top.wantKey = true
		} else {
			top.index++
		}
	}
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) && len(stack) == 0 {
			return iss
		}
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		if err != nil {
			return AppendIssues(iss, Issue{Path: "/", Code: CodeParseError, Message: err.Error(), Cause: err})
		}
		switch v := tok.(type) {
		case stdjson.Delim:
			switch v {
			case '{':
				stack = append(stack, dupFrame{object: true, keys: map[string]struct{}{}, wantKey: true})
			case '[':
				stack = append(stack, dupFrame{})
			default:
				stack = stack[:len(stack)-1]
				endValue()
			}
		case string:
			if n := len(stack); n > 0 && stack[n-1].object && stack[n-1].wantKey {
				top := &stack[n-1]
				if _, seen := top.keys[v]; seen {
					iss = AppendIssues(iss, IssueAt(path().Field(v), CodeDuplicateKey, i18n.T(CodeDuplicateKey, nil), map[string]any{"key": v}))
				}
				top.keys[v] = struct{}{}
				top.key = v
				top.wantKey = false
				continue
			}
			endValue()
		default:
			endValue()
		}
	}
}
