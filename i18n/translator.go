package i18n

import (
	"strings"
	"sync/atomic"
)

// Translator retrieves localized messages for Issue codes.
// data provides optional metadata to embed in the message (for example,
// "min" or "expected"); placeholders are written as {name}.
type Translator interface {
	Message(code string, data map[string]string) string
}

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct{ lang string }

var dictionaries = map[string]map[string]string{
	"en": {
		"invalid_type":   "invalid type",
		"required":       "required property missing",
		"unknown_key":    "unknown key",
		"too_short":      "must be at least {min} characters long",
		"too_long":       "must be at most {max} characters long",
		"too_small":      "must contain at least {min} items",
		"too_big":        "must contain at most {max} items",
		"pattern":        "does not match the expected format",
		"invalid_format": "invalid {format}",
		"parse_error":    "parse error",
		"truncated":      "truncated",
		"immutable":      "field cannot be changed",
		"uppercase":      "must start with an uppercase letter",
		"duplicate_key":  "duplicate key",
	},
	"ja": {
		"invalid_type":   "型が不正です",
		"required":       "必須プロパティが不足しています",
		"unknown_key":    "未知のキーです",
		"too_short":      "{min}文字以上で入力してください",
		"too_long":       "{max}文字以下で入力してください",
		"too_small":      "{min}件以上必要です",
		"too_big":        "{max}件以下にしてください",
		"pattern":        "形式が不正です",
		"invalid_format": "{format}の形式が不正です",
		"parse_error":    "解析エラー",
		"truncated":      "打ち切られました",
		"immutable":      "変更できないフィールドです",
		"uppercase":      "先頭は大文字にしてください",
		"duplicate_key":  "キーが重複しています",
	},
}

func (t dictTranslator) Message(code string, data map[string]string) string {
	msg, ok := dictionaries[t.lang][code]
	if !ok {
		return code
	}
	return expand(msg, data)
}

func expand(msg string, data map[string]string) string {
	if len(data) == 0 || !strings.Contains(msg, "{") {
		return msg
	}
	pairs := make([]string, 0, len(data)*2)
	for k, v := range data {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(msg)
}

type holder struct{ tr Translator }

var current atomic.Pointer[holder]

func init() { current.Store(&holder{tr: dictTranslator{lang: "en"}}) }

// SetLanguage switches the built-in Translator language ("en"/"ja").
func SetLanguage(lang string) {
	if _, ok := dictionaries[lang]; !ok {
		lang = "en"
	}
	current.Store(&holder{tr: dictTranslator{lang: lang}})
}

// SetTranslator replaces the Translator implementation (not limited to the
// dictionary version).
func SetTranslator(tr Translator) {
	if tr == nil {
		tr = dictTranslator{lang: "en"}
	}
	current.Store(&holder{tr: tr})
}

// T fetches a message for the given code using the current Translator.
func T(code string, data map[string]string) string { return current.Load().tr.Message(code, data) }
