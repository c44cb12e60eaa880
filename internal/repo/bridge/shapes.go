package bridge

import (
	"strings"

	"github.com/tidwall/gjson"
)

// shapeAdapter extracts the record array from one known response layout.
// ok is false when the layout does not match.
type shapeAdapter struct {
	name    string
	extract func(doc gjson.Result) (records []gjson.Result, ok bool)
}

func arrayAt(path string) func(gjson.Result) ([]gjson.Result, bool) {
	return func(doc gjson.Result) ([]gjson.Result, bool) {
		v := doc.Get(path)
		if !v.IsArray() {
			return nil, false
		}
		return v.Array(), true
	}
}

// recordAdapters is tried in order; the first match wins.
var recordAdapters = []shapeAdapter{
	{name: "array", extract: func(doc gjson.Result) ([]gjson.Result, bool) {
		if !doc.IsArray() {
			return nil, false
		}
		return doc.Array(), true
	}},
	{name: "items", extract: arrayAt("items")},
	{name: "chats", extract: arrayAt("chats")},
	{name: "conversations", extract: arrayAt("conversations")},
	{name: "rooms", extract: arrayAt("rooms")},
	{name: "messages", extract: arrayAt("messages")},
	{name: "accounts", extract: arrayAt("accounts")},
	{name: "results", extract: arrayAt("results")},
	{name: "data", extract: arrayAt("data")},
	{name: "data.items", extract: arrayAt("data.items")},
	{name: "content.chats", extract: arrayAt("content.chats")},
	{name: "content", extract: arrayAt("content")},
}

// extractRecords returns the records of a list response and the name of the
// adapter that matched. An unknown layout yields no records and an empty name.
func extractRecords(doc gjson.Result) ([]gjson.Result, string) {
	for _, a := range recordAdapters {
		if records, ok := a.extract(doc); ok {
			return records, a.name
		}
	}
	return nil, ""
}

// page is the pagination envelope around a record list.
type page struct {
	records []gjson.Result
	shape   string
	hasMore bool
	cursor  string
}

func parsePage(doc gjson.Result) page {
	records, shape := extractRecords(doc)
	p := page{records: records, shape: shape}
	if doc.IsArray() {
		return p
	}
	p.hasMore = firstBool(doc, "hasMore", "has_more", "data.hasMore")
	p.cursor = firstString(doc, "nextCursor", "next_cursor", "oldestCursor", "cursor", "data.nextCursor")
	return p
}

func firstString(r gjson.Result, paths ...string) string {
	for _, p := range paths {
		v := r.Get(p)
		switch v.Type {
		case gjson.String:
			if strings.TrimSpace(v.Str) != "" {
				return v.Str
			}
		case gjson.Number:
			return v.Raw
		}
	}
	return ""
}

func firstBool(r gjson.Result, paths ...string) bool {
	for _, p := range paths {
		v := r.Get(p)
		if v.Exists() {
			return v.Bool()
		}
	}
	return false
}

func firstInt(r gjson.Result, paths ...string) (int64, bool) {
	for _, p := range paths {
		v := r.Get(p)
		if v.Type == gjson.Number {
			return v.Int(), true
		}
	}
	return 0, false
}
