// Package normalize turns the remote API's response envelopes into plain records.
//
// The API wraps lists differently per endpoint and occasionally leaks MongoDB
// extended JSON ({"$oid": ...}, {"$numberInt": ...}, {"$date": ...}). Items finds
// the list, Unwrap strips the wrappers and Decode maps the result onto domain types.
package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/khoahotran/personal-site/pkg/apperror"
)

// Items extracts the record list from body. It tries, in order: the body itself
// as an array, body.items, body.data.items and body.data as an array. A JSON body
// matching none of these yields an empty list.
func Items(body []byte) ([]map[string]any, error) {
	root, err := parse(body)
	if err != nil {
		return nil, err
	}
	list := extractList(root)
	out := make([]map[string]any, 0, len(list))
	for _, raw := range list {
		item, ok := Unwrap(raw).(map[string]any)
		if !ok {
			continue
		}
		out = append(out, withID(item))
	}
	return out, nil
}

// Item extracts a single entity from {data:{<key>:{...}}}, {data:{...}} or {...}.
func Item(body []byte, key string) (map[string]any, error) {
	root, err := parse(body)
	if err != nil {
		return nil, err
	}
	obj, ok := root.(map[string]any)
	if !ok {
		return nil, apperror.NewUpstream("Unexpected response from server", "response is not an object", nil)
	}
	if data, ok := obj["data"].(map[string]any); ok {
		obj = data
	}
	if key != "" {
		if inner, ok := obj[key].(map[string]any); ok {
			obj = inner
		}
	}
	item, _ := Unwrap(obj).(map[string]any)
	return withID(item), nil
}

// String reads a string at path, e.g. String(body, "data", "token").
func String(body []byte, path ...string) string {
	root, err := parse(body)
	if err != nil {
		return ""
	}
	cur := root
	for _, p := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return ""
		}
		cur = obj[p]
	}
	s, _ := Unwrap(cur).(string)
	return s
}

// Decode converts normalized items into typed records.
func Decode[T any](items []map[string]any) ([]T, error) {
	out := make([]T, 0, len(items))
	for i, item := range items {
		var rec T
		if err := DecodeOne(item, &rec); err != nil {
			return nil, apperror.NewUpstream("Unexpected response from server", fmt.Sprintf("item %d does not match the expected shape", i), err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func DecodeOne(item map[string]any, dst any) error {
	data, err := json.Marshal(item)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}

func parse(body []byte) (any, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var root any
	if err := dec.Decode(&root); err != nil {
		return nil, apperror.NewUpstream("Unexpected response from server", "response body is not JSON", err)
	}
	return root, nil
}

func extractList(root any) []any {
	if arr, ok := root.([]any); ok {
		return arr
	}
	obj, ok := root.(map[string]any)
	if !ok {
		return nil
	}
	if arr, ok := obj["items"].([]any); ok {
		return arr
	}
	switch data := obj["data"].(type) {
	case map[string]any:
		if arr, ok := data["items"].([]any); ok {
			return arr
		}
	case []any:
		return data
	}
	return nil
}

func withID(item map[string]any) map[string]any {
	if item == nil {
		return nil
	}
	if _, ok := item["id"]; !ok {
		if id, ok := item["_id"]; ok {
			item["id"] = id
		}
	}
	return item
}
