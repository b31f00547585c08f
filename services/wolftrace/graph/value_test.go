// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_Equal(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"null", Null(), Null(), true},
		{"number", Number(30), Number(30), true},
		{"number differs", Number(30), Number(31), false},
		{"kind differs", String("30"), Number(30), false},
		{"list order matters", List(String("a"), String("b")), List(String("b"), String("a")), false},
		{"object order ignored", ObjectValue(Attrs("x", 1, "y", 2)), ObjectValue(Attrs("y", 2, "x", 1)), true},
		{"nested object", ObjectValue(Attrs("x", map[string]any{"k": []any{1, "v"}})), ObjectValue(Attrs("x", map[string]any{"k": []any{1, "v"}})), true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.a.Equal(tc.b))
		})
	}
}

func TestValue_JSONKeepsKeyOrder(t *testing.T) {
	in := `{"zeta":1,"alpha":[true,null,"s"],"mid":{"b":2.5,"a":"x"}}`

	var v Value
	require.NoError(t, json.Unmarshal([]byte(in), &v))
	assert.Equal(t, KindObject, v.Kind())

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, in, string(out))
}

func TestValue_CloneIsDeep(t *testing.T) {
	obj := Attrs("tags", []string{"a"})
	v := ObjectValue(obj)
	obj.Set("tags", String("mutated"))

	inner, ok := v.AsObject()
	require.True(t, ok)
	tags, _ := inner.Get("tags")
	list, ok := tags.AsList()
	require.True(t, ok)
	assert.Len(t, list, 1)
}

func TestObject_SetKeepsPosition(t *testing.T) {
	obj := Attrs("a", 1, "b", 2)
	obj.Set("a", Number(9))
	obj.Set("c", Number(3))

	assert.Equal(t, []string{"a", "b", "c"}, obj.Keys())
	assert.True(t, obj.Delete("b"))
	assert.False(t, obj.Delete("b"))
	assert.Equal(t, []string{"a", "c"}, obj.Keys())
}

func TestObject_NilReadsAsEmpty(t *testing.T) {
	var obj *Object
	assert.Equal(t, 0, obj.Len())
	_, ok := obj.Get("x")
	assert.False(t, ok)
	assert.True(t, obj.Equal(NewObject()))
	assert.Equal(t, 0, obj.Clone().Len())
}

func TestMergeValues(t *testing.T) {
	var acc, a, b Value
	require.NoError(t, json.Unmarshal([]byte(`{"nodes":[1],"meta":{"x":1,"y":1},"name":"a"}`), &a))
	require.NoError(t, json.Unmarshal([]byte(`{"nodes":[2],"meta":{"y":2},"name":"b","extra":true}`), &b))

	acc = MergeValues(acc, a)
	acc = MergeValues(acc, b)

	out, err := json.Marshal(acc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"nodes":[1,2],"meta":{"x":1,"y":2},"name":"b","extra":true}`, string(out))

	lists := MergeValues(List(Number(1)), List(Number(2)))
	got, _ := lists.AsList()
	assert.Len(t, got, 2)
}

func TestValue_Text(t *testing.T) {
	assert.Equal(t, "31", Number(31).Text())
	assert.Equal(t, "2.5", Number(2.5).Text())
	assert.Equal(t, "hello", String("hello").Text())
	assert.Equal(t, `["a","b"]`, ValueOf([]string{"a", "b"}).Text())
}
