package normalize

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khoahotran/personal-site/internal/domain/experience"
	"github.com/khoahotran/personal-site/internal/domain/post"
	"github.com/khoahotran/personal-site/pkg/apperror"
)

func TestItemsEnvelopes(t *testing.T) {
	tests := []struct {
		name string
		body string
		ids  []string
	}{
		{"bare array", `[{"id":"a"},{"id":"b"}]`, []string{"a", "b"}},
		{"items", `{"items":[{"id":"a"}]}`, []string{"a"}},
		{"data.items", `{"statusCode":200,"data":{"items":[{"id":"a"},{"id":"b"}]},"success":true}`, []string{"a", "b"}},
		{"data array", `{"data":[{"id":"c"}]}`, []string{"c"}},
		{"items wins over data", `{"items":[{"id":"x"}],"data":[{"id":"y"}]}`, []string{"x"}},
		{"unknown object", `{"data":{"experience":{"id":"a"}}}`, []string{}},
		{"scalar", `"hello"`, []string{}},
		{"empty body", ``, []string{}},
		{"non-object items skipped", `[1,{"id":"a"},"x"]`, []string{"a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := Items([]byte(tt.body))
			require.NoError(t, err)
			ids := make([]string, 0, len(items))
			for _, it := range items {
				ids = append(ids, it["id"].(string))
			}
			assert.Equal(t, tt.ids, ids)
		})
	}
}

func TestItemsRejectsNonJSON(t *testing.T) {
	_, err := Items([]byte("<html>bad gateway</html>"))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrUpstream)
}

func TestUnderscoreIDCopied(t *testing.T) {
	items, err := Items([]byte(`[{"_id":{"$oid":"65a1f0c2e4b0a1b2c3d4e5f6"},"role":"Dev"},{"_id":"plain","id":"kept"}]`))
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "65a1f0c2e4b0a1b2c3d4e5f6", items[0]["id"])
	assert.Equal(t, "65a1f0c2e4b0a1b2c3d4e5f6", items[0]["_id"])
	assert.Equal(t, "kept", items[1]["id"])
}

func TestUnwrapWrappers(t *testing.T) {
	body := `[{
		"_id": {"$oid": "65a1f0c2e4b0a1b2c3d4e5f6"},
		"role": "Engineer",
		"order": {"$numberInt": "3"},
		"current": {"$numberBoolean": "true"},
		"startDate": {"$date": "2023-01-15T00:00:00Z"},
		"endDate": {"$date": {"$numberLong": "1709251200000"}},
		"createdAt": {"$date": 1675245600000},
		"tags": [{"$oid": "65a1f0c2e4b0a1b2c3d4e5f7"}, "go"]
	}]`
	items, err := Items([]byte(body))
	require.NoError(t, err)
	recs, err := Decode[experience.Experience](items)
	require.NoError(t, err)
	require.Len(t, recs, 1)

	e := recs[0]
	assert.Equal(t, "65a1f0c2e4b0a1b2c3d4e5f6", e.ID)
	assert.Equal(t, 3, e.Order)
	assert.True(t, e.Current)
	assert.Equal(t, "2023-01-15", e.StartDate.InputValue())
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), e.EndDate.UTC())
	assert.Equal(t, "2023-02-01", e.CreatedAt.InputValue())
	assert.Equal(t, []string{"65a1f0c2e4b0a1b2c3d4e5f7", "go"}, []string(e.Tags))
}

func TestUnwrapNumbers(t *testing.T) {
	tests := map[string]string{
		`{"$numberLong": "9007199254740993"}`: "9007199254740993",
		`{"$numberDouble": "1.5"}`:            "1.5",
		`{"$numberDecimal": "2.25"}`:          "2.25",
		`{"$numberInt": "-4"}`:                "-4",
	}
	for raw, want := range tests {
		var v any
		dec := json.NewDecoder(strings.NewReader(raw))
		dec.UseNumber()
		require.NoError(t, dec.Decode(&v))

		out, err := json.Marshal(Unwrap(v))
		require.NoError(t, err, raw)
		assert.Equal(t, want, string(out), raw)
	}
}

func TestUnwrapLeavesOrdinaryObjects(t *testing.T) {
	in := map[string]any{"$set": "x"}
	assert.Equal(t, map[string]any{"$set": "x"}, Unwrap(in))

	nested := map[string]any{"meta": map[string]any{"source": "site", "n": map[string]any{"$numberBoolean": false}}}
	assert.Equal(t, map[string]any{"meta": map[string]any{"source": "site", "n": false}}, Unwrap(nested))
}

func TestPublishedDefault(t *testing.T) {
	public, err := Items([]byte(`{"data":{"items":[{"_id":"p1","title":"Launch"}]}}`))
	require.NoError(t, err)
	admin, err := Items([]byte(`{"data":{"items":[{"_id":"p2","title":"Draft","published":false}]}}`))
	require.NoError(t, err)

	pub, err := Decode[post.Post](public)
	require.NoError(t, err)
	adm, err := Decode[post.Post](admin)
	require.NoError(t, err)

	assert.Nil(t, pub[0].Published)
	assert.True(t, pub[0].IsPublished(), "absent flag reads as published")
	assert.False(t, adm[0].IsPublished())
}

func TestItem(t *testing.T) {
	tests := map[string]string{
		`{"data":{"admin":{"_id":"a1","email":"me@example.com"},"token":"t"}}`: "a1",
		`{"data":{"_id":"a2","email":"me@example.com"}}`:                       "a2",
		`{"_id":"a3","email":"me@example.com"}`:                                "a3",
	}
	for body, want := range tests {
		got, err := Item([]byte(body), "admin")
		require.NoError(t, err, body)
		assert.Equal(t, want, got["id"], body)
	}

	_, err := Item([]byte(`[1,2]`), "admin")
	assert.ErrorIs(t, err, apperror.ErrUpstream)
}

func TestString(t *testing.T) {
	body := []byte(`{"data":{"admin":{},"token":"jwt-value"}}`)
	assert.Equal(t, "jwt-value", String(body, "data", "token"))
	assert.Equal(t, "", String(body, "data", "missing"))
	assert.Equal(t, "", String([]byte("nope"), "data"))
}

func TestDecodeShapeMismatch(t *testing.T) {
	_, err := Decode[experience.Experience]([]map[string]any{{"order": "not a number"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrUpstream)
}
