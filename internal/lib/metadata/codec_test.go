package metadata_test

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"inkwell/internal/lib/metadata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	eventDate := time.Date(2024, 3, 9, 18, 30, 15, 123456789, time.FixedZone("CET", 3600))

	tests := []struct {
		name string
		in   metadata.Map
	}{
		{
			name: "event metadata",
			in: metadata.Map{
				"eventDate": metadata.Time(eventDate),
				"location":  metadata.Text("Some Location"),
			},
		},
		{
			name: "scalars",
			in: metadata.Map{
				"null":   metadata.Null(),
				"yes":    metadata.Bool(true),
				"no":     metadata.Bool(false),
				"pi":     metadata.Number(3.14159),
				"neg":    metadata.Number(-42),
				"empty":  metadata.Text(""),
				"quoted": metadata.Text(`say "hi" <b>`),
			},
		},
		{
			name: "nested",
			in: metadata.Map{
				"tags": metadata.List(metadata.Text("go"), metadata.Number(1), metadata.Null()),
				"venue": metadata.Object(metadata.Map{
					"name":  metadata.Text("Hall"),
					"opens": metadata.Time(time.Unix(0, 0)),
					"rooms": metadata.List(metadata.Object(metadata.Map{"seats": metadata.Number(40)})),
				}),
				"emptyList": metadata.List(),
				"emptyMap":  metadata.Object(metadata.Map{}),
			},
		},
		{
			name: "dollar keys",
			in: metadata.Map{
				"$time": metadata.Text("not a time"),
				"$$":    metadata.Number(2),
				"$":     metadata.Bool(true),
				"inner": metadata.Object(metadata.Map{"$time": metadata.Text("2024-01-01T00:00:00Z")}),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scalar, err := metadata.Encode(tt.in)
			require.NoError(t, err)
			require.NotEmpty(t, scalar)

			got, err := metadata.Decode(scalar)
			require.NoError(t, err)
			assert.True(t, tt.in.Equal(got), "decoded %v from %s", got, scalar)
		})
	}
}

func TestEncode_TemporalCanonicalForm(t *testing.T) {
	at := time.Date(2024, 3, 9, 19, 30, 0, 0, time.FixedZone("CET", 3600))

	scalar, err := metadata.Encode(metadata.Map{"eventDate": metadata.Time(at)})
	require.NoError(t, err)

	assert.Equal(t, `{"eventDate":{"$time":"2024-03-09T18:30:00Z"}}`, scalar)

	got, err := metadata.Decode(scalar)
	require.NoError(t, err)

	tv, ok := got["eventDate"].AsTime()
	require.True(t, ok)
	assert.True(t, at.Equal(tv))
}

func TestEncode_Deterministic(t *testing.T) {
	m := metadata.Map{
		"b": metadata.Number(1),
		"a": metadata.Text("x"),
		"c": metadata.List(metadata.Bool(true)),
	}

	first, err := metadata.Encode(m)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := metadata.Encode(m)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestEncodeDecode_Absent(t *testing.T) {
	scalar, err := metadata.Encode(nil)
	require.NoError(t, err)
	assert.Equal(t, "", scalar)

	scalar, err = metadata.Encode(metadata.Map{})
	require.NoError(t, err)
	assert.Equal(t, "", scalar)

	m, err := metadata.Decode("")
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestEncode_RejectsUnrepresentable(t *testing.T) {
	tests := []struct {
		name string
		in   metadata.Map
	}{
		{name: "year after 9999", in: metadata.Map{"d": metadata.Time(time.Date(10000, 1, 1, 0, 0, 0, 0, time.UTC))}},
		{name: "negative year", in: metadata.Map{"d": metadata.Time(time.Date(-1, 1, 1, 0, 0, 0, 0, time.UTC))}},
		{name: "nested time", in: metadata.Map{"l": metadata.List(metadata.Time(time.Date(12000, 6, 1, 0, 0, 0, 0, time.UTC)))}},
		{name: "invalid utf8 text", in: metadata.Map{"t": metadata.Text("a\xffb")}},
		{name: "invalid utf8 key", in: metadata.Map{"k\xff": metadata.Bool(true)}},
		{name: "invalid utf8 nested key", in: metadata.Map{"o": metadata.Object(metadata.Map{"\xfe": metadata.Null()})}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scalar, err := metadata.Encode(tt.in)
			assert.ErrorIs(t, err, metadata.ErrUnsupported)
			assert.Empty(t, scalar)
		})
	}
}

func TestEncode_YearBounds(t *testing.T) {
	for _, at := range []time.Time{
		time.Date(0, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(9999, 12, 31, 23, 59, 59, 999999999, time.UTC),
	} {
		in := metadata.Map{"d": metadata.Time(at)}

		scalar, err := metadata.Encode(in)
		require.NoError(t, err)

		got, err := metadata.Decode(scalar)
		require.NoError(t, err)
		assert.True(t, in.Equal(got), "decoded %v from %s", got, scalar)
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name   string
		scalar string
	}{
		{name: "not json", scalar: "{oops"},
		{name: "array root", scalar: `[1,2]`},
		{name: "string root", scalar: `"x"`},
		{name: "bad time", scalar: `{"at":{"$time":"yesterday"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := metadata.Decode(tt.scalar)
			assert.Error(t, err)
		})
	}

	_, err := metadata.Decode(`[1]`)
	assert.ErrorIs(t, err, metadata.ErrNotObject)
}

func TestMapFromAny(t *testing.T) {
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	var fromRequest map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{"location":"Some Location","count":3,"ok":true,"list":[1,"a",null],"nested":{"k":"v"}}`), &fromRequest))
	fromRequest["eventDate"] = at
	fromRequest["small"] = int32(7)

	m, err := metadata.MapFromAny(fromRequest)
	require.NoError(t, err)

	want := metadata.Map{
		"location":  metadata.Text("Some Location"),
		"count":     metadata.Number(3),
		"ok":        metadata.Bool(true),
		"list":      metadata.List(metadata.Number(1), metadata.Text("a"), metadata.Null()),
		"nested":    metadata.Object(metadata.Map{"k": metadata.Text("v")}),
		"eventDate": metadata.Time(at),
		"small":     metadata.Number(7),
	}
	assert.True(t, want.Equal(m))

	tagged, err := metadata.MapFromAny(map[string]any{
		"at":    map[string]any{"$time": "2025-01-02T03:04:05Z"},
		"notAt": map[string]any{"$time": "soon"},
	})
	require.NoError(t, err)
	assert.True(t, metadata.Time(at).Equal(tagged["at"]))
	assert.Equal(t, metadata.KindMap, tagged["notAt"].Kind())

	nilMap, err := metadata.MapFromAny(nil)
	require.NoError(t, err)
	assert.Nil(t, nilMap)
}

func TestFromAny_Unsupported(t *testing.T) {
	_, err := metadata.FromAny(struct{ A int }{A: 1})
	assert.ErrorIs(t, err, metadata.ErrUnsupported)

	_, err = metadata.FromAny(math.NaN())
	assert.ErrorIs(t, err, metadata.ErrUnsupported)

	_, err = metadata.MapFromAny(map[string]any{"ch": make(chan int)})
	assert.ErrorIs(t, err, metadata.ErrUnsupported)
}

func TestValue_Any(t *testing.T) {
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	m := metadata.Map{
		"at":   metadata.Time(at),
		"tags": metadata.List(metadata.Text("a")),
	}

	got := m.Any()

	assert.Equal(t, at, got["at"])
	assert.Equal(t, []any{"a"}, got["tags"])
}

func TestValue_EqualKinds(t *testing.T) {
	assert.False(t, metadata.Text("1").Equal(metadata.Number(1)))
	assert.False(t, metadata.List(metadata.Null()).Equal(metadata.List()))
	assert.True(t, metadata.Null().Equal(metadata.Value{}))
	assert.Equal(t, "time", metadata.KindTime.String())
}
