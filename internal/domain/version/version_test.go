package version

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAndAccessors(t *testing.T) {
	k, err := New(1, 2, 3)
	require.NoError(t, err)

	assert.Equal(t, 1, k.Major())
	assert.Equal(t, 2, k.Minor())
	assert.Equal(t, 3, k.Patch())
	assert.False(t, k.IsPrerelease())
	assert.Equal(t, "0x010203ff", k.Hex())
	assert.Equal(t, "1.2.3", k.String())

	pre, err := NewPrerelease(1, 2, 3, 4)
	require.NoError(t, err)
	n, ok := pre.Prerelease()
	assert.True(t, ok)
	assert.Equal(t, 4, n)
	assert.Equal(t, "1.2.3-4", pre.String())
}

func TestOutOfRange(t *testing.T) {
	_, err := New(255, 0, 0)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = New(0, -1, 0)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = NewPrerelease(0, 0, 1, 255)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestOrdering(t *testing.T) {
	tests := []struct {
		name string
		a, b string
	}{
		{"patch", "1.2.2", "1.2.3"},
		{"minor beats patch", "1.1.9", "1.2.0"},
		{"major beats minor", "0.9.9", "1.0.0"},
		{"prerelease below release", "1.0.0-3", "1.0.0"},
		{"prereleases ordered", "1.0.0-1", "1.0.0-2"},
		{"release below next prerelease", "1.0.0", "1.0.1-0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := Parse(tt.a)
			require.NoError(t, err)
			b, err := Parse(tt.b)
			require.NoError(t, err)

			assert.True(t, a.Less(b))
			assert.Equal(t, -1, a.Compare(b))
			assert.Equal(t, 1, b.Compare(a))
			assert.Equal(t, 0, a.Compare(a))
		})
	}
}

func TestTupleOrderMatchesKeyOrder(t *testing.T) {
	fields := []int{0, 1, 2, 127, 254}
	var keys []Key
	for _, ma := range fields {
		for _, mi := range fields {
			for _, pa := range fields {
				keys = append(keys, MustNew(ma, mi, pa))
			}
		}
	}
	for i := 1; i < len(keys); i++ {
		assert.True(t, keys[i-1].Less(keys[i]), "%s < %s", keys[i-1], keys[i])
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		input   []byte
		wantErr bool
	}{
		{"valid", []byte{1, 0, 0, 0xff}, false},
		{"short", []byte{1, 0, 0}, true},
		{"long", []byte{1, 0, 0, 0, 0}, true},
		{"empty", nil, true},
		{"major sentinel", []byte{0xff, 0, 0, 0xff}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrDecode)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		input string
		want  string
		err   bool
	}{
		{"0x00010000", "0x00010000", false},
		{"0x010203ff", "0x010203ff", false},
		{"1.2.3", "0x010203ff", false},
		{"v1.2.3", "0x010203ff", false},
		{"1.2.3-7", "0x01020307", false},
		{"1.2.3-pre.7", "0x01020307", false},
		{"1.2", "", true},
		{"0x0102", "", true},
		{"0xzz", "", true},
		{"banana", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			k, err := Parse(tt.input)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, k.Hex())
		})
	}
}

func TestJSONForm(t *testing.T) {
	type doc struct {
		Version Key `json:"version"`
	}

	data, err := json.Marshal(doc{Version: MustNew(1, 0, 0)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":"0x010000ff"}`, string(data))

	var back doc
	require.NoError(t, json.Unmarshal([]byte(`{"version":"2.1.0"}`), &back))
	assert.Equal(t, MustNew(2, 1, 0), back.Version)

	assert.Error(t, json.Unmarshal([]byte(`{"version":"0x01"}`), &back))
}
