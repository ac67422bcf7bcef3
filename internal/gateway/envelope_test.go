package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"wrapped array", `{"data":[1,2,3]}`, `[1,2,3]`},
		{"bare array", `[1,2,3]`, `[1,2,3]`},
		{"wrapped with message", `{"data":{"id":7},"message":"ok"}`, `{"id":7}`},
		{"bare object", `{"id":7,"name":"Room A"}`, `{"id":7,"name":"Room A"}`},
		{"empty", ``, `{}`},
		{"whitespace", "  \n", `{}`},
		{"null data", `{"data":null}`, `null`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Normalize([]byte(tc.in))
			require.NoError(t, err)
			assert.JSONEq(t, tc.want, string(got))
		})
	}
}

func TestNormalizeRejectsNonJSON(t *testing.T) {
	_, err := Normalize([]byte("<html>Bad Gateway</html>"))
	assert.ErrorIs(t, err, ErrNotJSON)
}

func TestDecode(t *testing.T) {
	var ids []int
	require.NoError(t, Decode([]byte(`{"data":[4,5]}`), &ids))
	assert.Equal(t, []int{4, 5}, ids)
}
