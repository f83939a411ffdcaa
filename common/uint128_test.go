package common

import (
	"bytes"
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUint128SaturatingAdd(t *testing.T) {
	u := NewUint128(math.MaxUint64)
	u = u.SaturatingAddUint64(1)
	require.Equal(t, Uint128{Lo: 0, Hi: 1}, u)

	require.Equal(t, MaxUint128, MaxUint128.SaturatingAddUint64(1))
}

func TestUint128Compare(t *testing.T) {
	require.Equal(t, 0, NewUint128(5).CompareTo(NewUint128(5)))
	require.Equal(t, -1, NewUint128(5).CompareTo(Uint128{Lo: 0, Hi: 1}))
	require.Equal(t, 1, Uint128{Lo: 0, Hi: 1}.CompareTo(NewUint128(math.MaxUint64)))
}

func TestUint128JSON(t *testing.T) {
	u := Uint128{Lo: 1, Hi: 1}
	b, err := json.Marshal(u)
	require.NoError(t, err)
	require.Equal(t, `"18446744073709551617"`, string(b))

	var decoded Uint128
	require.NoError(t, json.Unmarshal(b, &decoded))
	require.Equal(t, u, decoded)

	require.Error(t, json.Unmarshal([]byte(`"-1"`), &decoded))
	require.Error(t, json.Unmarshal([]byte(`17`), &decoded))
}

func TestUint128Serialize(t *testing.T) {
	u := Uint128{Lo: 0x0102030405060708, Hi: 0x1112131415161718}
	buf := new(bytes.Buffer)
	require.NoError(t, u.Serialize(buf))

	var decoded Uint128
	require.NoError(t, decoded.Deserialize(buf))
	require.Equal(t, u, decoded)
}
