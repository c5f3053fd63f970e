package format

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"binance-mcp/internal/models"
)

func TestNewGuardDefaults(t *testing.T) {
	assert.Equal(t, DefaultCharacterLimit, NewGuard(0).Limit)
	assert.Equal(t, 5000, NewGuard(5000).Limit)
}

func TestGuardTextUnderLimit(t *testing.T) {
	g := NewGuard(1000)
	out, truncated := g.Text("short")
	assert.False(t, truncated)
	assert.Equal(t, "short", out)
}

func TestGuardTextCeiling(t *testing.T) {
	g := NewGuard(1000)

	for _, size := range []int{1001, 2000, 50000} {
		t.Run(fmt.Sprintf("size_%d", size), func(t *testing.T) {
			in := strings.Repeat("line of text\n", size/13+1)
			out, truncated := g.Text(in)

			assert.True(t, truncated)
			assert.LessOrEqual(t, Len(out), g.Limit)
			assert.Contains(t, out, "Response truncated")
			assert.Contains(t, out, NarrowingHint)
		})
	}
}

func TestGuardTextCountsCharactersNotBytes(t *testing.T) {
	g := NewGuard(1000)
	in := strings.Repeat("📈", 1000)

	out, truncated := g.Text(in)
	assert.False(t, truncated)
	assert.Equal(t, in, out)
}

func renderItems(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "- item %04d %s\n", i, strings.Repeat("x", 80))
	}
	return b.String()
}

func TestGuardItemsHalves(t *testing.T) {
	g := NewGuard(2000)

	out, truncated := g.Items(100, renderItems)
	require.True(t, truncated)
	assert.LessOrEqual(t, Len(out), g.Limit)
	assert.Contains(t, out, "Showing 12 of 100 items")
	assert.Contains(t, out, "Request fewer items")
	assert.Contains(t, out, NarrowingHint)
}

func TestGuardItemsFits(t *testing.T) {
	g := NewGuard(DefaultCharacterLimit)
	out, truncated := g.Items(3, renderItems)
	assert.False(t, truncated)
	assert.Equal(t, renderItems(3), out)
}

func TestGuardItemsSingleOversizedItem(t *testing.T) {
	g := NewGuard(1000)
	huge := func(n int) string { return strings.Repeat("y", 5000*n) }

	out, truncated := g.Items(4, huge)
	assert.True(t, truncated)
	assert.LessOrEqual(t, Len(out), g.Limit)
}

type listPayload struct {
	Items []string `json:"items"`
	Count int      `json:"count"`
	models.TruncationInfo
}

func TestGuardJSONTruncation(t *testing.T) {
	g := NewGuard(1500)
	items := make([]string, 200)
	for i := range items {
		items[i] = strings.Repeat("z", 40)
	}

	out, truncated, err := g.JSON(len(items), func(n int, info models.TruncationInfo) interface{} {
		return listPayload{Items: items[:n], Count: n, TruncationInfo: info}
	})
	require.NoError(t, err)
	require.True(t, truncated)
	assert.LessOrEqual(t, Len(out), g.Limit)

	var decoded listPayload
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.True(t, decoded.Truncated)
	assert.Equal(t, 200, decoded.TotalCount)
	assert.Equal(t, len(decoded.Items), decoded.Count)
	assert.Contains(t, decoded.Message, NarrowingHint)
}

func TestGuardJSONUnderLimitHasNoTruncationFields(t *testing.T) {
	g := NewGuard(DefaultCharacterLimit)
	out, truncated, err := g.JSON(1, func(n int, info models.TruncationInfo) interface{} {
		return listPayload{Items: []string{"a"}[:n], Count: n, TruncationInfo: info}
	})
	require.NoError(t, err)
	assert.False(t, truncated)
	assert.NotContains(t, out, "truncated")
	assert.NotContains(t, out, "total_count")
}

func TestGuardJSONFallback(t *testing.T) {
	g := NewGuard(1000)
	out, truncated, err := g.JSON(1, func(n int, info models.TruncationInfo) interface{} {
		return listPayload{Items: []string{strings.Repeat("q", 5000)}, Count: n, TruncationInfo: info}
	})
	require.NoError(t, err)
	assert.True(t, truncated)
	assert.LessOrEqual(t, Len(out), g.Limit)
	assert.Contains(t, out, `"truncated": true`)
}
