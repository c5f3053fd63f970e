package format

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"binance-mcp/internal/models"
)

// DefaultCharacterLimit is the output ceiling in characters.
const DefaultCharacterLimit = 25000

// NarrowingHint is part of every truncation notice.
const NarrowingHint = "Use filters or request fewer symbols/items to narrow down results"

// Guard enforces the character ceiling on rendered tool output. The ceiling
// applies to the whole result, notice included.
type Guard struct {
	Limit int
}

// NewGuard returns a guard for limit, or DefaultCharacterLimit when limit < 1.
func NewGuard(limit int) Guard {
	if limit < 1 {
		limit = DefaultCharacterLimit
	}
	return Guard{Limit: limit}
}

// Len returns the length of s in characters.
func Len(s string) int {
	return utf8.RuneCountInString(s)
}

func (g Guard) textNotice() string {
	return fmt.Sprintf("\n\n⚠️ Response truncated at %s characters\n\n"+
		"The full response was too large. %s.", printer().Sprintf("%d", g.Limit), NarrowingHint)
}

func (g Guard) itemsNotice(shown, total int) string {
	return fmt.Sprintf("\n\n⚠️ Response truncated: Showing %d of %d items\n\n"+
		"The full response exceeds the %s character limit.\n\n"+
		"To get more specific results:\n"+
		"- Request fewer items\n"+
		"- %s\n"+
		"- Request data in multiple smaller queries",
		shown, total, printer().Sprintf("%d", g.Limit), NarrowingHint)
}

// Text returns s unchanged when it fits. Otherwise it cuts s, preferring a
// line boundary, and appends the truncation notice.
func (g Guard) Text(s string) (string, bool) {
	if Len(s) <= g.Limit {
		return s, false
	}

	notice := g.textNotice()
	keep := g.Limit - Len(notice)
	if keep < 0 {
		// Ceiling smaller than the notice itself: the notice wins.
		return string([]rune(notice)[:g.Limit]), true
	}

	cut := string([]rune(s)[:keep])
	if idx := strings.LastIndex(cut, "\n"); idx > len(cut)/2 {
		cut = cut[:idx]
	}
	return cut + notice, true
}

// Items renders a list with render(n) for the first n of total items. When
// the full rendering is too large, n is halved until the rendering plus the
// notice fits; if a single item still does not fit, Text cuts it.
func (g Guard) Items(total int, render func(n int) string) (string, bool) {
	full := render(total)
	if Len(full) <= g.Limit {
		return full, false
	}

	for n := total / 2; n >= 1; n /= 2 {
		out := render(n) + g.itemsNotice(n, total)
		if Len(out) <= g.Limit {
			return out, true
		}
	}

	first := total
	if first > 1 {
		first = 1
	}
	out, _ := g.Text(render(first) + g.itemsNotice(first, total))
	return out, true
}

// JSON marshals build(n, info) as indented JSON. When the full payload is
// too large, n is halved and info describes the cut until it fits. As a last
// resort a bare truncation object is returned.
func (g Guard) JSON(total int, build func(n int, info models.TruncationInfo) interface{}) (string, bool, error) {
	full, err := Marshal(build(total, models.TruncationInfo{}))
	if err != nil {
		return "", false, err
	}
	if Len(full) <= g.Limit {
		return full, false, nil
	}

	for n := total / 2; n >= 1; n /= 2 {
		info := models.TruncationInfo{
			Truncated:  true,
			TotalCount: total,
			Message:    fmt.Sprintf("Showing %d of %d results. %s.", n, total, NarrowingHint),
		}
		out, err := Marshal(build(n, info))
		if err != nil {
			return "", false, err
		}
		if Len(out) <= g.Limit {
			return out, true, nil
		}
	}

	out, err := Marshal(models.TruncationInfo{
		Truncated:  true,
		TotalCount: total,
		Message:    fmt.Sprintf("Response exceeds the %d character limit. %s.", g.Limit, NarrowingHint),
	})
	return out, true, err
}

// Marshal renders v as indented JSON.
func Marshal(v interface{}) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}
	return string(data), nil
}
