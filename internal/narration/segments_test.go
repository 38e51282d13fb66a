package narration

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wealth/daily/internal/history"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "a b c", Normalize("  a\n\tb　 c  "))
	assert.Equal(t, "", Normalize(" \n "))
}

func TestSplitByPunct_ShortTextIsOneSegment(t *testing.T) {
	assert.Equal(t, []string{"Save first. Spend later."}, SplitByPunct("Save first.  Spend later."))
	assert.Nil(t, SplitByPunct("   "))
}

func TestSplitByPunct_FlushesAtPunctuationAfterMin(t *testing.T) {
	// four 120-char sentences
	sentence := strings.Repeat("a", 119) + "."
	text := strings.Repeat(sentence, 4)

	got := SplitByPunct(text)
	require.Len(t, got, 4)
	for _, s := range got {
		assert.Equal(t, sentence, s)
	}
}

func TestSplitByPunct_ShortPunctuationDoesNotFlush(t *testing.T) {
	// a mark before MinSegmentChars keeps accumulating
	text := "Hi. " + strings.Repeat("b", 150) + "。" + strings.Repeat("c", 150) + "。"
	got := SplitByPunct(text)
	require.Len(t, got, 2)
	assert.True(t, strings.HasPrefix(got[0], "Hi. "))
	assert.True(t, strings.HasSuffix(got[0], "。"))
}

func TestSplitByPunct_TailMerges(t *testing.T) {
	text := strings.Repeat("x", 149) + "." + strings.Repeat("y", 149) + "." + " tail"
	got := SplitByPunct(text)
	require.Len(t, got, 2)
	assert.True(t, strings.HasSuffix(got[1], ".tail"))
}

func TestSplitByPunct_ForcedChunks(t *testing.T) {
	text := strings.Repeat("字", 700)
	got := SplitByPunct(text)
	require.Len(t, got, 3)
	assert.Equal(t, MaxSegmentChars, utf8.RuneCountInString(got[0]))
	assert.Equal(t, MaxSegmentChars, utf8.RuneCountInString(got[1]))
	assert.Equal(t, 140, utf8.RuneCountInString(got[2]))
}

func TestSplitByPunct_NeverExceedsCap(t *testing.T) {
	inputs := []string{
		strings.Repeat("long sentence without stops ", 40),
		strings.Repeat("短句。", 200),
		strings.Repeat("Mixed; text! With? marks.", 50),
	}
	for _, in := range inputs {
		for _, seg := range SplitByPunct(in) {
			assert.LessOrEqual(t, utf8.RuneCountInString(seg), MaxSegmentChars)
			assert.NotEmpty(t, seg)
		}
	}
}

func TestCollect(t *testing.T) {
	e := history.Entry{
		Topic:     "Emergency fund",
		Summary:   "Keep three to six months of expenses.",
		KeyPoints: []string{"Liquidity first", "  "},
		Practice: []history.Practice{
			{Title: "Open a savings account", Steps: []string{"Compare rates", ""}},
		},
		RiskNotes: "Inflation erodes cash.",
	}
	got := Collect(e)

	var parts, texts []string
	for i, s := range got {
		assert.Equal(t, i, s.Index)
		parts = append(parts, s.Part)
		texts = append(texts, s.Text)
	}
	assert.Equal(t, []string{"topic", "summary", "key_point", "practice", "step", "risk_notes"}, parts)
	assert.Equal(t, []string{
		"Emergency fund",
		"Keep three to six months of expenses.",
		"Liquidity first",
		"Open a savings account",
		"Compare rates",
		"Inflation erodes cash.",
	}, texts)
	assert.Equal(t, "emergency-fund", got[0].Slug)
	assert.Equal(t, 14, got[0].Chars)
}

func TestCollect_LongListItemsRespectCap(t *testing.T) {
	long := strings.Repeat("Diversify across asset classes; ", 20)
	e := history.Entry{
		Topic:     "Diversification",
		KeyPoints: []string{long},
		Practice:  []history.Practice{{Title: "Rebalance", Steps: []string{long}}},
	}
	got := Collect(e)

	counts := map[string]int{}
	for _, s := range got {
		counts[s.Part]++
		assert.LessOrEqual(t, s.Chars, MaxSegmentChars, "%s segment %d", s.Part, s.Index)
	}
	assert.Greater(t, counts["key_point"], 1)
	assert.Greater(t, counts["step"], 1)
	assert.Equal(t, 1, counts["practice"])
}

func TestCollect_EmptyEntry(t *testing.T) {
	assert.Empty(t, Collect(history.Entry{}))
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "index-funds-101", Slug("Index Funds 101!", "x"))
	assert.Equal(t, "segment-03", Slug("复利效应", "segment-03"))
	assert.Equal(t, "etf", Slug("ETF 复利", "x"))
	assert.LessOrEqual(t, len(Slug(strings.Repeat("abc ", 40), "x")), 48)
}

func TestFindByDate(t *testing.T) {
	items := []history.Entry{{Date: "2026-10-18", ID: "a"}, {Date: "2026-10-17", ID: "b"}}
	e, ok := FindByDate(items, "2026-10-17")
	assert.True(t, ok)
	assert.Equal(t, "b", e.ID)
	_, ok = FindByDate(items, "2026-01-01")
	assert.False(t, ok)
}
