package flyer

import (
	"regexp"
	"strings"
)

const (
	maxAddressRunes = 100
	maxStationRunes = 50
	maxExcerptRunes = 200
)

// rule extracts one field value. format, when set, builds the value from
// the submatches; otherwise the first submatch is used.
type rule struct {
	re     *regexp.Regexp
	format func(m []string) string
}

func (r rule) apply(text string) (string, bool) {
	m := r.re.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	var v string
	if r.format != nil {
		v = r.format(m)
	} else {
		v = m[1]
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func firstGroup(re string) rule {
	return rule{re: regexp.MustCompile(re)}
}

func formatted(re string, f func(m []string) string) rule {
	return rule{re: regexp.MustCompile(re), format: f}
}

// fieldRules lists the rules for every field in priority order. Patterns
// run against width-folded text, so digits, colons and parentheses are ASCII.
var fieldRules = []struct {
	field    Field
	maxRunes int
	rules    []rule
}{
	{FieldPropertyNumber, 0, []rule{
		firstGroup(`(?:物件番号|物件No\.?|物件№|№|No\.)\s*:?\s*([A-Za-z0-9][A-Za-z0-9-]*)`),
		firstGroup(`\b(P-[A-Za-z0-9][A-Za-z0-9-]*)`),
	}},
	{FieldRent, 0, []rule{
		firstGroup(`(?:賃料|家賃)\s*:?\s*([0-9][0-9,.]*\s*(?:万[0-9,]*円?|円))`),
		firstGroup(`([0-9]+(?:\.[0-9]+)?万[0-9,]*円)`),
		firstGroup(`([0-9]{1,3}(?:,[0-9]{3})+円)`),
	}},
	{FieldAddress, maxAddressRunes, []rule{
		firstGroup(`(?:所在地|住所)\s*:?\s*([^\n]+)`),
		firstGroup(`((?:東京都|北海道|(?:京都|大阪)府|\S{2,3}県)\S*?[市区町村郡][^\n]*)`),
		firstGroup(`([^\n]*[市区町村][^\n]*丁目[^\n]*)`),
	}},
	{FieldLayout, 0, []rule{
		firstGroup(`(?:間取り?|タイプ)\s*:?\s*([0-9]\s*(?:S?LDK|SDK|DK|LK|K|R)|ワンルーム)`),
		firstGroup(`(?:^|[^0-9A-Za-z])([0-9](?:S?LDK|SDK|DK|LK|K|R))(?:[^0-9A-Za-z]|$)`),
		firstGroup(`(ワンルーム)`),
	}},
	{FieldStation, maxStationRunes, []rule{
		firstGroup(`(?:交通|最寄り?駅?|アクセス|沿線)\s*:?\s*([^\n]*駅[^\n]*)`),
		firstGroup(`(\S*線\S*駅[^\n]*)`),
		firstGroup(`([^\s:「」]+駅\S*)`),
	}},
	{FieldWalkMinutes, 0, []rule{
		firstGroup(`徒歩\s*([0-9]+)\s*分`),
	}},
	{FieldArea, 0, []rule{
		formatted(`(?:専有面積|面積)\s*:?\s*([0-9]+(?:\.[0-9]+)?)\s*(?:㎡|m2|m²|平米|平方メートル)`,
			func(m []string) string { return m[1] + "㎡" }),
		formatted(`([0-9]+(?:\.[0-9]+)?)\s*(?:㎡|m2|m²|平米)`,
			func(m []string) string { return m[1] + "㎡" }),
	}},
	{FieldBuildingAge, 0, []rule{
		formatted(`築\s*([0-9]+)\s*年`, func(m []string) string { return "築" + m[1] + "年" }),
		firstGroup(`((?:昭和|平成|令和)\s*[0-9]+\s*年(?:\s*[0-9]{1,2}\s*月)?)`),
		firstGroup(`([0-9]{4}\s*年(?:\s*[0-9]{1,2}\s*月)?)\s*築`),
		firstGroup(`築年数\s*:?\s*([^\n]+)`),
	}},
	{FieldManagementFee, 0, []rule{
		firstGroup(`(?:管理費|共益費)(?:・共益費|/共益費)?\s*:?\s*([0-9][0-9,]*\s*円|なし|無し|込み?)`),
	}},
}

// boundary marks the start of a new property block.
var boundary = regexp.MustCompile(`(?:物件番号|物件No\.?|物件№|№|No\.)\s*:?\s*[A-Za-z0-9]|\bP-[A-Za-z0-9]`)

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n]))
}
