package property

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/width"

	"github.com/evcraddock/bukkaku/internal/flyer"
)

// MaxAddressRunes bounds normalized addresses.
const MaxAddressRunes = 100

// minCoreFields is how many of address, rent, layout and station a
// property needs.
const minCoreFields = 2

// ErrInsufficientData is matched by every *InsufficientDataError.
var ErrInsufficientData = errors.New("insufficient data")

// InsufficientDataError reports a record that lacks the minimum fields.
type InsufficientDataError struct {
	Source  string
	Index   int
	Present int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("record %d of %s: %d of address, rent, layout, station present, need %d",
		e.Index, e.Source, e.Present, minCoreFields)
}

// Is reports whether target is ErrInsufficientData.
func (e *InsufficientDataError) Is(target error) bool {
	return target == ErrInsufficientData
}

var (
	openBrackets = "([【「『〔<"
	digitDash    = regexp.MustCompile(`([0-9])\s*[ー−‐―–-]\s*([0-9])`)
	walkPattern  = regexp.MustCompile(`徒歩\s*([0-9]+)\s*分`)
	rentMan      = regexp.MustCompile(`([0-9]+(?:\.[0-9]+)?)万([0-9]*)`)
	numericRun   = regexp.MustCompile(`[0-9]+(?:\.[0-9]+)?`)
	yenRun       = regexp.MustCompile(`([0-9]+(?:\.[0-9]+)?)円`)
	// rentFees starts the part of a rent cell that lists other charges.
	rentFees = regexp.MustCompile(`管理費|共益費|管理・共益費|敷金|礼金|保証金`)

	rentSeparators  = strings.NewReplacer(",", "", "、", "", " ", "")
	stationBrackets = strings.NewReplacer(
		"「", "", "」", "", "『", "", "』", "", "【", "", "】", "",
		"[", "", "]", "", "(", "", ")", "",
	)
)

// Normalize builds a Property from a raw record. It returns an
// *InsufficientDataError when fewer than two of address, rent, layout and
// station survive normalization.
func Normalize(rec flyer.RawRecord) (*Property, error) {
	p := &Property{
		Address:       NormalizeAddress(rec.Get(flyer.FieldAddress)),
		Rent:          NormalizeRent(rec.Get(flyer.FieldRent)),
		Layout:        NormalizeLayout(rec.Get(flyer.FieldLayout)),
		StationInfo:   NormalizeStation(rec.Get(flyer.FieldStation)),
		Area:          collapseSpace(width.Fold.String(rec.Get(flyer.FieldArea))),
		BuildingAge:   collapseSpace(width.Fold.String(rec.Get(flyer.FieldBuildingAge))),
		ManagementFee: collapseSpace(width.Fold.String(rec.Get(flyer.FieldManagementFee))),
		SourceFile:    rec.Source,
	}
	p.WalkMinutes = walkMinutes(rec.Get(flyer.FieldWalkMinutes), rec.Get(flyer.FieldStation))

	present := 0
	for _, v := range []string{p.Address, p.Rent.Display, p.Layout, p.StationInfo} {
		if v != "" {
			present++
		}
	}
	if present < minCoreFields {
		return nil, &InsufficientDataError{Source: rec.Source, Index: rec.Index, Present: present}
	}

	p.ID = propertyID(rec)
	return p, nil
}

// NormalizeAll normalizes every record and returns the kept properties and
// the number of records dropped for insufficient data.
func NormalizeAll(recs []flyer.RawRecord) ([]*Property, int) {
	var props []*Property
	dropped := 0
	for _, rec := range recs {
		p, err := Normalize(rec)
		if err != nil {
			dropped++
			slog.Debug("dropping record", "source", rec.Source, "index", rec.Index, "error", err)
			continue
		}
		props = append(props, p)
	}
	return props, dropped
}

// NormalizeAddress folds widths, joins digit dashes, strips trailing
// bracketed notes and collapses whitespace.
func NormalizeAddress(s string) string {
	s = width.Fold.String(s)
	if i := strings.IndexAny(s, openBrackets); i >= 0 {
		s = s[:i]
	}
	for {
		next := digitDash.ReplaceAllString(s, "$1-$2")
		if next == s {
			break
		}
		s = next
	}
	s = collapseSpace(s)
	if r := []rune(s); len(r) > MaxAddressRunes {
		s = strings.TrimSpace(string(r[:MaxAddressRunes]))
	}
	return s
}

// NormalizeRent keeps the display string and derives the yen value.
func NormalizeRent(s string) Rent {
	display := strings.TrimSpace(s)
	yen, _ := ParseRent(display)
	return Rent{Display: display, Yen: yen}
}

// ParseRent converts a rent string to yen. "15万円" and "150,000円" both
// give 150000. Charges listed after the rent, such as 管理費, are ignored.
// It returns false when s has no number.
func ParseRent(s string) (int64, bool) {
	s = rentSeparators.Replace(width.Fold.String(s))
	if loc := rentFees.FindStringIndex(s); loc != nil && numericRun.MatchString(s[:loc[0]]) {
		s = s[:loc[0]]
	}

	if m := rentMan.FindStringSubmatch(s); m != nil {
		man, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, false
		}
		yen := int64(math.Round(man * 10000))
		if m[2] != "" {
			extra, err := strconv.ParseInt(m[2], 10, 64)
			if err == nil {
				yen += extra
			}
		}
		return yen, true
	}

	run := numericRun.FindString(s)
	if m := yenRun.FindStringSubmatch(s); m != nil {
		run = m[1]
	}
	if run == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(run, 64)
	if err != nil {
		return 0, false
	}
	return int64(math.Round(v)), true
}

// NormalizeLayout returns the uppercase half-width layout code.
func NormalizeLayout(s string) string {
	s = strings.ToUpper(strings.Join(strings.Fields(width.Fold.String(s)), ""))
	if s == "ワンルーム" {
		return "1R"
	}
	return s
}

// NormalizeStation strips brackets and folds 駅前 and 駅徒歩 into 駅.
func NormalizeStation(s string) string {
	s = stationBrackets.Replace(width.Fold.String(s))
	s = strings.ReplaceAll(s, "駅前", "駅")
	s = strings.ReplaceAll(s, "駅徒歩", "駅")
	return collapseSpace(s)
}

func walkMinutes(field, station string) int {
	if n, err := strconv.Atoi(strings.TrimSpace(width.Fold.String(field))); err == nil {
		return n
	}
	if m := walkPattern.FindStringSubmatch(width.Fold.String(station)); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n
	}
	return 0
}

// propertyID uses the flyer's property number, or synthesizes one from the
// source file name and the record's position.
func propertyID(rec flyer.RawRecord) string {
	if n := strings.TrimSpace(rec.Get(flyer.FieldPropertyNumber)); n != "" {
		return n
	}
	prefix := []rune(filepath.Base(rec.Source))
	if len(prefix) > 3 {
		prefix = prefix[:3]
	}
	if len(prefix) == 0 || string(prefix) == "." {
		prefix = []rune("doc")
	}
	return fmt.Sprintf("%s_%03d", string(prefix), rec.Index)
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
