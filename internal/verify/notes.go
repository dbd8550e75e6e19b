package verify

import (
	"fmt"
	"strings"

	"github.com/evcraddock/bukkaku/internal/property"
)

var followUpChecklist = []string{
	"現在の募集状況",
	"賃料・条件の変更",
	"内見可能時期",
	"申込み受付状況",
}

// FollowUpNotes writes the note an operator reads before calling the
// listing agent. With foundSites it only confirms where the listing is.
func FollowUpNotes(p *property.Property, foundSites []string) string {
	var b strings.Builder

	if len(foundSites) > 0 {
		fmt.Fprintf(&b, "掲載確認済み: %s\n", strings.Join(foundSites, ", "))
		fmt.Fprintf(&b, "物件ID: %s\n", p.ID)
		return b.String()
	}

	b.WriteString("【要電話確認】どの掲載サイトでも確認できませんでした\n")
	fmt.Fprintf(&b, "物件ID: %s\n", p.ID)
	fmt.Fprintf(&b, "住所: %s\n", p.Address)
	fmt.Fprintf(&b, "賃料: %s\n", p.Rent.Display)
	fmt.Fprintf(&b, "間取り: %s\n", p.Layout)
	if p.StationInfo != "" {
		fmt.Fprintf(&b, "最寄り駅: %s\n", p.StationInfo)
	}
	if p.SourceFile != "" {
		fmt.Fprintf(&b, "資料: %s\n", p.SourceFile)
	}
	b.WriteString("確認事項:\n")
	for _, item := range followUpChecklist {
		fmt.Fprintf(&b, "- %s\n", item)
	}
	return b.String()
}
