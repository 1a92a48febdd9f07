package models

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownFamily is returned when a family tag is not in the catalogue.
var ErrUnknownFamily = errors.New("unknown resource family")

// Family identifies one of the Congress.gov resource categories.
type Family string

// The eighteen resource families served by the upstream API.
const (
	FamilyBill             Family = "bill"
	FamilyAmendment        Family = "amendment"
	FamilyNomination       Family = "nomination"
	FamilyTreaty           Family = "treaty"
	FamilyCommittee        Family = "committee"
	FamilyHearing          Family = "hearing"
	FamilyCommitteeReport  Family = "committee-report"
	FamilyCommitteePrint   Family = "committee-print"
	FamilyCommitteeMeeting Family = "committee-meeting"
	FamilyRecord           Family = "congressional-record"
	FamilyDailyRecord      Family = "daily-congressional-record"
	FamilyBoundRecord      Family = "bound-congressional-record"
	FamilyHouseComm        Family = "house-communication"
	FamilyHouseReq         Family = "house-requirement"
	FamilySenateComm       Family = "senate-communication"
	FamilyMember           Family = "member"
	FamilySummaries        Family = "summaries"
	FamilyCongress         Family = "congress"
)

// allFamilies lists every family in stable dispatch order.
var allFamilies = []Family{
	FamilyBill,
	FamilyAmendment,
	FamilyNomination,
	FamilyTreaty,
	FamilyCommittee,
	FamilyHearing,
	FamilyCommitteeReport,
	FamilyCommitteePrint,
	FamilyCommitteeMeeting,
	FamilyRecord,
	FamilyDailyRecord,
	FamilyBoundRecord,
	FamilyHouseComm,
	FamilyHouseReq,
	FamilySenateComm,
	FamilyMember,
	FamilySummaries,
	FamilyCongress,
}

// AllFamilies returns the full catalogue in stable dispatch order.
func AllFamilies() []Family {
	out := make([]Family, len(allFamilies))
	copy(out, allFamilies)

	return out
}

// ParseFamily converts a tag string into a Family.
func ParseFamily(s string) (Family, error) {
	tag := Family(strings.ToLower(strings.TrimSpace(s)))
	for _, f := range allFamilies {
		if f == tag {
			return f, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownFamily, s)
}

// ParseFamilies converts a comma-separated list of tags, or "all",
// into a sorted family set in stable dispatch order.
func ParseFamilies(s string) ([]Family, error) {
	if strings.EqualFold(strings.TrimSpace(s), "all") || strings.TrimSpace(s) == "" {
		return AllFamilies(), nil
	}

	seen := make(map[Family]bool)

	for _, part := range strings.Split(s, ",") {
		f, err := ParseFamily(part)
		if err != nil {
			return nil, err
		}

		seen[f] = true
	}

	var out []Family

	for _, f := range allFamilies {
		if seen[f] {
			out = append(out, f)
		}
	}

	return out, nil
}

// FamilyIndex returns the position of f in stable dispatch order,
// or len(catalogue) for unknown tags so they sort last.
func FamilyIndex(f Family) int {
	for i, known := range allFamilies {
		if known == f {
			return i
		}
	}

	return len(allFamilies)
}

// SortFamilies orders tags by stable dispatch order in place.
func SortFamilies(fams []Family) {
	sort.SliceStable(fams, func(i, j int) bool {
		return FamilyIndex(fams[i]) < FamilyIndex(fams[j])
	})
}
