package congress

import "congressd/internal/models"

// listKeys maps each family to the top-level array key its list
// endpoint nests records under.
var listKeys = map[models.Family]string{
	models.FamilyBill:             "bills",
	models.FamilyAmendment:        "amendments",
	models.FamilyNomination:       "nominations",
	models.FamilyTreaty:           "treaties",
	models.FamilyCommittee:        "committees",
	models.FamilyHearing:          "hearings",
	models.FamilyCommitteeReport:  "reports",
	models.FamilyCommitteePrint:   "committeePrints",
	models.FamilyCommitteeMeeting: "committeeMeetings",
	models.FamilyRecord:           "results",
	models.FamilyDailyRecord:      "dailyCongressionalRecord",
	models.FamilyBoundRecord:      "boundCongressionalRecord",
	models.FamilyHouseComm:        "houseCommunications",
	models.FamilyHouseReq:         "houseRequirements",
	models.FamilySenateComm:       "senateCommunications",
	models.FamilyMember:           "members",
	models.FamilySummaries:        "summaries",
	models.FamilyCongress:         "congresses",
}

// EndpointPath returns the list-endpoint path for a family. Family
// tags double as path segments on this API.
func EndpointPath(family models.Family) string {
	return string(family)
}

// ListKey returns the response array key for a family.
func ListKey(family models.Family) string {
	if key, ok := listKeys[family]; ok {
		return key
	}

	return "results"
}
