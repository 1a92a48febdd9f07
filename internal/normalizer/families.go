package normalizer

import (
	"strings"

	"congressd/internal/models"
)

// validBillTypes per the upstream bill catalogue.
var validBillTypes = map[string]bool{
	"hr": true, "s": true, "hjres": true, "sjres": true,
	"hconres": true, "sconres": true, "hres": true, "sres": true,
}

// validAmendmentTypes per the upstream amendment catalogue.
var validAmendmentTypes = map[string]bool{
	"hamdt": true, "samdt": true, "suamdt": true,
}

// extraction is a builder's raw output before cleanup and validation.
type extraction struct {
	id          string
	congress    int
	hasCongress bool
	extras      map[string]any
	missing     []string
}

func (e *extraction) requireStr(name, value string) string {
	if value == "" {
		e.missing = append(e.missing, name)
	}

	return value
}

func (e *extraction) takeCongress(r *rawView, keys ...string) {
	if n, ok := r.intVal(keys...); ok && n >= 1 {
		e.congress = n
		e.hasCongress = true
	}
}

// buildFunc extracts a family's identity and attributes from a raw
// record. The processor cleans and validates what it returns.
type buildFunc func(r *rawView) extraction

// builders maps each family to its extraction rules.
var builders = map[models.Family]buildFunc{
	models.FamilyBill:             buildBill,
	models.FamilyAmendment:        buildAmendment,
	models.FamilyNomination:       buildNomination,
	models.FamilyTreaty:           buildTreaty,
	models.FamilyCommittee:        buildCommittee,
	models.FamilyHearing:          buildHearing,
	models.FamilyCommitteeReport:  buildCommitteeReport,
	models.FamilyCommitteePrint:   buildCommitteePrint,
	models.FamilyCommitteeMeeting: buildCommitteeMeeting,
	models.FamilyRecord:           buildCongressionalRecord,
	models.FamilyDailyRecord:      buildDailyRecord,
	models.FamilyBoundRecord:      buildBoundRecord,
	models.FamilyHouseComm:        buildHouseCommunication,
	models.FamilyHouseReq:         buildHouseRequirement,
	models.FamilySenateComm:       buildSenateCommunication,
	models.FamilyMember:           buildMember,
	models.FamilySummaries:        buildSummary,
	models.FamilyCongress:         buildCongress,
}

func buildBill(r *rawView) extraction {
	var e extraction

	e.takeCongress(r, "congress")

	// The snake_case key wins: flattened canonical items carry the
	// family tag under "type".
	billType := strings.ToLower(e.requireStr("bill_type", r.str("bill_type", "type")))
	if billType != "" && !validBillTypes[billType] {
		e.missing = append(e.missing, "bill_type")
	}

	number := e.requireStr("bill_number", r.str("number", "bill_number"))

	e.id = sprint("%d-%s-%s", e.congress, billType, number)
	e.extras = map[string]any{
		"bill_type":       billType,
		"bill_number":     number,
		"title":           r.str("title"),
		"origin_chamber":  r.str("originChamber", "origin_chamber"),
		"introduced_date": r.str("introducedDate", "introduced_date"),
	}

	if action, ok := r.mapVal("latestAction", "latest_action"); ok {
		e.extras["latest_action"] = map[string]any{
			"text":        nestedStr(action, "text"),
			"action_date": nestedStr(action, "actionDate", "action_date"),
		}
	}

	if sponsors, ok := r.listVal("sponsors"); ok {
		e.extras["sponsors"] = sponsors
	}

	if committees, ok := r.listVal("committees"); ok {
		e.extras["committees"] = committees
	}

	return e
}

func buildAmendment(r *rawView) extraction {
	var e extraction

	e.takeCongress(r, "congress")

	amdtType := strings.ToLower(e.requireStr("amendment_type", r.str("amendment_type", "type")))
	if amdtType != "" && !validAmendmentTypes[amdtType] {
		e.missing = append(e.missing, "amendment_type")
	}

	number := e.requireStr("amendment_number", r.str("number", "amendment_number"))

	e.id = sprint("%d-%s-%s", e.congress, amdtType, number)
	e.extras = map[string]any{
		"amendment_type":   amdtType,
		"amendment_number": number,
		"purpose":          r.str("purpose"),
		"submit_date":      r.str("submittedDate", "submit_date", "proposedDate"),
		"chamber":          r.str("chamber"),
	}

	if bill, ok := r.mapVal("amendedBill", "associated_bill"); ok {
		e.extras["associated_bill"] = map[string]any{
			"congress": nestedStr(bill, "congress"),
			"type":     strings.ToLower(nestedStr(bill, "type")),
			"number":   nestedStr(bill, "number"),
		}
	}

	return e
}

func buildNomination(r *rawView) extraction {
	var e extraction

	e.takeCongress(r, "congress")
	number := e.requireStr("number", r.str("number", "nomination_number"))

	e.id = sprint("%d-nom-%s", e.congress, number)
	e.extras = map[string]any{
		"number":        number,
		"citation":      r.str("citation"),
		"organization":  r.str("organization"),
		"received_date": r.str("receivedDate", "received_date"),
		"description":   r.str("description"),
	}

	if action, ok := r.mapVal("latestAction", "latest_action"); ok {
		e.extras["latest_action"] = map[string]any{
			"text":        nestedStr(action, "text"),
			"action_date": nestedStr(action, "actionDate", "action_date"),
		}
	}

	return e
}

func buildTreaty(r *rawView) extraction {
	var e extraction

	e.takeCongress(r, "congressReceived", "congress")
	number := e.requireStr("number", r.str("number", "treaty_number"))
	suffix := r.str("suffix")

	e.id = sprint("%d-treaty-%s%s", e.congress, number, suffix)
	e.extras = map[string]any{
		"number":           number,
		"suffix":           suffix,
		"topic":            r.str("topic"),
		"transmitted_date": r.str("transmittedDate", "transmitted_date"),
		"in_force_date":    r.str("inForceDate", "in_force_date"),
	}

	return e
}

func buildCommittee(r *rawView) extraction {
	var e extraction

	e.takeCongress(r, "congress")
	chamber := strings.ToLower(e.requireStr("chamber", r.str("chamber")))
	code := e.requireStr("system_code", r.str("systemCode", "system_code"))

	e.id = sprint("%d-%s-%s", e.congress, chamber, code)
	e.extras = map[string]any{
		"name":           e.requireStr("name", r.str("name")),
		"chamber":        chamber,
		"committee_type": r.str("committeeTypeCode", "committee_type", "type"),
		"system_code":    code,
	}

	if parent, ok := r.mapVal("parent", "parent_committee"); ok {
		e.extras["parent_committee"] = map[string]any{
			"name":        nestedStr(parent, "name"),
			"system_code": nestedStr(parent, "systemCode", "system_code"),
			"url":         nestedStr(parent, "url"),
		}
	}

	if subs, ok := r.listVal("subcommittees"); ok {
		e.extras["subcommittees"] = subs
	}

	return e
}

func buildHearing(r *rawView) extraction {
	var e extraction

	e.takeCongress(r, "congress")
	chamber := strings.ToLower(e.requireStr("chamber", r.str("chamber")))

	var committee map[string]any

	code := ""
	if m, ok := r.mapVal("committee"); ok {
		code = nestedStr(m, "systemCode", "system_code")
		committee = map[string]any{
			"name":        nestedStr(m, "name"),
			"system_code": code,
			"url":         nestedStr(m, "url"),
		}
	}

	if code == "" {
		// Fall back to the jacket number when no committee is attached.
		code = r.str("jacketNumber", "jacket_number")
	}

	e.requireStr("committee", code)

	eventDate := r.str("date", "eventDate")
	if eventDate == "" {
		if list, ok := r.listVal("dates"); ok {
			eventDate = firstListDate(list, "date")
		}
	}

	e.requireStr("date", eventDate)

	e.id = sprint("%d-%s-%s-%s", e.congress, chamber, code, eventDate)
	e.extras = map[string]any{
		"chamber":  chamber,
		"date":     eventDate,
		"time":     r.str("time"),
		"location": r.str("location"),
		"title":    r.str("title"),
	}

	if committee != nil {
		e.extras["committee"] = committee
	}

	if witnesses, ok := r.listVal("witnesses"); ok {
		e.extras["witnesses"] = witnesses
	}

	return e
}

func buildCommitteeReport(r *rawView) extraction {
	var e extraction

	e.takeCongress(r, "congress")
	reportType := strings.ToLower(e.requireStr("report_type", r.str("report_type", "type")))
	number := e.requireStr("number", r.str("number"))

	e.id = sprint("%d-%s-%s", e.congress, reportType, number)
	e.extras = map[string]any{
		"report_type": reportType,
		"number":      number,
		"citation":    r.str("citation"),
		"chamber":     r.str("chamber"),
		"part":        r.str("part"),
	}

	return e
}

func buildCommitteePrint(r *rawView) extraction {
	var e extraction

	e.takeCongress(r, "congress")
	jacket := e.requireStr("jacket_number", r.str("jacketNumber", "jacket_number"))

	e.id = sprint("%d-print-%s", e.congress, jacket)
	e.extras = map[string]any{
		"jacket_number": jacket,
		"chamber":       r.str("chamber"),
		"title":         r.str("title"),
	}

	return e
}

func buildCommitteeMeeting(r *rawView) extraction {
	var e extraction

	e.takeCongress(r, "congress")
	chamber := strings.ToLower(e.requireStr("chamber", r.str("chamber")))
	eventID := e.requireStr("event_id", r.str("eventId", "event_id"))

	e.id = sprint("%d-%s-meeting-%s", e.congress, chamber, eventID)
	e.extras = map[string]any{
		"event_id":     eventID,
		"chamber":      chamber,
		"meeting_type": r.str("meeting_type", "type"),
		"date":         r.str("date"),
	}

	return e
}

func buildCongressionalRecord(r *rawView) extraction {
	var e extraction

	e.takeCongress(r, "congress")
	volume := e.requireStr("volume", r.str("volumeNumber", "volume", "Volume"))
	issue := e.requireStr("issue", r.str("issueNumber", "issue", "Issue"))

	e.id = sprint("%d-rec-%s-%s", e.congress, volume, issue)
	e.extras = map[string]any{
		"volume":     volume,
		"issue":      issue,
		"issue_date": r.str("publishDate", "issue_date", "date"),
		"session":    r.str("session", "sessionNumber"),
	}

	return e
}

func buildDailyRecord(r *rawView) extraction {
	var e extraction

	e.takeCongress(r, "congress")
	volume := e.requireStr("volume", r.str("volumeNumber", "volume"))
	issue := e.requireStr("issue", r.str("issueNumber", "issue"))

	e.id = sprint("%d-dcr-%s-%s", e.congress, volume, issue)
	e.extras = map[string]any{
		"volume":     volume,
		"issue":      issue,
		"issue_date": r.str("issueDate", "issue_date"),
		"session":    r.str("sessionNumber", "session"),
	}

	return e
}

func buildBoundRecord(r *rawView) extraction {
	var e extraction

	e.takeCongress(r, "congress")
	volume := e.requireStr("volume", r.str("volumeNumber", "volume"))
	date := e.requireStr("date", r.str("date"))

	e.id = sprint("%d-bcr-%s-%s", e.congress, volume, date)
	e.extras = map[string]any{
		"volume":  volume,
		"date":    date,
		"session": r.str("sessionNumber", "session"),
	}

	return e
}

func buildHouseCommunication(r *rawView) extraction {
	return buildCommunication(r, "hc")
}

func buildSenateCommunication(r *rawView) extraction {
	return buildCommunication(r, "sc")
}

func buildCommunication(r *rawView, tag string) extraction {
	var e extraction

	e.takeCongress(r, "congress", "congressNumber")
	number := e.requireStr("number", r.str("number", "communicationNumber"))

	code := ""
	if m, ok := r.mapVal("communicationType", "communication_type"); ok {
		code = strings.ToLower(nestedStr(m, "code"))
	}

	e.requireStr("communication_type", code)

	e.id = sprint("%d-%s-%s-%s", e.congress, tag, code, number)
	e.extras = map[string]any{
		"number":             number,
		"communication_type": code,
		"abstract":           r.str("abstract"),
	}

	return e
}

func buildHouseRequirement(r *rawView) extraction {
	var e extraction

	e.takeCongress(r, "congress")
	number := e.requireStr("number", r.str("number"))

	e.id = sprint("%d-hreq-%s", e.congress, number)
	e.extras = map[string]any{
		"number":            number,
		"nature":            r.str("nature"),
		"frequency":         r.str("frequency"),
		"parent_agency":     r.str("parentAgency", "parent_agency"),
		"submitting_agency": r.str("submittingAgency", "submitting_agency"),
	}

	return e
}

func buildMember(r *rawView) extraction {
	var e extraction

	e.takeCongress(r, "congress")
	bioguide := e.requireStr("bioguide_id", r.str("bioguideId", "bioguide_id"))

	e.id = sprint("member-%s", bioguide)
	e.extras = map[string]any{
		"bioguide_id": bioguide,
		"name":        r.str("name"),
		"state":       r.str("state"),
		"party":       r.str("partyName", "party"),
		"district":    r.str("district"),
	}

	if terms, ok := r.listVal("terms"); ok {
		e.extras["terms"] = terms
	}

	return e
}

func buildSummary(r *rawView) extraction {
	var e extraction

	e.takeCongress(r, "congress")

	billType := ""
	billNumber := ""

	if bill, ok := r.mapVal("bill"); ok {
		billType = strings.ToLower(nestedStr(bill, "type"))
		billNumber = nestedStr(bill, "number")
	}

	e.requireStr("bill", billType+billNumber)
	versionCode := e.requireStr("version_code", r.str("versionCode", "version_code"))

	e.id = sprint("%d-%s-%s-summary-%s", e.congress, billType, billNumber, versionCode)
	e.extras = map[string]any{
		"bill_type":    billType,
		"bill_number":  billNumber,
		"version_code": versionCode,
		"action_date":  r.str("actionDate", "action_date"),
		"action_desc":  r.str("actionDesc", "action_desc"),
		"text":         r.str("text"),
	}

	return e
}

func buildCongress(r *rawView) extraction {
	var e extraction

	e.takeCongress(r, "number", "congress")
	e.requireStr("name", r.str("name"))

	e.id = sprint("congress-%d", e.congress)
	e.extras = map[string]any{
		"name":       r.str("name"),
		"start_year": r.str("startYear", "start_year"),
		"end_year":   r.str("endYear", "end_year"),
	}

	if sessions, ok := r.listVal("sessions"); ok {
		e.extras["sessions"] = sessions
	}

	return e
}
