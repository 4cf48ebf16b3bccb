package notification

import (
	"regexp"
	"strings"
	"time"
)

// Controlled vocabularies and normalization helpers. The codings are fixed
// by the DEMIS IGS profiles; free text never passes through uncoded.

// snomedUploadStatus maps lowercase English repository upload status terms
// to their SNOMED codes.
var snomedUploadStatus = map[string]string{
	"accepted": "385645004",
	"planned":  "397943006",
	"denied":   "441889009",
	"other":    "74964007",
}

// snomedSequencingReason maps lowercase sequencing reason terms to SNOMED.
var snomedSequencingReason = map[string]string{
	"random":    "255226008",
	"requested": "385644000",
	"clinical":  "58147004",
	"other":     "74964007",
}

var validGenders = map[string]bool{
	"male":    true,
	"female":  true,
	"other":   true,
	"unknown": true,
}

var knownRepositories = map[string]bool{
	"gisaid":  true,
	"ena":     true,
	"sra":     true,
	"pubmlst": true,
	"genbank": true,
	"other":   true,
}

var (
	isoDateRe    = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])(-([0-2]\d|3[01]))?$`)
	germanDateRe = regexp.MustCompile(`^\d{2}\.\d{2}\.\d{4}$`)
	birthYearRe  = regexp.MustCompile(`^(19|20)\d{2}$`)
	birthMonthRe = regexp.MustCompile(`^(0[1-9]|1[0-2])$`)
	numericRe    = regexp.MustCompile(`^\d+$`)
)

// trimmed returns the whitespace-trimmed value, empty if blank.
func trimmed(s string) string {
	return strings.TrimSpace(s)
}

// validEmail applies the minimal syntactic check used for lab contact
// addresses: an "@" with a "." somewhere after it.
func validEmail(s string) bool {
	s = trimmed(s)
	if s == "" {
		return false
	}

	at := strings.LastIndex(s, "@")

	return at > -1 && strings.Contains(s[at+1:], ".")
}

// normalizeDate accepts ISO partial dates (YYYY-MM or YYYY-MM-DD) and
// German DD.MM.YYYY dates, returning the ISO form. Anything else yields
// "" so the field is omitted rather than defaulted or garbled.
func normalizeDate(s string) string {
	v := trimmed(s)
	if v == "" {
		return ""
	}

	if isoDateRe.MatchString(v) {
		return v
	}

	if germanDateRe.MatchString(v) {
		t, err := time.Parse("02.01.2006", v)
		if err != nil {
			return ""
		}

		return t.Format("2006-01-02")
	}

	return ""
}

// normalizeBirthDate combines a birth year and month into YYYY-MM. Both
// must independently validate or nothing is emitted — no partial dates.
func normalizeBirthDate(year, month string) string {
	y := trimmed(year)
	m := trimmed(month)

	if !birthYearRe.MatchString(y) || !birthMonthRe.MatchString(m) {
		return ""
	}

	return y + "-" + m
}

// normalizeGender restricts the host sex to the administrative gender
// vocabulary; unknown values are dropped.
func normalizeGender(s string) string {
	g := strings.ToLower(trimmed(s))
	if validGenders[g] {
		return g
	}

	return ""
}

// normalizeRepository lowercases the repository name and forces anything
// outside the closed set to "other".
func normalizeRepository(s string) string {
	name := strings.ToLower(trimmed(s))
	if knownRepositories[name] {
		return name
	}

	return "other"
}

// resolveUploadStatus derives the SNOMED upload status code: a term lookup
// first, then raw-code passthrough, else a default driven by whether a
// repository link or dataset id is present.
func resolveUploadStatus(rawStatus, repositoryLink, repositoryID string) string {
	raw := strings.ToLower(trimmed(rawStatus))

	if code, ok := snomedUploadStatus[raw]; ok {
		return code
	}

	for _, code := range snomedUploadStatus {
		if raw == code {
			return raw
		}
	}

	if trimmed(repositoryLink) != "" || trimmed(repositoryID) != "" {
		return snomedUploadStatus["accepted"]
	}

	return snomedUploadStatus["planned"]
}

// resolveSequencingReason returns the SNOMED code for the sequencing
// reason: vocabulary lookup, else purely numeric passthrough, else ""
// (the extension is omitted, not defaulted).
func resolveSequencingReason(raw string) string {
	v := trimmed(raw)
	if v == "" {
		return ""
	}

	if code, ok := snomedSequencingReason[strings.ToLower(v)]; ok {
		return code
	}

	if numericRe.MatchString(v) {
		return v
	}

	return ""
}

// splitAdapters splits the combined adapter field on the first "+".
// The second adapter is empty when absent.
func splitAdapters(s string) (string, string) {
	v := trimmed(s)
	if v == "" {
		return "", ""
	}

	first, second, found := strings.Cut(v, "+")
	if !found {
		return trimmed(first), ""
	}

	return trimmed(first), trimmed(second)
}
