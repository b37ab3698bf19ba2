package fields

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/landlorddocs/smartreview/constants"
	"github.com/landlorddocs/smartreview/internal/config"
)

// kindPattern is one way of recognizing a field kind in raw text. Base
// confidence reflects how ambiguous the pattern is on its own; label
// proximity adds the rest.
type kindPattern struct {
	re   *regexp.Regexp
	base float64
	// normalize turns the submatch into the canonical stored value.
	// Returning false rejects the match.
	normalize func(m []string) (string, bool)
}

var monthNames = map[string]int{
	"january": 1, "february": 2, "march": 3, "april": 4, "may": 5, "june": 6,
	"july": 7, "august": 8, "september": 9, "october": 10, "november": 11, "december": 12,
}

var frequencyWords = map[string]constants.RentFrequency{
	"week": constants.RentWeekly, "weekly": constants.RentWeekly,
	"fortnight": constants.RentFortnightly, "fortnightly": constants.RentFortnightly,
	"month": constants.RentMonthly, "monthly": constants.RentMonthly, "calendar month": constants.RentMonthly,
	"quarter": constants.RentQuarterly, "quarterly": constants.RentQuarterly,
	"year": constants.RentYearly, "yearly": constants.RentYearly, "annum": constants.RentYearly,
}

var (
	// Dates. UK documents are day-first.
	reDateISO     = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	reDateSlashed = regexp.MustCompile(`\b(\d{1,2})[/.](\d{1,2})[/.](\d{4})\b`)
	reDateLong    = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+(January|February|March|April|May|June|July|August|September|October|November|December)\s+(\d{4})\b`)

	// Money. Sterling first, bare decimal amounts as a weak fallback.
	reMoneySterling = regexp.MustCompile(`(?i)(?:£|GBP\s*)\s*(\d{1,3}(?:,\d{3})*(?:\.\d{2})?|\d+(?:\.\d{2})?)`)
	reMoneyBare     = regexp.MustCompile(`\b(\d{1,3}(?:,\d{3})*\.\d{2})\b`)

	// UK postcode (outward + inward), anchors an address line.
	rePostcode = regexp.MustCompile(`(?i)\b([A-Z]{1,2}\d[A-Z\d]?)\s*(\d[A-Z]{2})\b`)

	// Identifiers.
	reGroundsList = regexp.MustCompile(`(?i)\bground[s]?\s+((?:\d{1,2}(?:\s*(?:,|and)\s*)?)+)`)
	reRRN         = regexp.MustCompile(`\b(\d{4}-\d{4}-\d{4}-\d{4}-\d{4})\b`)
	reRatingBand  = regexp.MustCompile(`(?i)\brating(?:\s+is)?[:\s]+([A-G])\b`)
	reLicenceNo   = regexp.MustCompile(`(?i)\b(?:registration|licence|license|engineer)\s*(?:no\.?|number)?[:\s]*(\d{5,7})\b`)

	// Frequencies.
	reFrequency = regexp.MustCompile(`(?i)\bper\s+(calendar\s+month|week|fortnight|month|quarter|annum|year)\b|\b(weekly|fortnightly|monthly|quarterly|yearly|annually)\b`)

	// Free text after a label, single line.
	reTextLine = regexp.MustCompile(`[^\n]{2,120}`)
)

func normalizeDateISO(m []string) (string, bool) {
	return fmt.Sprintf("%s-%s-%s", m[1], m[2], m[3]), true
}

func normalizeDateSlashed(m []string) (string, bool) {
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	if month > 12 || month < 1 || day < 1 || day > 31 {
		return "", false
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day), true
}

func normalizeDateLong(m []string) (string, bool) {
	day, _ := strconv.Atoi(m[1])
	month, ok := monthNames[strings.ToLower(m[2])]
	if !ok || day < 1 || day > 31 {
		return "", false
	}
	year, _ := strconv.Atoi(m[3])
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day), true
}

func normalizeMoney(m []string) (string, bool) {
	s := strings.ReplaceAll(m[1], ",", "")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return "", false
	}
	return fmt.Sprintf("%.2f", f), true
}

func normalizeGrounds(m []string) (string, bool) {
	parts := regexp.MustCompile(`\d{1,2}`).FindAllString(m[1], -1)
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, ", "), true
}

func normalizeFrequency(m []string) (string, bool) {
	word := m[1]
	if word == "" {
		word = m[2]
	}
	word = strings.ToLower(strings.TrimSpace(word))
	word = strings.TrimSuffix(word, "ally") // annually -> annu (handled below)
	if word == "annu" {
		word = "annum"
	}
	if f, ok := frequencyWords[word]; ok {
		return string(f), true
	}
	// weekly/monthly/... arrive via the second branch unchanged
	if f, ok := frequencyWords[strings.TrimSuffix(word, "ly")]; ok {
		return string(f), true
	}
	return "", false
}

// patternsForKind returns the recognition table for a field kind.
func patternsForKind(kind config.FieldKind) []kindPattern {
	switch kind {
	case config.KindDate:
		return []kindPattern{
			{re: reDateISO, base: 0.65, normalize: normalizeDateISO},
			{re: reDateLong, base: 0.60, normalize: normalizeDateLong},
			{re: reDateSlashed, base: 0.55, normalize: normalizeDateSlashed},
		}
	case config.KindMoney:
		return []kindPattern{
			{re: reMoneySterling, base: 0.60, normalize: normalizeMoney},
			{re: reMoneyBare, base: 0.40, normalize: normalizeMoney},
		}
	case config.KindPostcode:
		return []kindPattern{
			{re: rePostcode, base: 0.60, normalize: func(m []string) (string, bool) {
				return strings.ToUpper(m[1] + " " + m[2]), true
			}},
		}
	case config.KindIdentifier:
		return []kindPattern{
			{re: reGroundsList, base: 0.65, normalize: normalizeGrounds},
			{re: reRRN, base: 0.65, normalize: func(m []string) (string, bool) { return m[1], true }},
			{re: reRatingBand, base: 0.60, normalize: func(m []string) (string, bool) { return strings.ToUpper(m[1]), true }},
			{re: reLicenceNo, base: 0.55, normalize: func(m []string) (string, bool) { return m[1], true }},
		}
	case config.KindFrequency:
		return []kindPattern{
			{re: reFrequency, base: 0.55, normalize: normalizeFrequency},
		}
	case config.KindText:
		// Free text only resolves deterministically next to a label; the
		// bare pattern is everything-matching, so its base is zero and the
		// label boost does all the work.
		return []kindPattern{
			{re: reTextLine, base: 0.0, normalize: func(m []string) (string, bool) {
				v := strings.TrimSpace(m[0])
				return v, v != ""
			}},
		}
	default:
		return nil
	}
}
