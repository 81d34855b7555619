// Package fieldparse extracts structured identity fields from raw OCR text.
// The patterns are tuned for Nepalese citizenship certificates but accept
// common passport, licence and national-ID layouts too.
package fieldparse

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/onboardkit/kyc-agent/internal/core/domain"
)

var namePatterns = []*regexp.Regexp{
	regexp.MustCompile(`FULL\s+NAME\s*\n\s*([A-Z\s]+?)\s*(\n|$)`),
	regexp.MustCompile(`NAME\s*[:.]?\s*\n?\s*([A-Z\s]{3,50})`),
	regexp.MustCompile(`NAAM\s*[:.]?\s*\n?\s*([A-Z\s]{3,50})`),
}

var nameStopWords = map[string]struct{}{
	"DATE": {}, "YEAR": {}, "MONTH": {}, "DAY": {}, "OF": {}, "BIRTH": {},
}

var documentNumberPatterns = []*regexp.Regexp{
	regexp.MustCompile(`CERTIFICATE\s+NO\.?\s*[:.\s]*\n?([\d-]+)`),
	regexp.MustCompile(`CITIZENSHIP\s+NO\.?\s*[:.]?\s*([\d-]+)`),
	regexp.MustCompile(`ID\s+NO\.?\s*[:.]?\s*([\d-]+)`),
	regexp.MustCompile(`\b(\d{2,3}[-/]\d{2,3}[-/]\d{2,3}[-/]\d{2,5})\b`),
}

var (
	dobWordPattern = regexp.MustCompile(`YEAR\s*:\s*(\d{4})\s*MONTH\s*:\s*([A-Z]{3})\s*DAY\s*\.?\s*(\d{1,2})`)
	datePatterns   = []*regexp.Regexp{
		regexp.MustCompile(`\b(\d{4})[/-](\d{2})[/-](\d{2})\b`),
		regexp.MustCompile(`\b(\d{2})[/-](\d{2})[/-](\d{4})\b`),
	}
)

var issueDatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`ISSUE\s+DATE\s*[:.]?\s*(\d{4}[/-]\d{2}[/-]\d{2})`),
	regexp.MustCompile(`ISSUED\s+ON\s*[:.]?\s*(\d{4}[/-]\d{2}[/-]\d{2})`),
	regexp.MustCompile(`(\d{4}[-.]\d{2}[-.]\d{2})`),
}

var addressPatterns = []*regexp.Regexp{
	regexp.MustCompile(`PERMANENT\s+ADDRESS[\s\S]*?DISTRICT\s*:\s*([A-Za-z]+)`),
	regexp.MustCompile(`DISTRICT\s*:\s*([A-Za-z]+)`),
	regexp.MustCompile(`ADDRESS\s*[:.]?\s*([A-Z\s,]+)`),
}

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// Parse extracts whatever fields it can; fields it cannot find stay empty.
// Text shorter than 10 characters is treated as an OCR miss.
func (p *Parser) Parse(text string) domain.DocumentFields {
	var fields domain.DocumentFields
	if len(strings.TrimSpace(text)) < 10 {
		return fields
	}

	upper := strings.ToUpper(text)

	fields.Name = parseName(upper)
	fields.DocumentNumber = parseDocumentNumber(upper)
	fields.DateOfBirth = parseDateOfBirth(upper, text)
	fields.IssueDate = parseIssueDate(upper)
	fields.Address = parseAddress(upper)

	if strings.Contains(upper, "NEPAL") || strings.Contains(upper, "CITIZENSHIP") {
		fields.Nationality = "NEPALESE"
	}

	return fields
}

func parseName(upper string) string {
	for _, pattern := range namePatterns {
		match := pattern.FindStringSubmatch(upper)
		if match == nil {
			continue
		}
		var words []string
		for _, word := range strings.Fields(strings.TrimSpace(match[1])) {
			if len(word) <= 1 {
				continue
			}
			if _, stop := nameStopWords[word]; stop {
				continue
			}
			words = append(words, word)
		}
		if len(words) >= 2 {
			return strings.Join(words, " ")
		}
	}
	return ""
}

func parseDocumentNumber(upper string) string {
	for _, pattern := range documentNumberPatterns {
		if match := pattern.FindStringSubmatch(upper); match != nil {
			return strings.TrimSpace(match[1])
		}
	}
	return ""
}

func parseDateOfBirth(upper, original string) string {
	if match := dobWordPattern.FindStringSubmatch(upper); match != nil {
		return fmt.Sprintf("%s-%s-%s", match[1], match[2], match[3])
	}
	for _, pattern := range datePatterns {
		if match := pattern.FindStringSubmatch(original); match != nil {
			return NormalizeDate(strings.Join(match[1:], "-"))
		}
	}
	return ""
}

func parseIssueDate(upper string) string {
	for _, pattern := range issueDatePatterns {
		if match := pattern.FindStringSubmatch(upper); match != nil {
			return NormalizeDate(strings.TrimSpace(match[1]))
		}
	}
	return ""
}

func parseAddress(upper string) string {
	for _, pattern := range addressPatterns {
		if match := pattern.FindStringSubmatch(upper); match != nil {
			return "District: " + strings.TrimSpace(match[1])
		}
	}
	return ""
}

var dateLayouts = []struct {
	pattern *regexp.Regexp
	layout  string
}{
	{regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`), "2006-01-02"},
	{regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`), "02/01/2006"},
	{regexp.MustCompile(`^\d{4}/\d{2}/\d{2}$`), "2006/01/02"},
	{regexp.MustCompile(`^\d{2}-\d{2}-\d{4}$`), "02-01-2006"},
	{regexp.MustCompile(`^\d{4}\.\d{2}\.\d{2}$`), "2006.01.02"},
}

// NormalizeDate converts recognized date formats to YYYY-MM-DD. Unrecognized
// input is returned unchanged so the raw value still shows up in the report.
func NormalizeDate(value string) string {
	value = strings.TrimSpace(value)
	for _, candidate := range dateLayouts {
		if !candidate.pattern.MatchString(value) {
			continue
		}
		parsed, err := time.Parse(candidate.layout, value)
		if err != nil {
			continue
		}
		return parsed.Format("2006-01-02")
	}
	return value
}
