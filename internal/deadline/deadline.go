// Package deadline derives the appeal due date and its urgency from the
// notification date found in a fine's text.
package deadline

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Procedure is the administrative stage a fine is in.
type Procedure string

const (
	ProcedureAllegations Procedure = "allegations"
	ProcedureReposition  Procedure = "reposition"
)

// Urgency tiers.
type UrgencyLevel string

const (
	UrgencyOK      UrgencyLevel = "ok"
	UrgencyWarning UrgencyLevel = "warning"
	UrgencyUrgent  UrgencyLevel = "urgent"
	UrgencyExpired UrgencyLevel = "expired"
)

// Urgency maps days remaining to a tier.
func Urgency(days int) UrgencyLevel {
	switch {
	case days < 0:
		return UrgencyExpired
	case days <= 3:
		return UrgencyUrgent
	case days <= 7:
		return UrgencyWarning
	default:
		return UrgencyOK
	}
}

// Info is the computed deadline.
type Info struct {
	NoticeDate    string       `json:"noticeDate"`
	NoticeDateISO string       `json:"noticeDateISO"`
	DueDate       string       `json:"dueDate"`
	DueDateISO    string       `json:"dueDateISO"`
	DaysRemaining int          `json:"daysRemaining"`
	ProcedureType Procedure    `json:"procedureType"`
	LegalBasis    string       `json:"legalBasis"`
	Urgency       UrgencyLevel `json:"urgency"`
}

const (
	displayLayout = "02/01/2006"
	isoLayout     = "2006-01-02"
)

// Calculator computes deadlines under a rule set.
type Calculator struct {
	rules Rules
	now   func() time.Time
}

// NewCalculator creates a Calculator. Zero rule fields take defaults.
func NewCalculator(rules Rules) *Calculator {
	return &Calculator{rules: rules.withDefaults(), now: time.Now}
}

// Rules returns the effective rule set.
func (c *Calculator) Rules() Rules { return c.rules }

// Compute evaluates text against today's date.
func (c *Calculator) Compute(text string) *Info {
	return c.ComputeAt(text, c.now())
}

// ComputeAt evaluates text as of today. It returns nil when no usable
// notification date is present.
func (c *Calculator) ComputeAt(text string, today time.Time) *Info {
	notice, ok := c.noticeDate(text)
	if !ok {
		return nil
	}

	info := &Info{
		NoticeDate:    notice.Format(displayLayout),
		NoticeDateISO: notice.Format(isoLayout),
	}
	var due time.Time
	if c.isAllegationStage(text) {
		due = notice.AddDate(0, 0, c.rules.AllegationDays)
		info.ProcedureType = ProcedureAllegations
		info.LegalBasis = c.rules.AllegationBasis
	} else {
		due = addMonthsClamped(notice, c.rules.RepositionMonths)
		info.ProcedureType = ProcedureReposition
		info.LegalBasis = c.rules.RepositionBasis
	}
	info.DueDate = due.Format(displayLayout)
	info.DueDateISO = due.Format(isoLayout)
	info.DaysRemaining = daysBetween(civil(today), due)
	info.Urgency = Urgency(info.DaysRemaining)
	return info
}

// noticeLabelRe finds the notification-date label and captures the rest of
// its line.
var noticeLabelRe = regexp.MustCompile(`(?i)(?:fecha\s+de\s+(?:la\s+)?notificaci[oó]n|notification\s+date)\s*[:\-]?\s*([^\n\r]*)`)

// noticeDate scans every labelled value in order. The first value that is
// an unknown marker or a parseable date decides the result.
func (c *Calculator) noticeDate(text string) (time.Time, bool) {
	for _, m := range noticeLabelRe.FindAllStringSubmatch(text, -1) {
		value := strings.TrimSpace(strings.Trim(m[1], " *_\t"))
		if value == "" {
			continue
		}
		if c.isUnknown(value) {
			return time.Time{}, false
		}
		if t, ok := ParseDate(value); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

func (c *Calculator) isUnknown(value string) bool {
	v := strings.ToLower(value)
	for _, marker := range c.rules.UnknownMarkers {
		if strings.Contains(v, strings.ToLower(marker)) {
			return true
		}
	}
	return false
}

// stageLabelRe finds an explicit "Fase: <word>" marker, as requested from
// the metadata extraction prompt, and captures the word.
var stageLabelRe = regexp.MustCompile(`(?i)\b(?:fase|stage)[\s*_]*:[\s*_]*(\p{L}+)`)

// isAllegationStage classifies text. An explicit stage marker decides first,
// then resolution keywords, then allegation keywords. Anything else is
// treated as a resolution.
func (c *Calculator) isAllegationStage(text string) bool {
	for _, m := range stageLabelRe.FindAllStringSubmatch(text, -1) {
		v := strings.ToLower(m[1])
		switch {
		case strings.HasPrefix(v, "alegaci"), strings.HasPrefix(v, "allegation"):
			return true
		case strings.HasPrefix(v, "reposici"), strings.HasPrefix(v, "resoluci"), strings.HasPrefix(v, "reposition"):
			return false
		}
	}
	t := strings.ToLower(text)
	if containsAny(t, c.rules.RepositionKeywords) {
		return false
	}
	return containsAny(t, c.rules.AllegationKeywords)
}

func containsAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// Date patterns, tried in order.
var (
	numericDateRe = regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})[/-](\d{4})\b`)
	longDateRe    = regexp.MustCompile(`(?i)\b(\d{1,2})\s+de\s+([a-záéíóúñ]+)\s+(?:de|del)\s+(\d{4})\b`)
	isoDateRe     = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
)

var spanishMonths = map[string]time.Month{
	"enero":      time.January,
	"febrero":    time.February,
	"marzo":      time.March,
	"abril":      time.April,
	"mayo":       time.May,
	"junio":      time.June,
	"julio":      time.July,
	"agosto":     time.August,
	"septiembre": time.September,
	"setiembre":  time.September,
	"octubre":    time.October,
	"noviembre":  time.November,
	"diciembre":  time.December,
}

// ParseDate reads a civil date from s. Accepted forms, in order:
// DD/MM/YYYY or DD-MM-YYYY, "D de <mes> de YYYY", and YYYY-MM-DD.
func ParseDate(s string) (time.Time, bool) {
	if m := numericDateRe.FindStringSubmatch(s); m != nil {
		if t, ok := makeDate(m[3], monthNum(m[2]), m[1]); ok {
			return t, true
		}
	}
	if m := longDateRe.FindStringSubmatch(s); m != nil {
		if month, ok := spanishMonths[strings.ToLower(m[2])]; ok {
			if t, ok := makeDate(m[3], month, m[1]); ok {
				return t, true
			}
		}
	}
	if m := isoDateRe.FindStringSubmatch(s); m != nil {
		if t, ok := makeDate(m[1], monthNum(m[2]), m[3]); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

func monthNum(s string) time.Month {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return time.Month(n)
}

// makeDate builds a UTC midnight date, rejecting out-of-range components.
func makeDate(year string, month time.Month, day string) (time.Time, bool) {
	y, err1 := strconv.Atoi(year)
	d, err2 := strconv.Atoi(day)
	if err1 != nil || err2 != nil || month < time.January || month > time.December || d < 1 {
		return time.Time{}, false
	}
	t := time.Date(y, month, d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d || t.Month() != month {
		return time.Time{}, false
	}
	return t, true
}

// addMonthsClamped adds n calendar months, clamping to the last day of the
// target month.
func addMonthsClamped(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month()+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1).Day()
	day := t.Day()
	if day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
}

// civil drops the clock and zone from t, keeping its calendar date.
func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(math.Round(to.Sub(from).Hours() / 24))
}
