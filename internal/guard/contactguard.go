// Package guard scans outgoing chat messages for contact-information
// leakage before they are persisted. It is a deterrent, not a security
// boundary: simple obfuscation is caught, determined users will get
// through, and legitimate text (times, dates, prices) must never be
// blocked.
package guard

import (
	"regexp"
	"strings"
)

type Category string

const (
	CategoryPhone  Category = "phone"
	CategoryEmail  Category = "email"
	CategoryHandle Category = "handle"
)

// Result is a discriminated scan outcome. A violation is a policy
// rejection returned as a value, never an error.
type Result struct {
	Blocked  bool     `json:"blocked"`
	Category Category `json:"category,omitempty"`
	Reason   string   `json:"reason,omitempty"`
}

var categoryReasons = map[Category]string{
	CategoryPhone:  "Telefonnummer kan inte delas i chatten förrän kontakten är upplåst.",
	CategoryEmail:  "E-postadresser kan inte delas i chatten förrän kontakten är upplåst.",
	CategoryHandle: "Kontakt utanför plattformen kan inte föreslås i chatten förrän kontakten är upplåst.",
}

func clean() Result {
	return Result{}
}

func violation(category Category) Result {
	return Result{
		Blocked:  true,
		Category: category,
		Reason:   categoryReasons[category],
	}
}

// Scan classifies a message body. Checks run in order of specificity:
// an email address embedded in a "mejla mig" phrase should be reported
// as an email violation, not a handle violation.
func Scan(text string) Result {
	lowered := strings.ToLower(text)

	if containsEmail(lowered) {
		return violation(CategoryEmail)
	}
	if containsPhoneNumber(lowered) {
		return violation(CategoryPhone)
	}
	if containsExternalHandle(lowered) {
		return violation(CategoryHandle)
	}
	return clean()
}

// --- phone detection ---

const (
	minPhoneDigits = 7
	maxPhoneDigits = 15
)

// Dates and clock times carry digit runs of their own and must not
// trigger. They are removed before the digit-run scan.
var (
	isoDateRegex   = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)
	slashDateRegex = regexp.MustCompile(`\b\d{1,2}/\d{1,2}(/\d{2,4})?\b`)
	// A clock time inside a dotted phone number ("070.123.45.67") must
	// not be stripped, so the match may not touch digit/dot/dash
	// neighbours.
	clockRegex = regexp.MustCompile(`(^|[^\d.\-])\d{1,2}[:.]\d{2}($|[^\d.\-])`)
)

// Swedish and English digit words, used to spell numbers out loud
// ("noll sju tre...").
var digitWords = map[string]rune{
	"noll": '0', "zero": '0',
	"ett": '1', "en": '1', "one": '1',
	"två": '2', "tva": '2', "two": '2',
	"tre": '3', "three": '3',
	"fyra": '4', "four": '4',
	"fem": '5', "five": '5',
	"sex": '6', "six": '6',
	"sju": '7', "seven": '7',
	"åtta": '8', "atta": '8', "eight": '8',
	"nio": '9', "nine": '9',
}

// Letters commonly substituted for digits to slip past a naive scan.
var leetDigits = map[rune]rune{
	'o': '0',
	'i': '1',
	'l': '1',
}

func containsPhoneNumber(lowered string) bool {
	stripped := isoDateRegex.ReplaceAllString(lowered, " ")
	stripped = slashDateRegex.ReplaceAllString(stripped, " ")
	stripped = clockRegex.ReplaceAllString(stripped, "$1 $2")

	if longestDigitRun(stripped, false) >= minPhoneDigits {
		return true
	}

	// Second pass with digit words collapsed to digits and leet letters
	// counted, so "noll sju tre...", "07 tre fyra fem sex sju" and
	// "o7o-123456" are caught.
	words := strings.Fields(stripped)
	for i, w := range words {
		if d, ok := digitWords[strings.Trim(w, ".,!?")]; ok {
			words[i] = string(d)
		}
	}
	return longestDigitRun(strings.Join(words, " "), true) >= minPhoneDigits
}

// longestDigitRun counts the longest run of digits where space, dash,
// dot and parentheses are treated as in-run separators. Runs longer
// than maxPhoneDigits are discounted: order numbers and bank references
// are not phone numbers. With leet set, letters that pass for digits
// count too.
func longestDigitRun(s string, leet bool) int {
	longest, current := 0, 0
	sawDigit := false
	flush := func() {
		// A run of leet letters alone is just a word.
		if sawDigit && current <= maxPhoneDigits && current > longest {
			longest = current
		}
		current = 0
		sawDigit = false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			current++
			sawDigit = true
		case r == ' ' || r == '-' || r == '.' || r == '(' || r == ')':
			// separator, run continues
		default:
			if leet {
				if _, ok := leetDigits[r]; ok && current > 0 {
					current++
					continue
				}
			}
			flush()
		}
	}
	flush()
	return longest
}

// --- email detection ---

var (
	emailRegex = regexp.MustCompile(`[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}`)
	// "anna at gmail dot com" and "(at)"/"(dot)" spellings.
	spelledEmailRegex = regexp.MustCompile(`[a-z0-9._\-]+\s*(@|\(at\)|\bat\b)\s*[a-z0-9\-]+\s*(\.|\(dot\)|\bdot\b)\s*[a-z]{2,4}\b`)
)

func containsEmail(lowered string) bool {
	if emailRegex.MatchString(lowered) {
		return true
	}
	return spelledEmailRegex.MatchString(lowered)
}

// --- external handle detection ---

var offPlatformPhrases = []string{
	"ring mig",
	"ringa mig",
	"mejla mig",
	"maila mig",
	"smsa mig",
	"sms:a mig",
	"hör av dig på",
	"call me",
	"text me",
	"email me",
	"dm me",
}

var platformKeywords = []string{
	"whatsapp",
	"telegram",
	"signal",
	"snapchat",
	"instagram",
	"insta",
	"messenger",
	"facebook",
	"skype",
}

var handleRegex = regexp.MustCompile(`@[a-z0-9_.]{3,}`)

func containsExternalHandle(lowered string) bool {
	for _, phrase := range offPlatformPhrases {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	for _, kw := range platformKeywords {
		if !strings.Contains(lowered, kw) {
			continue
		}
		// The keyword alone is enough of a signal when paired with a
		// handle; "jag såg det på facebook" without one is fine.
		if handleRegex.MatchString(lowered) {
			return true
		}
		if strings.Contains(lowered, kw+":") {
			return true
		}
	}
	return false
}
