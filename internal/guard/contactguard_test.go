package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScanCleanMessages(t *testing.T) {
	cleanMessages := []string{
		"Vi möts kl 14:00 imorgon",
		"Hej! Finns det plats kvar?",
		"Jag tar 2 platser, 150 kr per person funkar bra",
		"Vi åker den 2026-08-31 och är framme vid 18.30",
		"Avresa 7/9, tillbaka 9/9",
		"Perfekt, ses vid pendelparkeringen!",
		"Jag såg annonsen på facebook igår",
	}

	for _, msg := range cleanMessages {
		result := Scan(msg)
		assert.False(t, result.Blocked, "expected clean: %q (got %s)", msg, result.Category)
	}
}

func TestScanPhoneNumbers(t *testing.T) {
	phoneMessages := []string{
		"ring 070-1234567",
		"mitt nummer är 0701234567",
		"nå mig på 070 123 45 67",
		"070.123.45.67 funkar alltid",
		"(070) 123 45 67",
		"+46701234567",
	}

	for _, msg := range phoneMessages {
		result := Scan(msg)
		assert.True(t, result.Blocked, "expected phone violation: %q", msg)
		assert.Equal(t, CategoryPhone, result.Category, "message: %q", msg)
		assert.NotEmpty(t, result.Reason)
	}
}

func TestScanSpelledOutDigits(t *testing.T) {
	spelled := []string{
		"zero seven zero one two three four five six seven",
		"noll sju noll ett två tre fyra fem sex sju",
		"noll sju tre fyra fem sex sju åtta",
	}

	for _, msg := range spelled {
		result := Scan(msg)
		assert.True(t, result.Blocked, "expected phone violation: %q", msg)
		assert.Equal(t, CategoryPhone, result.Category, "message: %q", msg)
	}
}

func TestScanLeetObfuscation(t *testing.T) {
	result := Scan("nummer o7o-1234567")
	assert.True(t, result.Blocked)
	assert.Equal(t, CategoryPhone, result.Category)
}

func TestScanMixedDigitsAndWords(t *testing.T) {
	result := Scan("07 noll ett två tre fyra fem")
	assert.True(t, result.Blocked)
	assert.Equal(t, CategoryPhone, result.Category)
}

func TestScanEmails(t *testing.T) {
	emailMessages := []string{
		"mejla mig på test@example.com",
		"min mail är anna.svensson@gmail.com",
		"anna at gmail dot com",
		"skriv till anna(at)gmail(dot)com",
	}

	for _, msg := range emailMessages {
		result := Scan(msg)
		assert.True(t, result.Blocked, "expected email violation: %q", msg)
		assert.Equal(t, CategoryEmail, result.Category, "message: %q", msg)
	}
}

func TestScanExternalHandles(t *testing.T) {
	handleMessages := []string{
		"lägg till mig på whatsapp @anna_s",
		"finns på instagram: anna.svensson",
		"ring mig istället",
		"dm me instead",
	}

	for _, msg := range handleMessages {
		result := Scan(msg)
		assert.True(t, result.Blocked, "expected handle violation: %q", msg)
		assert.Equal(t, CategoryHandle, result.Category, "message: %q", msg)
	}
}

func TestScanEmailTakesPrecedenceOverHandlePhrase(t *testing.T) {
	// "mejla mig" is an off-platform phrase, but the embedded address
	// makes this an email violation.
	result := Scan("mejla mig på test@example.com")
	assert.Equal(t, CategoryEmail, result.Category)
}

func TestScanLongDigitRunsAreNotPhones(t *testing.T) {
	// Order references overflow the plausible phone range.
	result := Scan("bokningsreferens 12345678901234567890")
	assert.False(t, result.Blocked)
}

func TestCategoryReasonsAreSpecific(t *testing.T) {
	phone := Scan("ring 070-1234567")
	email := Scan("test@example.com")
	assert.NotEqual(t, phone.Reason, email.Reason)
}
