package whatsapp

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	nonDigitRE = regexp.MustCompile(`\D`)
	emailRE    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

// SanitizeNumber strips everything but digits from a phone number.
func SanitizeNumber(number string) string {
	return nonDigitRE.ReplaceAllString(number, "")
}

// FormatNumber normalizes a number to the wire format the WhatsApp gateway
// expects: country code followed by area code and subscriber number, digits
// only. A leading trunk zero is dropped.
func FormatNumber(number, countryCode string) string {
	clean := SanitizeNumber(number)
	clean = strings.TrimPrefix(clean, countryCode)
	clean = strings.TrimPrefix(clean, "0")
	return countryCode + clean
}

// JIDNumber extracts the bare number from a WhatsApp JID such as
// "5511999999999@s.whatsapp.net".
func JIDNumber(jid string) string {
	if at := strings.IndexByte(jid, '@'); at >= 0 {
		jid = jid[:at]
	}
	return SanitizeNumber(jid)
}

// IsValidEmail reports whether s looks like an email address.
func IsValidEmail(s string) bool {
	return emailRE.MatchString(s)
}

// FirstName returns the capitalized first word of a full name.
func FirstName(fullName string) string {
	fields := strings.Fields(fullName)
	if len(fields) == 0 {
		return ""
	}
	runes := []rune(strings.ToLower(fields[0]))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// Truncate shortens text to max runes, appending an ellipsis when cut.
func Truncate(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}
