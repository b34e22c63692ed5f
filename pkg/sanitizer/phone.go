package sanitizer

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// FallbackRegions are tried in order when a number has no country prefix and
// the caller's region did not yield a valid number.
var FallbackRegions = []string{"BE", "NL", "LU", "FR", "DE"}

// NormalizePhone returns phone in E.164 form, or "" when it is not a valid
// number in region or any fallback region.
func NormalizePhone(phone string, region string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return ""
	}

	regions := FallbackRegions
	if region != "" {
		regions = append([]string{strings.ToUpper(region)}, FallbackRegions...)
	}

	for _, r := range regions {
		parsed, err := phonenumbers.Parse(phone, r)
		if err != nil {
			continue
		}
		if phonenumbers.IsValidNumber(parsed) {
			return phonenumbers.Format(parsed, phonenumbers.E164)
		}
	}
	return ""
}

// PhoneRegion returns the ISO region of an E.164 number, or "".
func PhoneRegion(e164 string) string {
	parsed, err := phonenumbers.Parse(e164, "")
	if err != nil {
		return ""
	}
	return phonenumbers.GetRegionCodeForNumber(parsed)
}
