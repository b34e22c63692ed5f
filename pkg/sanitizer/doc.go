// Package sanitizer normalizes user supplied values before validation and storage.
//
// Every function is idempotent and never fails: invalid input comes back as an
// empty string (or is dropped from a slice) and is caught by the validators.
//
// Normalization includes:
//   - Phone numbers: E.164, parsed against the tenant's region first
//   - Emails: trimmed and lowercased
//   - Names and titles: whitespace collapsed and trimmed
//   - Labels: like names, then lowercased
//   - Slices: duplicates and empty values removed after normalization
package sanitizer
