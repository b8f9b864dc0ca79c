// Package manifest implements the firmware update manifest protocol:
// a newline-separated key=value text format, its parser, and the fetch
// step that retrieves it over plain or TLS transport.
package manifest

import (
	"errors"
	"strconv"
	"strings"
)

// Recognized manifest keys. Unrecognized keys are ignored so old
// firmware keeps parsing newer manifests.
const (
	KeyVersionCode = "version_code"
	KeyVersionName = "version_name"
	KeyFirmwareURL = "firmware_url"
)

// Manifest describes the latest available firmware release.
type Manifest struct {
	// VersionCode is a positive integer, strictly increasing across
	// releases. It alone drives the update decision.
	VersionCode int

	// VersionName is the display string; defaults to the decimal form
	// of VersionCode when the manifest omits it.
	VersionName string

	// FirmwareURL is the absolute URL of the firmware image.
	FirmwareURL string
}

// Parse errors. Both carry the reason a manifest was rejected; no
// partial manifest is ever returned as valid.
var (
	ErrMissingVersionCode = errors.New("manifest: missing or invalid version_code")
	ErrMissingFirmwareURL = errors.New("manifest: missing firmware_url")
)

// Parse reads the key=value wire format. Blank lines and lines whose
// first non-whitespace character is '#' are ignored; keys are matched
// case-insensitively after trimming whitespace from both key and value.
// The parse succeeds iff version_code > 0 and firmware_url is non-empty.
func Parse(body string) (Manifest, error) {
	var m Manifest

	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch key {
		case KeyVersionCode:
			// Non-numeric stays 0 and fails validation below.
			if n, err := strconv.Atoi(value); err == nil {
				m.VersionCode = n
			}
		case KeyVersionName:
			m.VersionName = value
		case KeyFirmwareURL:
			m.FirmwareURL = value
		}
	}

	if m.VersionCode <= 0 {
		return Manifest{}, ErrMissingVersionCode
	}
	if m.FirmwareURL == "" {
		return Manifest{}, ErrMissingFirmwareURL
	}
	if m.VersionName == "" {
		m.VersionName = strconv.Itoa(m.VersionCode)
	}
	return m, nil
}
