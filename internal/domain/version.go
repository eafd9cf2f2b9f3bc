package domain

// SupportedFormVersion is the only report form revision whose layout is known.
const SupportedFormVersion = "V5.6.11"

// ValidateFormVersion checks the version tag declared on the data sheet. The
// comparison is exact: a padded or differently cased tag is a different form.
func ValidateFormVersion(declared string) error {
	if declared != SupportedFormVersion {
		return &VersionError{Found: declared}
	}
	return nil
}
