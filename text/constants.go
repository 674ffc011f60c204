package text

const (
	// FingerprintBits is the width of a context fingerprint.
	FingerprintBits = 64

	// DefaultWindow is the number of neighbouring lines on each side that feed a
	// line's context fingerprint.
	DefaultWindow = 8

	// JoinSeparator glues line texts together, both for context windows and for
	// split/merge candidates.
	JoinSeparator = " "
)
