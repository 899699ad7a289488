package ir

// Version constants for the query document format and the translator.
const (
	// IRVersion is the query document schema version.
	IRVersion = "1"

	// TranslatorVersion is the nl2sql release version.
	TranslatorVersion = "0.1.0"
)
