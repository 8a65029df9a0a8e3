package generator

// Exported aliases for testing internal functions from
// the generator_test package.

// AppendLineForTest exposes appendLine.
var AppendLineForTest = appendLine

// ShortRunIDForTest exposes shortRunID.
var ShortRunIDForTest = shortRunID

// ValidateForTest exposes Config.validate.
func ValidateForTest(cfg Config) error {
	return cfg.withDefaults().validate()
}
