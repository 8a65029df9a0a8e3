package commands

// Exported aliases for testing internal functions from
// the commands_test package.

// AsExitErrorForTest exposes asExitError.
var AsExitErrorForTest = asExitError

// ExitPushRejectedForTest exposes the push-rejection
// exit code.
const ExitPushRejectedForTest = exitPushRejected
