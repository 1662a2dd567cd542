package commands

import "github.com/navigatorbuilds/elara-core/errors"

// errCheckFailure is returned by doctor when at least one health check
// failed; its message is intentionally terse since the table already
// printed the detail.
var errCheckFailure = errors.New("one or more health checks failed")

// errVerificationFailed signals a non-zero exit from `elara verify`
// without repeating the INVALID/MISMATCH line already printed.
var errVerificationFailed = errors.New("verification failed")
