// Copyright (C) 2019-2024, Lux Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package log

import (
	"github.com/luxfi/log"
)

// Logger re-exports github.com/luxfi/log's interface so callers only
// need to import this package to both type and default-construct the
// logger this module's components accept.
type Logger = log.Logger

// NewNoOpLogger returns a logger that doesn't log anything
func NewNoOpLogger() log.Logger {
	return log.NewNoOpLogger()
}