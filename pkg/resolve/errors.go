package resolve

import (
	"fmt"

	"github.com/stanzabuild/stanza/pkg/plugins"
)

// ResolutionError reports that one specific plugin request could not be
// resolved. The whole resolution pass fails with the first such error;
// partial plugin sets are never produced.
type ResolutionError struct {
	// Request is the plugin request that failed.
	Request plugins.PluginRequest
	// Reason is a short description of what went wrong.
	Reason string
	// Err is the underlying cause, if any.
	Err error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve plugin %s: %s", e.Request, e.Reason)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

func newResolutionError(req plugins.PluginRequest, reason string, err error) *ResolutionError {
	return &ResolutionError{Request: req, Reason: reason, Err: err}
}
