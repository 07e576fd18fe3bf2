package relay

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// ErrRequestTimeout fails a pending request when the RequestTimeout option
// is set and no confirmation arrived in time.
var ErrRequestTimeout = errors.New("relay: request confirmation timed out")

// RequestFailedError is returned from Future.Get when the responding peer
// confirmed with success=false. Payload holds whatever the peer sent along
// with the failure.
type RequestFailedError struct {
	Payload gjson.Result
}

func (e *RequestFailedError) Error() string {
	return fmt.Sprintf("relay: request failed: %s", e.Payload.Raw)
}
