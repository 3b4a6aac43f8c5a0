package fetch

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/Sriram-PR/webtest/pkg/parse"
	"github.com/Sriram-PR/webtest/pkg/utils"
)

// CheckReachable opens and closes a TCP connection to the host:port serving u
// A failed check means every queued URL of that domain is unreachable
func CheckReachable(ctx context.Context, u parse.URL, timeout time.Duration) error {
	dialer := &net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", u.HostPort())
	if err != nil {
		return fmt.Errorf("%w: %s: %w", utils.ErrConnect, u.AddressEncoded(), err)
	}
	return conn.Close()
}
