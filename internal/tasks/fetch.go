package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"syscall"
	"time"

	"github.com/desertthunder/mindx/internal/shared"
)

const maxRedirects = 10

var errNonPublicHost = fmt.Errorf("%w: image URL must point to a public host", shared.ErrValidation)

// sharedAddressSpace is carrier-grade NAT (RFC 6598), which [netip.Addr.IsPrivate] does not cover.
var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")

func (i *TargetIngestor) fetch(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := i.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("image fetch returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, i.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if int64(len(data)) > i.maxBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", i.maxBytes)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("image is empty")
	}
	return data, nil
}

// publicAddr reports whether addr is a globally routable unicast address.
func publicAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	return addr.IsGlobalUnicast() && !addr.IsPrivate() && !sharedAddressSpace.Contains(addr)
}

// checkHost rejects hosts that name the local machine or a non-public IP literal.
// Hostnames are checked again at dial time, once they resolve.
func checkHost(host string) error {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if host == "" || host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return errNonPublicHost
	}
	if addr, err := netip.ParseAddr(host); err == nil && !publicAddr(addr) {
		return errNonPublicHost
	}
	return nil
}

// dialControl runs after DNS resolution, so address is always an IP and port.
func dialControl(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	addr, err := netip.ParseAddr(host)
	if err != nil || !publicAddr(addr) {
		return fmt.Errorf("%w (%s)", errNonPublicHost, host)
	}
	return nil
}

// publicOnly returns a copy of hc that refuses to connect to or be redirected to non-public addresses.
//
// Only [http.Transport] round trippers can be guarded at dial time; other transports keep the redirect check.
func publicOnly(hc *http.Client) *http.Client {
	guarded := *hc

	base, ok := hc.Transport.(*http.Transport)
	if hc.Transport == nil {
		base, ok = http.DefaultTransport.(*http.Transport)
	}
	if ok {
		t := base.Clone()
		dialer := &net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second, Control: dialControl}
		t.DialContext = dialer.DialContext
		t.DialTLSContext = nil
		// A proxy would be the dialed address, hiding the real destination.
		t.Proxy = nil
		guarded.Transport = t
	}

	next := hc.CheckRedirect
	guarded.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if err := checkHost(req.URL.Hostname()); err != nil {
			return err
		}
		if next != nil {
			return next(req, via)
		}
		if len(via) >= maxRedirects {
			return errors.New("stopped after 10 redirects")
		}
		return nil
	}
	return &guarded
}
