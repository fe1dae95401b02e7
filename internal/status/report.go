package status

import (
	"encoding/base64"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// Report is the body of the status endpoint. QR is a PNG data URL while a
// pairing code is pending and null otherwise.
type Report struct {
	Ready         bool           `json:"ready"`
	Authenticated bool           `json:"authenticated"`
	QR            *string        `json:"qr"`
	ClientInfo    map[string]any `json:"clientInfo"`

	State   State  `json:"state"`
	Backend string `json:"backend"`
	RawQR   string `json:"rawQr,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Report snapshots the machine for the given backend name.
func (m *Machine) Report(backend string) Report {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r := Report{
		Ready:         m.current == Ready,
		Authenticated: m.authenticated,
		ClientInfo:    m.clientInfo,
		State:         m.current,
		Backend:       backend,
		RawQR:         m.qr,
	}
	if m.qr != "" {
		if url, err := QRDataURL(m.qr); err == nil {
			r.QR = &url
		}
	}
	switch m.current {
	case AuthTimeout:
		r.Error = "authentication timed out; restart pairing"
	case Error:
		r.Error = m.lastErr
	}
	return r
}

// QRDataURL renders code as a base64 PNG data URL.
func QRDataURL(code string) (string, error) {
	png, err := qrcode.Encode(code, qrcode.Medium, 256)
	if err != nil {
		return "", fmt.Errorf("encode qr: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
