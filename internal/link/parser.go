package link

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"xray-ip-diag/internal/domain"
	"xray-ip-diag/internal/xray"
)

const defaultPort = 443

var (
	ErrUnsupportedScheme   = errors.New("only vless links are supported")
	ErrMissingUserID       = errors.New("missing user id")
	ErrMissingHost         = errors.New("missing server address")
	ErrInvalidPort         = errors.New("invalid port")
	ErrUnsupportedNetwork  = errors.New("unsupported network type")
	ErrUnsupportedSecurity = errors.New("unsupported security type")
)

// Parse converts a vless:// share link into an outbound descriptor.
// Every failure is returned as a parse StepError wrapping its cause.
func Parse(link string) (*xray.OutboundConfig, error) {
	outbound, err := parse(strings.TrimSpace(link))
	if err != nil {
		return nil, domain.NewStepError(domain.KindParse, "failed to parse share link", err)
	}
	return outbound, nil
}

func parse(link string) (*xray.OutboundConfig, error) {
	// The remark is display-only and may carry characters url.Parse refuses.
	raw, _, _ := strings.Cut(link, "#")
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("error parsing link: %w", err)
	}

	if !strings.EqualFold(u.Scheme, xray.ProtocolVLESS) {
		return nil, fmt.Errorf("%w, got %q", ErrUnsupportedScheme, u.Scheme)
	}

	if u.User == nil || u.User.Username() == "" {
		return nil, ErrMissingUserID
	}
	id := u.User.Username()

	host := u.Hostname()
	if host == "" {
		return nil, ErrMissingHost
	}

	port := defaultPort
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil || port < 1 || port > 65535 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPort, p)
		}
	}

	opts := NewOptions(parseQuery(u.RawQuery))

	stream, err := buildStreamSettings(opts, host)
	if err != nil {
		return nil, err
	}

	return &xray.OutboundConfig{
		Protocol: xray.ProtocolVLESS,
		Settings: xray.OutboundSettings{
			VNext: []xray.ServerConfig{
				{
					Address: host,
					Port:    port,
					Users: []xray.UserConfig{
						{
							ID:         id,
							Encryption: opts.Encryption,
							Flow:       opts.Flow,
							Level:      0,
						},
					},
				},
			},
		},
		StreamSettings: stream,
	}, nil
}

func buildStreamSettings(opts Options, host string) (xray.StreamSettings, error) {
	if !opts.Network.Valid() {
		return xray.StreamSettings{}, fmt.Errorf("%w: %q", ErrUnsupportedNetwork, opts.Network)
	}
	if !opts.Security.Valid() {
		return xray.StreamSettings{}, fmt.Errorf("%w: %q", ErrUnsupportedSecurity, opts.Security)
	}

	stream := xray.StreamSettings{
		Network:  opts.Network,
		Security: opts.Security,
	}

	serverName := opts.SNI
	if serverName == "" {
		serverName = host
	}

	switch opts.Security {
	case xray.SecurityTLS:
		stream.TLSSettings = &xray.TLSSettings{
			AllowInsecure: opts.AllowInsecure,
			ServerName:    serverName,
			ALPN:          opts.ALPN,
			Fingerprint:   opts.Fingerprint,
		}
	case xray.SecurityReality:
		fingerprint := opts.Fingerprint
		if fingerprint == "" {
			fingerprint = defaultRealityFingerprint
		}
		stream.RealitySettings = &xray.RealitySettings{
			ServerName:  serverName,
			PublicKey:   opts.PublicKey,
			ShortID:     opts.ShortID,
			Fingerprint: fingerprint,
		}
	}

	path := opts.Path
	if path == "" {
		path = "/"
	}

	switch opts.Network {
	case xray.NetworkWS:
		headers := make(map[string]string)
		if opts.Host != "" {
			headers["Host"] = opts.Host
		}
		stream.WSSettings = &xray.WSSettings{
			Path:    path,
			Headers: headers,
		}
	case xray.NetworkGRPC:
		stream.GRPCSettings = &xray.GRPCSettings{
			ServiceName: opts.ServiceName,
		}
	case xray.NetworkH2:
		hosts := []string{}
		if opts.Host != "" {
			hosts = append(hosts, opts.Host)
		}
		stream.HTTPSettings = &xray.HTTPSettings{
			Path: path,
			Host: hosts,
		}
	}

	return stream, nil
}

// parseQuery splits a raw query on '&' only. A value whose escapes do not
// decode is kept as written, so ';' and a stray '%' survive.
func parseQuery(query string) url.Values {
	values := make(url.Values)
	for _, pair := range strings.Split(query, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		values.Add(unescapeQuery(key), unescapeQuery(value))
	}
	return values
}

func unescapeQuery(s string) string {
	if unescaped, err := url.QueryUnescape(s); err == nil {
		return unescaped
	}
	return strings.ReplaceAll(s, "+", " ")
}

// Remark returns the fragment of a share link, unescaped when possible. It is display-only.
func Remark(link string) string {
	_, fragment, found := strings.Cut(strings.TrimSpace(link), "#")
	if !found {
		return ""
	}
	if unescaped, err := url.PathUnescape(fragment); err == nil {
		return unescaped
	}
	return fragment
}

// IsCanonicalID reports whether id is a UUID in its canonical 8-4-4-4-12 form.
// Xray derives a UUID from any other string, so this is only worth a warning.
func IsCanonicalID(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}
