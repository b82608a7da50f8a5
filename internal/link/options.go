package link

import (
	"net/url"
	"strings"

	"xray-ip-diag/internal/xray"
)

// Recognized share-link query keys.
const (
	KeyType          = "type"          // network tag, default "tcp"
	KeySecurity      = "security"      // security tag, default "none"
	KeySNI           = "sni"           // TLS/Reality server name, default: link host
	KeyAllowInsecure = "allowInsecure" // "1" disables TLS verification
	KeyALPN          = "alpn"          // comma separated ALPN list
	KeyFingerprint   = "fp"            // uTLS fingerprint, Reality default "chrome"
	KeyPublicKey     = "pbk"           // Reality public key
	KeyShortID       = "sid"           // Reality short id
	KeyPath          = "path"          // ws/h2 path, default "/"
	KeyHost          = "host"          // ws Host header, h2 host list
	KeyServiceName   = "serviceName"   // gRPC service name
	KeyEncryption    = "encryption"    // VLESS user encryption, default "none"
	KeyFlow          = "flow"          // VLESS flow control
)

const defaultRealityFingerprint = "chrome"

// Options is the typed view of a share link's query parameters.
// Values that are empty in the link are treated as absent.
type Options struct {
	Network       xray.Network
	Security      xray.Security
	SNI           string
	AllowInsecure bool
	ALPN          []string
	Fingerprint   string
	PublicKey     string
	ShortID       string
	Path          string
	Host          string
	ServiceName   string
	Encryption    string
	Flow          string
}

func NewOptions(values url.Values) Options {
	opts := Options{
		Network:       xray.Network(first(values, KeyType)),
		Security:      xray.Security(first(values, KeySecurity)),
		SNI:           first(values, KeySNI),
		AllowInsecure: first(values, KeyAllowInsecure) == "1",
		Fingerprint:   first(values, KeyFingerprint),
		PublicKey:     first(values, KeyPublicKey),
		ShortID:       first(values, KeyShortID),
		Path:          first(values, KeyPath),
		Host:          first(values, KeyHost),
		ServiceName:   first(values, KeyServiceName),
		Encryption:    first(values, KeyEncryption),
		Flow:          first(values, KeyFlow),
	}

	if opts.Network == "" {
		opts.Network = xray.NetworkTCP
	}
	if opts.Security == "" {
		opts.Security = xray.SecurityNone
	}
	if opts.Encryption == "" {
		opts.Encryption = "none"
	}

	if alpn := first(values, KeyALPN); alpn != "" {
		for _, proto := range strings.Split(alpn, ",") {
			if proto = strings.TrimSpace(proto); proto != "" {
				opts.ALPN = append(opts.ALPN, proto)
			}
		}
	}

	return opts
}

// first returns the first non-empty value of key.
func first(values url.Values, key string) string {
	for _, v := range values[key] {
		if v != "" {
			return v
		}
	}
	return ""
}
