package xray

// Config structures for XRay
type (
	Config struct {
		Log       LogConfig        `json:"log"`
		Inbounds  []InboundConfig  `json:"inbounds"`
		Outbounds []OutboundConfig `json:"outbounds"`
	}

	LogConfig struct {
		LogLevel string `json:"loglevel"`
	}

	InboundConfig struct {
		Port     int             `json:"port"`
		Listen   string          `json:"listen"`
		Protocol string          `json:"protocol"`
		Settings InboundSettings `json:"settings"`
	}

	InboundSettings struct {
		Auth string `json:"auth"`
		UDP  bool   `json:"udp"`
	}

	OutboundConfig struct {
		Protocol       string           `json:"protocol"`
		Settings       OutboundSettings `json:"settings"`
		StreamSettings StreamSettings   `json:"streamSettings"`
	}

	OutboundSettings struct {
		VNext []ServerConfig `json:"vnext"`
	}

	ServerConfig struct {
		Address string       `json:"address"`
		Port    int          `json:"port"`
		Users   []UserConfig `json:"users"`
	}

	UserConfig struct {
		ID         string `json:"id"`
		Encryption string `json:"encryption"`
		Flow       string `json:"flow"`
		Level      int    `json:"level"`
	}

	StreamSettings struct {
		Network         Network          `json:"network"`
		Security        Security         `json:"security"`
		TLSSettings     *TLSSettings     `json:"tlsSettings,omitempty"`
		RealitySettings *RealitySettings `json:"realitySettings,omitempty"`
		WSSettings      *WSSettings      `json:"wsSettings,omitempty"`
		GRPCSettings    *GRPCSettings    `json:"grpcSettings,omitempty"`
		HTTPSettings    *HTTPSettings    `json:"httpSettings,omitempty"`
	}

	TLSSettings struct {
		AllowInsecure bool     `json:"allowInsecure"`
		ServerName    string   `json:"serverName"`
		ALPN          []string `json:"alpn,omitempty"`
		Fingerprint   string   `json:"fingerprint,omitempty"`
	}

	RealitySettings struct {
		ServerName  string `json:"serverName"`
		PublicKey   string `json:"publicKey"`
		ShortID     string `json:"shortId"`
		Fingerprint string `json:"fingerprint"`
	}

	WSSettings struct {
		Path    string            `json:"path"`
		Headers map[string]string `json:"headers"`
	}

	GRPCSettings struct {
		ServiceName string `json:"serviceName"`
	}

	HTTPSettings struct {
		Path string   `json:"path"`
		Host []string `json:"host"`
	}
)

const (
	ProtocolVLESS = "vless"
	ProtocolSocks = "socks"

	DefaultLogLevel = "warning"
	ListenAddress   = "127.0.0.1"
)

// Network is the transport tag of a stream.
type Network string

const (
	NetworkTCP  Network = "tcp"
	NetworkWS   Network = "ws"
	NetworkGRPC Network = "grpc"
	NetworkH2   Network = "h2"
)

func (n Network) Valid() bool {
	switch n {
	case NetworkTCP, NetworkWS, NetworkGRPC, NetworkH2:
		return true
	}
	return false
}

// Security is the security layer tag of a stream.
type Security string

const (
	SecurityNone    Security = "none"
	SecurityTLS     Security = "tls"
	SecurityReality Security = "reality"
)

func (s Security) Valid() bool {
	switch s {
	case SecurityNone, SecurityTLS, SecurityReality:
		return true
	}
	return false
}

// Server returns the first vnext entry, or nil for an empty descriptor.
func (o *OutboundConfig) Server() *ServerConfig {
	if len(o.Settings.VNext) == 0 {
		return nil
	}
	return &o.Settings.VNext[0]
}
