package xray

// Assemble wraps an outbound descriptor into a process configuration with a
// single no-auth SOCKS inbound on the loopback interface.
func Assemble(outbound OutboundConfig, listenPort int, logLevel string) *Config {
	if logLevel == "" {
		logLevel = DefaultLogLevel
	}

	return &Config{
		Log: LogConfig{
			LogLevel: logLevel,
		},
		Inbounds: []InboundConfig{
			{
				Port:     listenPort,
				Listen:   ListenAddress,
				Protocol: ProtocolSocks,
				Settings: InboundSettings{
					Auth: "noauth",
					UDP:  true,
				},
			},
		},
		Outbounds: []OutboundConfig{outbound},
	}
}
