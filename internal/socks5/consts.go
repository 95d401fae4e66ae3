package socks5

// Version is the protocol version carried in every SOCKS5 message.
const Version = 0x05

// Authentication methods (RFC 1928 section 3).
const (
	MethodNoAuth       = 0x00
	MethodGSSAPI       = 0x01
	MethodUserPass     = 0x02
	MethodNoAcceptable = 0xFF
)

// Request commands.
const (
	CmdConnect      = 0x01
	CmdBind         = 0x02
	CmdUDPAssociate = 0x03
)

// Address types.
const (
	AtypIPv4   = 0x01
	AtypDomain = 0x03
	AtypIPv6   = 0x04
)

// Reply codes (RFC 1928 section 6).
const (
	RepSuccess                 = 0x00
	RepGeneralFailure          = 0x01
	RepNotAllowed              = 0x02
	RepNetworkUnreachable      = 0x03
	RepHostUnreachable         = 0x04
	RepConnectionRefused       = 0x05
	RepTTLExpired              = 0x06
	RepCommandNotSupported     = 0x07
	RepAddressTypeNotSupported = 0x08
)

// UserPassVersion is the sub-negotiation version of RFC 1929.
const UserPassVersion = 0x01

const (
	headerLen = 4 // VER CMD RSV ATYP
	portLen   = 2
)
