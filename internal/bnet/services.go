package bnet

// Service hashes: stable, version-tagged u32 identifiers shared with the
// client build. One per logical RPC service.
const (
	ServiceConnection     uint32 = 0x65446991
	ServiceAuthentication uint32 = 0x0DECFC01
	ServiceAccount        uint32 = 0x62DA0891
	ServiceGameUtilities  uint32 = 0x3FC1274D
	ServiceChannel        uint32 = 0xB732FB97
	ServiceFriends        uint32 = 0xA3DDB1BD
	ServicePresence       uint32 = 0xFA0796FF
	ServiceReport         uint32 = 0x7CAF61C9
	ServiceResources      uint32 = 0xECBE75BA
	ServiceUserManager    uint32 = 0x3E19FB34
)

// Client-side listener hashes, used for server-to-client invocations.
const (
	ListenerAuthentication uint32 = 0x71240E35
	ListenerChallenge      uint32 = 0xBBDA171F
)

// Connection service methods.
const (
	MethodConnect           uint32 = 1
	MethodForceDisconnect   uint32 = 4
	MethodKeepAlive         uint32 = 5
	MethodRequestDisconnect uint32 = 7
)

// Authentication service methods.
const (
	MethodLogon                uint32 = 1
	MethodVerifyWebCredentials uint32 = 7
)

// Authentication listener methods (server-to-client).
const (
	MethodOnLogonComplete uint32 = 5
)

// Challenge listener methods (server-to-client).
const (
	MethodOnExternalChallenge uint32 = 3
)

// Account service methods.
const (
	MethodGetAccountState     uint32 = 30
	MethodGetGameAccountState uint32 = 31
)

// Game-utilities service methods.
const (
	MethodProcessClientRequest     uint32 = 1
	MethodGetAllValuesForAttribute uint32 = 10
)

// serviceName maps known service hashes to a human-readable label for
// logging. Unknown hashes log as hex.
func serviceName(hash uint32) string {
	switch hash {
	case ServiceConnection:
		return "connection"
	case ServiceAuthentication:
		return "authentication"
	case ServiceAccount:
		return "account"
	case ServiceGameUtilities:
		return "game_utilities"
	case ServiceChannel:
		return "channel"
	case ServiceFriends:
		return "friends"
	case ServicePresence:
		return "presence"
	case ServiceReport:
		return "report"
	case ServiceResources:
		return "resources"
	case ServiceUserManager:
		return "user_manager"
	default:
		return "unknown"
	}
}
