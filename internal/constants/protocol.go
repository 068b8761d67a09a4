package constants

// Battle.net Session Protocol Constants
//
// Protocol-level constants for the framed protobuf-over-TLS session
// protocol between the game client and this server. The values are fixed
// by the client build and must not drift.

// Frame Structure Constants
const (
	// FrameLengthPrefixSize is the big-endian uint16 header-length prefix.
	FrameLengthPrefixSize = 2

	// ServiceIDRequest marks a request frame.
	ServiceIDRequest = 0x00

	// ServiceIDResponse marks a response frame.
	ServiceIDResponse = 0xFE
)

// Buffer Size Constants
const (
	// DefaultReadBufSize is the initial per-session read buffer size.
	DefaultReadBufSize = 4096

	// DefaultSendBufSize is the pooled per-write buffer size.
	DefaultSendBufSize = 8192
)

// Secret Size Constants
const (
	// ClientSecretSize is the client-issued half of the realm join secret.
	ClientSecretSize = 32

	// ServerSecretSize is the server-issued half of the realm join secret.
	ServerSecretSize = 32

	// SessionKeySize is the opaque key returned in LogonResult.
	SessionKeySize = 64
)

// Client Identity Constants
const (
	// ProgramWoW is the only program accepted at Logon.
	ProgramWoW = "WoW"

	// Accepted platform strings.
	PlatformWin  = "Win"
	PlatformWn64 = "Wn64"
	PlatformMc64 = "Mc64"
)

// AcceptedPlatform reports whether platform is one the server serves.
func AcceptedPlatform(platform string) bool {
	switch platform {
	case PlatformWin, PlatformWn64, PlatformMc64:
		return true
	default:
		return false
	}
}

// Game-Utilities Attribute Names
const (
	AttrCommandRealmListTicket  = "Command_RealmListTicketRequest_v1_b9"
	AttrCommandLastCharPlayed   = "Command_LastCharPlayedRequest_v1_b9"
	AttrCommandRealmListRequest = "Command_RealmListRequest_v1_b9"
	AttrCommandRealmJoinRequest = "Command_RealmJoinRequest_v1_b9"

	AttrParamIdentity           = "Param_Identity"
	AttrParamClientInfo         = "Param_ClientInfo"
	AttrParamRealmListTicket    = "Param_RealmListTicket"
	AttrParamRealmEntry         = "Param_RealmEntry"
	AttrParamCharacterName      = "Param_CharacterName"
	AttrParamCharacterGUID      = "Param_CharacterGUID"
	AttrParamLastPlayedTime     = "Param_LastPlayedTime"
	AttrParamRealmList          = "Param_RealmList"
	AttrParamCharacterCountList = "Param_CharacterCountList"
	AttrParamRealmAddress       = "Param_RealmAddress"
	AttrParamRealmJoinTicket    = "Param_RealmJoinTicket"
	AttrParamServerAddresses    = "Param_ServerAddresses"
	AttrParamJoinSecret         = "Param_JoinSecret"
)

// RealmListTicket is the literal blob returned by a successful
// RealmListTicketRequest.
const RealmListTicket = "AuthRealmListTicket"
