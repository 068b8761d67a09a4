package bnet

// Code is an on-wire RPC error code carried in Header.Status. Zero means
// success and is never serialized into the header.
type Code uint32

// Core protocol codes.
const (
	CodeOK             Code = 0x00000000
	CodeInternal       Code = 0x00000001
	CodeNotImplemented Code = 0x00000002
	CodeDenied         Code = 0x00000003
	CodeTimedOut       Code = 0x0000002D
)

// Risk / ban codes.
const (
	CodeRiskAccountLocked    Code = 0x00000034
	CodeGameAccountBanned    Code = 0x00000035
	CodeGameAccountSuspended Code = 0x00000036
)

// Logon payload rejection codes.
const (
	CodeBadProgram  Code = 0x0000006C
	CodeBadLocale   Code = 0x0000006D
	CodeBadPlatform Code = 0x0000006E
)

// Module-scoped codes (the client maps these to its own UI strings).
const (
	CodeRpcMalformedRequest Code = 0x8000001F
	CodeRpcNotImplemented   Code = 0x80000020

	CodeUserServerBadWowAccount             Code = 0x8000006C
	CodeUserServerNotPermittedOnRealm       Code = 0x8000006D
	CodeUtilServerInvalidIdentityArgs       Code = 0x80000076
	CodeUtilServerUnknownRealm              Code = 0x80000077
	CodeUtilServerFailedToSerializeResponse Code = 0x80000078

	CodeWowServicesDeniedRealmListTicket Code = 0x80000087
	CodeWowServicesInvalidJoinTicket     Code = 0x80000088
)

func (c Code) String() string {
	switch c {
	case CodeOK:
		return "OK"
	case CodeInternal:
		return "Internal"
	case CodeNotImplemented:
		return "NotImplemented"
	case CodeDenied:
		return "Denied"
	case CodeTimedOut:
		return "TimedOut"
	case CodeRiskAccountLocked:
		return "RiskAccountLocked"
	case CodeGameAccountBanned:
		return "GameAccountBanned"
	case CodeGameAccountSuspended:
		return "GameAccountSuspended"
	case CodeBadProgram:
		return "BadProgram"
	case CodeBadLocale:
		return "BadLocale"
	case CodeBadPlatform:
		return "BadPlatform"
	case CodeRpcMalformedRequest:
		return "RpcMalformedRequest"
	case CodeRpcNotImplemented:
		return "RpcNotImplemented"
	case CodeUserServerBadWowAccount:
		return "UserServerBadWowAccount"
	case CodeUserServerNotPermittedOnRealm:
		return "UserServerNotPermittedOnRealm"
	case CodeUtilServerInvalidIdentityArgs:
		return "UtilServerInvalidIdentityArgs"
	case CodeUtilServerUnknownRealm:
		return "UtilServerUnknownRealm"
	case CodeUtilServerFailedToSerializeResponse:
		return "UtilServerFailedToSerializeResponse"
	case CodeWowServicesDeniedRealmListTicket:
		return "WowServicesDeniedRealmListTicket"
	case CodeWowServicesInvalidJoinTicket:
		return "WowServicesInvalidJoinTicket"
	default:
		return "Unknown"
	}
}
