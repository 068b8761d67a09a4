package bnet

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/udisondev/wowauth/internal/constants"
	"github.com/udisondev/wowauth/internal/realm"
	"github.com/udisondev/wowauth/internal/wire"
)

// handleGameUtilities serves ProcessClientRequest's attribute-dispatched
// commands and GetAllValuesForAttribute.
func (h *Handler) handleGameUtilities(ctx context.Context, s *Session, f wire.Frame) error {
	switch f.Header.MethodID {
	case MethodProcessClientRequest:
		return h.handleClientRequest(ctx, s, f)
	case MethodGetAllValuesForAttribute:
		return h.handleGetAllValuesForAttribute(s, f)
	default:
		s.Log().Warn("unknown game utilities method", "method", f.Header.MethodID)
		return s.Respond(f.Header.Token, CodeRpcNotImplemented, nil)
	}
}

func (h *Handler) handleClientRequest(ctx context.Context, s *Session, f wire.Frame) error {
	var req wire.ClientRequest
	if err := req.Unmarshal(f.Payload); err != nil {
		s.Log().Warn("malformed ClientRequest", "error", err)
		return s.Respond(f.Header.Token, CodeRpcMalformedRequest, nil)
	}

	command, ok := req.Command()
	if !ok {
		s.Log().Warn("client request without command attribute")
		return s.Respond(f.Header.Token, CodeRpcMalformedRequest, nil)
	}

	switch command.Name {
	case constants.AttrCommandRealmListTicket:
		return h.handleRealmListTicketRequest(ctx, s, f.Header.Token, req)
	case constants.AttrCommandLastCharPlayed:
		return h.handleLastCharPlayedRequest(s, f.Header.Token, command)
	case constants.AttrCommandRealmListRequest:
		return h.handleRealmListRequest(s, f.Header.Token, command)
	case constants.AttrCommandRealmJoinRequest:
		return h.handleRealmJoinRequest(ctx, s, f.Header.Token, req)
	default:
		s.Log().Warn("unknown client request command", "command", command.Name)
		return s.Respond(f.Header.Token, CodeRpcNotImplemented, nil)
	}
}

// jsonBlob extracts the JSON body of a client attribute blob: the literal
// tag runs up to the first ':', the JSON follows it, and a terminal NUL
// closes the blob.
func jsonBlob(blob []byte) ([]byte, error) {
	i := bytes.IndexByte(blob, ':')
	if i < 0 {
		return nil, fmt.Errorf("blob has no tag separator")
	}
	body := blob[i+1:]
	if len(body) == 0 || body[len(body)-1] != 0 {
		return nil, fmt.Errorf("blob is not NUL-terminated")
	}
	return body[:len(body)-1], nil
}

// realmListTicketIdentity is the decoded Param_Identity payload.
type realmListTicketIdentity struct {
	GameAccountID     int64 `json:"gameAccountID"`
	GameAccountRegion uint8 `json:"gameAccountRegion"`
}

// realmListTicketClientInfo is the decoded Param_ClientInfo payload. Only
// the secret matters to this server; the client sends considerably more.
type realmListTicketClientInfo struct {
	Info struct {
		Secret []int `json:"secret"`
	} `json:"info"`
}

func (h *Handler) handleRealmListTicketRequest(ctx context.Context, s *Session, token uint32, req wire.ClientRequest) error {
	info, ok := s.AccountInfo()
	if !ok {
		return s.Respond(token, CodeWowServicesDeniedRealmListTicket, nil)
	}

	if attr, ok := req.ByName(constants.AttrParamIdentity); ok && attr.Value.BlobValue != nil {
		body, err := jsonBlob(attr.Value.BlobValue)
		if err != nil {
			s.Log().Warn("bad identity blob", "error", err)
			return s.Respond(token, CodeUtilServerInvalidIdentityArgs, nil)
		}
		var identity realmListTicketIdentity
		if err := json.Unmarshal(body, &identity); err != nil {
			s.Log().Warn("bad identity json", "error", err)
			return s.Respond(token, CodeUtilServerInvalidIdentityArgs, nil)
		}
		if ga, ok := info.GameAccounts[identity.GameAccountID]; ok {
			s.SetGameAccount(ga)
		}
	}

	ga, ok := s.GameAccount()
	if !ok {
		return s.Respond(token, CodeUtilServerInvalidIdentityArgs, nil)
	}
	if ga.IsPermanentlyBanned {
		return s.Respond(token, CodeGameAccountBanned, nil)
	}
	if ga.IsBanned(time.Now()) {
		return s.Respond(token, CodeGameAccountSuspended, nil)
	}

	if attr, ok := req.ByName(constants.AttrParamClientInfo); ok && attr.Value.BlobValue != nil {
		body, err := jsonBlob(attr.Value.BlobValue)
		if err != nil {
			s.Log().Warn("bad client info blob", "error", err)
			return s.Respond(token, CodeWowServicesDeniedRealmListTicket, nil)
		}
		var clientInfo realmListTicketClientInfo
		if err := json.Unmarshal(body, &clientInfo); err != nil {
			s.Log().Warn("bad client info json", "error", err)
			return s.Respond(token, CodeWowServicesDeniedRealmListTicket, nil)
		}
		if len(clientInfo.Info.Secret) == constants.ClientSecretSize {
			var secret [constants.ClientSecretSize]byte
			for i, v := range clientInfo.Info.Secret {
				secret[i] = byte(v)
			}
			s.SetClientSecret(secret)
		}
	}

	if _, ok := s.ClientSecret(); !ok {
		return s.Respond(token, CodeWowServicesDeniedRealmListTicket, nil)
	}

	if err := h.accounts.UpdateLastLogin(ctx, s.RemoteIP(), localeNum(s.Locale()), s.OS(), info.ID); err != nil {
		s.Log().Error("updating last login", "error", err)
	}

	resp := wire.ClientResponse{}.
		WithAttribute(constants.AttrParamRealmListTicket, wire.BlobVariant([]byte(constants.RealmListTicket)))
	return s.Respond(token, CodeOK, resp)
}

func (h *Handler) handleLastCharPlayedRequest(s *Session, token uint32, command wire.Attribute) error {
	if command.Value.StringValue == nil {
		return s.Respond(token, CodeUtilServerUnknownRealm, nil)
	}
	subregion := *command.Value.StringValue

	ga, ok := s.GameAccount()
	if !ok {
		return s.Respond(token, CodeOK, wire.ClientResponse{})
	}

	last, ok := ga.LastPlayedCharacters[subregion]
	if !ok {
		return s.Respond(token, CodeOK, wire.ClientResponse{})
	}

	handle := realm.Handle{Region: last.RealmRegion, Site: last.RealmSite, Realm: last.RealmID}
	entry, ok := h.realms.RealmEntry(handle, realm.ClientVersion{Build: s.Build()})
	if !ok {
		return s.Respond(token, CodeUtilServerUnknownRealm, nil)
	}
	entryJSON, err := json.Marshal(entry)
	if err != nil {
		s.Log().Error("marshaling realm entry", "error", err)
		return s.Respond(token, CodeUtilServerFailedToSerializeResponse, nil)
	}
	compressed, err := realm.CompressWithPrefix(realm.PrefixRealmEntry, entryJSON)
	if err != nil {
		s.Log().Error("compressing realm entry", "error", err)
		return s.Respond(token, CodeUtilServerFailedToSerializeResponse, nil)
	}

	var guid [8]byte
	binary.LittleEndian.PutUint64(guid[:], last.CharacterGUID)

	resp := wire.ClientResponse{}.
		WithAttribute(constants.AttrParamRealmEntry, wire.BlobVariant(compressed)).
		WithAttribute(constants.AttrParamCharacterName, wire.StringVariant(last.CharacterName)).
		WithAttribute(constants.AttrParamCharacterGUID, wire.BlobVariant(guid[:])).
		WithAttribute(constants.AttrParamLastPlayedTime, wire.IntVariant(int64(last.LastPlayedTime)))
	return s.Respond(token, CodeOK, resp)
}

func (h *Handler) handleRealmListRequest(s *Session, token uint32, command wire.Attribute) error {
	ga, ok := s.GameAccount()
	if !ok {
		return s.Respond(token, CodeUserServerBadWowAccount, nil)
	}

	subregion := ""
	if command.Value.StringValue != nil {
		subregion = *command.Value.StringValue
	}

	listJSON, err := h.realms.RealmListJSON(subregion)
	if err != nil {
		s.Log().Error("building realm list", "error", err)
		return s.Respond(token, CodeUtilServerFailedToSerializeResponse, nil)
	}
	compressedList, err := realm.CompressWithPrefix(realm.PrefixRealmListUpdates, listJSON)
	if err != nil {
		s.Log().Error("compressing realm list", "error", err)
		return s.Respond(token, CodeUtilServerFailedToSerializeResponse, nil)
	}

	counts := make(map[realm.Handle]int32, len(ga.CharacterCounts))
	for addr, count := range ga.CharacterCounts {
		counts[realm.HandleFromAddress(addr)] = int32(count)
	}
	countsJSON, err := realm.CharacterCountListJSON(counts)
	if err != nil {
		s.Log().Error("building character counts", "error", err)
		return s.Respond(token, CodeUtilServerFailedToSerializeResponse, nil)
	}
	compressedCounts, err := realm.CompressWithPrefix(realm.PrefixCharacterCountList, countsJSON)
	if err != nil {
		s.Log().Error("compressing character counts", "error", err)
		return s.Respond(token, CodeUtilServerFailedToSerializeResponse, nil)
	}

	resp := wire.ClientResponse{}.
		WithAttribute(constants.AttrParamRealmList, wire.BlobVariant(compressedList)).
		WithAttribute(constants.AttrParamCharacterCountList, wire.BlobVariant(compressedCounts))
	return s.Respond(token, CodeOK, resp)
}

func (h *Handler) handleRealmJoinRequest(ctx context.Context, s *Session, token uint32, req wire.ClientRequest) error {
	ga, ok := s.GameAccount()
	if !ok {
		return s.Respond(token, CodeUserServerBadWowAccount, nil)
	}

	addrAttr, ok := req.ByName(constants.AttrParamRealmAddress)
	if !ok || addrAttr.Value.IntValue == nil {
		return s.Respond(token, CodeWowServicesInvalidJoinTicket, nil)
	}
	handle := realm.HandleFromAddress(uint32(*addrAttr.Value.IntValue))

	clientSecret, ok := s.ClientSecret()
	if !ok {
		return s.Respond(token, CodeWowServicesDeniedRealmListTicket, nil)
	}

	clientIP := net.ParseIP(s.RemoteIP())
	families, err := h.realms.ResolveServerAddresses(handle, clientIP, s.Build())
	if err != nil {
		return s.Respond(token, joinErrorCode(err), nil)
	}
	addressesJSON, err := realm.ServerAddressesJSON(families)
	if err != nil {
		s.Log().Error("building server addresses", "error", err)
		return s.Respond(token, CodeUtilServerFailedToSerializeResponse, nil)
	}
	compressed, err := realm.CompressWithPrefix(realm.PrefixServerIPAddresses, addressesJSON)
	if err != nil {
		s.Log().Error("compressing server addresses", "error", err)
		return s.Respond(token, CodeUtilServerFailedToSerializeResponse, nil)
	}

	serverSecret, err := h.realms.Join(ctx, handle, ga.Name, clientIP, clientSecret, s.Locale(), s.OS())
	if err != nil {
		s.Log().Error("issuing join ticket", "error", err)
		return s.Respond(token, joinErrorCode(err), nil)
	}

	s.Log().Info("realm join", "realm", fmt.Sprintf("%#x", handle.Address()), "game_account", ga.Name)

	resp := wire.ClientResponse{}.
		WithAttribute(constants.AttrParamRealmJoinTicket, wire.BlobVariant([]byte(ga.Name))).
		WithAttribute(constants.AttrParamServerAddresses, wire.BlobVariant(compressed)).
		WithAttribute(constants.AttrParamJoinSecret, wire.BlobVariant(serverSecret[:]))
	return s.Respond(token, CodeOK, resp)
}

// joinErrorCode maps a realm registry error to its on-wire code.
func joinErrorCode(err error) Code {
	switch realm.KindOf(err) {
	case realm.KindUnknownRealm:
		return CodeUtilServerUnknownRealm
	case realm.KindNotPermitted:
		return CodeUserServerNotPermittedOnRealm
	default:
		return CodeUtilServerFailedToSerializeResponse
	}
}

func (h *Handler) handleGetAllValuesForAttribute(s *Session, f wire.Frame) error {
	var req wire.GetAllValuesForAttributeRequest
	if err := req.Unmarshal(f.Payload); err != nil {
		s.Log().Warn("malformed GetAllValuesForAttributeRequest", "error", err)
		return s.Respond(f.Header.Token, CodeRpcMalformedRequest, nil)
	}

	if req.AttributeKey != constants.AttrCommandRealmListRequest {
		return s.Respond(f.Header.Token, CodeRpcNotImplemented, nil)
	}

	resp := wire.GetAllValuesForAttributeResponse{
		AttributeValue: h.realms.Subregions(),
	}
	return s.Respond(f.Header.Token, CodeOK, resp)
}
