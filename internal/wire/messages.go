package wire

import (
	"fmt"
	"math"
)

// EntityId is a 128-bit identifier split into low/high halves, used for
// account and game-account ids on the wire.
type EntityId struct {
	Low  uint64 // field 1
	High uint64 // field 2
}

func (e EntityId) Marshal() []byte {
	var buf []byte
	buf = appendUint64Field(buf, 1, e.Low)
	buf = appendUint64Field(buf, 2, e.High)
	return buf
}

func (e *EntityId) Unmarshal(buf []byte) error {
	fields, err := decodeFields(buf)
	if err != nil {
		return fmt.Errorf("decoding EntityId: %w", err)
	}
	*e = EntityId{}
	for _, f := range fields {
		switch f.num {
		case 1:
			e.Low = f.varintVal
		case 2:
			e.High = f.varintVal
		}
	}
	return nil
}

// ProcessId names a running server process: a label plus a boot epoch,
// used to disambiguate a process across restarts.
type ProcessId struct {
	Label uint32 // field 1
	Epoch uint32 // field 2
}

func (p ProcessId) Marshal() []byte {
	var buf []byte
	buf = appendUint32Field(buf, 1, p.Label)
	buf = appendUint32Field(buf, 2, p.Epoch)
	return buf
}

func (p *ProcessId) Unmarshal(buf []byte) error {
	fields, err := decodeFields(buf)
	if err != nil {
		return fmt.Errorf("decoding ProcessId: %w", err)
	}
	*p = ProcessId{}
	for _, f := range fields {
		switch f.num {
		case 1:
			p.Label = uint32(f.varintVal)
		case 2:
			p.Epoch = uint32(f.varintVal)
		}
	}
	return nil
}

// Variant is a tagged union carried by an Attribute. Exactly one field is
// expected to be set; which one is determined by the attribute's name at
// the application layer, not by the wire encoding itself.
type Variant struct {
	IntValue    *int64  // field 1
	FloatValue  *float64 // field 2
	StringValue *string // field 3
	BlobValue   []byte  // field 4
}

func (v Variant) Marshal() []byte {
	var buf []byte
	if v.IntValue != nil {
		buf = appendUint64Field(buf, 1, uint64(*v.IntValue))
	}
	if v.FloatValue != nil {
		buf = appendTag(buf, 2, wireFixed64)
		bits := math.Float64bits(*v.FloatValue)
		for i := 0; i < 8; i++ {
			buf = append(buf, byte(bits>>(8*i)))
		}
	}
	if v.StringValue != nil {
		buf = appendStringField(buf, 3, *v.StringValue)
	}
	if v.BlobValue != nil {
		buf = appendBytesField(buf, 4, v.BlobValue)
	}
	return buf
}

func (v *Variant) Unmarshal(buf []byte) error {
	fields, err := decodeFields(buf)
	if err != nil {
		return fmt.Errorf("decoding Variant: %w", err)
	}
	*v = Variant{}
	for _, f := range fields {
		switch f.num {
		case 1:
			iv := int64(f.varintVal)
			v.IntValue = &iv
		case 2:
			fv := math.Float64frombits(f.varintVal)
			v.FloatValue = &fv
		case 3:
			sv := string(f.bytesVal)
			v.StringValue = &sv
		case 4:
			v.BlobValue = f.bytesVal
		}
	}
	return nil
}

// Attribute is a (name, value) pair; ClientRequest/ClientResponse carry a
// list of these in place of a fixed per-method message shape.
type Attribute struct {
	Name  string  // field 1
	Value Variant // field 2
}

func (a Attribute) Marshal() []byte {
	var buf []byte
	buf = appendStringField(buf, 1, a.Name)
	buf = appendMessageField(buf, 2, a.Value)
	return buf
}

func (a *Attribute) Unmarshal(buf []byte) error {
	fields, err := decodeFields(buf)
	if err != nil {
		return fmt.Errorf("decoding Attribute: %w", err)
	}
	*a = Attribute{}
	for _, f := range fields {
		switch f.num {
		case 1:
			a.Name = string(f.bytesVal)
		case 2:
			if err := a.Value.Unmarshal(f.bytesVal); err != nil {
				return fmt.Errorf("Attribute.Value: %w", err)
			}
		}
	}
	return nil
}

// ClientRequest is the generic request shape used by the game-utilities
// service: a bag of named attributes, the first Command_-prefixed one
// selecting the command.
type ClientRequest struct {
	Attribute []Attribute // field 1, repeated
}

func (r ClientRequest) Marshal() []byte {
	var buf []byte
	for _, a := range r.Attribute {
		buf = appendMessageField(buf, 1, a)
	}
	return buf
}

func (r *ClientRequest) Unmarshal(buf []byte) error {
	fields, err := decodeFields(buf)
	if err != nil {
		return fmt.Errorf("decoding ClientRequest: %w", err)
	}
	r.Attribute = nil
	for _, f := range fields {
		if f.num != 1 {
			continue
		}
		var a Attribute
		if err := a.Unmarshal(f.bytesVal); err != nil {
			return fmt.Errorf("ClientRequest.Attribute: %w", err)
		}
		r.Attribute = append(r.Attribute, a)
	}
	return nil
}

// ByName returns the first attribute with the given name, if any.
func (r ClientRequest) ByName(name string) (Attribute, bool) {
	for _, a := range r.Attribute {
		if a.Name == name {
			return a, true
		}
	}
	return Attribute{}, false
}

// Command returns the first attribute whose name begins with "Command_".
func (r ClientRequest) Command() (Attribute, bool) {
	for _, a := range r.Attribute {
		if len(a.Name) >= len("Command_") && a.Name[:len("Command_")] == "Command_" {
			return a, true
		}
	}
	return Attribute{}, false
}

// ClientResponse mirrors ClientRequest for the reply direction.
type ClientResponse struct {
	Attribute []Attribute // field 1, repeated
}

func (r ClientResponse) Marshal() []byte {
	var buf []byte
	for _, a := range r.Attribute {
		buf = appendMessageField(buf, 1, a)
	}
	return buf
}

func (r *ClientResponse) Unmarshal(buf []byte) error {
	fields, err := decodeFields(buf)
	if err != nil {
		return fmt.Errorf("decoding ClientResponse: %w", err)
	}
	r.Attribute = nil
	for _, f := range fields {
		if f.num != 1 {
			continue
		}
		var a Attribute
		if err := a.Unmarshal(f.bytesVal); err != nil {
			return fmt.Errorf("ClientResponse.Attribute: %w", err)
		}
		r.Attribute = append(r.Attribute, a)
	}
	return nil
}

// WithAttribute appends an attribute and returns the extended response,
// for compact response construction in handlers.
func (r ClientResponse) WithAttribute(name string, v Variant) ClientResponse {
	r.Attribute = append(r.Attribute, Attribute{Name: name, Value: v})
	return r
}

// StringVariant and BlobVariant are small constructors used throughout the
// game-utilities handlers.
func StringVariant(s string) Variant { return Variant{StringValue: &s} }
func BlobVariant(b []byte) Variant   { return Variant{BlobValue: b} }
func IntVariant(i int64) Variant     { return Variant{IntValue: &i} }

// LogonRequest is sent by the client to authenticate.Logon.
type LogonRequest struct {
	Program              string // field 1
	Platform             string // field 2
	Locale               string // field 3
	ApplicationVersion   uint32 // field 4
	CachedWebCredentials []byte // field 5, optional
}

func (m LogonRequest) Marshal() []byte {
	var buf []byte
	buf = appendStringField(buf, 1, m.Program)
	buf = appendStringField(buf, 2, m.Platform)
	buf = appendStringField(buf, 3, m.Locale)
	buf = appendUint32Field(buf, 4, m.ApplicationVersion)
	if m.CachedWebCredentials != nil {
		buf = appendBytesField(buf, 5, m.CachedWebCredentials)
	}
	return buf
}

func (m *LogonRequest) Unmarshal(buf []byte) error {
	fields, err := decodeFields(buf)
	if err != nil {
		return fmt.Errorf("decoding LogonRequest: %w", err)
	}
	*m = LogonRequest{}
	for _, f := range fields {
		switch f.num {
		case 1:
			m.Program = string(f.bytesVal)
		case 2:
			m.Platform = string(f.bytesVal)
		case 3:
			m.Locale = string(f.bytesVal)
		case 4:
			m.ApplicationVersion = uint32(f.varintVal)
		case 5:
			m.CachedWebCredentials = f.bytesVal
		}
	}
	return nil
}

// LogonResult is the response to a successful (or failed) logon/verify
// flow.
type LogonResult struct {
	ErrorCode     uint32     // field 1
	AccountId     *EntityId  // field 2, optional: absent on failure
	GameAccountId []EntityId // field 3, repeated
	GeoipCountry  string     // field 4
	SessionKey    []byte     // field 5
}

func (m LogonResult) Marshal() []byte {
	var buf []byte
	buf = appendUint32Field(buf, 1, m.ErrorCode)
	if m.AccountId != nil {
		buf = appendMessageField(buf, 2, *m.AccountId)
	}
	for _, g := range m.GameAccountId {
		buf = appendMessageField(buf, 3, g)
	}
	buf = appendStringField(buf, 4, m.GeoipCountry)
	if m.SessionKey != nil {
		buf = appendBytesField(buf, 5, m.SessionKey)
	}
	return buf
}

func (m *LogonResult) Unmarshal(buf []byte) error {
	fields, err := decodeFields(buf)
	if err != nil {
		return fmt.Errorf("decoding LogonResult: %w", err)
	}
	*m = LogonResult{}
	for _, f := range fields {
		switch f.num {
		case 1:
			m.ErrorCode = uint32(f.varintVal)
		case 2:
			var e EntityId
			if err := e.Unmarshal(f.bytesVal); err != nil {
				return fmt.Errorf("LogonResult.AccountId: %w", err)
			}
			m.AccountId = &e
		case 3:
			var e EntityId
			if err := e.Unmarshal(f.bytesVal); err != nil {
				return fmt.Errorf("LogonResult.GameAccountId: %w", err)
			}
			m.GameAccountId = append(m.GameAccountId, e)
		case 4:
			m.GeoipCountry = string(f.bytesVal)
		case 5:
			m.SessionKey = f.bytesVal
		}
	}
	return nil
}

// ConnectRequest/ConnectResponse implement connection.Connect.
type ConnectRequest struct {
	ClientId ProcessId // field 1
}

func (m ConnectRequest) Marshal() []byte {
	return appendMessageField(nil, 1, m.ClientId)
}

func (m *ConnectRequest) Unmarshal(buf []byte) error {
	fields, err := decodeFields(buf)
	if err != nil {
		return fmt.Errorf("decoding ConnectRequest: %w", err)
	}
	*m = ConnectRequest{}
	for _, f := range fields {
		if f.num == 1 {
			if err := m.ClientId.Unmarshal(f.bytesVal); err != nil {
				return fmt.Errorf("ConnectRequest.ClientId: %w", err)
			}
		}
	}
	return nil
}

type ConnectResponse struct {
	ClientId   *ProcessId // field 1, optional: echoes the request's client id
	ServerId   ProcessId  // field 2
	ServerTime uint64     // field 3, milliseconds since the Unix epoch
}

func (m ConnectResponse) Marshal() []byte {
	var buf []byte
	if m.ClientId != nil {
		buf = appendMessageField(buf, 1, *m.ClientId)
	}
	buf = appendMessageField(buf, 2, m.ServerId)
	buf = appendUint64Field(buf, 3, m.ServerTime)
	return buf
}

func (m *ConnectResponse) Unmarshal(buf []byte) error {
	fields, err := decodeFields(buf)
	if err != nil {
		return fmt.Errorf("decoding ConnectResponse: %w", err)
	}
	*m = ConnectResponse{}
	for _, f := range fields {
		switch f.num {
		case 1:
			var p ProcessId
			if err := p.Unmarshal(f.bytesVal); err != nil {
				return fmt.Errorf("ConnectResponse.ClientId: %w", err)
			}
			m.ClientId = &p
		case 2:
			if err := m.ServerId.Unmarshal(f.bytesVal); err != nil {
				return fmt.Errorf("ConnectResponse.ServerId: %w", err)
			}
		case 3:
			m.ServerTime = f.varintVal
		}
	}
	return nil
}

// VerifyWebCredentialsRequest carries the opaque web credential ticket.
type VerifyWebCredentialsRequest struct {
	WebCredentials []byte // field 1
}

func (m VerifyWebCredentialsRequest) Marshal() []byte {
	return appendBytesField(nil, 1, m.WebCredentials)
}

func (m *VerifyWebCredentialsRequest) Unmarshal(buf []byte) error {
	fields, err := decodeFields(buf)
	if err != nil {
		return fmt.Errorf("decoding VerifyWebCredentialsRequest: %w", err)
	}
	*m = VerifyWebCredentialsRequest{}
	for _, f := range fields {
		if f.num == 1 {
			m.WebCredentials = f.bytesVal
		}
	}
	return nil
}

// DisconnectRequest/DisconnectNotification implement connection.RequestDisconnect.
type DisconnectRequest struct {
	ErrorCode uint32 // field 1
}

func (m DisconnectRequest) Marshal() []byte {
	return appendUint32Field(nil, 1, m.ErrorCode)
}

func (m *DisconnectRequest) Unmarshal(buf []byte) error {
	fields, err := decodeFields(buf)
	if err != nil {
		return fmt.Errorf("decoding DisconnectRequest: %w", err)
	}
	*m = DisconnectRequest{}
	for _, f := range fields {
		if f.num == 1 {
			m.ErrorCode = uint32(f.varintVal)
		}
	}
	return nil
}

type DisconnectNotification struct {
	ErrorCode uint32 // field 1
}

func (m DisconnectNotification) Marshal() []byte {
	return appendUint32Field(nil, 1, m.ErrorCode)
}

func (m *DisconnectNotification) Unmarshal(buf []byte) error {
	fields, err := decodeFields(buf)
	if err != nil {
		return fmt.Errorf("decoding DisconnectNotification: %w", err)
	}
	*m = DisconnectNotification{}
	for _, f := range fields {
		if f.num == 1 {
			m.ErrorCode = uint32(f.varintVal)
		}
	}
	return nil
}

// ChallengeExternalRequest is a server→client invocation redirecting the
// client to an external web-login flow.
type ChallengeExternalRequest struct {
	PayloadType string // field 1
	Payload     []byte // field 2
}

func (m ChallengeExternalRequest) Marshal() []byte {
	var buf []byte
	buf = appendStringField(buf, 1, m.PayloadType)
	buf = appendBytesField(buf, 2, m.Payload)
	return buf
}

func (m *ChallengeExternalRequest) Unmarshal(buf []byte) error {
	fields, err := decodeFields(buf)
	if err != nil {
		return fmt.Errorf("decoding ChallengeExternalRequest: %w", err)
	}
	*m = ChallengeExternalRequest{}
	for _, f := range fields {
		switch f.num {
		case 1:
			m.PayloadType = string(f.bytesVal)
		case 2:
			m.Payload = f.bytesVal
		}
	}
	return nil
}

// Account-state option bits.
const (
	AccountOptionFieldPrivacyInfo uint64 = 1 << 0
)

// Game-account-state option bits.
const (
	GameAccountOptionFieldGameLevelInfo uint64 = 1 << 0
	GameAccountOptionFieldGameStatus    uint64 = 1 << 1
)

// Field tag constants: these are arbitrary 32-bit tags baked into the
// client, far larger than a real protobuf field number, so they are
// carried as a value inside Field rather than as a message field number.
const (
	TagPrivacyInfo   uint32 = 0xD7CA834D
	TagGameLevelInfo uint32 = 0x5C46D483
	TagGameStatus    uint32 = 0x98B75F99
)

// Field is the shared tagged-value container used by GetAccountStateResponse
// and GetGameAccountStateResponse.
type Field struct {
	Tag       uint32 // field 1
	BoolValue *bool  // field 2, optional
	Message   []byte // field 3, optional: encoded PrivacyInfo/GameLevelInfo/GameStatus
}

func (f Field) Marshal() []byte {
	var buf []byte
	buf = appendUint32Field(buf, 1, f.Tag)
	if f.BoolValue != nil {
		v := uint32(0)
		if *f.BoolValue {
			v = 1
		}
		buf = appendUint32Field(buf, 2, v)
	}
	if f.Message != nil {
		buf = appendBytesField(buf, 3, f.Message)
	}
	return buf
}

func (f *Field) Unmarshal(buf []byte) error {
	fields, err := decodeFields(buf)
	if err != nil {
		return fmt.Errorf("decoding Field: %w", err)
	}
	*f = Field{}
	for _, rf := range fields {
		switch rf.num {
		case 1:
			f.Tag = uint32(rf.varintVal)
		case 2:
			b := rf.varintVal != 0
			f.BoolValue = &b
		case 3:
			f.Message = rf.bytesVal
		}
	}
	return nil
}

type GetAccountStateRequest struct {
	Options uint64 // field 1
}

func (m GetAccountStateRequest) Marshal() []byte {
	return appendUint64Field(nil, 1, m.Options)
}

func (m *GetAccountStateRequest) Unmarshal(buf []byte) error {
	fields, err := decodeFields(buf)
	if err != nil {
		return fmt.Errorf("decoding GetAccountStateRequest: %w", err)
	}
	*m = GetAccountStateRequest{}
	for _, f := range fields {
		if f.num == 1 {
			m.Options = f.varintVal
		}
	}
	return nil
}

type GetAccountStateResponse struct {
	Fields []Field // field 1, repeated
}

func (m GetAccountStateResponse) Marshal() []byte {
	var buf []byte
	for _, f := range m.Fields {
		buf = appendMessageField(buf, 1, f)
	}
	return buf
}

func (m *GetAccountStateResponse) Unmarshal(buf []byte) error {
	fields, err := decodeFields(buf)
	if err != nil {
		return fmt.Errorf("decoding GetAccountStateResponse: %w", err)
	}
	m.Fields = nil
	for _, rf := range fields {
		if rf.num != 1 {
			continue
		}
		var f Field
		if err := f.Unmarshal(rf.bytesVal); err != nil {
			return fmt.Errorf("GetAccountStateResponse.Fields: %w", err)
		}
		m.Fields = append(m.Fields, f)
	}
	return nil
}

type GetGameAccountStateRequest struct {
	GameAccountId EntityId // field 1
	Options       uint64   // field 2
}

func (m GetGameAccountStateRequest) Marshal() []byte {
	var buf []byte
	buf = appendMessageField(buf, 1, m.GameAccountId)
	buf = appendUint64Field(buf, 2, m.Options)
	return buf
}

func (m *GetGameAccountStateRequest) Unmarshal(buf []byte) error {
	fields, err := decodeFields(buf)
	if err != nil {
		return fmt.Errorf("decoding GetGameAccountStateRequest: %w", err)
	}
	*m = GetGameAccountStateRequest{}
	for _, f := range fields {
		switch f.num {
		case 1:
			if err := m.GameAccountId.Unmarshal(f.bytesVal); err != nil {
				return fmt.Errorf("GetGameAccountStateRequest.GameAccountId: %w", err)
			}
		case 2:
			m.Options = f.varintVal
		}
	}
	return nil
}

type GetGameAccountStateResponse struct {
	Fields []Field // field 1, repeated
}

func (m GetGameAccountStateResponse) Marshal() []byte {
	var buf []byte
	for _, f := range m.Fields {
		buf = appendMessageField(buf, 1, f)
	}
	return buf
}

func (m *GetGameAccountStateResponse) Unmarshal(buf []byte) error {
	fields, err := decodeFields(buf)
	if err != nil {
		return fmt.Errorf("decoding GetGameAccountStateResponse: %w", err)
	}
	m.Fields = nil
	for _, rf := range fields {
		if rf.num != 1 {
			continue
		}
		var f Field
		if err := f.Unmarshal(rf.bytesVal); err != nil {
			return fmt.Errorf("GetGameAccountStateResponse.Fields: %w", err)
		}
		m.Fields = append(m.Fields, f)
	}
	return nil
}

// PrivacyInfo is the payload carried inside a Field tagged TagPrivacyInfo.
type PrivacyInfo struct {
	IsUsingRid               bool // field 1
	IsVisibleForViewFriends  bool // field 2
	IsHiddenFromFriendFinder bool // field 3
}

func (m PrivacyInfo) Marshal() []byte {
	var buf []byte
	buf = appendBoolField(buf, 1, m.IsUsingRid)
	buf = appendBoolField(buf, 2, m.IsVisibleForViewFriends)
	buf = appendBoolField(buf, 3, m.IsHiddenFromFriendFinder)
	return buf
}

func (m *PrivacyInfo) Unmarshal(buf []byte) error {
	fields, err := decodeFields(buf)
	if err != nil {
		return fmt.Errorf("decoding PrivacyInfo: %w", err)
	}
	*m = PrivacyInfo{}
	for _, f := range fields {
		switch f.num {
		case 1:
			m.IsUsingRid = f.varintVal != 0
		case 2:
			m.IsVisibleForViewFriends = f.varintVal != 0
		case 3:
			m.IsHiddenFromFriendFinder = f.varintVal != 0
		}
	}
	return nil
}

// GameLevelInfo is the payload carried inside a Field tagged TagGameLevelInfo.
type GameLevelInfo struct {
	Name    string // field 1
	Program uint32 // field 2
}

func (m GameLevelInfo) Marshal() []byte {
	var buf []byte
	buf = appendStringField(buf, 1, m.Name)
	buf = appendUint32Field(buf, 2, m.Program)
	return buf
}

func (m *GameLevelInfo) Unmarshal(buf []byte) error {
	fields, err := decodeFields(buf)
	if err != nil {
		return fmt.Errorf("decoding GameLevelInfo: %w", err)
	}
	*m = GameLevelInfo{}
	for _, f := range fields {
		switch f.num {
		case 1:
			m.Name = string(f.bytesVal)
		case 2:
			m.Program = uint32(f.varintVal)
		}
	}
	return nil
}

// GameStatus is the payload carried inside a Field tagged TagGameStatus.
type GameStatus struct {
	IsSuspended       bool   // field 1
	IsBanned          bool   // field 2
	SuspensionExpires *int64 // field 3, optional, microseconds since epoch
}

func (m GameStatus) Marshal() []byte {
	var buf []byte
	buf = appendBoolField(buf, 1, m.IsSuspended)
	buf = appendBoolField(buf, 2, m.IsBanned)
	if m.SuspensionExpires != nil {
		buf = appendUint64Field(buf, 3, uint64(*m.SuspensionExpires))
	}
	return buf
}

func (m *GameStatus) Unmarshal(buf []byte) error {
	fields, err := decodeFields(buf)
	if err != nil {
		return fmt.Errorf("decoding GameStatus: %w", err)
	}
	*m = GameStatus{}
	for _, f := range fields {
		switch f.num {
		case 1:
			m.IsSuspended = f.varintVal != 0
		case 2:
			m.IsBanned = f.varintVal != 0
		case 3:
			v := int64(f.varintVal)
			m.SuspensionExpires = &v
		}
	}
	return nil
}

func appendBoolField(buf []byte, field int, v bool) []byte {
	n := uint32(0)
	if v {
		n = 1
	}
	return appendUint32Field(buf, field, n)
}

// GetAllValuesForAttributeRequest/Response implement game-utilities'
// GetAllValuesForAttribute method.
type GetAllValuesForAttributeRequest struct {
	AttributeKey string // field 1
}

func (m GetAllValuesForAttributeRequest) Marshal() []byte {
	return appendStringField(nil, 1, m.AttributeKey)
}

func (m *GetAllValuesForAttributeRequest) Unmarshal(buf []byte) error {
	fields, err := decodeFields(buf)
	if err != nil {
		return fmt.Errorf("decoding GetAllValuesForAttributeRequest: %w", err)
	}
	*m = GetAllValuesForAttributeRequest{}
	for _, f := range fields {
		if f.num == 1 {
			m.AttributeKey = string(f.bytesVal)
		}
	}
	return nil
}

type GetAllValuesForAttributeResponse struct {
	AttributeValue []string // field 1, repeated
}

func (m GetAllValuesForAttributeResponse) Marshal() []byte {
	var buf []byte
	for _, v := range m.AttributeValue {
		buf = appendStringField(buf, 1, v)
	}
	return buf
}

func (m *GetAllValuesForAttributeResponse) Unmarshal(buf []byte) error {
	fields, err := decodeFields(buf)
	if err != nil {
		return fmt.Errorf("decoding GetAllValuesForAttributeResponse: %w", err)
	}
	m.AttributeValue = nil
	for _, f := range fields {
		if f.num == 1 {
			m.AttributeValue = append(m.AttributeValue, string(f.bytesVal))
		}
	}
	return nil
}
