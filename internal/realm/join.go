package realm

import (
	"context"
	"crypto/rand"
	"fmt"
	"net"
	"time"
)

// ResolveServerAddresses picks, for each address family the realm publishes, either the
// realm's local or external address depending on whether clientIP sits on
// the realm's local subnet, and enforces the realm's strict-build flag.
func (r *Registry) ResolveServerAddresses(handle Handle, clientIP net.IP, clientBuild uint32) ([]AddressFamily, error) {
	rl, ok := r.Lookup(handle)
	if !ok {
		return nil, unknownRealm(fmt.Sprintf("realm: no realm at address %#x", handle.Address()))
	}
	if rl.Flags.has(FlagStrictBuild) && rl.Build.Build != clientBuild {
		return nil, notPermitted(fmt.Sprintf("realm: build %d does not match required build %d", clientBuild, rl.Build.Build))
	}
	if rl.Flags.has(FlagOffline) {
		return nil, notPermitted("realm: realm is offline")
	}

	ip := rl.ExternalIP
	if rl.onSameSubnet(clientIP) {
		ip = rl.LocalIP
	}
	if ip == nil {
		return nil, general("realm: realm has no usable address")
	}

	return []AddressFamily{{
		Family:    1, // IPv4
		Addresses: []Address{{IP: ip.String(), Port: rl.Port}},
	}}, nil
}

// Join generates a 32-byte
// server secret, persists a join-ticket row binding the requesting
// account to it, and returns the secret for the RealmJoinTicket response.
func (r *Registry) Join(ctx context.Context, handle Handle, gameAccountName string, clientIP net.IP, clientSecret [32]byte, locale, os string) ([32]byte, error) {
	if _, ok := r.Lookup(handle); !ok {
		return [32]byte{}, unknownRealm(fmt.Sprintf("realm: no realm at address %#x", handle.Address()))
	}

	var serverSecret [32]byte
	if _, err := rand.Read(serverSecret[:]); err != nil {
		return [32]byte{}, general(fmt.Errorf("realm: generating server secret: %w", err).Error())
	}

	ticket := JoinTicket{
		AccountName:  gameAccountName,
		ClientSecret: clientSecret,
		ServerSecret: serverSecret,
		ClientIP:     clientIP.String(),
		Locale:       locale,
		OS:           os,
		CreatedAt:    time.Now(),
	}
	if err := r.store.InsertJoinTicket(ctx, ticket); err != nil {
		return [32]byte{}, general(fmt.Errorf("realm: persisting join ticket: %w", err).Error())
	}

	return serverSecret, nil
}
