package realm

import (
	"context"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store against the login database's realms and
// realm_join_tickets tables.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Store backed by pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// ListRealms loads every realm row.
func (s *PostgresStore) ListRealms(ctx context.Context) ([]Realm, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT region, site, realm, external_ip, local_ip, local_subnet_mask,
		        port, type, name, flags, timezone, allowed_security_level,
		        population, build, version_major, version_minor, version_revision,
		        subregion, category_id, configs_id, realms_config_id, languages_id
		 FROM realms
		 ORDER BY region, site, realm`)
	if err != nil {
		return nil, fmt.Errorf("querying realms: %w", err)
	}
	defer rows.Close()

	result := make([]Realm, 0, 8)
	for rows.Next() {
		var (
			r                             Realm
			externalIP, localIP, maskText string
			port, flags                   int32
		)
		if err := rows.Scan(&r.Address.Region, &r.Address.Site, &r.Address.Realm,
			&externalIP, &localIP, &maskText, &port, &r.Type, &r.Name, &flags,
			&r.Timezone, &r.AllowedSecurityLevel, &r.Population, &r.Build.Build,
			&r.Build.Major, &r.Build.Minor, &r.Build.Revision,
			&r.Subregion, &r.CategoryID, &r.ConfigsID, &r.RealmsConfigID, &r.LanguagesID); err != nil {
			return nil, fmt.Errorf("scanning realm row: %w", err)
		}
		r.ExternalIP = net.ParseIP(externalIP)
		r.LocalIP = net.ParseIP(localIP)
		if mask := net.ParseIP(maskText); mask != nil {
			if mask4 := mask.To4(); mask4 != nil {
				r.LocalSubnetMask = net.IPMask(mask4)
			}
		}
		r.Port = uint16(port)
		r.Flags = Flags(flags)
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating realm rows: %w", err)
	}
	return result, nil
}

// ListSubregions returns the distinct subregion names across all realms.
func (s *PostgresStore) ListSubregions(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT subregion FROM realms WHERE subregion <> '' ORDER BY subregion`)
	if err != nil {
		return nil, fmt.Errorf("querying subregions: %w", err)
	}
	defer rows.Close()

	result := make([]string, 0, 4)
	for rows.Next() {
		var sub string
		if err := rows.Scan(&sub); err != nil {
			return nil, fmt.Errorf("scanning subregion row: %w", err)
		}
		result = append(result, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating subregion rows: %w", err)
	}
	return result, nil
}

// InsertJoinTicket persists a join-ticket row. The account name is the
// primary key: a re-join replaces the previous unconsumed ticket.
func (s *PostgresStore) InsertJoinTicket(ctx context.Context, t JoinTicket) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO realm_join_tickets
		   (account_name, client_secret, server_secret, client_ip, locale, os, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (account_name) DO UPDATE SET
		   client_secret = EXCLUDED.client_secret,
		   server_secret = EXCLUDED.server_secret,
		   client_ip     = EXCLUDED.client_ip,
		   locale        = EXCLUDED.locale,
		   os            = EXCLUDED.os,
		   created_at    = EXCLUDED.created_at`,
		t.AccountName, t.ClientSecret[:], t.ServerSecret[:], t.ClientIP, t.Locale, t.OS, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting join ticket for %q: %w", t.AccountName, err)
	}
	return nil
}
