package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CharacterCountRow is one realm's character count for a game account.
type CharacterCountRow struct {
	GameAccountID int64
	Count         uint8
	RealmRegion   uint8
	RealmSite     uint8
	RealmID       uint8
}

// LastPlayedRow is one subregion's last-played character for a game account.
type LastPlayedRow struct {
	GameAccountID  int64
	Subregion      string
	RealmRegion    uint8
	RealmSite      uint8
	RealmID        uint8
	CharacterName  string
	CharacterGUID  uint64
	LastPlayedTime uint32
}

// IPBanRow is one row of the ip_bans table. A non-zero Banned column
// blocks the connection; zero does not.
type IPBanRow struct {
	IP     string
	Banned int32
	Reason string
}

// Repository is the query surface the session layer authenticates
// against. Implemented by PostgresRepository; tests substitute a mock.
type Repository interface {
	SelectAccountByCredential(ctx context.Context, ticket []byte) (*Info, error)
	SelectGameAccountsByCredential(ctx context.Context, ticket []byte) ([]*GameAccount, error)
	SelectCharacterCountsByAccountID(ctx context.Context, accountID int64) ([]CharacterCountRow, error)
	SelectLastPlayedByAccountID(ctx context.Context, accountID int64) ([]LastPlayedRow, error)
	DeleteExpiredIPBans(ctx context.Context) error
	SelectIPBans(ctx context.Context, ip string) ([]IPBanRow, error)
	UpdateLastLogin(ctx context.Context, ip string, localeNum uint32, os string, accountID int64) error
}

// PostgresRepository implements Repository against the login database.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a Repository backed by pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// SelectAccountByCredential resolves a web credential ticket to the
// account it was issued for, joined against the account-bans table.
// Returns nil, nil when the ticket matches no account.
func (r *PostgresRepository) SelectAccountByCredential(ctx context.Context, ticket []byte) (*Info, error) {
	var (
		info      Info
		hasBan    bool
		banExpiry int64
	)
	err := r.pool.QueryRow(ctx,
		`SELECT a.id, a.login, a.ip_locked, a.country_lock, a.last_ip,
		        COALESCE(EXTRACT(EPOCH FROM a.login_ticket_expiry)::bigint, 0),
		        b.account_id IS NOT NULL,
		        COALESCE(EXTRACT(EPOCH FROM b.expires_at)::bigint, 0)
		 FROM accounts a
		 LEFT JOIN account_bans b ON b.account_id = a.id
		 WHERE a.login_ticket = $1`, string(ticket),
	).Scan(&info.ID, &info.Login, &info.IsLockedToIP, &info.LockCountry,
		&info.LastIP, &info.LoginTicketExpiry, &hasBan, &banExpiry)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying account by credential: %w", err)
	}

	// A ban row with a NULL expiry is permanent; a future expiry is a
	// still-running suspension.
	if hasBan {
		if banExpiry == 0 {
			info.IsBanned = true
			info.IsPermanentlyBanned = true
		} else if banExpiry > time.Now().Unix() {
			info.IsBanned = true
		}
	}

	info.GameAccounts = make(map[int64]*GameAccount)
	return &info, nil
}

// SelectGameAccountsByCredential returns every game account of the
// credential's owner, joined against game-account bans.
func (r *PostgresRepository) SelectGameAccountsByCredential(ctx context.Context, ticket []byte) ([]*GameAccount, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT g.id, g.internal_name, g.security_level,
		        b.game_account_id IS NOT NULL,
		        COALESCE(EXTRACT(EPOCH FROM b.expires_at)::bigint, 0)
		 FROM game_accounts g
		 JOIN accounts a ON a.id = g.account_id
		 LEFT JOIN game_account_bans b ON b.game_account_id = g.id
		 WHERE a.login_ticket = $1
		 ORDER BY g.id`, string(ticket))
	if err != nil {
		return nil, fmt.Errorf("querying game accounts by credential: %w", err)
	}
	defer rows.Close()

	result := make([]*GameAccount, 0, 4)
	for rows.Next() {
		var (
			ga        GameAccount
			hasBan    bool
			banExpiry int64
		)
		if err := rows.Scan(&ga.ID, &ga.Name, &ga.SecurityLevel, &hasBan, &banExpiry); err != nil {
			return nil, fmt.Errorf("scanning game account row: %w", err)
		}
		if hasBan {
			if banExpiry == 0 {
				ga.IsPermanentlyBanned = true
			} else {
				ga.UnbanDate = banExpiry
			}
		}
		ga.CharacterCounts = make(map[uint32]uint8)
		ga.LastPlayedCharacters = make(map[string]LastPlayedCharacter)
		result = append(result, &ga)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating game account rows: %w", err)
	}
	return result, nil
}

// SelectCharacterCountsByAccountID returns one row per (game account,
// realm) pair holding a character count.
func (r *PostgresRepository) SelectCharacterCountsByAccountID(ctx context.Context, accountID int64) ([]CharacterCountRow, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT c.game_account_id, c.count, c.realm_region, c.realm_site, c.realm_id
		 FROM realm_characters c
		 JOIN game_accounts g ON g.id = c.game_account_id
		 WHERE g.account_id = $1`, accountID)
	if err != nil {
		return nil, fmt.Errorf("querying character counts for account %d: %w", accountID, err)
	}
	defer rows.Close()

	result := make([]CharacterCountRow, 0, 8)
	for rows.Next() {
		var row CharacterCountRow
		if err := rows.Scan(&row.GameAccountID, &row.Count, &row.RealmRegion, &row.RealmSite, &row.RealmID); err != nil {
			return nil, fmt.Errorf("scanning character count row: %w", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating character count rows: %w", err)
	}
	return result, nil
}

// SelectLastPlayedByAccountID returns one row per (game account,
// subregion) pair naming the most recently played character there.
func (r *PostgresRepository) SelectLastPlayedByAccountID(ctx context.Context, accountID int64) ([]LastPlayedRow, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT l.game_account_id, l.subregion, l.realm_region, l.realm_site, l.realm_id,
		        l.name, l.guid, EXTRACT(EPOCH FROM l.last_played_time)::bigint
		 FROM last_played_characters l
		 JOIN game_accounts g ON g.id = l.game_account_id
		 WHERE g.account_id = $1`, accountID)
	if err != nil {
		return nil, fmt.Errorf("querying last played characters for account %d: %w", accountID, err)
	}
	defer rows.Close()

	result := make([]LastPlayedRow, 0, 4)
	for rows.Next() {
		var (
			row        LastPlayedRow
			lastPlayed int64
		)
		if err := rows.Scan(&row.GameAccountID, &row.Subregion, &row.RealmRegion,
			&row.RealmSite, &row.RealmID, &row.CharacterName, &row.CharacterGUID, &lastPlayed); err != nil {
			return nil, fmt.Errorf("scanning last played row: %w", err)
		}
		row.LastPlayedTime = uint32(lastPlayed)
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating last played rows: %w", err)
	}
	return result, nil
}

// DeleteExpiredIPBans prunes ip_bans rows whose expiry has passed. Run
// before each SelectIPBans so a lapsed ban never blocks a connection.
func (r *PostgresRepository) DeleteExpiredIPBans(ctx context.Context) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM ip_bans WHERE expires_at IS NOT NULL AND expires_at < now()`)
	if err != nil {
		return fmt.Errorf("deleting expired ip bans: %w", err)
	}
	return nil
}

// SelectIPBans returns the ban rows matching ip.
func (r *PostgresRepository) SelectIPBans(ctx context.Context, ip string) ([]IPBanRow, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT ip, banned, reason FROM ip_bans WHERE ip = $1`, ip)
	if err != nil {
		return nil, fmt.Errorf("querying ip bans for %s: %w", ip, err)
	}
	defer rows.Close()

	result := make([]IPBanRow, 0, 1)
	for rows.Next() {
		var row IPBanRow
		if err := rows.Scan(&row.IP, &row.Banned, &row.Reason); err != nil {
			return nil, fmt.Errorf("scanning ip ban row: %w", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating ip ban rows: %w", err)
	}
	return result, nil
}

// UpdateLastLogin records the most recent successful authentication.
func (r *PostgresRepository) UpdateLastLogin(ctx context.Context, ip string, localeNum uint32, os string, accountID int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE accounts SET last_ip = $1, last_locale = $2, last_os = $3, last_active = now()
		 WHERE id = $4`, ip, localeNum, os, accountID)
	if err != nil {
		return fmt.Errorf("updating last login for account %d: %w", accountID, err)
	}
	return nil
}
