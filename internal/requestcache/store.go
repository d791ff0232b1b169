package requestcache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// Row is the persisted form of a cache.
type Row struct {
	ID         int64
	StoreID    int64
	ConfigHash string
	Config     []byte
	Tstamp     int64
}

// Repository is the persistence contract for cache rows.
type Repository interface {
	// Intern atomically finds or creates the row matching
	// (store_id, config_hash) and returns its ID.
	Intern(row Row) (int64, error)
	Insert(row Row) (int64, error)
	FindByIDAndStore(id, storeID int64) (Row, error)
	DeleteByID(id int64) (bool, error)
	Purge() error
}

// ErrNotFound is returned when no cache row matches.
var ErrNotFound = errors.New("requestcache: row not found")

// Save persists a fresh cache directly. It refuses to overwrite an
// already-persisted row that was modified afterwards; that history may be
// referenced by other sessions and must fork via SaveNewConfiguration.
func Save(repo Repository, c *Cache) error {
	if c.modified && c.ID > 0 {
		return ErrModifiedCache
	}
	if c.ID > 0 {
		return nil
	}

	row, err := toRow(c)
	if err != nil {
		return err
	}
	id, err := repo.Insert(row)
	if err != nil {
		return err
	}
	c.ID = id
	c.Tstamp = row.Tstamp
	c.modified = false
	return nil
}

// SaveNewConfiguration interns the current configuration: an unmodified
// cache is returned as-is; otherwise the row matching the serialized config
// is looked up or created atomically and its identity adopted. The
// previously persisted row is left untouched.
func SaveNewConfiguration(repo Repository, c *Cache) (*Cache, error) {
	if !c.modified {
		return c, nil
	}

	row, err := toRow(c)
	if err != nil {
		return nil, err
	}
	id, err := repo.Intern(row)
	if err != nil {
		return nil, err
	}
	if id == c.ID {
		return c, nil
	}

	adopted := c.clone()
	adopted.ID = id
	adopted.Tstamp = row.Tstamp
	return adopted, nil
}

// Load fetches a cache row by ID and store. A missing row yields a fresh
// empty cache so callers never deal with nil.
func Load(repo Repository, id, storeID int64) (*Cache, error) {
	if id <= 0 {
		return New(storeID), nil
	}
	row, err := repo.FindByIDAndStore(id, storeID)
	if errors.Is(err, ErrNotFound) {
		return New(storeID), nil
	}
	if err != nil {
		return nil, err
	}
	return FromRow(row.ID, row.StoreID, row.Tstamp, row.Config)
}

func toRow(c *Cache) (Row, error) {
	config, err := c.MarshalConfig()
	if err != nil {
		return Row{}, fmt.Errorf("serialize cache config: %w", err)
	}
	sum := sha256.Sum256(config)
	return Row{
		ID:         c.ID,
		StoreID:    c.StoreID,
		ConfigHash: hex.EncodeToString(sum[:]),
		Config:     config,
		Tstamp:     time.Now().Unix(),
	}, nil
}

// SQLRepository stores cache rows in MySQL. The request_cache table has a
// unique index on (store_id, config_hash) so Intern is a single atomic
// statement instead of a racy read-then-write.
type SQLRepository struct {
	DB *sql.DB
}

func (r *SQLRepository) Intern(row Row) (int64, error) {
	result, err := r.DB.Exec(`
		INSERT INTO request_cache (store_id, config_hash, config, tstamp)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE id = LAST_INSERT_ID(id), tstamp = VALUES(tstamp)`,
		row.StoreID, row.ConfigHash, row.Config, row.Tstamp,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (r *SQLRepository) Insert(row Row) (int64, error) {
	result, err := r.DB.Exec(`
		INSERT INTO request_cache (store_id, config_hash, config, tstamp)
		VALUES (?, ?, ?, ?)`,
		row.StoreID, row.ConfigHash, row.Config, row.Tstamp,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (r *SQLRepository) FindByIDAndStore(id, storeID int64) (Row, error) {
	var row Row
	err := r.DB.QueryRow(`
		SELECT id, store_id, config_hash, config, tstamp
		FROM request_cache WHERE id = ? AND store_id = ?`,
		id, storeID,
	).Scan(&row.ID, &row.StoreID, &row.ConfigHash, &row.Config, &row.Tstamp)
	if errors.Is(err, sql.ErrNoRows) {
		return Row{}, ErrNotFound
	}
	if err != nil {
		return Row{}, err
	}
	return row, nil
}

func (r *SQLRepository) DeleteByID(id int64) (bool, error) {
	result, err := r.DB.Exec(`DELETE FROM request_cache WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *SQLRepository) Purge() error {
	_, err := r.DB.Exec(`TRUNCATE request_cache`)
	return err
}
