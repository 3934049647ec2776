// Package snapshotdb reads contract snapshots written by a chain indexer
// into Postgres.
package snapshotdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/tranvictor/abiscope/contract"
)

const DefaultTable = "contracts"

// The indexer owns the schema:
//
//	CREATE TABLE contracts (
//	    address              TEXT PRIMARY KEY,
//	    name                 TEXT,
//	    abi                  JSONB,
//	    metadata             JSONB,
//	    properties           JSONB,
//	    supported_interfaces TEXT[],
//	    creator              TEXT,
//	    creation_tx          TEXT,
//	    creation_block       BIGINT,
//	    created_at           TIMESTAMPTZ
//	);
func snapshotQuery(table string) string {
	return fmt.Sprintf(`SELECT address, name, abi, metadata, properties, supported_interfaces,
       creator, creation_tx, creation_block, created_at
FROM %s WHERE lower(address) = lower($1)`, pq.QuoteIdentifier(table))
}

type Store struct {
	db     *sql.DB
	query  string
	logger *zap.Logger
}

type Option func(*Store)

func WithTable(table string) Option {
	return func(s *Store) { s.query = snapshotQuery(table) }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Open connects to dsn and checks the connection.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("couldn't reach snapshot database: %w", err)
	}
	return New(db, opts...), nil
}

func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{
		db:     db,
		query:  snapshotQuery(DefaultTable),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Close() error {
	return s.db.Close()
}

type row struct {
	Address             string
	Name                sql.NullString
	ABI                 []byte
	Metadata            []byte
	Properties          []byte
	SupportedInterfaces pq.StringArray
	Creator             sql.NullString
	CreationTx          sql.NullString
	CreationBlock       sql.NullInt64
	CreatedAt           pq.NullTime
}

// Snapshot returns the indexed row of address. An address the indexer
// has not seen gives a snapshot with only the address.
func (s *Store) Snapshot(ctx context.Context, address string) (contract.Snapshot, error) {
	var r row
	err := s.db.QueryRowContext(ctx, s.query, address).Scan(
		&r.Address,
		&r.Name,
		&r.ABI,
		&r.Metadata,
		&r.Properties,
		&r.SupportedInterfaces,
		&r.Creator,
		&r.CreationTx,
		&r.CreationBlock,
		&r.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		s.logger.Debug("contract not indexed", zap.String("address", address))
		return contract.Snapshot{Address: address}, nil
	}
	if err != nil {
		return contract.Snapshot{Address: address}, fmt.Errorf("reading snapshot of %s: %w", address, err)
	}
	snapshot, err := r.snapshot()
	if err != nil {
		// the rest of the row is still usable
		s.logger.Warn("ignoring snapshot properties", zap.String("address", address), zap.Error(err))
	}
	return snapshot, nil
}

// snapshot converts r. Properties that are not a JSON object are reported
// but the returned snapshot is complete otherwise. Non string property
// values are skipped.
func (r row) snapshot() (contract.Snapshot, error) {
	s := contract.Snapshot{
		Address:             r.Address,
		Name:                r.Name.String,
		SupportedInterfaces: []string(r.SupportedInterfaces),
	}
	if isJSONValue(r.ABI) {
		s.ABI = json.RawMessage(r.ABI)
	}
	if isJSONValue(r.Metadata) {
		s.Metadata = json.RawMessage(r.Metadata)
	}
	var propsErr error
	if isJSONValue(r.Properties) {
		props := map[string]any{}
		if err := json.Unmarshal(r.Properties, &props); err != nil {
			propsErr = fmt.Errorf("malformed properties of %s: %w", r.Address, err)
		}
		for key, value := range props {
			if text, ok := value.(string); ok {
				if s.Properties == nil {
					s.Properties = map[string]string{}
				}
				s.Properties[key] = text
			}
		}
	}
	if r.Creator.Valid && common.IsHexAddress(r.Creator.String) {
		s.Creation = &contract.CreationInfo{
			Creator:     common.HexToAddress(r.Creator.String),
			TxHash:      common.HexToHash(r.CreationTx.String),
			BlockNumber: uint64(r.CreationBlock.Int64),
		}
		if r.CreatedAt.Valid {
			s.Creation.Timestamp = r.CreatedAt.Time.UTC().Truncate(time.Second)
		}
	}
	return s, propsErr
}

// JSONB columns may hold SQL NULL or a JSON null.
func isJSONValue(raw []byte) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed != "" && trimmed != "null"
}
