package pgx

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// GraphDBStore provides read-only access to the guideline knowledge graph in
// PostgreSQL. It implements graph.QueryService, graph.VectorIndex, and
// graph.Directory over a shared connection pool. The engine never mutates
// graph data, so no locking sits on top of the pool.
type GraphDBStore struct {
	conn *pgxpool.Pool
}

// NewGraphDBStore creates a store over an existing connection pool. The pool
// must have pgvector types registered (see pgvector-go/pgx.RegisterTypes).
func NewGraphDBStore(conn *pgxpool.Pool) *GraphDBStore {
	return &GraphDBStore{
		conn: conn,
	}
}
