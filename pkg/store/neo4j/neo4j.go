// Package neo4j is a GraphStore backed by a Neo4j property graph. Every node
// carries the shared :Entity label plus its type label; relationships use the
// edge type directly so the data can be explored from the Neo4j browser.
package neo4j

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kwenta-ph/kwenta/backend/pkg/common"
	"github.com/kwenta-ph/kwenta/backend/pkg/logger"
	"github.com/kwenta-ph/kwenta/backend/pkg/store"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Reserved node properties. Everything else round-trips as common.Properties.
const (
	keyID    = "id"
	keyType  = "_type"
	keyLabel = "_label"
)

type Store struct {
	driver    neo4j.DriverWithContext
	database  string
	batchSize int
}

var _ store.GraphStore = (*Store)(nil)

type Option func(*Store)

func WithDatabase(name string) Option {
	return func(s *Store) {
		s.database = name
	}
}

func WithBatchSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// Connect opens a driver and verifies connectivity.
func Connect(ctx context.Context, uri, user, password string, opts ...Option) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, common.StoreError("connect", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, common.StoreError("connect", err)
	}
	return New(driver, opts...), nil
}

func New(driver neo4j.DriverWithContext, opts ...Option) *Store {
	s := &Store{driver: driver, batchSize: 500}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// EnsureSchema creates the id constraint and the name search indexes.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range []string{
		`CREATE CONSTRAINT entity_id IF NOT EXISTS FOR (n:Entity) REQUIRE n.id IS UNIQUE`,
		`CREATE INDEX entity_type IF NOT EXISTS FOR (n:Entity) ON (n._type)`,
		`CREATE FULLTEXT INDEX entity_search IF NOT EXISTS FOR (n:Entity) ON EACH [n._label]`,
		`CREATE CONSTRAINT pipeline_run_id IF NOT EXISTS FOR (r:PipelineRun) REQUIRE r.id IS UNIQUE`,
	} {
		if err := s.write(ctx, stmt, nil); err != nil {
			return err
		}
	}
	logger.Info("[Store] Neo4j schema ready", "database", s.database)
	return nil
}

func (s *Store) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: s.database})
}

func (s *Store) read(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	res, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		return result.Collect(ctx)
	})
	if err != nil {
		return nil, err
	}
	return res.([]*neo4j.Record), nil
}

func (s *Store) write(ctx context.Context, cypher string, params map[string]any) error {
	return s.writeTx(ctx, func(tx neo4j.ManagedTransaction) error {
		_, err := tx.Run(ctx, cypher, params)
		return err
	})
}

func (s *Store) writeTx(ctx context.Context, fn func(tx neo4j.ManagedTransaction) error) error {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return nil, fn(tx)
	})
	return err
}

// toNeo4j converts properties to values the driver can store. Nested values
// are kept as JSON text.
func toNeo4j(p common.Properties) map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		if k == keyID || k == keyType || k == keyLabel || v == nil {
			continue
		}
		switch t := v.(type) {
		case string, bool, int64, float64:
			out[k] = t
		case int:
			out[k] = int64(t)
		case int32:
			out[k] = int64(t)
		case float32:
			out[k] = float64(t)
		case json.Number:
			out[k] = t.String()
		case time.Time:
			out[k] = t.Format("2006-01-02")
		case []string:
			out[k] = t
		default:
			raw, err := json.Marshal(t)
			if err != nil {
				out[k] = fmt.Sprint(t)
				continue
			}
			out[k] = string(raw)
		}
	}
	return out
}

func fromNeo4j(props map[string]any) common.Properties {
	out := make(common.Properties, len(props))
	for k, v := range props {
		if k == keyID || k == keyType || k == keyLabel {
			continue
		}
		out[k] = v
	}
	return out
}

func nodeFromProps(props map[string]any) common.Node {
	id, _ := props[keyID].(string)
	typ, _ := props[keyType].(string)
	return common.Node{ID: id, Type: common.NodeType(typ), Properties: fromNeo4j(props)}
}
