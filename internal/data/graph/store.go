package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/knoxfield/corpusflow/internal/platform/envutil"
	"github.com/knoxfield/corpusflow/internal/platform/logger"
)

// Store holds the relationship graph between records and downstream
// artifacts (chunks, departments, permissions). The coordinator only
// needs two operations: copying every outbound edge from one record to
// another on duplicate reuse, and linking a record to its virtual record
// identity node.
type Store interface {
	CopyDocumentRelationships(ctx context.Context, fromID, toID uuid.UUID) error
	LinkVirtualRecord(ctx context.Context, recordID, vrid uuid.UUID) error
	Close(ctx context.Context) error
}

type store struct {
	driver   neo4j.DriverWithContext
	database string
	log      *logger.Logger
}

// NewFromEnv returns (nil, nil) when NEO4J_URI is unset so callers can
// run without a graph backend.
func NewFromEnv(log *logger.Logger) (Store, error) {
	if log == nil {
		return nil, fmt.Errorf("graph: logger required")
	}

	uri := envutil.Str("NEO4J_URI", "")
	if uri == "" {
		return nil, nil
	}
	user := envutil.Str("NEO4J_USER", "neo4j")
	password := envutil.Str("NEO4J_PASSWORD", "")
	database := envutil.Str("NEO4J_DATABASE", "")
	timeout := envutil.Duration("NEO4J_TIMEOUT", 10*time.Second)
	maxPool := envutil.Int("NEO4J_MAX_POOL_SIZE", 50)

	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""), func(cfg *neo4j.Config) {
		cfg.MaxConnectionPoolSize = maxPool
		cfg.SocketConnectTimeout = timeout
	})
	if err != nil {
		return nil, fmt.Errorf("graph: init driver: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("graph: verify connectivity: %w", err)
	}

	return &store{
		driver:   driver,
		database: database,
		log:      log.With("client", "GraphStore"),
	}, nil
}

func (s *store) session(ctx context.Context) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: s.database,
		AccessMode:   neo4j.AccessModeWrite,
	})
}

// CopyDocumentRelationships mirrors every outbound edge of the source
// record node onto the destination record node, keeping edge type and
// properties. Scoped to a single source->destination pair; no larger
// transaction is taken.
func (s *store) CopyDocumentRelationships(ctx context.Context, fromID, toID uuid.UUID) error {
	sess := s.session(ctx)
	defer sess.Close(ctx)

	_, err := sess.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		const cypher = `
			MATCH (src:Record {id: $fromId})-[r]->(target)
			MATCH (dst:Record {id: $toId})
			CALL apoc.create.relationship(dst, type(r), properties(r), target) YIELD rel
			RETURN count(rel)`
		res, err := tx.Run(ctx, cypher, map[string]any{
			"fromId": fromID.String(),
			"toId":   toID.String(),
		})
		if err != nil {
			return nil, err
		}
		return res.Consume(ctx)
	})
	if err != nil {
		return fmt.Errorf("graph: copy relationships %s -> %s: %w", fromID, toID, err)
	}
	s.log.Debug("copied record relationships", "from", fromID, "to", toID)
	return nil
}

func (s *store) LinkVirtualRecord(ctx context.Context, recordID, vrid uuid.UUID) error {
	sess := s.session(ctx)
	defer sess.Close(ctx)

	_, err := sess.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		const cypher = `
			MERGE (rec:Record {id: $recordId})
			MERGE (vr:VirtualRecord {id: $vrid})
			MERGE (rec)-[:IDENTIFIED_AS]->(vr)`
		res, err := tx.Run(ctx, cypher, map[string]any{
			"recordId": recordID.String(),
			"vrid":     vrid.String(),
		})
		if err != nil {
			return nil, err
		}
		return res.Consume(ctx)
	})
	if err != nil {
		return fmt.Errorf("graph: link virtual record %s -> %s: %w", recordID, vrid, err)
	}
	return nil
}

func (s *store) Close(ctx context.Context) error {
	if s == nil || s.driver == nil {
		return nil
	}
	return s.driver.Close(ctx)
}
