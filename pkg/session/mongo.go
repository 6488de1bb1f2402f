package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/codeflow/pkg/flow"
	"github.com/matzehuels/codeflow/pkg/trace"
)

// MongoConfig configures a MongoStore.
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
}

// MongoStore stores sessions in a MongoDB collection. A TTL index on
// expires_at lets the server drop expired sessions on its own.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// document is the stored shape. The graph is kept as its JSON encoding so
// the line index's integer keys survive unchanged.
type document struct {
	ID        string       `bson:"_id"`
	Code      string       `bson:"code"`
	Inputs    []string     `bson:"inputs,omitempty"`
	Graph     []byte       `bson:"graph"`
	Trace     *trace.Trace `bson:"trace"`
	Current   int          `bson:"current"`
	CreatedAt time.Time    `bson:"created_at"`
	UpdatedAt time.Time    `bson:"updated_at"`
	ExpiresAt time.Time    `bson:"expires_at"`
}

// NewMongoStore connects to MongoDB and ensures the TTL index exists.
func NewMongoStore(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	if cfg.Database == "" {
		cfg.Database = "codeflow"
	}
	if cfg.Collection == "" {
		cfg.Collection = "sessions"
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	coll := client.Database(cfg.Database).Collection(cfg.Collection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("create ttl index: %w", err)
	}
	return &MongoStore{client: client, coll: coll}, nil
}

func (s *MongoStore) Get(ctx context.Context, id string) (*Session, error) {
	var doc document
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}

	// The TTL monitor runs about once a minute.
	if time.Now().After(doc.ExpiresAt) {
		return nil, ErrNotFound
	}

	g, err := flow.Unmarshal(doc.Graph)
	if err != nil {
		return nil, fmt.Errorf("decode graph: %w", err)
	}
	return &Session{
		ID:        doc.ID,
		Code:      doc.Code,
		Inputs:    doc.Inputs,
		Graph:     g,
		Trace:     doc.Trace,
		Current:   doc.Current,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
		ExpiresAt: doc.ExpiresAt,
	}, nil
}

func (s *MongoStore) Set(ctx context.Context, sess *Session) error {
	graph, err := flow.Marshal(sess.Graph)
	if err != nil {
		return fmt.Errorf("encode graph: %w", err)
	}
	doc := document{
		ID:        sess.ID,
		Code:      sess.Code,
		Inputs:    sess.Inputs,
		Graph:     graph,
		Trace:     sess.Trace,
		Current:   sess.Current,
		CreatedAt: sess.CreatedAt,
		UpdatedAt: sess.UpdatedAt,
		ExpiresAt: sess.ExpiresAt,
	}
	_, err = s.coll.ReplaceOne(ctx, bson.M{"_id": sess.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, id string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *MongoStore) Cleanup(ctx context.Context) error {
	_, err := s.coll.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lt": time.Now()}})
	return err
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

var _ Store = (*MongoStore)(nil)
