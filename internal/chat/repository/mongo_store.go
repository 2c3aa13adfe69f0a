package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"chat_sync_service/internal/chat/domain"
	"chat_sync_service/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	documentsCollection = "documents"
	appendChannelPrefix = "append:"
)

// mongoDocument one node of the path tree, _id is the full path
type mongoDocument struct {
	ID     string `bson:"_id"`
	Parent string `bson:"parent"`
	Key    string `bson:"key"`
	Fields bson.M `bson:"fields"`
}

// MongoRemoteStore RemoteStore on a mongo collection, appends fan out over redis pub/sub
type MongoRemoteStore struct {
	coll   *mongo.Collection
	pubsub *RedisPubSub
}

// NewMongoRemoteStore create MongoRemoteStore and its parent index
func NewMongoRemoteStore(ctx context.Context, db *mongo.Database, pubsub *RedisPubSub) (*MongoRemoteStore, error) {
	coll := db.Collection(documentsCollection)
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "parent", Value: 1}, {Key: "key", Value: 1}},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create index: %w", domain.ErrStoreUnavailable, err)
	}
	return &MongoRemoteStore{coll: coll, pubsub: pubsub}, nil
}

func toRecord(d mongoDocument) domain.Record {
	return domain.Record{Key: d.Key, Fields: map[string]interface{}(d.Fields)}
}

// ReadPath read node and its children, nil when neither exists
func (s *MongoRemoteStore) ReadPath(ctx context.Context, path string) (*domain.Document, error) {
	defer observe("mongo", "read_path")()
	path = cleanPath(path)
	_, key := splitPath(path)

	doc := &domain.Document{Key: key}
	var self mongoDocument
	err := s.coll.FindOne(ctx, bson.M{"_id": path}).Decode(&self)
	found := err == nil
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: read %s: %w", domain.ErrStoreUnavailable, path, err)
	}
	if found {
		doc.Fields = map[string]interface{}(self.Fields)
	}

	cur, err := s.coll.Find(ctx, bson.M{"parent": path}, options.Find().SetSort(bson.D{{Key: "key", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("%w: read children %s: %w", domain.ErrStoreUnavailable, path, err)
	}
	var children []mongoDocument
	if err := cur.All(ctx, &children); err != nil {
		return nil, fmt.Errorf("%w: decode children %s: %w", domain.ErrStoreUnavailable, path, err)
	}

	if !found && len(children) == 0 {
		return nil, nil
	}
	for _, c := range children {
		doc.Children = append(doc.Children, toRecord(c))
	}
	return doc, nil
}

// ReadRange 依 orderKey 取最後 limit 筆，升序回傳
func (s *MongoRemoteStore) ReadRange(ctx context.Context, path, orderKey string, limit int) ([]domain.Record, error) {
	defer observe("mongo", "read_range")()
	path = cleanPath(path)

	opts := options.Find().SetSort(bson.D{
		{Key: "fields." + orderKey, Value: -1},
		{Key: "key", Value: -1},
	})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cur, err := s.coll.Find(ctx, bson.M{"parent": path}, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: range %s: %w", domain.ErrStoreUnavailable, path, err)
	}
	var docs []mongoDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%w: decode range %s: %w", domain.ErrStoreUnavailable, path, err)
	}

	records := make([]domain.Record, len(docs))
	for i, d := range docs {
		records[len(docs)-1-i] = toRecord(d)
	}
	return records, nil
}

// Append insert a child keyed by a new ObjectID and publish it on append:{path}.
// A failed publish still returns the key: the record is stored, only live
// delivery is lost.
func (s *MongoRemoteStore) Append(ctx context.Context, path string, fields map[string]interface{}) (string, error) {
	defer observe("mongo", "append")()
	path = cleanPath(path)
	key := primitive.NewObjectID().Hex()

	_, err := s.coll.InsertOne(ctx, mongoDocument{
		ID:     joinPath(path, key),
		Parent: path,
		Key:    key,
		Fields: bson.M(fields),
	})
	if err != nil {
		return "", fmt.Errorf("%w: append %s: %w", domain.ErrStoreWriteFailed, path, err)
	}

	payload, err := json.Marshal(appendEvent{Key: key, Fields: fields})
	if err != nil {
		return key, fmt.Errorf("%w: encode append event: %w", domain.ErrStoreWriteFailed, err)
	}
	if err := s.pubsub.Publish(ctx, appendChannelPrefix+path, payload); err != nil {
		return key, fmt.Errorf("%w: publish append %s: %w", domain.ErrStoreWriteFailed, path, err)
	}
	return key, nil
}

// Update $set each field, upserting the node
func (s *MongoRemoteStore) Update(ctx context.Context, path string, fields map[string]interface{}) error {
	defer observe("mongo", "update")()
	path = cleanPath(path)
	parent, key := splitPath(path)

	set := bson.M{}
	for k, v := range fields {
		set["fields."+k] = v
	}
	update := bson.M{
		"$set":         set,
		"$setOnInsert": bson.M{"parent": parent, "key": key},
	}
	_, err := s.coll.UpdateOne(ctx, bson.M{"_id": path}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("%w: update %s: %w", domain.ErrStoreWriteFailed, path, err)
	}
	return nil
}

// SubscribeAppends listen on append:{path}. An undecodable payload goes to
// onError and the subscription stays up.
func (s *MongoRemoteStore) SubscribeAppends(ctx context.Context, path string, onAppend func(domain.Record), onError func(error)) (domain.CancelFunc, error) {
	path = cleanPath(path)
	subCtx, cancel := context.WithCancel(ctx)

	handler := func(payload []byte) {
		ev, err := decodeAppendEvent(payload)
		if err != nil {
			logger.Log.Error("append event decode failed", zap.String("path", path), zap.Error(err))
			if onError != nil {
				onError(fmt.Errorf("%s: %w", path, err))
			}
			return
		}
		onAppend(ev.record())
	}

	if err := s.pubsub.Subscribe(subCtx, appendChannelPrefix+path, handler, onError); err != nil {
		cancel()
		return nil, err
	}
	return domain.CancelFunc(cancel), nil
}
