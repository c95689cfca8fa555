package mongoimpl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"micro-timeline/microblog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collName = "posts"

type MongoStore struct {
	posts  *mongo.Collection
	client *mongo.Client
}

// postDocument is the stored shape of a post; the id lives in _id.
type postDocument struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	Body       string             `bson:"body"`
	AuthorName string             `bson:"author_name"`
	CreatedAt  time.Time          `bson:"created_at"`
}

func (d postDocument) toPost() microblog.Post {
	return microblog.Post{
		PostId:     d.ID.Hex(),
		Body:       d.Body,
		AuthorName: d.AuthorName,
		CreatedAt:  d.CreatedAt.UTC(),
	}
}

func ensureIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexModels := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}},
		},
	}
	opts := options.CreateIndexes().SetMaxTime(10 * time.Second)

	if _, err := collection.Indexes().CreateMany(ctx, indexModels, opts); err != nil {
		return fmt.Errorf("failed to ensure indexes: %w", err)
	}
	return nil
}

func NewMongoStore(ctx context.Context, mongoURL string, dbName string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURL))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}

	collection := client.Database(dbName).Collection(collName)
	if err := ensureIndexes(ctx, collection); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	return &MongoStore{
		posts:  collection,
		client: client,
	}, nil
}

func (m *MongoStore) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func (m *MongoStore) IsReady(ctx context.Context) bool {
	return m.client.Ping(ctx, nil) == nil
}

func (m *MongoStore) AddPost(ctx context.Context, author string, body string) (microblog.Post, error) {
	// Mongo keeps milliseconds only; truncate so the returned post matches what is read back.
	doc := postDocument{Body: body, AuthorName: author, CreatedAt: time.Now().UTC().Truncate(time.Millisecond)}
	res, err := m.posts.InsertOne(ctx, doc)
	if err != nil {
		return microblog.Post{}, fmt.Errorf("insert post: %w: %w", microblog.ErrStorage, err)
	}
	doc.ID = res.InsertedID.(primitive.ObjectID)
	return doc.toPost(), nil
}

func (m *MongoStore) GetPost(ctx context.Context, postID string) (microblog.Post, error) {
	objID, err := primitive.ObjectIDFromHex(postID)
	if err != nil {
		return microblog.Post{}, fmt.Errorf("post %s: %w", postID, microblog.ErrNotFound)
	}
	var doc postDocument
	err = m.posts.FindOne(ctx, bson.M{"_id": objID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return microblog.Post{}, fmt.Errorf("post %s: %w", postID, microblog.ErrNotFound)
	}
	if err != nil {
		return microblog.Post{}, fmt.Errorf("find post: %w: %w", microblog.ErrStorage, err)
	}
	return doc.toPost(), nil
}

// GetPosts ignores ids that are not valid ObjectIDs; they cannot match a post.
func (m *MongoStore) GetPosts(ctx context.Context, postIDs []string) (map[string]microblog.Post, error) {
	objIDs := make([]primitive.ObjectID, 0, len(postIDs))
	for _, id := range postIDs {
		if objID, err := primitive.ObjectIDFromHex(id); err == nil {
			objIDs = append(objIDs, objID)
		}
	}
	found := make(map[string]microblog.Post, len(objIDs))
	if len(objIDs) == 0 {
		return found, nil
	}

	cursor, err := m.posts.Find(ctx, bson.M{"_id": bson.M{"$in": objIDs}})
	if err != nil {
		return nil, fmt.Errorf("find posts: %w: %w", microblog.ErrStorage, err)
	}
	defer cursor.Close(ctx)
	for cursor.Next(ctx) {
		var doc postDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode post: %w: %w", microblog.ErrStorage, err)
		}
		post := doc.toPost()
		found[post.PostId] = post
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w: %w", microblog.ErrStorage, err)
	}
	return found, nil
}

func (m *MongoStore) GetRecentPosts(ctx context.Context, n int) ([]microblog.Post, error) {
	posts := []microblog.Post{}
	if n <= 0 {
		return posts, nil
	}
	cursor, err := m.posts.Find(
		ctx,
		bson.M{},
		options.Find().
			SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
			SetLimit(int64(n)),
	)
	if err != nil {
		return nil, fmt.Errorf("find recent posts: %w: %w", microblog.ErrStorage, err)
	}
	defer cursor.Close(ctx)
	for cursor.Next(ctx) {
		var doc postDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode post: %w: %w", microblog.ErrStorage, err)
		}
		posts = append(posts, doc.toPost())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w: %w", microblog.ErrStorage, err)
	}
	return posts, nil
}

func (m *MongoStore) DeletePost(ctx context.Context, postID string) error {
	objID, err := primitive.ObjectIDFromHex(postID)
	if err != nil {
		return fmt.Errorf("post %s: %w", postID, microblog.ErrNotFound)
	}
	res, err := m.posts.DeleteOne(ctx, bson.M{"_id": objID})
	if err != nil {
		return fmt.Errorf("delete post: %w: %w", microblog.ErrStorage, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("post %s: %w", postID, microblog.ErrNotFound)
	}
	return nil
}
