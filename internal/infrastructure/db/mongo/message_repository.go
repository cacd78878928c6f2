package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/talking/chat-server/internal/core/domain"
)

const messageCollection = "messages"

type MessageRepository struct {
	coll *mongo.Collection
}

func NewMessageRepository(db *mongo.Database) *MessageRepository {
	return &MessageRepository{coll: db.Collection(messageCollection)}
}

// created_at is stored as a BSON date: the TTL monitor ignores other types.
type mongoMessage struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	From      string             `bson:"from"`
	To        string             `bson:"to"`
	Text      string             `bson:"text"`
	CreatedAt primitive.DateTime `bson:"created_at"`
}

func messageIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "created_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(domain.MessageRetention.Seconds())),
		},
		{Keys: bson.D{{Key: "from", Value: 1}, {Key: "to", Value: 1}, {Key: "created_at", Value: -1}}},
	}
}

func (r *MessageRepository) Append(ctx context.Context, msg *domain.Message) error {
	ctx, cancel := opContext(ctx)
	defer cancel()

	res, err := r.coll.InsertOne(ctx, mongoMessage{
		From:      msg.From,
		To:        msg.To,
		Text:      msg.Text,
		CreatedAt: primitive.NewDateTimeFromTime(msg.CreatedAt),
	})
	if err != nil {
		return persistenceErr("insert message", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		msg.ID = oid.Hex()
	}
	return nil
}

func (r *MessageRepository) Recent(ctx context.Context, a, b string, limit int) ([]domain.Message, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"from": a, "to": b},
		bson.M{"from": b, "to": a},
	}}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))

	ctx, cancel := opContext(ctx)
	defer cancel()

	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, persistenceErr("find messages", err)
	}
	defer cur.Close(ctx)

	var docs []mongoMessage
	if err := cur.All(ctx, &docs); err != nil {
		return nil, persistenceErr("decode messages", err)
	}

	msgs := make([]domain.Message, 0, len(docs))
	for _, d := range docs {
		msgs = append(msgs, domain.Message{
			ID:        d.ID.Hex(),
			From:      d.From,
			To:        d.To,
			Text:      d.Text,
			CreatedAt: d.CreatedAt.Time().UTC(),
		})
	}
	return msgs, nil
}
