package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/talking/chat-server/internal/core/domain"
)

const sessionCollection = "sessions"

// SessionRepository keeps at most one session document per user, enforced
// by a unique index on user_id.
type SessionRepository struct {
	coll *mongo.Collection
}

func NewSessionRepository(db *mongo.Database) *SessionRepository {
	return &SessionRepository{coll: db.Collection(sessionCollection)}
}

type mongoSession struct {
	UserID    string    `bson:"user_id"`
	Token     string    `bson:"token"`
	CreatedAt time.Time `bson:"created_at"`
}

func fromSession(s domain.Session) mongoSession {
	return mongoSession{UserID: s.UserID, Token: s.Token, CreatedAt: s.CreatedAt}
}

func sessionIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: options.Index().SetUnique(true)},
	}
}

// Replace upserts the user's session in a single document write, so no
// reader ever sees zero or two sessions. Two concurrent first logins can race
// on the unique index; the loser retries and then finds the document.
func (r *SessionRepository) Replace(ctx context.Context, uid, token string) error {
	ctx, cancel := opContext(ctx)
	defer cancel()

	doc := fromSession(domain.Session{UserID: uid, Token: token, CreatedAt: time.Now().UTC()})
	opts := options.Replace().SetUpsert(true)

	_, err := r.coll.ReplaceOne(ctx, bson.M{"user_id": uid}, doc, opts)
	if mongo.IsDuplicateKeyError(err) {
		_, err = r.coll.ReplaceOne(ctx, bson.M{"user_id": uid}, doc, opts)
	}
	if err != nil {
		return persistenceErr("replace session", err)
	}
	return nil
}

func (r *SessionRepository) Revoke(ctx context.Context, uid string) error {
	ctx, cancel := opContext(ctx)
	defer cancel()

	if _, err := r.coll.DeleteMany(ctx, bson.M{"user_id": uid}); err != nil {
		return persistenceErr("revoke session", err)
	}
	return nil
}

func (r *SessionRepository) IsLive(ctx context.Context, uid, token string) (bool, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	n, err := r.coll.CountDocuments(ctx, bson.M{"user_id": uid, "token": token}, options.Count().SetLimit(1))
	if err != nil {
		return false, persistenceErr("check session", err)
	}
	return n > 0, nil
}
