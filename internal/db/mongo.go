package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/NileshSanyal/supermart-backend/internal/config"
	"github.com/NileshSanyal/supermart-backend/internal/model"
)

const usersCollection = "users"

// Mongo stores accounts in the users collection of a document database.
type Mongo struct {
	users *mongo.Collection
}

func NewMongo(users *mongo.Collection) *Mongo {
	return &Mongo{users: users}
}

// ConnectMongo connects and pings, retrying at a constant interval.
func ConnectMongo(ctx context.Context, mongoCfg config.MongoConfig, storeCfg config.StoreConfig, logger *slog.Logger) (*mongo.Client, *mongo.Collection, error) {
	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(mongoCfg.URI).
		SetServerSelectionTimeout(5*time.Second))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create mongo client: %w", err)
	}

	attempt := 0
	backoff := retry.WithMaxRetries(storeCfg.ConnectTries, retry.NewConstant(storeCfg.RetryInterval))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := client.Ping(ctx, nil); err != nil {
			logger.WarnContext(ctx, "mongodb not reachable, will retry", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	logger.InfoContext(ctx, "mongodb connected", "database", mongoCfg.Database)
	return client, client.Database(mongoCfg.Database).Collection(usersCollection), nil
}

// EnsureIndexes creates the unique lookup indexes the account queries rely on.
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	_, err := m.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	return err
}

func (m *Mongo) CreateAccount(ctx context.Context, account *model.Account) error {
	now := time.Now().UTC().Truncate(time.Millisecond)
	account.CreatedAt = now
	account.UpdatedAt = now
	_, err := m.users.InsertOne(ctx, account)
	return translate(err)
}

func (m *Mongo) GetAccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	return m.findOne(ctx, bson.D{{Key: "email", Value: email}})
}

func (m *Mongo) GetAccountByID(ctx context.Context, id string) (*model.Account, error) {
	return m.findOne(ctx, bson.D{{Key: "user_id", Value: id}})
}

func (m *Mongo) ListAccounts(ctx context.Context, offset, limit int) ([]model.Account, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	cursor, err := m.users.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	list := []model.Account{}
	if err := cursor.All(ctx, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (m *Mongo) UpdatePasswordHash(ctx context.Context, email, passwordHash string) error {
	return m.updateOne(ctx, bson.D{{Key: "email", Value: email}}, bson.D{
		{Key: "password", Value: passwordHash},
	})
}

func (m *Mongo) SetGoogleProfile(ctx context.Context, id string, profile model.GoogleProfile) error {
	return m.updateOne(ctx, bson.D{{Key: "user_id", Value: id}}, bson.D{
		{Key: "google", Value: profile},
	})
}

func (m *Mongo) findOne(ctx context.Context, filter bson.D) (*model.Account, error) {
	var account model.Account
	if err := m.users.FindOne(ctx, filter).Decode(&account); err != nil {
		return nil, translate(err)
	}
	return &account, nil
}

func (m *Mongo) updateOne(ctx context.Context, filter, set bson.D) error {
	set = append(set, bson.E{Key: "updatedAt", Value: time.Now().UTC()})
	res, err := m.users.UpdateOne(ctx, filter, bson.D{{Key: "$set", Value: set}})
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
