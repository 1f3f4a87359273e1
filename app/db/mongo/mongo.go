package mongo

import (
	"context"
	"fmt"
	"repetika/m/v2/app/config"
	"repetika/m/v2/app/models"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	UsersCollection         = "users"
	SubscriptionsCollection = "subscriptions"
	StoriesCollection       = "stories"
	ActivityCollection      = "student_activity"
	QuestionsCollection     = "questions"
)

// Client is a mongo client
type Client struct {
	*mongo.Client
}

type MongoClient interface {
	Disconnect(ctx context.Context) error
	EnsureIndexes(ctx context.Context) error
	GetActiveSubscriptionsCount(ctx context.Context) (int64, error)
	GetLatestActivity(ctx context.Context, userID, courseID string, gradedOnly bool) (*models.MongoActivity, error)
	GetLatestStory(ctx context.Context, userID, courseID string) (*models.MongoStory, error)
	GetQuestionsForExam(ctx context.Context, exam string) ([]models.MongoQuestion, error)
	GetUser(ctx context.Context) (*models.MongoUser, error)
	GetUserProfiles(ctx context.Context) ([]models.MongoUser, error)
	GetUsersCount(ctx context.Context) (int64, error)
	Ping(ctx context.Context, rp *readpref.ReadPref) error
	ResetStorySeen(ctx context.Context, storyID string) error
	UpsertSubscription(ctx context.Context, subscription models.MongoSubscription) (bool, error)
}

var MongoDBClient MongoClient

// NewClient creates a new mongo client
func NewClient(connection string) *Client {
	return &Client{
		Client: mustConnect(connection),
	}
}

// mustConnect connects to mongo and panics on error
func mustConnect(connection string) *mongo.Client {
	client, err := mongo.NewClient(options.Client().ApplyURI(connection).SetMaxConnecting(25))
	if err != nil {
		logrus.WithError(err).Panic("failed to create mongo client")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = client.Connect(ctx)
	if err != nil {
		logrus.WithError(err).Panic("failed to connect to mongo")
	}

	return client
}

func (c *Client) collection(name string) *mongo.Collection {
	return c.Database(config.CONFIG.MongoDBName).Collection(name)
}

// EnsureIndexes creates the unique invoice index the payment callback relies
// on. Must run before the server starts accepting callbacks.
func (c *Client) EnsureIndexes(ctx context.Context) error {
	_, err := c.collection(SubscriptionsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "invoice_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("EnsureIndexes: failed to create invoice index: %w", err)
	}
	_, err = c.collection(StoriesCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "course_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("EnsureIndexes: failed to create stories index: %w", err)
	}
	return nil
}

func (c *Client) GetUser(ctx context.Context) (*models.MongoUser, error) {
	userId := ctx.Value(models.UserContext{}).(string)
	filter := bson.M{"_id": userId}
	var user models.MongoUser
	err := c.collection(UsersCollection).FindOne(ctx, filter).Decode(&user)
	if err != nil {
		return nil, fmt.Errorf("GetUser: failed to find user: %w", err)
	}
	return &user, nil
}

// GetUserProfiles returns every user profile. The nudge job walks this list
// once per run, so the whole set is loaded in one cursor pass.
func (c *Client) GetUserProfiles(ctx context.Context) ([]models.MongoUser, error) {
	cursor, err := c.collection(UsersCollection).Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("GetUserProfiles: failed to query users: %w", err)
	}
	defer cursor.Close(ctx)

	var users []models.MongoUser
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("GetUserProfiles: failed to decode users: %w", err)
	}
	return users, nil
}

func (c *Client) GetUsersCount(ctx context.Context) (int64, error) {
	count, err := c.collection(UsersCollection).CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("GetUsersCount: failed to get users count: %w", err)
	}
	return count, nil
}

func (c *Client) GetActiveSubscriptionsCount(ctx context.Context) (int64, error) {
	filter := bson.M{"is_active": true, "end_date": bson.M{"$gt": time.Now()}}
	count, err := c.collection(SubscriptionsCollection).CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("GetActiveSubscriptionsCount: failed to count subscriptions: %w", err)
	}
	return count, nil
}

// UpsertSubscription records a subscription for an invoice exactly once.
// The $setOnInsert upsert together with the unique invoice index makes a
// re-delivered callback a no-op instead of a second row. Returns whether a
// new record was created.
func (c *Client) UpsertSubscription(ctx context.Context, subscription models.MongoSubscription) (bool, error) {
	filter := bson.M{"invoice_id": subscription.InvoiceID}
	update := bson.M{"$setOnInsert": subscription}

	opts := options.Update().SetUpsert(true)
	result, err := c.collection(SubscriptionsCollection).UpdateOne(ctx, filter, update, opts)
	if err != nil {
		// Concurrent duplicate deliveries can still race into the insert
		// path; the unique index turns the loser into a duplicate key error,
		// which means the subscription is already recorded.
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("UpsertSubscription: failed to upsert invoice %s: %w", subscription.InvoiceID, err)
	}
	return result.UpsertedCount > 0, nil
}

func (c *Client) GetLatestStory(ctx context.Context, userID, courseID string) (*models.MongoStory, error) {
	filter := bson.M{"user_id": userID, "course_id": courseID}
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})

	var story models.MongoStory
	err := c.collection(StoriesCollection).FindOne(ctx, filter, opts).Decode(&story)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetLatestStory: failed to find story for %s/%s: %w", userID, courseID, err)
	}
	return &story, nil
}

func (c *Client) ResetStorySeen(ctx context.Context, storyID string) error {
	filter := bson.M{"_id": storyID}
	update := bson.M{"$set": bson.M{"seen": 0}}
	_, err := c.collection(StoriesCollection).UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("ResetStorySeen: failed to reset story %s: %w", storyID, err)
	}
	return nil
}

func (c *Client) GetLatestActivity(ctx context.Context, userID, courseID string, gradedOnly bool) (*models.MongoActivity, error) {
	filter := bson.M{"user_id": userID, "course_id": courseID}
	if gradedOnly {
		filter["is_correct"] = bson.M{"$ne": nil}
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "updated_at", Value: -1}})

	var activity models.MongoActivity
	err := c.collection(ActivityCollection).FindOne(ctx, filter, opts).Decode(&activity)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetLatestActivity: failed to find activity for %s/%s: %w", userID, courseID, err)
	}
	return &activity, nil
}

func (c *Client) GetQuestionsForExam(ctx context.Context, exam string) ([]models.MongoQuestion, error) {
	filter := bson.M{"exam": exam}
	opts := options.Find().SetSort(bson.D{{Key: "topic", Value: 1}, {Key: "number", Value: 1}})

	cursor, err := c.collection(QuestionsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("GetQuestionsForExam: failed to query questions for %s: %w", exam, err)
	}
	defer cursor.Close(ctx)

	var questions []models.MongoQuestion
	if err := cursor.All(ctx, &questions); err != nil {
		return nil, fmt.Errorf("GetQuestionsForExam: failed to decode questions: %w", err)
	}
	return questions, nil
}
