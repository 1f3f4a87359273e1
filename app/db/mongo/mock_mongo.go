package mongo

import (
	"context"
	"errors"
	"repetika/m/v2/app/models"

	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MockMongoDBClient is a mock for the MongoDB client in the mongo package.
// Stories and activity are keyed by "userID/courseID".
type MockMongoDBClient struct {
	MongoClient
	Users         []models.MongoUser
	Stories       map[string]*models.MongoStory
	Graded        map[string]*models.MongoActivity
	Any           map[string]*models.MongoActivity
	Subscriptions map[string]models.MongoSubscription
	Questions     map[string][]models.MongoQuestion
	ResetStories  []string
	StoryErrors   map[string]error
	UpsertErr     error
}

func NewMockMongoDBClient(users ...models.MongoUser) *MockMongoDBClient {
	return &MockMongoDBClient{
		Users:         users,
		Stories:       map[string]*models.MongoStory{},
		Graded:        map[string]*models.MongoActivity{},
		Any:           map[string]*models.MongoActivity{},
		Subscriptions: map[string]models.MongoSubscription{},
		Questions:     map[string][]models.MongoQuestion{},
		StoryErrors:   map[string]error{},
	}
}

func PairKey(userID, courseID string) string {
	return userID + "/" + courseID
}

func (m *MockMongoDBClient) GetUser(ctx context.Context) (*models.MongoUser, error) {
	userId := ctx.Value(models.UserContext{}).(string)
	for i := range m.Users {
		if m.Users[i].ID == userId {
			return &m.Users[i], nil
		}
	}
	return nil, errors.New("user not found")
}

func (m *MockMongoDBClient) GetUserProfiles(ctx context.Context) ([]models.MongoUser, error) {
	return m.Users, nil
}

func (m *MockMongoDBClient) GetUsersCount(ctx context.Context) (int64, error) {
	return int64(len(m.Users)), nil
}

func (m *MockMongoDBClient) GetActiveSubscriptionsCount(ctx context.Context) (int64, error) {
	return int64(len(m.Subscriptions)), nil
}

func (m *MockMongoDBClient) UpsertSubscription(ctx context.Context, subscription models.MongoSubscription) (bool, error) {
	if m.UpsertErr != nil {
		return false, m.UpsertErr
	}
	if _, ok := m.Subscriptions[subscription.InvoiceID]; ok {
		return false, nil
	}
	m.Subscriptions[subscription.InvoiceID] = subscription
	return true, nil
}

func (m *MockMongoDBClient) GetLatestStory(ctx context.Context, userID, courseID string) (*models.MongoStory, error) {
	if err, ok := m.StoryErrors[PairKey(userID, courseID)]; ok {
		return nil, err
	}
	return m.Stories[PairKey(userID, courseID)], nil
}

func (m *MockMongoDBClient) ResetStorySeen(ctx context.Context, storyID string) error {
	m.ResetStories = append(m.ResetStories, storyID)
	for _, story := range m.Stories {
		if story != nil && story.ID == storyID {
			story.Seen = 0
		}
	}
	return nil
}

func (m *MockMongoDBClient) GetLatestActivity(ctx context.Context, userID, courseID string, gradedOnly bool) (*models.MongoActivity, error) {
	if gradedOnly {
		return m.Graded[PairKey(userID, courseID)], nil
	}
	return m.Any[PairKey(userID, courseID)], nil
}

func (m *MockMongoDBClient) GetQuestionsForExam(ctx context.Context, exam string) ([]models.MongoQuestion, error) {
	return m.Questions[exam], nil
}

func (m *MockMongoDBClient) Ping(ctx context.Context, rp *readpref.ReadPref) error {
	return nil
}

func (m *MockMongoDBClient) EnsureIndexes(ctx context.Context) error {
	return nil
}
