package models

import "time"

type MongoUser struct {
	ID             string   `bson:"_id"`
	Email          string   `bson:"email"`
	Name           string   `bson:"name"`
	TelegramChatID int64    `bson:"telegram_chat_id,omitempty"`
	Courses        []string `bson:"courses"`
	LastUsedAt     string   `bson:"last_used_at"`
	LastNotifiedAt string   `bson:"last_notified_at"`
}

// MongoSubscription is a paid access record, one per external invoice.
// invoice_id carries a unique index, see mongo.EnsureIndexes.
type MongoSubscription struct {
	InvoiceID    string    `bson:"invoice_id"`
	UserID       string    `bson:"user_id"`
	CourseID     string    `bson:"course_id,omitempty"`
	StartDate    time.Time `bson:"start_date"`
	EndDate      time.Time `bson:"end_date"`
	IsActive     bool      `bson:"is_active"`
	Paid         float64   `bson:"paid"`
	Promocode    string    `bson:"promocode,omitempty"`
	PromoApplied bool      `bson:"promo_applied"`
	Provider     string    `bson:"provider"`
	CreatedAt    time.Time `bson:"created_at"`
}

// MongoStory is a daily engagement prompt shown to a user per course.
// Seen is 0/1 rather than bool, matching the values the web client writes.
type MongoStory struct {
	ID        string    `bson:"_id"`
	UserID    string    `bson:"user_id"`
	CourseID  string    `bson:"course_id"`
	Seen      int       `bson:"seen"`
	CreatedAt time.Time `bson:"created_at"`
}

// MongoActivity is a practice attempt. IsCorrect is nil while the attempt
// is ungraded.
type MongoActivity struct {
	UserID    string    `bson:"user_id"`
	CourseID  string    `bson:"course_id"`
	UpdatedAt time.Time `bson:"updated_at"`
	IsCorrect *bool     `bson:"is_correct,omitempty"`
}

// MongoQuestion is a question-bank entry, input to the static pre-renderer.
type MongoQuestion struct {
	ID            string `bson:"_id"`
	Exam          string `bson:"exam"`
	Topic         string `bson:"topic"`
	Number        int    `bson:"number"`
	StatementHTML string `bson:"statement_html"`
	Answer        string `bson:"answer"`
	SolutionHTML  string `bson:"solution_html"`
}
