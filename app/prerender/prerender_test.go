package prerender

import (
	"context"
	"os"
	"path/filepath"
	"repetika/m/v2/app/db/mongo"
	"repetika/m/v2/app/models"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderExam(t *testing.T) {
	mockMongo := mongo.NewMockMongoDBClient()
	mockMongo.Questions["oge-math"] = []models.MongoQuestion{
		{
			ID: "q1", Exam: "oge-math", Topic: "Уравнения", Number: 9,
			StatementHTML: "<p>Решите уравнение <i>x&sup2;=4</i></p>",
			Answer:        "2; -2",
			SolutionHTML:  "<p>Корни: 2 и -2</p>",
		},
		{
			ID: "q2", Exam: "oge-math", Topic: "Уравнения", Number: 9,
			StatementHTML: "<p>Решите уравнение x+1=0</p>",
			Answer:        "-1",
			SolutionHTML:  "<p>x=-1</p>",
		},
		{
			ID: "q3", Exam: "oge-math", Topic: "Вероятность", Number: 10,
			StatementHTML: "<p>Бросают монету</p>",
			Answer:        "0.5",
			SolutionHTML:  "<p>Два равновероятных исхода</p>",
		},
	}

	outDir := t.TempDir()
	renderer := New(mockMongo, outDir)

	topics, err := renderer.RenderExam(context.Background(), "oge-math")
	assert.NoError(t, err)
	assert.Equal(t, 2, topics)

	examDir := filepath.Join(outDir, "oge-math")
	index, err := os.ReadFile(filepath.Join(examDir, "index.html"))
	assert.NoError(t, err)
	assert.Contains(t, string(index), "Уравнения")
	assert.Contains(t, string(index), "Вероятность")

	entries, err := os.ReadDir(examDir)
	assert.NoError(t, err)
	assert.Len(t, entries, 3)

	pages := 0
	for _, entry := range entries {
		if entry.Name() == "index.html" {
			continue
		}
		pages++
		content, err := os.ReadFile(filepath.Join(examDir, entry.Name()))
		assert.NoError(t, err)
		assert.Contains(t, string(content), "Решение и ответ")
	}
	assert.Equal(t, 2, pages)

	// statement markup is emitted as-is, not escaped
	equations, err := os.ReadFile(filepath.Join(examDir, "uravneniya.html"))
	assert.NoError(t, err)
	assert.Contains(t, string(equations), "<p>Решите уравнение <i>x&sup2;=4</i></p>")
	assert.Contains(t, string(equations), "Ответ: <b>2; -2</b>")
}

func TestRenderExamWithoutQuestions(t *testing.T) {
	mockMongo := mongo.NewMockMongoDBClient()
	renderer := New(mockMongo, t.TempDir())

	topics, err := renderer.RenderExam(context.Background(), "ege-math-base")
	assert.NoError(t, err)
	assert.Equal(t, 0, topics)
}

func TestTopicSlug(t *testing.T) {
	assert.Equal(t, "geometry-101", topicSlug("Geometry 101"))
	assert.Equal(t, "uravneniya", topicSlug("Уравнения"))
	assert.Equal(t, "veroyatnost", topicSlug("Вероятность"))
}
