// Static build of the question-bank pages: one HTML page per exam topic
// plus a per-exam index, rendered straight from the questions collection.
package prerender

import (
	"context"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"repetika/m/v2/app/db/mongo"
	"repetika/m/v2/app/models"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"
)

type Renderer struct {
	DB       mongo.MongoClient
	OutDir   string
	topicTpl *template.Template
	indexTpl *template.Template
}

type topicPage struct {
	Exam      string
	Topic     string
	Questions []models.MongoQuestion
}

type indexPage struct {
	Exam   string
	Topics []string
}

// template helpers shared by both pages
var helpers = template.FuncMap{
	"html_raw": func(s string) template.HTML { return template.HTML(s) },
	"slug":     topicSlug,
}

func New(db mongo.MongoClient, outDir string) *Renderer {
	return &Renderer{
		DB:       db,
		OutDir:   outDir,
		topicTpl: template.Must(template.New("topic").Funcs(helpers).Parse(topicTemplate)),
		indexTpl: template.Must(template.New("index").Funcs(helpers).Parse(indexTemplate)),
	}
}

// RenderExam writes the pages for one exam and returns how many topic pages
// were produced.
func (r *Renderer) RenderExam(ctx context.Context, exam string) (int, error) {
	questions, err := r.DB.GetQuestionsForExam(ctx, exam)
	if err != nil {
		return 0, fmt.Errorf("RenderExam: %w", err)
	}
	if len(questions) == 0 {
		log.Warnf("prerender: no questions for exam %s", exam)
		return 0, nil
	}

	byTopic := map[string][]models.MongoQuestion{}
	for _, question := range questions {
		byTopic[question.Topic] = append(byTopic[question.Topic], question)
	}
	topics := make([]string, 0, len(byTopic))
	for topic := range byTopic {
		topics = append(topics, topic)
	}
	sort.Strings(topics)

	examDir := filepath.Join(r.OutDir, exam)
	if err := os.MkdirAll(examDir, 0o755); err != nil {
		return 0, fmt.Errorf("RenderExam: failed to create %s: %w", examDir, err)
	}

	for _, topic := range topics {
		page := topicPage{Exam: exam, Topic: topic, Questions: byTopic[topic]}
		path := filepath.Join(examDir, topicSlug(topic)+".html")
		if err := r.renderTo(r.topicTpl, path, page); err != nil {
			return 0, err
		}
		log.Infof("prerender: wrote %s (%d questions)", path, len(page.Questions))
	}

	indexPath := filepath.Join(examDir, "index.html")
	if err := r.renderTo(r.indexTpl, indexPath, indexPage{Exam: exam, Topics: topics}); err != nil {
		return 0, err
	}
	return len(topics), nil
}

func (r *Renderer) renderTo(tpl *template.Template, path string, data interface{}) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("renderTo: failed to create %s: %w", path, err)
	}
	defer file.Close()

	if err := tpl.Execute(file, data); err != nil {
		return fmt.Errorf("renderTo: failed to render %s: %w", path, err)
	}
	return nil
}

// translit maps cyrillic topic names onto file-system safe slugs
var translit = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d", 'е': "e", 'ё': "e",
	'ж': "zh", 'з': "z", 'и': "i", 'й': "y", 'к': "k", 'л': "l", 'м': "m",
	'н': "n", 'о': "o", 'п': "p", 'р': "r", 'с': "s", 'т': "t", 'у': "u",
	'ф': "f", 'х': "h", 'ц': "ts", 'ч': "ch", 'ш': "sh", 'щ': "sch",
	'ъ': "", 'ы': "y", 'ь': "", 'э': "e", 'ю': "yu", 'я': "ya",
}

// topicSlug keeps the cyrillic topic names out of file paths.
func topicSlug(topic string) string {
	var slug strings.Builder
	for _, r := range strings.ToLower(topic) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			slug.WriteRune(r)
		default:
			if mapped, ok := translit[r]; ok {
				slug.WriteString(mapped)
			} else {
				slug.WriteByte('-')
			}
		}
	}
	return slug.String()
}

// Statement and solution HTML come from our own database, produced by the
// content team's editor, hence template.HTML below rather than escaping.
const topicTemplate = `<!DOCTYPE html>
<html lang="ru">
<head>
<meta charset="utf-8">
<title>{{.Topic}} — {{.Exam}} | repetika</title>
</head>
<body>
<h1>{{.Topic}}</h1>
{{range .Questions}}
<article id="q{{.Number}}">
<h2>Задание {{.Number}}</h2>
<div class="statement">{{.StatementHTML | html_raw}}</div>
<details>
<summary>Решение и ответ</summary>
<div class="solution">{{.SolutionHTML | html_raw}}</div>
<p class="answer">Ответ: <b>{{.Answer}}</b></p>
</details>
</article>
{{end}}
</body>
</html>
`

const indexTemplate = `<!DOCTYPE html>
<html lang="ru">
<head>
<meta charset="utf-8">
<title>{{.Exam}} — банк заданий | repetika</title>
</head>
<body>
<h1>Банк заданий: {{.Exam}}</h1>
<ul>
{{range .Topics}}<li><a href="{{. | slug}}.html">{{.}}</a></li>
{{end}}</ul>
</body>
</html>
`
