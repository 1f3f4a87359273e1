// Static build of the question-bank pages, run from CI on content changes:
//
//	prerender -out public/bank -exams oge-math,ege-math-base,ege-math-profile
package main

import (
	"context"
	"flag"
	"repetika/m/v2/app/config"
	"repetika/m/v2/app/db/mongo"
	"repetika/m/v2/app/prerender"
	"repetika/m/v2/app/util"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

func main() {
	outDir := flag.String("out", "public/bank", "output directory")
	exams := flag.String("exams", "oge-math,ege-math-base,ege-math-profile", "comma-separated exam ids")
	flag.Parse()

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	config.CONFIG = &config.Config{
		MongoDBConnection: util.Env("MONGO_DB_CONNECTION_STRING"),
		MongoDBName:       util.Env("MONGO_DB_NAME", "repetika"),
	}

	client := mongo.NewClient(config.CONFIG.MongoDBConnection)
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.Errorf("failed to disconnect from mongo: %v", err)
		}
	}()

	renderer := prerender.New(client, *outDir)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	total := 0
	for _, exam := range strings.Split(*exams, ",") {
		exam = strings.TrimSpace(exam)
		if exam == "" {
			continue
		}
		pages, err := renderer.RenderExam(ctx, exam)
		if err != nil {
			log.Fatalf("prerender failed for exam %s: %v", exam, err)
		}
		total += pages
	}
	log.Infof("prerender finished: %d topic pages written to %s", total, *outDir)
}
