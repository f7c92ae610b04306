// Command seed fills the configured database with a small sample data set.
package main

import (
	"context"
	"flag"
	"log"

	"academictracker/internal/config"
	"academictracker/internal/database"
	"academictracker/internal/service"
)

func main() {
	log.SetPrefix("SEED : ")
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	reset := flag.Bool("reset", false, "drop and recreate the tables before seeding")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	db := database.InitDB(cfg)

	if *reset {
		// children first so the foreign keys never dangle
		tables := make([]interface{}, 0, len(database.Models))
		for i := len(database.Models) - 1; i >= 0; i-- {
			tables = append(tables, database.Models[i])
		}
		if err := db.Migrator().DropTable(tables...); err != nil {
			log.Fatal(err)
		}
		if err := database.Migrate(db); err != nil {
			log.Fatal(err)
		}
	}

	if err := service.Seed(context.Background(), db); err != nil {
		log.Fatal(err)
	}
	log.Println("Seed done")
}
